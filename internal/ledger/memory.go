// internal/ledger/memory.go
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duelhouse/wager-service/internal/models"
)

// historyCap bounds the per-user history kept in memory; the same cap the
// persistent store applies when reading.
const historyCap = 50

// MemoryLedger is a process-local Ledger for tests and single-node dev runs.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	history  map[int64][]models.MatchRecord
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		accounts: make(map[int64]*models.Account),
		history:  make(map[int64][]models.MatchRecord),
	}
}

// CreateAccount registers an account. An existing id is left untouched,
// mirroring the persistent store's ON CONFLICT DO NOTHING.
func (m *MemoryLedger) CreateAccount(ctx context.Context, acc *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[acc.ID]; ok {
		return nil
	}
	stored := *acc
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.LastActivity = stored.CreatedAt
	stored.TotalDeposited = stored.Balance
	m.accounts[acc.ID] = &stored
	return nil
}

// AccountByUsername looks an account up for login.
func (m *MemoryLedger) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.Username == username {
			copied := *acc
			return &copied, nil
		}
	}
	return nil, ErrNoAccount
}

// Fund is a test helper that creates (if needed) and funds an account.
func (m *MemoryLedger) Fund(userID int64, username string, balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[userID]; ok {
		acc.Balance = balance
		return
	}
	now := time.Now()
	m.accounts[userID] = &models.Account{
		ID:             userID,
		Username:       username,
		Balance:        balance,
		TotalDeposited: balance,
		CreatedAt:      now,
		LastActivity:   now,
	}
}

// Balance implements Ledger.
func (m *MemoryLedger) Balance(ctx context.Context, userID int64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return 0, ErrNoAccount
	}
	return acc.Balance, nil
}

// Debit implements Ledger.
func (m *MemoryLedger) Debit(ctx context.Context, userID int64, amount float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return 0, ErrNoAccount
	}
	if acc.Balance < amount {
		return acc.Balance, ErrInsufficientFunds
	}
	acc.Balance -= amount
	acc.LastActivity = time.Now()
	return acc.Balance, nil
}

// Credit implements Ledger.
func (m *MemoryLedger) Credit(ctx context.Context, userID int64, amount float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return 0, ErrNoAccount
	}
	acc.Balance += amount
	acc.LastActivity = time.Now()
	return acc.Balance, nil
}

// Deposit adds external money, tracking the lifetime deposited total.
func (m *MemoryLedger) Deposit(ctx context.Context, userID int64, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return ErrNoAccount
	}
	acc.Balance += amount
	acc.TotalDeposited += amount
	acc.LastActivity = time.Now()
	return nil
}

// AppendHistory implements Ledger.
func (m *MemoryLedger) AppendHistory(ctx context.Context, rec models.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[rec.UserID]
	if !ok {
		return ErrNoAccount
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.PlayedAt.IsZero() {
		rec.PlayedAt = time.Now()
	}

	// Newest first, bounded.
	h := append([]models.MatchRecord{rec}, m.history[rec.UserID]...)
	if len(h) > historyCap {
		h = h[:historyCap]
	}
	m.history[rec.UserID] = h

	acc.GamesPlayed++
	acc.TotalWagered += rec.Stake
	if rec.WinAmount > rec.Stake {
		acc.TotalWon += rec.WinAmount - rec.Stake
	} else {
		acc.TotalLost += rec.Stake - rec.WinAmount
	}
	acc.LastActivity = time.Now()
	return nil
}

// RecentMatches implements HistoryReader.
func (m *MemoryLedger) RecentMatches(ctx context.Context, userID int64, limit int) ([]models.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.history[userID]
	if limit > 0 && len(h) > limit {
		h = h[:limit]
	}
	out := make([]models.MatchRecord, len(h))
	copy(out, h)
	return out, nil
}

// Account returns a copy of the stored account for assertions and stats.
func (m *MemoryLedger) Account(userID int64) (models.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[userID]
	if !ok {
		return models.Account{}, false
	}
	return *acc, true
}
