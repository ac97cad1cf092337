// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"

	"github.com/duelhouse/wager-service/internal/models"
)

var (
	// ErrInsufficientFunds is the typed debit failure; callers roll back any
	// room state they attempted before the debit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoAccount means the user has no ledger account.
	ErrNoAccount = errors.New("account not found")
)

// Ledger is the balance store the wagering engine settles through. Debit is
// the only operation allowed to fail on business grounds; Credit and
// AppendHistory are assumed to eventually succeed under the store's own
// retry policy, so the engine never retries them itself.
type Ledger interface {
	// Balance returns the current balance, ErrNoAccount if unknown.
	Balance(ctx context.Context, userID int64) (float64, error)
	// Debit atomically subtracts amount if the balance covers it, returning
	// the new balance or ErrInsufficientFunds with no change.
	Debit(ctx context.Context, userID int64, amount float64) (float64, error)
	// Credit adds amount and returns the new balance.
	Credit(ctx context.Context, userID int64, amount float64) (float64, error)
	// AppendHistory records a finished match for one player and folds it
	// into the lifetime aggregates.
	AppendHistory(ctx context.Context, rec models.MatchRecord) error
}

// HistoryReader is implemented by ledgers that can list recent matches.
type HistoryReader interface {
	RecentMatches(ctx context.Context, userID int64, limit int) ([]models.MatchRecord, error)
}

// AccountStore manages account records around the Ledger's money flow.
type AccountStore interface {
	// CreateAccount inserts the account, ignoring duplicates by id.
	CreateAccount(ctx context.Context, acc *models.Account) error
	// AccountByUsername returns the account or ErrNoAccount.
	AccountByUsername(ctx context.Context, username string) (*models.Account, error)
}

// Store is the full surface the HTTP layer works against.
type Store interface {
	Ledger
	HistoryReader
	AccountStore
	// Deposit adds external money: the balance and the lifetime deposited
	// total move together, unlike a wager Credit.
	Deposit(ctx context.Context, userID int64, amount float64) error
}
