// internal/ban/ban.go
//
// Package ban is the access gate: banned users are rejected before any
// wagering operation runs.
package ban

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/duelhouse/wager-service/internal/models"
)

var ErrNotBanned = errors.New("user is not banned")

// Gate is the read side, checked on every gated request.
type Gate interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
}

// Store is the full admin surface over the ban list.
type Store interface {
	Gate
	Ban(ctx context.Context, b models.Ban) error
	Unban(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]models.Ban, error)
}

// MemoryStore keeps the ban list in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	bans map[int64]models.Ban
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bans: make(map[int64]models.Ban)}
}

func (s *MemoryStore) IsBanned(ctx context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bans[userID]
	return ok, nil
}

// Ban records or overwrites the entry for b.UserID. Re-banning an already
// banned user updates the reason and timestamp.
func (s *MemoryStore) Ban(ctx context.Context, b models.Ban) error {
	if b.BannedAt.IsZero() {
		b.BannedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[b.UserID] = b
	return nil
}

func (s *MemoryStore) Unban(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bans[userID]; !ok {
		return ErrNotBanned
	}
	delete(s.bans, userID)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Ban, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Ban, 0, len(s.bans))
	for _, b := range s.bans {
		out = append(out, b)
	}
	return out, nil
}
