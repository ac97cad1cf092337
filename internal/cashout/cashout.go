// internal/cashout/cashout.go
//
// Package cashout manages withdrawal requests. The amount leaves the
// player's balance the moment the request is created, so a pending
// cashout can never be double-spent on a wager. Cancelling refunds it.
package cashout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/duelhouse/wager-service/internal/ledger"
	"github.com/duelhouse/wager-service/internal/models"
)

var (
	ErrAmountInvalid = errors.New("cashout amount must be positive")
	ErrNotFound      = errors.New("cashout request not found")
	ErrNotPending    = errors.New("cashout request is not pending")
)

// Store holds cashout requests in memory. Money flows through the ledger,
// so the balance invariant holds across restarts of the request queue.
type Store struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.CashoutRequest
	ledger   ledger.Ledger
	log      *logrus.Logger
}

func NewStore(led ledger.Ledger, log *logrus.Logger) *Store {
	return &Store{
		requests: make(map[uuid.UUID]*models.CashoutRequest),
		ledger:   led,
		log:      log,
	}
}

// Create debits amount from the user and files a pending request.
func (s *Store) Create(ctx context.Context, userID int64, amount float64) (*models.CashoutRequest, error) {
	if amount <= 0 {
		return nil, ErrAmountInvalid
	}
	if _, err := s.ledger.Debit(ctx, userID, amount); err != nil {
		return nil, fmt.Errorf("failed to reserve cashout amount: %w", err)
	}

	req := &models.CashoutRequest{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Status:    models.CashoutPending,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.requests[req.ID] = req
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"cashout_id": req.ID,
		"user_id":    userID,
		"amount":     amount,
	}).Info("cashout requested")

	cp := *req
	return &cp, nil
}

// UserRequests returns the user's requests, newest first.
func (s *Store) UserRequests(ctx context.Context, userID int64) []models.CashoutRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CashoutRequest
	for _, r := range s.requests {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Pending returns all pending requests, oldest first, for the admin queue.
func (s *Store) Pending(ctx context.Context) []models.CashoutRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CashoutRequest
	for _, r := range s.requests {
		if r.Status == models.CashoutPending {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// MarkProcessed finalizes a payout. The money already left the balance at
// Create time, so this is a status flip only.
func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID) (*models.CashoutRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != models.CashoutPending {
		return nil, ErrNotPending
	}
	now := time.Now()
	r.Status = models.CashoutProcessed
	r.ProcessedAt = &now

	s.log.WithFields(logrus.Fields{
		"cashout_id": r.ID,
		"user_id":    r.UserID,
		"amount":     r.Amount,
	}).Info("cashout processed")

	cp := *r
	return &cp, nil
}

// Cancel refunds the reserved amount and closes the request.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID) (*models.CashoutRequest, error) {
	s.mu.Lock()
	r, ok := s.requests[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if r.Status != models.CashoutPending {
		s.mu.Unlock()
		return nil, ErrNotPending
	}
	now := time.Now()
	r.Status = models.CashoutCancelled
	r.ProcessedAt = &now
	cp := *r
	s.mu.Unlock()

	if _, err := s.ledger.Credit(ctx, r.UserID, r.Amount); err != nil {
		// The status already flipped; surface the refund failure loudly.
		s.log.WithFields(logrus.Fields{
			"cashout_id": r.ID,
			"user_id":    r.UserID,
			"amount":     r.Amount,
		}).WithError(err).Error("cashout cancelled but refund failed")
		return nil, fmt.Errorf("failed to refund cancelled cashout: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"cashout_id": r.ID,
		"user_id":    r.UserID,
		"amount":     r.Amount,
	}).Info("cashout cancelled and refunded")

	return &cp, nil
}
