// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/duelhouse/wager-service/internal/game"
)

// Account is a player's balance record plus lifetime aggregates.
type Account struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Password       string    `json:"-"` // argon2id hash, never serialized
	Balance        float64   `json:"balance"`
	TotalDeposited float64   `json:"total_deposited"`
	TotalWagered   float64   `json:"total_wagered"`
	TotalWon       float64   `json:"total_won"`
	TotalLost      float64   `json:"total_lost"`
	GamesPlayed    int       `json:"games_played"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
}

// MatchOutcome is the per-player result string recorded in history.
type MatchOutcome string

const (
	OutcomeWin  MatchOutcome = "win"
	OutcomeLoss MatchOutcome = "loss"
	OutcomeDraw MatchOutcome = "draw"
)

// MatchRecord is one entry in a player's game history. WinAmount is what was
// actually credited: the post-fee prize on a win, the refunded stake on a
// draw, zero on a loss.
type MatchRecord struct {
	ID        uuid.UUID    `json:"id"`
	UserID    int64        `json:"user_id"`
	Kind      game.Kind    `json:"kind"`
	Stake     float64      `json:"stake"`
	WinAmount float64      `json:"win_amount"`
	Outcome   MatchOutcome `json:"outcome"`
	PlayedAt  time.Time    `json:"played_at"`
}

// Profit is the net balance change the match caused for this player.
func (r MatchRecord) Profit() float64 {
	return r.WinAmount - r.Stake
}

// CashoutStatus tracks a withdrawal request's lifecycle.
type CashoutStatus string

const (
	CashoutPending   CashoutStatus = "pending"
	CashoutProcessed CashoutStatus = "processed"
	CashoutCancelled CashoutStatus = "cancelled"
)

// CashoutRequest is a pending withdrawal. The amount is debited from the
// balance when the request is created and refunded if it is cancelled.
type CashoutRequest struct {
	ID          uuid.UUID     `json:"id"`
	UserID      int64         `json:"user_id"`
	Amount      float64       `json:"amount"`
	Status      CashoutStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
}

// Ban is one access-gate entry.
type Ban struct {
	UserID   int64     `json:"user_id"`
	Reason   string    `json:"reason"`
	BannedBy int64     `json:"banned_by"`
	BannedAt time.Time `json:"banned_at"`
}
