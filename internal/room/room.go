// internal/room/room.go
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/duelhouse/wager-service/internal/game"
)

// Status is the room lifecycle state. Transitions are one-directional:
// Waiting -> Playing -> Finished, or Waiting -> Cancelled.
type Status int

const (
	StatusWaiting Status = iota
	StatusPlaying
	StatusFinished
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPlaying:
		return "playing"
	case StatusFinished:
		return "finished"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

var (
	// ErrSelfJoin means a creator tried to join their own room.
	ErrSelfJoin = errors.New("cannot join your own room")
	// ErrNotWaiting means a join hit a room that already has an opponent
	// or is finished.
	ErrNotWaiting = errors.New("room is not waiting for an opponent")
	// ErrNotPlaying means play or a choice was attempted outside Playing.
	// Surfacing this (instead of a silent no-op) is what keeps a retried
	// play from settling twice.
	ErrNotPlaying = errors.New("room is not in play")
	// ErrNotCreator means someone other than the creator tried to pick the
	// coin side.
	ErrNotCreator = errors.New("only the room creator picks a side")
	// ErrChoiceSet means the creator tried to pick a side twice.
	ErrChoiceSet = errors.New("side already picked")
	// ErrChoiceForDieGame means a side pick was sent to a die room.
	ErrChoiceForDieGame = errors.New("this game has no side to pick")
)

// Room is one head-to-head match: two participants, an equal stake, and a
// bound game kind. Compound flows that interleave ledger calls with state
// transitions (join+debit, cancel+refund) lock Mu themselves and use the
// ...Unsafe methods; the exported wrappers lock per call.
type Room struct {
	ID         string
	CreatorID  int64
	OpponentID int64 // zero until joined
	Stake      float64
	Kind       game.Kind
	CreatedAt  time.Time

	// Prefunded marks a rematch room: both stakes were escrowed by the
	// previous match, so create/join must not debit again.
	Prefunded bool

	Mu sync.Mutex

	status        Status
	creatorChoice game.Side
	result        *game.Result
}

// New constructs a Waiting room. Stake bounds are validated by the caller;
// the room only records the agreed amount.
func New(id string, creatorID int64, kind game.Kind, stake float64) *Room {
	return &Room{
		ID:        id,
		CreatorID: creatorID,
		Stake:     stake,
		Kind:      kind,
		CreatedAt: time.Now(),
		status:    StatusWaiting,
	}
}

// Status returns the current lifecycle state.
func (r *Room) Status() Status {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.status
}

// StatusUnsafe reads the state. Assumes Mu is held.
func (r *Room) StatusUnsafe() Status {
	return r.status
}

// Join seats the opponent and moves the room to Playing.
func (r *Room) Join(opponentID int64) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.JoinUnsafe(opponentID)
}

// JoinUnsafe is the join transition. Assumes Mu is held.
func (r *Room) JoinUnsafe(opponentID int64) error {
	if opponentID == r.CreatorID {
		return ErrSelfJoin
	}
	if r.status != StatusWaiting {
		return ErrNotWaiting
	}
	r.OpponentID = opponentID
	r.status = StatusPlaying
	return nil
}

// Cancel retires a still-Waiting room.
func (r *Room) Cancel() error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.CancelUnsafe()
}

// CancelUnsafe moves the room to Cancelled. The terminal state matters: a
// joiner that looked the room up just before the cancel still holds a live
// pointer, and must see a non-Waiting room when it finally gets the lock.
// Assumes Mu is held.
func (r *Room) CancelUnsafe() error {
	if r.status != StatusWaiting {
		return ErrNotWaiting
	}
	r.status = StatusCancelled
	return nil
}

// SetCreatorChoice records the creator's coin side. Valid only while
// Playing, only for coin-pick rooms, only by the creator, and only once.
func (r *Room) SetCreatorChoice(userID int64, choice game.Side) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.SetCreatorChoiceUnsafe(userID, choice)
}

// SetCreatorChoiceUnsafe records the coin side. Assumes Mu is held.
func (r *Room) SetCreatorChoiceUnsafe(userID int64, choice game.Side) error {
	if r.Kind != game.KindCoinPick {
		return ErrChoiceForDieGame
	}
	if userID != r.CreatorID {
		return ErrNotCreator
	}
	if r.status != StatusPlaying {
		return ErrNotPlaying
	}
	if r.creatorChoice != "" {
		return ErrChoiceSet
	}
	r.creatorChoice = choice
	return nil
}

// CreatorChoice returns the recorded coin side, empty if not yet picked.
func (r *Room) CreatorChoice() game.Side {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.creatorChoice
}

// Play resolves the match and moves the room to Finished. It runs at most
// once per room: a second call fails with ErrNotPlaying and mutates nothing.
func (r *Room) Play(src game.Source) (game.Result, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.PlayUnsafe(src)
}

// PlayUnsafe resolves the match. Assumes Mu is held.
func (r *Room) PlayUnsafe(src game.Source) (game.Result, error) {
	if r.status != StatusPlaying {
		return game.Result{}, ErrNotPlaying
	}
	res, err := game.Resolve(r.Kind, r.CreatorID, r.OpponentID, r.creatorChoice, src)
	if err != nil {
		// The room stays Playing so the caller can retry after fixing the
		// precondition (e.g. coin-pick without a side picked yet).
		return game.Result{}, err
	}
	r.result = &res
	r.status = StatusFinished
	return res, nil
}

// Result returns the recorded outcome, nil while unfinished.
func (r *Room) Result() *game.Result {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.result
}

// HasParticipant reports whether userID is seated in this room.
func (r *Room) HasParticipant(userID int64) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return userID == r.CreatorID || (r.OpponentID != 0 && userID == r.OpponentID)
}

// View is the JSON shape of a room for API responses.
type View struct {
	ID         string    `json:"id"`
	CreatorID  int64     `json:"creator_id"`
	OpponentID int64     `json:"opponent_id,omitempty"`
	Stake      float64   `json:"stake"`
	Kind       game.Kind `json:"kind"`
	Status     string    `json:"status"`
	Rematch    bool      `json:"rematch,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// View snapshots the room for serialization.
func (r *Room) View() View {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return View{
		ID:         r.ID,
		CreatorID:  r.CreatorID,
		OpponentID: r.OpponentID,
		Stake:      r.Stake,
		Kind:       r.Kind,
		Status:     r.status.String(),
		Rematch:    r.Prefunded,
		CreatedAt:  r.CreatedAt,
	}
}
