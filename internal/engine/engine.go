// internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/duelhouse/wager-service/internal/cache"
	"github.com/duelhouse/wager-service/internal/config"
	"github.com/duelhouse/wager-service/internal/game"
	"github.com/duelhouse/wager-service/internal/ledger"
	"github.com/duelhouse/wager-service/internal/models"
	"github.com/duelhouse/wager-service/internal/notify"
	"github.com/duelhouse/wager-service/internal/room"
)

var (
	// ErrStakeOutOfBounds rejects a create outside [MinBet, MaxBet].
	ErrStakeOutOfBounds = errors.New("stake outside allowed bet range")
	// ErrRoomNotFound reports an unknown room id. A normal user-facing
	// condition, not a fault.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotParticipant means the caller is not seated in the room.
	ErrNotParticipant = errors.New("not a participant of this room")
)

// Settlement describes the money movement a finished match produced.
type Settlement struct {
	Pot          float64 `json:"pot"`
	HouseFee     float64 `json:"house_fee"`
	WinnerPayout float64 `json:"winner_payout"`
	Draw         bool    `json:"draw"`
}

// PublishFunc pushes a settled-match record to the historian queue.
type PublishFunc func(context.Context, cache.SettledMatchRecord) error

// Engine drives the escrow/settle sequence around the room registry: stake
// debits on create and join, refunds on cancel and draw, the winner payout
// with the house fee, history records, and post-settlement cleanup.
//
// The sequencing invariant: money moves first, the room is deleted last. A
// crash in between leaves a Finished room in the registry, which is the
// detectable signal for manual reconciliation.
type Engine struct {
	cfg      config.Config
	registry *room.Registry
	ledger   ledger.Ledger
	notifier notify.Notifier
	src      game.Source
	log      *logrus.Logger

	// Publish is optional; nil skips the historian queue.
	Publish PublishFunc

	// OnSettled is optional; it runs after a successful settlement. The
	// rematch coordinator hangs off it to mark the pairing rematch-eligible.
	OnSettled func(creatorID, opponentID int64, kind game.Kind, stake float64)
}

// New wires an engine. src is the randomness for resolutions; tests inject
// scripted sources.
func New(cfg config.Config, registry *room.Registry, led ledger.Ledger, notifier notify.Notifier, src game.Source, log *logrus.Logger) *Engine {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		cfg:      cfg,
		registry: registry,
		ledger:   led,
		notifier: notifier,
		src:      src,
		log:      log,
	}
}

// Registry exposes the room directory for read paths (listing, lookup).
func (e *Engine) Registry() *room.Registry {
	return e.registry
}

// CreateRoom escrows the creator's stake and opens a Waiting room. The debit
// happens before the room exists, so a failed debit leaves nothing behind.
func (e *Engine) CreateRoom(ctx context.Context, creatorID int64, kind game.Kind, stake float64) (*room.Room, error) {
	if !e.cfg.StakeInBounds(stake) {
		return nil, fmt.Errorf("%w: %.2f not in [%.2f, %.2f]", ErrStakeOutOfBounds, stake, e.cfg.MinBet, e.cfg.MaxBet)
	}
	if _, err := e.ledger.Debit(ctx, creatorID, stake); err != nil {
		return nil, err
	}
	r := e.registry.Create(creatorID, kind, stake)
	return r, nil
}

// JoinRoom escrows the joiner's stake and seats them. The room lock covers
// admission check, debit, and transition, so two racing joiners cannot both
// debit, and a join cannot interleave with a cancel.
func (e *Engine) JoinRoom(ctx context.Context, roomID string, userID int64) (*room.Room, error) {
	r, ok := e.registry.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if userID == r.CreatorID {
		return nil, room.ErrSelfJoin
	}
	if r.StatusUnsafe() != room.StatusWaiting {
		return nil, room.ErrNotWaiting
	}
	if !r.Prefunded {
		if _, err := e.ledger.Debit(ctx, userID, r.Stake); err != nil {
			return nil, err
		}
	}
	if err := r.JoinUnsafe(userID); err != nil {
		// Unreachable given the checks above; refund rather than strand the stake.
		if !r.Prefunded {
			if _, cerr := e.ledger.Credit(ctx, userID, r.Stake); cerr != nil {
				e.log.WithError(cerr).WithField("user", userID).Error("refund after failed join did not apply")
			}
		}
		return nil, err
	}

	e.notifier.Notify(r.CreatorID, fmt.Sprintf("An opponent joined room %s. The game is starting.", r.ID))
	return r, nil
}

// CancelRoom refunds the creator and retires a still-Waiting room. Cancel
// and join race on the room lock; whoever wins it decides. The loser of a
// cancel sees either the room gone from the registry or, through a pointer
// fetched before the delete, a Cancelled room that refuses the join, so a
// late joiner is never debited into a dead room.
func (e *Engine) CancelRoom(ctx context.Context, roomID string, userID int64) error {
	r, ok := e.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if userID != r.CreatorID {
		return room.ErrNotCreator
	}
	if err := r.CancelUnsafe(); err != nil {
		return err
	}
	if !r.Prefunded {
		if _, err := e.ledger.Credit(ctx, r.CreatorID, r.Stake); err != nil {
			// The Cancelled room stays in the registry as the
			// reconciliation marker for the unrefunded stake.
			return fmt.Errorf("refund on cancel failed: %w", err)
		}
	}
	e.registry.Delete(r.ID)
	return nil
}

// SetChoice records the creator's coin side for a coin-pick room.
func (e *Engine) SetChoice(ctx context.Context, roomID string, userID int64, side game.Side) error {
	r, ok := e.registry.Get(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return r.SetCreatorChoice(userID, side)
}

// Play resolves the match and settles it: winner credit (full pot minus the
// house fee), or both stakes refunded on a draw. The room is removed from
// the registry only after every ledger write applied, and a second Play on
// the same room fails before any money moves.
func (e *Engine) Play(ctx context.Context, roomID string, userID int64) (game.Result, Settlement, error) {
	r, ok := e.registry.Get(roomID)
	if !ok {
		return game.Result{}, Settlement{}, ErrRoomNotFound
	}
	if !r.HasParticipant(userID) {
		return game.Result{}, Settlement{}, ErrNotParticipant
	}

	res, err := r.Play(e.src)
	if err != nil {
		return game.Result{}, Settlement{}, err
	}

	settlement, err := e.settle(ctx, r, res)
	if err != nil {
		// Money may be partially applied; the Finished room stays in the
		// registry as the reconciliation marker.
		e.log.WithError(err).WithField("room", r.ID).Error("settlement incomplete, room kept for reconciliation")
		return res, settlement, err
	}

	e.registry.Delete(r.ID)
	if e.OnSettled != nil {
		e.OnSettled(r.CreatorID, r.OpponentID, r.Kind, r.Stake)
	}
	e.announce(r, res, settlement)
	e.publishResult(ctx, r, res, settlement)
	return res, settlement, nil
}

// settle applies the payout contract for one resolved room.
func (e *Engine) settle(ctx context.Context, r *room.Room, res game.Result) (Settlement, error) {
	if res.Draw {
		s := Settlement{Pot: r.Stake * 2, Draw: true}
		if _, err := e.ledger.Credit(ctx, r.CreatorID, r.Stake); err != nil {
			return s, fmt.Errorf("draw refund for creator: %w", err)
		}
		if _, err := e.ledger.Credit(ctx, r.OpponentID, r.Stake); err != nil {
			return s, fmt.Errorf("draw refund for opponent: %w", err)
		}
		if err := e.appendHistory(ctx, r.CreatorID, r, r.Stake, models.OutcomeDraw); err != nil {
			return s, err
		}
		if err := e.appendHistory(ctx, r.OpponentID, r, r.Stake, models.OutcomeDraw); err != nil {
			return s, err
		}
		return s, nil
	}

	pot := r.Stake * 2
	fee := pot * (e.cfg.HouseFeePercent / 100)
	prize := pot - fee
	s := Settlement{Pot: pot, HouseFee: fee, WinnerPayout: prize}

	loserID := r.CreatorID
	if res.WinnerID == r.CreatorID {
		loserID = r.OpponentID
	}

	if _, err := e.ledger.Credit(ctx, res.WinnerID, prize); err != nil {
		return s, fmt.Errorf("winner credit: %w", err)
	}
	if err := e.appendHistory(ctx, res.WinnerID, r, prize, models.OutcomeWin); err != nil {
		return s, err
	}
	if err := e.appendHistory(ctx, loserID, r, 0, models.OutcomeLoss); err != nil {
		return s, err
	}
	return s, nil
}

func (e *Engine) appendHistory(ctx context.Context, userID int64, r *room.Room, winAmount float64, outcome models.MatchOutcome) error {
	err := e.ledger.AppendHistory(ctx, models.MatchRecord{
		UserID:    userID,
		Kind:      r.Kind,
		Stake:     r.Stake,
		WinAmount: winAmount,
		Outcome:   outcome,
	})
	if err != nil {
		return fmt.Errorf("history for user %d: %w", userID, err)
	}
	return nil
}

func (e *Engine) announce(r *room.Room, res game.Result, s Settlement) {
	if res.Draw {
		text := fmt.Sprintf("Room %s ended in a draw. Your stake of %.2f was refunded.", r.ID, r.Stake)
		e.notifier.Notify(r.CreatorID, text)
		e.notifier.Notify(r.OpponentID, text)
		return
	}
	loserID := r.CreatorID
	if res.WinnerID == r.CreatorID {
		loserID = r.OpponentID
	}
	e.notifier.Notify(res.WinnerID, fmt.Sprintf("You won room %s! Payout: %.2f (house fee %.2f).", r.ID, s.WinnerPayout, s.HouseFee))
	e.notifier.Notify(loserID, fmt.Sprintf("You lost room %s. Better luck in the rematch.", r.ID))
}

func (e *Engine) publishResult(ctx context.Context, r *room.Room, res game.Result, s Settlement) {
	if e.Publish == nil {
		return
	}
	rec := cache.SettledMatchRecord{
		RoomID:       r.ID,
		Kind:         r.Kind,
		Stake:        r.Stake,
		CreatorID:    r.CreatorID,
		OpponentID:   r.OpponentID,
		WinnerID:     res.WinnerID,
		Draw:         res.Draw,
		WinnerPayout: s.WinnerPayout,
		HouseFee:     s.HouseFee,
		Rematch:      r.Prefunded,
	}
	if err := e.Publish(ctx, rec); err != nil {
		e.log.WithError(err).WithField("room", r.ID).Warn("failed to publish settled match")
	}
}
