// internal/rematch/rematch.go
package rematch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/duelhouse/wager-service/internal/game"
	"github.com/duelhouse/wager-service/internal/ledger"
	"github.com/duelhouse/wager-service/internal/notify"
	"github.com/duelhouse/wager-service/internal/room"
)

var (
	// ErrSelfRematch rejects a rematch request against yourself.
	ErrSelfRematch = errors.New("cannot request a rematch against yourself")
	// ErrNoFinishedMatch rejects a rematch for a pairing that has no
	// just-finished match behind it. Without this gate any two accounts
	// could spawn a pre-funded room from nothing.
	ErrNoFinishedMatch = errors.New("no finished match for this pairing")
)

// State tells the requester what their press did.
type State string

const (
	// StateWaiting: first request for this pairing, waiting for the other side.
	StateWaiting State = "waiting"
	// StateAlreadyWaiting: duplicate press by the same requester, no change.
	StateAlreadyWaiting State = "already_waiting"
	// StatePaired: both sides agreed; Room carries the fresh match.
	StatePaired State = "paired"
)

// Reply is the outcome of one Request call. Room is set only for StatePaired.
type Reply struct {
	State State      `json:"state"`
	Room  *room.Room `json:"-"`
}

// Request is one outstanding rematch intent, keyed by the unordered pairing.
type Request struct {
	RequesterID int64
	OpponentID  int64
	Kind        game.Kind
	Stake       float64
	CreatedAt   time.Time
}

// PairKey is the order-independent identity of a pairing: the two player
// ids sorted, plus game kind and stake. At most one outstanding request
// exists per key.
func PairKey(a, b int64, kind game.Kind, stake float64) string {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("%d_%d_%s_%g", lo, hi, kind, stake)
}

// Coordinator runs the two-phase rematch handshake. The first press parks a
// request; the matching press from the other party consumes it and spawns a
// pre-funded room. No stake is re-debited: the pair's funds were checked
// fresh on each press and the session is treated as already escrowed.
//
// A rematch is only offered off the back of a real match. The engine calls
// RecordFinished at settlement, and Request refuses pairings (including a
// changed kind or stake) that no finished match vouches for. Pairing
// consumes the entitlement; the rematch itself settles and records anew.
type Coordinator struct {
	mu       sync.Mutex
	pending  map[string]*Request
	eligible map[string]struct{}

	registry *room.Registry
	ledger   ledger.Ledger
	notifier notify.Notifier
	log      *logrus.Logger
}

// NewCoordinator wires a coordinator against the shared registry and ledger.
func NewCoordinator(registry *room.Registry, led ledger.Ledger, notifier notify.Notifier, log *logrus.Logger) *Coordinator {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Coordinator{
		pending:  make(map[string]*Request),
		eligible: make(map[string]struct{}),
		registry: registry,
		ledger:   led,
		notifier: notifier,
		log:      log,
	}
}

// RecordFinished marks a settled pairing as entitled to one rematch. The
// engine calls it after every settlement, draws included.
func (c *Coordinator) RecordFinished(a, b int64, kind game.Kind, stake float64) {
	key := PairKey(a, b, kind, stake)
	c.mu.Lock()
	c.eligible[key] = struct{}{}
	c.mu.Unlock()
}

// Request handles one rematch press. The balance check is fresh on every
// call; an insufficient balance fails with no state change on either side.
func (c *Coordinator) Request(ctx context.Context, requesterID, opponentID int64, kind game.Kind, stake float64) (Reply, error) {
	if requesterID == opponentID {
		return Reply{}, ErrSelfRematch
	}
	balance, err := c.ledger.Balance(ctx, requesterID)
	if err != nil {
		return Reply{}, err
	}
	if balance < stake {
		return Reply{}, ledger.ErrInsufficientFunds
	}

	key := PairKey(requesterID, opponentID, kind, stake)

	c.mu.Lock()
	if _, entitled := c.eligible[key]; !entitled {
		c.mu.Unlock()
		return Reply{}, ErrNoFinishedMatch
	}
	existing, ok := c.pending[key]
	if ok && existing.RequesterID == requesterID {
		c.mu.Unlock()
		return Reply{State: StateAlreadyWaiting}, nil
	}
	if ok {
		delete(c.pending, key)
		delete(c.eligible, key)
		// The first requester becomes the creator of the new room.
		r := c.registry.CreateRematch(existing.RequesterID, requesterID, kind, stake)
		c.mu.Unlock()

		c.log.WithFields(logrus.Fields{
			"room":  r.ID,
			"key":   key,
			"stake": stake,
		}).Info("rematch paired")
		text := fmt.Sprintf("Rematch on! Room %s, stake %.2f.", r.ID, stake)
		c.notifier.Notify(existing.RequesterID, text)
		c.notifier.Notify(requesterID, text)
		return Reply{State: StatePaired, Room: r}, nil
	}

	c.pending[key] = &Request{
		RequesterID: requesterID,
		OpponentID:  opponentID,
		Kind:        kind,
		Stake:       stake,
		CreatedAt:   time.Now(),
	}
	c.mu.Unlock()

	c.notifier.Notify(opponentID, fmt.Sprintf("Your opponent wants a rematch (%s, stake %.2f). Press rematch to accept.", kind, stake))
	return Reply{State: StateWaiting}, nil
}

// PendingCount reports outstanding requests, for monitoring and tests.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
