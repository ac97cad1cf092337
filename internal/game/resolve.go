// internal/game/resolve.go
package game

import (
	"errors"
	"fmt"
)

// Kind identifies one of the supported head-to-head games. The set is closed:
// adding a game means adding a resolver case to Resolve.
type Kind string

const (
	// KindHighDie is the 1v1 die roll: both players roll, strictly higher wins.
	KindHighDie Kind = "dice"
	// KindCoinPick is the 1v1 coin flip: the creator picks a side, the
	// opponent is assigned the complement, one flip decides.
	KindCoinPick Kind = "coinflip"
)

// ParseKind validates a client-supplied game kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindHighDie, KindCoinPick:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Side is a coin side for KindCoinPick.
type Side string

const (
	SideHeads Side = "heads"
	SideTails Side = "tails"
)

// Opposite returns the complementary coin side.
func (s Side) Opposite() Side {
	if s == SideHeads {
		return SideTails
	}
	return SideHeads
}

// ParseSide validates a client-supplied coin side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideHeads, SideTails:
		return Side(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
}

var (
	ErrUnknownKind = errors.New("unknown game kind")
	ErrUnknownSide = errors.New("unknown coin side")

	// ErrChoiceRequired means a coin-pick match was resolved before the
	// creator picked a side.
	ErrChoiceRequired = errors.New("creator must pick a side before play")

	// ErrNoWinner means a coin-pick resolution produced neither winner. The
	// two sides are complementary, so this is a correctness bug, not a draw.
	ErrNoWinner = errors.New("coin-pick resolved without a winner")
)

// Source supplies the randomness for a resolution. *rand.Rand satisfies it;
// tests inject scripted sources to force exact rolls and flips.
type Source interface {
	Intn(n int) int
}

// Result is the full outcome of a resolved match. WinnerID is zero on a
// draw (HighDie only). Money movement is the caller's job: resolvers never
// touch balances.
type Result struct {
	Kind         Kind   `json:"kind"`
	WinnerID     int64  `json:"winner_id,omitempty"`
	Draw         bool   `json:"draw"`
	CreatorRoll  int    `json:"creator_roll,omitempty"`
	OpponentRoll int    `json:"opponent_roll,omitempty"`
	Flip         Side   `json:"flip,omitempty"`
	CreatorSide  Side   `json:"creator_side,omitempty"`
	OpponentSide Side   `json:"opponent_side,omitempty"`
}

// Resolve dispatches to the resolver for kind. choice is only consulted for
// KindCoinPick and must be set by then.
func Resolve(kind Kind, creatorID, opponentID int64, choice Side, src Source) (Result, error) {
	switch kind {
	case KindHighDie:
		return ResolveHighDie(creatorID, opponentID, src), nil
	case KindCoinPick:
		return ResolveCoinPick(creatorID, opponentID, choice, src)
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// ResolveHighDie rolls one die per player. Equal rolls are a draw.
func ResolveHighDie(creatorID, opponentID int64, src Source) Result {
	res := Result{
		Kind:         KindHighDie,
		CreatorRoll:  src.Intn(6) + 1,
		OpponentRoll: src.Intn(6) + 1,
	}
	switch {
	case res.CreatorRoll > res.OpponentRoll:
		res.WinnerID = creatorID
	case res.OpponentRoll > res.CreatorRoll:
		res.WinnerID = opponentID
	default:
		res.Draw = true
	}
	return res
}

// ResolveCoinPick flips one coin. The creator holds choice, the opponent the
// complement, so exactly one of them matches the flip.
func ResolveCoinPick(creatorID, opponentID int64, choice Side, src Source) (Result, error) {
	if choice != SideHeads && choice != SideTails {
		return Result{}, ErrChoiceRequired
	}

	flip := SideHeads
	if src.Intn(2) == 1 {
		flip = SideTails
	}

	res := Result{
		Kind:         KindCoinPick,
		Flip:         flip,
		CreatorSide:  choice,
		OpponentSide: choice.Opposite(),
	}
	switch flip {
	case res.CreatorSide:
		res.WinnerID = creatorID
	case res.OpponentSide:
		res.WinnerID = opponentID
	default:
		return Result{}, ErrNoWinner
	}
	return res, nil
}
