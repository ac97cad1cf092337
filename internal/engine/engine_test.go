// internal/engine/engine_test.go
package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duelhouse/wager-service/internal/cache"
	"github.com/duelhouse/wager-service/internal/config"
	"github.com/duelhouse/wager-service/internal/game"
	"github.com/duelhouse/wager-service/internal/ledger"
	"github.com/duelhouse/wager-service/internal/models"
	"github.com/duelhouse/wager-service/internal/room"
)

// scriptedSource feeds predetermined Intn results so rolls and flips are exact.
type scriptedSource struct {
	mu     sync.Mutex
	values []int
	pos    int
}

func (s *scriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.pos] % n
	s.pos++
	return v
}

// recordingNotifier collects messages per user.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs map[int64][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{msgs: make(map[int64][]string)}
}

func (n *recordingNotifier) Notify(userID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs[userID] = append(n.msgs[userID], text)
}

func (n *recordingNotifier) count(userID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs[userID])
}

func testConfig() config.Config {
	return config.Config{
		MinBet:          1,
		MaxBet:          1000,
		HouseFeePercent: 5,
		StartingBalance: 100,
	}
}

func newTestEngine(t *testing.T, src game.Source) (*Engine, *ledger.MemoryLedger, *recordingNotifier) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	led := ledger.NewMemoryLedger()
	led.Fund(1, "alice", 100)
	led.Fund(2, "bob", 100)

	notif := newRecordingNotifier()
	reg := room.NewRegistry(log)
	return New(testConfig(), reg, led, notif, src, log), led, notif
}

func dieSource(faces ...int) *scriptedSource {
	vals := make([]int, len(faces))
	for i, f := range faces {
		vals[i] = f - 1
	}
	return &scriptedSource{values: vals}
}

func TestCreateRoomDebitsStake(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newTestEngine(t, dieSource(1, 1))

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)
	assert.Equal(t, room.StatusWaiting, r.Status())

	bal, _ := led.Balance(ctx, 1)
	assert.Equal(t, 90.0, bal)
}

func TestCreateRoomRejectsOutOfBoundsStake(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newTestEngine(t, dieSource(1, 1))

	_, err := e.CreateRoom(ctx, 1, game.KindHighDie, 0.5)
	assert.ErrorIs(t, err, ErrStakeOutOfBounds)
	_, err = e.CreateRoom(ctx, 1, game.KindHighDie, 5000)
	assert.ErrorIs(t, err, ErrStakeOutOfBounds)

	bal, _ := led.Balance(ctx, 1)
	assert.Equal(t, 100.0, bal, "no debit on rejected create")
	assert.Equal(t, 0, e.Registry().Len())
}

func TestCreateRoomInsufficientFundsLeavesNoRoom(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, dieSource(1, 1))

	_, err := e.CreateRoom(ctx, 1, game.KindHighDie, 500)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, 0, e.Registry().Len(), "no orphan waiting room")
}

func TestJoinDebitsAndSeats(t *testing.T) {
	ctx := context.Background()
	e, led, notif := newTestEngine(t, dieSource(1, 1))

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)

	joined, err := e.JoinRoom(ctx, r.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, room.StatusPlaying, joined.Status())

	bal, _ := led.Balance(ctx, 2)
	assert.Equal(t, 90.0, bal)
	assert.Equal(t, 1, notif.count(1), "creator told their opponent arrived")
}

func TestJoinFailuresLeaveNoPartialState(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newTestEngine(t, dieSource(1, 1))
	led.Fund(3, "carol", 2) // cannot cover a 10 stake

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)

	_, err = e.JoinRoom(ctx, "ROOM9999", 2)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = e.JoinRoom(ctx, r.ID, 1)
	assert.ErrorIs(t, err, room.ErrSelfJoin)

	_, err = e.JoinRoom(ctx, r.ID, 3)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, room.StatusWaiting, r.Status(), "failed debit must not seat the joiner")
	bal, _ := led.Balance(ctx, 3)
	assert.Equal(t, 2.0, bal)

	_, err = e.JoinRoom(ctx, r.ID, 2)
	require.NoError(t, err)
	_, err = e.JoinRoom(ctx, r.ID, 3)
	assert.ErrorIs(t, err, room.ErrNotWaiting)
}

// Scenario: HighDie, stake 10, rolls (6,3), fee 5% => winner credit 19.0.
func TestPlayHighDieWinnerPayout(t *testing.T) {
	ctx := context.Background()
	e, led, notif := newTestEngine(t, dieSource(6, 3))

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)
	_, err = e.JoinRoom(ctx, r.ID, 2)
	require.NoError(t, err)

	res, s, err := e.Play(ctx, r.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.WinnerID)
	assert.False(t, res.Draw)
	assert.Equal(t, 20.0, s.Pot)
	assert.Equal(t, 1.0, s.HouseFee)
	assert.Equal(t, 19.0, s.WinnerPayout)

	balWinner, _ := led.Balance(ctx, 1)
	balLoser, _ := led.Balance(ctx, 2)
	assert.Equal(t, 109.0, balWinner) // 100 - 10 + 19
	assert.Equal(t, 90.0, balLoser)   // 100 - 10

	_, ok := e.Registry().Get(r.ID)
	assert.False(t, ok, "settled room removed from registry")
	assert.GreaterOrEqual(t, notif.count(1), 2)
	assert.GreaterOrEqual(t, notif.count(2), 1)

	recs, _ := led.RecentMatches(ctx, 1, 5)
	require.Len(t, recs, 1)
	assert.Equal(t, models.OutcomeWin, recs[0].Outcome)
	assert.Equal(t, 19.0, recs[0].WinAmount)

	recs, _ = led.RecentMatches(ctx, 2, 5)
	require.Len(t, recs, 1)
	assert.Equal(t, models.OutcomeLoss, recs[0].Outcome)
	assert.Equal(t, 0.0, recs[0].WinAmount)
}

// Scenario: CoinPick, stake 20, creator picks heads, flip tails => opponent
// wins 38.0 with the 5% fee.
func TestPlayCoinPickOpponentWins(t *testing.T) {
	ctx := context.Background()
	src := &scriptedSource{values: []int{1}} // Intn(2)=1 => tails
	e, led, _ := newTestEngine(t, src)

	r, err := e.CreateRoom(ctx, 1, game.KindCoinPick, 20)
	require.NoError(t, err)
	_, err = e.JoinRoom(ctx, r.ID, 2)
	require.NoError(t, err)

	require.NoError(t, e.SetChoice(ctx, r.ID, 1, game.SideHeads))

	res, s, err := e.Play(ctx, r.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.WinnerID)
	assert.Equal(t, game.SideTails, res.Flip)
	assert.Equal(t, game.SideTails, res.OpponentSide)
	assert.Equal(t, 38.0, s.WinnerPayout)

	balCreator, _ := led.Balance(ctx, 1)
	balOpponent, _ := led.Balance(ctx, 2)
	assert.Equal(t, 80.0, balCreator)   // 100 - 20
	assert.Equal(t, 118.0, balOpponent) // 100 - 20 + 38
}

// Scenario: HighDie rolls (4,4) => draw, both stakes refunded, no fee.
func TestPlayDrawRefundsBoth(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newTestEngine(t, dieSource(4, 4))

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)
	_, err = e.JoinRoom(ctx, r.ID, 2)
	require.NoError(t, err)

	res, s, err := e.Play(ctx, r.ID, 1)
	require.NoError(t, err)
	assert.True(t, res.Draw)
	assert.True(t, s.Draw)
	assert.Zero(t, s.WinnerPayout)

	bal1, _ := led.Balance(ctx, 1)
	bal2, _ := led.Balance(ctx, 2)
	assert.Equal(t, 100.0, bal1)
	assert.Equal(t, 100.0, bal2)

	recs, _ := led.RecentMatches(ctx, 1, 5)
	require.Len(t, recs, 1)
	assert.Equal(t, models.OutcomeDraw, recs[0].Outcome)
	assert.Equal(t, 10.0, recs[0].WinAmount)
}

// Scenario: a second Play on the same room must fail and settle nothing.
func TestPlayTwiceNoDoubleSettlement(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newTestEngine(t, dieSource(6, 3, 6, 3))

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)
	_, err = e.JoinRoom(ctx, r.ID, 2)
	require.NoError(t, err)

	_, _, err = e.Play(ctx, r.ID, 1)
	require.NoError(t, err)

	// The room is already gone from the registry.
	_, _, err = e.Play(ctx, r.ID, 1)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// And even against the raw room instance the state machine refuses.
	_, err = r.Play(dieSource(6, 3))
	assert.ErrorIs(t, err, room.ErrNotPlaying)

	bal, _ := led.Balance(ctx, 1)
	assert.Equal(t, 109.0, bal, "exactly one settlement applied")
}

func TestPlayRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, dieSource(6, 3))

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)
	_, err = e.JoinRoom(ctx, r.ID, 2)
	require.NoError(t, err)

	_, _, err = e.Play(ctx, r.ID, 99)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestCancelRefundsAndDeletes(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newTestEngine(t, dieSource(1, 1))

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)

	assert.ErrorIs(t, e.CancelRoom(ctx, r.ID, 2), room.ErrNotCreator)

	require.NoError(t, e.CancelRoom(ctx, r.ID, 1))
	bal, _ := led.Balance(ctx, 1)
	assert.Equal(t, 100.0, bal)
	_, ok := e.Registry().Get(r.ID)
	assert.False(t, ok)

	assert.ErrorIs(t, e.CancelRoom(ctx, r.ID, 1), ErrRoomNotFound)
}

func TestCancelLosesToJoin(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newTestEngine(t, dieSource(1, 1))

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)
	_, err = e.JoinRoom(ctx, r.ID, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, e.CancelRoom(ctx, r.ID, 1), room.ErrNotWaiting)
	bal, _ := led.Balance(ctx, 1)
	assert.Equal(t, 90.0, bal, "stake stays escrowed once the game started")
}

func TestCancelWinsAgainstLateJoin(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newTestEngine(t, dieSource(1, 1))

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)

	// A joiner can pass the registry lookup just before the cancel deletes
	// the room; from then on it only sees the room through this pointer.
	stale, ok := e.Registry().Get(r.ID)
	require.True(t, ok)

	require.NoError(t, e.CancelRoom(ctx, r.ID, 1))
	assert.Equal(t, room.StatusCancelled, stale.Status())

	// The seat transition the late joiner would run refuses the dead room,
	// and a fresh lookup no longer finds it.
	assert.ErrorIs(t, stale.Join(2), room.ErrNotWaiting)
	_, err = e.JoinRoom(ctx, r.ID, 2)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	bal1, _ := led.Balance(ctx, 1)
	bal2, _ := led.Balance(ctx, 2)
	assert.Equal(t, 100.0, bal1, "creator refunded")
	assert.Equal(t, 100.0, bal2, "late joiner keeps its stake")
}

func TestCancelJoinRaceNeverStrandsStake(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		e, led, _ := newTestEngine(t, dieSource(1, 1))
		r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var joinErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, joinErr = e.JoinRoom(ctx, r.ID, 2)
		}()
		go func() {
			defer wg.Done()
			cancelErr = e.CancelRoom(ctx, r.ID, 1)
		}()
		wg.Wait()

		bal1, _ := led.Balance(ctx, 1)
		bal2, _ := led.Balance(ctx, 2)
		if cancelErr == nil {
			require.Error(t, joinErr, "cancel won, the join must fail")
			assert.Equal(t, 100.0, bal1, "creator refunded")
			assert.Equal(t, 100.0, bal2, "lock loser must not be debited into a dead room")
			_, ok := e.Registry().Get(r.ID)
			assert.False(t, ok)
		} else {
			require.ErrorIs(t, cancelErr, room.ErrNotWaiting)
			require.NoError(t, joinErr, "join won, the cancel must fail")
			assert.Equal(t, 90.0, bal1)
			assert.Equal(t, 90.0, bal2)
			assert.Equal(t, room.StatusPlaying, r.Status())
		}
	}
}

func TestConcurrentJoinersOnlyOneDebited(t *testing.T) {
	ctx := context.Background()
	e, led, _ := newTestEngine(t, dieSource(1, 1))
	for i := int64(3); i <= 12; i++ {
		led.Fund(i, "user", 100)
	}

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []int64
	for i := int64(3); i <= 12; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			if _, err := e.JoinRoom(ctx, r.ID, uid); err == nil {
				mu.Lock()
				winners = append(winners, uid)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1, "one seat, one winner")
	for i := int64(3); i <= 12; i++ {
		bal, _ := led.Balance(ctx, i)
		if i == winners[0] {
			assert.Equal(t, 90.0, bal)
		} else {
			assert.Equal(t, 100.0, bal, "loser of the race must not be debited")
		}
	}
}

func TestPublishCalledAfterSettlement(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t, dieSource(6, 3))

	var published []cache.SettledMatchRecord
	e.Publish = func(_ context.Context, rec cache.SettledMatchRecord) error {
		published = append(published, rec)
		return nil
	}

	r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
	require.NoError(t, err)
	_, err = e.JoinRoom(ctx, r.ID, 2)
	require.NoError(t, err)
	_, _, err = e.Play(ctx, r.ID, 1)
	require.NoError(t, err)

	require.Len(t, published, 1)
	assert.Equal(t, r.ID, published[0].RoomID)
	assert.Equal(t, int64(1), published[0].WinnerID)
	assert.Equal(t, 19.0, published[0].WinnerPayout)
	assert.False(t, published[0].Rematch)
}

func TestOnSettledReportsPairing(t *testing.T) {
	ctx := context.Background()

	type pairing struct {
		creator, opponent int64
		kind              game.Kind
		stake             float64
	}

	play := func(t *testing.T, faces ...int) []pairing {
		t.Helper()
		e, _, _ := newTestEngine(t, dieSource(faces...))
		var settled []pairing
		e.OnSettled = func(creatorID, opponentID int64, kind game.Kind, stake float64) {
			settled = append(settled, pairing{creatorID, opponentID, kind, stake})
		}
		r, err := e.CreateRoom(ctx, 1, game.KindHighDie, 10)
		require.NoError(t, err)
		_, err = e.JoinRoom(ctx, r.ID, 2)
		require.NoError(t, err)
		_, _, err = e.Play(ctx, r.ID, 1)
		require.NoError(t, err)
		return settled
	}

	won := play(t, 6, 3)
	require.Len(t, won, 1)
	assert.Equal(t, pairing{1, 2, game.KindHighDie, 10}, won[0])

	// Draws settle too, so they are just as rematch-worthy.
	drawn := play(t, 4, 4)
	require.Len(t, drawn, 1)
	assert.Equal(t, pairing{1, 2, game.KindHighDie, 10}, drawn[0])
}
