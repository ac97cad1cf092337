// internal/room/registry.go
package room

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/duelhouse/wager-service/internal/game"
)

// Registry is the in-memory directory of live rooms. It owns id issuance
// (monotonic, never reused while the process lives) and serializes map
// access; per-room state is guarded by each room's own lock.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	counter uint64

	log *logrus.Logger
}

// NewRegistry returns an empty registry. The id counter starts above 1000
// so room tokens stay short but unambiguous in chat.
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		counter: 1000,
		log:     log,
	}
}

// Create allocates a fresh id and stores a Waiting room.
func (reg *Registry) Create(creatorID int64, kind game.Kind, stake float64) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.counter++
	id := fmt.Sprintf("ROOM%d", reg.counter)
	r := New(id, creatorID, kind, stake)
	reg.rooms[id] = r

	reg.log.WithFields(logrus.Fields{
		"room":    id,
		"creator": creatorID,
		"kind":    kind,
		"stake":   stake,
	}).Info("room created")
	return r
}

// CreateRematch allocates a room for a pair that just played: both seats are
// filled before the room is published, so no third party can slip in, and
// Prefunded marks that create/join must not touch the ledger again.
func (reg *Registry) CreateRematch(creatorID, opponentID int64, kind game.Kind, stake float64) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.counter++
	id := fmt.Sprintf("ROOM%d", reg.counter)
	r := New(id, creatorID, kind, stake)
	r.Prefunded = true
	// The room is not visible to anyone yet; the seat transition cannot race.
	_ = r.JoinUnsafe(opponentID)
	reg.rooms[id] = r

	reg.log.WithFields(logrus.Fields{
		"room":     id,
		"creator":  creatorID,
		"opponent": opponentID,
		"kind":     kind,
		"stake":    stake,
	}).Info("rematch room created")
	return r
}

// Join looks up the room and delegates the seat transition. Missing room,
// self-join, and non-Waiting rooms all report false.
func (reg *Registry) Join(roomID string, opponentID int64) bool {
	r, ok := reg.Get(roomID)
	if !ok {
		return false
	}
	if err := r.Join(opponentID); err != nil {
		return false
	}
	reg.log.WithFields(logrus.Fields{
		"room":     roomID,
		"opponent": opponentID,
	}).Info("opponent joined")
	return true
}

// Get returns the room for id.
func (reg *Registry) Get(id string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[id]
	return r, ok
}

// ListWaiting snapshots all Waiting rooms, optionally filtered by kind.
// The slice is ordered by id so a single snapshot is stable.
func (reg *Registry) ListWaiting(kind game.Kind) []*Room {
	reg.mu.Lock()
	snapshot := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		snapshot = append(snapshot, r)
	}
	reg.mu.Unlock()

	waiting := make([]*Room, 0, len(snapshot))
	for _, r := range snapshot {
		if r.Status() != StatusWaiting {
			continue
		}
		if kind != "" && r.Kind != kind {
			continue
		}
		waiting = append(waiting, r)
	}
	sort.Slice(waiting, func(i, j int) bool { return waiting[i].ID < waiting[j].ID })
	return waiting
}

// UserRooms returns every room the user is seated in.
func (reg *Registry) UserRooms(userID int64) []*Room {
	reg.mu.Lock()
	snapshot := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		snapshot = append(snapshot, r)
	}
	reg.mu.Unlock()

	var mine []*Room
	for _, r := range snapshot {
		if r.HasParticipant(userID) {
			mine = append(mine, r)
		}
	}
	return mine
}

// Delete removes the room from the directory. Deleting a finished room is
// the caller's signal that settlement has fully applied.
func (reg *Registry) Delete(id string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.rooms[id]; !ok {
		return false
	}
	delete(reg.rooms, id)
	reg.log.WithField("room", id).Info("room deleted")
	return true
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}
