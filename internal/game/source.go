// internal/game/source.go
package game

import "sync"

// LockedSource serializes draws from a shared Source. math/rand sources are
// not safe for concurrent use, and simultaneous resolutions hold only their
// own room locks, so a process-wide source must bring its own mutex.
type LockedSource struct {
	mu  sync.Mutex
	src Source
}

// NewLockedSource wraps src for concurrent use.
func NewLockedSource(src Source) *LockedSource {
	return &LockedSource{src: src}
}

func (l *LockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}
