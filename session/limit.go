package session

import (
	"context"
	"sync"

	"github.com/use-agent/pokedex/models"
	"golang.org/x/sync/semaphore"
)

// Limited caps the number of concurrently live sessions of another Manager.
// Acquire blocks for a free slot until ctx ends; the slot is returned by
// Release.
type Limited struct {
	next Manager
	sem  *semaphore.Weighted
	max  int
}

// NewLimited wraps next with a cap of max concurrent sessions.
func NewLimited(next Manager, max int) *Limited {
	return &Limited{
		next: next,
		sem:  semaphore.NewWeighted(int64(max)),
		max:  max,
	}
}

// limitedSession remembers that it holds a slot so Release frees it once.
type limitedSession struct {
	Session
	once sync.Once
}

// Acquire waits for a slot and then acquires from the wrapped Manager.
func (l *Limited) Acquire(ctx context.Context) (Session, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, launchError("no rendering session slot became available", err)
	}
	s, err := l.next.Acquire(ctx)
	if err != nil {
		l.sem.Release(1)
		return nil, err
	}
	return &limitedSession{Session: s}, nil
}

// Release releases the wrapped session and frees its slot.
func (l *Limited) Release(s Session) {
	ls, ok := s.(*limitedSession)
	if !ok || ls == nil {
		return
	}
	ls.once.Do(func() {
		l.next.Release(ls.Session)
		l.sem.Release(1)
	})
}

// Stats reports the wrapped Manager's counters with the cap filled in.
func (l *Limited) Stats() models.SessionStats {
	st := l.next.Stats()
	st.MaxSessions = l.max
	return st
}
