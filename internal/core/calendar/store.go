package calendar

import (
	"sync"
	"sync/atomic"

	"attendance.service/internal/core/model"
)

// Store publishes the current calendar snapshot. Readers never block; writers
// serialize and swap a whole new snapshot in.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Calendar]
}

func NewStore(c *Calendar) *Store {
	if c == nil {
		c = New(model.DefaultWeeklyPattern(), nil)
	}
	s := &Store{}
	s.current.Store(c)
	return s
}

// Calendar returns the snapshot in effect right now.
func (s *Store) Calendar() *Calendar {
	return s.current.Load()
}

// Update runs fn against the current snapshot while holding the writer lock
// and publishes what it returns. If fn fails nothing changes.
func (s *Store) Update(fn func(cur *Calendar) (*Calendar, error)) (*Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.current.Load())
	if err != nil {
		return nil, err
	}
	s.current.Store(next)
	return next, nil
}
