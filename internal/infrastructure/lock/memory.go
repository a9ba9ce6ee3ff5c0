package lock

import (
	"context"
	"fmt"
	"repayment-engine/internal/pkg/apperrors"
	"sync"
)

// MemoryLocker serialises work per loan within a single process. Waiters
// give up when their context ends.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[int64]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[int64]*slot)}
}

func (l *MemoryLocker) Lock(ctx context.Context, loanID int64) (func(), error) {
	s := l.acquireSlot(loanID)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseSlot(loanID, s)
		return nil, fmt.Errorf("%w: gave up waiting for loan %d: %w", apperrors.ErrConcurrencyConflict, loanID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.releaseSlot(loanID, s)
		})
	}, nil
}

func (l *MemoryLocker) acquireSlot(loanID int64) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[loanID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[loanID] = s
	}
	s.refs++
	return s
}

func (l *MemoryLocker) releaseSlot(loanID int64, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, loanID)
	}
}

// held reports how many loans currently have a holder or waiter.
func (l *MemoryLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
