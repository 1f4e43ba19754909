package lease

import (
	"context"
	"sync"
	"sync/atomic"
)

// Local is an in-process Manager. Each key maps to a one-slot channel that is
// dropped once nobody holds or waits for it.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) Acquire(ctx context.Context, key string) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, waitError(ctx, key)
	}

	s := l.ref(key)
	select {
	case s.ch <- struct{}{}:
		return &localLease{owner: l, key: key, slot: s}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, waitError(ctx, key)
	}
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Held reports how many keys are currently held or waited on.
func (l *Local) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

type localLease struct {
	owner    *Local
	key      string
	slot     *slot
	released atomic.Bool
}

func (ll *localLease) Key() string { return ll.key }

func (ll *localLease) Release(ctx context.Context) error {
	if !ll.released.CompareAndSwap(false, true) {
		return nil
	}
	<-ll.slot.ch
	ll.owner.unref(ll.key, ll.slot)
	return nil
}
