// Package lease provides exclusive, time-bounded claims on keys. The transfer
// engine takes one lease per account it touches, always in ascending account
// order, so two operations never wait on each other in a cycle.
package lease

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when the context deadline passes while waiting.
	ErrTimeout = errors.New("lease wait timed out")
	// ErrLost is returned by Release when the lease expired and was taken over.
	ErrLost = errors.New("lease lost before release")
)

type Lease interface {
	Key() string
	Release(ctx context.Context) error
}

// Manager hands out leases. Acquire blocks until the key is free or ctx is
// done; a passed deadline yields ErrTimeout, a cancellation yields ctx.Err().
type Manager interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Set is a group of leases held together.
type Set []Lease

// AcquireAll takes a lease on every key in the order given. On failure the
// leases already held are released and none are returned.
func AcquireAll(ctx context.Context, m Manager, keys []string) (Set, error) {
	held := make(Set, 0, len(keys))
	for _, key := range keys {
		l, err := m.Acquire(ctx, key)
		if err != nil {
			held.Release(context.WithoutCancel(ctx))
			return nil, err
		}
		held = append(held, l)
	}
	return held, nil
}

// Release frees the leases in reverse acquisition order and returns the
// first error seen.
func (s Set) Release(ctx context.Context) error {
	var first error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i].Release(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func waitError(ctx context.Context, key string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, key)
	}
	return ctx.Err()
}
