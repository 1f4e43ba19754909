package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/ruralpay/corebank/internal/lease"
	"github.com/ruralpay/corebank/internal/store"
)

// Timeouts bound the two phases of a leased operation.
type Timeouts struct {
	// Lease is the longest an operation waits for its account leases.
	Lease time.Duration
	// Commit bounds the store work once leases are held.
	Commit time.Duration
}

// leasedRunner runs store transactions while holding the leases of every
// account they touch.
type leasedRunner struct {
	store    store.Store
	leases   lease.Manager
	timeouts Timeouts
	log      zerolog.Logger
}

// run acquires the leases for accountIDs in ascending order, then calls fn
// inside a store transaction and commits if fn succeeds. The caller's
// cancellation is honoured until the leases are held; from then on the work
// runs to commit or rollback, bounded only by the commit timeout.
func (r *leasedRunner) run(ctx context.Context, accountIDs []int64, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	ids := orderedIDs(accountIDs)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = strconv.FormatInt(id, 10)
	}

	leaseCtx, cancelLease := context.WithTimeout(ctx, r.timeouts.Lease)
	held, err := lease.AcquireAll(leaseCtx, r.leases, keys)
	cancelLease()
	if err != nil {
		return r.leaseError(ctx, err, keys)
	}

	workCtx, cancelWork := context.WithTimeout(context.WithoutCancel(ctx), r.timeouts.Commit)
	defer cancelWork()
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeouts.Commit)
		defer cancel()
		if err := held.Release(releaseCtx); err != nil {
			r.log.Error().Err(err).Strs("keys", keys).Msg("Failed to release account leases")
		}
	}()

	tx, err := r.store.Begin(workCtx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrStoreFault, err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, store.ErrTxDone) {
				r.log.Error().Err(err).Msg("Rollback failed")
			}
		}
	}()

	if err := fn(workCtx, tx); err != nil {
		return err
	}

	committed = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrStoreFault, err)
	}
	return nil
}

func (r *leasedRunner) leaseError(ctx context.Context, err error, keys []string) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case errors.Is(err, lease.ErrTimeout):
		r.log.Warn().Strs("keys", keys).Dur("timeout", r.timeouts.Lease).Msg("Lease wait timed out")
		return fmt.Errorf("%w: %w", ErrBusy, err)
	default:
		return fmt.Errorf("%w: acquire leases: %w", ErrStoreFault, err)
	}
}

// orderedIDs returns the non-zero ids ascending without duplicates.
func orderedIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// storeError translates errors from a read inside a leased transaction.
func storeError(err error, notFound error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound) && notFound != nil:
		return fmt.Errorf("%w: %s", notFound, what)
	case errors.Is(err, store.ErrLockTimeout):
		return fmt.Errorf("%w: %s: %w", ErrBusy, what, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrStoreFault, what, err)
	}
}
