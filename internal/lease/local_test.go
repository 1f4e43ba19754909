package lease

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Exclusive(t *testing.T) {
	m := NewLocal()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := m.Acquire(ctx, "42")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				cur := maxInside.Load()
				if n <= cur || maxInside.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			assert.NoError(t, l.Release(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, m.Held())
}

func TestLocal_TimeoutWhileHeld(t *testing.T) {
	m := NewLocal()
	held, err := m.Acquire(context.Background(), "7")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Acquire(ctx, "7")
	assert.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, held.Release(context.Background()))
	assert.Equal(t, 0, m.Held())
}

func TestLocal_CancelledWhileWaiting(t *testing.T) {
	m := NewLocal()
	held, err := m.Acquire(context.Background(), "7")
	require.NoError(t, err)
	defer held.Release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = m.Acquire(ctx, "7")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestLocal_IndependentKeys(t *testing.T) {
	m := NewLocal()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, err := m.Acquire(ctx, "1")
	require.NoError(t, err)
	b, err := m.Acquire(ctx, "2")
	require.NoError(t, err)

	assert.Equal(t, "1", a.Key())
	assert.Equal(t, "2", b.Key())
	assert.NoError(t, b.Release(ctx))
	assert.NoError(t, a.Release(ctx))
}

func TestLocal_ReleaseIsIdempotent(t *testing.T) {
	m := NewLocal()
	ctx := context.Background()

	l, err := m.Acquire(ctx, "1")
	require.NoError(t, err)
	assert.NoError(t, l.Release(ctx))
	assert.NoError(t, l.Release(ctx))

	again, err := m.Acquire(ctx, "1")
	require.NoError(t, err)
	assert.NoError(t, again.Release(ctx))
}

func TestAcquireAll_ReleasesOnFailure(t *testing.T) {
	m := NewLocal()
	blocker, err := m.Acquire(context.Background(), "3")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	set, err := AcquireAll(ctx, m, []string{"1", "2", "3"})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Nil(t, set)

	require.NoError(t, blocker.Release(context.Background()))
	assert.Equal(t, 0, m.Held())
}

func TestAcquireAll_InOrder(t *testing.T) {
	m := NewLocal()
	ctx := context.Background()

	set, err := AcquireAll(ctx, m, []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "1", set[0].Key())
	assert.Equal(t, "2", set[1].Key())

	assert.NoError(t, set.Release(ctx))
	assert.Equal(t, 0, m.Held())
}
