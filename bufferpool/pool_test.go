package bufferpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/graphkit/graphd/errs"
)

func newTestPool(t *testing.T, count int) *Pool {
	t.Helper()
	alloc, err := NewBuddyArena(512*1024, 8*1024, 512*1024)
	require.NoError(t, err)
	p, err := New(alloc, count, 256)
	require.NoError(t, err)
	return p
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := newTestPool(t, 2)
	require.Equal(t, 2, p.Available())

	e, err := p.Acquire()
	require.NoError(t, err)
	require.Equal(t, 1, p.Available())

	p.Release(e.ID)
	require.Equal(t, 2, p.Available())
}

func TestRemoveByIdentity(t *testing.T) {
	p := newTestPool(t, 2)
	require.True(t, p.Remove(0))
	require.False(t, p.Remove(0))
	require.Equal(t, 1, p.Available())
}

// Scenario D — pool flush. The pool owns a single entry (id 0) which is
// removed up front so the available queue starts empty, matching the
// scenario's "pool has 0 available buffers".
func TestScenarioD_PoolFlush(t *testing.T) {
	p := newTestPool(t, 1)
	require.True(t, p.Remove(0))
	require.Equal(t, 0, p.Available())

	var wg sync.WaitGroup
	wg.Add(1)
	result := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := p.Acquire()
		result <- err
	}()

	time.Sleep(20 * time.Millisecond) // let T1 block on Acquire
	p.StartFlush()
	wg.Wait()
	require.ErrorIs(t, <-result, errs.ErrFlushing)

	p.StopFlush()
	p.Add(0) // buf1 from the scenario text

	e, err := p.Acquire() // T2
	require.NoError(t, err)
	require.Equal(t, uint32(0), e.ID)
}

func TestFlushNotifierRunsOffLock(t *testing.T) {
	p := newTestPool(t, 1)
	done := make(chan bool, 2)
	p.SetFlushNotifier(func(flushing bool) { done <- flushing })

	p.StartFlush()
	require.Equal(t, true, <-done)
	p.StopFlush()
	require.Equal(t, false, <-done)
}
