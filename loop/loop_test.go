//go:build linux

package loop

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventSourceFiresOnSignalEvent(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	var gotCount uint64
	fired := make(chan struct{}, 1)
	src, err := l.AddEventSource(func(s *Source, count uint64) {
		atomic.StoreUint64(&gotCount, count)
		fired <- struct{}{}
	})
	require.NoError(t, err)

	require.NoError(t, l.SignalEvent(src))

	done := make(chan error, 1)
	go func() { done <- l.Iterate(time.Second) }()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("event source never fired")
	}
	require.NoError(t, <-done)
	require.Equal(t, uint64(1), atomic.LoadUint64(&gotCount))
}

func TestTimerSourceFiresAfterDeadline(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	fired := make(chan struct{}, 1)
	src, err := l.AddTimerSource(func(s *Source) { fired <- struct{}{} })
	require.NoError(t, err)
	require.NoError(t, l.UpdateTimer(src, 10*time.Millisecond, false))

	require.NoError(t, l.Iterate(time.Second))
	select {
	case <-fired:
	default:
		t.Fatal("timer source did not fire within one iterate pass")
	}
}

func TestIdleSourceFiresWhenNothingElsePending(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	var calls int
	l.AddIdleSource(func(s *Source) { calls++ })

	require.NoError(t, l.Iterate(10 * time.Millisecond))
	require.Equal(t, 1, calls)
}

func TestDisabledIdleSourceDoesNotFire(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	var calls int
	src := l.AddIdleSource(func(s *Source) { calls++ })
	l.EnableIdle(src, false)

	require.NoError(t, l.Iterate(10 * time.Millisecond))
	require.Equal(t, 0, calls)
}

func TestRemoveSourceFromWithinOwnCallbackSuppressesFurtherFires(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	var calls int
	var src *Source
	src, err = l.AddEventSource(func(s *Source, count uint64) {
		calls++
		require.NoError(t, l.RemoveSource(src))
	})
	require.NoError(t, err)
	require.NoError(t, l.SignalEvent(src))

	require.NoError(t, l.Iterate(time.Second))
	require.Equal(t, 1, calls)
	require.True(t, src.removed)
}

func TestEnterPanicsOnReentrantCall(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	require.Panics(t, func() {
		l.enter()
		l.enter()
	})
	l.leave()
}
