package nodes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphkit/graphd/bufferpool"
	"github.com/graphkit/graphd/node"
	"github.com/graphkit/graphd/shm"
)

func newTestPool(t *testing.T, count int) *bufferpool.Pool {
	t.Helper()
	alloc, err := bufferpool.NewBuddyArena(64*1024, 1024, 64*1024)
	require.NoError(t, err)
	p, err := bufferpool.New(alloc, count, 256)
	require.NoError(t, err)
	return p
}

func TestLoopbackPresentsAcquiredBufferOnOutput(t *testing.T) {
	l := NewLoopback()
	require.Equal(t, node.KindFilter, l.Kind())

	var in, out shm.PortIOSlot
	in.BufferID = shm.BufferIDInvalid
	l.SetIO(0, node.DirectionInput, &in)
	l.SetIO(0, node.DirectionOutput, &out)

	pool := newTestPool(t, 2)
	cc := &node.CycleContext{Pool: pool}

	require.NoError(t, l.ProcessCycle(cc))
	require.NotEqual(t, shm.BufferIDInvalid, out.BufferID)
	require.Equal(t, shm.PortStatusHaveBuffer, out.Status)
}

func TestLoopbackReleasesInputBufferBeforeAcquiring(t *testing.T) {
	l := NewLoopback()
	pool := newTestPool(t, 1)

	var in, out shm.PortIOSlot
	entry, err := pool.Acquire()
	require.NoError(t, err)
	in.BufferID = entry.ID
	in.Status = shm.PortStatusHaveBuffer
	l.SetIO(0, node.DirectionInput, &in)
	l.SetIO(0, node.DirectionOutput, &out)

	cc := &node.CycleContext{Pool: pool}
	require.NoError(t, l.ProcessCycle(cc))

	require.Equal(t, shm.BufferIDInvalid, in.BufferID)
	require.Equal(t, entry.ID, out.BufferID)
}
