package node

import (
	"testing"

	"github.com/graphkit/graphd/bufferpool"
	"github.com/graphkit/graphd/dll"
	"github.com/graphkit/graphd/shm"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingProcessor struct {
	cycles int
}

func (p *countingProcessor) Kind() NodeKind        { return KindFilter }
func (p *countingProcessor) Ports() []PortSpec     { return nil }
func (p *countingProcessor) SetIO(port PortID, dir PortDirection, slot *shm.PortIOSlot) {}
func (p *countingProcessor) ProcessCycle(cc *CycleContext) error {
	p.cycles++
	return nil
}

func newTestPoolForCycle(t *testing.T, count int) *bufferpool.Pool {
	t.Helper()
	alloc, err := bufferpool.NewBuddyArena(64*1024, 1024, 64*1024)
	require.NoError(t, err)
	p, err := bufferpool.New(alloc, count, 256)
	require.NoError(t, err)
	return p
}

func TestDriverRunCycleResetsDLLOnClockChange(t *testing.T) {
	proc := &countingProcessor{}
	log := zap.NewNop().Sugar()
	d := NewDriver("test", proc, log)

	filt := dll.New()
	cc := &CycleContext{
		Position:     Position{ClockID: 1, Position: 1024},
		Pool:         newTestPoolForCycle(t, 4),
		DLL:          filt,
		TargetBuffer: 1,
	}
	// First cycle always resets (no prior clock seen).
	require.NoError(t, d.RunCycle(cc))
	require.Equal(t, 1, proc.cycles)

	// The node tunes its DLL once it knows the rate (normally done inside
	// ProcessCycle); simulate that here and perturb it away from unity.
	filt.SetBW(0.5, 1024, 48000)
	filt.Update(-50)
	afterSameClock := filt.Update(0)
	require.NotEqual(t, float32(1.0), afterSameClock)

	// Same clock id on the next cycle: DLL must not be reset.
	cc.Position = Position{ClockID: 1, Position: 2048}
	require.NoError(t, d.RunCycle(cc))
	require.NotEqual(t, float32(1.0), filt.Update(0))

	// Switching clock id resets the DLL (period goes back to 0 → unity).
	cc.Position = Position{ClockID: 2, Position: 3072}
	require.NoError(t, d.RunCycle(cc))
	require.Equal(t, float32(1.0), filt.Update(0))
}

func TestDriverReportsUnderrunWhenPoolStarved(t *testing.T) {
	proc := &countingProcessor{}
	log := zap.NewNop().Sugar()
	d := NewDriver("test", proc, log)

	pool := newTestPoolForCycle(t, 1)
	// Drain the only buffer so Available() == 0.
	_, err := pool.Acquire()
	require.NoError(t, err)

	cc := &CycleContext{
		Position:     Position{ClockID: 1, Position: 0},
		Pool:         pool,
		TargetBuffer: 1,
	}
	require.NoError(t, d.RunCycle(cc))
	require.True(t, d.syncLost)
	require.Equal(t, 1, d.consecutiveXrun)
}
