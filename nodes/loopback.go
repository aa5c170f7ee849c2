// Package nodes provides the node types graphd registers by default:
// concrete node.Processor implementations a configuration can select by
// name via config.NodeConfig.Type.
package nodes

import (
	"github.com/graphkit/graphd/node"
	"github.com/graphkit/graphd/shm"
)

// Loopback is a single-port-pair KindFilter node: every cycle it
// acquires a buffer, presents it on its output slot, and immediately
// releases whatever its input slot last presented. It exists to exercise
// the full Node Process Loop and Buffer Pool path end to end without
// needing a real audio or video source.
type Loopback struct {
	input  *shm.PortIOSlot
	output *shm.PortIOSlot
}

// NewLoopback constructs a fresh Loopback node, suitable as a
// node.NodeConstructor.
func NewLoopback() node.Processor {
	return &Loopback{}
}

// Kind reports Loopback as a filter: it has both an input and an output.
func (l *Loopback) Kind() node.NodeKind { return node.KindFilter }

// Ports exposes one input and one output port, both index 0.
func (l *Loopback) Ports() []node.PortSpec {
	return []node.PortSpec{
		{ID: 0, Direction: node.DirectionInput},
		{ID: 0, Direction: node.DirectionOutput},
	}
}

// SetIO binds the slot this node mutates or reads for the given port.
func (l *Loopback) SetIO(port node.PortID, dir node.PortDirection, slot *shm.PortIOSlot) {
	if dir == node.DirectionInput {
		l.input = slot
	} else {
		l.output = slot
	}
}

// ProcessCycle acquires a buffer, presents it on the output slot, and
// releases the buffer the input slot presented last cycle, per §4.5
// steps 2-4 (dequeue, produce/consume, queue).
func (l *Loopback) ProcessCycle(cc *node.CycleContext) error {
	if cc.Pool == nil {
		return nil
	}

	if l.input != nil && l.input.BufferID != shm.BufferIDInvalid {
		cc.Pool.Release(l.input.BufferID)
		l.input.BufferID = shm.BufferIDInvalid
		l.input.Status = shm.PortStatusNeedBuffer
	}

	entry, err := cc.Pool.Acquire()
	if err != nil {
		return err
	}
	if l.output != nil {
		l.output.BufferID = entry.ID
		l.output.Status = shm.PortStatusHaveBuffer
	}
	return nil
}

