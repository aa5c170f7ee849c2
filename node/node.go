// Package node implements the Node Process Loop's capability surface: the
// polymorphic-over-capability Processor interface, the NodeKind tagged
// variant used for scheduler decisions, and the process-wide, explicitly
// constructed node capability registry described in the Design Notes (§9).
package node

import (
	"github.com/graphkit/graphd/bufferpool"
	"github.com/graphkit/graphd/dll"
	"github.com/graphkit/graphd/shm"
)

// NodeKind tags a node's role for scheduler decisions, replacing an
// inheritance tree with a composition-friendly tagged variant per the
// Design Notes' "dynamic dispatch" guidance.
type NodeKind int

const (
	KindProducer NodeKind = iota
	KindConsumer
	KindFilter
)

// PortID identifies one port within a node, matching its slot index in the
// owning Shared Region's port array.
type PortID uint32

// PortSpec describes one port a node exposes.
type PortSpec struct {
	ID        PortID
	Direction PortDirection
}

// PortDirection is Input or Output.
type PortDirection int

const (
	DirectionInput PortDirection = iota
	DirectionOutput
)

// Position is the authoritative clock position consulted at the start of
// every cycle (§4.5 step 1).
type Position struct {
	ClockID  uint64
	Position uint64
	Duration uint64
	Rate     uint32
}

// CycleContext carries everything a node needs to process one cycle: the
// authoritative position, its buffer pool, its DLL (consumer nodes only),
// and direct access to its own port slots in the Shared Region.
type CycleContext struct {
	Position Position
	Pool     *bufferpool.Pool
	DLL      *dll.Filter
	Region   *shm.Region

	TargetBuffer uint32
}

// Processor is the capability set a node implementation exposes: get_ports,
// process_cycle, set_io, expressed as a Go interface rather than a C-style
// vtable struct, per the Design Notes' "express as a vtable-like dispatch
// table bound to each node instance. Avoid inheritance trees."
type Processor interface {
	Kind() NodeKind
	Ports() []PortSpec
	ProcessCycle(cc *CycleContext) error
	SetIO(port PortID, dir PortDirection, slot *shm.PortIOSlot)
}

// NodeConstructor builds a fresh Processor instance for a registered node
// type name.
type NodeConstructor func() Processor
