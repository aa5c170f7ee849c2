// Package shm implements the transport core's bit-exact shared memory
// region: a memfd-backed mapping laid out as area header, port I/O slot
// arrays, and two ring buffers, shared read/write between a server and a
// client process.
package shm

import (
	"unsafe"

	"github.com/graphkit/graphd/ringbuf"
)

// DefaultRingSize is the ring capacity the original source uses for both
// rings; it must be a power of two.
const DefaultRingSize = 4096

// PortIOSlot is the fixed-size per-port state shared between producer and
// consumer. BufferIDInvalid is the only sentinel: no other value means
// "no buffer presented".
type PortIOSlot struct {
	Status   uint32
	BufferID uint32
}

// BufferIDInvalid is the all-ones sentinel meaning "no buffer presented".
const BufferIDInvalid uint32 = 0xFFFFFFFF

// Port slot status codes (§3 "status is an enumerated result code").
const (
	PortStatusOK uint32 = iota
	PortStatusHaveBuffer
	PortStatusNeedBuffer
)

// AreaHeader is the region's first fixed-size section.
type AreaHeader struct {
	MaxInputs  uint32
	NInputs    uint32
	MaxOutputs uint32
	NOutputs   uint32
}

const (
	areaHeaderSize = uint32(unsafe.Sizeof(AreaHeader{}))
	portSlotSize   = uint32(unsafe.Sizeof(PortIOSlot{}))
	ringHeaderSize = uint32(unsafe.Sizeof(ringbuf.Header{}))
)

// Layout describes the byte offsets of every section of a region for a
// given (max_inputs, max_outputs, ring_size) triple. All offsets are
// relative to the start of the mapping.
type Layout struct {
	MaxInputs, MaxOutputs uint32
	RingSize              uint32

	AreaHeaderOffset  uint32
	InputSlotsOffset  uint32
	OutputSlotsOffset uint32
	InputRingHdrOff   uint32
	InputRingDataOff  uint32
	OutputRingHdrOff  uint32
	OutputRingDataOff uint32
	TotalSize         uint32
}

// ComputeLayout lays out the region in the exact order given by the
// specification's data model: area header, input slots, output slots,
// input ring (header+data), output ring (header+data).
func ComputeLayout(maxInputs, maxOutputs, ringSize uint32) Layout {
	var l Layout
	l.MaxInputs, l.MaxOutputs, l.RingSize = maxInputs, maxOutputs, ringSize

	off := uint32(0)
	l.AreaHeaderOffset = off
	off += areaHeaderSize

	l.InputSlotsOffset = off
	off += maxInputs * portSlotSize

	l.OutputSlotsOffset = off
	off += maxOutputs * portSlotSize

	l.InputRingHdrOff = off
	off += ringHeaderSize
	l.InputRingDataOff = off
	off += ringSize

	l.OutputRingHdrOff = off
	off += ringHeaderSize
	l.OutputRingDataOff = off
	off += ringSize

	l.TotalSize = off
	return l
}
