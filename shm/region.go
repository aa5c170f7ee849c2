package shm

import (
	"fmt"
	"unsafe"

	"github.com/graphkit/graphd/errs"
	"github.com/graphkit/graphd/ringbuf"
)

// Region is a typed view over a raw mapped byte slice. All pointer
// arithmetic for the shared mapping is centralized here and in layout.go,
// per the design note restricting unsafe use to the Ring Buffer and Shared
// Region modules; every method outside this package deals only in byte
// slices and value types.
type Region struct {
	buf    []byte
	layout Layout
	// swapped is true for the client side: the region's physical
	// "input ring" section is the client's outgoing ring and vice versa.
	swapped bool
}

// NewRegionView wraps buf (which must be at least layout.TotalSize bytes)
// as a typed region. swapped selects the client's inverted view (§4.2,
// §4.7): the client's Send ring is the physical input ring section and its
// Receive ring is the physical output ring section.
func NewRegionView(buf []byte, layout Layout, swapped bool) (*Region, error) {
	if uint32(len(buf)) < layout.TotalSize {
		return nil, fmt.Errorf("region buffer too small: have %d want %d: %w", len(buf), layout.TotalSize, errs.ErrInvalidArguments)
	}
	return &Region{buf: buf, layout: layout, swapped: swapped}, nil
}

func (r *Region) ptr(off uint32) unsafe.Pointer {
	return unsafe.Pointer(&r.buf[off])
}

// AreaHeader returns the typed area header view.
func (r *Region) AreaHeader() *AreaHeader {
	return (*AreaHeader)(r.ptr(r.layout.AreaHeaderOffset))
}

// InputSlot returns the i'th input port slot. i must be < MaxInputs.
func (r *Region) InputSlot(i uint32) *PortIOSlot {
	return (*PortIOSlot)(r.ptr(r.layout.InputSlotsOffset + i*portSlotSize))
}

// OutputSlot returns the i'th output port slot. i must be < MaxOutputs.
func (r *Region) OutputSlot(i uint32) *PortIOSlot {
	return (*PortIOSlot)(r.ptr(r.layout.OutputSlotsOffset + i*portSlotSize))
}

func (r *Region) inputRingHeader() *ringbuf.Header {
	return (*ringbuf.Header)(r.ptr(r.layout.InputRingHdrOff))
}

func (r *Region) inputRingData() []byte {
	return r.buf[r.layout.InputRingDataOff : r.layout.InputRingDataOff+r.layout.RingSize]
}

func (r *Region) outputRingHeader() *ringbuf.Header {
	return (*ringbuf.Header)(r.ptr(r.layout.OutputRingHdrOff))
}

func (r *Region) outputRingData() []byte {
	return r.buf[r.layout.OutputRingDataOff : r.layout.OutputRingDataOff+r.layout.RingSize]
}

// SendRing returns the ring this side of the region writes into: the
// physical output ring normally, or the physical input ring for the
// swapped (client) view.
func (r *Region) SendRing() (*ringbuf.Header, []byte) {
	if r.swapped {
		return r.inputRingHeader(), r.inputRingData()
	}
	return r.outputRingHeader(), r.outputRingData()
}

// ReceiveRing returns the ring this side reads from: the inverse of
// SendRing.
func (r *Region) ReceiveRing() (*ringbuf.Header, []byte) {
	if r.swapped {
		return r.outputRingHeader(), r.outputRingData()
	}
	return r.inputRingHeader(), r.inputRingData()
}

// InitServerSide writes the area header and resets both ring headers and
// every port slot. Called once by the Transport Factory's server-side
// constructor, before the region is ever shared with a client.
func (r *Region) InitServerSide() {
	ah := r.AreaHeader()
	*ah = AreaHeader{
		MaxInputs:  r.layout.MaxInputs,
		NInputs:    0,
		MaxOutputs: r.layout.MaxOutputs,
		NOutputs:   0,
	}
	ringbuf.Init(r.inputRingHeader(), r.layout.RingSize)
	ringbuf.Init(r.outputRingHeader(), r.layout.RingSize)
	for i := uint32(0); i < r.layout.MaxInputs; i++ {
		*r.InputSlot(i) = PortIOSlot{Status: PortStatusOK, BufferID: BufferIDInvalid}
	}
	for i := uint32(0); i < r.layout.MaxOutputs; i++ {
		*r.OutputSlot(i) = PortIOSlot{Status: PortStatusOK, BufferID: BufferIDInvalid}
	}
}

// Validate checks that the region's area header agrees with the layout the
// caller expects, per §4.7's "validates the area header matches info.size".
func (r *Region) Validate(want Layout) error {
	ah := r.AreaHeader()
	if ah.MaxInputs != want.MaxInputs || ah.MaxOutputs != want.MaxOutputs {
		return fmt.Errorf("area header mismatch: have (%d,%d) want (%d,%d): %w",
			ah.MaxInputs, ah.MaxOutputs, want.MaxInputs, want.MaxOutputs, errs.ErrProtocol)
	}
	return nil
}

// Layout returns the region's computed layout.
func (r *Region) Layout() Layout { return r.layout }
