package transport

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/graphkit/graphd/errs"
	"github.com/graphkit/graphd/shm"
)

// ProtocolVersion is stamped into every TransportInfo this module produces
// and checked on attach (§9 Open Questions: "consider adding one to
// transport_info before the first u32 of the area").
const ProtocolVersion uint32 = 1

// TransportInfo is the triple exchanged over the out-of-core control
// channel so a client can attach to a server-constructed region.
type TransportInfo struct {
	FD      int
	Offset  int64
	Size    int64
	Version uint32
}

// Factory constructs and attaches Endpoints. It holds no per-endpoint
// state; every method is a pure construction path, matching the Design
// Notes' initialization order (logger → loop → factory → endpoints).
type Factory struct {
	ringSize uint32
}

// NewFactory returns a Factory that lays out rings of ringSize bytes
// (must be a power of two). Pass shm.DefaultRingSize for the source's
// historical 4096-byte rings.
func NewFactory(ringSize uint32) *Factory {
	return &Factory{ringSize: ringSize}
}

// NewServerEndpoint implements §4.7 new(): server-side construction. It
// allocates a sealed memfd, maps it, initializes the area header, both
// ring headers, and every port slot, and returns both the Endpoint and the
// TransportInfo to hand to a client over the side channel.
func (f *Factory) NewServerEndpoint(name string, maxInputs, maxOutputs uint32) (*Endpoint, TransportInfo, error) {
	layout := shm.ComputeLayout(maxInputs, maxOutputs, f.ringSize)

	fd, err := shm.CreateSealedMemfd(name, uint64(layout.TotalSize))
	if err != nil {
		return nil, TransportInfo{}, err
	}
	buf, err := shm.MapFD(fd, 0, int(layout.TotalSize))
	if err != nil {
		unix.Close(fd)
		return nil, TransportInfo{}, err
	}

	region, err := shm.NewRegionView(buf, layout, false)
	if err != nil {
		shm.Unmap(buf)
		unix.Close(fd)
		return nil, TransportInfo{}, err
	}
	region.InitServerSide()

	ep, err := NewEndpoint(region)
	if err != nil {
		shm.Unmap(buf)
		unix.Close(fd)
		return nil, TransportInfo{}, err
	}
	ep.fd, ep.buf = fd, buf

	info := TransportInfo{FD: fd, Offset: 0, Size: int64(layout.TotalSize), Version: ProtocolVersion}
	return ep, info, nil
}

// NewClientEndpoint implements §4.7 new_from_info(): client-side attach.
// It maps [info.Offset, info.Offset+info.Size), validates the protocol
// version and area header, and swaps the input/output ring pointers so the
// client's Send/Receive are the inverse of the server's. Failure surfaces
// as errs.ErrMapFailed or errs.ErrProtocol without consuming info.FD.
func (f *Factory) NewClientEndpoint(maxInputs, maxOutputs uint32, info TransportInfo) (*Endpoint, error) {
	if info.Version != ProtocolVersion {
		return nil, fmt.Errorf("transport_info version %d, want %d: %w", info.Version, ProtocolVersion, errs.ErrProtocol)
	}
	layout := shm.ComputeLayout(maxInputs, maxOutputs, f.ringSize)
	if int64(layout.TotalSize) != info.Size {
		return nil, fmt.Errorf("transport_info size %d does not match computed layout size %d: %w",
			info.Size, layout.TotalSize, errs.ErrProtocol)
	}

	buf, err := shm.MapFD(info.FD, info.Offset, int(info.Size))
	if err != nil {
		return nil, err
	}

	region, err := shm.NewRegionView(buf, layout, true)
	if err != nil {
		shm.Unmap(buf)
		return nil, err
	}
	if err := region.Validate(layout); err != nil {
		shm.Unmap(buf)
		return nil, err
	}

	ep, err := NewEndpoint(region)
	if err != nil {
		shm.Unmap(buf)
		return nil, err
	}
	ep.fd, ep.buf = info.FD, buf
	return ep, nil
}

// Info returns the triple suitable for transmission over a side channel.
// The fd is dup-able by the caller via unix.Dup before sending, if the
// caller intends to keep its own copy alive independently.
func Info(fd int, offset, size int64) TransportInfo {
	return TransportInfo{FD: fd, Offset: offset, Size: size, Version: ProtocolVersion}
}

// DupFD duplicates fd so the caller can hand one copy to a peer while
// retaining its own, per §4.7 "the fd is dup-able".
func DupFD(fd int) (int, error) {
	newFD, err := unix.Dup(fd)
	if err != nil {
		return -1, fmt.Errorf("dup: %w", err)
	}
	return newFD, nil
}
