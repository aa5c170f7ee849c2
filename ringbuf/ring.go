// Package ringbuf implements the lock-free single-reader-single-writer byte
// ring described by the transport core: one writer owns write_index, one
// reader owns read_index, and the two may live in different processes on
// opposite sides of a shared mapping.
package ringbuf

import (
	"fmt"
	"sync/atomic"

	"github.com/graphkit/graphd/errs"
)

// Header is the on-wire, fixed-layout ring header. It is placed directly
// inside a shared memory region (see package shm) and every field is read
// and written exclusively through sync/atomic so index publication carries
// release/acquire semantics across the process boundary.
type Header struct {
	WriteIndex uint32
	ReadIndex  uint32
	Size       uint32
	Mask       uint32
}

// Ring is a view over a Header and its backing byte slice. It holds no data
// of its own beyond a cached mask; all durable state lives in Header and
// data, which may be backed by shared memory.
type Ring struct {
	hdr  *Header
	data []byte
	mask uint32
}

// New wraps hdr/data as a ring. data's length must equal hdr.Size, which
// must be a strictly positive power of two.
func New(hdr *Header, data []byte) (*Ring, error) {
	if hdr == nil || data == nil {
		return nil, errs.ErrInvalidArguments
	}
	size := hdr.Size
	if size == 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("ring size %d not a power of two: %w", size, errs.ErrInvalidArguments)
	}
	if uint32(len(data)) != size {
		return nil, fmt.Errorf("ring data length %d does not match header size %d: %w", len(data), size, errs.ErrInvalidArguments)
	}
	return &Ring{hdr: hdr, data: data, mask: size - 1}, nil
}

// Init resets both indices to zero and writes size/mask into the header.
// Used by the server side of the Transport Factory at construction time.
func Init(hdr *Header, size uint32) {
	hdr.Size = size
	hdr.Mask = size - 1
	atomic.StoreUint32(&hdr.WriteIndex, 0)
	atomic.StoreUint32(&hdr.ReadIndex, 0)
}

// Size returns the ring's fixed capacity in bytes.
func (r *Ring) Size() uint32 { return r.mask + 1 }

// GetWriteIndex returns the number of filled bytes and the writer's current
// absolute cursor. Safe to call from either side.
func (r *Ring) GetWriteIndex() (filled, index uint32) {
	w := atomic.LoadUint32(&r.hdr.WriteIndex)
	read := atomic.LoadUint32(&r.hdr.ReadIndex)
	return w - read, w
}

// GetReadIndex returns the number of filled bytes and the reader's current
// absolute cursor. Safe to call from either side.
func (r *Ring) GetReadIndex() (filled, index uint32) {
	write := atomic.LoadUint32(&r.hdr.WriteIndex)
	rd := atomic.LoadUint32(&r.hdr.ReadIndex)
	return write - rd, rd
}

// WriteUpdate publishes a new write index. Must be called only after the
// corresponding WriteData has completed, so the reader never observes an
// index advance before the bytes it covers.
func (r *Ring) WriteUpdate(newIndex uint32) {
	atomic.StoreUint32(&r.hdr.WriteIndex, newIndex)
}

// ReadUpdate publishes a new read index, reclaiming the bytes it passed over
// for the writer.
func (r *Ring) ReadUpdate(newIndex uint32) {
	atomic.StoreUint32(&r.hdr.ReadIndex, newIndex)
}

// WriteData copies src into the ring starting at offset&mask, wrapping at
// most once. It does not touch WriteIndex; callers reserve space with
// GetWriteIndex/GetReadIndex and call WriteUpdate once all data for the
// reservation has been written.
func (r *Ring) WriteData(offset uint32, src []byte) {
	writeSpan(r.data, r.mask, offset, src)
}

// ReadData copies len(dst) bytes from the ring starting at offset&mask into
// dst, wrapping at most once.
func (r *Ring) ReadData(offset uint32, dst []byte) {
	readSpan(r.data, r.mask, offset, dst)
}

// CheckWritable returns errs.ErrNoSpace if needed bytes do not fit in the
// ring's remaining capacity.
func (r *Ring) CheckWritable(needed uint32) error {
	filled, _ := r.GetWriteIndex()
	if r.Size()-filled < needed {
		return errs.ErrNoSpace
	}
	return nil
}

// CheckReadable returns errs.ErrEnumEnd if fewer than needed bytes are
// readable.
func (r *Ring) CheckReadable(needed uint32) error {
	filled, _ := r.GetReadIndex()
	if filled < needed {
		return errs.ErrEnumEnd
	}
	return nil
}
