// Package transport implements the Control Record framing, Transport
// Endpoint, and Transport Factory described in the specification: the
// symmetric add_event/next_event/parse_event contract layered over a pair
// of shared-memory rings, and the server/client construction paths that
// produce an Endpoint.
package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/graphkit/graphd/errs"
)

// RecordHeaderSize is the fixed 8-byte control record header: type and size,
// both little-endian u32.
const RecordHeaderSize = 8

// Event is one Control Record: a self-describing type tag plus body.
type Event struct {
	Type uint32
	Body []byte
}

// EventHeader is the non-destructively peeked header of the next event on
// an incoming ring, as returned by Endpoint.NextEvent.
type EventHeader struct {
	Type uint32
	Size uint32
}

func encodeHeader(dst []byte, typ, size uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], typ)
	binary.LittleEndian.PutUint32(dst[4:8], size)
}

func decodeHeader(src []byte) (typ, size uint32) {
	return binary.LittleEndian.Uint32(src[0:4]), binary.LittleEndian.Uint32(src[4:8])
}

// validateSize rejects a declared body size that cannot possibly fit in a
// ring of the given capacity, independent of current fill level.
func validateSize(size, ringCapacity uint32) error {
	if size > ringCapacity-RecordHeaderSize {
		return fmt.Errorf("record size %d exceeds ring capacity %d: %w", size, ringCapacity, errs.ErrNoSpace)
	}
	return nil
}
