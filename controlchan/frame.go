// Package controlchan implements the side channel §6 describes for
// carrying the transport handshake (transport_info) and monitor events
// between graphd and its CLI tools, independent of the Shared Region's
// own Ring Buffer. It frames messages the same way the Ring Buffer does
// ([type: u32 LE][size: u32 LE][body]) so both surfaces share one mental
// model, but rides a plain stream socket instead of shared memory.
package controlchan

import (
	"encoding/binary"
	"fmt"

	"github.com/graphkit/graphd/bufiox"
	"github.com/graphkit/graphd/cache/mempool"
)

// Message types carried over the control channel.
const (
	TypeTransportInfo uint32 = 1
	TypeMonitorEvent  uint32 = 2
	TypePing          uint32 = 3
)

const frameHeaderSize = 8

// WriteFrame writes one [type][size][body] frame via w and flushes it.
func WriteFrame(w bufiox.Writer, msgType uint32, body []byte) error {
	buf, err := w.Malloc(frameHeaderSize + len(body))
	if err != nil {
		return fmt.Errorf("controlchan: malloc frame: %w", err)
	}
	binary.LittleEndian.PutUint32(buf[0:4], msgType)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(body)))
	copy(buf[8:], body)
	return w.Flush()
}

// ReadFrame blocks until one complete frame is available from r and
// returns its type and an owned copy of its body (safe to retain past
// r's next Release). The copy is carved out of mempool's size-classed
// pool rather than a fresh make([]byte, ...); callers that process the
// body immediately and discard it may return it with mempool.Free to
// let the next ReadFrame reuse the backing array, but are not required
// to — an unfreed body is just an ordinary, GC-reclaimed slice.
func ReadFrame(r bufiox.Reader) (msgType uint32, body []byte, err error) {
	hdr, err := r.Next(frameHeaderSize)
	if err != nil {
		return 0, nil, fmt.Errorf("controlchan: read header: %w", err)
	}
	msgType = binary.LittleEndian.Uint32(hdr[0:4])
	size := binary.LittleEndian.Uint32(hdr[4:8])

	raw, err := r.Next(int(size))
	if err != nil {
		return 0, nil, fmt.Errorf("controlchan: read body: %w", err)
	}
	body = mempool.Malloc(len(raw))
	copy(body, raw)
	if relErr := r.Release(nil); relErr != nil {
		return 0, nil, fmt.Errorf("controlchan: release: %w", relErr)
	}
	return msgType, body, nil
}
