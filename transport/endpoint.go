package transport

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/graphkit/graphd/errs"
	"github.com/graphkit/graphd/ringbuf"
	"github.com/graphkit/graphd/shm"
	"github.com/graphkit/graphd/unsafex"
)

// Endpoint owns one Shared Region and presents the direction-neutral
// send/receive event API. A server Endpoint and a client Endpoint
// constructed from the same region see each other's sent events on their
// respective receive rings (§3 "client and server see inverted views").
type Endpoint struct {
	region *shm.Region
	send   *ringbuf.Ring
	recv   *ringbuf.Ring

	// fd/buf are set when the endpoint owns its mapping (both server and
	// client constructions via Factory); Close releases them. An endpoint
	// built directly with NewEndpoint over caller-owned memory (as in
	// tests) has a -1 fd and a nil buf, and Close releases nothing.
	fd  int
	buf []byte

	// current caches the last peeked header so ParseEvent can validate
	// and consume the matching body exactly once.
	current    EventHeader
	havePeek   bool
	peekOffset uint32 // absolute read index at which the header was peeked

	log *zap.SugaredLogger
}

// NewEndpoint wraps region as an Endpoint, binding its send/receive rings
// once for the lifetime of the endpoint.
func NewEndpoint(region *shm.Region) (*Endpoint, error) {
	sendHdr, sendData := region.SendRing()
	send, err := ringbuf.New(sendHdr, sendData)
	if err != nil {
		return nil, err
	}
	recvHdr, recvData := region.ReceiveRing()
	recv, err := ringbuf.New(recvHdr, recvData)
	if err != nil {
		return nil, err
	}
	return &Endpoint{region: region, send: send, recv: recv, fd: -1, log: zap.NewNop().Sugar()}, nil
}

// SetLogger attaches log for AddEvent/ParseEvent's debug-level record body
// tracing. A freshly constructed Endpoint logs to a no-op sink until this
// is called.
func (e *Endpoint) SetLogger(log *zap.SugaredLogger) {
	if log != nil {
		e.log = log
	}
}

// Close unmaps the endpoint's shared region and, if the endpoint owns its
// backing fd, closes it. Destruction of one peer does not invalidate the
// other's mapping (§4.2): the sealed memfd and the other side's mapping
// are unaffected by this call.
func (e *Endpoint) Close() error {
	var err error
	if e.buf != nil {
		err = shm.Unmap(e.buf)
		e.buf = nil
	}
	if e.fd >= 0 {
		if cerr := closeFD(e.fd); cerr != nil && err == nil {
			err = cerr
		}
		e.fd = -1
	}
	return err
}

// AddEvent reserves header+body contiguous bytes on the outgoing ring and
// publishes them, or fails with errs.ErrNoSpace and emits no bytes at all.
func (e *Endpoint) AddEvent(evt Event) error {
	total := uint32(RecordHeaderSize + len(evt.Body))
	if err := validateSize(uint32(len(evt.Body)), e.send.Size()); err != nil {
		return err
	}
	if err := e.send.CheckWritable(total); err != nil {
		return err
	}

	hdr := make([]byte, RecordHeaderSize)
	encodeHeader(hdr, evt.Type, uint32(len(evt.Body)))

	_, wi := e.send.GetWriteIndex()
	e.send.WriteData(wi, hdr)
	e.send.WriteData(wi+RecordHeaderSize, evt.Body)
	e.send.WriteUpdate(wi + total)

	e.log.Debugw("add_event", "type", evt.Type, "size", len(evt.Body), "body", unsafex.BinaryToString(evt.Body))
	return nil
}

// NextEvent non-destructively peeks the header of the next event on the
// incoming ring. Returns errs.ErrEnumEnd if fewer than RecordHeaderSize
// bytes are readable.
func (e *Endpoint) NextEvent() (EventHeader, error) {
	if err := e.recv.CheckReadable(RecordHeaderSize); err != nil {
		return EventHeader{}, err
	}
	_, ri := e.recv.GetReadIndex()
	hdrBuf := make([]byte, RecordHeaderSize)
	e.recv.ReadData(ri, hdrBuf)
	typ, size := decodeHeader(hdrBuf)

	e.current = EventHeader{Type: typ, Size: size}
	e.havePeek = true
	e.peekOffset = ri
	return e.current, nil
}

// ParseEvent copies the current peeked event's body into dst and advances
// the read index past header+body. dst must be exactly the declared size;
// calling without a matching NextEvent peek is a programmer error.
func (e *Endpoint) ParseEvent(dst []byte) error {
	if !e.havePeek {
		return fmt.Errorf("parse_event without a matching next_event peek: %w", errs.ErrInvalidArguments)
	}
	if uint32(len(dst)) != e.current.Size {
		return fmt.Errorf("parse_event destination length %d does not match declared size %d: %w",
			len(dst), e.current.Size, errs.ErrInvalidArguments)
	}
	e.recv.ReadData(e.peekOffset+RecordHeaderSize, dst)
	e.recv.ReadUpdate(e.peekOffset + RecordHeaderSize + e.current.Size)
	e.havePeek = false

	e.log.Debugw("parse_event", "type", e.current.Type, "size", e.current.Size, "body", unsafex.BinaryToString(dst))
	return nil
}

// Region returns the endpoint's backing shared region, for callers that
// need direct port-slot access (the Node Process Loop).
func (e *Endpoint) Region() *shm.Region { return e.region }
