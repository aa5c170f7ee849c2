package controlchan

import (
	"encoding/binary"
	"fmt"

	"github.com/graphkit/graphd/transport"
)

// transportInfoWireSize is fd(4) + offset(8) + size(8) + version(4).
const transportInfoWireSize = 4 + 8 + 8 + 4

// EncodeTransportInfo serializes info for transmission over the control
// channel (§6's transport_info, extended with the version field this
// implementation adds — see SPEC_FULL.md §3). Only the sender's numeric fd
// is framed; no descriptor is passed along with the frame.
func EncodeTransportInfo(info transport.TransportInfo) []byte {
	buf := make([]byte, transportInfoWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(info.FD))
	binary.LittleEndian.PutUint64(buf[4:12], uint64(info.Offset))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(info.Size))
	binary.LittleEndian.PutUint32(buf[20:24], info.Version)
	return buf
}

// DecodeTransportInfo parses a transport_info body produced by
// EncodeTransportInfo. The decoded FD is the sender's own descriptor
// number, not a descriptor open in the receiving process.
func DecodeTransportInfo(body []byte) (transport.TransportInfo, error) {
	if len(body) != transportInfoWireSize {
		return transport.TransportInfo{}, fmt.Errorf("controlchan: transport_info wire size %d, want %d", len(body), transportInfoWireSize)
	}
	return transport.TransportInfo{
		FD:      int(binary.LittleEndian.Uint32(body[0:4])),
		Offset:  int64(binary.LittleEndian.Uint64(body[4:12])),
		Size:    int64(binary.LittleEndian.Uint64(body[12:20])),
		Version: binary.LittleEndian.Uint32(body[20:24]),
	}, nil
}
