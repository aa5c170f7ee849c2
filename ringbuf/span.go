package ringbuf

import "github.com/graphkit/graphd/gridbuf"

// writeSpan and readSpan perform the ring's mandatory wrap reconstruction:
// a logical window that crosses the end of the backing array is always
// exactly two contiguous spans (head, wrapped tail). readSpan reassembles
// its span pair with gridbuf.ReadBuffer, the same chunk-list reassembly
// gridbuf uses for an arbitrary number of chunks, here always handed
// exactly two: the physical tail at offset and the backing array's start,
// which is where any wrap continues. writeSpan has no counterpart in
// gridbuf (its WriteBuffer accumulates chunks for a later vectored write,
// it does not copy into a fixed, already-allocated destination at an
// arbitrary offset), so it stays hand-rolled.

func writeSpan(data []byte, mask, offset uint32, src []byte) {
	pos := offset & mask
	size := mask + 1
	n := uint32(len(src))
	first := size - pos
	if first >= n {
		copy(data[pos:], src)
		return
	}
	copy(data[pos:], src[:first])
	copy(data[:n-first], src[first:])
}

func readSpan(data []byte, mask, offset uint32, dst []byte) {
	pos := offset & mask
	rb := gridbuf.NewReadBuffer([][]byte{data[pos:], data})
	rb.CopyBytes(dst)
	rb.Free()
}
