package ringbuf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphkit/graphd/errs"
)

func newTestRing(t *testing.T, size uint32) *Ring {
	t.Helper()
	hdr := &Header{}
	Init(hdr, size)
	data := make([]byte, size)
	r, err := New(hdr, data)
	require.NoError(t, err)
	return r
}

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	hdr := &Header{Size: 100}
	_, err := New(hdr, make([]byte, 100))
	require.ErrorIs(t, err, errs.ErrInvalidArguments)
}

func TestFullWriteThenOneMoreByteOverflows(t *testing.T) {
	r := newTestRing(t, 4096)
	require.NoError(t, r.CheckWritable(4096))

	_, wi := r.GetWriteIndex()
	r.WriteData(wi, make([]byte, 4096))
	r.WriteUpdate(wi + 4096)

	require.ErrorIs(t, r.CheckWritable(1), errs.ErrNoSpace)
}

func TestEmptyReadReturnsEnumEnd(t *testing.T) {
	r := newTestRing(t, 4096)
	require.ErrorIs(t, r.CheckReadable(8), errs.ErrEnumEnd)
}

func TestWrapBoundaryRoundTrip(t *testing.T) {
	r := newTestRing(t, 4096)

	// advance both indices to size-3 by matched zero writes/reads
	advance := uint32(4096 - 3)
	_, wi := r.GetWriteIndex()
	r.WriteData(wi, make([]byte, advance))
	r.WriteUpdate(wi + advance)
	_, ri := r.GetReadIndex()
	r.ReadData(ri, make([]byte, advance))
	r.ReadUpdate(ri + advance)

	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = byte(i)
	}
	_, wi = r.GetWriteIndex()
	r.WriteData(wi, payload)
	r.WriteUpdate(wi + 10)

	out := make([]byte, 10)
	_, ri = r.GetReadIndex()
	r.ReadData(ri, out)
	r.ReadUpdate(ri + 10)

	require.Equal(t, payload, out)
}

func TestDataIntegrityAcrossManyWrappedWrites(t *testing.T) {
	r := newTestRing(t, 256)
	rng := rand.New(rand.NewSource(1))

	var written, read []byte
	for i := 0; i < 5000; i++ {
		n := uint32(1 + rng.Intn(40))
		if err := r.CheckWritable(n); err == nil {
			buf := make([]byte, n)
			rng.Read(buf)
			_, wi := r.GetWriteIndex()
			r.WriteData(wi, buf)
			r.WriteUpdate(wi + n)
			written = append(written, buf...)
		}
		if err := r.CheckReadable(n); err == nil {
			buf := make([]byte, n)
			_, ri := r.GetReadIndex()
			r.ReadData(ri, buf)
			r.ReadUpdate(ri + n)
			read = append(read, buf...)
		}
	}
	// drain whatever remains so written == read in full
	filled, ri := r.GetReadIndex()
	rest := make([]byte, filled)
	r.ReadData(ri, rest)
	r.ReadUpdate(ri + filled)
	read = append(read, rest...)

	require.Equal(t, written, read)
}

func TestIndexDeltaAfterRoundTrip(t *testing.T) {
	r := newTestRing(t, 4096)
	_, wiBefore := r.GetWriteIndex()
	_, riBefore := r.GetReadIndex()

	buf := make([]byte, 100)
	_, wi := r.GetWriteIndex()
	r.WriteData(wi, buf)
	r.WriteUpdate(wi + 100)

	_, ri := r.GetReadIndex()
	out := make([]byte, 100)
	r.ReadData(ri, out)
	r.ReadUpdate(ri + 100)

	_, wiAfter := r.GetWriteIndex()
	_, riAfter := r.GetReadIndex()
	require.Equal(t, wiBefore+100, wiAfter)
	require.Equal(t, riBefore+100, riAfter)
}
