// Package errs defines the transport core's error-kind taxonomy.
//
// Each kind is a sentinel value compared with errors.Is; call sites wrap it
// with fmt.Errorf("...: %w", ...) to attach context without losing the kind.
package errs

import "errors"

var (
	// ErrInvalidArguments covers a null endpoint/event, an unaligned size,
	// or a ring size that is not a power of two.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrNoMemory covers allocator, mmap, or memfd failures.
	ErrNoMemory = errors.New("no memory")

	// ErrNoSpace is returned when a ring write exceeds the remaining capacity.
	ErrNoSpace = errors.New("no space")

	// ErrEnumEnd is not a failure: it is the end-of-iteration sentinel
	// returned when fewer than a header's worth of bytes are readable.
	ErrEnumEnd = errors.New("enum end")

	// ErrMapFailed covers mmap failing on client attach.
	ErrMapFailed = errors.New("map failed")

	// ErrProtocol covers an area header or transport_info version mismatch
	// on attach.
	ErrProtocol = errors.New("protocol mismatch")

	// ErrFlushing is returned by Pool.Acquire while the pool is flushing.
	// It is not logged as an error.
	ErrFlushing = errors.New("flushing")
)
