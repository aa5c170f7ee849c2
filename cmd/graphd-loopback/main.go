// Command graphd-loopback loads a single loopback module outside the
// full scheduler core, per §6's "a loopback tool loading a loopback
// module", useful for exercising the Node Process Loop, Buffer Pool, and
// DLL without a configuration file or a second process on the other end
// of a Transport Endpoint.
//
// With --record, every cycle's output buffer is appended to a file via
// io_uring instead of being discarded, so the tool doubles as a minimal
// capture utility.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graphkit/graphd/bufferpool"
	"github.com/graphkit/graphd/dll"
	"github.com/graphkit/graphd/internal/iouring"
	"github.com/graphkit/graphd/node"
	"github.com/graphkit/graphd/nodes"
	"github.com/graphkit/graphd/shm"
)

var cmd runArgs

type runArgs struct {
	Cycles     int
	Period     time.Duration
	BufferSize int
	RecordPath string
}

var rootCmd = &cobra.Command{
	Use:   "graphd-loopback",
	Short: "Run a standalone loopback node for a fixed number of cycles",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().IntVar(&cmd.Cycles, "cycles", 100, "number of process_cycle iterations to run")
	rootCmd.Flags().DurationVar(&cmd.Period, "period", 10*time.Millisecond, "nominal cycle period")
	rootCmd.Flags().IntVar(&cmd.BufferSize, "buffer-size", 4096, "buffer size in bytes")
	rootCmd.Flags().StringVar(&cmd.RecordPath, "record", "", "append each cycle's output buffer to this file via io_uring")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(args runArgs) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	alloc, err := bufferpool.NewBuddyArena(args.BufferSize*8, 1024, args.BufferSize*8)
	if err != nil {
		return fmt.Errorf("arena: %w", err)
	}
	pool, err := bufferpool.New(alloc, 4, uint32(args.BufferSize))
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}

	lb := nodes.NewLoopback()
	var in, out shm.PortIOSlot
	in.BufferID = shm.BufferIDInvalid
	lb.SetIO(0, node.DirectionInput, &in)
	lb.SetIO(0, node.DirectionOutput, &out)

	recorder, err := newRecorder(args.RecordPath)
	if err != nil {
		return fmt.Errorf("open recorder: %w", err)
	}
	defer recorder.Close()

	driver := node.NewDriver("loopback", lb, log)
	filter := dll.New()
	var position uint64

	for i := 0; i < args.Cycles; i++ {
		position += uint64(args.Period.Nanoseconds())
		cc := &node.CycleContext{
			Position: node.Position{
				ClockID:  1,
				Position: position,
				Duration: uint64(args.Period.Nanoseconds()),
				Rate:     48000,
			},
			Pool:         pool,
			DLL:          filter,
			TargetBuffer: 1,
		}
		if err := driver.RunCycle(cc); err != nil {
			return fmt.Errorf("cycle %d: %w", i, err)
		}

		if out.Status == shm.PortStatusHaveBuffer {
			if err := recorder.Write(pool, out.BufferID); err != nil {
				return fmt.Errorf("cycle %d: record: %w", i, err)
			}
		}
	}

	log.Infow("loopback run complete", "cycles", args.Cycles)
	return nil
}

// recorder appends each cycle's output buffer to a file. A nil *os.File
// means --record was not set; Write is then a no-op.
type recorder struct {
	file *os.File
	loop *iouring.IOUringEventLoop
}

func newRecorder(path string) (*recorder, error) {
	if path == "" {
		return &recorder{}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	loop, err := iouring.NewIOUringEventLoop(iouring.DefaultConfig())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("new io_uring event loop: %w", err)
	}
	return &recorder{file: f, loop: loop}, nil
}

func (r *recorder) Write(pool *bufferpool.Pool, id uint32) error {
	if r.file == nil {
		return nil
	}
	entry := pool.Entry(id)
	if entry == nil {
		return fmt.Errorf("record: unknown buffer id %d", id)
	}
	_, err := r.loop.Write(int32(r.file.Fd()), entry.Data)
	return err
}

func (r *recorder) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
