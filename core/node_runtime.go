package core

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/graphkit/graphd/bufferpool"
	"github.com/graphkit/graphd/config"
	"github.com/graphkit/graphd/dll"
	"github.com/graphkit/graphd/loop"
	"github.com/graphkit/graphd/node"
	"github.com/graphkit/graphd/transport"
)

// defaultCyclePeriod paces a node's process_cycle dispatch when no real
// hardware clock source drives it. A data-thread deployment would instead
// wake on the device's own interrupt or timerfd matched to its rate; this
// orchestration layer only needs *a* steady heartbeat to exercise the
// Node Process Loop and DLL.
const defaultCyclePeriod = 10 * time.Millisecond

// nodeRuntime bundles one configured node instance with the resources
// its Driver needs each cycle: its Transport Endpoint, Buffer Pool, DLL,
// and the timer source pacing it.
type nodeRuntime struct {
	name   string
	proc   node.Processor
	driver *node.Driver

	factory  *transport.Factory
	endpoint *transport.Endpoint
	info     transport.TransportInfo
	pool     *bufferpool.Pool
	alloc    bufferpool.Allocator
	filter   *dll.Filter

	timer    *loop.Source
	position uint64
	clockID  uint64
}

func newNodeRuntime(cfg config.NodeConfig, reg *node.Registry, log *zap.SugaredLogger) (*nodeRuntime, error) {
	proc, err := reg.Lookup(cfg.Type)
	if err != nil {
		return nil, fmt.Errorf("core: node %q: %w", cfg.Name, err)
	}

	maxInputs, maxOutputs := countPorts(proc.Ports())

	factory := transport.NewFactory(4096)
	endpoint, info, err := factory.NewServerEndpoint(cfg.Name, maxInputs, maxOutputs)
	if err != nil {
		return nil, fmt.Errorf("core: node %q: new server endpoint: %w", cfg.Name, err)
	}
	endpoint.SetLogger(log.Named(cfg.Name))

	bufSize := uint32(cfg.BufferSize.Bytes())
	if bufSize == 0 {
		bufSize = 4096
	}
	count := cfg.BufferCount
	if count <= 0 {
		count = 4
	}
	alloc, err := bufferpool.NewBuddyArena(int(bufSize)*count*2, 1024, int(bufSize)*count*2)
	if err != nil {
		_ = endpoint.Close()
		return nil, fmt.Errorf("core: node %q: arena: %w", cfg.Name, err)
	}
	pool, err := bufferpool.New(alloc, count, bufSize)
	if err != nil {
		_ = endpoint.Close()
		return nil, fmt.Errorf("core: node %q: pool: %w", cfg.Name, err)
	}

	rt := &nodeRuntime{
		name:     cfg.Name,
		proc:     proc,
		driver:   node.NewDriver(cfg.Name, proc, log.Named(cfg.Name)),
		factory:  factory,
		endpoint: endpoint,
		info:     info,
		pool:     pool,
		alloc:    alloc,
		filter:   dll.New(),
		clockID:  1,
	}
	region := endpoint.Region()
	for _, port := range proc.Ports() {
		if port.Direction == node.DirectionInput {
			proc.SetIO(port.ID, port.Direction, region.InputSlot(uint32(port.ID)))
		} else {
			proc.SetIO(port.ID, port.Direction, region.OutputSlot(uint32(port.ID)))
		}
	}
	return rt, nil
}

func countPorts(ports []node.PortSpec) (inputs, outputs uint32) {
	for _, p := range ports {
		if p.Direction == node.DirectionInput {
			inputs++
		} else {
			outputs++
		}
	}
	return inputs, outputs
}

// arm registers rt's periodic timer source on l.
func (rt *nodeRuntime) arm(l *loop.Loop) error {
	src, err := l.AddTimerSource(func(s *loop.Source) { rt.runCycle() })
	if err != nil {
		return fmt.Errorf("core: node %q: add timer source: %w", rt.name, err)
	}
	if err := l.UpdateTimer(src, defaultCyclePeriod, true); err != nil {
		return fmt.Errorf("core: node %q: arm timer: %w", rt.name, err)
	}
	rt.timer = src
	return nil
}

func (rt *nodeRuntime) runCycle() {
	rt.position += uint64(defaultCyclePeriod.Nanoseconds())
	cc := &node.CycleContext{
		Position: node.Position{
			ClockID:  rt.clockID,
			Position: rt.position,
			Duration: uint64(defaultCyclePeriod.Nanoseconds()),
			Rate:     48000,
		},
		Pool:         rt.pool,
		DLL:          rt.filter,
		Region:       rt.endpoint.Region(),
		TargetBuffer: 1,
	}
	_ = rt.driver.RunCycle(cc)
}

func (rt *nodeRuntime) close() error {
	return rt.endpoint.Close()
}
