// Package core wires together the configured node graph, the Main Loop,
// and the control channel listener into one runnable scheduler process,
// the way the pack's coordinator package wires its registry, gRPC
// server, and built-in modules into one Coordinator.
package core

import (
	"context"
	"fmt"
	"net"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/graphkit/graphd/config"
	"github.com/graphkit/graphd/controlchan"
	"github.com/graphkit/graphd/loop"
	"github.com/graphkit/graphd/netx"
	"github.com/graphkit/graphd/node"
)

// Core is the scheduler process: one Main Loop, one control channel
// listener, and the set of node runtimes the configuration declares.
type Core struct {
	cfg      *config.Config
	registry *node.Registry
	log      *zap.SugaredLogger

	loop     *loop.Loop
	runtimes []*nodeRuntime
}

// New builds a Core from cfg, resolving every configured node against
// reg. Nodes that fail to resolve or construct are reported as an error
// before Run is ever called.
func New(cfg *config.Config, reg *node.Registry, opts ...Option) (*Core, error) {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	l, err := loop.New()
	if err != nil {
		return nil, fmt.Errorf("core: open loop: %w", err)
	}

	c := &Core{cfg: cfg, registry: reg, log: o.Log, loop: l}

	for _, nc := range cfg.Graph {
		rt, err := newNodeRuntime(nc, reg, o.Log)
		if err != nil {
			_ = l.Close()
			return nil, err
		}
		c.runtimes = append(c.runtimes, rt)
	}
	return c, nil
}

// Close tears down every node runtime and the loop.
func (c *Core) Close() error {
	for _, rt := range c.runtimes {
		_ = rt.close()
	}
	return c.loop.Close()
}

// Run arms every node's cycle timer, starts the control channel
// listener, and drives the Main Loop until ctx is cancelled.
func (c *Core) Run(ctx context.Context) error {
	c.log.Infow("starting graphd core", "nodes", len(c.runtimes))
	defer c.log.Info("graphd core stopped")

	for _, rt := range c.runtimes {
		if err := rt.arm(c.loop); err != nil {
			return err
		}
	}

	if c.cfg.Core.ControlSocket != "" {
		_ = os.Remove(c.cfg.Core.ControlSocket)
		listener, err := net.Listen("unix", c.cfg.Core.ControlSocket)
		if err != nil {
			return fmt.Errorf("core: listen control socket: %w", err)
		}
		defer listener.Close()

		wg, gctx := errgroup.WithContext(ctx)
		wg.Go(func() error { return c.serveControlChannel(gctx, listener) })
		wg.Go(func() error { return c.runLoop(gctx) })
		return wg.Wait()
	}

	return c.runLoop(ctx)
}

func (c *Core) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.loop.Iterate(defaultCyclePeriod); err != nil {
			return fmt.Errorf("core: loop iterate: %w", err)
		}
	}
}

func (c *Core) serveControlChannel(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("core: accept control connection: %w", err)
		}
		go c.handleControlConn(conn)
	}
}

func (c *Core) handleControlConn(conn net.Conn) {
	defer conn.Close()

	wrapped, err := netx.Wrap(conn)
	if err != nil {
		c.log.Warnw("control channel: wrap connection failed", zap.Error(err))
		return
	}

	for _, rt := range c.runtimes {
		body := controlchan.EncodeTransportInfo(rt.info)
		if err := controlchan.WriteFrame(wrapped.Writer(), controlchan.TypeTransportInfo, body); err != nil {
			c.log.Warnw("control channel: write transport_info failed", zap.Error(err))
			return
		}
	}
}
