package controlchan

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/graphkit/graphd/netx"
)

// Client is a reconnecting control-channel endpoint, grounded on the
// pack's BIRD import reconnect loop: an exponential backoff ticker
// drives redial attempts. Reconnect logs each failed redial at warn level
// and a successful one at info level; Dial logs nothing.
type Client struct {
	sockPath string
	log      *zap.SugaredLogger

	conn netx.Conn
}

// Dial connects once to sockPath without any retry; used for the initial
// connection attempt where the caller wants an immediate error.
func Dial(sockPath string, log *zap.SugaredLogger) (*Client, error) {
	c := &Client{sockPath: sockPath, log: log}
	if err := c.dialOnce(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) dialOnce() error {
	raw, err := net.Dial("unix", c.sockPath)
	if err != nil {
		return fmt.Errorf("controlchan: dial %s: %w", c.sockPath, err)
	}
	wrapped, err := netx.Wrap(raw)
	if err != nil {
		_ = raw.Close()
		return fmt.Errorf("controlchan: wrap %s: %w", c.sockPath, err)
	}
	c.conn = wrapped
	return nil
}

// Conn returns the current underlying connection. Valid only until the
// next successful Reconnect.
func (c *Client) Conn() netx.Conn { return c.conn }

// Close closes the current underlying connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Reconnect redials sockPath with exponential backoff until it succeeds
// or ctx is cancelled. It replaces Conn() on success.
func (c *Client) Reconnect(ctx context.Context) error {
	if c.conn != nil {
		_ = c.conn.Close()
	}

	ticker := backoff.NewTicker(&backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         30 * time.Second,
	})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.dialOnce(); err != nil {
				c.log.Warnw("control channel reconnect failed, retrying", zap.Error(err))
				continue
			}
			c.log.Info("control channel reconnected")
			return nil
		}
	}
}
