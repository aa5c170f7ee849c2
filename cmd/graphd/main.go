// Command graphd runs the scheduler core: it loads a node graph from a
// YAML configuration file and drives it until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/graphkit/graphd/config"
	"github.com/graphkit/graphd/core"
	"github.com/graphkit/graphd/node"
	"github.com/graphkit/graphd/nodes"
)

var cmd runArgs

type runArgs struct {
	ConfigPath string
}

var rootCmd = &cobra.Command{
	Use:   "graphd",
	Short: "graphd runs the multimedia graph scheduler core",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := run(cmd); err != nil {
			if errors.Is(err, errInterrupted) {
				return nil
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ConfigPath, "config", "c", "", "path to the configuration file (required)")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(args runArgs) error {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Development = false
	zcfg.Level.SetLevel(zap.InfoLevel)

	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg := node.NewRegistry()
	reg.Register("loopback", nodes.NewLoopback)
	if err := reg.Build(); err != nil {
		return fmt.Errorf("build node registry: %w", err)
	}

	c, err := core.New(cfg, reg, core.WithLog(log))
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer c.Close()

	ctx := context.Background()
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return c.Run(ctx)
	})
	wg.Go(func() error {
		err := waitInterrupted(ctx)
		log.Infow("caught signal", zap.Error(err))
		return err
	})

	return wg.Wait()
}

type interrupted struct{ os.Signal }

func (interrupted) Error() string { return "interrupted" }

var errInterrupted error = interrupted{}

func waitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case v := <-ch:
		return interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
