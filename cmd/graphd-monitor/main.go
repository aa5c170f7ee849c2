// Command graphd-monitor connects to a running graphd core's control
// channel and prints every transport_info and monitor event it receives,
// per §6's "monitor tool printing object additions/changes/removals".
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/graphkit/graphd/controlchan"
)

var cmd runArgs

type runArgs struct {
	SocketPath string
}

var rootCmd = &cobra.Command{
	Use:   "graphd-monitor",
	Short: "Print graphd object additions, changes, and removals",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run(cmd)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.SocketPath, "socket", "s", "/run/graphd/control.sock", "path to graphd's control socket")
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

	client, err := controlchan.Dial(args.SocketPath, log)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer client.Close()

	for {
		msgType, body, err := controlchan.ReadFrame(client.Conn().Reader())
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		switch msgType {
		case controlchan.TypeTransportInfo:
			info, err := controlchan.DecodeTransportInfo(body)
			if err != nil {
				log.Warnw("malformed transport_info frame", zap.Error(err))
				continue
			}
			fmt.Printf("transport_info: offset=%d size=%d version=%d\n", info.Offset, info.Size, info.Version)
		case controlchan.TypeMonitorEvent:
			fmt.Printf("event: %s\n", string(body))
		default:
			log.Debugw("unknown control frame type", "type", msgType)
		}
	}
}
