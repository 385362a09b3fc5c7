package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/nodesub/internal/cliconfig"
)

const longHelp = `Subscribe to a CometBFT node's event stream and print events as JSON.

nodesub connects to the node's /websocket RPC endpoint, subscribes to one
event type and prints the requested number of events to stdout before
closing the connection. Logs go to stderr.

Configuration is read from $HOME/.nodesub/config.toml, then NODESUB_*
environment variables, then flags. With --node-home the chain id and RPC
listen address are discovered from the node's config directory.`

var exampleUsage = strings.TrimSpace(`
  nodesub
  nodesub --rpc-addr rpc.example.com --rpc-port 443 --secure --count 10
  nodesub --node-home ~/.gaia --event NewBlockHeader --count 0 --compact
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger(zerolog.InfoLevel)

	root := &cobra.Command{
		Use:          "nodesub",
		Short:        "Print events from a CometBFT node's websocket event stream",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cliconfig.LoadNodeInfo(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := cliconfig.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			log = logger
			log.Debug().Interface("config", cfg).Msg("configuration")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, log, cmd.OutOrStdout())
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.nodesub/config.toml)")
	root.Flags().StringVar(&cfg.RPCAddr, "rpc-addr", cfg.RPCAddr, "node RPC host")
	root.Flags().IntVar(&cfg.RPCPort, "rpc-port", cfg.RPCPort, "node RPC port")
	root.Flags().BoolVar(&cfg.Secure, "secure", cfg.Secure, "connect with TLS (wss)")
	root.Flags().StringVar(&cfg.NodeHome, "node-home", "", "node home directory used to discover chain id and RPC address")
	root.Flags().StringVar(&cfg.ChainID, "chain-id", "", "expected chain id; blocks from other chains are reported")

	root.Flags().StringVar(&cfg.Event, "event", cfg.Event, "event type to subscribe to (NewBlock, NewBlockHeader, Tx, ...)")
	root.Flags().IntVarP(&cfg.Count, "count", "n", cfg.Count, "number of events to print, 0 for no limit")
	root.Flags().BoolVar(&cfg.Compact, "compact", cfg.Compact, "print one event per line")

	root.Flags().DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "timeout for connecting and subscribing")
	root.Flags().DurationVar(&cfg.PingInterval, "ping-interval", cfg.PingInterval, "websocket keepalive interval, 0 to disable")
	root.Flags().IntVar(&cfg.ReadLimit, "read-limit", cfg.ReadLimit, "maximum websocket message size in bytes")
	if err := root.Flags().MarkHidden("read-limit"); err != nil {
		log.Info().Err(err).Msg("failed to hide read-limit flag")
	}

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9100)")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("nodesub")
		os.Exit(1)
	}
}
