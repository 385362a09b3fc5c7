package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bft-labs/nodesub/internal/cliconfig"
	"github.com/bft-labs/nodesub/internal/printer"
	"github.com/bft-labs/nodesub/pkg/client"
	"github.com/bft-labs/nodesub/pkg/log"
	"github.com/bft-labs/nodesub/pkg/rpc"
)

// run connects, prints cfg.Count events to out and closes the connection.
func run(ctx context.Context, cfg cliconfig.Config, logger zerolog.Logger, out io.Writer) (err error) {
	adapter := log.NewZerologAdapterWithLogger(logger)

	rpcOpts := []rpc.Option{
		rpc.WithLogger(adapter),
		rpc.WithPingInterval(cfg.PingInterval),
		rpc.WithReadLimit(int64(cfg.ReadLimit)),
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector, err := rpc.NewPrometheusCollector(reg)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		rpcOpts = append(rpcOpts, rpc.WithCollector(collector))

		srv := newMetricsServer(cfg.MetricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	node := cfg.NodeConfig()
	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	initialized, err := client.Initialize(dialCtx, node,
		client.WithLogger(adapter),
		client.WithRPCOptions(rpcOpts...),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to %s: %w", node.URI(), err)
	}
	logger.Info().Str("uri", node.URI()).Msg("connected")

	running, err := initialized.Start()
	if err != nil {
		_ = initialized.Close()
		return fmt.Errorf("start client: %w", err)
	}
	defer func() {
		if cerr := running.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close client: %w", cerr)
		}
	}()

	subCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	sub, err := running.Subscribe(subCtx, cfg.EventType())
	cancel()
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", cfg.Event, err)
	}
	logger.Info().Str("event", cfg.Event).Int("count", cfg.Count).Msg("subscribed")

	p := printer.New(out, cfg.Compact)
	n, err := printer.Take(ctx, sub, cfg.Count,
		func(ev rpc.Event) error {
			checkChainID(logger, cfg.ChainID, ev)
			return p.Print(ev)
		},
		func(err error) {
			logger.Warn().Err(err).Msg("skipping event")
		},
	)
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("interrupted")
		err = nil
	}
	if err != nil {
		return err
	}

	logger.Info().Int("events", n).Msg("done")
	return nil
}

// checkChainID warns when a block event belongs to another chain than the
// expected one. Other event types are not inspected.
func checkChainID(logger zerolog.Logger, want string, ev rpc.Event) {
	if want == "" {
		return
	}
	var header rpc.Header
	if nb, err := ev.NewBlock(); err == nil {
		header = nb.Block.Header
	} else if nh, err := ev.NewBlockHeader(); err == nil {
		header = nh.Header
	} else {
		return
	}
	if header.ChainID != want {
		logger.Warn().
			Str("chain_id", header.ChainID).
			Str("expected", want).
			Str("height", header.Height).
			Msg("block from unexpected chain")
	}
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
