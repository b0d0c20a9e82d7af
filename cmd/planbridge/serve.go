package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/hugr-lab/planbridge"
	"github.com/hugr-lab/planbridge/internal/observability"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr           string
	publicAddr     string
	metricsAddr    string
	maxMessageSize int
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve plan execution over Arrow Flight",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := planbridge.LoadConfig(envPrefix)
			if err != nil {
				return err
			}
			b, err := planbridge.New(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, b, cfg.Logger, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":50051", "gRPC listen address")
	cmd.Flags().StringVar(&opts.publicAddr, "public-addr", "", "address advertised in flight endpoints")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", ":9464", "Prometheus metrics listen address, empty to disable")
	cmd.Flags().IntVar(&opts.maxMessageSize, "max-message-size", 0, "gRPC message size cap in bytes")
	return cmd
}

// serve runs the Flight and metrics listeners until ctx is cancelled or one
// of them fails.
func serve(ctx context.Context, b *planbridge.Bridge, logger *slog.Logger, opts serveOptions) error {
	config := planbridge.ServerConfig{
		Bridge:         b,
		Logger:         logger,
		Address:        opts.publicAddr,
		MaxMessageSize: opts.maxMessageSize,
	}
	grpcServer := grpc.NewServer(planbridge.ServerOptions(config)...)
	if err := planbridge.NewServer(grpcServer, config); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.addr, err)
	}

	var metrics *http.Server
	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		metrics = &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Flight server listening", "addr", lis.Addr().String())
		return grpcServer.Serve(lis)
	})
	if metrics != nil {
		g.Go(func() error {
			logger.Info("Metrics server listening", "addr", opts.metricsAddr)
			if err := metrics.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		grpcServer.GracefulStop()
		if metrics != nil {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return metrics.Shutdown(sctx)
		}
		return nil
	})
	return g.Wait()
}
