package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/search"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds the listen addresses of the serve command.
type ServeOptions struct {
	MetricsAddr string
	GRPCAddr    string
}

// NewServeCmd starts the backend: scheduled collation into the configured sink,
// Prometheus metrics over HTTP and the gRPC health service.
func NewServeCmd() *cobra.Command {
	var opts ServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", ":9464", "HTTP listen address for /metrics and /healthz")
	cmd.Flags().StringVar(&opts.GRPCAddr, "grpc-addr", ":9465", "gRPC listen address for the health service")
	return cmd
}

func runServe(ctx context.Context, opts ServeOptions) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b, err := newBackend(reg)
	if err != nil {
		return err
	}
	if err = b.Start(ctx); err != nil {
		return err
	}

	sink, err := search.NewSinkFromConfig(ctx, config.GetGlobalConfig().Search.Sink)
	if err != nil {
		_ = b.Stop(context.Background())
		return err
	}
	builder := search.NewIndexBuilder(b.Services().IndexRegistry, sink, &logger)
	if err = builder.Build(ctx); err != nil {
		_ = b.Stop(context.Background())
		_ = sink.Close()
		return err
	}

	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	httpSrv := &http.Server{Addr: opts.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	grpcLis, err := net.Listen("tcp", opts.GRPCAddr)
	if err != nil {
		_ = b.Stop(context.Background())
		_ = sink.Close()
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", opts.GRPCAddr).Msg("grpc health service listening")
		return grpcSrv.Serve(grpcLis)
	})
	g.Go(func() error {
		logger.Info().Str("addr", opts.MetricsAddr).Msg("metrics listening")
		if serveErr := httpSrv.ListenAndServe(); !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("shutting down")
		healthSrv.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcSrv.GracefulStop()
		httpErr := httpSrv.Shutdown(shutdownCtx)
		return errors.Join(httpErr, b.Stop(shutdownCtx), sink.Close())
	})

	return g.Wait()
}
