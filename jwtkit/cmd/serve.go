package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mydebugger/jwtkit/jwtkit/internal/api"
	"github.com/mydebugger/jwtkit/pkg/jwtkit"
	"github.com/mydebugger/jwtkit/pkg/logger"
	"github.com/mydebugger/jwtkit/pkg/policy"
	"github.com/mydebugger/jwtkit/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API",
	Long: `Serve exposes decode, verify, sign, analyze and JWKS matching as JSON
endpoints under /v1. Health probes and Prometheus metrics are served on the
health port.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on")
	serveCmd.Flags().String("host", "", "Host to bind to")
	serveCmd.Flags().Int("health-port", 0, "Port for /health, /ready and /metrics")
	serveCmd.Flags().Bool("policy", false, "Evaluate /v1/analyze results with the Rego policy")

	v.BindPFlag("service.port", serveCmd.Flags().Lookup("port"))
	v.BindPFlag("service.host", serveCmd.Flags().Lookup("host"))
	v.BindPFlag("service.health_port", serveCmd.Flags().Lookup("health-port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	otelShutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:       "jwtkit",
		Enabled:           cfg.OTel.Enabled,
		CollectorEndpoint: cfg.OTel.CollectorEndpoint,
		SampleRatio:       cfg.OTel.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer otelShutdown(ctx)

	apiLog := log.For(logger.ComponentAPI)

	usePolicy, _ := cmd.Flags().GetBool("policy")
	var engine *policy.Engine
	if usePolicy || cfg.Policy.Enabled {
		engine, err = policy.Load(ctx, cfg.Policy.File, log.For(logger.ComponentPolicy).Logger)
		if err != nil {
			return fmt.Errorf("failed to load policy: %w", err)
		}
	}

	svc := api.New(api.Options{
		Verifier: jwtkit.NewVerifier(nil, cryptoLogger().Logger),
		Signer:   jwtkit.NewSigner(nil, cryptoLogger().Logger),
		Analyzer: newAnalyzer(),
		Policy:   engine,
		Fetcher:  newFetcher(),
		Logger:   apiLog,
	})

	var handler http.Handler = svc.Handler()
	if cfg.OTel.Enabled {
		handler = telemetry.WrapHandler(handler, "jwtkit")
	}

	server := &http.Server{
		Addr:         cfg.Service.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Separate plain HTTP health server for probes and scraping
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", svc.HandleHealth)
	healthMux.HandleFunc("/ready", svc.HandleHealth)
	healthMux.Handle("/metrics", promhttp.Handler())
	healthServer := &http.Server{
		Addr:         cfg.Service.HealthAddr(),
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		apiLog.Info("Shutting down jwtkit API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			apiLog.Error("Shutdown error", "error", err)
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			apiLog.Error("Health server shutdown error", "error", err)
		}
		close(done)
	}()

	apiLog.Section("STARTING JWTKIT API")
	apiLog.Info("API starting", "addr", cfg.Service.Addr())
	apiLog.Info("Health server starting", "addr", cfg.Service.HealthAddr())
	if engine != nil {
		apiLog.Policy("Policy gate enabled", "module", engine.Source())
	}

	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			apiLog.Error("Health server error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	apiLog.Info("jwtkit API stopped")
	return nil
}
