package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stphegia-org/intv-comp/internal/api"
	"github.com/stphegia-org/intv-comp/internal/bus"
	"github.com/stphegia-org/intv-comp/internal/config"
	"github.com/stphegia-org/intv-comp/internal/processor"
)

func serveCMD() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the analysis event subscriber",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg.LogLevel)

			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}

			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func runServe(parent context.Context, cfg config.Config) error {
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.close()

	if cfg.NatsURL != "" {
		busClient, err := bus.NewClient(ctx, cfg.NatsURL, logger)
		if err != nil {
			return err
		}
		defer busClient.Close()

		proc := processor.New(cfg, p.llm, p.filter, p.repo, p.store, p.metrics, busClient, logger)
		if err := busClient.Subscribe(bus.SubjectAnalysisRequested, proc.HandleAnalysisRequested); err != nil {
			return err
		}
		logger.Info("event subscriber ready", "url", cfg.NatsURL)
	} else {
		logger.Warn("NATS_URL not set, running without the event subscriber")
	}

	srv := api.NewServer(cfg.HTTPAddr, p.store, p.metrics, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("intv-comp ready", "addr", cfg.HTTPAddr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("intv-comp stopped")
	return nil
}
