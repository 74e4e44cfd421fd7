// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/slr-assistant/internal/authoring"
	"github.com/pdiddy/slr-assistant/internal/funnel"
	"github.com/pdiddy/slr-assistant/internal/logging"
	"github.com/pdiddy/slr-assistant/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant over a JSON HTTP API",
	Long: `Serve starts the HTTP API used by the browser front end. Queries are
read from and saved to the configured store; diagram export is proxied to
the query-authoring service. Prometheus metrics are served on /metrics.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		viper.Set("server.addr", addr)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The server logs structured JSON rather than the console format.
	srvLogger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer srvLogger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	client := authoring.NewClient(cfg.Authoring, srvLogger)
	srv := server.NewServer(store, funnel.NewCalculator(cfg.Funnel), client, cfg.Screening, cfg.Server, srvLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		srvLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			srvLogger.Error("shutdown failed", zap.Error(err))
			return err
		}
		return nil
	})
	return g.Wait()
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
