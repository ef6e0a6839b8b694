package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/logging"
	"github.com/bryan-buckman/pantry/internal/refresh"
	"github.com/bryan-buckman/pantry/internal/server"
	"github.com/bryan-buckman/pantry/internal/tui"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI",
	Long: `Serves the web UI and keeps the inventory, notifications, calendar and
dashboard current by polling the backend at the configured interval.`,
	RunE: runServe,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the terminal UI",
	RunE:  runTUI,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the backend and the local store",
	RunE:  runStatus,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	poller := refresh.NewPoller(e.fetcher, e.store, logger.Named("poller"))
	srv, err := server.New(e.svc, e.store, poller, logger.Named("server"))
	if err != nil {
		return err
	}

	addr := cfg.Server.Listen
	if listenAddr != "" {
		addr = listenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(addr) }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("shutdown", zap.Error(serr))
	}
	return err
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the UI; only log to a file.
	opts := loggingOptions()
	opts.NoStderr = true
	l, err := logging.New(opts)
	if err != nil {
		return err
	}
	_ = logger.Sync()
	logger = l
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	return tui.Run(e.svc, tui.Options{
		Settings: e.store,
		Logger:   logger.Named("tui"),
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := commandContext()
	defer cancel()

	out := cmd.OutOrStdout()
	st, err := e.api.Status(ctx)
	if err != nil {
		return fmt.Errorf("backend %s unreachable: %w", e.api.BaseURL(), err)
	}
	interval, _ := e.store.GetRefreshInterval()
	fmt.Fprintf(out, "Backend:  %s (%s: %s)\n", e.api.BaseURL(), st.Status, st.Message)
	fmt.Fprintf(out, "Store:    %s\n", e.store.DatabaseType())
	fmt.Fprintf(out, "Interval: %ds\n", interval)
	return nil
}
