package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fetcher/internal/upstream"
)

var (
	servePort int
	serveMode string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the flaky upstream server",
	Long: `Serve a set of unreliable endpoints: /429 /500 /503 /504 /ok /flaky /truncate /reset,
and "/" which drops the connection without a reply. In proxy mode the routes sit behind a
reverse proxy that also answers /none with 502.`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config)")
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "direct or proxy (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serveMode
	}

	srv, err := upstream.NewServer(cfg.Server.Port, cfg.Server.Mode)
	if err != nil {
		slog.Error("Failed to initialize upstream", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Upstream stopped", "error", err)
			os.Exit(1)
		}
		return
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("Upstream stopped gracefully")
}
