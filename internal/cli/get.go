package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fetcher/internal/control"
	"github.com/vietddude/fetcher/internal/core/domain"
)

var (
	maxAttempts  int
	initialDelay time.Duration
	record       bool
)

var getCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Fetch a URL, retrying transient failures",
	Args:  cobra.ExactArgs(1),
	Run:   runGet,
}

func init() {
	getCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "total attempts including the first (default from config)")
	getCmd.Flags().DurationVar(&initialDelay, "initial-delay", 0, "delay before the second attempt (default from config)")
	getCmd.Flags().BoolVar(&record, "record", false, "record the fetch in the failure journal when it does not succeed")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cmd.Flags().Changed("max-attempts") {
		cfg.Retry.MaxAttempts = maxAttempts
	}
	if cmd.Flags().Changed("initial-delay") {
		cfg.Retry.InitialDelay = initialDelay
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid flags", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := control.NewFetcher(ctx, control.ConfigFrom(cfg, record))
	if err != nil {
		slog.Error("Failed to initialize Fetcher", "error", err)
		os.Exit(1)
	}

	out := f.Fetch(ctx, args[0])
	stats := f.Stats()
	slog.Debug("Transport stats",
		"responses", stats.Responses,
		"errors", stats.Errors,
		"throttled", stats.ThrottleCount429,
		"avg_latency", stats.AverageLatency,
		"retry_after", stats.LastRetryAfter,
	)
	if err := f.Close(); err != nil {
		slog.Warn("Failed to close Fetcher", "error", err)
	}

	if printOutcome(cmd.OutOrStdout(), out) {
		os.Exit(1)
	}
}

// printOutcome writes the final result and reports whether it was an error.
func printOutcome(w io.Writer, out domain.Outcome) bool {
	_, _ = fmt.Fprintln(w, "Got final result")
	if out.Result.Err != nil {
		_, _ = fmt.Fprintf(w, "Got Err: %v\n", out.Result.Err)
		return true
	}
	resp := out.Result.Response
	_, _ = fmt.Fprintf(w, "Got response: %s (%d bytes)\n", resp.Status, len(resp.Body))
	return false
}
