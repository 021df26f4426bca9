package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fetcher/internal/control"
	"github.com/vietddude/fetcher/internal/core/domain"
)

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "Inspect and replay the failure journal",
}

var failedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending failed fetches",
	Args:  cobra.NoArgs,
	Run:   runFailedList,
}

var failedReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run every pending failed fetch once",
	Args:  cobra.NoArgs,
	Run:   runFailedReplay,
}

var failedClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every journal entry",
	Args:  cobra.NoArgs,
	Run:   runFailedClear,
}

func init() {
	failedCmd.AddCommand(failedListCmd, failedReplayCmd, failedClearCmd)
	rootCmd.AddCommand(failedCmd)
}

func openFetcher(ctx context.Context) *control.Fetcher {
	cfg := loadConfig()
	f, err := control.NewFetcher(ctx, control.ConfigFrom(cfg, false))
	if err != nil {
		slog.Error("Failed to initialize Fetcher", "error", err)
		os.Exit(1)
	}
	return f
}

func runFailedList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	f := openFetcher(ctx)
	defer func() {
		_ = f.Close()
	}()

	entries, err := f.Journal().GetAll(ctx)
	if err != nil {
		slog.Error("Failed to list journal", "error", err)
		os.Exit(1)
	}
	printJournal(cmd.OutOrStdout(), entries)
}

func runFailedReplay(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	f := openFetcher(ctx)
	defer func() {
		_ = f.Close()
	}()

	report, err := f.Replay(ctx)
	if err != nil {
		slog.Error("Replay failed", "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d: %d resolved, %d still failing\n",
		report.Replayed, report.Resolved, report.StillFailing)
}

func runFailedClear(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	f := openFetcher(ctx)
	defer func() {
		_ = f.Close()
	}()

	if err := f.Journal().Clear(ctx); err != nil {
		slog.Error("Failed to clear journal", "error", err)
		os.Exit(1)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Journal cleared")
}

func printJournal(out io.Writer, entries []*domain.FailedFetch) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTARGET\tRESULT\tREASON\tATTEMPTS\tRETRIES\tLAST ATTEMPT")

	for _, ff := range entries {
		result := ff.Error
		if result == "" {
			result = fmt.Sprintf("status %d", ff.StatusCode)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			ff.ID, ff.Target, result, ff.Reason, ff.Attempts, ff.RetryCount,
			ff.LastAttempt.Format(time.RFC3339))
	}
	_ = w.Flush()
}
