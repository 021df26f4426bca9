package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/fetch"
	redisclient "github.com/vietddude/fetcher/internal/infra/redis"
	"github.com/vietddude/fetcher/internal/infra/storage"
	"github.com/vietddude/fetcher/internal/infra/storage/memory"
	"github.com/vietddude/fetcher/internal/infra/storage/postgres"
	"github.com/vietddude/fetcher/internal/metrics"
)

// Fetcher wires the HTTP transport, the retry executor and the failure journal.
type Fetcher struct {
	cfg         Config
	transport   *fetch.HTTPTransport
	executor    *fetch.Executor
	journal     storage.FailedFetchRepository
	db          *postgres.DB
	redisClient *redisclient.Client
	stopMetrics context.CancelFunc
}

// Config holds the application configuration.
type Config struct {
	Retry     fetch.RetryConfig
	Transport fetch.TransportConfig
	Journal   string
	Redis     redisclient.Config
	Database  postgres.Config
	// Record journals every invocation that does not end in success.
	Record bool
}

// ConfigFrom maps the loaded application config.
func ConfigFrom(app *config.AppConfig, record bool) Config {
	return Config{
		Retry:     app.Retry,
		Transport: app.Transport,
		Journal:   app.Journal.Backend,
		Redis:     app.Redis,
		Database:  app.Database,
		Record:    record,
	}
}

// NewFetcher creates a new Fetcher with all dependencies initialized.
func NewFetcher(ctx context.Context, cfg Config, opts ...fetch.Option) (*Fetcher, error) {
	f := &Fetcher{cfg: cfg}

	// 1. Initialize the journal
	switch cfg.Journal {
	case config.BackendRedis:
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		f.redisClient = client
		f.journal = redisclient.NewFailedFetchRepo(client, cfg.Redis.Namespace)
		slog.Info("Using Redis journal")
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := postgres.Migrate(db.DB.DB); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		f.db = db
		f.journal = postgres.NewFailedFetchRepo(db)

		metricsCtx, cancel := context.WithCancel(context.Background())
		f.stopMetrics = cancel
		db.StartMetricsCollector(metricsCtx)
		slog.Info("Using PostgreSQL journal")
	case config.BackendMemory, "":
		f.journal = memory.NewFailedRepo()
		slog.Debug("Using Memory journal")
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Journal)
	}

	// 2. Initialize transport and executor
	f.executor, f.transport = fetch.New(cfg.Transport, cfg.Retry, opts...)

	return f, nil
}

// Fetch runs one invocation and journals it when it did not succeed.
func (f *Fetcher) Fetch(ctx context.Context, target string) domain.Outcome {
	out := f.executor.Execute(ctx, target)

	if f.cfg.Record && fetch.Categorize(out.Result) != domain.ClassSuccess {
		if err := f.record(ctx, out); err != nil {
			slog.Warn("Failed to record failed fetch", "target", target, "error", err)
		}
	}
	return out
}

func (f *Fetcher) record(ctx context.Context, out domain.Outcome) error {
	ff := &domain.FailedFetch{
		Target:    out.Target,
		RequestID: out.RequestID,
		Class:     fetch.Categorize(out.Result),
		Reason:    out.Reason,
		Attempts:  out.Attempts,
	}
	if out.Result.Err != nil {
		ff.Error = out.Result.Err.Error()
	} else if out.Result.Response != nil {
		ff.StatusCode = out.Result.Response.StatusCode
	}

	// A canceled caller context must not prevent the entry from being written.
	if err := f.journal.Add(context.WithoutCancel(ctx), ff); err != nil {
		return err
	}
	f.refreshGauge(ctx)
	return nil
}

// ReplayReport summarizes a replay pass.
type ReplayReport struct {
	Replayed     int
	Resolved     int
	StillFailing int
}

// Replay re-runs every pending journal entry once, each as a fresh invocation.
func (f *Fetcher) Replay(ctx context.Context) (ReplayReport, error) {
	var report ReplayReport

	pending, err := f.journal.GetAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list journal: %w", err)
	}

	for _, ff := range pending {
		if ctx.Err() != nil {
			break
		}

		out := f.executor.Execute(domain.WithRequestID(ctx, ff.RequestID), ff.Target)
		report.Replayed++

		if fetch.Categorize(out.Result) == domain.ClassSuccess {
			if err := f.journal.MarkResolved(ctx, ff.ID); err != nil {
				return report, fmt.Errorf("failed to resolve %s: %w", ff.ID, err)
			}
			report.Resolved++
			slog.Info("Replay succeeded", "target", ff.Target, "id", ff.ID)
			continue
		}

		if err := f.journal.IncrementRetry(ctx, ff.ID); err != nil {
			return report, fmt.Errorf("failed to update %s: %w", ff.ID, err)
		}
		report.StillFailing++
		slog.Warn("Replay still failing", "target", ff.Target, "id", ff.ID, "reason", out.Reason)
	}

	f.refreshGauge(ctx)
	return report, ctx.Err()
}

func (f *Fetcher) refreshGauge(ctx context.Context) {
	count, err := f.journal.Count(context.WithoutCancel(ctx))
	if err != nil {
		slog.Debug("Failed to count journal", "error", err)
		return
	}
	metrics.JournalEntries.Set(float64(count))
}

// Journal returns the failure journal in use.
func (f *Fetcher) Journal() storage.FailedFetchRepository {
	return f.journal
}

// Stats returns the transport's monitoring statistics.
func (f *Fetcher) Stats() fetch.MonitorStats {
	return f.transport.Monitor.Stats()
}

// Close releases the transport and journal connections.
func (f *Fetcher) Close() error {
	_ = f.transport.Close()
	if f.stopMetrics != nil {
		f.stopMetrics()
	}
	if f.db != nil {
		if err := f.db.Close(); err != nil {
			return err
		}
	}
	if f.redisClient != nil {
		return f.redisClient.Close()
	}
	return nil
}
