package control

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/fetcher/internal/core/config"
	"github.com/vietddude/fetcher/internal/core/domain"
	"github.com/vietddude/fetcher/internal/infra/fetch"
	"github.com/vietddude/fetcher/internal/upstream"
)

// noSleep keeps backoff bookkeeping but skips the wait.
func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func newTestFetcher(t *testing.T, record bool) *Fetcher {
	t.Helper()

	transportCfg := fetch.DefaultTransportConfig
	transportCfg.Timeout = 5 * time.Second

	f, err := NewFetcher(context.Background(), Config{
		Retry:     fetch.DefaultRetryConfig,
		Transport: transportCfg,
		Journal:   config.BackendMemory,
		Record:    record,
	}, fetch.WithSleeper(noSleep))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(upstream.NewHandler())
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_ExhaustsOnServerError(t *testing.T) {
	srv := newUpstream(t)
	f := newTestFetcher(t, true)
	ctx := context.Background()

	out := f.Fetch(ctx, srv.URL+"/503")

	require.True(t, out.Result.IsResponse())
	assert.Equal(t, 503, out.Result.Response.StatusCode)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, out.Delays)
	assert.Equal(t, domain.ReasonExhausted, out.Reason)

	entries, err := f.Journal().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 503, entries[0].StatusCode)
	assert.Equal(t, domain.ClassTransientResponse, entries[0].Class)
	assert.Equal(t, out.RequestID, entries[0].RequestID)
	assert.Equal(t, 3, entries[0].Attempts)

	stats := f.Stats()
	assert.Equal(t, 3, stats.Responses)
	assert.Equal(t, 3, stats.StatusCounts[503])
}

func TestFetcher_Success(t *testing.T) {
	srv := newUpstream(t)
	f := newTestFetcher(t, true)

	out := f.Fetch(context.Background(), srv.URL+"/ok")

	require.True(t, out.Result.IsResponse())
	assert.Equal(t, 200, out.Result.Response.StatusCode)
	assert.Equal(t, "ok", string(out.Result.Response.Body))
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, out.Delays)

	count, err := f.Journal().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFetcher_RecoversWithinBudget(t *testing.T) {
	srv := newUpstream(t)
	f := newTestFetcher(t, true)

	out := f.Fetch(context.Background(), srv.URL+"/flaky?fail=2&key=recover")

	require.True(t, out.Result.IsResponse())
	assert.Equal(t, 200, out.Result.Response.StatusCode)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, domain.ReasonTerminal, out.Reason)
}

func TestFetcher_EmptyReply(t *testing.T) {
	srv := newUpstream(t)
	f := newTestFetcher(t, true)

	out := f.Fetch(context.Background(), srv.URL+"/")

	require.Error(t, out.Result.Err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, domain.ReasonExhausted, out.Reason)
	assert.Contains(t, domain.ChainKinds(out.Result.Err), "protocol:incomplete_message")

	entries, err := f.Journal().GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, domain.ClassTransientNetwork, entries[0].Class)
}

func TestFetcher_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(upstream.NewHandler())
	addr := srv.URL
	srv.Close()

	f := newTestFetcher(t, false)
	out := f.Fetch(context.Background(), addr+"/ok")

	require.Error(t, out.Result.Err)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, domain.ReasonExhausted, out.Reason)
}

func TestFetcher_ProxyDeadUpstream(t *testing.T) {
	backend := newUpstream(t)
	backendURL, err := url.Parse(backend.URL)
	require.NoError(t, err)
	proxy, err := upstream.NewProxyHandler(backendURL)
	require.NoError(t, err)
	front := httptest.NewServer(proxy)
	defer front.Close()

	f := newTestFetcher(t, false)
	out := f.Fetch(context.Background(), front.URL+"/none")

	require.True(t, out.Result.IsResponse())
	assert.Equal(t, 502, out.Result.Response.StatusCode)
	assert.Equal(t, 3, out.Attempts)
}

func TestFetcher_RecordDisabled(t *testing.T) {
	srv := newUpstream(t)
	f := newTestFetcher(t, false)

	f.Fetch(context.Background(), srv.URL+"/500")

	count, err := f.Journal().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFetcher_ReplayResolves(t *testing.T) {
	srv := newUpstream(t)
	f := newTestFetcher(t, true)
	ctx := context.Background()

	// Three failures use up the first invocation, the fourth request succeeds.
	out := f.Fetch(ctx, srv.URL+"/flaky?fail=3&key=replay")
	require.Equal(t, domain.ReasonExhausted, out.Reason)

	report, err := f.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReplayReport{Replayed: 1, Resolved: 1}, report)

	count, err := f.Journal().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFetcher_ReplayStillFailing(t *testing.T) {
	srv := newUpstream(t)
	f := newTestFetcher(t, true)
	ctx := context.Background()

	f.Fetch(ctx, srv.URL+"/429")

	report, err := f.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReplayReport{Replayed: 1, StillFailing: 1}, report)

	next, err := f.Journal().GetNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, 1, next.RetryCount)
}

func TestFetcher_ReplayCanceled(t *testing.T) {
	srv := newUpstream(t)
	f := newTestFetcher(t, true)

	f.Fetch(context.Background(), srv.URL+"/500")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.Replay(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Replayed)
}

func TestNewFetcher_UnknownBackend(t *testing.T) {
	_, err := NewFetcher(context.Background(), Config{Journal: "s3"})
	assert.Error(t, err)
}

func TestConfigFrom(t *testing.T) {
	app := config.Default()
	cfg := ConfigFrom(app, true)

	assert.Equal(t, app.Retry, cfg.Retry)
	assert.Equal(t, config.BackendMemory, cfg.Journal)
	assert.True(t, cfg.Record)
}
