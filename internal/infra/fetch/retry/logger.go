package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/fetcher/internal/core/domain"
)

type logger struct{ *slog.Logger }

func (l logger) retry(
	ctx context.Context,
	target string,
	round int,
	result domain.AttemptResult,
	delay time.Duration,
) {
	if result.Err == nil {
		l.LogAttrs(ctx, slog.LevelWarn, "retry on response code",
			slog.String("target", target),
			slog.Int("status", result.Response.StatusCode),
			slog.Int("round", round),
			slog.Duration("delay", delay),
		)
		return
	}
	l.LogAttrs(ctx, slog.LevelWarn, "retry on client error",
		slog.String("target", target),
		slog.String("error", result.Err.Error()),
		slog.Any("chain", domain.ChainKinds(result.Err)),
		slog.Int("round", round),
		slog.Duration("delay", delay),
	)
}

func (l logger) final(ctx context.Context, out domain.Outcome, class domain.FailureClass) {
	attrs := []slog.Attr{
		slog.String("target", out.Target),
		slog.String("request_id", out.RequestID),
		slog.Int("attempts", out.Attempts),
		slog.String("reason", string(out.Reason)),
		slog.String("class", string(class)),
	}
	if out.Result.Err != nil {
		attrs = append(attrs, slog.String("error", out.Result.Err.Error()))
	} else if out.Result.Response != nil {
		attrs = append(attrs, slog.Int("status", out.Result.Response.StatusCode))
	}
	l.LogAttrs(ctx, slog.LevelInfo, "got final result", attrs...)
}
