package llm

import (
	"context"
	"time"

	"github.com/rohan/flashdeck/internal/logger"
)

// LoggingProvider is a decorator that records every model request with its
// latency, token usage, and estimated cost.
type LoggingProvider struct {
	inner Provider
	log   *logger.Logger
}

// WithLogging wraps a Provider with request logging.
func WithLogging(p Provider, log *logger.Logger) Provider {
	return &LoggingProvider{inner: p, log: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	latency := time.Since(start)

	if err != nil {
		l.log.Warn("model request failed",
			"purpose", purpose,
			"model", l.inner.ModelID(),
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	fields := []any{
		"purpose", purpose,
		"model", resp.Model,
		"latency_ms", latency.Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
	}
	if cost := LookupCost(resp.Model); cost != nil {
		fields = append(fields, "est_cost_usd", cost.Cost(resp.Usage.InputTokens, resp.Usage.OutputTokens))
	}
	l.log.Info("model request completed", fields...)

	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
