package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/decksmith/pkg/provider/llm"
)

// InstrumentedLLM wraps an [llm.Provider] with a span and request metrics
// per completion.
type InstrumentedLLM struct {
	inner   llm.Provider
	name    string
	metrics *Metrics
}

// InstrumentLLM wraps p. name labels the metrics and the span. A nil m
// records spans only.
func InstrumentLLM(p llm.Provider, name string, m *Metrics) *InstrumentedLLM {
	return &InstrumentedLLM{inner: p, name: name, metrics: m}
}

// Complete implements [llm.Provider].
func (p *InstrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, span := StartSpan(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", p.name),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	start := time.Now()
	resp, err := p.inner.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		if p.metrics != nil {
			p.metrics.RecordProviderRequest(ctx, p.name, "error")
			p.metrics.RecordProviderError(ctx, p.name)
		}
		Logger(ctx).Warn("llm: completion failed", "provider", p.name, "duration", elapsed, "err", err)
		return nil, err
	}
	if resp != nil {
		span.SetAttributes(attribute.Int("llm.total_tokens", resp.Usage.TotalTokens))
	}
	if p.metrics != nil {
		p.metrics.RecordProviderRequest(ctx, p.name, "ok")
	}
	return resp, nil
}

var _ llm.Provider = (*InstrumentedLLM)(nil)
