package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/decksmith/internal/asset"
)

// GuardedSource wraps an [asset.Source] in a [CircuitBreaker]. Only
// [asset.ErrUnavailable] failures count against the breaker; while it is
// open, lookups fail fast with an error wrapping both [asset.ErrUnavailable]
// and [ErrCircuitOpen].
type GuardedSource struct {
	source  asset.Source
	breaker *CircuitBreaker
}

var (
	_ asset.Source = (*GuardedSource)(nil)
	_ asset.Lister = (*GuardedSource)(nil)
)

// NewGuardedSource wraps src. cfg.IsFailure is replaced.
func NewGuardedSource(src asset.Source, cfg CircuitBreakerConfig) *GuardedSource {
	cfg.IsFailure = func(err error) bool { return errors.Is(err, asset.ErrUnavailable) }
	return &GuardedSource{source: src, breaker: NewCircuitBreaker(cfg)}
}

// Breaker exposes the breaker for health reporting.
func (g *GuardedSource) Breaker() *CircuitBreaker { return g.breaker }

// Exists implements [asset.Source].
func (g *GuardedSource) Exists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := g.breaker.Execute(func() error {
		var err error
		ok, err = g.source.Exists(ctx, name)
		return err
	})
	return ok, g.wrap(err)
}

// Names implements [asset.Lister] when the wrapped source does.
func (g *GuardedSource) Names(ctx context.Context) ([]string, error) {
	l, ok := g.source.(asset.Lister)
	if !ok {
		return nil, fmt.Errorf("asset: %T cannot list names", g.source)
	}
	var names []string
	err := g.breaker.Execute(func() error {
		var err error
		names, err = l.Names(ctx)
		return err
	})
	return names, g.wrap(err)
}

// Ping implements [asset.Pinger]. An open breaker reports unavailable
// without contacting the source.
func (g *GuardedSource) Ping(ctx context.Context) error {
	if g.breaker.State() == StateOpen {
		return g.wrap(ErrCircuitOpen)
	}
	if p, ok := g.source.(asset.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (g *GuardedSource) wrap(err error) error {
	if errors.Is(err, ErrCircuitOpen) {
		return fmt.Errorf("%w: %w", asset.ErrUnavailable, err)
	}
	return err
}
