package asset

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/MrWong99/decksmith/internal/observe"
	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
	"github.com/MrWong99/decksmith/pkg/types"
)

// MetaSuggestions holds a map from unknown name to suggested names.
const MetaSuggestions = "suggestions"

// MetaChecked lists the names that were looked up.
const MetaChecked = "assets_checked"

// Validator confirms that every well named in the entities exists.
type Validator struct {
	source         Source
	sourceName     string
	timeout        time.Duration
	maxSuggestions int
	metrics        *observe.Metrics
}

// ValidatorOption configures a [Validator].
type ValidatorOption func(*Validator)

// WithLookupTimeout bounds each existence check. The default is 2 seconds.
func WithLookupTimeout(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithMaxSuggestions limits the suggestions per unknown name. The default is
// 3; zero disables suggestions.
func WithMaxSuggestions(n int) ValidatorOption {
	return func(v *Validator) {
		if n >= 0 {
			v.maxSuggestions = n
		}
	}
}

// WithMetrics records each lookup under the given source label.
func WithMetrics(m *observe.Metrics, sourceName string) ValidatorOption {
	return func(v *Validator) {
		v.metrics = m
		v.sourceName = sourceName
	}
}

// NewValidator returns a validator backed by src.
func NewValidator(src Source, opts ...ValidatorOption) *Validator {
	v := &Validator{
		source:         src,
		sourceName:     "asset",
		timeout:        2 * time.Second,
		maxSuggestions: 3,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate looks up every well_name slot of intent that ents fills. The
// entities are returned unchanged. A failed lookup reports
// ASSET_SOURCE_UNAVAILABLE unless ctx itself was cancelled, which stops the
// remaining lookups and reports CANCELLED.
func (v *Validator) Validate(ctx context.Context, ents types.Entities, intent taxonomy.IntentDefinition) stage.Result[types.Entities] {
	var (
		errs        []string
		checked     []string
		unknown     []string
		unavailable bool
	)
	for _, slot := range intent.SlotsOfType(types.SlotWellName) {
		val, ok := ents[slot.Name]
		if !ok || val.Text == "" {
			continue
		}
		name := Normalize(val.Text)
		if slices.Contains(checked, name) {
			continue
		}
		checked = append(checked, name)

		exists, err := v.lookup(ctx, name)
		switch {
		case err != nil && ctx.Err() != nil:
			slog.Debug("asset: validation cancelled", "name", name, "err", ctx.Err())
			return stage.Failure(ents, stage.Metadata{MetaChecked: checked}, stage.CodeCancelled)
		case err != nil:
			slog.Warn("asset: lookup failed", "source", v.sourceName, "name", name, "err", err)
			unavailable = true
		case !exists:
			unknown = append(unknown, name)
			errs = append(errs, stage.UnknownAsset(name))
		}
	}

	meta := stage.Metadata{MetaChecked: checked}
	if unavailable {
		errs = append(errs, stage.CodeAssetSourceUnavailable)
	}
	if len(unknown) > 0 && v.maxSuggestions > 0 {
		if s := v.suggest(ctx, unknown); len(s) > 0 {
			meta[MetaSuggestions] = s
		}
	}
	if len(errs) > 0 {
		return stage.Failure(ents, meta, errs...)
	}
	return stage.Success(ents, 1, meta)
}

type lookupAnswer struct {
	exists bool
	err    error
}

// lookup calls the source in its own goroutine so a source that ignores ctx
// still cannot hold the run past the timeout.
func (v *Validator) lookup(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	ch := make(chan lookupAnswer, 1)
	go func() {
		exists, err := v.source.Exists(ctx, name)
		ch <- lookupAnswer{exists: exists, err: err}
	}()

	var a lookupAnswer
	select {
	case a = <-ch:
	case <-ctx.Done():
		a.err = ctx.Err()
	}
	exists, err := a.exists, a.err
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	result := "found"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	case err != nil:
		result = "error"
	case !exists:
		result = "unknown"
	}
	if v.metrics != nil {
		v.metrics.RecordAssetLookup(ctx, v.sourceName, result)
	}
	return exists, err
}

// suggest lists close names for each unknown one. Sources that cannot list
// their names yield no suggestions.
func (v *Validator) suggest(ctx context.Context, unknown []string) map[string][]string {
	l, ok := v.source.(Lister)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	names, err := l.Names(ctx)
	if err != nil {
		slog.Debug("asset: cannot list names for suggestions", "err", err)
		return nil
	}
	out := make(map[string][]string, len(unknown))
	for _, n := range unknown {
		if s := Suggest(n, names, v.maxSuggestions); len(s) > 0 {
			out[n] = s
		}
	}
	return out
}
