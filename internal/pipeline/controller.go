// Package pipeline runs a command through the five translation stages.
//
// A [Controller] drives one run per [Controller.Translate] call through the
// state graph INIT, RECOGNIZING_INTENT, EXTRACTING_ENTITIES,
// VALIDATING_ASSETS, GENERATING_SYNTAX, VALIDATING_DECK and one of the
// terminal states. After every stage the checkpoint policy decides whether
// the run advances, asks the user for clarification, or fails.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/decksmith/internal/deckcheck"
	"github.com/MrWong99/decksmith/internal/extract"
	"github.com/MrWong99/decksmith/internal/generate"
	"github.com/MrWong99/decksmith/internal/observe"
	"github.com/MrWong99/decksmith/internal/recognize"
	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
	"github.com/MrWong99/decksmith/pkg/deck"
	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

// Extractor is the entity extraction stage.
type Extractor interface {
	Extract(text string, intent taxonomy.IntentDefinition) stage.Result[types.Entities]
	Amend(prior types.Entities, reply string, intent taxonomy.IntentDefinition) stage.Result[types.Entities]
}

// AssetValidator is the asset validation stage.
type AssetValidator interface {
	Validate(ctx context.Context, ents types.Entities, intent taxonomy.IntentDefinition) stage.Result[types.Entities]
}

// Generator is the syntax generation stage.
type Generator interface {
	Generate(intent taxonomy.IntentDefinition, ents types.Entities, sys units.System) stage.Result[string]
}

// DeckValidator is the round-trip validation stage.
type DeckValidator interface {
	Validate(text string, ents types.Entities, intent taxonomy.IntentDefinition, sys units.System) stage.Result[*deck.Deck]
}

var (
	_ Extractor      = extract.Extractor{}
	_ Generator      = (*generate.Registry)(nil)
	_ DeckValidator  = (*deckcheck.Validator)(nil)
	_ AssetValidator = (AssetValidatorFunc)(nil)
)

// AssetValidatorFunc adapts a function to [AssetValidator].
type AssetValidatorFunc func(ctx context.Context, ents types.Entities, intent taxonomy.IntentDefinition) stage.Result[types.Entities]

// Validate calls f.
func (f AssetValidatorFunc) Validate(ctx context.Context, ents types.Entities, intent taxonomy.IntentDefinition) stage.Result[types.Entities] {
	return f(ctx, ents, intent)
}

// MetaInternalErrors holds the internal error codes that were replaced by
// the generic internal error message.
const MetaInternalErrors = "internal_errors"

// genericPrompt is used when neither the stage nor the taxonomy supplies a
// clarification question.
const genericPrompt = "I am not sure I understood the command. Could you rephrase it?"

// Controller runs translations. It is safe for concurrent use when its
// collaborators are; runs share only the taxonomy snapshot they read.
type Controller struct {
	holder     *taxonomy.Holder
	recognizer recognize.Recognizer
	extractor  Extractor
	assets     AssetValidator
	generator  Generator
	deckcheck  DeckValidator
	thresholds atomic.Pointer[Thresholds]
	metrics    *observe.Metrics
}

// Option configures a [Controller].
type Option func(*Controller)

// WithRecognizer replaces the default rule-based recognizer.
func WithRecognizer(r recognize.Recognizer) Option {
	return func(c *Controller) { c.recognizer = r }
}

// WithExtractor replaces the default extractor.
func WithExtractor(e Extractor) Option {
	return func(c *Controller) { c.extractor = e }
}

// WithGenerator replaces the built-in template registry.
func WithGenerator(g Generator) Option {
	return func(c *Controller) { c.generator = g }
}

// WithDeckValidator replaces the default deck validator.
func WithDeckValidator(v DeckValidator) Option {
	return func(c *Controller) { c.deckcheck = v }
}

// WithThresholds sets the checkpoint thresholds.
func WithThresholds(t Thresholds) Option {
	return func(c *Controller) { c.thresholds.Store(&t) }
}

// WithMetrics records stage timings and run outcomes.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New returns a controller reading taxonomy snapshots from holder and
// checking assets with assets. Both are required.
func New(holder *taxonomy.Holder, assets AssetValidator, opts ...Option) (*Controller, error) {
	var errs []error
	if holder == nil || holder.Current() == nil {
		errs = append(errs, errors.New("pipeline: taxonomy holder is required"))
	}
	if assets == nil {
		errs = append(errs, errors.New("pipeline: asset validator is required"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	c := &Controller{
		holder:     holder,
		recognizer: recognize.NewRuleBased(),
		extractor:  extract.Extractor{},
		assets:     assets,
		generator:  generate.Builtin(),
		deckcheck:  deckcheck.New(),
	}
	def := DefaultThresholds()
	c.thresholds.Store(&def)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Translate runs text through the pipeline. When resume is non-nil, text is
// the user's reply to the clarification that produced resume and the run
// continues from resume.Stage.
func (c *Controller) Translate(ctx context.Context, text string, resume *ConversationState) Outcome {
	runID := uuid.NewString()
	ctx = observe.WithRunID(ctx, runID)
	ctx, span := observe.StartSpan(ctx, "pipeline.translate")
	defer span.End()

	if c.metrics != nil {
		c.metrics.ActiveRuns.Add(ctx, 1)
		defer c.metrics.ActiveRuns.Add(ctx, -1)
	}

	r := &run{
		c:   c,
		log: observe.Logger(ctx),
		tax: c.holder.Current(),
		fsm: newMachine(),
		th:  c.Thresholds(),
		out: Outcome{RunID: runID, Stage: StateInit, Metadata: map[string]any{}},
	}
	start := time.Now()
	if resume != nil {
		r.resume(ctx, text, resume)
	} else {
		r.text = text
		r.fromRecognition(ctx)
	}
	r.out.Path = r.fsm.path

	span.SetAttributes(
		attribute.String("run.state", string(r.out.State)),
		attribute.String("run.intent", r.out.Intent),
		attribute.Bool("run.resumed", resume != nil),
	)
	if r.out.State == StateFailed {
		span.SetStatus(codes.Error, "run failed")
	}
	if c.metrics != nil {
		c.metrics.RecordOutcome(ctx, string(r.out.State))
	}
	r.log.Info("pipeline: run finished",
		"state", r.out.State,
		"intent", r.out.Intent,
		"errors", r.out.Errors,
		"duration", time.Since(start),
	)
	return r.out
}

// Taxonomy returns the snapshot new runs will use.
func (c *Controller) Taxonomy() *taxonomy.Taxonomy {
	return c.holder.Current()
}

// Thresholds returns the thresholds new runs will use.
func (c *Controller) Thresholds() Thresholds {
	return *c.thresholds.Load()
}

// SetThresholds replaces the thresholds for runs started afterwards. Runs
// in flight keep the thresholds they started with.
func (c *Controller) SetThresholds(t Thresholds) {
	c.thresholds.Store(&t)
}
