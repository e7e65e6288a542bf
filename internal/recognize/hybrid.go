package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
)

const (
	defaultHybridThreshold = 0.7
	defaultAmbiguityMargin = 0.1
	defaultClassifyTimeout = 3 * time.Second
)

// HybridOption configures a [Hybrid] recognizer.
type HybridOption func(*Hybrid)

// WithThreshold sets the rule confidence below which the classifier is
// consulted. Default: 0.7.
func WithThreshold(t float64) HybridOption {
	return func(h *Hybrid) { h.threshold = t }
}

// WithAmbiguityMargin sets the score gap between the two best rule
// candidates under which the classifier is consulted. Default: 0.1.
func WithAmbiguityMargin(m float64) HybridOption {
	return func(h *Hybrid) { h.margin = m }
}

// WithTimeout bounds each classifier call. Default: 3s.
func WithTimeout(d time.Duration) HybridOption {
	return func(h *Hybrid) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// Hybrid runs rule-based recognition and escalates unsure results to a
// [Classifier]. It is safe for concurrent use when the classifier is.
type Hybrid struct {
	rules      *RuleBased
	classifier Classifier
	threshold  float64
	margin     float64
	timeout    time.Duration
}

// NewHybrid returns a hybrid recognizer. A nil classifier makes it behave
// like rules alone.
func NewHybrid(rules *RuleBased, classifier Classifier, opts ...HybridOption) *Hybrid {
	if rules == nil {
		rules = NewRuleBased()
	}
	h := &Hybrid{
		rules:      rules,
		classifier: classifier,
		threshold:  defaultHybridThreshold,
		margin:     defaultAmbiguityMargin,
		timeout:    defaultClassifyTimeout,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Recognize implements [Recognizer].
//
// The classifier runs when the rules failed, scored below the threshold, or
// left the two best candidates within the ambiguity margin. When it answers
// with a known label the more confident result wins; on an ambiguous rule
// result a classifier pick among the tied candidates settles the tie. Any
// classifier error keeps the rule result, marked as a fallback.
func (h *Hybrid) Recognize(ctx context.Context, text string, tax *taxonomy.Taxonomy) stage.Result[Intent] {
	rule := h.rules.Recognize(ctx, text, tax)
	ambiguous := h.ambiguous(rule)
	if h.classifier == nil || (rule.Success() && rule.Confidence() >= h.threshold && !ambiguous) {
		return rule
	}

	start := time.Now()
	c, err := h.classify(ctx, text, tax)
	elapsed := time.Since(start)
	if err != nil {
		slog.Warn("recognize: classifier unavailable, keeping rule result",
			"err", err,
			"rule_success", rule.Success(),
			"rule_confidence", rule.Confidence(),
		)
		return rule.WithMetadata(stage.Metadata{
			stage.MetaRecognizer: PathFallback,
			MetaLLMError:         err.Error(),
			MetaLLMDuration:      elapsed,
		})
	}

	llmMeta := stage.Metadata{
		MetaLLMLabel:      c.Label,
		MetaLLMConfidence: c.Confidence,
		MetaLLMRaw:        c.Raw,
		MetaLLMDuration:   elapsed,
	}

	cands := rule.Data().Candidates
	def, _ := tax.Lookup(c.Label)
	switch {
	case !rule.Success() || c.Confidence > rule.Confidence():
		llmMeta[stage.MetaRecognizer] = PathLLM
		llmMeta[MetaCandidates] = cands
		return stage.Success(Intent{ID: c.Label, Definition: def, Candidates: cands}, c.Confidence, llmMeta)
	case ambiguous && topTwoContain(cands, c.Label):
		llmMeta[stage.MetaRecognizer] = PathLLM
		llmMeta[MetaCandidates] = cands
		return stage.Success(Intent{ID: c.Label, Definition: def, Candidates: cands}, rule.Confidence(), llmMeta)
	default:
		return rule.WithMetadata(llmMeta)
	}
}

func (h *Hybrid) ambiguous(r stage.Result[Intent]) bool {
	cands := r.Data().Candidates
	if !r.Success() || len(cands) < 2 {
		return false
	}
	return cands[0].Confidence-cands[1].Confidence < h.margin
}

type classifyAnswer struct {
	c   Classification
	err error
}

// classify calls the classifier in its own goroutine so a classifier that
// ignores ctx still cannot hold the run past the timeout.
func (h *Hybrid) classify(ctx context.Context, text string, tax *taxonomy.Taxonomy) (Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	ch := make(chan classifyAnswer, 1)
	go func() {
		c, err := h.classifier.Classify(ctx, text, Labels(tax))
		ch <- classifyAnswer{c: c, err: err}
	}()

	var a classifyAnswer
	select {
	case a = <-ch:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Classification{}, fmt.Errorf("%w after %s", ErrClassifierTimeout, h.timeout)
		}
		return Classification{}, fmt.Errorf("recognize: classify: %w", ctx.Err())
	}
	if a.err != nil {
		return Classification{}, fmt.Errorf("recognize: classify: %w", a.err)
	}
	if _, ok := tax.Lookup(a.c.Label); !ok {
		return Classification{}, fmt.Errorf("%w: %q", ErrUnknownLabel, a.c.Label)
	}
	if math.IsNaN(a.c.Confidence) || a.c.Confidence < 0 || a.c.Confidence > 1 {
		return Classification{}, fmt.Errorf("recognize: classifier confidence %v outside [0, 1]", a.c.Confidence)
	}
	return a.c, nil
}

func topTwoContain(cands []Candidate, id string) bool {
	for i, c := range cands {
		if i >= 2 {
			break
		}
		if c.ID == id {
			return true
		}
	}
	return false
}

var _ Recognizer = (*Hybrid)(nil)
