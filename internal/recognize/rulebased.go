package recognize

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
)

const (
	defaultPartialConfidence = 0.6
	defaultFuzzyThreshold    = 0.9

	// minFuzzyLen keeps short tokens ("in", "to") out of fuzzy keyword
	// matching.
	minFuzzyLen = 4
)

// RuleOption configures a [RuleBased] recognizer.
type RuleOption func(*RuleBased)

// WithPartialConfidence sets the confidence of an intent that matches by
// keyword only, however many of its keywords appear. Default: 0.6.
func WithPartialConfidence(c float64) RuleOption {
	return func(r *RuleBased) {
		if c > 0 && c <= 1 {
			r.partial = c
		}
	}
}

// WithFuzzyThreshold sets the Jaro-Winkler score at which a word counts as a
// misspelled keyword. Values above 1 disable fuzzy matching. Default: 0.9.
func WithFuzzyThreshold(t float64) RuleOption {
	return func(r *RuleBased) {
		r.fuzzy = t
	}
}

// RuleBased recognizes intents from trigger patterns and keywords. It is
// read-only after construction and safe for concurrent use.
type RuleBased struct {
	partial float64
	fuzzy   float64
}

// NewRuleBased returns a rule-based recognizer.
func NewRuleBased(opts ...RuleOption) *RuleBased {
	r := &RuleBased{partial: defaultPartialConfidence, fuzzy: defaultFuzzyThreshold}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Recognize implements [Recognizer]. A trigger pattern match scores 1.0 and
// any keyword match scores the partial confidence. Within a tier, intents
// with a larger share of their keywords present rank first; remaining ties
// keep taxonomy order.
func (r *RuleBased) Recognize(_ context.Context, text string, tax *taxonomy.Taxonomy) stage.Result[Intent] {
	words := wordsOf(text)
	lower := strings.ToLower(text)

	var hits []scored
	for _, d := range tax.Intents() {
		if h := r.score(d, lower, words); h.Confidence > 0 {
			hits = append(hits, h)
		}
	}
	slices.SortStableFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(b.share, a.share)
	})
	cands := make([]Candidate, len(hits))
	for i, h := range hits {
		cands[i] = h.Candidate
	}

	meta := stage.Metadata{
		stage.MetaRecognizer: PathRuleBased,
		MetaCandidates:       cands,
	}
	if len(cands) == 0 {
		return stage.Failure(Intent{}, meta, stage.CodeUnrecognizedIntent)
	}

	best := cands[0]
	def, _ := tax.Lookup(best.ID)
	return stage.Success(Intent{ID: best.ID, Definition: def, Candidates: cands}, best.Confidence, meta)
}

// scored is a candidate plus the share of its keywords found in the text.
type scored struct {
	Candidate
	share float64
}

func (r *RuleBased) score(d taxonomy.IntentDefinition, lower string, words []string) scored {
	if d.Matches(lower) {
		return scored{Candidate: Candidate{ID: d.ID, Confidence: 1}, share: 1}
	}
	matched := 0
	for _, kw := range d.Keywords {
		if r.keywordPresent(kw, lower, words) {
			matched++
		}
	}
	if matched == 0 {
		return scored{}
	}
	return scored{
		Candidate: Candidate{ID: d.ID, Confidence: r.partial},
		share:     float64(matched) / float64(len(d.Keywords)),
	}
}

func (r *RuleBased) keywordPresent(kw, lower string, words []string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(lower, kw)
	}
	for _, w := range words {
		if w == kw {
			return true
		}
	}
	if r.fuzzy > 1 || len(kw) < minFuzzyLen {
		return false
	}
	for _, w := range words {
		if len(w) < minFuzzyLen || !isAlpha(w) {
			continue
		}
		if matchr.JaroWinkler(w, kw, false) >= r.fuzzy {
			return true
		}
	}
	return false
}

// wordsOf splits text on whitespace, lower-cases the pieces and trims
// surrounding punctuation. Inner hyphens survive so well names stay whole.
func wordsOf(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) && r != '-'
		})
		f = strings.Trim(f, "-")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

var _ Recognizer = (*RuleBased)(nil)
