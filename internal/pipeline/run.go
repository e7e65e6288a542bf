package pipeline

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/MrWong99/decksmith/internal/recognize"
	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
	"github.com/MrWong99/decksmith/pkg/types"
)

// PathClarified is the recognizer metadata value when the user picked the
// intent in a clarification reply.
const PathClarified = "clarified"

// run is the state of one Translate call.
type run struct {
	c   *Controller
	log *slog.Logger
	tax *taxonomy.Taxonomy
	fsm *machine
	th  Thresholds
	out Outcome

	text   string
	intent recognize.Intent
	ents   types.Entities
}

func (r *run) fromRecognition(ctx context.Context) {
	if !r.enter(ctx, StateRecognizingIntent) {
		return
	}
	start := time.Now()
	res := r.c.recognizer.Recognize(ctx, r.text, r.tax)
	r.recordRecognizer(ctx, res)
	if !checkpoint(ctx, r, StateRecognizingIntent, res, time.Since(start)) {
		return
	}
	r.intent = res.Data()
	r.out.Intent = r.intent.ID
	r.fromExtraction(ctx, func() stage.Result[types.Entities] {
		return r.c.extractor.Extract(r.text, r.intent.Definition)
	})
}

func (r *run) fromExtraction(ctx context.Context, extract func() stage.Result[types.Entities]) {
	if !r.enter(ctx, StateExtractingEntities) {
		return
	}
	start := time.Now()
	res := extract()
	if !checkpoint(ctx, r, StateExtractingEntities, res, time.Since(start)) {
		return
	}
	r.ents = res.Data()

	if !r.enter(ctx, StateValidatingAssets) {
		return
	}
	start = time.Now()
	assets := r.c.assets.Validate(ctx, r.ents, r.intent.Definition)
	if !checkpoint(ctx, r, StateValidatingAssets, assets, time.Since(start)) {
		return
	}

	if !r.enter(ctx, StateGeneratingSyntax) {
		return
	}
	start = time.Now()
	gen := r.c.generator.Generate(r.intent.Definition, r.ents, r.tax.UnitSystem())
	if !checkpoint(ctx, r, StateGeneratingSyntax, gen, time.Since(start)) {
		return
	}

	if !r.enter(ctx, StateValidatingDeck) {
		return
	}
	start = time.Now()
	d := r.c.deckcheck.Validate(gen.Data(), r.ents, r.intent.Definition, r.tax.UnitSystem())
	if !checkpoint(ctx, r, StateValidatingDeck, d, time.Since(start)) {
		return
	}

	r.out.Deck = d.Data()
	r.out.Text = gen.Data()
	r.finish(StateComplete)
}

// resume continues a run that stopped for clarification.
func (r *run) resume(ctx context.Context, reply string, st *ConversationState) {
	r.log = r.log.With("resumed_stage", st.Stage)
	switch st.Stage {
	case StateRecognizingIntent:
		if id, ok := pickIntent(reply, st.Candidates, r.tax); ok {
			r.text = st.Text
			r.pickedIntent(ctx, id, st.Candidates)
			return
		}
		r.text = strings.TrimSpace(st.Text + " " + reply)
		r.fromRecognition(ctx)

	case StateExtractingEntities, StateValidatingAssets, StateGeneratingSyntax, StateValidatingDeck:
		def, ok := r.tax.Lookup(st.Intent)
		if !ok {
			r.log.Warn("pipeline: resumed intent not in taxonomy",
				"intent", st.Intent,
				"state_version", st.TaxonomyVersion,
				"taxonomy_version", r.tax.Version(),
			)
			r.out.Stage = st.Stage
			r.fail(nil, []string{stage.CodeUnrecognizedIntent})
			return
		}
		r.text = st.Text
		r.intent = recognize.Intent{ID: def.ID, Definition: def, Candidates: st.Candidates}
		r.out.Intent = def.ID
		r.fromExtraction(ctx, func() stage.Result[types.Entities] {
			return r.c.extractor.Amend(st.Entities, reply, def)
		})

	default:
		r.text = reply
		r.fromRecognition(ctx)
	}
}

// pickedIntent completes recognition with the intent the user chose.
func (r *run) pickedIntent(ctx context.Context, id string, cands []recognize.Candidate) {
	if !r.enter(ctx, StateRecognizingIntent) {
		return
	}
	def, _ := r.tax.Lookup(id)
	res := stage.Success(recognize.Intent{ID: id, Definition: def, Candidates: cands}, 1,
		stage.Metadata{stage.MetaRecognizer: PathClarified})
	if !checkpoint(ctx, r, StateRecognizingIntent, res, 0) {
		return
	}
	r.intent = res.Data()
	r.out.Intent = id
	r.fromExtraction(ctx, func() stage.Result[types.Entities] {
		return r.c.extractor.Extract(r.text, def)
	})
}

// pickIntent matches a reply against the offered candidates, or any intent
// of the taxonomy when there were none.
func pickIntent(reply string, cands []recognize.Candidate, tax *taxonomy.Taxonomy) (string, bool) {
	want := strings.ToLower(strings.Trim(strings.TrimSpace(reply), ".!?"))
	want = strings.ReplaceAll(want, " ", "_")
	if want == "" {
		return "", false
	}
	for _, c := range cands {
		if c.ID == want {
			return c.ID, true
		}
	}
	if len(cands) == 0 {
		if _, ok := tax.Lookup(want); ok {
			return want, true
		}
	}
	return "", false
}

// enter moves to a stage state after checking for cancellation. A
// cancelled run keeps the last stage that ran as its Stage.
func (r *run) enter(ctx context.Context, s State) bool {
	if r.cancelled(ctx, "before", s) {
		return false
	}
	if err := r.fsm.to(s); err != nil {
		r.internal(err)
		return false
	}
	r.out.Stage = s
	return true
}

// checkpoint applies the policy to a stage result and reports whether the
// run advances. A stage that returns after the run was cancelled fails the
// run with CANCELLED whatever its own result says.
func checkpoint[T any](ctx context.Context, r *run, s State, res stage.Result[T], elapsed time.Duration) bool {
	meta := res.Metadata()
	if meta == nil {
		meta = stage.Metadata{}
	}
	meta[stage.MetaDuration] = elapsed
	r.out.Metadata[string(s)] = meta
	if r.cancelled(ctx, "during", s) {
		return false
	}

	d := stage.Decide(res, r.th.For(s))
	if r.c.metrics != nil {
		r.c.metrics.RecordStage(ctx, string(s), d.String(), elapsed)
	}
	r.log.Debug("pipeline: stage done",
		"stage", s,
		"decision", d,
		"confidence", res.Confidence(),
		"errors", res.Errors(),
		"duration", elapsed,
	)

	switch d {
	case stage.Clarify:
		r.clarify(s, res.Data(), meta)
		return false
	case stage.Fail:
		r.fail(res.Data(), res.Errors())
		return false
	}
	return true
}

func (r *run) cancelled(ctx context.Context, when string, s State) bool {
	err := ctx.Err()
	if err == nil {
		return false
	}
	r.log.Info("pipeline: run cancelled", when, s, "err", err)
	r.fail(nil, []string{stage.CodeCancelled})
	return true
}

func (r *run) clarify(s State, data any, meta stage.Metadata) {
	r.out.Data = data
	r.out.Errors = []string{stage.CodeLowConfidence}
	r.out.ClarificationPrompt = r.prompt(s, data, meta)

	st := &ConversationState{
		Stage:           s,
		Text:            r.text,
		Intent:          r.intent.ID,
		Candidates:      r.intent.Candidates,
		Entities:        r.ents,
		TaxonomyVersion: r.tax.Version(),
	}
	switch v := data.(type) {
	case recognize.Intent:
		st.Intent = ""
		st.Candidates = v.Candidates
	case types.Entities:
		st.Entities = v.Clone()
	}
	r.out.Resume = st
	r.finish(StateNeedsClarification)
}

// prompt picks the clarification question: the stage's own prompt, then the
// prompt of the least confident slot, then the intent's prompt, then a
// generic question.
func (r *run) prompt(s State, data any, meta stage.Metadata) string {
	if p, ok := meta[stage.MetaClarificationPrompt].(string); ok && p != "" {
		return p
	}
	def := r.intent.Definition
	switch v := data.(type) {
	case types.Entities:
		if p := slotPrompt(def, v); p != "" {
			return p
		}
	case recognize.Intent:
		def = v.Definition
		if len(v.Candidates) > 1 {
			ids := make([]string, 0, 3)
			for _, c := range v.Candidates[:min(3, len(v.Candidates))] {
				ids = append(ids, c.ID)
			}
			if def.ClarificationPrompt != "" {
				return def.ClarificationPrompt + " (or did you mean " + strings.Join(ids[1:], ", ") + "?)"
			}
			return "Did you mean one of: " + strings.Join(ids, ", ") + "?"
		}
	}
	if def.ClarificationPrompt != "" {
		return def.ClarificationPrompt
	}
	r.log.Debug("pipeline: no prompt configured", "stage", s)
	return genericPrompt
}

// slotPrompt returns the prompt of the least confident filled slot that has
// one.
func slotPrompt(def taxonomy.IntentDefinition, ents types.Entities) string {
	best, bestConf := "", 2.0
	for _, s := range def.Slots {
		v, ok := ents[s.Name]
		if !ok || s.Prompt == "" {
			continue
		}
		if v.Confidence < bestConf {
			best, bestConf = s.Prompt, v.Confidence
		}
	}
	return best
}

// fail ends the run. Internal error codes are replaced by the generic
// message and kept in metadata.
func (r *run) fail(data any, errs []string) {
	var public, internal []string
	for _, e := range errs {
		if stage.IsInternal(e) {
			internal = append(internal, e)
			if !slices.Contains(public, stage.InternalMessage) {
				public = append(public, stage.InternalMessage)
			}
			continue
		}
		public = append(public, e)
	}
	if len(internal) > 0 {
		r.out.Metadata[MetaInternalErrors] = internal
		r.log.Error("pipeline: internal error", "stage", r.out.Stage, "errors", internal)
	}
	r.out.Data = data
	r.out.Errors = public
	r.finish(StateFailed)
}

func (r *run) internal(err error) {
	r.log.Error("pipeline: state machine", "err", err)
	r.out.Metadata[MetaInternalErrors] = []string{err.Error()}
	r.out.Errors = []string{stage.InternalMessage}
	r.out.State = StateFailed
}

func (r *run) finish(s State) {
	if err := r.fsm.to(s); err != nil {
		r.internal(err)
		return
	}
	r.out.State = s
}

func (r *run) recordRecognizer(ctx context.Context, res stage.Result[recognize.Intent]) {
	if r.c.metrics == nil {
		return
	}
	path, _ := res.Meta(stage.MetaRecognizer)
	p, _ := path.(string)
	if p == "" {
		p = recognize.PathRuleBased
	}
	r.c.metrics.RecordRecognizer(ctx, p)
	if d, ok := res.Meta(recognize.MetaLLMDuration); ok {
		if dur, ok := d.(time.Duration); ok {
			r.c.metrics.RecordClassify(ctx, p, dur)
		}
	}
}
