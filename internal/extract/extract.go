// Package extract fills the slots of a recognized intent from free text.
//
// Extraction is guided by the intent's slot specs: only declared slots are
// ever populated. Everything else that looks like an entity (a second well
// name, a date on a rate command) is reported under the ignored_tokens
// metadata key instead of being dropped.
package extract

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

// Slot confidences.
const (
	namedWellConfidence  = 0.95
	shapedWellConfidence = 0.8
	quantityConfidence   = 1.0
	unitlessConfidence   = 0.3
	isoDateConfidence    = 1.0
	textDateConfidence   = 0.95
	enumValueConfidence  = 1.0
	enumAliasConfidence  = 0.9
)

// draft is the slot assignment before defaults and completeness checks.
type draft struct {
	ents         types.Entities
	ignored      []string
	unitMismatch bool
	// mismatched slots were given a value of the wrong unit kind; they are
	// reported as UNIT_MISMATCH rather than MISSING_SLOT.
	mismatched map[string]bool
	// invalid slots were given a signed or exponent number.
	invalid []string
}

// Extract fills the slots of intent from text.
//
// Missing required slots fail the stage with one MISSING_SLOT error each. A
// quantity whose unit has the wrong kind fails with UNIT_MISMATCH, and a
// signed or exponent number fails its slot with INVALID_VALUE. A
// quantity stated without a unit is kept at low confidence and the metadata
// carries a prompt asking for the unit.
func Extract(text string, intent taxonomy.IntentDefinition) stage.Result[types.Entities] {
	f := scan(text)
	d := assign(f, intent)
	for _, u := range f.bareUnits {
		d.ignored = append(d.ignored, string(u))
	}
	return finish(d, intent)
}

// Amend merges a clarification reply into the entities of an earlier
// extraction. Slots the reply fills replace the prior values. A reply that is
// only a unit ("bbl/day") completes prior quantities stated without one.
func Amend(prior types.Entities, reply string, intent taxonomy.IntentDefinition) stage.Result[types.Entities] {
	f := scan(reply)
	d := assign(f, intent)

	if len(f.quantities) == 0 && len(f.bareUnits) > 0 {
		completeUnits(d, prior, f.bareUnits[0], intent)
		for _, u := range f.bareUnits[1:] {
			d.ignored = append(d.ignored, string(u))
		}
	}

	for _, s := range intent.Slots {
		if _, ok := d.ents[s.Name]; ok || d.mismatched[s.Name] {
			continue
		}
		if pv, ok := prior[s.Name]; ok && !pv.Defaulted {
			d.ents[s.Name] = pv
		}
	}
	return finish(d, intent)
}

func assign(f *findings, intent taxonomy.IntentDefinition) *draft {
	d := &draft{ents: types.Entities{}, mismatched: map[string]bool{}}

	wells := intent.SlotsOfType(types.SlotWellName)
	// Wells introduced by the word "well" go before bare well-shaped tokens.
	ordered := slices.Clone(f.wells)
	slices.SortStableFunc(ordered, func(a, b foundWell) int {
		return cmp.Compare(b.confidence, a.confidence)
	})
	for i, w := range ordered {
		if i >= len(wells) {
			d.ignored = append(d.ignored, w.raw)
			continue
		}
		d.ents[wells[i].Name] = types.Value{
			Slot:       wells[i].Name,
			Type:       types.SlotWellName,
			Raw:        w.raw,
			Text:       w.name,
			Confidence: w.confidence,
		}
	}

	dates := intent.SlotsOfType(types.SlotDate)
	for i, fd := range f.dates {
		if i >= len(dates) {
			d.ignored = append(d.ignored, fd.raw)
			continue
		}
		dv := fd.date
		d.ents[dates[i].Name] = types.Value{
			Slot:       dates[i].Name,
			Type:       types.SlotDate,
			Raw:        fd.raw,
			Date:       &dv,
			Confidence: dv.Confidence,
		}
	}

	assignQuantities(d, f.quantities, intent)
	assignRejected(d, f.rejected, intent)
	assignEnums(d, f, intent)
	return d
}

func quantitySlots(intent taxonomy.IntentDefinition) []taxonomy.SlotSpec {
	var out []taxonomy.SlotSpec
	for _, s := range intent.Slots {
		if _, ok := s.Type.UnitKind(); ok {
			out = append(out, s)
		}
	}
	return out
}

func assignQuantities(d *draft, qs []foundQuantity, intent taxonomy.IntentDefinition) {
	slots := quantitySlots(intent)
	open := func(kind units.Kind, anyKind bool) (taxonomy.SlotSpec, bool) {
		for _, s := range slots {
			k, _ := s.Type.UnitKind()
			if _, filled := d.ents[s.Name]; filled || d.mismatched[s.Name] {
				continue
			}
			if anyKind || k == kind {
				return s, true
			}
		}
		return taxonomy.SlotSpec{}, false
	}

	var unitless []foundQuantity
	for _, q := range qs {
		if q.unit == "" {
			unitless = append(unitless, q)
			continue
		}
		kind, _ := units.KindOf(q.unit)
		if s, ok := open(kind, false); ok {
			d.ents[s.Name] = quantityValue(s, q, quantityConfidence)
			continue
		}
		if s, ok := open("", true); ok {
			d.unitMismatch = true
			d.mismatched[s.Name] = true
			continue
		}
		d.ignored = append(d.ignored, q.raw)
	}
	for _, q := range unitless {
		if s, ok := open("", true); ok {
			d.ents[s.Name] = quantityValue(s, q, unitlessConfidence)
			continue
		}
		d.ignored = append(d.ignored, q.raw)
	}
}

// assignRejected charges each rejected number to the first open quantity
// slot of its unit kind (any kind when it has no unit) as an invalid value.
// The number is always kept in the ignored tokens.
func assignRejected(d *draft, rs []rejectedQuantity, intent taxonomy.IntentDefinition) {
	for _, r := range rs {
		d.ignored = append(d.ignored, r.raw)
		kind, hasKind := units.KindOf(r.unit)
		for _, s := range quantitySlots(intent) {
			if _, filled := d.ents[s.Name]; filled || d.mismatched[s.Name] {
				continue
			}
			if k, _ := s.Type.UnitKind(); hasKind && k != kind {
				continue
			}
			d.mismatched[s.Name] = true
			d.invalid = append(d.invalid, s.Name)
			break
		}
	}
}

func quantityValue(s taxonomy.SlotSpec, q foundQuantity, conf float64) types.Value {
	v := types.Value{Slot: s.Name, Type: s.Type, Raw: q.raw, Confidence: conf}
	switch s.Type {
	case types.SlotRate:
		v.Rate = &types.RateValue{Value: q.value, Unit: q.unit, Confidence: conf}
	case types.SlotPressure:
		v.Pressure = &types.PressureValue{Value: q.value, Unit: q.unit, Confidence: conf}
	}
	return v
}

// completeUnits applies a unit-only reply to prior quantities without a unit.
func completeUnits(d *draft, prior types.Entities, u units.Unit, intent taxonomy.IntentDefinition) {
	kind, _ := units.KindOf(u)
	for _, s := range quantitySlots(intent) {
		pv, ok := prior[s.Name]
		if !ok {
			continue
		}
		n, stated, ok := pv.Quantity()
		if !ok || stated != "" {
			continue
		}
		if k, _ := s.Type.UnitKind(); k != kind {
			d.unitMismatch = true
			d.mismatched[s.Name] = true
			continue
		}
		d.ents[s.Name] = quantityValue(s, foundQuantity{raw: pv.Raw + " " + string(u), value: n, unit: u}, quantityConfidence)
		return
	}
}

func assignEnums(d *draft, f *findings, intent taxonomy.IntentDefinition) {
	for _, s := range intent.SlotsOfType(types.SlotEnum) {
		re, lookup := enumMatcher(s)
		for _, m := range re.FindAllStringSubmatchIndex(f.text, -1) {
			start, end := m[2], m[3]
			if !f.free(start, end) {
				continue
			}
			word := strings.ToLower(f.text[start:end])
			value, conf := lookup(word)
			f.take(start, end)
			d.ents[s.Name] = types.Value{
				Slot:       s.Name,
				Type:       types.SlotEnum,
				Raw:        f.text[start:end],
				Text:       value,
				Confidence: conf,
			}
			break
		}
	}
}

// enumMatcher returns a word-bounded matcher for the values and aliases of
// an enum slot and a function resolving a matched word to its value.
func enumMatcher(s taxonomy.SlotSpec) (*regexp.Regexp, func(string) (string, float64)) {
	words := make([]string, 0, len(s.Values)+len(s.Aliases))
	for _, v := range s.Values {
		words = append(words, strings.ToLower(v))
	}
	for a := range s.Aliases {
		words = append(words, a)
	}
	slices.SortFunc(words, func(a, b string) int { return cmp.Compare(len(b), len(a)) })
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)

	return re, func(word string) (string, float64) {
		if v, ok := s.Aliases[word]; ok {
			return v, enumAliasConfidence
		}
		return strings.ToUpper(word), enumValueConfidence
	}
}

// finish fills defaults, checks required slots and computes the stage
// confidence as the minimum slot confidence.
func finish(d *draft, intent taxonomy.IntentDefinition) stage.Result[types.Entities] {
	var errs []string
	if d.unitMismatch {
		errs = append(errs, stage.CodeUnitMismatch)
	}
	for _, name := range d.invalid {
		errs = append(errs, stage.InvalidValue(name))
	}
	for _, s := range intent.Slots {
		if _, ok := d.ents[s.Name]; ok {
			continue
		}
		if s.Default != "" {
			d.ents[s.Name] = types.Value{
				Slot:       s.Name,
				Type:       s.Type,
				Text:       s.Default,
				Confidence: 1,
				Defaulted:  true,
			}
			continue
		}
		if s.Required && !d.mismatched[s.Name] {
			errs = append(errs, stage.MissingSlot(s.Name))
		}
	}

	meta := stage.Metadata{}
	if len(d.ignored) > 0 {
		meta[stage.MetaIgnoredTokens] = d.ignored
	}
	if len(errs) > 0 {
		return stage.Failure(d.ents, meta, errs...)
	}

	conf := 1.0
	for _, v := range d.ents {
		conf = min(conf, v.Confidence)
	}
	for _, s := range quantitySlots(intent) {
		v, ok := d.ents[s.Name]
		if !ok {
			continue
		}
		if n, u, _ := v.Quantity(); u == "" {
			meta[stage.MetaClarificationPrompt] = unitPrompt(s, n)
			break
		}
	}
	return stage.Success(d.ents, conf, meta)
}

func unitPrompt(s taxonomy.SlotSpec, n float64) string {
	if s.Prompt != "" {
		return s.Prompt
	}
	examples := "BBL/DAY or M3/DAY"
	if s.Type == types.SlotPressure {
		examples = "PSI or BAR"
	}
	return fmt.Sprintf("What unit is the %s of %s in (for example %s)?", s.Name, strconv.FormatFloat(n, 'f', -1, 64), examples)
}

// Extractor exposes [Extract] and [Amend] as methods for callers that take
// the extraction stage as a dependency.
type Extractor struct{}

// Extract calls [Extract].
func (Extractor) Extract(text string, intent taxonomy.IntentDefinition) stage.Result[types.Entities] {
	return Extract(text, intent)
}

// Amend calls [Amend].
func (Extractor) Amend(prior types.Entities, reply string, intent taxonomy.IntentDefinition) stage.Result[types.Entities] {
	return Amend(prior, reply, intent)
}
