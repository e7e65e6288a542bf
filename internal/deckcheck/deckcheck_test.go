package deckcheck

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/decksmith/internal/generate"
	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

func intent(t *testing.T, id string) taxonomy.IntentDefinition {
	t.Helper()
	def, ok := taxonomy.Default().Lookup(id)
	if !ok {
		t.Fatalf("default taxonomy has no %s", id)
	}
	return def
}

func well(name string) types.Value {
	return types.Value{Slot: "well", Type: types.SlotWellName, Text: name, Confidence: 1}
}

func rate(v float64, u units.Unit) types.Value {
	return types.Value{Slot: "rate", Type: types.SlotRate, Rate: &types.RateValue{Value: v, Unit: u, Confidence: 1}, Confidence: 1}
}

func pressure(v float64, u units.Unit) types.Value {
	return types.Value{Slot: "pressure", Type: types.SlotPressure, Pressure: &types.PressureValue{Value: v, Unit: u, Confidence: 1}, Confidence: 1}
}

func control(mode string) types.Value {
	return types.Value{Slot: "control", Type: types.SlotEnum, Text: mode, Confidence: 1, Defaulted: true}
}

func date(y int, m time.Month, d int) types.Value {
	return types.Value{Slot: "date", Type: types.SlotDate, Date: &types.DateValue{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Confidence: 1}, Confidence: 1}
}

func TestValidate_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		intent string
		ents   types.Entities
	}{
		{intent: "set_well_rate", ents: types.Entities{"well": well("PROD-01"), "rate": rate(500, units.BBLPerDay), "control": control("ORAT")}},
		{intent: "set_well_rate", ents: types.Entities{"well": well("PROD-01"), "rate": rate(300, units.M3PerDay), "control": control("LRAT")}},
		{intent: "set_well_rate", ents: types.Entities{"well": well("PROD-02"), "rate": rate(0.1, units.BBLPerDay), "control": control("RESV")}},
		{intent: "set_well_bhp", ents: types.Entities{"well": well("PROD-01"), "pressure": pressure(172.4, units.Bar)}},
		{intent: "set_well_bhp", ents: types.Entities{"well": well("PROD-01"), "pressure": pressure(1, units.Atm)}},
		{intent: "shut_well", ents: types.Entities{"well": well("PROD-03")}},
		{intent: "open_well", ents: types.Entities{"well": well("INJ-01")}},
		{intent: "set_injection_rate", ents: types.Entities{"well": well("INJ-01"), "rate": rate(2000, units.BBLPerDay)}},
		{intent: "advance_to_date", ents: types.Entities{"date": date(2026, time.July, 31)}},
	}
	reg := generate.Builtin()
	v := New()
	for _, sys := range []units.System{units.Field, units.Metric} {
		for _, tt := range tests {
			t.Run(string(sys)+"/"+tt.intent, func(t *testing.T) {
				t.Parallel()
				def := intent(t, tt.intent)
				gen := reg.Generate(def, tt.ents, sys)
				if !gen.Success() {
					t.Fatalf("Generate failed: %v", gen.Errors())
				}
				r := v.Validate(gen.Data(), tt.ents, def, sys)
				if !r.Success() {
					diff, _ := r.Meta(MetaDiff)
					t.Fatalf("Validate failed: %v\n%v\n%s", r.Errors(), diff, gen.Data())
				}
				if r.Data() == nil || len(r.Data().Keywords()) != 1 {
					t.Errorf("data = %+v, want parsed fragment", r.Data())
				}
				if got, _ := r.Meta(MetaCheckedBy); got != CheckedByIntent {
					t.Errorf("checked_by = %v, want %s", got, CheckedByIntent)
				}
			})
		}
	}
}

func TestValidate_Mismatch(t *testing.T) {
	t.Parallel()

	rateEnts := types.Entities{"well": well("PROD-01"), "rate": rate(500, units.BBLPerDay), "control": control("ORAT")}
	tests := []struct {
		name     string
		intent   string
		text     string
		ents     types.Entities
		wantDiff string
	}{
		{
			name:     "wrong well",
			intent:   "set_well_rate",
			text:     "SCHEDULE\nWCONPROD\n  'PROD-10' 'OPEN' 'ORAT' 500 /\n/\n",
			ents:     rateEnts,
			wantDiff: "PROD-10",
		},
		{
			name:     "wrong value",
			intent:   "set_well_rate",
			text:     "SCHEDULE\nWCONPROD\n  'PROD-01' 'OPEN' 'ORAT' 50 /\n/\n",
			ents:     rateEnts,
			wantDiff: "50",
		},
		{
			name:     "wrong mode",
			intent:   "set_well_rate",
			text:     "SCHEDULE\nWCONPROD\n  'PROD-01' 'OPEN' 'WRAT' 1* 500 /\n/\n",
			ents:     rateEnts,
			wantDiff: "WRAT",
		},
		{
			name:     "bhp written as rate",
			intent:   "set_well_bhp",
			text:     "SCHEDULE\nWCONPROD\n  'PROD-01' 'OPEN' 'ORAT' 2500 /\n/\n",
			ents:     types.Entities{"well": well("PROD-01"), "pressure": pressure(2500, units.PSI)},
			wantDiff: "ORAT",
		},
		{
			name:     "open instead of shut",
			intent:   "shut_well",
			text:     "SCHEDULE\nWELOPEN\n  'PROD-03' 'OPEN' /\n/\n",
			ents:     types.Entities{"well": well("PROD-03")},
			wantDiff: "OPEN",
		},
		{
			name:     "wrong keyword",
			intent:   "open_well",
			text:     "SCHEDULE\nWCONPROD\n  'INJ-01' 'OPEN' 'ORAT' 1 /\n/\n",
			ents:     types.Entities{"well": well("INJ-01")},
			wantDiff: "WELOPEN",
		},
		{
			name:     "wrong date",
			intent:   "advance_to_date",
			text:     "SCHEDULE\nDATES\n  15 'FEB' 2026 /\n/\n",
			ents:     types.Entities{"date": date(2026, time.January, 15)},
			wantDiff: "2026-02-15",
		},
	}
	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := v.Validate(tt.text, tt.ents, intent(t, tt.intent), units.Field)
			if r.Success() {
				t.Fatal("Validate succeeded on a mismatching fragment")
			}
			if !slices.Equal(r.Errors(), []string{stage.CodeDeckValidationFailure}) {
				t.Errorf("Errors = %v", r.Errors())
			}
			diff, _ := r.Meta(MetaDiff)
			if s, _ := diff.(string); !strings.Contains(s, tt.wantDiff) {
				t.Errorf("diff %q does not mention %q", s, tt.wantDiff)
			}
			if _, ok := r.Meta(MetaExpected); !ok {
				t.Error("no expected readings in metadata")
			}
			if _, ok := r.Meta(MetaActual); !ok {
				t.Error("no actual readings in metadata")
			}
		})
	}
}

func TestValidate_Undecodable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "no schedule", text: "WELOPEN\n  'P1' 'SHUT' /\n/\n"},
		{name: "two records", text: "SCHEDULE\nWELOPEN\n  'P1' 'SHUT' /\n  'P2' 'SHUT' /\n/\n"},
		{name: "unknown keyword", text: "SCHEDULE\nWECON\n  'P1' 1* /\n/\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := New().Validate(tt.text, types.Entities{"well": well("P1")}, intent(t, "shut_well"), units.Field)
			if r.Success() || !slices.Equal(r.Errors(), []string{stage.CodeDeckValidationFailure}) {
				t.Errorf("result = %v %v", r.Success(), r.Errors())
			}
		})
	}
}

func TestValidate_SyntaxError(t *testing.T) {
	t.Parallel()

	r := New().Validate("SCHEDULE\nWELOPEN\n  'P1' 'SHUT'\n", types.Entities{"well": well("P1")}, intent(t, "shut_well"), units.Field)
	if r.Success() || !slices.Equal(r.Errors(), []string{stage.CodeSyntaxGenerationFailure}) {
		t.Fatalf("result = %v %v", r.Success(), r.Errors())
	}
	if msg, _ := r.Meta(MetaError); !strings.Contains(msg.(string), "expected") {
		t.Errorf("error detail = %v", msg)
	}
	if r.Data() != nil {
		t.Error("data should be nil on parse failure")
	}
}

func TestValidate_UncataloguedIntent(t *testing.T) {
	t.Parallel()

	groupRate := taxonomy.IntentDefinition{
		ID: "set_group_rate",
		Slots: []taxonomy.SlotSpec{
			{Name: "well", Type: types.SlotWellName, Required: true},
			{Name: "rate", Type: types.SlotRate, Required: true},
		},
	}
	ents := types.Entities{"well": well("PROD-01"), "rate": rate(500, units.BBLPerDay)}

	tests := []struct {
		name   string
		text   string
		intent taxonomy.IntentDefinition
		ents   types.Entities
		wantOK bool
	}{
		{
			name:   "values match through keyword decoder",
			text:   "SCHEDULE\nWCONPROD\n  'PROD-01' 'OPEN' 'ORAT' 500 /\n/\n",
			intent: groupRate, ents: ents, wantOK: true,
		},
		{
			name:   "wrong well and rate",
			text:   "SCHEDULE\nWCONPROD\n  'PROD-99' 'OPEN' 'ORAT' 1 /\n/\n",
			intent: groupRate, ents: ents,
		},
		{
			name:   "no schedule section",
			text:   "WCONPROD\n  'PROD-01' 'OPEN' 'ORAT' 500 /\n/\n",
			intent: groupRate, ents: ents,
		},
		{
			name:   "keyword without decoder",
			text:   "SCHEDULE\nWECON\n  'PROD-01' 1* /\n/\n",
			intent: groupRate, ents: ents,
		},
		{
			name:   "nothing to compare",
			text:   "SCHEDULE\nWELOPEN\n  'P1' 'SHUT' /\n/\n",
			intent: taxonomy.IntentDefinition{ID: "drill_well"}, ents: types.Entities{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := New().Validate(tt.text, tt.ents, tt.intent, units.Field)
			if r.Success() != tt.wantOK {
				t.Fatalf("Success = %v, want %v (errors %v)", r.Success(), tt.wantOK, r.Errors())
			}
			if !tt.wantOK {
				if !slices.Equal(r.Errors(), []string{stage.CodeDeckValidationFailure}) {
					t.Errorf("errors = %v", r.Errors())
				}
				return
			}
			if got, _ := r.Meta(MetaCheckedBy); got != CheckedByKeyword {
				t.Errorf("checked_by = %v, want %s", got, CheckedByKeyword)
			}
		})
	}
}

func TestCatalogued(t *testing.T) {
	t.Parallel()

	if !Catalogued("shut_well") {
		t.Error("shut_well should be catalogued")
	}
	if Catalogued("set_group_rate") {
		t.Error("set_group_rate should not be catalogued")
	}
}
