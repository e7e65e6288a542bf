package generate

import (
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/decksmith/internal/stage"
	"github.com/MrWong99/decksmith/internal/taxonomy"
	"github.com/MrWong99/decksmith/pkg/deck"
	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

func well(name string) types.Value {
	return types.Value{Slot: "well", Type: types.SlotWellName, Text: name, Confidence: 0.95}
}

func rate(v float64, u units.Unit) types.Value {
	return types.Value{Slot: "rate", Type: types.SlotRate, Rate: &types.RateValue{Value: v, Unit: u, Confidence: 1}, Confidence: 1}
}

func pressure(v float64, u units.Unit) types.Value {
	return types.Value{Slot: "pressure", Type: types.SlotPressure, Pressure: &types.PressureValue{Value: v, Unit: u, Confidence: 1}, Confidence: 1}
}

func control(mode string) types.Value {
	return types.Value{Slot: "control", Type: types.SlotEnum, Text: mode, Confidence: 1}
}

func intent(t *testing.T, id string) taxonomy.IntentDefinition {
	t.Helper()
	def, ok := taxonomy.Default().Lookup(id)
	if !ok {
		t.Fatalf("default taxonomy has no %s", id)
	}
	return def
}

func TestBuiltin_Generate(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		intent   string
		ents     types.Entities
		sys      units.System
		want     string
		template string
	}{
		{
			name:     "oil rate",
			intent:   "set_well_rate",
			ents:     types.Entities{"well": well("PROD-01"), "rate": rate(500, units.BBLPerDay), "control": control("ORAT")},
			sys:      units.Field,
			want:     "SCHEDULE\n\nWCONPROD\n  'PROD-01' 'OPEN' 'ORAT' 500 /\n/\n",
			template: "wconprod_rate",
		},
		{
			name:     "water rate defaults skipped items",
			intent:   "set_well_rate",
			ents:     types.Entities{"well": well("PROD-02"), "rate": rate(250.5, units.BBLPerDay), "control": control("WRAT")},
			sys:      units.Field,
			want:     "SCHEDULE\n\nWCONPROD\n  'PROD-02' 'OPEN' 'WRAT' 1* 250.5 /\n/\n",
			template: "wconprod_rate",
		},
		{
			name:     "liquid rate",
			intent:   "set_well_rate",
			ents:     types.Entities{"well": well("P1"), "rate": rate(80, units.M3PerDay), "control": control("LRAT")},
			sys:      units.Metric,
			want:     "SCHEDULE\n\nWCONPROD\n  'P1' 'OPEN' 'LRAT' 3* 80 /\n/\n",
			template: "wconprod_rate",
		},
		{
			name:     "rate without control",
			intent:   "set_well_rate",
			ents:     types.Entities{"well": well("PROD-01"), "rate": rate(500, units.BBLPerDay)},
			sys:      units.Field,
			want:     "SCHEDULE\n\nWCONPROD\n  'PROD-01' 'OPEN' 'ORAT' 500 /\n/\n",
			template: "wconprod_orat",
		},
		{
			name:     "bhp",
			intent:   "set_well_bhp",
			ents:     types.Entities{"well": well("PROD-01"), "pressure": pressure(2500, units.PSI)},
			sys:      units.Field,
			want:     "SCHEDULE\n\nWCONPROD\n  'PROD-01' 'OPEN' 'BHP' 5* 2500 /\n/\n",
			template: "wconprod_bhp",
		},
		{
			name:   "shut",
			intent: "shut_well",
			ents:   types.Entities{"well": well("PROD-03")},
			sys:    units.Field,
			want:   "SCHEDULE\n\nWELOPEN\n  'PROD-03' 'SHUT' /\n/\n",
		},
		{
			name:   "open",
			intent: "open_well",
			ents:   types.Entities{"well": well("INJ-01")},
			sys:    units.Field,
			want:   "SCHEDULE\n\nWELOPEN\n  'INJ-01' 'OPEN' /\n/\n",
		},
		{
			name:   "injection",
			intent: "set_injection_rate",
			ents:   types.Entities{"well": well("INJ-01"), "rate": rate(2000, units.BBLPerDay)},
			sys:    units.Field,
			want:   "SCHEDULE\n\nWCONINJE\n  'INJ-01' 'WATER' 'OPEN' 'RATE' 2000 /\n/\n",
		},
		{
			name:   "dates",
			intent: "advance_to_date",
			ents:   types.Entities{"date": {Slot: "date", Type: types.SlotDate, Date: &types.DateValue{Time: date, Confidence: 1}, Confidence: 1}},
			sys:    units.Field,
			want:   "SCHEDULE\n\nDATES\n  15 'JAN' 2026 /\n/\n",
		},
	}
	reg := Builtin()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := reg.Generate(intent(t, tt.intent), tt.ents, tt.sys)
			if !r.Success() {
				t.Fatalf("Generate failed: %v %v", r.Errors(), r.Metadata())
			}
			if r.Confidence() != 1 {
				t.Errorf("Confidence = %v, want 1", r.Confidence())
			}
			if r.Data() != tt.want {
				t.Errorf("Generate =\n%s\nwant\n%s", r.Data(), tt.want)
			}
			if tt.template != "" {
				if got, _ := r.Meta(MetaTemplate); got != tt.template {
					t.Errorf("template = %v, want %s", got, tt.template)
				}
			}
			if _, err := deck.ParseString(r.Data()); err != nil {
				t.Errorf("generated text does not parse: %v", err)
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	ents := types.Entities{"well": well("PROD-01"), "rate": rate(300, units.M3PerDay), "control": control("ORAT")}
	reg := Builtin()
	first := reg.Generate(intent(t, "set_well_rate"), ents, units.Field).Data()
	for range 20 {
		if got := reg.Generate(intent(t, "set_well_rate"), ents, units.Field).Data(); got != first {
			t.Fatalf("Generate output changed:\n%s\nvs\n%s", got, first)
		}
	}
}

func TestGenerate_ConvertsToDeckUnits(t *testing.T) {
	t.Parallel()

	ents := types.Entities{"well": well("PROD-01"), "rate": rate(100, units.M3PerDay), "control": control("ORAT")}
	r := Builtin().Generate(intent(t, "set_well_rate"), ents, units.Field)
	d, err := deck.ParseString(r.Data())
	if err != nil {
		t.Fatalf("ParseString: unexpected error: %v", err)
	}
	tok, ok := d.Keywords()[0].Records[0].Item(4)
	if !ok {
		t.Fatal("item 4 is defaulted")
	}
	got, _ := tok.Float()
	if math.Abs(got-628.9810770432105) > 1e-9 {
		t.Errorf("ORAT = %v, want 628.98 BBL/DAY", got)
	}
}

func TestGenerate_Failures(t *testing.T) {
	t.Parallel()

	reg := Builtin()
	tests := []struct {
		name   string
		intent taxonomy.IntentDefinition
		ents   types.Entities
		want   string
	}{
		{
			name:   "unknown intent",
			intent: taxonomy.IntentDefinition{ID: "drill_well"},
			ents:   types.Entities{"well": well("NEW-1")},
			want:   stage.CodeNoTemplateForIntent,
		},
		{
			name:   "missing slot",
			intent: intent(t, "set_well_bhp"),
			ents:   types.Entities{"well": well("PROD-01")},
			want:   stage.CodeNoTemplateForIntent,
		},
		{
			name:   "unitless rate",
			intent: intent(t, "set_injection_rate"),
			ents:   types.Entities{"well": well("INJ-01"), "rate": rate(500, "")},
			want:   stage.CodeSyntaxGenerationFailure,
		},
		{
			name:   "unknown control mode",
			intent: intent(t, "set_well_rate"),
			ents:   types.Entities{"well": well("PROD-01"), "rate": rate(5, units.BBLPerDay), "control": control("GRAT")},
			want:   stage.CodeSyntaxGenerationFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := reg.Generate(tt.intent, tt.ents, units.Field)
			if r.Success() {
				t.Fatalf("Generate succeeded: %q", r.Data())
			}
			if !slices.Equal(r.Errors(), []string{tt.want}) {
				t.Errorf("Errors = %v, want [%s]", r.Errors(), tt.want)
			}
			if _, ok := r.Meta(MetaError); !ok {
				t.Error("failure carries no error detail")
			}
		})
	}
}

func TestNewRegistry_Errors(t *testing.T) {
	t.Parallel()

	noop := func(types.Entities, units.System) (*deck.Keyword, error) { return nil, nil }
	_, err := NewRegistry(
		Template{Intent: "a", Slots: []string{"x", "y"}, Render: noop},
		Template{Intent: "a", Slots: []string{"y", "x"}, Render: noop},
		Template{Slots: []string{"x"}, Render: noop},
		Template{Intent: "b"},
	)
	if err == nil {
		t.Fatal("NewRegistry: expected error")
	}
	for _, want := range []string{"already has a template", "intent is required", "render func is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestCheckCoverage(t *testing.T) {
	t.Parallel()

	if missing := Builtin().CheckCoverage(taxonomy.Default()); len(missing) != 0 {
		t.Errorf("default taxonomy intents without templates: %v", missing)
	}

	tax, err := taxonomy.Load(strings.NewReader("intents:\n  - id: drill_well\n    keywords: [drill]\n  - id: shut_well\n    keywords: [shut]\n"))
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if missing := Builtin().CheckCoverage(tax); !slices.Equal(missing, []string{"drill_well"}) {
		t.Errorf("CheckCoverage = %v, want [drill_well]", missing)
	}
	if got := Builtin().Intents(); len(got) != 6 {
		t.Errorf("Intents = %v", got)
	}
}
