package taxonomy

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/decksmith/pkg/types"
	"github.com/MrWong99/decksmith/pkg/units"
)

//go:embed default.yaml
var defaultYAML []byte

// LoadError reports why a taxonomy source was rejected. Err joins every
// problem found.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("taxonomy: load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// File is the on-disk layout of a taxonomy.
//
// Example:
//
//	version: "2026.1"
//	unit_system: FIELD
//	intents:
//	  - id: shut_well
//	    trigger_patterns: ['\bshut\s+(?:in\s+)?(?:well\s+)?\S+']
//	    keywords: [shut, close]
//	    slots:
//	      - name: well
//	        type: well_name
//	        required: true
type File struct {
	Version    string             `yaml:"version"`
	UnitSystem units.System       `yaml:"unit_system"`
	Intents    []IntentDefinition `yaml:"intents"`
}

var (
	idRe       = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	slotNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Default returns the built-in reservoir-control taxonomy.
func Default() *Taxonomy {
	t, err := load("built-in", bytes.NewReader(defaultYAML))
	if err != nil {
		panic(err)
	}
	return t
}

// LoadFile reads a taxonomy from a YAML file.
func LoadFile(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()
	return load(path, f)
}

// Load reads a taxonomy from YAML. The reader is consumed entirely.
func Load(r io.Reader) (*Taxonomy, error) {
	return load("reader", r)
}

func load(source string, r io.Reader) (*Taxonomy, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("decode yaml: %w", err)}
	}
	t, err := build(f)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return t, nil
}

// build validates f and compiles it into a snapshot. Every problem is
// reported, not just the first.
func build(f File) (*Taxonomy, error) {
	var errs []error

	system := f.UnitSystem
	if system == "" {
		system = units.Field
	}
	if !system.Valid() {
		errs = append(errs, fmt.Errorf("unit_system %q is invalid; valid values: FIELD, METRIC", f.UnitSystem))
	}
	if len(f.Intents) == 0 {
		errs = append(errs, errors.New("no intents defined"))
	}

	t := &Taxonomy{
		version:    f.Version,
		unitSystem: system,
		intents:    make([]IntentDefinition, 0, len(f.Intents)),
		byID:       make(map[string]int, len(f.Intents)),
	}

	for i, def := range f.Intents {
		prefix := fmt.Sprintf("intents[%d]", i)
		switch {
		case def.ID == "":
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		case !idRe.MatchString(def.ID):
			errs = append(errs, fmt.Errorf("%s.id %q is malformed; use lower_snake_case", prefix, def.ID))
		default:
			if prev, dup := t.byID[def.ID]; dup {
				errs = append(errs, fmt.Errorf("%s.id %q is a duplicate of intents[%d]", prefix, def.ID, prev))
			}
		}
		if def.ID != "" {
			prefix = fmt.Sprintf("intent %q", def.ID)
		}

		compiled, err := compileIntent(def)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
			continue
		}
		if _, dup := t.byID[def.ID]; !dup {
			t.byID[def.ID] = len(t.intents)
		}
		t.intents = append(t.intents, compiled)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func compileIntent(def IntentDefinition) (IntentDefinition, error) {
	var errs []error

	if len(def.TriggerPatterns) == 0 && len(def.Keywords) == 0 {
		errs = append(errs, errors.New("needs at least one trigger pattern or keyword"))
	}
	def.patterns = make([]*regexp.Regexp, 0, len(def.TriggerPatterns))
	for j, p := range def.TriggerPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			errs = append(errs, fmt.Errorf("trigger_patterns[%d]: %w", j, err))
			continue
		}
		def.patterns = append(def.patterns, re)
	}
	kws := make([]string, len(def.Keywords))
	for j, k := range def.Keywords {
		kws[j] = strings.ToLower(strings.TrimSpace(k))
	}
	def.Keywords = kws

	seen := make(map[string]bool, len(def.Slots))
	slots := make([]SlotSpec, len(def.Slots))
	for j, s := range def.Slots {
		prefix := fmt.Sprintf("slots[%d]", j)
		if !slotNameRe.MatchString(s.Name) {
			errs = append(errs, fmt.Errorf("%s.name %q is malformed", prefix, s.Name))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate", prefix, s.Name))
		}
		seen[s.Name] = true

		ns, err := normalizeSlot(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
		}
		slots[j] = ns
	}
	def.Slots = slots

	if len(errs) > 0 {
		return IntentDefinition{}, errors.Join(errs...)
	}
	return def, nil
}

func normalizeSlot(s SlotSpec) (SlotSpec, error) {
	var errs []error

	if !s.Type.IsValid() {
		errs = append(errs, fmt.Errorf("type %q is invalid; valid values: well_name, rate, pressure, date, enum", s.Type))
	}

	kind, quantity := s.Type.UnitKind()
	switch {
	case quantity && s.UnitHint == "":
		s.UnitHint = units.Field.DeckUnit(kind)
	case quantity:
		if got, ok := units.KindOf(s.UnitHint); !ok || got != kind {
			errs = append(errs, fmt.Errorf("unit_hint %q is not a %s unit", s.UnitHint, kind))
		}
	case s.UnitHint != "":
		errs = append(errs, fmt.Errorf("unit_hint is only valid for rate and pressure slots"))
	}

	if s.Type == types.SlotEnum {
		if len(s.Values) == 0 {
			errs = append(errs, errors.New("enum slot needs values"))
		}
		values := make([]string, len(s.Values))
		for i, v := range s.Values {
			values[i] = strings.ToUpper(v)
		}
		s.Values = values

		aliases := make(map[string]string, len(s.Aliases))
		for k, v := range s.Aliases {
			v = strings.ToUpper(v)
			if !slices.Contains(values, v) {
				errs = append(errs, fmt.Errorf("alias %q maps to unknown value %q", k, v))
			}
			aliases[strings.ToLower(k)] = v
		}
		s.Aliases = aliases

		if s.Default != "" {
			s.Default = strings.ToUpper(s.Default)
			if !slices.Contains(values, s.Default) {
				errs = append(errs, fmt.Errorf("default %q is not one of %v", s.Default, values))
			}
		}
	} else if s.Default != "" {
		errs = append(errs, errors.New("default is only supported for enum slots"))
	}

	if s.Required && s.Default != "" {
		errs = append(errs, errors.New("a required slot cannot have a default"))
	}

	return s, errors.Join(errs...)
}
