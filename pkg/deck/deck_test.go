package deck_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/decksmith/pkg/deck"
)

const sampleDeck = `-- test deck
RUNSPEC
DIMENS
 10 10 3 /

SCHEDULE
-- controls
WCONPROD
  'PROD-01' 'OPEN' 'ORAT' 500 4* 2500 /   -- inline
/
DATES
 1 'JAN' 2026 /
/
-- end
`

const canonicalSample = `-- test deck
RUNSPEC

DIMENS
  10 10 3 /

SCHEDULE

-- controls
WCONPROD
  'PROD-01' 'OPEN' 'ORAT' 500 4* 2500 /
/

-- inline
DATES
  1 'JAN' 2026 /
/

-- end
`

func TestTokenize_Types(t *testing.T) {
	t.Parallel()

	toks := deck.Tokenize("WCONPROD\n  'PROD-01' 'OPEN' 'ORAT' 500 4* /\n/\n")

	var got []deck.TokenType
	for _, tok := range toks {
		got = append(got, tok.Type)
	}
	want := []deck.TokenType{
		deck.TokenWord,
		deck.TokenString, deck.TokenString, deck.TokenString,
		deck.TokenNumber, deck.TokenDefault, deck.TokenSlash,
		deck.TokenSlash,
		deck.TokenEOF,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Tokenize types mismatch (-want +got):\n%s", diff)
	}

	if toks[2].Line != 2 || toks[2].Column != 13 {
		t.Errorf("'OPEN' position = %d:%d, want 2:13", toks[2].Line, toks[2].Column)
	}
	if toks[1].Value() != "PROD-01" {
		t.Errorf("Value() = %q, want %q", toks[1].Value(), "PROD-01")
	}
}

func TestTokenize_NeverFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "stray symbol", src: "#", want: "#"},
		{name: "unterminated string", src: "'abc", want: "'abc"},
		{name: "malformed number", src: "1.2.3", want: "1.2.3"},
		{name: "non-ascii rune", src: "µ", want: "µ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			toks := deck.Tokenize(tt.src)
			if len(toks) != 2 {
				t.Fatalf("Tokenize(%q) returned %d tokens, want 2", tt.src, len(toks))
			}
			if toks[0].Type != deck.TokenUnknown || toks[0].Text != tt.want {
				t.Errorf("Tokenize(%q)[0] = %v %q, want UNKNOWN %q", tt.src, toks[0].Type, toks[0].Text, tt.want)
			}
		})
	}
}

func TestTokenize_Numbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src     string
		typ     deck.TokenType
		value   float64
		hasVal  bool
		repeats int
	}{
		{src: "500", typ: deck.TokenNumber, value: 500, hasVal: true, repeats: 1},
		{src: "-3.5", typ: deck.TokenNumber, value: -3.5, hasVal: true, repeats: 1},
		{src: "1.5E+03", typ: deck.TokenNumber, value: 1500, hasVal: true, repeats: 1},
		{src: "3*", typ: deck.TokenDefault, repeats: 3},
		{src: "2*0.25", typ: deck.TokenDefault, value: 0.25, hasVal: true, repeats: 2},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			tok := deck.Tokenize(tt.src)[0]
			if tok.Type != tt.typ {
				t.Fatalf("type = %v, want %v", tok.Type, tt.typ)
			}
			v, ok := tok.Float()
			if ok != tt.hasVal || (ok && v != tt.value) {
				t.Errorf("Float() = (%v, %v), want (%v, %v)", v, ok, tt.value, tt.hasVal)
			}
			if tok.Repeat() != tt.repeats {
				t.Errorf("Repeat() = %d, want %d", tok.Repeat(), tt.repeats)
			}
		})
	}
}

func TestParse_Structure(t *testing.T) {
	t.Parallel()

	d, err := deck.ParseString(sampleDeck)
	if err != nil {
		t.Fatalf("ParseString: unexpected error: %v", err)
	}

	if len(d.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(d.Sections))
	}
	if d.Sections[0].Name != "RUNSPEC" || d.Sections[1].Name != "SCHEDULE" {
		t.Errorf("section names = %q, %q", d.Sections[0].Name, d.Sections[1].Name)
	}

	sched := d.Section("SCHEDULE")
	if len(sched.Keywords) != 2 {
		t.Fatalf("SCHEDULE keywords = %d, want 2", len(sched.Keywords))
	}
	wcon := sched.Keywords[0]
	if wcon.Name != "WCONPROD" || !wcon.Terminated || len(wcon.Records) != 1 {
		t.Fatalf("WCONPROD = %+v", wcon)
	}
	if len(wcon.Comments) != 1 || wcon.Comments[0].Text != "controls" {
		t.Errorf("WCONPROD comments = %+v", wcon.Comments)
	}

	rec := wcon.Records[0]
	if tok, ok := rec.Item(9); !ok || tok.Text != "2500" {
		t.Errorf("Item(9) = %v %v, want 2500", tok, ok)
	}
	if _, ok := rec.Item(6); ok {
		t.Error("Item(6) should be defaulted")
	}
	if _, ok := rec.Item(10); ok {
		t.Error("Item(10) should be past the end")
	}

	if len(d.Trailing) != 1 || d.Trailing[0].Text != "end" {
		t.Errorf("Trailing = %+v", d.Trailing)
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		line     int
		column   int
		expected string
	}{
		{name: "record outside keyword", src: "  500 /\n", line: 1, column: 3, expected: "keyword"},
		{name: "unterminated record", src: "WCONPROD\n  'P1' 'OPEN'\n", line: 3, column: 1, expected: `"/"`},
		{name: "record after terminator", src: "WCONPROD\n/\n  'P1' /\n", line: 3, column: 3, expected: "keyword"},
		{name: "lower-case keyword", src: "wconprod\n", line: 1, column: 1, expected: "keyword"},
		{name: "unknown token", src: "WELOPEN\n  'P1' # /\n", line: 2, column: 8, expected: "record item or keyword"},
		{name: "double terminator", src: "WELOPEN\n/\n/\n", line: 3, column: 1, expected: "keyword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := deck.ParseString(tt.src)
			var se *deck.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("ParseString: expected *SyntaxError, got %v", err)
			}
			if se.Line != tt.line || se.Column != tt.column || se.Expected != tt.expected {
				t.Errorf("SyntaxError = %d:%d expected %s, want %d:%d expected %s",
					se.Line, se.Column, se.Expected, tt.line, tt.column, tt.expected)
			}
		})
	}
}

func TestSerialize_Canonical(t *testing.T) {
	t.Parallel()

	d, err := deck.ParseString(sampleDeck)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	got := deck.Serialize(d)
	if diff := cmp.Diff(canonicalSample, got); diff != "" {
		t.Fatalf("Serialize mismatch (-want +got):\n%s", diff)
	}
}

func TestSerialize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		sampleDeck,
		"NOSIM\nWELOPEN\n  'P1' 'SHUT' /\n/\n",
		"-- only a comment\n",
		"",
		"SCHEDULE\nTSTEP\n 10 20 /\n",
	}
	for _, src := range inputs {
		d, err := deck.ParseString(src)
		if err != nil {
			t.Fatalf("ParseString(%q): %v", src, err)
		}
		first := deck.Serialize(d)
		again, err := deck.ParseString(first)
		if err != nil {
			t.Fatalf("ParseString(Serialize): %v\n%s", err, first)
		}
		if second := deck.Serialize(again); second != first {
			t.Errorf("round trip not idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
		}
	}
}

func TestMerge_KeepsSectionOrder(t *testing.T) {
	t.Parallel()

	base, err := deck.ParseString("RUNSPEC\nDIMENS\n  1 1 1 /\nSCHEDULE\nWELOPEN\n  'P1' 'SHUT' /\n/\n")
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	frag, err := deck.ParseString("SCHEDULE\nWELOPEN\n  'P2' 'OPEN' /\n/\nSUMMARY\nFOPR\n")
	if err != nil {
		t.Fatalf("parse fragment: %v", err)
	}

	base.Merge(frag)

	var names []string
	for _, s := range base.Sections {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"RUNSPEC", "SCHEDULE", "SUMMARY"}, names); diff != "" {
		t.Errorf("section order (-want +got):\n%s", diff)
	}
	if n := len(base.Section("SCHEDULE").Keywords); n != 2 {
		t.Errorf("SCHEDULE keywords = %d, want 2", n)
	}
	if _, err := deck.ParseString(deck.Serialize(base)); err != nil {
		t.Errorf("merged deck does not reparse: %v", err)
	}
}

func TestBuilders(t *testing.T) {
	t.Parallel()

	d := &deck.Deck{Sections: []*deck.Section{{
		Name: "SCHEDULE",
		Keywords: []*deck.Keyword{{
			Name:       "WCONPROD",
			Records:    []deck.Record{{Tokens: []deck.Token{deck.Str("PROD-01"), deck.Ident("OPEN"), deck.Num(628.5), deck.Defaults(2), deck.Int(3)}}},
			Terminated: true,
		}},
	}}}

	want := "SCHEDULE\n\nWCONPROD\n  'PROD-01' OPEN 628.5 2* 3 /\n/\n"
	if got := deck.Serialize(d); got != want {
		t.Fatalf("Serialize = %q, want %q", got, want)
	}
	parsed, err := deck.ParseString(want)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	tok, ok := parsed.Keywords()[0].Records[0].Item(6)
	if !ok || tok.Text != "3" {
		t.Errorf("Item(6) = %v %v, want 3", tok, ok)
	}
}
