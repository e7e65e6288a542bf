package asset

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	// suggestThreshold is the minimum Jaro-Winkler similarity for a name to
	// be offered as a suggestion.
	suggestThreshold = 0.8

	// phoneticScore is awarded when the letter parts sound alike and the
	// number parts are equal, e.g. "PROD-1" and "PRD-01".
	phoneticScore = 0.9
)

// Suggest returns up to limit names from candidates that are close to name,
// best match first. Exact matches are never suggested.
func Suggest(name string, candidates []string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	want := Normalize(name)
	wantLetters, wantDigits := splitName(want)
	wantCodes := metaphoneCodes(wantLetters)

	type scored struct {
		name  string
		score float64
	}
	var hits []scored
	for _, c := range candidates {
		c = Normalize(c)
		if c == "" || c == want {
			continue
		}
		score := matchr.JaroWinkler(want, c, false)
		letters, digits := splitName(c)
		if digits == wantDigits && overlaps(wantCodes, metaphoneCodes(letters)) {
			score = max(score, phoneticScore)
		}
		if score >= suggestThreshold {
			hits = append(hits, scored{name: c, score: score})
		}
	}
	slices.SortFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	out := make([]string, 0, min(limit, len(hits)))
	for _, h := range hits[:min(limit, len(hits))] {
		out = append(out, h.name)
	}
	return out
}

// splitName separates the letters of a well name from its number, with
// leading zeros removed: "PROD-01" gives ("PROD", "1").
func splitName(n string) (letters, digits string) {
	var lb, db strings.Builder
	for _, r := range n {
		switch {
		case unicode.IsLetter(r):
			lb.WriteRune(r)
		case unicode.IsDigit(r):
			db.WriteRune(r)
		}
	}
	digits = strings.TrimLeft(db.String(), "0")
	return lb.String(), digits
}

func metaphoneCodes(word string) []string {
	if word == "" {
		return nil
	}
	p, s := matchr.DoubleMetaphone(word)
	var out []string
	for _, c := range []string{p, s} {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
