package deck

import "strings"

// Serialize writes d in canonical form: section headers and keyword names at
// column 1, records indented by two spaces on a single line each, and a blank
// line before every keyword. Serialize(Parse(Serialize(d))) == Serialize(d)
// for every deck produced by [Parse].
func Serialize(d *Deck) string {
	var b strings.Builder
	for i, sec := range d.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeComments(&b, sec.Comments)
		if sec.Name != "" {
			b.WriteString(sec.Name)
			b.WriteByte('\n')
		}
		for _, kw := range sec.Keywords {
			writeKeyword(&b, kw)
		}
	}
	if len(d.Trailing) > 0 {
		if len(d.Sections) > 0 {
			b.WriteByte('\n')
		}
		writeComments(&b, d.Trailing)
	}
	return b.String()
}

func writeKeyword(b *strings.Builder, kw *Keyword) {
	b.WriteByte('\n')
	writeComments(b, kw.Comments)
	b.WriteString(kw.Name)
	b.WriteByte('\n')
	for _, rec := range kw.Records {
		writeComments(b, rec.Comments)
		b.WriteString("  ")
		for i, tok := range rec.Tokens {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(tok.Text)
		}
		b.WriteString(" /\n")
	}
	if kw.Terminated {
		b.WriteString("/\n")
	}
}

func writeComments(b *strings.Builder, cs []Comment) {
	for _, c := range cs {
		b.WriteString("--")
		if c.Text != "" {
			b.WriteByte(' ')
			b.WriteString(c.Text)
		}
		b.WriteByte('\n')
	}
}
