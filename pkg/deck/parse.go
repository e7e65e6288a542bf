package deck

import (
	"fmt"
	"regexp"
)

// SyntaxError reports a structural violation at a 1-based source position.
type SyntaxError struct {
	Line     int
	Column   int
	Expected string
	Found    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("deck: %d:%d: expected %s, found %s", e.Line, e.Column, e.Expected, e.Found)
}

var keywordNameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,7}$`)

func found(tok Token) string {
	if tok.Type == TokenEOF {
		return "EOF"
	}
	return fmt.Sprintf("%s %q", tok.Type, tok.Text)
}

// ParseString tokenizes and parses src.
func ParseString(src string) (*Deck, error) {
	return Parse(Tokenize(src))
}

// Parse builds a Deck from a token stream produced by [Tokenize].
//
// A word at column 1 outside an open record starts a keyword (or a section
// when it names one). Items accumulate into a record until a slash; a slash
// with no pending items terminates the current keyword. Comments attach to
// the next node and comments after the last node become Deck.Trailing.
func Parse(tokens []Token) (*Deck, error) {
	d := &Deck{}
	var (
		sec     *Section
		kw      *Keyword
		rec     *Record
		pending []Comment
	)

	for _, tok := range tokens {
		switch tok.Type {
		case TokenComment:
			pending = append(pending, Comment{Text: tok.Text})

		case TokenUnknown:
			return nil, &SyntaxError{Line: tok.Line, Column: tok.Column, Expected: "record item or keyword", Found: found(tok)}

		case TokenWord, TokenString, TokenNumber, TokenDefault:
			if tok.Type == TokenWord && rec == nil && tok.Column == 1 {
				if !keywordNameRe.MatchString(tok.Text) {
					return nil, &SyntaxError{Line: tok.Line, Column: tok.Column, Expected: "keyword", Found: found(tok)}
				}
				if IsSection(tok.Text) {
					sec = &Section{Name: tok.Text, Comments: pending}
					d.Sections = append(d.Sections, sec)
					kw, pending = nil, nil
					continue
				}
				if sec == nil {
					sec = &Section{}
					d.Sections = append(d.Sections, sec)
				}
				kw = &Keyword{Name: tok.Text, Comments: pending}
				sec.Keywords = append(sec.Keywords, kw)
				pending = nil
				continue
			}
			if kw == nil || kw.Terminated {
				return nil, &SyntaxError{Line: tok.Line, Column: tok.Column, Expected: "keyword", Found: found(tok)}
			}
			if rec == nil {
				rec = &Record{Comments: pending}
				pending = nil
			}
			rec.Tokens = append(rec.Tokens, tok)

		case TokenSlash:
			switch {
			case kw == nil || (rec == nil && kw.Terminated):
				return nil, &SyntaxError{Line: tok.Line, Column: tok.Column, Expected: "keyword", Found: found(tok)}
			case rec != nil:
				kw.Records = append(kw.Records, *rec)
				rec = nil
			default:
				kw.Terminated = true
			}

		case TokenEOF:
			if rec != nil {
				return nil, &SyntaxError{Line: tok.Line, Column: tok.Column, Expected: `"/"`, Found: found(tok)}
			}
			d.Trailing = pending
			return d, nil
		}
	}
	d.Trailing = pending
	return d, nil
}
