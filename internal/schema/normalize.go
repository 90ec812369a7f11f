// Package schema maps Airtable table metadata onto a relational schema: one
// column per selected field, with names and SQL types derived from the field
// type, user overrides and the configured column filters. The result is the
// schema document that both DDL generation and data loading consume.
//
// Everything here is pure. Nothing performs I/O except the document helpers
// in document.go.
package schema

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Folding selects what happens to letters outside ASCII before names are
// filtered down to [a-z0-9_].
type Folding int

const (
	// FoldNone drops every non-ASCII rune: "Café" becomes "caf".
	FoldNone Folding = iota
	// FoldAccents strips diacritics first: "Café" becomes "cafe". Letters
	// without an ASCII base (ß, 名) are still dropped.
	FoldAccents
)

// foldMarks decomposes accented letters and drops the combining marks.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize turns a display name into a column identifier: lower case,
// everything except ASCII letters, digits, underscores and whitespace
// removed, whitespace runs collapsed into a single underscore.
//
//	Normalize("Foo Bar (x)") == "foo_bar_x"
//
// Normalize is total and idempotent.
func Normalize(name string) string { return FoldNone.Normalize(name) }

// Normalize is the package-level Normalize with f applied first.
func (f Folding) Normalize(name string) string {
	if f == FoldAccents {
		if folded, _, err := transform.String(foldMarks, name); err == nil {
			name = folded
		}
	}

	var b strings.Builder
	b.Grow(len(name))
	inSpace := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsSpace(r):
			inSpace = true
		case r < utf8.RuneSelf && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)):
			if inSpace {
				b.WriteByte('_')
				inSpace = false
			}
			b.WriteRune(r)
		}
	}
	if inSpace {
		b.WriteByte('_')
	}
	return b.String()
}
