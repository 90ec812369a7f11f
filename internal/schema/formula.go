package schema

import (
	"regexp"
	"strings"
)

var (
	fieldRefRE = regexp.MustCompile(`\{(\w+)\}`)
	spaceRE    = regexp.MustCompile(`\s+`)
	commaRE    = regexp.MustCompile(`,(\S)`)
)

// RewriteFormula makes a formula readable: {fldXXX} references become the
// quoted display name of the field (unknown ids stay as they are), newlines
// are dropped, whitespace runs shrink to one space, ",X" becomes ", X" and
// double quotes become single quotes.
//
//	RewriteFormula(`{fld1}+{fld2}`, map[string]string{"fld1": "A", "fld2": "B"}) == `'A'+'B'`
//
// The expression is not parsed.
func RewriteFormula(expr string, idToName map[string]string) string {
	out := fieldRefRE.ReplaceAllStringFunc(expr, func(tok string) string {
		if name, ok := idToName[tok[1:len(tok)-1]]; ok {
			return `"` + name + `"`
		}
		return tok
	})
	out = strings.NewReplacer("\r", "", "\n", "").Replace(out)
	out = spaceRE.ReplaceAllString(out, " ")
	out = commaRE.ReplaceAllString(out, ", $1")
	return strings.ReplaceAll(out, `"`, `'`)
}
