package formula

import (
	"regexp"
	"strings"
)

// collapseWhitespace squashes runs of formula-irrelevant whitespace
// down to nothing, so "=A1 + 3" and "=A1+3" normalize identically.
var collapseWhitespace = regexp.MustCompile(`[ \t\r\n]+`)

// Canonicalize normalizes formula text the way every cell reference
// and function name should read: uppercased, with incidental
// whitespace removed. It is idempotent: Canonicalize(Canonicalize(s))
// == Canonicalize(s).
//
// There are no quoted strings in this grammar to protect from
// case-folding, so a blind uppercase is safe.
func Canonicalize(text string) string {
	upper := strings.ToUpper(text)
	return collapseWhitespace.ReplaceAllString(upper, "")
}
