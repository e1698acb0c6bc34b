package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters without a canonical decomposition that still carry a base letter.
var foldReplacer = strings.NewReplacer(
	"ø", "o", "Ø", "o",
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"ł", "l", "Ł", "l",
	"đ", "d", "Đ", "d",
	"ı", "i",
)

// Normalize folds s into the form used for name matching: trimmed, case-folded,
// diacritics stripped, hyphens read as spaces, dots and apostrophes dropped and
// inner whitespace collapsed.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// transform chains carry state; build one per call so Normalize is safe for concurrent use.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	folded, _, err := transform.String(t, foldReplacer.Replace(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	folded = strings.Map(func(r rune) rune {
		switch r {
		case '.', '\'', '’', '`':
			return -1
		case '-', '‐', '–', '_':
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}
