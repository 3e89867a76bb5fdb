package check

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningDiacriticalMarks is the U+0300..U+036F block.
var combiningDiacriticalMarks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

// stripDiacritics decomposes s and drops characters of the combining
// diacritical marks block, so "café" becomes "cafe".
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(combiningDiacriticalMarks)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stripMarksForURL decomposes s, drops every nonspacing mark (category Mn)
// and folds en dash and em dash into an ASCII hyphen.
func stripMarksForURL(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			switch r {
			case '–', '—':
				return '-'
			}
			return r
		}),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
