package term

import (
	"unicode"

	"golang.org/x/text/width"
)

// RuneWidth classifies the display width of a decoded rune in terminal
// columns, as described in SPEC_FULL.md §3 ("Addition — cell display
// width"): 0 for combining marks and other non-printables, 2 for East Asian
// wide/fullwidth glyphs, 1 otherwise.
func RuneWidth(r rune) uint8 {
	if r == 0 {
		return 0
	}
	if !unicode.IsPrint(r) {
		return 0
	}
	if unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Me, r) || unicode.Is(unicode.Mc, r) {
		return 0
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}
