package parser

// Charset identifies one of the 96-character sets a G0..G3 slot can be
// designated to via ESC ( ) * + <byte> (spec.md §4.1 charset table). This
// core never remaps glyphs through the designated set (spec.md §4.2: "G0-G3
// slot assignment may be tracked but is not required to alter glyph
// mapping") — the table exists so designation sequences decode to a typed
// event instead of silently falling through as unknown.
type Charset int

const (
	CharsetUnitedStates Charset = iota
	CharsetUnitedKingdom
	CharsetDutch
	CharsetFinnish
	CharsetFrench
	CharsetFrenchCanadian
	CharsetGerman
	CharsetItalian
	CharsetNorwegianDanish
	CharsetSpanish
	CharsetSwedish
	CharsetSwiss
	CharsetDECSpecialAndLineDrawing
	CharsetDECSupplementary
	CharsetDECSupplementaryGraphics
	CharsetDECTechnical
	CharsetPortuguese
)

// charsetFromFinal maps the byte(s) following ESC ( / ) / * / + to a
// Charset, per spec.md §4.1. pct is true when the designator was preceded
// by '%' (the two-byte %5/%6 forms).
func charsetFromFinal(final byte, pct bool) (Charset, bool) {
	if pct {
		switch final {
		case '5':
			return CharsetDECSupplementaryGraphics, true
		case '6':
			return CharsetPortuguese, true
		default:
			return 0, false
		}
	}
	switch final {
	case '0':
		return CharsetDECSpecialAndLineDrawing, true
	case '<':
		return CharsetDECSupplementary, true
	case '>':
		return CharsetDECTechnical, true
	case 'A':
		return CharsetUnitedKingdom, true
	case 'B':
		return CharsetUnitedStates, true
	case '4':
		return CharsetDutch, true
	case 'C', '5':
		return CharsetFinnish, true
	case 'R', 'f':
		return CharsetFrench, true
	case 'Q', '9':
		return CharsetFrenchCanadian, true
	case 'K':
		return CharsetGerman, true
	case 'Y':
		return CharsetItalian, true
	case '`', 'E', '6':
		return CharsetNorwegianDanish, true
	case 'Z':
		return CharsetSpanish, true
	case 'H', '7':
		return CharsetSwedish, true
	case '=':
		return CharsetSwiss, true
	default:
		return 0, false
	}
}

// charsetSlot maps the designation introducer byte ((, ), *, +) to G0..G3.
func charsetSlot(introducer byte) (int, bool) {
	switch introducer {
	case '(':
		return 0, true
	case ')':
		return 1, true
	case '*':
		return 2, true
	case '+':
		return 3, true
	default:
		return 0, false
	}
}
