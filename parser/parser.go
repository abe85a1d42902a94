package parser

import (
	"strconv"
	"strings"
)

// state is the parser's logical position in the grammar (spec.md §4.1).
type state int

const (
	stateDefault state = iota
	stateEsc
	stateCsi
	stateOsc
	stateCharsetIntro   // after ESC ( ) * + , expecting a designator byte (or '%')
	stateCharsetPercent // after the '%' of a two-byte designator, expecting its final byte
	stateUTF8           // mid multi-byte UTF-8 sequence
	stateOscEscape      // OSC payload saw ESC, expecting the '\' that completes a 7-bit ST
)

// maxScratchLen bounds the CSI/OSC accumulation buffer (spec.md §4.1: "bounded
// in length (implementation-defined, e.g. 4 KiB); overflow is a recoverable
// parse error that resets to Default").
const maxScratchLen = 4096

// Parser is a stateful, incremental decoder: state persists across Parse
// calls so a caller may feed it arbitrarily small chunks of a PTY stream and
// get back the same events as feeding it whole (spec.md §8 Testable
// Property 1). A Parser is not safe for concurrent use.
type Parser struct {
	st state

	csiBuf            []byte
	oscBuf            []byte
	charsetIntroducer byte

	utf8Accum  rune
	utf8Remain int
}

// New returns a Parser positioned at the start of the grammar.
func New() *Parser {
	return &Parser{st: stateDefault}
}

// Parse consumes data and returns every event it completes. Bytes that begin
// a sequence without completing it are retained in the Parser's internal
// state for the next call — there is no separate "NeedMore" return because
// Parse already drains everything decidable from what it was given.
func (p *Parser) Parse(data []byte) []Event {
	var out []Event
	emit := func(e Event) { out = append(out, e) }
	for _, b := range data {
		p.processByte(b, emit)
	}
	return out
}

func (p *Parser) processByte(b byte, emit func(Event)) {
	switch p.st {
	case stateDefault:
		p.processDefault(b, emit)
	case stateUTF8:
		p.processUTF8(b, emit)
	case stateEsc:
		p.processEsc(b, emit)
	case stateCsi:
		p.processCsi(b, emit)
	case stateOsc:
		p.processOsc(b, emit)
	case stateOscEscape:
		p.processOscEscape(b, emit)
	case stateCharsetIntro:
		p.processCharsetIntro(b, emit)
	case stateCharsetPercent:
		p.processCharsetFinal(b, true, emit)
	}
}

func (p *Parser) processDefault(b byte, emit func(Event)) {
	switch {
	case b == 0x1b:
		p.st = stateEsc
	case b == 0x07:
		emit(Event{Kind: KindBell})
	case b == 0x08:
		emit(Event{Kind: KindBackspace})
	case b == 0x09:
		emit(Event{Kind: KindTab})
	case b == 0x0a:
		emit(Event{Kind: KindLineFeed})
	case b == 0x0b:
		emit(Event{Kind: KindTabVertical})
	case b == 0x0c:
		emit(Event{Kind: KindFormFeed})
	case b == 0x0d:
		emit(Event{Kind: KindCarriageReturn})
	case b == 0x0e:
		emit(Event{Kind: KindShiftOut})
	case b == 0x0f:
		emit(Event{Kind: KindShiftIn})
	case b == 0x05:
		emit(Event{Kind: KindReturnTerminalStatus})
	case b >= 0x20 && b < 0x7f:
		emit(Event{Kind: KindUnicode, Rune: rune(b)})
	case b&0xE0 == 0xC0:
		p.beginUTF8(rune(b&0x1F), 1)
	case b&0xF0 == 0xE0:
		p.beginUTF8(rune(b&0x0F), 2)
	case b&0xF8 == 0xF0:
		p.beginUTF8(rune(b&0x07), 3)
	default:
		// Other C0/C1/DEL bytes and stray continuation bytes: not part of
		// the documented subset; dropped silently rather than stalling
		// the stream.
	}
}

func (p *Parser) beginUTF8(lead rune, remaining int) {
	p.st = stateUTF8
	p.utf8Accum = lead
	p.utf8Remain = remaining
}

func (p *Parser) processUTF8(b byte, emit func(Event)) {
	if b&0xC0 == 0x80 {
		p.utf8Accum = p.utf8Accum<<6 | rune(b&0x3F)
		p.utf8Remain--
		if p.utf8Remain == 0 {
			r := p.utf8Accum
			p.st = stateDefault
			emit(Event{Kind: KindUnicode, Rune: r})
		}
		return
	}
	// Invalid continuation byte: emit a recoverable error and resync by
	// treating the offending byte as a fresh lead byte (spec.md §4.1).
	p.st = stateDefault
	emit(Event{Kind: KindParseError, Err: "unexpected UTF-8 byte", Bytes: []byte{b}})
	p.processByte(b, emit)
}

func (p *Parser) processEsc(b byte, emit func(Event)) {
	p.st = stateDefault
	switch b {
	case '[':
		p.st = stateCsi
		p.csiBuf = p.csiBuf[:0]
	case ']':
		p.st = stateOsc
		p.oscBuf = p.oscBuf[:0]
	case 'D':
		emit(Event{Kind: KindIndex})
	case 'E':
		emit(Event{Kind: KindNextLine})
	case 'H':
		emit(Event{Kind: KindTabSet})
	case 'M':
		emit(Event{Kind: KindReverseIndex})
	case 'N':
		emit(Event{Kind: KindSingleShiftSelectG2})
	case 'O':
		emit(Event{Kind: KindSingleShiftSelectG3})
	case 'P':
		emit(Event{Kind: KindDeviceControlString})
	case 'V':
		emit(Event{Kind: KindStartOfGuardedArea})
	case 'W':
		emit(Event{Kind: KindEndOfGuardedArea})
	case 'X':
		emit(Event{Kind: KindStartOfString})
	case 'Z':
		emit(Event{Kind: KindReturnTerminalID})
	case '\\':
		emit(Event{Kind: KindStringTerminator})
	case '^':
		emit(Event{Kind: KindPrivacyMessage})
	case '_':
		emit(Event{Kind: KindApplicationProgramCommand})
	case '=':
		emit(Event{Kind: KindSetKeypadMode, Keypad: KeypadApplication})
	case '>':
		emit(Event{Kind: KindSetKeypadMode, Keypad: KeypadNumeric})
	case '7':
		emit(Event{Kind: KindSaveCursor})
	case '8':
		emit(Event{Kind: KindRestoreCursor})
	case 'c':
		emit(Event{Kind: KindFullReset})
	case '(', ')', '*', '+':
		p.st = stateCharsetIntro
		p.charsetIntroducer = b
	default:
		emit(Event{Kind: KindParseError, Err: "unknown ESC sequence", Bytes: []byte{b}})
	}
}

func (p *Parser) processCharsetIntro(b byte, emit func(Event)) {
	if b == '%' {
		p.st = stateCharsetPercent
		return
	}
	p.processCharsetFinal(b, false, emit)
}

func (p *Parser) processCharsetFinal(b byte, pct bool, emit func(Event)) {
	p.st = stateDefault
	slot, ok := charsetSlot(p.charsetIntroducer)
	if !ok {
		emit(Event{Kind: KindParseError, Err: "unknown charset slot", Bytes: []byte{p.charsetIntroducer}})
		return
	}
	cs, ok := charsetFromFinal(b, pct)
	if !ok {
		emit(Event{Kind: KindParseError, Err: "unknown charset designator", Bytes: []byte{b}})
		return
	}
	emit(Event{Kind: KindDesignateCharset, Slot: slot, Charset: cs})
}

func (p *Parser) processCsi(b byte, emit func(Event)) {
	switch {
	case b >= 0x20 && b <= 0x3f:
		if len(p.csiBuf) >= maxScratchLen {
			p.st = stateDefault
			emit(Event{Kind: KindParseError, Err: "CSI sequence too long"})
			return
		}
		p.csiBuf = append(p.csiBuf, b)
	case b >= 0x40 && b <= 0x7e:
		p.st = stateDefault
		p.dispatchCSI(b, emit)
	default:
		p.st = stateDefault
		emit(Event{Kind: KindParseError, Err: "invalid CSI byte", Bytes: []byte{b}})
	}
}

func (p *Parser) processOsc(b byte, emit func(Event)) {
	if b == 0x07 {
		p.st = stateDefault
		p.dispatchOSC(emit)
		return
	}
	if b == 0x1b {
		// Could be the ESC of a 7-bit ST (ESC \) terminator, or a bare ESC
		// abandoning the OSC string outright; processOscEscape decides.
		p.st = stateOscEscape
		return
	}
	if len(p.oscBuf) >= maxScratchLen {
		p.st = stateDefault
		emit(Event{Kind: KindParseError, Err: "OSC sequence too long"})
		return
	}
	p.oscBuf = append(p.oscBuf, b)
}

// processOscEscape follows an ESC seen while accumulating an OSC string. A
// '\' completes the 7-bit String Terminator and the OSC dispatches
// normally; any other byte means the ESC was not a terminator, so the OSC
// is dispatched as-is and the byte is reprocessed as the start of whatever
// it actually begins (mirroring the UTF-8 resync-on-invalid-byte pattern).
func (p *Parser) processOscEscape(b byte, emit func(Event)) {
	p.st = stateDefault
	p.dispatchOSC(emit)
	if b != '\\' {
		p.processByte(b, emit)
	}
}

// parseCSIParams splits the accumulated CSI scratch buffer into its numeric
// parameter list and its private-mode prefix character (0 when there is
// none).
func parseCSIParams(buf []byte) (params []int, prefix byte) {
	s := string(buf)
	if len(s) > 0 && (s[0] == '?' || s[0] == '>' || s[0] == '!') {
		prefix = s[0]
		s = s[1:]
	}
	if s == "" {
		return nil, prefix
	}
	parts := strings.Split(s, ";")
	params = make([]int, len(parts))
	for i, part := range parts {
		if idx := strings.IndexByte(part, ':'); idx >= 0 {
			part = part[:idx]
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			params[i] = 0
		} else {
			params[i] = n
		}
	}
	return params, prefix
}

func param(params []int, idx, def int) int {
	if idx < len(params) && params[idx] > 0 {
		return params[idx]
	}
	return def
}

func paramRaw(params []int, idx, def int) int {
	if idx < len(params) {
		return params[idx]
	}
	return def
}

func (p *Parser) dispatchCSI(final byte, emit func(Event)) {
	params, prefix := parseCSIParams(p.csiBuf)

	switch final {
	case 'A':
		emit(Event{Kind: KindCursorUp, N: param(params, 0, 1)})
	case 'B':
		emit(Event{Kind: KindCursorDown, N: param(params, 0, 1)})
	case 'C':
		emit(Event{Kind: KindCursorForward, N: param(params, 0, 1)})
	case 'D':
		emit(Event{Kind: KindCursorBackward, N: param(params, 0, 1)})
	case 'E':
		emit(Event{Kind: KindCursorNextLine, N: param(params, 0, 1)})
	case 'F':
		emit(Event{Kind: KindCursorPrevLine, N: param(params, 0, 1)})
	case 'G':
		n := param(params, 0, 1)
		emit(Event{Kind: KindCursorHorizontalAbsolute, N: max0(n-1, 0)})
	case 'H', 'f':
		row := param(params, 0, 1)
		col := param(params, 1, 1)
		emit(Event{Kind: KindCursorPosition, N: max0(row-1, 0), N2: max0(col-1, 0), HasN2: true})
	case 'I':
		emit(Event{Kind: KindCursorForwardTab, N: param(params, 0, 1)})
	case 'Z':
		emit(Event{Kind: KindCursorBackwardTab, N: param(params, 0, 1)})
	case 'J':
		emit(Event{Kind: KindEraseInDisplay, Erase: eraseMode(paramRaw(params, 0, 0))})
	case 'K':
		emit(Event{Kind: KindEraseInLine, Erase: eraseMode(paramRaw(params, 0, 0))})
	case 'L':
		emit(Event{Kind: KindInsertLines, N: param(params, 0, 1)})
	case 'M':
		emit(Event{Kind: KindDeleteLines, N: param(params, 0, 1)})
	case 'P':
		emit(Event{Kind: KindDeleteChars, N: param(params, 0, 1)})
	case '@':
		emit(Event{Kind: KindInsertChars, N: param(params, 0, 1)})
	case 'X':
		emit(Event{Kind: KindEraseChars, N: param(params, 0, 1)})
	case 'b':
		emit(Event{Kind: KindRepeatPrecedingChar, N: param(params, 0, 1)})
	case 'd':
		emit(Event{Kind: KindLinePositionAbsolute, N: param(params, 0, 1)})
	case 'e':
		emit(Event{Kind: KindLinePositionRelative, N: param(params, 0, 1)})
	case 'm':
		emit(Event{Kind: KindCharAttrs, Attrs: parseSGR(params)})
	case 'h':
		p.dispatchModeToggle(params, prefix == '?', true, emit)
	case 'l':
		p.dispatchModeToggle(params, prefix == '?', false, emit)
	case 'n':
		if param(params, 0, 0) == 6 {
			emit(Event{Kind: KindCursorPositionReportQuery})
		}
	case 'c':
		if prefix == '>' {
			emit(Event{Kind: KindSecondaryDeviceAttributes})
		} else {
			emit(Event{Kind: KindPrimaryDeviceAttributes})
		}
	case 'r':
		top := param(params, 0, 1)
		if len(params) > 1 && params[1] > 0 {
			bottom := params[1]
			emit(Event{Kind: KindScrollRegion, N: top - 1, N2: bottom, HasN2: true, HasBottom: true})
		} else {
			emit(Event{Kind: KindScrollRegion, N: top - 1, HasBottom: false})
		}
	case 'R':
		row := param(params, 0, 1)
		col := param(params, 1, 1)
		emit(Event{Kind: KindCursorPositionReport, N: max0(row-1, 0), N2: max0(col-1, 0), HasN2: true})
	case 's':
		emit(Event{Kind: KindSaveCursor})
	case 'u':
		emit(Event{Kind: KindRestoreCursor})
	case 't', 'q':
		// Window manipulation / cursor style: accepted, no typed event in
		// this core's scope.
	default:
		emit(Event{Kind: KindParseError, Err: "unknown CSI final byte", Bytes: []byte{final}})
	}
}

func eraseMode(n int) EraseMode {
	switch n {
	case 1:
		return EraseAbove
	case 2, 3:
		return EraseAll
	default:
		return EraseBelow
	}
}

func max0(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}

func (p *Parser) dispatchModeToggle(params []int, private, set bool, emit func(Event)) {
	kind := KindModeSet
	if private {
		kind = KindPrivateModeSet
	}
	if !set {
		if private {
			kind = KindPrivateModeReset
		} else {
			kind = KindModeReset
		}
	}
	modes := make([]int, len(params))
	copy(modes, params)
	emit(Event{Kind: kind, Modes: modes})
}

// parseSGR folds a CSI `m` parameter list into an ordered list of style
// operations (spec.md §4.1 "Character attributes"). An empty list is
// equivalent to a single Reset parameter.
func parseSGR(params []int) []SGRAttr {
	if len(params) == 0 {
		return []SGRAttr{{Op: SGROpReset}}
	}
	var out []SGRAttr
	for i := 0; i < len(params); i++ {
		n := params[i]
		switch {
		case n == 0:
			out = append(out, SGRAttr{Op: SGROpReset})
		case n == 1:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: true, Bit: AttrBitBold})
		case n == 2:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: true, Bit: AttrBitFaint})
		case n == 3:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: true, Bit: AttrBitItalic})
		case n == 4:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: true, Bit: AttrBitUnderlined})
		case n == 5:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: true, Bit: AttrBitBlink})
		case n == 7:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: true, Bit: AttrBitInverse})
		case n == 8:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: true, Bit: AttrBitHidden})
		case n == 9:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: true, Bit: AttrBitCrossedOut})
		case n == 21:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: true, Bit: AttrBitDoublyUnderlined})
		case n == 22:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: false, Bit: AttrBitBold})
			out = append(out, SGRAttr{Op: SGROpAttr, Set: false, Bit: AttrBitFaint})
		case n == 23:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: false, Bit: AttrBitItalic})
		case n == 24:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: false, Bit: AttrBitUnderlined})
		case n == 25:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: false, Bit: AttrBitBlink})
		case n == 27:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: false, Bit: AttrBitInverse})
		case n == 28:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: false, Bit: AttrBitHidden})
		case n == 29:
			out = append(out, SGRAttr{Op: SGROpAttr, Set: false, Bit: AttrBitCrossedOut})
		case n >= 30 && n <= 37:
			out = append(out, SGRAttr{Op: SGROpForeground, Col: Color{Kind: ColorNamed, Index: uint8(n - 30)}})
		case n == 38:
			if c, adv, ok := parseExtendedColor(params, i+1); ok {
				out = append(out, SGRAttr{Op: SGROpForeground, Col: c})
				i += adv
			}
		case n == 39:
			out = append(out, SGRAttr{Op: SGROpForeground, Col: Color{Kind: ColorDefault}})
		case n >= 40 && n <= 47:
			out = append(out, SGRAttr{Op: SGROpBackground, Col: Color{Kind: ColorNamed, Index: uint8(n - 40)}})
		case n == 48:
			if c, adv, ok := parseExtendedColor(params, i+1); ok {
				out = append(out, SGRAttr{Op: SGROpBackground, Col: c})
				i += adv
			}
		case n == 49:
			out = append(out, SGRAttr{Op: SGROpBackground, Col: Color{Kind: ColorDefault}})
		case n >= 90 && n <= 97:
			out = append(out, SGRAttr{Op: SGROpForeground, Col: Color{Kind: ColorNamed, Index: uint8(n - 90 + 8)}})
		case n >= 100 && n <= 107:
			out = append(out, SGRAttr{Op: SGROpBackground, Col: Color{Kind: ColorNamed, Index: uint8(n - 100 + 8)}})
		}
	}
	return out
}

// parseExtendedColor handles the `38;5;n` (palette) and `38;2;r;g;b` (RGB)
// forms starting right after the 38/48 selector at index `start`. Returns
// how many extra parameters were consumed.
func parseExtendedColor(params []int, start int) (Color, int, bool) {
	if start >= len(params) {
		return Color{}, 0, false
	}
	switch params[start] {
	case 5:
		if start+1 < len(params) {
			return Color{Kind: ColorPalette, Index: uint8(params[start+1])}, 2, true
		}
	case 2:
		if start+3 < len(params) {
			return Color{
				Kind: ColorRGB,
				R:    uint8(params[start+1]),
				G:    uint8(params[start+2]),
				B:    uint8(params[start+3]),
			}, 4, true
		}
	}
	return Color{}, 0, false
}

func (p *Parser) dispatchOSC(emit func(Event)) {
	s := string(p.oscBuf)
	semi := strings.IndexByte(s, ';')
	var tagStr, payload string
	if semi < 0 {
		tagStr, payload = s, ""
	} else {
		tagStr, payload = s[:semi], s[semi+1:]
	}
	tag, err := strconv.Atoi(tagStr)
	if err != nil {
		emit(Event{Kind: KindParseError, Err: "unknown OSC tag", Bytes: []byte(s)})
		return
	}
	text := decodeUTF8Lossy([]byte(payload))
	switch tag {
	case 0:
		emit(Event{Kind: KindSetWindowTitle, Text: text})
		emit(Event{Kind: KindSetIconName, Text: text})
	case 2:
		emit(Event{Kind: KindSetWindowTitle, Text: text})
	case 1:
		emit(Event{Kind: KindSetIconName, Text: text})
	default:
		emit(Event{Kind: KindOSCOther, OSCTag: tag, Text: text})
	}
}
