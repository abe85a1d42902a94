// Package term is the terminal state machine: it applies parser.Events to a
// cell grid, tracks cursor/style/mode state, and appends any reply bytes the
// sequence requires to an output buffer the event core drains (spec.md
// §4.2). Term owns its Grid outright; a renderer may only read it through
// Snapshot, which takes the same mutex Handle uses.
package term

import (
	"fmt"
	"sync"

	"github.com/javanhut/ravencore/parser"
)

// Term is the full mutable state described in spec.md §3: grid, cursor,
// current style, modes, scroll region, title, and the pending-output buffer.
type Term struct {
	mu sync.RWMutex

	grid    *Grid
	cursor  Cursor
	style   Style
	mode    ModeFlags
	private PrivateModeFlags
	region  ScrollRegion

	savedCursor Cursor

	title      string
	iconName   string
	workingDir string

	lastGlyph Cell // for CSI `b` REP
	bellCount int

	outBuf []byte
}

// New creates a Term for a (width, height) grid with every mode at its
// documented default: AutoWrap/Autorepeat/ShowCursor on, full-screen scroll
// region, default style.
func New(width, height int) *Term {
	t := &Term{
		grid:    NewGrid(width, height),
		style:   DefaultStyle(),
		private: defaultPrivateModes(),
		region:  FullScreen(),
	}
	t.cursor.Flags = CursorAutoWrap | CursorAutorepeat
	return t
}

// Width and Height report the current grid size.
func (t *Term) Width() int  { t.mu.RLock(); defer t.mu.RUnlock(); return t.grid.Width() }
func (t *Term) Height() int { t.mu.RLock(); defer t.mu.RUnlock(); return t.grid.Height() }

// Title returns the current window title (spec.md §4.2 `title()`).
func (t *Term) Title() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.title
}

// IconName returns the last icon-name string set via OSC 1/0.
func (t *Term) IconName() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.iconName
}

// WorkingDirectory returns the last directory reported via OSC 7, or "" if
// none has been seen (SPEC_FULL.md §4.2 addition).
func (t *Term) WorkingDirectory() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.workingDir
}

// TakeOutput removes and returns every byte queued for the PTY so far. Term
// never writes to the PTY itself; the event core calls this to drain
// replies (spec.md §4.2, invariant 4 of §3).
func (t *Term) TakeOutput() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.outBuf) == 0 {
		return nil
	}
	out := t.outBuf
	t.outBuf = nil
	return out
}

func (t *Term) queueReply(b []byte) {
	t.outBuf = append(t.outBuf, b...)
}

// TakeBell returns the number of BEL (C0 0x07) bytes seen since the last
// call and resets the counter. A renderer uses this to flash a bell
// indicator without Term itself depending on any rendering concern.
func (t *Term) TakeBell() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.bellCount
	t.bellCount = 0
	return n
}

// Snapshot is a read-only, self-contained view of the grid plus cursor and
// title, safe to hold and iterate after the mutex is released (it copies
// the cell slice once rather than exposing Term's own backing array).
type Snapshot struct {
	Width, Height int
	Cells         []Cell // row-major, len == Width*Height
	CursorRow     int
	CursorCol     int
	CursorVisible bool
	Title         string
}

// Snapshot copies the current grid/cursor/title state for a renderer.
func (t *Term) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cells := make([]Cell, len(t.grid.cells))
	copy(cells, t.grid.cells)
	return Snapshot{
		Width:         t.grid.width,
		Height:        t.grid.height,
		Cells:         cells,
		CursorRow:     t.cursor.Row,
		CursorCol:     t.cursor.Col,
		CursorVisible: t.private&PrivateShowCursor != 0,
		Title:         t.title,
	}
}

// Resize reshapes the grid (spec.md §4.2 resize policy): truncate on shrink,
// pad on grow, clamp the cursor, and reset the scroll region if it no
// longer fits.
func (t *Term) Resize(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.grid.Resize(width, height)
	t.clampCursor()
	if !t.region.valid(height) {
		t.region = FullScreen()
	}
}

func (t *Term) clampCursor() {
	if t.cursor.Row >= t.grid.height {
		t.cursor.Row = t.grid.height - 1
	}
	if t.cursor.Row < 0 {
		t.cursor.Row = 0
	}
	if t.cursor.Col >= t.grid.width {
		t.cursor.Col = t.grid.width - 1
	}
	if t.cursor.Col < 0 {
		t.cursor.Col = 0
	}
}

// Handle applies a single parser.Event to the terminal, mutating the grid
// and cursor and possibly queuing reply bytes (spec.md §4.2).
func (t *Term) Handle(ev parser.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handleLocked(ev)
}

func (t *Term) handleLocked(ev parser.Event) {
	switch ev.Kind {
	case parser.KindUnicode:
		t.put(ev.Rune)
	case parser.KindCarriageReturn:
		t.cursor.Col = 0
		t.cursor.clear(CursorWrapNext)
	case parser.KindBackspace:
		if t.cursor.Col > 0 {
			t.cursor.Col--
		}
		t.cursor.clear(CursorWrapNext)
	case parser.KindTab:
		t.cursor.Col = nextTabStop(t.cursor.Col, t.grid.width)
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorForwardTab:
		for i := 0; i < ev.N; i++ {
			t.cursor.Col = nextTabStop(t.cursor.Col, t.grid.width)
		}
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorBackwardTab:
		for i := 0; i < ev.N; i++ {
			t.cursor.Col = prevTabStop(t.cursor.Col)
		}
		t.cursor.clear(CursorWrapNext)
	case parser.KindLineFeed, parser.KindTabVertical, parser.KindFormFeed:
		t.unboundedDown(1)
		if t.mode&ModeNewLine != 0 {
			t.cursor.Col = 0
		}
		t.cursor.clear(CursorWrapNext)
	case parser.KindIndex:
		t.unboundedDown(1)
		t.cursor.clear(CursorWrapNext)
	case parser.KindReverseIndex:
		t.unboundedUp(1)
		t.cursor.clear(CursorWrapNext)
	case parser.KindNextLine:
		t.unboundedDown(1)
		t.cursor.Col = 0
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorUp:
		t.cursor.Row = clamp(t.cursor.Row-ev.N, 0, t.grid.height-1)
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorDown, parser.KindLinePositionRelative:
		t.cursor.Row = clamp(t.cursor.Row+ev.N, 0, t.grid.height-1)
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorForward:
		t.cursor.Col = clamp(t.cursor.Col+ev.N, 0, t.grid.width-1)
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorBackward:
		t.cursor.Col = clamp(t.cursor.Col-ev.N, 0, t.grid.width-1)
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorNextLine:
		t.cursor.Row = clamp(t.cursor.Row+ev.N, 0, t.grid.height-1)
		t.cursor.Col = 0
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorPrevLine:
		t.cursor.Row = clamp(t.cursor.Row-ev.N, 0, t.grid.height-1)
		t.cursor.Col = 0
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorHorizontalAbsolute:
		t.cursor.Col = clamp(ev.N, 0, t.grid.width-1)
		t.cursor.clear(CursorWrapNext)
	case parser.KindLinePositionAbsolute:
		t.cursor.Row = clamp(ev.N-1, 0, t.grid.height-1)
		t.cursor.clear(CursorWrapNext)
	case parser.KindCursorPosition:
		t.cursor.Row = clamp(ev.N, 0, t.grid.height-1)
		t.cursor.Col = clamp(ev.N2, 0, t.grid.width-1)
		t.cursor.clear(CursorWrapNext)
	case parser.KindEraseInDisplay:
		t.eraseInDisplay(ev.Erase)
	case parser.KindEraseInLine:
		t.eraseInLine(ev.Erase)
	case parser.KindInsertLines:
		top, bottom := t.regionBounds()
		if t.cursor.Row >= top && t.cursor.Row < bottom {
			t.grid.InsertLines(t.cursor.Row, top, bottom, ev.N)
		}
	case parser.KindDeleteLines:
		top, bottom := t.regionBounds()
		if t.cursor.Row >= top && t.cursor.Row < bottom {
			t.grid.DeleteLines(t.cursor.Row, top, bottom, ev.N)
		}
	case parser.KindInsertChars:
		t.grid.InsertChars(t.cursor.Row, t.cursor.Col, ev.N)
	case parser.KindDeleteChars:
		t.grid.DeleteChars(t.cursor.Row, t.cursor.Col, ev.N)
	case parser.KindEraseChars:
		t.grid.EraseChars(t.cursor.Row, t.cursor.Col, ev.N)
	case parser.KindRepeatPrecedingChar:
		for i := 0; i < ev.N; i++ {
			t.putCell(t.lastGlyph)
		}
	case parser.KindCharAttrs:
		t.applyAttrs(ev.Attrs)
	case parser.KindModeSet:
		t.setModes(ev.Modes, true)
	case parser.KindModeReset:
		t.setModes(ev.Modes, false)
	case parser.KindPrivateModeSet:
		t.setPrivateModes(ev.Modes, true)
	case parser.KindPrivateModeReset:
		t.setPrivateModes(ev.Modes, false)
	case parser.KindPrimaryDeviceAttributes:
		t.queueReply([]byte("\x1b[?64;1;2;6;7;8;9;12;15;18;21;23;24;42;44;45;46c"))
	case parser.KindSecondaryDeviceAttributes:
		t.queueReply([]byte("\x1b[>65;20;1c"))
	case parser.KindCursorPositionReportQuery:
		t.queueReply([]byte(fmt.Sprintf("\x1b[%d;%dR", t.cursor.Row+1, t.cursor.Col+1)))
	case parser.KindScrollRegion:
		t.setScrollRegion(ev)
	case parser.KindSaveCursor:
		t.savedCursor = t.cursor
	case parser.KindRestoreCursor:
		t.cursor.Row = t.savedCursor.Row
		t.cursor.Col = t.savedCursor.Col
		t.cursor.clear(CursorWrapNext)
		t.clampCursor()
	case parser.KindSetWindowTitle:
		t.title = ev.Text
	case parser.KindSetIconName:
		t.iconName = ev.Text
	case parser.KindOSCOther:
		if ev.OSCTag == 7 {
			if dir, ok := parseOSC7Path(ev.Text); ok {
				t.workingDir = dir
			}
		}
	case parser.KindFullReset:
		t.resetLocked()

	case parser.KindBell:
		t.bellCount++

	// Parsed and accepted; no observable effect in this core (spec.md §4.2).
	case parser.KindDesignateCharset,
		parser.KindSetKeypadMode,
		parser.KindShiftOut,
		parser.KindShiftIn,
		parser.KindTabSet,
		parser.KindSingleShiftSelectG2,
		parser.KindSingleShiftSelectG3,
		parser.KindDeviceControlString,
		parser.KindStartOfGuardedArea,
		parser.KindEndOfGuardedArea,
		parser.KindStartOfString,
		parser.KindReturnTerminalID,
		parser.KindStringTerminator,
		parser.KindPrivacyMessage,
		parser.KindApplicationProgramCommand,
		parser.KindReturnTerminalStatus,
		parser.KindParseError:
		// no-op

	default:
		// Unrecognized events are ignored rather than panicking — a bug in
		// the parser should never crash Term.
	}
}

func nextTabStop(col, width int) int {
	next := ((col / 8) + 1) * 8
	if next >= width {
		return width - 1
	}
	return next
}

func prevTabStop(col int) int {
	if col <= 0 {
		return 0
	}
	prev := ((col - 1) / 8) * 8
	if prev < 0 {
		return 0
	}
	return prev
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// regionBounds resolves the current scroll region against the live grid
// height.
func (t *Term) regionBounds() (top, bottom int) {
	return t.region.Top, t.region.bottom(t.grid.height)
}

// unboundedDown advances the cursor down n rows, scrolling the region up
// when the cursor would cross the scroll region's bottom edge; a cursor
// below the region stops at the grid's last row without scrolling — see
// spec.md §4.2 "Unbounded vs. bounded movement".
func (t *Term) unboundedDown(n int) {
	top, bottom := t.regionBounds()
	row := t.cursor.Row
	for i := 0; i < n; i++ {
		row++
		if row == bottom {
			t.grid.scrollUp(top, bottom, 1)
			row = bottom - 1
		} else if row >= t.grid.height {
			row = t.grid.height - 1
		}
	}
	t.cursor.Row = row
}

// unboundedUp is the mirror of unboundedDown for ESC M (Reverse Index):
// crossing the region's top edge scrolls the region down; a cursor above
// the region stops at row 0 without scrolling.
func (t *Term) unboundedUp(n int) {
	top, bottom := t.regionBounds()
	row := t.cursor.Row
	for i := 0; i < n; i++ {
		row--
		if row == top-1 {
			t.grid.scrollDown(top, bottom, 1)
			row = top
		} else if row < 0 {
			row = 0
		}
	}
	t.cursor.Row = row
}

// put writes a decoded rune at the cursor, handling AutoWrap/WrapNext
// exactly as spec.md §4.2 describes.
func (t *Term) put(r rune) {
	w := RuneWidth(r)
	if w == 0 {
		w = 1 // spec treats every Unicode event as occupying a cell
	}
	t.putCell(Cell{Glyph: uint32(r), Style: t.style, Width: w})
}

func (t *Term) putCell(c Cell) {
	if t.cursor.has(CursorWrapNext) && t.cursor.has(CursorAutoWrap) {
		t.unboundedDown(1)
		t.cursor.Col = 0
		t.cursor.clear(CursorWrapNext)
	}

	t.grid.Set(t.cursor.Row, t.cursor.Col, c)
	if c.Width == 2 && t.cursor.Col+1 < t.grid.width {
		t.grid.Set(t.cursor.Row, t.cursor.Col+1, emptyCell)
	}
	t.lastGlyph = c

	if t.cursor.Col == t.grid.width-1 {
		t.cursor.set(CursorWrapNext)
	} else {
		step := 1
		if c.Width == 2 {
			step = 2
		}
		next := t.cursor.Col + step
		if next >= t.grid.width {
			t.cursor.Col = t.grid.width - 1
			t.cursor.set(CursorWrapNext)
		} else {
			t.cursor.Col = next
			t.cursor.clear(CursorWrapNext)
		}
	}
}

func (t *Term) eraseInDisplay(mode parser.EraseMode) {
	switch mode {
	case parser.EraseBelow:
		t.grid.ClearRowRange(t.cursor.Row, t.cursor.Col, t.grid.width-1)
		for r := t.cursor.Row + 1; r < t.grid.height; r++ {
			t.grid.ClearRow(r)
		}
	case parser.EraseAbove:
		for r := 0; r < t.cursor.Row; r++ {
			t.grid.ClearRow(r)
		}
		t.grid.ClearRowRange(t.cursor.Row, 0, t.cursor.Col)
	case parser.EraseAll:
		t.grid.ClearAll()
	}
}

func (t *Term) eraseInLine(mode parser.EraseMode) {
	switch mode {
	case parser.EraseBelow: // "Right" in EL terms
		t.grid.ClearRowRange(t.cursor.Row, t.cursor.Col, t.grid.width-1)
	case parser.EraseAbove: // "Left"
		t.grid.ClearRowRange(t.cursor.Row, 0, t.cursor.Col)
	case parser.EraseAll:
		t.grid.ClearRow(t.cursor.Row)
	}
}

func (t *Term) applyAttrs(attrs []parser.SGRAttr) {
	for _, a := range attrs {
		switch a.Op {
		case parser.SGROpReset:
			t.style = DefaultStyle()
		case parser.SGROpAttr:
			bit := attrBitToCharAttr(a.Bit)
			if a.Set {
				t.style.Set(bit)
			} else {
				t.style.Unset(bit)
			}
		case parser.SGROpForeground:
			t.style.Fg = convertColor(a.Col)
		case parser.SGROpBackground:
			t.style.Bg = convertColor(a.Col)
		}
	}
}

func attrBitToCharAttr(b byte) CharAttrs {
	switch b {
	case parser.AttrBitBold:
		return AttrBold
	case parser.AttrBitFaint:
		return AttrFaint
	case parser.AttrBitItalic:
		return AttrItalic
	case parser.AttrBitUnderlined:
		return AttrUnderlined
	case parser.AttrBitBlink:
		return AttrBlink
	case parser.AttrBitInverse:
		return AttrInverse
	case parser.AttrBitHidden:
		return AttrHidden
	case parser.AttrBitCrossedOut:
		return AttrCrossedOut
	case parser.AttrBitDoublyUnderlined:
		return AttrDoublyUnderlined
	default:
		return 0
	}
}

func convertColor(c parser.Color) Color {
	switch c.Kind {
	case parser.ColorNamed:
		return Named(c.Index)
	case parser.ColorPalette:
		return Palette(c.Index)
	case parser.ColorRGB:
		return RGB(c.R, c.G, c.B)
	default:
		return Default()
	}
}

func (t *Term) setModes(modes []int, set bool) {
	for _, n := range modes {
		if bit, ok := modeBit(n); ok {
			if set {
				t.mode |= bit
			} else {
				t.mode &^= bit
			}
		}
		// Unknown public modes are accepted silently (spec.md §4.2:
		// "unknown modes are logged, not fatal" — logging is the event
		// core's concern, not Term's).
	}
}

func (t *Term) setPrivateModes(modes []int, set bool) {
	for _, n := range modes {
		bit, ok := privateModeBit(n)
		if !ok {
			continue
		}
		if set {
			t.private |= bit
		} else {
			t.private &^= bit
		}
		if bit == PrivateAutoWrap {
			if set {
				t.cursor.set(CursorAutoWrap)
			} else {
				t.cursor.clear(CursorAutoWrap)
			}
		}
		if bit == PrivateAutorepeat {
			if set {
				t.cursor.set(CursorAutorepeat)
			} else {
				t.cursor.clear(CursorAutorepeat)
			}
		}
	}
}

// ShowCursor reports whether the cursor should currently be rendered
// (DECTCEM, private mode 25).
func (t *Term) ShowCursor() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.private&PrivateShowCursor != 0
}

// SendFocusEvents reports whether focus in/out reports should be emitted
// (private mode 1004).
func (t *Term) SendFocusEvents() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.private&PrivateSendFocusEvents != 0
}

// QueueFocus appends a focus in/out report if SendFocusEvents is enabled
// (spec.md §4.3 message handling, §6 reply bytes).
func (t *Term) QueueFocus(focused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.private&PrivateSendFocusEvents == 0 {
		return
	}
	if focused {
		t.queueReply([]byte("\x1b[I"))
	} else {
		t.queueReply([]byte("\x1b[O"))
	}
}

// QueueCharacter appends a user keystroke's UTF-8 encoding to the output
// buffer for the event core to flush to the PTY.
func (t *Term) QueueCharacter(r rune) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queueReply([]byte(string(r)))
}

func (t *Term) setScrollRegion(ev parser.Event) {
	top := ev.N
	if top < 0 {
		top = 0
	}
	if top >= t.grid.height {
		return
	}
	var region ScrollRegion
	if ev.HasBottom {
		bottom := ev.N2
		if bottom > t.grid.height {
			bottom = t.grid.height
		}
		region = ScrollRegion{Top: top, Bottom: intPtr(bottom)}
	} else {
		region = ScrollRegion{Top: top, Bottom: nil}
	}
	if !region.valid(t.grid.height) {
		return
	}
	t.region = region
	t.cursor.Row = 0
	t.cursor.Col = 0
	t.cursor.clear(CursorWrapNext)
}

func (t *Term) resetLocked() {
	t.grid.ClearAll()
	t.cursor = Cursor{Flags: CursorAutoWrap | CursorAutorepeat}
	t.style = DefaultStyle()
	t.mode = 0
	t.private = defaultPrivateModes()
	t.region = FullScreen()
	t.title = ""
}

// parseOSC7Path extracts a filesystem path from an OSC 7 payload, which is
// either a bare absolute path or a `file://host/path` URL (spec.md/teacher
// grounding: javanhut-RavenTerminal/parser/parser.go:parseOSC7Path).
func parseOSC7Path(value string) (string, bool) {
	const filePrefix = "file://"
	if len(value) >= len(filePrefix) && value[:len(filePrefix)] == filePrefix {
		rest := value[len(filePrefix):]
		if idx := indexByte(rest, '/'); idx >= 0 {
			return rest[idx:], true
		}
		return "", false
	}
	if len(value) > 0 && value[0] == '/' {
		return value, true
	}
	return "", false
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
