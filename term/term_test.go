package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanhut/ravencore/parser"
)

func feed(t *Term, p *parser.Parser, data string) {
	for _, ev := range p.Parse([]byte(data)) {
		t.Handle(ev)
	}
}

// S1 Hello: NewLine mode off, LF moves down only.
func TestHelloNewLineModeOff(t *testing.T) {
	tm := New(80, 24)
	p := parser.New()
	feed(tm, p, "Hello\n")

	row := tm.grid.row(0)
	assert.Equal(t, "Hello", cellsToString(row[:5]))
	assert.Equal(t, 1, tm.cursor.Row)
	assert.Equal(t, 5, tm.cursor.Col)
}

// S1 variant: NewLine mode (LNM, public mode 20) on implies LF does CR too.
func TestHelloNewLineModeOn(t *testing.T) {
	tm := New(80, 24)
	p := parser.New()
	feed(tm, p, "\x1b[20h")
	feed(tm, p, "Hello\n")

	assert.Equal(t, 1, tm.cursor.Row)
	assert.Equal(t, 0, tm.cursor.Col)
}

// S2 CSI H: 1-indexed row/col, WrapNext cleared.
func TestCursorPosition(t *testing.T) {
	tm := New(80, 24)
	p := parser.New()
	feed(tm, p, "\x1b[5;10HX")

	require.Equal(t, 'X', rune(tm.grid.At(4, 9).Glyph))
	assert.Equal(t, 4, tm.cursor.Row)
	assert.Equal(t, 10, tm.cursor.Col)
	assert.False(t, tm.cursor.has(CursorWrapNext))
}

// S3 Erase: CSI 2K clears the whole line without moving the cursor.
func TestEraseInLineAll(t *testing.T) {
	tm := New(80, 24)
	p := parser.New()
	feed(tm, p, "AAAA\x1b[2KBBB")

	assert.Equal(t, byte(0), byte(tm.grid.At(0, 0).Glyph))
	assert.Equal(t, 'B', rune(tm.grid.At(0, 4).Glyph))
	assert.Equal(t, 'B', rune(tm.grid.At(0, 5).Glyph))
	assert.Equal(t, 'B', rune(tm.grid.At(0, 6).Glyph))
	assert.Equal(t, 0, tm.cursor.Row)
	assert.Equal(t, 7, tm.cursor.Col)
}

// S4 SGR: bold red foreground applies to one cell, resets before the next.
func TestSGRAppliesAndResets(t *testing.T) {
	tm := New(80, 24)
	p := parser.New()
	feed(tm, p, "\x1b[31;1mA\x1b[0mB")

	a := tm.grid.At(0, 0)
	assert.Equal(t, Named(Red), a.Style.Fg)
	assert.True(t, a.Style.Has(AttrBold))

	b := tm.grid.At(0, 1)
	assert.Equal(t, DefaultStyle(), b.Style)
}

// S5 DA query: reply bytes are the exact xterm-compatible primary DA string.
func TestPrimaryDeviceAttributesReply(t *testing.T) {
	tm := New(80, 24)
	p := parser.New()
	feed(tm, p, "\x1b[c")

	out := tm.TakeOutput()
	assert.Equal(t, "\x1b[?64;1;2;6;7;8;9;12;15;18;21;23;24;42;44;45;46c", string(out))
	for i := range tm.grid.cells {
		assert.Equal(t, emptyCell, tm.grid.cells[i])
	}
}

// S6 UTF-8: a two-byte encoding decodes to one Unicode event / one cell.
func TestUTF8Decoding(t *testing.T) {
	tm := New(80, 24)
	p := parser.New()
	events := p.Parse([]byte{0xC3, 0xA9})
	require.Len(t, events, 1)
	assert.Equal(t, parser.KindUnicode, events[0].Kind)
	assert.Equal(t, rune(0x00E9), events[0].Rune)

	tm.Handle(events[0])
	assert.Equal(t, rune(0x00E9), rune(tm.grid.At(0, 0).Glyph))
}

// Property 5: AutoWrap semantics at the right edge.
func TestAutoWrapAtRightEdge(t *testing.T) {
	tm := New(10, 5)
	p := parser.New()
	feed(tm, p, "0123456789") // exactly width chars

	assert.Equal(t, 0, tm.cursor.Row)
	assert.Equal(t, 9, tm.cursor.Col)
	assert.True(t, tm.cursor.has(CursorWrapNext))

	feed(tm, p, "A") // (w+1)th char wraps to next row
	assert.Equal(t, 1, tm.cursor.Row)
	assert.Equal(t, 1, tm.cursor.Col)
	assert.Equal(t, 'A', rune(tm.grid.At(1, 0).Glyph))
}

// Property 5, AutoWrap disabled: the (w+1)th char overwrites the last column.
func TestAutoWrapDisabledOverwrites(t *testing.T) {
	tm := New(10, 5)
	p := parser.New()
	feed(tm, p, "\x1b[?7l")
	feed(tm, p, "0123456789A")

	assert.Equal(t, 0, tm.cursor.Row)
	assert.Equal(t, 'A', rune(tm.grid.At(0, 9).Glyph))
}

// Property 3: resize then resize back preserves the overlapping region.
func TestResizeRoundTripPreservesOverlap(t *testing.T) {
	tm := New(20, 10)
	p := parser.New()
	feed(tm, p, "Hello")

	tm.Resize(5, 3)
	tm.Resize(20, 10)

	row := tm.grid.row(0)
	assert.Equal(t, "Hel", cellsToString(row[:3]))
}

// Property 2 (spot check): erase/insert/delete never panics and leaves the
// grid at its declared size.
func TestInvariantsHoldAfterEditingOps(t *testing.T) {
	tm := New(10, 5)
	p := parser.New()
	feed(tm, p, "\x1b[2;2H\x1b[3@abc\x1b[2P\x1b[1L\x1b[1M\x1b[1X")

	assert.Equal(t, 10, tm.grid.Width())
	assert.Equal(t, 5, tm.grid.Height())
}

func cellsToString(cells []Cell) string {
	out := make([]byte, len(cells))
	for i, c := range cells {
		out[i] = byte(c.Glyph)
	}
	return string(out)
}
