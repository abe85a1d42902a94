package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property 1: feeding a sequence whole or split byte-by-byte across many
// Parse calls yields the identical event sequence.
func TestIncrementality(t *testing.T) {
	input := []byte("Hello\x1b[31;1mA\x1b[0mB\x1b[5;10H\xc3\xa9")

	whole := New().Parse(input)

	p := New()
	var chunked []Event
	for _, b := range input {
		chunked = append(chunked, p.Parse([]byte{b})...)
	}

	require.Equal(t, len(whole), len(chunked))
	for i := range whole {
		assert.Equal(t, whole[i], chunked[i])
	}
}

func TestUnicodeASCII(t *testing.T) {
	events := New().Parse([]byte("Hi"))
	require.Len(t, events, 2)
	assert.Equal(t, KindUnicode, events[0].Kind)
	assert.Equal(t, 'H', events[0].Rune)
	assert.Equal(t, 'i', events[1].Rune)
}

func TestUTF8TwoByte(t *testing.T) {
	events := New().Parse([]byte{0xC3, 0xA9}) // é
	require.Len(t, events, 1)
	assert.Equal(t, KindUnicode, events[0].Kind)
	assert.Equal(t, rune(0x00E9), events[0].Rune)
}

func TestUTF8InvalidContinuationResyncs(t *testing.T) {
	// A two-byte lead (0xC3) followed by an ASCII byte instead of a
	// continuation byte: parser must emit a parse error then resync by
	// reprocessing the offending byte as fresh input.
	events := New().Parse([]byte{0xC3, 'x'})
	require.Len(t, events, 2)
	assert.Equal(t, KindParseError, events[0].Kind)
	assert.Equal(t, KindUnicode, events[1].Kind)
	assert.Equal(t, 'x', events[1].Rune)
}

func TestCursorPositionEvent(t *testing.T) {
	events := New().Parse([]byte("\x1b[5;10H"))
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, KindCursorPosition, ev.Kind)
	assert.Equal(t, 4, ev.N)
	assert.Equal(t, 9, ev.N2)
	assert.True(t, ev.HasN2)
}

func TestSGRBoldRed(t *testing.T) {
	events := New().Parse([]byte("\x1b[31;1m"))
	require.Len(t, events, 1)
	require.Equal(t, KindCharAttrs, events[0].Kind)
	require.Len(t, events[0].Attrs, 2)
	assert.Equal(t, SGROpForeground, events[0].Attrs[0].Op)
	assert.Equal(t, uint8(1), events[0].Attrs[0].Col.Index) // 31 - 30: red
	assert.Equal(t, SGROpAttr, events[0].Attrs[1].Op)
	assert.Equal(t, AttrBitBold, events[0].Attrs[1].Bit)
}

func TestSGRExtendedRGB(t *testing.T) {
	events := New().Parse([]byte("\x1b[38;2;10;20;30m"))
	require.Len(t, events, 1)
	require.Len(t, events[0].Attrs, 1)
	col := events[0].Attrs[0].Col
	assert.Equal(t, ColorRGB, col.Kind)
	assert.Equal(t, uint8(10), col.R)
	assert.Equal(t, uint8(20), col.G)
	assert.Equal(t, uint8(30), col.B)
}

// S5: the primary DA query dispatches cleanly; Term owns producing the
// actual reply bytes, so the parser side only needs the right event shape.
func TestPrimaryDeviceAttributesEvent(t *testing.T) {
	events := New().Parse([]byte("\x1b[c"))
	require.Len(t, events, 1)
	assert.Equal(t, KindPrimaryDeviceAttributes, events[0].Kind)
}

func TestSecondaryDeviceAttributesEvent(t *testing.T) {
	events := New().Parse([]byte("\x1b[>c"))
	require.Len(t, events, 1)
	assert.Equal(t, KindSecondaryDeviceAttributes, events[0].Kind)
}

// Property 4: re-parsing the literal bytes of a CPR reply yields the
// cursor-position-report event the reply describes, not an error.
func TestCursorPositionReportRoundTrip(t *testing.T) {
	events := New().Parse([]byte("\x1b[24;80R"))
	require.Len(t, events, 1)
	assert.Equal(t, KindCursorPositionReport, events[0].Kind)
}

func TestScrollRegionWithBottom(t *testing.T) {
	events := New().Parse([]byte("\x1b[5;20r"))
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, KindScrollRegion, ev.Kind)
	assert.Equal(t, 4, ev.N)
	assert.Equal(t, 20, ev.N2)
	assert.True(t, ev.HasBottom)
}

func TestOSCWindowTitle(t *testing.T) {
	events := New().Parse([]byte("\x1b]2;my title\x07"))
	require.Len(t, events, 1)
	assert.Equal(t, KindSetWindowTitle, events[0].Kind)
	assert.Equal(t, "my title", events[0].Text)
}

func TestOSCZeroSetsTitleAndIcon(t *testing.T) {
	events := New().Parse([]byte("\x1b]0;both\x07"))
	require.Len(t, events, 2)
	assert.Equal(t, KindSetWindowTitle, events[0].Kind)
	assert.Equal(t, KindSetIconName, events[1].Kind)
}

func TestOSC7WorkingDirectory(t *testing.T) {
	events := New().Parse([]byte("\x1b]7;file://host/home/me\x07"))
	require.Len(t, events, 1)
	assert.Equal(t, KindOSCOther, events[0].Kind)
	assert.Equal(t, 7, events[0].OSCTag)
	assert.Equal(t, "file://host/home/me", events[0].Text)
}

func TestCharsetDesignation(t *testing.T) {
	events := New().Parse([]byte("\x1b(B"))
	require.Len(t, events, 1)
	assert.Equal(t, KindDesignateCharset, events[0].Kind)
	assert.Equal(t, 0, events[0].Slot)
	assert.Equal(t, CharsetUnitedStates, events[0].Charset)
}

func TestDECLineDrawingCharset(t *testing.T) {
	events := New().Parse([]byte("\x1b(0"))
	require.Len(t, events, 1)
	assert.Equal(t, CharsetDECSpecialAndLineDrawing, events[0].Charset)
}

func TestREPAndECHAndICH(t *testing.T) {
	events := New().Parse([]byte("\x1b[3b\x1b[2X\x1b[4@"))
	require.Len(t, events, 3)
	assert.Equal(t, KindRepeatPrecedingChar, events[0].Kind)
	assert.Equal(t, 3, events[0].N)
	assert.Equal(t, KindEraseChars, events[1].Kind)
	assert.Equal(t, 2, events[1].N)
	assert.Equal(t, KindInsertChars, events[2].Kind)
	assert.Equal(t, 4, events[2].N)
}

func TestSaveRestoreCursorBothForms(t *testing.T) {
	events := New().Parse([]byte("\x1b7\x1b8\x1b[s\x1b[u"))
	require.Len(t, events, 4)
	assert.Equal(t, KindSaveCursor, events[0].Kind)
	assert.Equal(t, KindRestoreCursor, events[1].Kind)
	assert.Equal(t, KindSaveCursor, events[2].Kind)
	assert.Equal(t, KindRestoreCursor, events[3].Kind)
}
