// Package parser turns a raw PTY byte stream into the typed event catalog
// documented in spec.md §4.1: C0 controls, ESC singles, charset designation,
// CSI and OSC dispatch, and UTF-8 text. It is a pure decoder — it never
// touches a grid or writes a reply; Parse is safe to call from any goroutine
// that owns its own *Parser.
package parser

// Kind tags which variant an Event carries.
type Kind int

const (
	// Text.
	KindUnicode Kind = iota

	// C0 controls.
	KindBell
	KindBackspace
	KindTab
	KindLineFeed
	KindTabVertical
	KindFormFeed
	KindCarriageReturn
	KindShiftOut
	KindShiftIn
	KindReturnTerminalStatus

	// ESC singles.
	KindIndex
	KindNextLine
	KindTabSet
	KindReverseIndex
	KindSingleShiftSelectG2
	KindSingleShiftSelectG3
	KindDeviceControlString
	KindStartOfGuardedArea
	KindEndOfGuardedArea
	KindStartOfString
	KindReturnTerminalID
	KindStringTerminator
	KindPrivacyMessage
	KindApplicationProgramCommand
	KindSetKeypadMode
	KindSaveCursor
	KindRestoreCursor
	KindFullReset

	// Charset designation (ESC ( ) * + <byte>, or that prefix + '%' <byte>).
	KindDesignateCharset

	// CSI cursor movement.
	KindCursorUp
	KindCursorDown
	KindCursorForward
	KindCursorBackward
	KindCursorNextLine
	KindCursorPrevLine
	KindCursorHorizontalAbsolute
	KindCursorPosition
	KindCursorForwardTab
	KindCursorBackwardTab
	KindLinePositionAbsolute
	KindLinePositionRelative

	// CSI editing.
	KindEraseInDisplay
	KindEraseInLine
	KindInsertLines
	KindDeleteLines
	KindDeleteChars
	KindInsertChars
	KindEraseChars
	KindRepeatPrecedingChar

	// CSI reports / queries.
	KindPrimaryDeviceAttributes
	KindSecondaryDeviceAttributes
	KindCursorPositionReport
	KindCursorPositionReportQuery

	// CSI mode toggling.
	KindModeSet
	KindModeReset
	KindPrivateModeSet
	KindPrivateModeReset

	// CSI style + region.
	KindCharAttrs
	KindScrollRegion

	// OSC.
	KindSetWindowTitle
	KindSetIconName
	KindOSCOther

	// Failure.
	KindParseError
)

// EraseMode selects the range for EraseInDisplay/EraseInLine.
type EraseMode int

const (
	EraseBelow EraseMode = iota // or EraseRight for EraseInLine
	EraseAbove                  // or EraseLeft for EraseInLine
	EraseAll
)

// KeypadMode selects numeric vs. application keypad (ESC = / ESC >).
type KeypadMode int

const (
	KeypadNumeric KeypadMode = iota
	KeypadApplication
)

// SGRAttr is one fold-left operation produced by parsing a CSI `m` parameter
// list (spec.md §4.1 "Character attributes"). Term applies these in order
// onto its current style.
type SGRAttr struct {
	Op  SGROp
	Set bool  // for SGROpAttr: set vs. unset
	Bit byte  // for SGROpAttr: which attribute bit-name below
	Col Color // for SGROpForeground/SGROpBackground
}

// SGROp identifies what an SGRAttr does.
type SGROp int

const (
	SGROpReset SGROp = iota
	SGROpAttr         // toggle one of the named attribute bits (see Bit consts)
	SGROpForeground
	SGROpBackground
)

// Attribute-bit names carried in SGRAttr.Bit, matching spec.md's enumerated
// SGR parameters 1..9/21..29 one-for-one.
const (
	AttrBitBold byte = iota
	AttrBitFaint
	AttrBitItalic
	AttrBitUnderlined
	AttrBitBlink
	AttrBitInverse
	AttrBitHidden
	AttrBitCrossedOut
	AttrBitDoublyUnderlined
)

// Color mirrors term.Color's shape without importing the term package, so
// parser stays a leaf with no dependency on the state machine it feeds.
type ColorKind int

const (
	ColorDefault ColorKind = iota
	ColorNamed
	ColorPalette
	ColorRGB
)

type Color struct {
	Kind    ColorKind
	Index   uint8
	R, G, B uint8
}

// Event is the single type every decoded unit of input is returned as. Only
// the fields relevant to Kind are populated; the rest are zero.
type Event struct {
	Kind Kind

	Rune rune // KindUnicode

	N     int  // generic first numeric parameter (count, mode number, ...)
	N2    int  // generic second numeric parameter (CursorPosition column, ...)
	HasN2 bool

	Modes []int // KindModeSet/Reset, KindPrivateModeSet/Reset

	Attrs []SGRAttr // KindCharAttrs

	Erase EraseMode // KindEraseInDisplay/KindEraseInLine

	Slot    int     // KindDesignateCharset: G0..G3 as 0..3
	Charset Charset // KindDesignateCharset

	Keypad KeypadMode // KindSetKeypadMode

	Text string // KindSetWindowTitle/KindSetIconName/KindOSCOther payload

	OSCTag int // KindOSCOther: the OSC numeric tag (3, 4, ...)

	ScrollTop    int  // KindScrollRegion
	ScrollBottom int  // KindScrollRegion
	HasBottom    bool // KindScrollRegion: false means "to last row"

	Err   string // KindParseError
	Bytes []byte // KindParseError: offending bytes
}
