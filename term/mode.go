package term

// ModeFlags are the public ANSI modes set/reset by CSI `h`/`l` (no `?` prefix).
type ModeFlags uint16

const (
	// ModeKeyboardAction is mode 2. Parsed and stored; no behavior in this core.
	ModeKeyboardAction ModeFlags = 1 << iota
	// ModeInsert is mode 4 (IRM). Parsed and stored; need not alter rendering.
	ModeInsert
	// ModeSendReceive is mode 12. Parsed and stored.
	ModeSendReceive
	// ModeNewLine is mode 20 (LNM). When set, LF implies CR.
	ModeNewLine
)

// PrivateModeFlags are the DEC private modes set/reset by CSI `?...h`/`?...l`.
type PrivateModeFlags uint32

const (
	// PrivateAppCursorKeys is DECCKM (1).
	PrivateAppCursorKeys PrivateModeFlags = 1 << iota
	// PrivateLightScreen is DECSCNM (5).
	PrivateLightScreen
	// PrivateAutoWrap is DECAWM (7); default on, mirrored onto the cursor.
	PrivateAutoWrap
	// PrivateAutorepeat is DECARM (8); default on.
	PrivateAutorepeat
	// PrivateCursorBlink is mode 12.
	PrivateCursorBlink
	// PrivateShowCursor is DECTCEM (25); default on. Drives cursor visibility.
	PrivateShowCursor
	// PrivateAlternateScreenBuffer is 47/1047.
	PrivateAlternateScreenBuffer
	// PrivateSaveCursor is 1048.
	PrivateSaveCursor
	// PrivateSaveCursorAlternateBufferClear is 1049.
	PrivateSaveCursorAlternateBufferClear
	// PrivateSendFocusEvents is mode 1004. Drives ESC[I/ESC[O emission.
	PrivateSendFocusEvents
	// PrivateMouseTrackingX11 is mode 1000.
	PrivateMouseTrackingX11
	// PrivateMouseTrackingCell is mode 1002.
	PrivateMouseTrackingCell
	// PrivateMouseModeUTF8 is mode 1005.
	PrivateMouseModeUTF8
	// PrivateMouseModeSGR is mode 1006.
	PrivateMouseModeSGR
)

// defaultPrivateModes returns the modes that are on by default: AutoWrap,
// Autorepeat, ShowCursor.
func defaultPrivateModes() PrivateModeFlags {
	return PrivateAutoWrap | PrivateAutorepeat | PrivateShowCursor
}

// privateModeBit maps a DEC private mode number to its flag bit, per the
// table in spec.md §4.1. The bool reports whether the number is recognized.
func privateModeBit(n int) (PrivateModeFlags, bool) {
	switch n {
	case 1:
		return PrivateAppCursorKeys, true
	case 5:
		return PrivateLightScreen, true
	case 7:
		return PrivateAutoWrap, true
	case 8:
		return PrivateAutorepeat, true
	case 12:
		return PrivateCursorBlink, true
	case 25:
		return PrivateShowCursor, true
	case 47, 1047:
		return PrivateAlternateScreenBuffer, true
	case 1000:
		return PrivateMouseTrackingX11, true
	case 1002:
		return PrivateMouseTrackingCell, true
	case 1004:
		return PrivateSendFocusEvents, true
	case 1005:
		return PrivateMouseModeUTF8, true
	case 1006:
		return PrivateMouseModeSGR, true
	case 1048:
		return PrivateSaveCursor, true
	case 1049:
		return PrivateSaveCursorAlternateBufferClear, true
	default:
		return 0, false
	}
}

// modeBit maps a public mode number to its flag bit, per spec.md §4.1.
func modeBit(n int) (ModeFlags, bool) {
	switch n {
	case 2:
		return ModeKeyboardAction, true
	case 4:
		return ModeInsert, true
	case 12:
		return ModeSendReceive, true
	case 20:
		return ModeNewLine, true
	default:
		return 0, false
	}
}
