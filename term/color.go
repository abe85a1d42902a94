package term

// ColorKind identifies which representation a Color value carries.
type ColorKind uint8

const (
	// ColorDefault means "let the renderer pick" — resolved outside the core.
	ColorDefault ColorKind = iota
	// ColorNamed is one of the eight classic ANSI colors (or their bright
	// variants, encoded as Index 8..15).
	ColorNamed
	// ColorPalette is an index into the 256-color palette.
	ColorPalette
	// ColorRGB is a 24-bit true color triple.
	ColorRGB
)

// Named ANSI color indices, matching SGR 30-37/90-97 and 40-47/100-107.
const (
	Black = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
	BrightBlack
	BrightRed
	BrightGreen
	BrightYellow
	BrightBlue
	BrightMagenta
	BrightCyan
	BrightWhite
)

// Color is a tagged variant over the four color representations a cell can
// carry. The zero value is ColorDefault.
type Color struct {
	Kind    ColorKind
	Index   uint8 // ColorNamed or ColorPalette
	R, G, B uint8 // ColorRGB
}

// Default returns the "inherit the renderer's default" color.
func Default() Color { return Color{Kind: ColorDefault} }

// Named returns one of the 16 ANSI named colors (0-15).
func Named(index uint8) Color { return Color{Kind: ColorNamed, Index: index} }

// Palette returns a 256-color palette entry.
func Palette(index uint8) Color { return Color{Kind: ColorPalette, Index: index} }

// RGB returns a 24-bit true color.
func RGB(r, g, b uint8) Color { return Color{Kind: ColorRGB, R: r, G: g, B: b} }

// IsDefault reports whether c is the unresolved default color.
func (c Color) IsDefault() bool { return c.Kind == ColorDefault }
