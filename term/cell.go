package term

// Cell is a single grid position: a decoded Unicode scalar value plus the
// style it was written with. Glyph == 0 denotes an empty cell, which the
// renderer skips.
type Cell struct {
	Glyph uint32
	Style Style
	// Width is the display width of Glyph in terminal columns: 1 for
	// ordinary glyphs (zero-width runes such as combining marks are also
	// stored with width 1, since each one occupies a cell), 2 for wide glyphs
	// (CJK, many emoji), and 0 only in empty cells. A width-2 glyph occupies
	// its own cell plus an empty (Glyph == 0) spacer cell to its right.
	Width uint8
}

// emptyCell is the zero value, reused to avoid repeated struct literals on
// the hot erase/scroll paths.
var emptyCell = Cell{}
