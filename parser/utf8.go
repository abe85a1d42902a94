package parser

import "unicode/utf8"

// decodeUTF8Lossy decodes an OSC payload as UTF-8, substituting the
// replacement character for any invalid byte (spec.md §4.1: OSC payload "is
// decoded as UTF-8 with replacement").
func decodeUTF8Lossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	runes := make([]rune, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		runes = append(runes, r)
		b = b[size:]
	}
	return string(runes)
}
