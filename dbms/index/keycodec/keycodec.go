// Package keycodec normalizes keys to the fixed width of an index and defines
// their order.
//
// Widths count bytes, the same unit as record offsets. A key is never cut
// inside a UTF-8 sequence; the partial rune is replaced by padding.
package keycodec

import (
	"strings"
	"unicode/utf8"
)

const (
	// BlockSize is the nominal block size the node capacity is derived from.
	BlockSize = 1024

	// MaxWidth is the widest key the three-digit header field can describe.
	MaxWidth = 999

	capacitySlack = 8
)

// Normalize truncates s to width bytes or right-pads it with spaces.
func Normalize(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(s) >= width {
		cut := width
		for cut > 0 && cut < len(s) && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Compare orders normalized keys byte-wise.
func Compare(a, b string) int {
	return strings.Compare(a, b)
}

// Capacity returns the number of keys at which a node of an index with the
// given key width must split.
func Capacity(width int) int {
	if width <= 0 {
		width = 1
	}
	return (BlockSize-width)/width + capacitySlack
}

// ValidWidth reports whether width can be stored in an index header.
func ValidWidth(width int) bool {
	return width >= 1 && width <= MaxWidth
}
