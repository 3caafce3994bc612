package keycodec

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"exact", "alice", 5, "alice"},
		{"truncate", "alexander", 5, "alexa"},
		{"pad", "bob", 5, "bob  "},
		{"empty", "", 3, "   "},
		{"zero_width", "abc", 0, ""},
		{"multibyte_fits", "é1", 2, "é"},
		{"multibyte_cut", "aé", 2, "a "},
		{"multibyte_exact", "aéb", 3, "aé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in, tt.width))
		})
	}
}

func TestNormalize_SameAsDirectKey(t *testing.T) {
	direct := "bob  "
	assert.Equal(t, direct, Normalize("bob", 5))
	assert.Equal(t, "carol", Normalize("carolina", 5))
}

func TestNormalize_ValidUTF8(t *testing.T) {
	for width := 1; width <= 8; width++ {
		got := Normalize("añoçé€x", width)
		assert.Len(t, got, width)
		assert.True(t, utf8.ValidString(got), "width %d: %q", width, got)
	}
}

func TestCompare(t *testing.T) {
	assert.Negative(t, Compare("bo   ", "bob  "))
	assert.Positive(t, Compare("carol", "bob  "))
	assert.Zero(t, Compare("alice", "alice"))
	// space sorts before every printable character
	assert.Negative(t, Compare("ab   ", "ab0  "))
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{5, 211},
		{1, 1031},
		{10, 109},
		{999, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Capacity(tt.width), "width %d", tt.width)
	}
}

func TestValidWidth(t *testing.T) {
	assert.True(t, ValidWidth(1))
	assert.True(t, ValidWidth(999))
	assert.False(t, ValidWidth(0))
	assert.False(t, ValidWidth(1000))
}
