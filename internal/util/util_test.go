package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimQuotes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no quotes", "hello", "hello"},
		{"double quoted", `"hello"`, "hello"},
		{"single quotes only", "'hello'", "'hello'"},
		{"quotes in middle", `he"llo`, `he"llo`},
		{"only quotes", `""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrimQuotes(tt.input))
		})
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, `say "hi"`, Clean(`"say ""hi"""`))
	assert.Equal(t, "plain", Clean("plain"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList("a, b,,"))
	assert.Equal(t, []string{}, SplitList(""))
}

func TestParseTriple(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    [3]float64
		wantErr bool
	}{
		{"integers", "1,2,3", [3]float64{1, 2, 3}, false},
		{"floats with spaces", "1.5, -2.25, 64", [3]float64{1.5, -2.25, 64}, false},
		{"two values", "1,2", [3]float64{}, true},
		{"four values", "1,2,3,4", [3]float64{}, true},
		{"not a number", "a,2,3", [3]float64{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z, err := ParseTriple(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, [3]float64{x, y, z})
		})
	}
}
