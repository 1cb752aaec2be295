package chord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validate(t *testing.T, input string) ValidationResult {
	t.Helper()
	c, err := Parse(input)
	require.NoError(t, err)
	return Validate(c)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"Csus2sus4", "sus2 and sus4"},
		{"C7#5b5", "#5 and b5"},
		{"Am(no3)", "no3 conflicts"},
		{"E#", "invalid root"},
		{"Cbm", "invalid root"},
		{"C/E#", "invalid bass"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r := validate(t, tt.input)
			assert.False(t, r.IsValid)
			require.NotEmpty(t, r.Errors)
			assert.Contains(t, r.Errors[0], tt.message)
		})
	}
}

func TestValidate_Warnings(t *testing.T) {
	r := validate(t, "C/C")
	assert.True(t, r.IsValid)
	assert.Contains(t, r.Warnings[0], "equals root")

	r = validate(t, "Cxyz")
	assert.True(t, r.IsValid)
	assert.Contains(t, r.Warnings[0], "unknown extension")

	r = validate(t, "Caug#5")
	assert.True(t, r.IsValid)
	assert.Contains(t, r.Warnings[0], "redundant")
}

func TestValidate_InvalidQuality(t *testing.T) {
	r := Validate(Components{Root: "C", Quality: "LYDIAN"})
	assert.False(t, r.IsValid)
	assert.Contains(t, r.Errors[0], "invalid quality")

	r = Validate(Components{Quality: Major})
	assert.False(t, r.IsValid)
	assert.Contains(t, r.Errors[0], "root is required")
}

func TestValidate_Clean(t *testing.T) {
	for _, input := range []string{"C", "Am7", "G/B", "F#m7b5", "D7sus4", "C(no3)"} {
		r := validate(t, input)
		assert.True(t, r.IsValid, input)
		assert.Empty(t, r.Errors, input)
		assert.Empty(t, r.Warnings, input)
	}
}
