package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNashvilleNumber(t *testing.T) {
	_, err := NewNashvilleNumber(0)
	assert.ErrorIs(t, err, ErrInvalidDegree)
	_, err = NewNashvilleNumber(8)
	assert.ErrorIs(t, err, ErrInvalidDegree)

	five, err := NewNashvilleNumber(5)
	require.NoError(t, err)
	assert.Equal(t, "V", five.Roman())
	assert.Equal(t, "Dominant", five.DegreeName())
	assert.Equal(t, FunctionDominant, five.Function())

	four := NashvilleNumber(4)
	assert.Equal(t, "Subdominant", four.DegreeName())
	assert.Equal(t, FunctionSubdominant, four.Function())
	assert.Equal(t, FunctionTonic, NashvilleNumber(6).Function())
}

func TestNashvilleNumber_Transpose(t *testing.T) {
	assert.Equal(t, NashvilleNumber(1), NashvilleNumber(7).Transpose(1))
	assert.Equal(t, NashvilleNumber(7), NashvilleNumber(1).Transpose(-1))
	assert.Equal(t, NashvilleNumber(3), NashvilleNumber(5).Transpose(12))

	for n := 1; n <= 7; n++ {
		for steps := -10; steps <= 10; steps++ {
			got := NashvilleNumber(n).Transpose(steps).Transpose(-steps)
			assert.Equal(t, NashvilleNumber(n), got)
		}
	}
}
