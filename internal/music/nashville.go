package music

import (
	"errors"
	"fmt"
)

// ErrInvalidDegree is returned for scale degrees outside 1-7.
var ErrInvalidDegree = errors.New("nashville number must be between 1 and 7")

const degreesPerScale = 7

// NashvilleNumber is a scale degree 1-7.
type NashvilleNumber int

var (
	romanNumerals = [degreesPerScale]string{"I", "II", "III", "IV", "V", "VI", "VII"}
	degreeNames   = [degreesPerScale]string{
		"Tonic", "Supertonic", "Mediant", "Subdominant", "Dominant", "Submediant", "Leading Tone",
	}
)

// HarmonicFunction groups scale degrees by their role in a progression.
type HarmonicFunction string

const (
	FunctionTonic       HarmonicFunction = "tonic"
	FunctionSubdominant HarmonicFunction = "subdominant"
	FunctionDominant    HarmonicFunction = "dominant"
)

// NewNashvilleNumber validates n.
func NewNashvilleNumber(n int) (NashvilleNumber, error) {
	if n < 1 || n > degreesPerScale {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDegree, n)
	}
	return NashvilleNumber(n), nil
}

func (n NashvilleNumber) Int() int { return int(n) }

func (n NashvilleNumber) String() string { return fmt.Sprintf("%d", int(n)) }

// Roman returns the upper-case roman numeral.
func (n NashvilleNumber) Roman() string { return romanNumerals[n-1] }

// DegreeName returns the traditional scale-degree name.
func (n NashvilleNumber) DegreeName() string { return degreeNames[n-1] }

func (n NashvilleNumber) Function() HarmonicFunction {
	switch n {
	case 1, 3, 6:
		return FunctionTonic
	case 2, 4:
		return FunctionSubdominant
	default:
		return FunctionDominant
	}
}

// Transpose moves the degree by steps within the 7-cycle.
func (n NashvilleNumber) Transpose(steps int) NashvilleNumber {
	idx := ((int(n)-1+steps)%degreesPerScale + degreesPerScale) % degreesPerScale
	return NashvilleNumber(idx + 1)
}
