package converr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultRecoverable(t *testing.T) {
	assert.True(t, New(KindParse, "x").Recoverable)
	assert.True(t, New(KindValidation, "x").Recoverable)
	assert.True(t, New(KindFormat, "x").Recoverable)
	assert.False(t, New(KindConversion, "x").Recoverable)
	assert.False(t, New(KindUnknown, "x").Recoverable)
}

func TestConversionError_Error(t *testing.T) {
	e := New(KindParse, "unbalanced %s", "bracket")
	assert.Equal(t, "parse error: unbalanced bracket", e.Error())

	positioned := e.AtLine(3).AtColumn(7)
	assert.Equal(t, "parse error at line 3, column 7: unbalanced bracket", positioned.Error())
	assert.Nil(t, e.Line, "AtLine must not mutate the receiver")
	assert.Equal(t, 3, positioned.LineNumber())
}

func TestWrap(t *testing.T) {
	base := errors.New("disk full")
	wrapped := Wrap(KindFile, base)
	require.NotNil(t, wrapped)
	assert.Equal(t, KindFile, wrapped.Kind)
	assert.ErrorIs(t, wrapped, base)

	original := New(KindKey, "bad key")
	again := Wrap(KindUnknown, fmt.Errorf("context: %w", original))
	assert.Same(t, original, again)
	assert.True(t, IsKind(fmt.Errorf("x: %w", original), KindKey))

	assert.Nil(t, Wrap(KindFile, nil))
}
