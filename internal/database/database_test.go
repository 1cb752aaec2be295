package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_RequiresURL(t *testing.T) {
	db, err := Connect("")
	require.ErrorIs(t, err, ErrNoDatabaseURL)
	assert.Nil(t, db)
}

func TestModels(t *testing.T) {
	assert.Len(t, Models(), 4)
}
