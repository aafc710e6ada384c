package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.Len(t, a, 2*rawLen)
	assert.NotEqual(t, a, b)
}

func TestMatch(t *testing.T) {
	tok, err := Generate()
	require.NoError(t, err)

	assert.True(t, Match(tok, tok))
	assert.False(t, Match(tok, tok[:len(tok)-1]))
	assert.False(t, Match(tok, ""))

	other, err := Generate()
	require.NoError(t, err)
	assert.False(t, Match(tok, other))
}
