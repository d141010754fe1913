package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator(t *testing.T) {
	g, err := New(1)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		r := g.Receipt()
		assert.True(t, strings.HasPrefix(r, "RCP-"))
		assert.False(t, seen[r], "duplicate receipt %s", r)
		seen[r] = true
	}
	assert.True(t, strings.HasPrefix(g.Invoice(), "INV-"))
}

func TestNew_InvalidNode(t *testing.T) {
	_, err := New(5000)
	assert.Error(t, err)
}
