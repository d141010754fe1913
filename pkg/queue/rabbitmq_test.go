package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPriority(t *testing.T) {
	assert.Equal(t, uint8(0), ClampPriority(-3))
	assert.Equal(t, uint8(0), ClampPriority(0))
	assert.Equal(t, uint8(5), ClampPriority(5))
	assert.Equal(t, uint8(10), ClampPriority(10))
	assert.Equal(t, uint8(10), ClampPriority(42))
}
