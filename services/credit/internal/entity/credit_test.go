package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBalanceWithLevel(t *testing.T) {
	tests := []struct {
		balance, threshold int64
		want               string
	}{
		{0, 100, LevelEmpty},
		{-5, 100, LevelEmpty},
		{1, 100, LevelLow},
		{100, 100, LevelLow},
		{101, 100, LevelNormal},
		{5, 0, LevelNormal},
	}
	for _, tt := range tests {
		got := Balance{Balance: tt.balance, LowBalanceThreshold: tt.threshold}.WithLevel()
		assert.Equal(t, tt.want, got.Level, "balance %d threshold %d", tt.balance, tt.threshold)
	}
}

func TestCrossedThreshold(t *testing.T) {
	assert.True(t, CrossedThreshold(101, 100, 100))
	assert.True(t, CrossedThreshold(150, 20, 100))
	assert.False(t, CrossedThreshold(100, 90, 100))
	assert.False(t, CrossedThreshold(300, 200, 100))
}
