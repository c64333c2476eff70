package exchanges

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQuantityOptions_Defaults(t *testing.T) {
	opts := NewQuantityOptions()

	assert.False(t, opts.SkipMinNotionalAdjust)
	assert.Equal(t, 1, opts.TakeProfitSplit)
}

func TestWithoutMinNotionalAdjust(t *testing.T) {
	opts := NewQuantityOptions(WithoutMinNotionalAdjust())

	assert.True(t, opts.SkipMinNotionalAdjust)
}

func TestWithTakeProfitSplit(t *testing.T) {
	assert.Equal(t, 4, NewQuantityOptions(WithTakeProfitSplit(4)).TakeProfitSplit)

	// Non-positive splits keep the default.
	assert.Equal(t, 1, NewQuantityOptions(WithTakeProfitSplit(0)).TakeProfitSplit)
	assert.Equal(t, 1, NewQuantityOptions(WithTakeProfitSplit(-2)).TakeProfitSplit)
}
