package main

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/stretchr/testify/assert"
)

func TestNextVariant(t *testing.T) {
	t.Parallel()

	assert.Equal(t, cascade.VariantVolumetric, nextVariant(cascade.VariantPacked))
	assert.Equal(t, cascade.VariantPacked, nextVariant(cascade.VariantVolumetric))
}

func TestNextReduction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want int
	}{
		{1, 2},
		{2, 4},
		{4, 1},
		{3, 1},
		{0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextReduction(tt.in), "after %d", tt.in)
	}
}
