package cascade

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayerCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		diagonal float64
		want     int
	}{
		{"zero", 0, 1},
		{"negative", -3, 1},
		{"unit", 1, 1},
		{"two", 2, 2},
		{"exact power of four", 4, 2},
		{"just above four", 5, 3},
		{"sixteen", 16, 3},
		{"960x540", 1101.4535850411491, 7},
		{"1920x1080", 2202.9071700822983, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LayerCount(tt.diagonal))
		})
	}
}

func TestPlan_ReducedFullHD(t *testing.T) {
	t.Parallel()

	got := Plan(960, 540, 0.5, 2.0)
	want := []LayerInfo{
		{Resolution: [3]int{960, 540, 4}, ProbeSpacing: 2, RayOffset: 0.5, StepSize: 0.5, QuarterSampleCount: 1},
		{Resolution: [3]int{480, 270, 16}, ProbeSpacing: 4, RayOffset: 2.5, StepSize: 1, QuarterSampleCount: 2},
		{Resolution: [3]int{240, 135, 64}, ProbeSpacing: 8, RayOffset: 10.5, StepSize: 1, QuarterSampleCount: 8},
		{Resolution: [3]int{120, 68, 256}, ProbeSpacing: 16, RayOffset: 42.5, StepSize: 1, QuarterSampleCount: 32},
		{Resolution: [3]int{60, 34, 1024}, ProbeSpacing: 32, RayOffset: 170.5, StepSize: 2, QuarterSampleCount: 64},
		{Resolution: [3]int{30, 17, 4096}, ProbeSpacing: 64, RayOffset: 682.5, StepSize: 8, QuarterSampleCount: 64},
		{Resolution: [3]int{15, 9, 16384}, ProbeSpacing: 128, RayOffset: 2730.5, StepSize: 32, QuarterSampleCount: 64},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plan(960, 540) mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_EmptyTarget(t *testing.T) {
	t.Parallel()

	got := Plan(0, 0, 0.5, 2.0)
	require.Len(t, got, 1)
	assert.Equal(t, [3]int{0, 0, 4}, got[0].Resolution)
	assert.Equal(t, 2, got[0].ProbeSpacing)
	assert.Equal(t, 1, got[0].QuarterSampleCount)
}

func TestPlan_Deterministic(t *testing.T) {
	t.Parallel()

	a := Plan(1234, 567, 0.25, 3)
	b := Plan(1234, 567, 0.25, 3)
	assert.Empty(t, cmp.Diff(a, b))
}

func TestPlan_Progression(t *testing.T) {
	t.Parallel()

	targets := [][2]int{{1, 1}, {7, 3}, {64, 64}, {333, 999}, {960, 540}, {2560, 1440}, {4096, 1}}
	for _, target := range targets {
		layers := Plan(target[0], target[1], 0.5, 2.0)
		require.NotEmpty(t, layers)
		diagonal := math.Hypot(float64(target[0]), float64(target[1]))
		assert.GreaterOrEqual(t, float64(layers[len(layers)-1].Reach()), diagonal, "last layer reaches across %v", target)

		for i, l := range layers {
			assert.GreaterOrEqual(t, l.QuarterSampleCount, 1)
			assert.LessOrEqual(t, l.QuarterSampleCount, maxQuarterSampleCount)
			if i == 0 {
				continue
			}
			prev := layers[i-1]
			assert.Equal(t, prev.ProbeSpacing*2, l.ProbeSpacing, "spacing doubles at %v layer %d", target, i)
			assert.Equal(t, prev.Resolution[2]*4, l.Resolution[2], "angular x4 at %v layer %d", target, i)
			assert.Equal(t, (prev.Resolution[0]+1)/2, l.Resolution[0])
			assert.Equal(t, (prev.Resolution[1]+1)/2, l.Resolution[1])
			assert.Greater(t, l.RayOffset, prev.RayOffset)
			assert.InDelta(t, prev.Reach(), l.RayOffset, 1e-3, "layer %d starts where %d ends", i, i-1)
			assert.InDelta(t, prev.RayLength()*4, l.RayLength(), 1e-3)
		}
	}
}

func TestLayerInfo_RayLength(t *testing.T) {
	t.Parallel()

	l := LayerInfo{RayOffset: 10.5, StepSize: 1, QuarterSampleCount: 8}
	assert.InDelta(t, 32, l.RayLength(), 1e-6)
	assert.InDelta(t, 42.5, l.Reach(), 1e-6)
	assert.Contains(t, l.String(), "q=8")
}
