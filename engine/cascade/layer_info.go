package cascade

import (
	"fmt"
	"math"
)

const (
	// baseAngularResolution is the number of directions stored per probe in layer 0.
	baseAngularResolution = 4
	// baseProbeSpacing is the probe spacing of layer 0 in lit-scene texels.
	baseProbeSpacing = 2
	// maxQuarterSampleCount caps ray-march work per direction at 256 steps.
	maxQuarterSampleCount = 64
)

// LayerInfo describes the geometry of one cascade layer. Values are produced by Plan and are
// never mutated afterwards.
type LayerInfo struct {
	// Resolution is (width, height, angular-or-depth) of the layer's probe grid.
	Resolution [3]int
	// ProbeSpacing is the distance between probe centers, doubling per layer.
	ProbeSpacing int
	// RayOffset is the distance at which this layer's rays begin.
	RayOffset float32
	// StepSize is the distance covered by one ray-march step.
	StepSize float32
	// QuarterSampleCount is the number of ray-march steps divided by four.
	QuarterSampleCount int
}

// RayLength returns the distance covered by the layer's rays.
func (l LayerInfo) RayLength() float32 {
	return l.StepSize * float32(l.QuarterSampleCount*4)
}

// Reach returns the distance at which the layer's rays end.
func (l LayerInfo) Reach() float32 {
	return l.RayOffset + l.RayLength()
}

// String formats the layer the way the plan dump prints it.
func (l LayerInfo) String() string {
	return fmt.Sprintf("res=%dx%dx%d spacing=%d offset=%g step=%g q=%d",
		l.Resolution[0], l.Resolution[1], l.Resolution[2],
		l.ProbeSpacing, l.RayOffset, l.StepSize, l.QuarterSampleCount)
}

// LayerCount returns the number of layers needed to cover a render target with the given
// diagonal: ceil(log4(diagonal)) + 1, never less than one.
//
// Parameters:
//   - diagonal: the render-target diagonal in texels
//
// Returns:
//   - int: the number of cascade layers
func LayerCount(diagonal float64) int {
	if !(diagonal > 1) {
		return 1
	}
	// log4 via log2 keeps exact powers of four exact.
	n := int(math.Ceil(math.Log2(diagonal)/2)) + 1
	return max(n, 1)
}

// Plan computes the ordered, nearest-first layer geometry for a render target. It performs no
// GPU work and is deterministic for identical inputs.
//
// Parameters:
//   - targetWidth: the lit-scene width in texels
//   - targetHeight: the lit-scene height in texels
//   - baseRayOffset: the ray start distance of layer 0
//   - baseRayLength: the ray length of layer 0
//
// Returns:
//   - []LayerInfo: the planned layers, nearest first
func Plan(targetWidth, targetHeight int, baseRayOffset, baseRayLength float32) []LayerInfo {
	count := LayerCount(math.Hypot(float64(targetWidth), float64(targetHeight)))

	layers := make([]LayerInfo, 0, count)
	res := [3]int{targetWidth, targetHeight, baseAngularResolution}
	spacing := baseProbeSpacing
	offset := baseRayOffset
	length := baseRayLength

	for range count {
		q := quarterSampleCount(length)
		layers = append(layers, LayerInfo{
			Resolution:         res,
			ProbeSpacing:       spacing,
			RayOffset:          offset,
			StepSize:           length / float32(q*4),
			QuarterSampleCount: q,
		})

		res = [3]int{halveCeil(res[0]), halveCeil(res[1]), res[2] * 4}
		spacing *= 2
		offset += length
		length *= 4
	}
	return layers
}

func quarterSampleCount(rayLength float32) int {
	q := int(math.Ceil(float64(rayLength) / 4))
	return max(min(q, maxQuarterSampleCount), 1)
}

func halveCeil(v int) int {
	return (v + 1) / 2
}
