package cascade

import (
	"fmt"
	"strings"
)

// Variant selects how radiance layers are stored on the GPU.
type Variant int

const (
	// VariantPacked stores each layer as a 2D footprint where every probe owns a block of
	// direction texels. All layers share the same padded footprint.
	VariantPacked Variant = iota

	// VariantVolumetric stores each layer as a 3D grid of (width, height, depth) cells where
	// depth indexes directions. Layers exceeding the device's 3D extent are dropped.
	VariantVolumetric
)

// String returns the CLI name of the variant.
func (v Variant) String() string {
	switch v {
	case VariantPacked:
		return "packed"
	case VariantVolumetric:
		return "volumetric"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant resolves a variant from its CLI name.
//
// Parameters:
//   - s: the variant name, case-insensitive ("packed" or "volumetric")
//
// Returns:
//   - Variant: the parsed variant
//   - error: an error if the name is unknown
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "packed", "2d":
		return VariantPacked, nil
	case "volumetric", "3d":
		return VariantVolumetric, nil
	default:
		return 0, fmt.Errorf("unknown cascade variant %q", s)
	}
}

// Diagnostic records a layer the store decided not to allocate.
type Diagnostic struct {
	// Layer is the index of the first dropped layer.
	Layer int
	// Resolution is the dropped layer's planned resolution.
	Resolution [3]int
	// Limit is the extent the resolution exceeded.
	Limit uint32
	// Dropped is the number of layers removed, including Layer.
	Dropped int
}

// String formats the diagnostic for logs and the plan dump.
func (d Diagnostic) String() string {
	return fmt.Sprintf("layer %d (%dx%dx%d) exceeds max volume extent %d; %d layer(s) dropped",
		d.Layer, d.Resolution[0], d.Resolution[1], d.Resolution[2], d.Limit, d.Dropped)
}

// Layout is the storage strategy for radiance layers. Each variant decides which planned
// layers survive the device limits, how large each layer's buffer is, the scale uniform it
// reads, and how many thread groups a layer-sized dispatch needs.
type Layout interface {
	// Variant returns the storage variant this layout implements.
	//
	// Returns:
	//   - Variant: the layout variant
	Variant() Variant

	// Select returns the prefix of infos that can be allocated under limits, plus a diagnostic
	// for any layers dropped.
	//
	// Parameters:
	//   - infos: the planned layers, nearest first
	//   - limits: the device limits to check against
	//
	// Returns:
	//   - []LayerInfo: the kept layers
	//   - []Diagnostic: a record of dropped layers, empty if none
	Select(infos []LayerInfo, limits Limits) ([]LayerInfo, []Diagnostic)

	// Extent returns the buffer extent of the layer at index.
	//
	// Parameters:
	//   - info: the layer geometry
	//   - index: the layer index
	//   - infos: every kept layer, used by layouts whose footprint depends on the whole set
	//
	// Returns:
	//   - [3]uint32: the buffer extent along x, y and z
	Extent(info LayerInfo, index int, infos []LayerInfo) [3]uint32

	// Scale returns the source-texels-per-cell scale uniform of the layer at index.
	//
	// Parameters:
	//   - index: the layer index
	//   - reduction: the render-target reduction factor
	//
	// Returns:
	//   - float32: the scale value
	Scale(index int, reduction int) float32

	// DispatchGroupsFor returns the thread-group count for a dispatch sized to layer.
	//
	// Parameters:
	//   - layer: the allocated layer
	//
	// Returns:
	//   - [3]uint32: the number of thread groups along x, y and z
	DispatchGroupsFor(layer *RadianceLayer) [3]uint32
}

// NewLayout returns the layout for variant. groupSize is the Creation kernel's thread-group
// size, which layer-sized dispatches are computed against.
//
// Parameters:
//   - variant: the storage variant
//   - groupSize: the Creation kernel's workgroup size
//
// Returns:
//   - Layout: the layout implementation
//   - error: an error if the variant is unknown
func NewLayout(variant Variant, groupSize [3]uint32) (Layout, error) {
	switch variant {
	case VariantPacked:
		return &packedLayout{groupSize: groupSize}, nil
	case VariantVolumetric:
		return &volumetricLayout{groupSize: groupSize}, nil
	default:
		return nil, fmt.Errorf("unknown cascade variant %d", int(variant))
	}
}
