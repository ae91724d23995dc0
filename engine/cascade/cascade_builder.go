package cascade

const (
	// DefaultReductionFactor divides the render target to get the lit-scene resolution.
	DefaultReductionFactor = 2
	// DefaultBaseRayOffset is the start distance of layer 0 rays.
	DefaultBaseRayOffset float32 = 0.5
	// DefaultBaseRayLength is the length of layer 0 rays.
	DefaultBaseRayLength float32 = 2.0
)

// CascadeBuilderOption is a functional option applied to a cascade during construction via
// NewCascade or later via Reconfigure.
type CascadeBuilderOption func(*cascade)

// WithVariant selects the layer storage variant. The kernel set passed to NewCascade must be
// built for the same variant.
//
// Parameters:
//   - v: the storage variant (VariantPacked by default)
//
// Returns:
//   - CascadeBuilderOption: a function that applies the variant option to a cascade
func WithVariant(v Variant) CascadeBuilderOption {
	return func(c *cascade) {
		c.variant = v
	}
}

// WithReductionFactor sets the factor the render target is divided by before planning.
//
// Parameters:
//   - n: the reduction factor, at least 1
//
// Returns:
//   - CascadeBuilderOption: a function that applies the reduction option to a cascade
func WithReductionFactor(n int) CascadeBuilderOption {
	return func(c *cascade) {
		c.reduction = n
	}
}

// WithBaseRayOffset sets the distance at which layer 0 rays begin.
//
// Parameters:
//   - offset: a non-negative finite distance
//
// Returns:
//   - CascadeBuilderOption: a function that applies the ray offset option to a cascade
func WithBaseRayOffset(offset float32) CascadeBuilderOption {
	return func(c *cascade) {
		c.baseRayOffset = offset
	}
}

// WithBaseRayLength sets the length of layer 0 rays. Each further layer is four times longer.
//
// Parameters:
//   - length: a positive finite distance
//
// Returns:
//   - CascadeBuilderOption: a function that applies the ray length option to a cascade
func WithBaseRayLength(length float32) CascadeBuilderOption {
	return func(c *cascade) {
		c.baseRayLength = length
	}
}

// WithMaxVolumeExtent overrides the per-axis extent ceiling volumetric layers are checked
// against. Zero uses the backend's reported limit.
//
// Parameters:
//   - extent: the maximum 3D extent per axis
//
// Returns:
//   - CascadeBuilderOption: a function that applies the extent option to a cascade
func WithMaxVolumeExtent(extent uint32) CascadeBuilderOption {
	return func(c *cascade) {
		c.maxVolumeExtent = extent
	}
}

// WithKernels replaces the kernel set. Pair it with WithVariant in Reconfigure to switch
// variants without rebuilding the cascade.
//
// Parameters:
//   - kernels: the creation, merging and finalization kernels
//
// Returns:
//   - CascadeBuilderOption: a function that applies the kernels option to a cascade
func WithKernels(kernels KernelSet) CascadeBuilderOption {
	return func(c *cascade) {
		c.kernels = kernels
	}
}
