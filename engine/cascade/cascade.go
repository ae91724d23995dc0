package cascade

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// Cascade orchestrates the radiance cascade passes for one render target. It owns the layer
// store, rebuilds it on Configure, and records each frame's creation, merge and finalize
// dispatches into a single backend submission.
type Cascade interface {
	// Configure plans and allocates every layer for the given render target. A target, option
	// or kernel error leaves the previous allocation untouched. Otherwise the previous
	// allocation is released first, and on an allocation error no partial state is kept.
	//
	// Parameters:
	//   - targetWidth: the render-target width in pixels
	//   - targetHeight: the render-target height in pixels
	//
	// Returns:
	//   - error: a configuration error (see the Err* sentinels) or a wrapped backend error
	Configure(targetWidth, targetHeight int) error

	// Reconfigure applies options and, if the cascade was configured, re-runs Configure with the
	// last target size. Options are only kept if the new configuration succeeds; on failure the
	// cascade keeps rendering with the previous configuration.
	//
	// Parameters:
	//   - options: the options to apply
	//
	// Returns:
	//   - error: any error Configure returns
	Reconfigure(options ...CascadeBuilderOption) error

	// Render records and submits the frame's dispatches: creation for every layer nearest first,
	// merges from farthest to nearest, then finalize into the lit scene.
	//
	// Parameters:
	//   - source: the emitter scene image the creation pass samples
	//
	// Returns:
	//   - ResourceHandle: the lit scene written by the finalize pass
	//   - error: ErrNotConfigured, ErrInvalidSource, or a backend error; the frame is skipped
	Render(source ResourceHandle) (ResourceHandle, error)

	// Plan returns the layer geometry planned by the last Configure, before any truncation.
	//
	// Returns:
	//   - []LayerInfo: the planned layers, nil before Configure
	Plan() []LayerInfo

	// Layers returns the allocated layers.
	//
	// Returns:
	//   - []RadianceLayer: the layers, nearest first, nil before Configure
	Layers() []RadianceLayer

	// Diagnostics returns the truncation records of the last Configure.
	//
	// Returns:
	//   - []Diagnostic: the diagnostics, empty if nothing was dropped
	Diagnostics() []Diagnostic

	// LitScene returns the handle of the lit scene image.
	//
	// Returns:
	//   - ResourceHandle: the lit scene, zero before Configure
	LitScene() ResourceHandle

	// LitSceneSize returns the reduced resolution the lit scene is rendered at.
	//
	// Returns:
	//   - int: the lit scene width
	//   - int: the lit scene height
	LitSceneSize() (int, int)

	// Variant returns the configured storage variant.
	//
	// Returns:
	//   - Variant: the storage variant
	Variant() Variant

	// DispatchCount returns the number of dispatches one frame records: one creation per layer,
	// one merge per adjacent pair and one finalize.
	//
	// Returns:
	//   - int: the per-frame dispatch count, zero before Configure
	DispatchCount() int

	// Release frees every GPU object the cascade owns. The cascade can be configured again.
	Release()
}

var _ Cascade = &cascade{}

type cascade struct {
	backend Backend
	kernels KernelSet

	variant         Variant
	reduction       int
	baseRayOffset   float32
	baseRayLength   float32
	maxVolumeExtent uint32

	configured bool
	target     [2]int
	lit        [2]int
	plan       []LayerInfo
	diags      []Diagnostic
	store      *layerStore
}

// NewCascade creates a new Cascade that drives backend with the given kernels.
// No GPU objects are created until Configure.
//
// Parameters:
//   - backend: the GPU command surface
//   - kernels: the creation, merging and finalization kernels for the selected variant
//   - options: variadic CascadeBuilderOption functions to configure the cascade
//
// Returns:
//   - Cascade: the new cascade
func NewCascade(backend Backend, kernels KernelSet, options ...CascadeBuilderOption) Cascade {
	c := &cascade{
		backend:       backend,
		kernels:       kernels,
		variant:       VariantPacked,
		reduction:     DefaultReductionFactor,
		baseRayOffset: DefaultBaseRayOffset,
		baseRayLength: DefaultBaseRayLength,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cascade) validate(targetWidth, targetHeight int) error {
	if targetWidth <= 0 || targetHeight <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidTarget, targetWidth, targetHeight)
	}
	if c.reduction < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidReduction, c.reduction)
	}
	if l := float64(c.baseRayLength); math.IsNaN(l) || math.IsInf(l, 0) || l <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRayLength, c.baseRayLength)
	}
	if o := float64(c.baseRayOffset); math.IsNaN(o) || math.IsInf(o, 0) || o < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRayOffset, c.baseRayOffset)
	}
	if targetWidth/c.reduction == 0 || targetHeight/c.reduction == 0 {
		return fmt.Errorf("%w: %dx%d reduced by %d is empty", ErrInvalidTarget, targetWidth, targetHeight, c.reduction)
	}
	return validateKernels(c.kernels)
}

func (c *cascade) Configure(targetWidth, targetHeight int) error {
	if err := c.validate(targetWidth, targetHeight); err != nil {
		return err
	}

	layout, err := NewLayout(c.variant, c.kernels.Creation.WorkgroupSize())
	if err != nil {
		return err
	}

	lit := [2]int{targetWidth / c.reduction, targetHeight / c.reduction}
	plan := Plan(lit[0], lit[1], c.baseRayOffset, c.baseRayLength)

	limits := c.backend.Limits()
	if c.maxVolumeExtent != 0 {
		limits.MaxVolumeExtent = c.maxVolumeExtent
	}
	kept, diags := layout.Select(plan, limits)
	for _, d := range diags {
		Logger().Warn("cascade: layers truncated", slog.String("variant", c.variant.String()), slog.String("reason", d.String()))
	}
	if len(kept) == 0 {
		return fmt.Errorf("%w: %s at %dx%d", ErrNoLayers, c.variant, lit[0], lit[1])
	}

	// Nothing above touches the backend; a rejected configuration keeps the current one.
	c.Release()
	store, err := newLayerStore(c.backend, layout, c.kernels, kept, c.reduction, lit)
	if err != nil {
		return err
	}

	c.configured = true
	c.target = [2]int{targetWidth, targetHeight}
	c.lit = lit
	c.plan = plan
	c.diags = diags
	c.store = store

	log := Logger()
	log.Info("cascade: configured",
		slog.String("variant", c.variant.String()),
		slog.Int("target_w", targetWidth), slog.Int("target_h", targetHeight),
		slog.Int("lit_w", lit[0]), slog.Int("lit_h", lit[1]),
		slog.Int("layers", len(store.layers)),
	)
	for _, layer := range store.layers {
		log.Debug("cascade: layer",
			slog.Int("index", layer.Index),
			slog.String("plan", layer.Info.String()),
			slog.Any("extent", layer.Extent),
			slog.Any("groups", layer.DispatchGroups),
		)
	}
	return nil
}

func (c *cascade) Reconfigure(options ...CascadeBuilderOption) error {
	prev := *c
	for _, opt := range options {
		opt(c)
	}
	if !prev.configured {
		return nil
	}
	err := c.Configure(prev.target[0], prev.target[1])
	if err == nil {
		return nil
	}
	c.kernels = prev.kernels
	c.variant = prev.variant
	c.reduction = prev.reduction
	c.baseRayOffset = prev.baseRayOffset
	c.baseRayLength = prev.baseRayLength
	c.maxVolumeExtent = prev.maxVolumeExtent
	if c.store != nil {
		return err
	}
	// The allocation failed after the old store was released; rebuild it.
	if rerr := c.Configure(prev.target[0], prev.target[1]); rerr != nil {
		return errors.Join(err, fmt.Errorf("failed to restore previous configuration: %w", rerr))
	}
	return err
}

func (c *cascade) Render(source ResourceHandle) (ResourceHandle, error) {
	if c.store == nil {
		return 0, ErrNotConfigured
	}
	if source == 0 {
		return 0, ErrInvalidSource
	}
	s := c.store
	if err := s.bindSource(c.kernels, source); err != nil {
		return 0, err
	}
	if err := c.backend.BeginCompute(); err != nil {
		return 0, fmt.Errorf("failed to begin compute: %w", err)
	}

	for i, layer := range s.layers {
		c.backend.Dispatch(c.kernels.Creation, s.createBindings[i], layer.DispatchGroups)
	}
	for i := len(s.layers) - 1; i >= 1; i-- {
		c.backend.Dispatch(c.kernels.Merging, s.mergeBindings[i-1], s.layers[i-1].DispatchGroups)
	}
	c.backend.Dispatch(c.kernels.Finalization, s.finalizeBindings, s.finalizeGroups)

	c.backend.EndCompute()
	return s.litScene, nil
}

func (c *cascade) Plan() []LayerInfo {
	return c.plan
}

func (c *cascade) Layers() []RadianceLayer {
	if c.store == nil {
		return nil
	}
	return c.store.layers
}

func (c *cascade) Diagnostics() []Diagnostic {
	return c.diags
}

func (c *cascade) LitScene() ResourceHandle {
	if c.store == nil {
		return 0
	}
	return c.store.litScene
}

func (c *cascade) LitSceneSize() (int, int) {
	return c.lit[0], c.lit[1]
}

func (c *cascade) Variant() Variant {
	return c.variant
}

func (c *cascade) DispatchCount() int {
	if c.store == nil {
		return 0
	}
	n := len(c.store.layers)
	return n + (n - 1) + 1
}

func (c *cascade) Release() {
	if c.store != nil {
		c.store.release()
		c.store = nil
	}
	c.plan = nil
	c.diags = nil
	c.lit = [2]int{}
}
