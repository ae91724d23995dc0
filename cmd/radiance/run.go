package main

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-radiance/engine"
	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/Carmen-Shannon/oxy-radiance/engine/emitter"
	"github.com/Carmen-Shannon/oxy-radiance/engine/kernels"
	"github.com/Carmen-Shannon/oxy-radiance/engine/renderer"
	"github.com/Carmen-Shannon/oxy-radiance/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-radiance/engine/window"
	"github.com/urfave/cli"
)

// reductionCycle is the order R steps through reduction factors.
var reductionCycle = []int{1, 2, 4}

// demo owns the window-side state of an interactive run: the emitter scene, its source image
// and the kernel sets V switches between.
type demo struct {
	mu sync.Mutex

	logger   *slog.Logger
	renderer renderer.Renderer
	driver   *cascade.FrameDriver
	engine   engine.Engine
	sets     map[cascade.Variant]*kernels.Set

	scene     emitter.Scene
	source    cascade.ResourceHandle
	variant   cascade.Variant
	reduction int
	profiling bool
}

// Open a window and render the emitter scene through the cascade.
func runCommand(ctx *cli.Context) error {
	logger := setupLogging(ctx)

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	if cfg.maxExtent != 0 {
		cfg.options = append(cfg.options, cascade.WithMaxVolumeExtent(cfg.maxExtent))
	}

	// both variants are compiled up front so V can switch without reloading
	sets := make(map[cascade.Variant]*kernels.Set, 2)
	var pipelines []pipeline.Pipeline
	for _, v := range []cascade.Variant{cascade.VariantPacked, cascade.VariantVolumetric} {
		set, err := kernels.Load(v, kernels.WithValidation(ctx.Bool("validate")))
		if err != nil {
			return err
		}
		sets[v] = set
		pipelines = append(pipelines, set.Pipelines...)
	}
	composite, err := kernels.Composite()
	if err != nil {
		return err
	}

	w, err := window.NewWindow(
		window.WithTitle("radiance"),
		window.WithSize(cfg.width, cfg.height),
		window.WithMinSize(64, 64),
	)
	if err != nil {
		return err
	}

	mode := renderer.PresentModeUncapped
	if ctx.Bool("vsync") {
		mode = renderer.PresentModeVSync
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, w,
		renderer.WithPipelines(pipelines...),
		renderer.WithCompositePipeline(composite),
		renderer.WithPresentMode(mode),
		renderer.WithForceSoftwareRenderer(ctx.Bool("software")),
		renderer.WithLogger(logger),
	)
	if err != nil {
		_ = w.Close()
		return err
	}
	defer r.Release()

	c := cascade.NewCascade(r, sets[cfg.variant].Kernels, cfg.options...)
	defer c.Release()

	d := &demo{
		logger:    logger,
		renderer:  r,
		driver:    cascade.NewFrameDriver(c, r),
		sets:      sets,
		scene:     emitter.NewDemoScene(w.Width(), w.Height()),
		variant:   cfg.variant,
		reduction: ctx.Int("reduction"),
		profiling: ctx.Bool("profile"),
	}
	if err := d.allocateSource(w.Width(), w.Height()); err != nil {
		return err
	}
	defer d.releaseSource()
	if err := d.driver.Resize(w.Width(), w.Height()); err != nil {
		return err
	}

	d.engine = engine.NewEngine(
		engine.WithWindow(w),
		engine.WithDriver(d.driver),
		engine.WithSource(d.source),
		engine.WithProfiling(ctx.Bool("profile")),
		engine.WithRenderFrameLimit(ctx.Float64("fps")),
		engine.WithLogger(logger),
	)
	d.engine.SetRenderCallback(d.upload)
	d.engine.SetResizeCallback(d.resize)
	w.SetCursorCallback(d.scene.SetCursor)
	w.SetKeyCallback(d.key)

	logger.Info("radiance: running",
		slog.String("variant", d.variant.String()),
		slog.Int("width", w.Width()), slog.Int("height", w.Height()),
		slog.Int("layers", len(c.Layers())),
	)
	return d.engine.Run()
}

// upload rasterizes the scene into the source image before each frame.
func (d *demo) upload(float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pixels, err := d.scene.Render()
	if err != nil {
		d.logger.Warn("radiance: emitter scene not updated", slog.Any("error", err))
		return
	}
	d.renderer.WriteResource(d.source, 0, pixels)
}

// resize reconfigures the surface and reallocates the source image at the new size. The
// engine resizes the cascade afterwards.
func (d *demo) resize(width, height int) error {
	if err := d.renderer.Resize(width, height); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.source
	if err := d.allocateSourceLocked(width, height); err != nil {
		return err
	}
	d.renderer.ReleaseResource(old)
	d.scene.Resize(width, height)
	d.engine.SetSource(d.source)
	return nil
}

func (d *demo) allocateSource(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocateSourceLocked(width, height)
}

func (d *demo) allocateSourceLocked(width, height int) error {
	h, err := d.renderer.CreateSourceImage(width, height)
	if err != nil {
		return fmt.Errorf("failed to allocate emitter scene: %w", err)
	}
	d.source = h
	return nil
}

func (d *demo) releaseSource() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.renderer.ReleaseResource(d.source)
	d.source = 0
}

// key switches the variant on V, steps the reduction factor on R and toggles profiling on Space.
func (d *demo) key(k window.Key) {
	switch k {
	case window.KeyV:
		next := nextVariant(d.variant)
		if err := d.driver.Reconfigure(cascade.WithVariant(next), cascade.WithKernels(d.sets[next].Kernels)); err != nil {
			d.logger.Warn("radiance: variant switch failed", slog.String("variant", next.String()), slog.Any("error", err))
			return
		}
		d.variant = next
		d.logger.Info("radiance: variant", slog.String("variant", next.String()), slog.Int("layers", len(d.driver.Cascade().Layers())))
	case window.KeyR:
		next := nextReduction(d.reduction)
		if err := d.driver.Reconfigure(cascade.WithReductionFactor(next)); err != nil {
			d.logger.Warn("radiance: reduction change failed", slog.Int("reduction", next), slog.Any("error", err))
			return
		}
		d.reduction = next
		d.logger.Info("radiance: reduction", slog.Int("reduction", next))
	case window.KeySpace:
		d.profiling = !d.profiling
		if d.profiling {
			d.engine.EnableProfiler()
		} else {
			d.engine.DisableProfiler()
		}
	}
}

func nextVariant(v cascade.Variant) cascade.Variant {
	if v == cascade.VariantPacked {
		return cascade.VariantVolumetric
	}
	return cascade.VariantPacked
}

// nextReduction returns the factor after n in reductionCycle, or the first one if n is not in
// the cycle.
func nextReduction(n int) int {
	for i, r := range reductionCycle {
		if r == n {
			return reductionCycle[(i+1)%len(reductionCycle)]
		}
	}
	return reductionCycle[0]
}
