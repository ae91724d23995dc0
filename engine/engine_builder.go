package engine

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/Carmen-Shannon/oxy-radiance/engine/profiler"
	"github.com/Carmen-Shannon/oxy-radiance/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default profiler.
//
// Parameters:
//   - p: the profiler to tick each frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the tick rate in ticks per second. Values <= 0 mean 60 Hz.
//
// Parameters:
//   - fps: target ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithWindow sets the window whose message loop Run blocks on. Without one the engine runs
// headless until Quit.
//
// Parameters:
//   - w: the window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithDriver sets the frame driver each render iteration runs.
//
// Parameters:
//   - d: the frame driver
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDriver(d *cascade.FrameDriver) EngineBuilderOption {
	return func(e *engine) {
		e.driver = d
	}
}

// WithSource sets the initial emitter scene image.
//
// Parameters:
//   - h: the source image handle
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSource(h cascade.ResourceHandle) EngineBuilderOption {
	return func(e *engine) {
		e.source.Store(uint32(h))
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameLimit(fps)
	}
}

// WithLogger sets the logger engine warnings are written to. Defaults to the cascade logger.
//
// Parameters:
//   - l: the logger, ignored if nil
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(l *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if l != nil {
			e.logger = l
		}
	}
}
