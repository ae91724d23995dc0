package engine

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/Carmen-Shannon/oxy-radiance/engine/profiler"
	"github.com/Carmen-Shannon/oxy-radiance/engine/window"
)

// ErrNoDriver is returned by Run when the engine was built without a frame driver.
var ErrNoDriver = errors.New("engine has no frame driver")

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration
	resizeChannel   chan [2]int

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window window.Window
	driver *cascade.FrameDriver
	source atomic.Uint32
	logger *slog.Logger

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)
	resizeCallback func(width, height int) error

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine runs the radiance demo: a fixed-rate tick loop for scene updates, a render loop that
// drives one cascade frame per iteration, and the window's message loop.
//
// Resizes reported by the window are queued and applied on the render goroutine between
// frames, so a reallocation never races a frame's dispatches.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, nil when running headless
	Window() window.Window

	// Driver returns the cascade frame driver.
	//
	// Returns:
	//   - *cascade.FrameDriver: the driver
	Driver() *cascade.FrameDriver

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each tick. Use it to move emitters.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called before each cascade frame. Use it to
	// upload the emitter scene into the source image.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetResizeCallback registers the function called on the render goroutine when a resize is
	// applied, before the cascade is reconfigured. Use it to reconfigure the surface and
	// reallocate the source image. An error skips the cascade resize.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer size
	SetResizeCallback(callback func(width, height int) error)

	// Resize queues a resize. Only the latest pending size is applied.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// SetSource sets the emitter scene image each frame renders from.
	//
	// Parameters:
	//   - h: the source image handle
	SetSource(h cascade.ResourceHandle)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the tick and render loops and blocks until the window closes or Quit is called.
	//
	// Returns:
	//   - error: ErrNoDriver if the engine has no frame driver
	Run() error

	// Quit signals all engine goroutines to stop. Safe to call multiple times.
	Quit()
}

// NewEngine creates a new Engine with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		resizeChannel:   make(chan [2]int, 1),
		quitChannel:     make(chan struct{}),
		logger:          cascade.Logger(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.Resize)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Driver() *cascade.FrameDriver {
	return e.driver
}

func (e *engine) Run() error {
	if e.driver == nil {
		return ErrNoDriver
	}
	e.running.Store(true)
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
	return nil
}

func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// handle launches the tick and render goroutines.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// handleEngine runs the fixed-rate tick loop until quit.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the render loop until quit. A panic inside a frame is logged and stops
// the engine instead of crashing the process.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine: render goroutine recovered from panic", slog.Any("panic", r))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case size := <-e.resizeChannel:
			e.applyResize(size[0], size[1])
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			e.renderFrame(dt)

			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - time.Since(lastRender); remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// renderFrame uploads the scene through the render callback, then runs one cascade frame.
func (e *engine) renderFrame(dt float32) {
	if e.renderCallback != nil {
		e.renderCallback(dt)
	}

	source := cascade.ResourceHandle(e.source.Load())
	if err := e.driver.RenderFrame(source); err != nil {
		e.logger.Debug("engine: frame skipped", slog.Uint64("source", uint64(source)), slog.Any("error", err))
	}

	if e.profilingEnabled.Load() && e.profiler != nil {
		e.profiler.Tick(e.driver.Stats())
	}
}

func (e *engine) applyResize(width, height int) {
	if e.resizeCallback != nil {
		if err := e.resizeCallback(width, height); err != nil {
			e.logger.Warn("engine: resize callback failed",
				slog.Int("width", width), slog.Int("height", height), slog.Any("error", err))
			return
		}
	}
	if err := e.driver.Resize(width, height); err != nil {
		e.logger.Warn("engine: cascade resize failed",
			slog.Int("width", width), slog.Int("height", height), slog.Any("error", err))
	}
}

func (e *engine) Resize(width, height int) {
	size := [2]int{width, height}
	select {
	case e.resizeChannel <- size:
	default:
		// replace the pending size
		select {
		case <-e.resizeChannel:
		default:
		}
		e.resizeChannel <- size
	}
}

func (e *engine) SetSource(h cascade.ResourceHandle) {
	e.source.Store(uint32(h))
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate takes effect immediately when the engine is running.
func (e *engine) SetTickRate(fps float64) {
	newRate := tickInterval(fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetResizeCallback(callback func(width, height int) error) {
	e.resizeCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameLimit(fps)
}

// tickInterval converts a tick rate to a ticker period, defaulting to 60 Hz.
func tickInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Duration(float64(time.Second) / fps)
}

// frameLimit converts a frame cap to a minimum frame duration; 0 means uncapped.
func frameLimit(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
