package cascade

import (
	"log/slog"
	"sync"
)

// Compositor presents the lit scene after a frame's cascade passes.
type Compositor interface {
	// Composite draws the lit scene onto the output surface.
	//
	// Parameters:
	//   - litScene: the lit scene written by the finalize pass
	//
	// Returns:
	//   - error: an error if the surface could not be acquired or presented
	Composite(litScene ResourceHandle) error
}

// FrameStats counts the frames a FrameDriver has run.
type FrameStats struct {
	Frames     uint64
	Skipped    uint64
	Dispatches uint64
}

// FrameDriver runs one cascade per frame and hands the result to a Compositor. Resize and
// RenderFrame are serialized so a reallocation never interleaves with a frame's dispatches.
type FrameDriver struct {
	mu         sync.Mutex
	cascade    Cascade
	compositor Compositor
	stats      FrameStats
}

// NewFrameDriver creates a FrameDriver for c. compositor may be nil, in which case frames end
// after the finalize pass.
//
// Parameters:
//   - c: the cascade to run each frame
//   - compositor: the presenter of the lit scene
//
// Returns:
//   - *FrameDriver: the new driver
func NewFrameDriver(c Cascade, compositor Compositor) *FrameDriver {
	return &FrameDriver{cascade: c, compositor: compositor}
}

// Resize reconfigures the cascade for a new render target.
//
// Parameters:
//   - width: the new render-target width
//   - height: the new render-target height
//
// Returns:
//   - error: any error Configure returns
func (d *FrameDriver) Resize(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cascade.Configure(width, height)
}

// Reconfigure applies options to the cascade and reallocates it between frames.
//
// Parameters:
//   - options: the options to apply, e.g. WithVariant paired with WithKernels
//
// Returns:
//   - error: any error Reconfigure returns
func (d *FrameDriver) Reconfigure(options ...CascadeBuilderOption) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cascade.Reconfigure(options...)
}

// RenderFrame runs the creation, merge and finalize passes against source, then composites.
// A failed frame is counted as skipped and its error returned; nothing is retried.
//
// Parameters:
//   - source: the emitter scene image
//
// Returns:
//   - error: the cascade or compositor error that skipped the frame
func (d *FrameDriver) RenderFrame(source ResourceHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	lit, err := d.cascade.Render(source)
	if err != nil {
		d.stats.Skipped++
		Logger().Warn("cascade: frame skipped", slog.Any("error", err))
		return err
	}
	d.stats.Dispatches += uint64(d.cascade.DispatchCount())

	if d.compositor != nil {
		if err := d.compositor.Composite(lit); err != nil {
			d.stats.Skipped++
			Logger().Warn("cascade: composite failed", slog.Any("error", err))
			return err
		}
	}
	d.stats.Frames++
	return nil
}

// Stats returns a snapshot of the driver's frame counters.
//
// Returns:
//   - FrameStats: the counters
func (d *FrameDriver) Stats() FrameStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Cascade returns the driven cascade.
//
// Returns:
//   - Cascade: the cascade
func (d *FrameDriver) Cascade() Cascade {
	return d.cascade
}
