package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
)

// Report is one interval's worth of statistics.
type Report struct {
	FPS float64
	// DispatchesPerFrame is the mean number of compute dispatches per presented frame.
	DispatchesPerFrame float64
	// Skipped is the number of frames skipped during the interval.
	Skipped uint64

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	NumGC       uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate, cascade dispatch counts and memory statistics, logging a Report
// at a configurable interval.
type Profiler struct {
	logger         *slog.Logger
	now            func() time.Time
	updateInterval time.Duration

	frameCount int
	lastTime   time.Time
	lastStats  cascade.FrameStats

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler. The interval defaults to one second and the logger to
// the cascade logger.
//
// Parameters:
//   - options: variadic ProfilerOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		logger:         cascade.Logger(),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per rendered frame with the driver's counters. When the interval
// has elapsed it logs and returns a Report.
//
// Parameters:
//   - stats: the frame driver's cumulative counters
//
// Returns:
//   - Report: the interval's statistics, zero unless ok
//   - bool: true if an interval elapsed on this tick
func (p *Profiler) Tick(stats cascade.FrameStats) (Report, bool) {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Report{}, false
	}

	r := Report{
		FPS:     float64(p.frameCount) / elapsed.Seconds(),
		Skipped: stats.Skipped - p.lastStats.Skipped,
	}
	if frames := stats.Frames - p.lastStats.Frames; frames > 0 {
		r.DispatchesPerFrame = float64(stats.Dispatches-p.lastStats.Dispatches) / float64(frames)
	}
	p.readMemory(&r, elapsed)

	p.logger.Info("profiler",
		slog.Float64("fps", r.FPS),
		slog.Float64("dispatches_per_frame", r.DispatchesPerFrame),
		slog.Uint64("skipped", r.Skipped),
		slog.Float64("heap_mb", r.HeapMB),
		slog.Float64("alloc_rate_mb_s", r.AllocRateMB),
		slog.Any("gc", r.NumGC),
		slog.Uint64("gc_last_pause_us", r.LastPauseUs),
		slog.Uint64("gc_max_pause_us", r.MaxPauseUs),
		slog.Float64("sys_mb", r.SysMB),
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastStats = stats
	return r, true
}

func (p *Profiler) readMemory(r *Report, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	r.NumGC = gcCount
	if gcCount > 0 {
		// PauseNs is a ring of the last 256 pauses
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
