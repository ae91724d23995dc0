package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-radiance/engine/cascade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestProfiler_Tick(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	var buf bytes.Buffer
	p := NewProfiler(
		WithInterval(time.Second),
		WithClock(clock.now),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	// 7 layers: 7 creations + 6 merges + 1 finalize per frame
	stats := cascade.FrameStats{}
	for range 9 {
		clock.t = clock.t.Add(100 * time.Millisecond)
		stats.Frames++
		stats.Dispatches += 14
		_, ok := p.Tick(stats)
		require.False(t, ok)
	}
	assert.Zero(t, buf.Len())

	clock.t = clock.t.Add(100 * time.Millisecond)
	stats.Frames++
	stats.Dispatches += 14
	stats.Skipped = 2
	r, ok := p.Tick(stats)
	require.True(t, ok)
	assert.InDelta(t, 10.0, r.FPS, 1e-9)
	assert.InDelta(t, 14.0, r.DispatchesPerFrame, 1e-9)
	assert.Equal(t, uint64(2), r.Skipped)
	assert.Positive(t, r.SysMB)
	assert.Contains(t, buf.String(), "dispatches_per_frame=14")

	// counters are reported per interval
	clock.t = clock.t.Add(2 * time.Second)
	stats.Frames++
	stats.Dispatches += 10
	r, ok = p.Tick(stats)
	require.True(t, ok)
	assert.InDelta(t, 0.5, r.FPS, 1e-9)
	assert.InDelta(t, 10.0, r.DispatchesPerFrame, 1e-9)
	assert.Zero(t, r.Skipped)
}

func TestProfiler_Options(t *testing.T) {
	t.Parallel()

	p := NewProfiler(WithInterval(-1), WithLogger(nil), WithClock(nil))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.now)
}
