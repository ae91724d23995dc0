package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEngineWindow_Defaults(t *testing.T) {
	t.Parallel()

	w := newEngineWindow()
	assert.Equal(t, "oxy-radiance", w.title)
	assert.Equal(t, 1280, w.Width())
	assert.Equal(t, 720, w.Height())
	assert.False(t, w.IsRunning(), "no platform window yet")
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
}

func TestNewEngineWindow_ClampsInitialSize(t *testing.T) {
	t.Parallel()

	w := newEngineWindow(
		WithTitle("plan"),
		WithSize(100, 5000),
		WithMinSize(200, 100),
		WithMaxSize(0, 1000),
	)
	assert.Equal(t, "plan", w.title)
	assert.Equal(t, 200, w.Width())
	assert.Equal(t, 1000, w.Height())
}

func TestClampSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		v, lo, hi int
		want      int
	}{
		{"inside", 500, 100, 1000, 500},
		{"below", 50, 100, 1000, 100},
		{"above", 1500, 100, 1000, 1000},
		{"no upper bound", 9000, 100, 0, 9000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, clampSize(tt.v, tt.lo, tt.hi))
		})
	}
}

func TestCallbacks(t *testing.T) {
	t.Parallel()

	w := newEngineWindow()
	var got []string
	w.SetUpdateCallback(func() { got = append(got, "update") })
	w.SetResizeCallback(func(int, int) { got = append(got, "resize") })
	w.SetCursorCallback(func(float64, float64) { got = append(got, "cursor") })
	w.SetKeyCallback(func(Key) { got = append(got, "key") })

	w.onUpdate()
	w.onResize(1, 1)
	w.onCursor(0, 0)
	w.onKey(KeyV)
	assert.Equal(t, []string{"update", "resize", "cursor", "key"}, got)

	// ProcessMessages returns at once without a platform window
	w.ProcessMessages()
}
