package cascade

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompositor struct {
	calls []ResourceHandle
	err   error
}

func (f *fakeCompositor) Composite(lit ResourceHandle) error {
	f.calls = append(f.calls, lit)
	return f.err
}

func TestFrameDriver_RenderFrame(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	comp := &fakeCompositor{}
	d := NewFrameDriver(NewCascade(be, fakeKernels([3]uint32{8, 8, 1})), comp)

	err := d.RenderFrame(1)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, uint64(1), d.Stats().Skipped)
	assert.Empty(t, comp.calls)

	require.NoError(t, d.Resize(64, 64))
	require.NoError(t, d.RenderFrame(1))
	require.Len(t, comp.calls, 1)
	assert.Equal(t, d.Cascade().LitScene(), comp.calls[0])

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.Frames)
	assert.Equal(t, uint64(8), stats.Dispatches)
}

func TestFrameDriver_CompositeFailure(t *testing.T) {
	t.Parallel()

	comp := &fakeCompositor{err: errors.New("surface lost")}
	d := NewFrameDriver(NewCascade(newFakeBackend(Limits{}), fakeKernels([3]uint32{8, 8, 1})), comp)
	require.NoError(t, d.Resize(64, 64))

	err := d.RenderFrame(1)
	require.Error(t, err)
	assert.Equal(t, uint64(1), d.Stats().Skipped)
	assert.Zero(t, d.Stats().Frames)
}

func TestFrameDriver_NilCompositor(t *testing.T) {
	t.Parallel()

	d := NewFrameDriver(NewCascade(newFakeBackend(Limits{}), fakeKernels([3]uint32{8, 8, 1})), nil)
	require.NoError(t, d.Resize(128, 64))
	require.NoError(t, d.RenderFrame(1))
	assert.Equal(t, uint64(1), d.Stats().Frames)
}

func TestFrameDriver_ResizeNeverInterleaves(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	d := NewFrameDriver(NewCascade(be, fakeKernels([3]uint32{8, 8, 1})), &fakeCompositor{})
	require.NoError(t, d.Resize(64, 64))

	// The fake backend panics on a dispatch outside an open compute sequence, and its maps
	// are not synchronized; both would trip if Resize ran during a frame.
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = d.Resize(64+i*16, 64)
		}()
		go func() {
			defer wg.Done()
			_ = d.RenderFrame(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(8), d.Stats().Frames)
	assert.Equal(t, be.submissions, int(d.Stats().Frames))
}

func TestFrameDriver_Reconfigure(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	d := NewFrameDriver(NewCascade(be, fakeKernels([3]uint32{8, 8, 1})), nil)
	require.NoError(t, d.Resize(64, 64))
	require.Len(t, d.Cascade().Layers(), 4)

	require.NoError(t, d.Reconfigure(WithReductionFactor(4)))
	w, h := d.Cascade().LitSceneSize()
	assert.Equal(t, 16, w)
	assert.Equal(t, 16, h)

	assert.ErrorIs(t, d.Reconfigure(WithReductionFactor(0)), ErrInvalidReduction)
	for range 3 {
		require.NoError(t, d.RenderFrame(1), "failed reconfigure keeps the cascade rendering")
	}
	assert.Equal(t, uint64(3), d.Stats().Frames)
	assert.Zero(t, d.Stats().Skipped)

	require.NoError(t, d.Resize(64, 64))
	w, _ = d.Cascade().LitSceneSize()
	assert.Equal(t, 16, w, "failed reconfigure keeps the previous factor")
}
