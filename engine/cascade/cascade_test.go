package cascade

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCascade_ConfigurePacked(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{MaxVolumeExtent: 2048})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))
	require.NoError(t, c.Configure(1920, 1080))

	w, h := c.LitSceneSize()
	assert.Equal(t, 960, w)
	assert.Equal(t, 540, h)
	assert.Equal(t, VariantPacked, c.Variant())
	assert.Len(t, c.Plan(), 7)
	assert.Empty(t, c.Diagnostics())

	layers := c.Layers()
	require.Len(t, layers, 7)
	wantSpacing := []int{2, 4, 8, 16, 32, 64, 128}
	wantOffset := []float32{0.5, 2.5, 10.5, 42.5, 170.5, 682.5, 2730.5}
	for i, l := range layers {
		assert.Equal(t, i, l.Index)
		assert.Equal(t, wantSpacing[i], l.Info.ProbeSpacing)
		assert.Equal(t, wantOffset[i], l.Info.RayOffset)
		assert.Equal(t, [3]uint32{1920, 1152, 1}, l.Extent)
		assert.Equal(t, [3]uint32{240, 144, 1}, l.DispatchGroups)
		assert.Equal(t, l.Params.Marshal(), be.writes[l.Uniforms], "layer %d uniforms uploaded", i)
		assert.InDelta(t, 1.0, l.Params.Scale, 1e-6)
		assert.InDelta(t, 2.0, l.Params.RenderScale, 1e-6)
	}

	assert.Len(t, be.resourcesOfKind(ResourceKindRadiance), 7)
	assert.Len(t, be.resourcesOfKind(ResourceKindUniform), 7)
	images := be.resourcesOfKind(ResourceKindImage)
	require.Len(t, images, 1)
	assert.Equal(t, [3]uint32{960, 540, 1}, images[0].Extent)
	assert.Equal(t, 7+6+1, c.DispatchCount())
}

func TestCascade_RenderOrder(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{4, 4, 4}), WithVariant(VariantVolumetric))
	// 64x64 reduced by 2 is 32x32: diagonal 45.25 plans four layers.
	require.NoError(t, c.Configure(64, 64))
	layers := c.Layers()
	require.Len(t, layers, 4)

	const source ResourceHandle = 9000
	lit, err := c.Render(source)
	require.NoError(t, err)
	assert.Equal(t, c.LitScene(), lit)
	assert.Equal(t, 1, be.submissions, "one submission per frame")
	require.Len(t, be.dispatches, 8)

	for i := range 4 {
		d := be.dispatches[i]
		assert.Equal(t, "creation", d.kernel)
		assert.Equal(t, source, d.bindings[BindingEmitterScene])
		assert.Equal(t, layers[i].Buffer, d.bindings[BindingRadianceMap])
		assert.Equal(t, layers[i].Uniforms, d.bindings[BindingParams])
		assert.Equal(t, layers[i].DispatchGroups, d.groups)
	}

	type pair struct{ far, near int }
	var got []pair
	for _, d := range be.dispatches[4:7] {
		require.Equal(t, "merging", d.kernel)
		far, near := -1, -1
		for i, l := range layers {
			if d.bindings[BindingFarRadianceMap] == l.Buffer {
				far = i
			}
			if d.bindings[BindingNearRadianceMap] == l.Buffer {
				near = i
			}
		}
		assert.Equal(t, layers[far].Uniforms, d.bindings[BindingFarParams])
		assert.Equal(t, layers[near].Uniforms, d.bindings[BindingNearParams])
		assert.Equal(t, layers[near].DispatchGroups, d.groups, "merge uses the near layer's groups")
		got = append(got, pair{far, near})
	}
	if diff := cmp.Diff([]pair{{3, 2}, {2, 1}, {1, 0}}, got, cmp.AllowUnexported(pair{})); diff != "" {
		t.Errorf("merge order mismatch (-want +got):\n%s", diff)
	}

	fin := be.dispatches[7]
	assert.Equal(t, "finalization", fin.kernel)
	assert.Equal(t, layers[0].Buffer, fin.bindings[BindingRadianceMap])
	assert.Equal(t, lit, fin.bindings[BindingLitScene])
	assert.Equal(t, [3]uint32{4, 4, 1}, fin.groups)

	assert.Equal(t, [3]uint32{8, 8, 1}, layers[0].DispatchGroups)
	assert.Equal(t, [3]uint32{2, 2, 16}, layers[2].DispatchGroups)
}

func TestCascade_SingleLayerSkipsMerge(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}), WithReductionFactor(1))
	require.NoError(t, c.Configure(1, 1))
	require.Len(t, c.Layers(), 2)

	require.NoError(t, c.Reconfigure(WithVariant(VariantVolumetric), WithMaxVolumeExtent(8)))
	require.Len(t, c.Layers(), 1, "second layer depth 16 exceeds 8")

	_, err := c.Render(1)
	require.NoError(t, err)
	require.Len(t, be.dispatches, 2)
	assert.Equal(t, "creation", be.dispatches[0].kernel)
	assert.Equal(t, "finalization", be.dispatches[1].kernel)
}

func TestCascade_SourceRebinding(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))
	require.NoError(t, c.Configure(64, 64))
	n := len(c.Layers())
	base := be.createdBindings

	_, err := c.Render(100)
	require.NoError(t, err)
	assert.Equal(t, base+n, be.createdBindings)

	_, err = c.Render(100)
	require.NoError(t, err)
	assert.Equal(t, base+n, be.createdBindings, "same source reuses creation bindings")
	live := len(be.bindings)

	_, err = c.Render(200)
	require.NoError(t, err)
	assert.Equal(t, base+2*n, be.createdBindings, "new source rebuilds creation bindings")
	assert.Len(t, be.bindings, live, "old creation bindings released")
	assert.Equal(t, ResourceHandle(200), be.dispatches[len(be.dispatches)-1-(n-1)-n].bindings[BindingEmitterScene])
}

func TestCascade_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	missingBinding := fakeKernels([3]uint32{8, 8, 1})
	missingBinding.Merging = newFakeKernel("merging", [3]uint32{8, 8, 1}, BindingFarRadianceMap, BindingNearRadianceMap, BindingFarParams)

	missingKernel := fakeKernels([3]uint32{8, 8, 1})
	missingKernel.Finalization = nil

	mismatchedGroups := fakeKernels([3]uint32{8, 8, 1})
	mismatchedGroups.Merging = newFakeKernel("merging", [3]uint32{16, 16, 1}, MergingBindings...)

	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name    string
		w, h    int
		kernels KernelSet
		opts    []CascadeBuilderOption
		want    error
	}{
		{"zero width", 0, 1080, fakeKernels([3]uint32{8, 8, 1}), nil, ErrInvalidTarget},
		{"negative height", 1920, -1, fakeKernels([3]uint32{8, 8, 1}), nil, ErrInvalidTarget},
		{"reduced to nothing", 1, 1, fakeKernels([3]uint32{8, 8, 1}), nil, ErrInvalidTarget},
		{"reduction zero", 64, 64, fakeKernels([3]uint32{8, 8, 1}), []CascadeBuilderOption{WithReductionFactor(0)}, ErrInvalidReduction},
		{"ray length zero", 64, 64, fakeKernels([3]uint32{8, 8, 1}), []CascadeBuilderOption{WithBaseRayLength(0)}, ErrInvalidRayLength},
		{"ray length negative", 64, 64, fakeKernels([3]uint32{8, 8, 1}), []CascadeBuilderOption{WithBaseRayLength(-2)}, ErrInvalidRayLength},
		{"ray length nan", 64, 64, fakeKernels([3]uint32{8, 8, 1}), []CascadeBuilderOption{WithBaseRayLength(nan)}, ErrInvalidRayLength},
		{"ray length inf", 64, 64, fakeKernels([3]uint32{8, 8, 1}), []CascadeBuilderOption{WithBaseRayLength(inf)}, ErrInvalidRayLength},
		{"ray offset negative", 64, 64, fakeKernels([3]uint32{8, 8, 1}), []CascadeBuilderOption{WithBaseRayOffset(-0.1)}, ErrInvalidRayOffset},
		{"ray offset nan", 64, 64, fakeKernels([3]uint32{8, 8, 1}), []CascadeBuilderOption{WithBaseRayOffset(nan)}, ErrInvalidRayOffset},
		{"ray offset inf", 64, 64, fakeKernels([3]uint32{8, 8, 1}), []CascadeBuilderOption{WithBaseRayOffset(inf)}, ErrInvalidRayOffset},
		{"missing kernel", 64, 64, missingKernel, nil, ErrMissingKernel},
		{"missing binding", 64, 64, missingBinding, nil, ErrMissingBinding},
		{"workgroup mismatch", 64, 64, mismatchedGroups, nil, ErrWorkgroupMismatch},
		{"nothing fits", 64, 64, fakeKernels([3]uint32{4, 4, 4}), []CascadeBuilderOption{WithVariant(VariantVolumetric), WithMaxVolumeExtent(2)}, ErrNoLayers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			be := newFakeBackend(Limits{})
			c := NewCascade(be, tt.kernels, tt.opts...)

			err := c.Configure(tt.w, tt.h)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, be.resources, "no partial allocation kept")
			assert.Empty(t, be.bindings)
			assert.Nil(t, c.Layers())

			_, err = c.Render(1)
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestCascade_ZeroRayOffsetAllowed(t *testing.T) {
	t.Parallel()

	c := NewCascade(newFakeBackend(Limits{}), fakeKernels([3]uint32{8, 8, 1}), WithBaseRayOffset(0))
	require.NoError(t, c.Configure(64, 64))
	assert.Zero(t, c.Layers()[0].Info.RayOffset)
}

func TestCascade_AllocationFailureReleases(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	be.failCreateAfter = 5
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))

	err := c.Configure(1920, 1080)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
	assert.Empty(t, be.resources)
}

func TestCascade_VolumetricUsesBackendLimit(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{MaxVolumeExtent: 2048})
	c := NewCascade(be, fakeKernels([3]uint32{4, 4, 4}), WithVariant(VariantVolumetric))
	require.NoError(t, c.Configure(1920, 1080))

	assert.Len(t, c.Plan(), 7)
	layers := c.Layers()
	require.Len(t, layers, 5)
	assert.Equal(t, [3]uint32{60, 34, 1024}, layers[4].Extent)
	assert.InDelta(t, 32, layers[4].Params.Scale, 1e-6)
	require.Len(t, c.Diagnostics(), 1)
	assert.Equal(t, 5, c.Diagnostics()[0].Layer)

	// An explicit ceiling overrides the device.
	require.NoError(t, c.Reconfigure(WithMaxVolumeExtent(1000)))
	assert.Len(t, c.Layers(), 4, "layer 4 depth 1024 exceeds 1000")
}

func TestCascade_BeginComputeFailureSkipsFrame(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))
	require.NoError(t, c.Configure(64, 64))

	be.failBegin = errors.New("device lost")
	_, err := c.Render(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device lost")
	assert.Empty(t, be.dispatches)
	assert.Zero(t, be.submissions)

	be.failBegin = nil
	_, err = c.Render(1)
	require.NoError(t, err)
	assert.Equal(t, 1, be.submissions)
}

func TestCascade_RenderInvalidSource(t *testing.T) {
	t.Parallel()

	c := NewCascade(newFakeBackend(Limits{}), fakeKernels([3]uint32{8, 8, 1}))
	require.NoError(t, c.Configure(64, 64))
	_, err := c.Render(0)
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestCascade_ResizeReallocates(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))
	require.NoError(t, c.Configure(1920, 1080))
	_, err := c.Render(1)
	require.NoError(t, err)

	require.NoError(t, c.Configure(64, 64))
	assert.Len(t, c.Layers(), 4)
	assert.Len(t, be.resources, 4+4+1, "old layers released")

	_, err = c.Render(1)
	require.NoError(t, err)
}

func TestCascade_Reconfigure(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))

	// Before the first Configure options are only stored.
	require.NoError(t, c.Reconfigure(WithReductionFactor(4)))
	assert.Empty(t, be.resources)

	require.NoError(t, c.Configure(1920, 1080))
	w, h := c.LitSceneSize()
	assert.Equal(t, [2]int{480, 270}, [2]int{w, h})

	layers := c.Layers()
	resources := len(be.resources)

	err := c.Reconfigure(WithBaseRayLength(-1))
	assert.ErrorIs(t, err, ErrInvalidRayLength)
	assert.Empty(t, cmp.Diff(layers, c.Layers(), cmp.AllowUnexported(GPULayerParams{})), "rejected options never release the store")
	assert.Len(t, be.resources, resources)

	_, err = c.Render(1)
	require.NoError(t, err, "still renders with the previous configuration")

	require.NoError(t, c.Configure(1920, 1080), "previous options restored")
	w, _ = c.LitSceneSize()
	assert.Equal(t, 480, w)
}

func TestCascade_ReconfigureAllocationFailureRestores(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))
	require.NoError(t, c.Configure(64, 64))
	require.Len(t, c.Layers(), 4)

	// Reduction 1 needs 5 layers (11 resources); the previous 4-layer store needs 9.
	be.failCreateAfter = 10
	err := c.Reconfigure(WithReductionFactor(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")

	assert.Len(t, c.Layers(), 4, "previous configuration rebuilt")
	assert.Len(t, be.resources, 4+4+1)
	w, h := c.LitSceneSize()
	assert.Equal(t, [2]int{32, 32}, [2]int{w, h})

	_, err = c.Render(1)
	require.NoError(t, err)
}

func TestCascade_ConfigureRejectedKeepsPrevious(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))
	require.NoError(t, c.Configure(64, 64))

	assert.ErrorIs(t, c.Configure(0, 64), ErrInvalidTarget)
	assert.Len(t, c.Layers(), 4)
	w, _ := c.LitSceneSize()
	assert.Equal(t, 32, w)

	_, err := c.Render(1)
	require.NoError(t, err)
}

func TestCascade_Release(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))
	require.NoError(t, c.Configure(640, 360))
	_, err := c.Render(3)
	require.NoError(t, err)

	c.Release()
	assert.Empty(t, be.resources)
	assert.Empty(t, be.bindings)
	assert.Zero(t, c.LitScene())
	assert.Zero(t, c.DispatchCount())
}

func TestCascade_ReconfigureKernels(t *testing.T) {
	t.Parallel()

	be := newFakeBackend(Limits{})
	c := NewCascade(be, fakeKernels([3]uint32{8, 8, 1}))
	require.NoError(t, c.Configure(64, 64))

	volumetric := KernelSet{
		Creation:     newFakeKernel("volumetric-creation", [3]uint32{4, 4, 4}, CreationBindings...),
		Merging:      newFakeKernel("volumetric-merging", [3]uint32{4, 4, 4}, MergingBindings...),
		Finalization: newFakeKernel("volumetric-finalization", [3]uint32{8, 8, 1}, FinalizationBindings...),
	}
	require.NoError(t, c.Reconfigure(WithVariant(VariantVolumetric), WithKernels(volumetric)))
	assert.Equal(t, VariantVolumetric, c.Variant())

	_, err := c.Render(1)
	require.NoError(t, err)
	require.NotEmpty(t, be.dispatches)
	assert.Equal(t, "volumetric-creation", be.dispatches[0].kernel)

	broken := volumetric
	broken.Merging = newFakeKernel("broken-merging", [3]uint32{4, 4, 4}, BindingFarRadianceMap)
	err = c.Reconfigure(WithVariant(VariantPacked), WithKernels(broken))
	require.ErrorIs(t, err, ErrMissingBinding)

	// the failed reconfigure keeps the previous kernels and variant
	assert.Equal(t, VariantVolumetric, c.Variant())
	be.dispatches = nil
	_, err = c.Render(1)
	require.NoError(t, err)
	assert.Equal(t, "volumetric-merging", be.dispatches[len(c.Layers())].kernel)
	require.NoError(t, c.Configure(64, 64))
}
