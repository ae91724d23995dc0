package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		in   string
		want Variant
	}{
		{"packed", VariantPacked},
		{"PACKED", VariantPacked},
		{"2d", VariantPacked},
		{" volumetric ", VariantVolumetric},
		{"3D", VariantVolumetric},
	} {
		got, err := ParseVariant(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseVariant("spherical")
	assert.Error(t, err)
	assert.Equal(t, "volumetric", VariantVolumetric.String())
}

func TestNewLayout_UnknownVariant(t *testing.T) {
	t.Parallel()

	_, err := NewLayout(Variant(9), [3]uint32{8, 8, 1})
	assert.Error(t, err)
}

func TestPackedLayout(t *testing.T) {
	t.Parallel()

	layout, err := NewLayout(VariantPacked, [3]uint32{8, 8, 1})
	require.NoError(t, err)
	assert.Equal(t, VariantPacked, layout.Variant())

	infos := Plan(960, 540, 0.5, 2.0)
	kept, diags := layout.Select(infos, Limits{MaxVolumeExtent: 1})
	assert.Len(t, kept, 7, "packed layers are never truncated")
	assert.Empty(t, diags)

	var groups [3]uint32
	for i, info := range kept {
		ext := layout.Extent(info, i, kept)
		assert.Equal(t, [3]uint32{1920, 1152, 1}, ext, "layer %d shares the footprint", i)

		layer := &RadianceLayer{Index: i, Info: info, Extent: ext}
		g := layout.DispatchGroupsFor(layer)
		if i == 0 {
			groups = g
		}
		assert.Equal(t, groups, g)
	}
	assert.Equal(t, [3]uint32{240, 144, 1}, groups)

	assert.InDelta(t, 1.0, layout.Scale(3, 2), 1e-6)
	assert.InDelta(t, 0.5, layout.Scale(0, 1), 1e-6)
}

func TestPackedLayout_FootprintIsSpacingMultiple(t *testing.T) {
	t.Parallel()

	layout, err := NewLayout(VariantPacked, [3]uint32{8, 8, 1})
	require.NoError(t, err)

	for _, target := range [][2]int{{1, 1}, {17, 5}, {640, 360}, {1280, 720}, {1366, 768}} {
		infos := Plan(target[0], target[1], 0.5, 2.0)
		maxSpacing := uint32(1) << uint(len(infos))
		ext := layout.Extent(infos[0], 0, infos)
		assert.Zero(t, ext[0]%maxSpacing, "%v", target)
		assert.Zero(t, ext[1]%maxSpacing, "%v", target)
		assert.GreaterOrEqual(t, ext[0], uint32(target[0]*2))
		assert.GreaterOrEqual(t, ext[1], uint32(target[1]*2))
	}
}

func TestVolumetricLayout(t *testing.T) {
	t.Parallel()

	layout, err := NewLayout(VariantVolumetric, [3]uint32{4, 4, 4})
	require.NoError(t, err)
	assert.Equal(t, VariantVolumetric, layout.Variant())

	infos := Plan(960, 540, 0.5, 2.0)

	t.Run("truncates at max extent", func(t *testing.T) {
		kept, diags := layout.Select(infos, Limits{MaxVolumeExtent: 2048})
		require.Len(t, kept, 5)
		require.Len(t, diags, 1)
		assert.Equal(t, 5, diags[0].Layer)
		assert.Equal(t, [3]int{30, 17, 4096}, diags[0].Resolution)
		assert.Equal(t, 2, diags[0].Dropped)
		assert.Contains(t, diags[0].String(), "2048")
	})

	t.Run("zero limit keeps everything", func(t *testing.T) {
		kept, diags := layout.Select(infos, Limits{})
		assert.Len(t, kept, 7)
		assert.Empty(t, diags)
	})

	t.Run("first layer too large", func(t *testing.T) {
		kept, diags := layout.Select(infos, Limits{MaxVolumeExtent: 512})
		assert.Empty(t, kept)
		require.Len(t, diags, 1)
		assert.Equal(t, 0, diags[0].Layer)
	})

	t.Run("extent and groups per layer", func(t *testing.T) {
		ext := layout.Extent(infos[2], 2, infos)
		assert.Equal(t, [3]uint32{240, 135, 64}, ext)
		assert.Equal(t, [3]uint32{60, 34, 16}, layout.DispatchGroupsFor(&RadianceLayer{Extent: ext}))
	})

	t.Run("scale doubles per layer", func(t *testing.T) {
		assert.InDelta(t, 2, layout.Scale(0, 2), 1e-6)
		assert.InDelta(t, 16, layout.Scale(3, 2), 1e-6)
		assert.InDelta(t, 96, layout.Scale(5, 3), 1e-6)
	})
}

func TestGPULayerParams_Marshal(t *testing.T) {
	t.Parallel()

	p := GPULayerParams{
		Extent:             [4]uint32{1920, 1152, 1, 0},
		ProbeSpacing:       4,
		AngularResolution:  16,
		QuarterSampleCount: 2,
		RenderScale:        2,
		Scale:              1,
		RayOffset:          2.5,
		StepSize:           1,
	}
	buf := p.Marshal()
	require.Len(t, buf, 48)
	assert.Equal(t, 48, p.Size())
	assert.Equal(t, []byte{0x80, 0x07, 0, 0}, buf[0:4])
	assert.Equal(t, []byte{4, 0, 0, 0}, buf[16:20])
	assert.Equal(t, []byte{16, 0, 0, 0}, buf[20:24])
	// 2.5f = 0x40200000
	assert.Equal(t, []byte{0, 0, 0x20, 0x40}, buf[36:40])
	assert.Contains(t, GPULayerParamsSource, "struct LayerParams")
}
