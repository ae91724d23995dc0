package cascade

var _ Layout = &packedLayout{}

// packedLayout stores every layer in a 2D buffer of the same padded footprint. A probe of
// layer i owns a sqrt(angular) x sqrt(angular) block of direction texels, which equals its
// probe spacing, so each layer covers the same area.
type packedLayout struct {
	groupSize [3]uint32

	groupsCached bool
	groups       [3]uint32
	groupsFor    [3]uint32
}

func (p *packedLayout) Variant() Variant {
	return VariantPacked
}

func (p *packedLayout) Select(infos []LayerInfo, _ Limits) ([]LayerInfo, []Diagnostic) {
	return infos, nil
}

// Extent is the padded footprint ceil(litRes*2 / maxSpacing) * maxSpacing with
// maxSpacing = 2^layerCount, identical for every layer.
func (p *packedLayout) Extent(_ LayerInfo, _ int, infos []LayerInfo) [3]uint32 {
	if len(infos) == 0 {
		return [3]uint32{}
	}
	maxSpacing := uint32(1) << uint(len(infos))
	pad := func(v int) uint32 {
		n := uint32(v) * 2
		return (n + maxSpacing - 1) / maxSpacing * maxSpacing
	}
	return [3]uint32{pad(infos[0].Resolution[0]), pad(infos[0].Resolution[1]), 1}
}

func (p *packedLayout) Scale(_ int, reduction int) float32 {
	return float32(reduction) / 2
}

// DispatchGroupsFor computes the footprint group count once and shares it with every layer.
func (p *packedLayout) DispatchGroupsFor(layer *RadianceLayer) [3]uint32 {
	if !p.groupsCached || p.groupsFor != layer.Extent {
		p.groups = DispatchGroups(layer.Extent, p.groupSize)
		p.groupsFor = layer.Extent
		p.groupsCached = true
	}
	return p.groups
}
