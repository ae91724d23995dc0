package cascade

var _ Layout = &volumetricLayout{}

// volumetricLayout stores each layer as a (width, height, depth) grid where depth indexes
// directions. Depth grows by four per layer, so deep cascades hit the device's 3D limit.
type volumetricLayout struct {
	groupSize [3]uint32
}

func (v *volumetricLayout) Variant() Variant {
	return VariantVolumetric
}

// Select keeps layers up to, not including, the first one whose resolution exceeds
// limits.MaxVolumeExtent on any axis. A zero limit keeps every layer.
func (v *volumetricLayout) Select(infos []LayerInfo, limits Limits) ([]LayerInfo, []Diagnostic) {
	if limits.MaxVolumeExtent == 0 {
		return infos, nil
	}
	for i, info := range infos {
		for _, r := range info.Resolution {
			if r > int(limits.MaxVolumeExtent) {
				return infos[:i], []Diagnostic{{
					Layer:      i,
					Resolution: info.Resolution,
					Limit:      limits.MaxVolumeExtent,
					Dropped:    len(infos) - i,
				}}
			}
		}
	}
	return infos, nil
}

func (v *volumetricLayout) Extent(info LayerInfo, _ int, _ []LayerInfo) [3]uint32 {
	return [3]uint32{uint32(info.Resolution[0]), uint32(info.Resolution[1]), uint32(info.Resolution[2])}
}

func (v *volumetricLayout) Scale(index int, reduction int) float32 {
	return float32(reduction) * float32(uint64(1)<<uint(index))
}

func (v *volumetricLayout) DispatchGroupsFor(layer *RadianceLayer) [3]uint32 {
	return DispatchGroups(layer.Extent, v.groupSize)
}
