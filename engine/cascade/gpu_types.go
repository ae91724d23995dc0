package cascade

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULayerParamsSource is the canonical WGSL definition of the LayerParams struct.
// Matches GPULayerParams layout exactly (48 bytes).
//
//go:embed assets/layer_params.wgsl
var GPULayerParamsSource string

// GPULayerParams is the uniform block every cascade kernel reads for a layer.
// Matches the WGSL LayerParams struct layout exactly (see GPULayerParamsSource).
// Size: 48 bytes.
type GPULayerParams struct {
	Extent             [4]uint32 // offset  0: buffer extent x, y, z (w unused)
	ProbeSpacing       uint32    // offset 16: probe spacing in footprint texels (packed)
	AngularResolution  uint32    // offset 20: directions per probe
	QuarterSampleCount uint32    // offset 24: ray-march steps / 4
	RenderScale        float32   // offset 28: source texels per lit-scene texel
	Scale              float32   // offset 32: source texels per layer cell
	RayOffset          float32   // offset 36: distance where this layer's rays begin
	StepSize           float32   // offset 40: distance per ray-march step
	_pad               uint32    // offset 44
}

// Size returns the size of the GPULayerParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPULayerParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULayerParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPULayerParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], g.Extent[i])
	}
	binary.LittleEndian.PutUint32(buf[16:], g.ProbeSpacing)
	binary.LittleEndian.PutUint32(buf[20:], g.AngularResolution)
	binary.LittleEndian.PutUint32(buf[24:], g.QuarterSampleCount)
	binary.LittleEndian.PutUint32(buf[28:], math.Float32bits(g.RenderScale))
	binary.LittleEndian.PutUint32(buf[32:], math.Float32bits(g.Scale))
	binary.LittleEndian.PutUint32(buf[36:], math.Float32bits(g.RayOffset))
	binary.LittleEndian.PutUint32(buf[40:], math.Float32bits(g.StepSize))
	binary.LittleEndian.PutUint32(buf[44:], 0) // _pad
	return buf
}
