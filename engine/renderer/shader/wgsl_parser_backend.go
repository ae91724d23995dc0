package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslTypeLayout is the host-shareable size and alignment of a WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayouts = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},
	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},
	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	"mat2x2<f32>": {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},

	"atomic<u32>": {4, 4},
	"atomic<i32>": {4, 4},
}

var (
	sampledTextureDims = map[string]wgpu.TextureViewDimension{
		"texture_1d":         wgpu.TextureViewDimension1D,
		"texture_2d":         wgpu.TextureViewDimension2D,
		"texture_2d_array":   wgpu.TextureViewDimension2DArray,
		"texture_3d":         wgpu.TextureViewDimension3D,
		"texture_cube":       wgpu.TextureViewDimensionCube,
		"texture_depth_2d":   wgpu.TextureViewDimension2D,
		"texture_depth_cube": wgpu.TextureViewDimensionCube,
	}

	storageTextureDims = map[string]wgpu.TextureViewDimension{
		"texture_storage_1d":       wgpu.TextureViewDimension1D,
		"texture_storage_2d":       wgpu.TextureViewDimension2D,
		"texture_storage_2d_array": wgpu.TextureViewDimension2DArray,
		"texture_storage_3d":       wgpu.TextureViewDimension3D,
	}

	sampleTypes = map[string]wgpu.TextureSampleType{
		"f32": wgpu.TextureSampleTypeFloat,
		"i32": wgpu.TextureSampleTypeSint,
		"u32": wgpu.TextureSampleTypeUint,
	}

	texelFormats = map[string]wgpu.TextureFormat{
		"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
		"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
		"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
		"rgba16float": wgpu.TextureFormatRGBA16Float,
		"rgba32float": wgpu.TextureFormatRGBA32Float,
		"r32float":    wgpu.TextureFormatR32Float,
		"r32uint":     wgpu.TextureFormatR32Uint,
	}

	storageAccess = map[string]wgpu.StorageTextureAccess{
		"write":      wgpu.StorageTextureAccessWriteOnly,
		"read":       wgpu.StorageTextureAccessReadOnly,
		"read_write": wgpu.StorageTextureAccessReadWrite,
	}
)

// roundUpAlign rounds value up to a power-of-two alignment.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves a primitive, a known struct, or an array of either.
// A runtime-sized array resolves to one element stride, the smallest useful binding.
func resolveTypeLayout(typeName string, known map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if l, ok := wgslPrimitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return wgslTypeLayout{}, false
	}

	parts := strings.SplitN(typeName[len("array<"):len(typeName)-1], ",", 2)
	elem, ok := resolveTypeLayout(strings.TrimSpace(parts[0]), known)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elem.align, elem.size)
	if len(parts) == 1 {
		return wgslTypeLayout{stride, elem.align}, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{count * stride, elem.align}, true
}

// computeStructLayout lays fields out at their aligned offsets and rounds the total up to
// the widest alignment. Builtin fields are skipped.
func computeStructLayout(ps parsedStruct, known map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(fl.align, offset) + fl.size
		maxAlign = max(maxAlign, fl.align)
	}
	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// computeStructSizes resolves every struct, repeating until no further struct resolves so that
// structs nested in other structs are handled regardless of declaration order.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)
	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if l, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

// classifyResource builds the layout entry for one declaration from its address space
// (buffers) or its type (samplers and textures).
//
// Parameters:
//   - binding: the @binding index
//   - visibility: the stage visibility flag
//   - addressSpace: the var<...> qualifier, empty for handle types
//   - typeName: the declared WGSL type
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the populated layout entry
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage"):
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		} else {
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
	case addressSpace != "":
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_storage_"):
		base, params := splitTypeParams(typeName)
		entry.StorageTexture.ViewDimension = storageTextureDims[base]
		parts := strings.SplitN(params, ",", 2)
		entry.StorageTexture.Format = texelFormats[strings.TrimSpace(parts[0])]
		if len(parts) == 2 {
			entry.StorageTexture.Access = storageAccess[strings.TrimSpace(parts[1])]
		}
	case strings.HasPrefix(typeName, "texture_depth_"):
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = sampledTextureDims[typeName]
	case strings.HasPrefix(typeName, "texture_"):
		base, param := splitTypeParams(typeName)
		entry.Texture.ViewDimension = sampledTextureDims[base]
		entry.Texture.SampleType = sampleTypes[param]
	}
	return entry
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
func splitTypeParams(typeName string) (base, params string) {
	open := strings.IndexByte(typeName, '<')
	if open < 0 || !strings.HasSuffix(typeName, ">") {
		return typeName, ""
	}
	return typeName[:open], typeName[open+1 : len(typeName)-1]
}
