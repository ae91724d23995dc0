package shader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCreationSource = `//@oxy:include layer_params

@group(0) @binding(0) var<storage, read_write> radianceMap: array<vec4<f32>>;
//@oxy:group 0 1 storage_uniform params layer_params
@group(0) @binding(2) var litScene: texture_storage_2d<rgba16float, write>;
@group(0) @binding(3) var emitterScene: texture_2d<f32>;

// @compute on a comment line must not be taken as the entry point
@compute @workgroup_size(8, 8, 1)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
	let p = params.probeSpacing;
}
`

const testCompositeSource = `@group(0) @binding(0) var litScene: texture_2d<f32>;
@group(0) @binding(1) var litSampler: sampler;

struct VertexOutput {
	@builtin(position) position: vec4<f32>,
	uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> VertexOutput {
	var out: VertexOutput;
	return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
	return textureSample(litScene, litSampler, in.uv);
}
`

func TestNewShader_Compute(t *testing.T) {
	t.Parallel()

	s, err := NewShader("creation", ShaderTypeCompute, testCreationSource)
	require.NoError(t, err)

	assert.Equal(t, "creation", s.Key())
	assert.Equal(t, "main", s.EntryPoint())
	assert.Equal(t, [3]uint32{8, 8, 1}, s.WorkgroupSize())
	assert.Equal(t, ShaderTypeCompute, s.ShaderType())
	assert.Contains(t, s.Source(), "struct LayerParams")
	assert.Contains(t, s.Source(), "@group(0) @binding(1) var<uniform> params: LayerParams;")
	assert.NotContains(t, s.Source(), "@oxy:")
	assert.Equal(t, s.Source(), s.Module().WGSLDescriptor.Code)

	binding, ok := s.BindGroupFromVarName(0, "params")
	require.True(t, ok)
	assert.Equal(t, 1, binding)
	assert.Equal(t, "litScene", s.BindGroupVarName(0, 2))

	_, ok = s.BindGroupFromVarName(0, "missing")
	assert.False(t, ok)
	_, ok = s.BindGroupFromVarName(1, "params")
	assert.False(t, ok)

	entries := s.BindGroupLayoutDescriptor(0).Entries
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.Equal(t, uint32(i), e.Binding)
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
	}

	assert.Equal(t, wgpu.BufferBindingTypeStorage, entries[0].Buffer.Type)
	assert.Equal(t, uint64(16), entries[0].Buffer.MinBindingSize)

	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[1].Buffer.Type)
	assert.Equal(t, uint64(48), entries[1].Buffer.MinBindingSize)

	assert.Equal(t, wgpu.TextureFormatRGBA16Float, entries[2].StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, entries[2].StorageTexture.Access)
	assert.Equal(t, wgpu.TextureViewDimension2D, entries[2].StorageTexture.ViewDimension)

	assert.Equal(t, wgpu.TextureSampleTypeFloat, entries[3].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, entries[3].Texture.ViewDimension)

	decls := s.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, 0, *decls[0].Group)
	assert.Equal(t, 1, *decls[0].Binding)
	assert.Equal(t, AnnotationArg("params"), decls[0].Args[1])
	assert.Equal(t, AnnotationArgLayerParams, decls[0].Args[2])
}

func TestNewShader_RenderStages(t *testing.T) {
	t.Parallel()

	vs, err := NewShader("composite", ShaderTypeVertex, testCompositeSource)
	require.NoError(t, err)
	fs, err := NewShader("composite", ShaderTypeFragment, testCompositeSource)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, "fs_main", fs.EntryPoint())
	assert.Equal(t, [3]uint32{}, vs.WorkgroupSize())

	entries := fs.BindGroupLayoutDescriptor(0).Entries
	require.Len(t, entries, 2)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[0].Visibility)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[1].Sampler.Type)
	assert.Equal(t, wgpu.ShaderStageVertex, vs.BindGroupLayoutDescriptor(0).Entries[0].Visibility)
}

func TestNewShader_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		typ     ShaderType
		source  string
		wantErr string
	}{
		{"no entry point", ShaderTypeCompute, "fn main() {}", "no @compute entry point"},
		{"wrong stage", ShaderTypeCompute, testCompositeSource, "no @compute entry point"},
		{"bad annotation", ShaderTypeCompute, "//@oxy:include camera\n@compute @workgroup_size(1) fn main() {}", "unknown struct type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewShader("k", tt.typ, tt.source)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, strings.HasPrefix(err.Error(), "shader k: "))
		})
	}
}

func TestNewShaderFromPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "creation.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(testCreationSource), 0o600))

	s, err := NewShaderFromPath("creation", ShaderTypeCompute, path)
	require.NoError(t, err)
	assert.Equal(t, "main", s.EntryPoint())

	_, err = NewShaderFromPath("creation", ShaderTypeCompute, filepath.Join(t.TempDir(), "missing.wgsl"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestShaderType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "compute", ShaderTypeCompute.String())
	assert.Equal(t, "vertex", ShaderTypeVertex.String())
	assert.Equal(t, "fragment", ShaderTypeFragment.String())
	assert.Equal(t, "unknown", ShaderType(42).String())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	s, err := NewShader("fill", ShaderTypeCompute, `@group(0) @binding(0) var<storage, read_write> data: array<f32, 64>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
	data[id.x] = f32(id.x);
}
`)
	require.NoError(t, err)

	spirv, err := Validate(s)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
			t.Skipf("Skipping: compiler feature not yet implemented: %v", err)
		}
		t.Fatalf("failed to compile: %v", err)
	}
	assert.GreaterOrEqual(t, len(spirv), 20)
}

func TestValidate_InvalidSource(t *testing.T) {
	t.Parallel()

	s, err := NewShader("broken", ShaderTypeCompute, "@compute @workgroup_size(1)\nfn main() { let x: u32 = ; }")
	require.NoError(t, err)

	_, err = Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shader broken")
}
