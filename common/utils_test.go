package common

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, Coalesce(0, 0, 3, 4))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, "", Coalesce[string]())
	assert.Equal(t, float32(32), Coalesce(float32(0), 32))

	var s SamplerStagingData
	assert.Equal(t, wgpu.FilterModeLinear, Coalesce(s.MagFilter, wgpu.FilterModeLinear))
	assert.Equal(t, wgpu.AddressModeClampToEdge, Coalesce(s.AddressModeU, wgpu.AddressModeClampToEdge))
}
