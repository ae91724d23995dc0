// Package common holds plain data types shared by the renderer packages.
package common

import "github.com/cogentcore/webgpu/wgpu"

// SamplerStagingData configures a sampler created for a bind group. Zero fields fall back to
// clamp-to-edge addressing, linear filtering and nearest mipmap selection.
type SamplerStagingData struct {
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32
	MaxAnisotropy                            uint16
}
