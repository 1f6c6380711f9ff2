// Package texture defines the sampling interface compiled shaders call into
// and provides a CPU reference implementation of it.
//
// The shader engine never filters texels itself. Texture instructions build
// a Request (coordinates, level of detail or gradients, texel offsets) and
// hand it to the Sampler bound to the referenced sampler slot. The result is
// one RGBA value per lane.
//
// # Reference Sampler
//
// Unit pairs a Texture (a mip chain of 8-bit RGBA levels) with a
// gputypes.SamplerDescriptor and implements Sampler with nearest and
// bilinear filtering, nearest and linear mip selection, the three WebGPU
// address modes and optional depth comparison.
//
//	tex, err := texture.FromBytes(gputypes.TextureFormatRGBA8Unorm, 64, 64, pixels, true)
//	if err != nil {
//	    return err
//	}
//	unit := texture.NewUnit(tex, gputypes.LinearSamplerDescriptor())
//	batch.Samplers[0] = unit
package texture
