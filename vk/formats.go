// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vk

import "github.com/gogpu/gputypes"

// TextureFormat returns the WebGPU-style format used by gogpu for f. Formats
// without an exact counterpart map to a wider one (half floats become full
// floats); ok is false when there is no usable mapping.
func (f Format) TextureFormat() (gputypes.TextureFormat, bool) {
	switch f {
	case FormatR8G8B8A8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	case FormatR8G8B8A8Srgb:
		return gputypes.TextureFormatRGBA8UnormSrgb, true
	case FormatB8G8R8A8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, true
	case FormatB8G8R8A8Srgb:
		return gputypes.TextureFormatBGRA8UnormSrgb, true
	case FormatR16G16B16A16Sfloat, FormatR32G32B32A32Sfloat:
		return gputypes.TextureFormatRGBA32Float, true
	case FormatD24UnormS8Uint:
		return gputypes.TextureFormatDepth24PlusStencil8, true
	}
	return gputypes.TextureFormatUndefined, false
}

// BytesPerPixel returns the texel size of the format as stored by
// TextureFormat, or 0 for unknown formats.
func (f Format) BytesPerPixel() uint32 {
	switch f {
	case FormatR8G8B8A8Unorm, FormatR8G8B8A8Srgb, FormatB8G8R8A8Unorm, FormatB8G8R8A8Srgb,
		FormatD24UnormS8Uint, FormatD32Sfloat:
		return 4
	case FormatR16G16B16A16Sfloat, FormatR32G32B32A32Sfloat:
		return 16
	}
	return 0
}
