// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package offscreen

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/vk"
)

// copyPitchAlignment is the row alignment HAL texture-to-buffer copies
// require.
const copyPitchAlignment = 256

// Capture reads back the most recently presented image. It waits for all
// submitted work first.
func (d *Driver) Capture() (*image.RGBA, error) {
	d.mu.Lock()
	defer d.unlock()
	p := d.last
	if p == nil {
		return nil, ErrNoPresentation
	}
	dev := p.dev
	if err := dev.check(); err != nil {
		return nil, err
	}
	st, ok := lookup[*swapchain](dev, uint64(p.sc), "swapchain")
	if !ok {
		return nil, ErrNoPresentation
	}
	img := dev.objects[uint64(st.images[p.index])].(*deviceImage)
	data, err := dev.readback(img)
	if err != nil {
		return nil, err
	}
	return toRGBA(data, p.extent, p.format)
}

// readback copies img into a staging buffer and returns its rows without
// padding. d.mu must be held.
func (dev *device) readback(img *deviceImage) ([]byte, error) {
	bpp := img.format.BytesPerPixel()
	if bpp != 4 {
		return nil, fmt.Errorf("offscreen: readback of %v: %w", img.format, vk.ErrFormatNotSupported)
	}
	w, h := img.extent.Width, img.extent.Height
	bytesPerRow := w * bpp
	aligned := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(aligned) * uint64(h)

	staging, err := dev.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: "offscreen_capture",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, halError("create staging buffer", vk.ErrOutOfDeviceMemory, err)
	}
	defer dev.hal.DestroyBuffer(staging)

	enc, err := dev.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "offscreen_capture"})
	if err != nil {
		return nil, halError("create command encoder", vk.ErrOutOfHostMemory, err)
	}
	if err := enc.BeginEncoding("offscreen_capture"); err != nil {
		return nil, halError("begin encoding", vk.ErrOutOfHostMemory, err)
	}
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	enc.CopyTextureToBuffer(img.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: aligned, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: img.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: img.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	buf, err := enc.EndEncoding()
	if err != nil {
		return nil, halError("end encoding", vk.ErrOutOfHostMemory, err)
	}
	value, err := dev.submit([]hal.CommandBuffer{buf})
	if err != nil {
		return nil, err
	}
	if err := dev.waitValue(value, forever); err != nil {
		return nil, err
	}

	raw := make([]byte, size)
	if err := dev.q.ReadBuffer(staging, 0, raw); err != nil {
		return nil, halError("read staging buffer", vk.ErrDeviceLost, err)
	}
	if aligned == bytesPerRow {
		return raw, nil
	}
	tight := make([]byte, uint64(bytesPerRow)*uint64(h))
	for row := range h {
		copy(tight[row*bytesPerRow:(row+1)*bytesPerRow], raw[row*aligned:row*aligned+bytesPerRow])
	}
	return tight, nil
}

// toRGBA converts tightly packed 8-bit texels to an image.RGBA.
func toRGBA(data []byte, extent vk.Extent2D, format vk.Format) (*image.RGBA, error) {
	out := image.NewRGBA(image.Rect(0, 0, int(extent.Width), int(extent.Height)))
	if len(data) < len(out.Pix) {
		return nil, fmt.Errorf("offscreen: short readback: %d < %d bytes", len(data), len(out.Pix))
	}
	switch format {
	case vk.FormatR8G8B8A8Unorm, vk.FormatR8G8B8A8Srgb:
		copy(out.Pix, data)
	case vk.FormatB8G8R8A8Unorm, vk.FormatB8G8R8A8Srgb:
		for i := 0; i+3 < len(out.Pix); i += 4 {
			out.Pix[i+0] = data[i+2]
			out.Pix[i+1] = data[i+1]
			out.Pix[i+2] = data[i+0]
			out.Pix[i+3] = data[i+3]
		}
	default:
		return nil, fmt.Errorf("offscreen: convert %v: %w", format, vk.ErrFormatNotSupported)
	}
	return out, nil
}
