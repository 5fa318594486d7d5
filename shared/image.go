// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/guard"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// DeviceImage is an image with its own memory and one view.
type DeviceImage struct {
	Format     vk.Format
	Image      vk.Image
	Memory     vk.DeviceMemory
	Resolution gputypes.Extent3D
	View       vk.ImageView
}

// Resolution2D returns the width and height. It panics for volumes and
// arrays, which rendercore never creates.
func (img DeviceImage) Resolution2D() vk.Extent2D {
	if img.Resolution.DepthOrArrayLayers != 1 {
		panic(fmt.Sprintf("shared: Resolution2D of image with depth %d", img.Resolution.DepthOrArrayLayers))
	}
	return vk.Extent2D{Width: img.Resolution.Width, Height: img.Resolution.Height}
}

// Destroy destroys the view, then the memory, then the image.
func (img DeviceImage) Destroy(device vk.Device) {
	device.DestroyImageView(img.View)
	device.FreeMemory(img.Memory)
	device.DestroyImage(img.Image)
}

// DeviceImageDescriptor describes a DeviceImage.
type DeviceImageDescriptor struct {
	Label      string
	Format     vk.Format
	Resolution gputypes.Extent3D
	Usage      vk.ImageUsage
	// Aspect is covered by the view.
	Aspect vk.ImageAspectFlags
}

// NewDeviceImage creates an image, allocates and binds memory chosen by
// selectMemory, and creates a view. Steps that completed before a failure are
// undone newest first. The returned guard destroys the image on Release.
func NewDeviceImage(device vk.Device, desc *DeviceImageDescriptor, selectMemory MemorySelector) (*guard.Guard[DeviceImage], error) {
	h, err := device.CreateImage(&vk.ImageDescriptor{
		Label:       desc.Label,
		Format:      desc.Format,
		Size:        desc.Resolution,
		Dimension:   gputypes.TextureDimension2D,
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     1,
		Usage:       desc.Usage,
	})
	if err != nil {
		return nil, stepError("create image "+desc.Label, err)
	}
	image := guard.With(device, h, vk.Device.DestroyImage)
	defer image.Release()

	reqs := device.ImageMemoryRequirements(h)
	memoryType, err := selectMemory(reqs)
	if err != nil {
		return nil, err
	}

	m, err := device.AllocateMemory(reqs.Size, memoryType)
	if err != nil {
		return nil, stepError("allocate memory for "+desc.Label, err)
	}
	memory := guard.With(device, m, vk.Device.FreeMemory)
	defer memory.Release()

	if err := device.BindImageMemory(h, m, 0); err != nil {
		return nil, stepError("bind memory for "+desc.Label, err)
	}

	v, err := device.CreateImageView(&vk.ImageViewDescriptor{
		Label:      desc.Label,
		Image:      h,
		Format:     desc.Format,
		Dimension:  gputypes.TextureViewDimension2D,
		Aspect:     desc.Aspect,
		MipCount:   1,
		LayerCount: 1,
	})
	if err != nil {
		return nil, stepError("create view for "+desc.Label, err)
	}

	logging.L().Debug("device image created",
		"label", desc.Label, "format", desc.Format, "memory_type", memoryType,
		"width", desc.Resolution.Width, "height", desc.Resolution.Height)

	img := DeviceImage{
		Format:     desc.Format,
		Image:      image.Take(),
		Memory:     memory.Take(),
		Resolution: desc.Resolution,
		View:       v,
	}
	return guard.New(img, func(img DeviceImage) { img.Destroy(device) }), nil
}
