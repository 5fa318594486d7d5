// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package offscreen

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// maxExtent bounds swapchain and image sizes.
const maxExtent = 16384

type surface struct {
	w vk.Window
}

type instance struct {
	d          *Driver
	id         uint64
	hal        hal.Instance
	adapters   []hal.ExposedAdapter
	validation bool

	surfaces map[vk.Surface]*surface
	devices  []*device
}

func (in *instance) CreateDebugMessenger(desc *vk.DebugMessengerDescriptor) (vk.DebugMessenger, error) {
	d := in.d
	d.mu.Lock()
	defer d.unlock()
	d.next++
	m := vk.DebugMessenger(d.next)
	d.messengers[m] = *desc
	return m, nil
}

func (in *instance) DestroyDebugMessenger(m vk.DebugMessenger) {
	d := in.d
	d.mu.Lock()
	defer d.unlock()
	if _, ok := d.messengers[m]; !ok {
		d.violate(in, "destroy of unknown debug messenger %d", m)
		return
	}
	delete(d.messengers, m)
}

func (in *instance) CreateSurface(w vk.Window) (vk.Surface, error) {
	d := in.d
	d.mu.Lock()
	defer d.unlock()
	d.next++
	s := vk.Surface(d.next)
	in.surfaces[s] = &surface{w: w}
	return s, nil
}

func (in *instance) DestroySurface(s vk.Surface) {
	d := in.d
	d.mu.Lock()
	defer d.unlock()
	for _, dev := range in.devices {
		for h, o := range dev.objects {
			if sc, ok := o.(*swapchain); ok && sc.surface == s {
				d.violate(in, "destroy of surface %d while swapchain %d is alive", s, h)
			}
		}
	}
	delete(in.surfaces, s)
}

func (in *instance) PhysicalDevices() ([]vk.PhysicalDevice, error) {
	out := make([]vk.PhysicalDevice, len(in.adapters))
	for i := range in.adapters {
		out[i] = vk.PhysicalDevice(i + 1)
	}
	return out, nil
}

func (in *instance) adapter(pd vk.PhysicalDevice) (*hal.ExposedAdapter, error) {
	i := int(pd) - 1
	if i < 0 || i >= len(in.adapters) {
		return nil, fmt.Errorf("offscreen: physical device %d: %w", pd, vk.ErrInitializationFailed)
	}
	return &in.adapters[i], nil
}

func (in *instance) PhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	a, err := in.adapter(pd)
	if err != nil {
		return vk.PhysicalDeviceProperties{}
	}
	return vk.PhysicalDeviceProperties{Name: a.Info.Name, Type: a.Info.DeviceType}
}

// QueueFamilies reports a single family that does everything. HAL devices
// expose one queue.
func (in *instance) QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	return []vk.QueueFamilyProperties{{Flags: vk.QueueGraphics | vk.QueueCompute | vk.QueueTransfer, Count: 1}}
}

func (in *instance) SurfaceSupport(pd vk.PhysicalDevice, family uint32, s vk.Surface) (bool, error) {
	d := in.d
	d.mu.Lock()
	defer d.unlock()
	if _, ok := in.surfaces[s]; !ok {
		return false, vk.ErrSurfaceLost
	}
	return family == 0, nil
}

func (in *instance) SurfaceCapabilities(pd vk.PhysicalDevice, s vk.Surface) (vk.SurfaceCapabilities, error) {
	d := in.d
	d.mu.Lock()
	defer d.unlock()
	surf, ok := in.surfaces[s]
	if !ok {
		return vk.SurfaceCapabilities{}, vk.ErrSurfaceLost
	}
	return vk.SurfaceCapabilities{
		MinImageCount:  2,
		MaxImageCount:  max(d.imageCount, 2),
		CurrentExtent:  surf.w.DrawableSize(),
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: maxExtent, Height: maxExtent},
	}, nil
}

func (in *instance) SurfaceFormats(pd vk.PhysicalDevice, s vk.Surface) ([]vk.SurfaceFormat, error) {
	d := in.d
	d.mu.Lock()
	defer d.unlock()
	out := make([]vk.SurfaceFormat, 0, len(d.formats))
	for _, f := range d.formats {
		if _, ok := f.TextureFormat(); ok && !f.IsDepth() {
			out = append(out, vk.SurfaceFormat{Format: f, ColorSpace: vk.ColorSpaceSrgbNonlinear})
		}
	}
	return out, nil
}

func (in *instance) SurfacePresentModes(pd vk.PhysicalDevice, s vk.Surface) ([]vk.PresentMode, error) {
	return []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, nil
}

// MemoryProperties reports device-local and host-visible memory. The HAL
// allocates texture memory itself, so allocations are bookkeeping only.
func (in *instance) MemoryProperties(pd vk.PhysicalDevice) vk.MemoryProperties {
	return vk.MemoryProperties{
		Types: []vk.MemoryType{
			{Flags: vk.MemoryDeviceLocal, HeapIndex: 0},
			{Flags: vk.MemoryHostVisible | vk.MemoryHostCoherent, HeapIndex: 1},
		},
		Heaps: []vk.MemoryHeap{
			{Size: 4 << 30, DeviceLocal: true},
			{Size: 4 << 30},
		},
	}
}

func (in *instance) CreateDevice(desc *vk.DeviceDescriptor) (vk.Device, error) {
	a, err := in.adapter(desc.PhysicalDevice)
	if err != nil {
		return nil, err
	}
	for _, f := range desc.QueueFamilies {
		if f != 0 {
			return nil, fmt.Errorf("offscreen: queue family %d: %w", f, vk.ErrInitializationFailed)
		}
	}
	for _, ext := range desc.Extensions {
		if ext != vk.ExtSwapchain {
			return nil, fmt.Errorf("offscreen: device extension %q: %w", ext, vk.ErrExtensionNotPresent)
		}
	}
	open, err := a.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("offscreen: open %s: %w: %w", a.Info.Name, vk.ErrInitializationFailed, err)
	}
	timeline, err := open.Device.CreateFence()
	if err != nil {
		open.Device.Destroy()
		return nil, fmt.Errorf("offscreen: create timeline fence: %w: %w", vk.ErrInitializationFailed, err)
	}

	d := in.d
	d.mu.Lock()
	defer d.unlock()
	d.next++
	dev := newDevice(in, d.next, open.Device, open.Queue, timeline)
	in.devices = append(in.devices, dev)
	d.stats.Devices++
	logging.L().Info("offscreen: device opened", "adapter", a.Info.Name, "type", a.Info.DeviceType)
	return dev, nil
}

func (in *instance) Destroy() {
	d := in.d
	d.mu.Lock()
	defer d.unlock()
	if len(in.devices) > 0 {
		d.violate(in, "destroy of instance with %d live devices", len(in.devices))
	}
	if len(in.surfaces) > 0 {
		d.violate(in, "destroy of instance with %d live surfaces", len(in.surfaces))
	}
	in.hal.Destroy()
	delete(d.instances, in.id)
	d.stats.Instances--
}
