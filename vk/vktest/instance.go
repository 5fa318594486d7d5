// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vktest

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/rendercore/vk"
)

// Window is a vk.Window whose drawable area tests control.
type Window struct {
	mu   sync.Mutex
	size vk.Extent2D
}

// NewWindow returns a window with the given drawable area.
func NewWindow(width, height uint32) *Window {
	return &Window{size: vk.Extent2D{Width: width, Height: height}}
}

// SetSize changes the drawable area. Zero is allowed.
func (w *Window) SetSize(width, height uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.size = vk.Extent2D{Width: width, Height: height}
}

// DrawableSize implements vk.Window.
func (w *Window) DrawableSize() vk.Extent2D {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

type instance struct {
	d  *Driver
	id uint64
}

func (in *instance) CreateDebugMessenger(desc *vk.DebugMessengerDescriptor) (vk.DebugMessenger, error) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateDebugMessenger"); err != nil {
		return 0, err
	}
	m := vk.DebugMessenger(d.create(KindDebugMessenger, in.id, ""))
	d.messengers[m] = *desc
	return m, nil
}

func (in *instance) DestroyDebugMessenger(m vk.DebugMessenger) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(KindDebugMessenger, uint64(m)) {
		delete(d.messengers, m)
	}
}

func (in *instance) CreateSurface(w vk.Window) (vk.Surface, error) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateSurface"); err != nil {
		return 0, err
	}
	s := vk.Surface(d.create(KindSurface, in.id, ""))
	d.surfaces[s] = w
	return s, nil
}

func (in *instance) DestroySurface(s vk.Surface) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	for sc, st := range d.swapchains {
		if st.surface == s {
			d.violate("destroy of surface#%d while swapchain#%d is alive", s, sc)
		}
	}
	if d.destroy(KindSurface, uint64(s)) {
		delete(d.surfaces, s)
	}
}

func (in *instance) PhysicalDevices() ([]vk.PhysicalDevice, error) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("PhysicalDevices"); err != nil {
		return nil, err
	}
	out := make([]vk.PhysicalDevice, len(d.Devices))
	for i := range d.Devices {
		out[i] = vk.PhysicalDevice(i + 1)
	}
	return out, nil
}

func (in *instance) spec(pd vk.PhysicalDevice) *PhysicalDeviceSpec {
	i := int(pd) - 1
	if i < 0 || i >= len(in.d.Devices) {
		in.d.violate("unknown physical device %d", pd)
		return &PhysicalDeviceSpec{}
	}
	return &in.d.Devices[i]
}

func (in *instance) PhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	in.d.mu.Lock()
	defer in.d.mu.Unlock()
	s := in.spec(pd)
	return vk.PhysicalDeviceProperties{Name: s.Name, Type: s.Type}
}

func (in *instance) QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	in.d.mu.Lock()
	defer in.d.mu.Unlock()
	return slices.Clone(in.spec(pd).QueueFamilies)
}

func (in *instance) SurfaceSupport(pd vk.PhysicalDevice, family uint32, s vk.Surface) (bool, error) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("SurfaceSupport"); err != nil {
		return false, err
	}
	if !d.alive(KindSurface, uint64(s)) {
		d.violate("surface support query on dead surface#%d", s)
	}
	return slices.Contains(in.spec(pd).PresentFamilies, family), nil
}

func (in *instance) SurfaceCapabilities(pd vk.PhysicalDevice, s vk.Surface) (vk.SurfaceCapabilities, error) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("SurfaceCapabilities"); err != nil {
		return vk.SurfaceCapabilities{}, err
	}
	w, ok := d.surfaces[s]
	if !ok {
		d.violate("capabilities query on dead surface#%d", s)
		return vk.SurfaceCapabilities{}, vk.ErrSurfaceLost
	}
	spec := in.spec(pd)
	current := w.DrawableSize()
	if spec.ExtentFollowsSwapchain {
		current = vk.Extent2D{Width: vk.ExtentMatchWindow, Height: vk.ExtentMatchWindow}
	}
	return vk.SurfaceCapabilities{
		MinImageCount:  spec.MinImageCount,
		MaxImageCount:  spec.MaxImageCount,
		CurrentExtent:  current,
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 16384, Height: 16384},
	}, nil
}

func (in *instance) SurfaceFormats(pd vk.PhysicalDevice, s vk.Surface) ([]vk.SurfaceFormat, error) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("SurfaceFormats"); err != nil {
		return nil, err
	}
	return slices.Clone(in.spec(pd).Formats), nil
}

func (in *instance) SurfacePresentModes(pd vk.PhysicalDevice, s vk.Surface) ([]vk.PresentMode, error) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("SurfacePresentModes"); err != nil {
		return nil, err
	}
	return slices.Clone(in.spec(pd).PresentModes), nil
}

func (in *instance) MemoryProperties(pd vk.PhysicalDevice) vk.MemoryProperties {
	in.d.mu.Lock()
	defer in.d.mu.Unlock()
	m := in.spec(pd).Memory
	return vk.MemoryProperties{Types: slices.Clone(m.Types), Heaps: slices.Clone(m.Heaps)}
}

func (in *instance) CreateDevice(desc *vk.DeviceDescriptor) (vk.Device, error) {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateDevice"); err != nil {
		return nil, err
	}
	spec := in.spec(desc.PhysicalDevice)
	seen := map[uint32]bool{}
	for _, f := range desc.QueueFamilies {
		if int(f) >= len(spec.QueueFamilies) {
			return nil, fmt.Errorf("vktest: queue family %d out of range: %w", f, vk.ErrInitializationFailed)
		}
		if seen[f] {
			d.violate("queue family %d requested twice", f)
		}
		seen[f] = true
	}
	id := d.create(KindDevice, in.id, spec.Name)
	dev := &device{d: d, id: id, spec: spec, queues: make(map[uint32]vk.Queue)}
	for f := range seen {
		dev.queues[f] = vk.Queue(id<<8 | uint64(f))
	}
	d.devices[id] = dev
	return dev, nil
}

func (in *instance) Destroy() {
	d := in.d
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroy(KindInstance, in.id)
}
