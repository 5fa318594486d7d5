// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"fmt"
	"unsafe"

	vkgo "github.com/vulkan-go/vulkan"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// surfaceHost is implemented by windows that can create a native surface.
type surfaceHost interface {
	createSurface(in vkgo.Instance) (vkgo.Surface, error)
}

type instance struct {
	native   vkgo.Instance
	physical []vkgo.PhysicalDevice
	layers   []string

	// objects holds surfaces and debug callbacks.
	objects handles
}

func (in *instance) pd(h vk.PhysicalDevice) vkgo.PhysicalDevice {
	return in.physical[h-1]
}

func (in *instance) surface(s vk.Surface) (vkgo.Surface, error) {
	native, ok := get[vkgo.Surface](&in.objects, uint64(s))
	if !ok {
		return vkgo.NullSurface, fmt.Errorf("vulkan: unknown surface %d: %w", s, vk.ErrSurfaceLost)
	}
	return native, nil
}

func (in *instance) CreateDebugMessenger(desc *vk.DebugMessengerDescriptor) (vk.DebugMessenger, error) {
	cb := desc.Callback
	info := vkgo.DebugReportCallbackCreateInfo{
		SType: vkgo.StructureTypeDebugReportCallbackCreateInfo,
		Flags: reportFlags(desc.Severities),
		PfnCallback: func(flags vkgo.DebugReportFlags, _ vkgo.DebugReportObjectType, _ uint64, _ uint, code int32, prefix, msg string, _ unsafe.Pointer) vkgo.Bool32 {
			typ := prefix
			if flags&vkgo.DebugReportFlags(vkgo.DebugReportPerformanceWarningBit) != 0 {
				typ = "performance"
			}
			cb(vk.DebugMessage{Severity: severity(flags), Type: typ, ID: code, Message: msg})
			return vkgo.False
		},
	}
	var native vkgo.DebugReportCallback
	if err := result("create debug report callback", vkgo.CreateDebugReportCallback(in.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.DebugMessenger(in.objects.add(native)), nil
}

func (in *instance) DestroyDebugMessenger(m vk.DebugMessenger) {
	if native, ok := in.objects.remove(uint64(m)).(vkgo.DebugReportCallback); ok {
		vkgo.DestroyDebugReportCallback(in.native, native, nil)
	}
}

func (in *instance) CreateSurface(w vk.Window) (vk.Surface, error) {
	host, ok := w.(surfaceHost)
	if !ok {
		return 0, fmt.Errorf("vulkan: %T cannot host a surface: %w", w, vk.ErrInitializationFailed)
	}
	native, err := host.createSurface(in.native)
	if err != nil {
		return 0, err
	}
	return vk.Surface(in.objects.add(native)), nil
}

func (in *instance) DestroySurface(s vk.Surface) {
	if native, ok := in.objects.remove(uint64(s)).(vkgo.Surface); ok {
		vkgo.DestroySurface(in.native, native, nil)
	}
}

func (in *instance) PhysicalDevices() ([]vk.PhysicalDevice, error) {
	out := make([]vk.PhysicalDevice, len(in.physical))
	for i := range in.physical {
		out[i] = vk.PhysicalDevice(i + 1)
	}
	return out, nil
}

func (in *instance) PhysicalDeviceProperties(pd vk.PhysicalDevice) vk.PhysicalDeviceProperties {
	var props vkgo.PhysicalDeviceProperties
	vkgo.GetPhysicalDeviceProperties(in.pd(pd), &props)
	props.Deref()
	return vk.PhysicalDeviceProperties{
		Name: vkgo.ToString(props.DeviceName[:]),
		Type: deviceType(props.DeviceType),
	}
}

func (in *instance) QueueFamilies(pd vk.PhysicalDevice) []vk.QueueFamilyProperties {
	var count uint32
	vkgo.GetPhysicalDeviceQueueFamilyProperties(in.pd(pd), &count, nil)
	props := make([]vkgo.QueueFamilyProperties, count)
	vkgo.GetPhysicalDeviceQueueFamilyProperties(in.pd(pd), &count, props)
	out := make([]vk.QueueFamilyProperties, count)
	for i := range props {
		props[i].Deref()
		// Graphics, compute and transfer share bit positions with vk.QueueFlags.
		out[i] = vk.QueueFamilyProperties{
			Flags: vk.QueueFlags(props[i].QueueFlags) & (vk.QueueGraphics | vk.QueueCompute | vk.QueueTransfer),
			Count: props[i].QueueCount,
		}
	}
	return out
}

func (in *instance) SurfaceSupport(pd vk.PhysicalDevice, family uint32, s vk.Surface) (bool, error) {
	native, err := in.surface(s)
	if err != nil {
		return false, err
	}
	var ok vkgo.Bool32
	if err := result("query surface support", vkgo.GetPhysicalDeviceSurfaceSupport(in.pd(pd), family, native, &ok)); err != nil {
		return false, err
	}
	return ok == vkgo.True, nil
}

func (in *instance) SurfaceCapabilities(pd vk.PhysicalDevice, s vk.Surface) (vk.SurfaceCapabilities, error) {
	native, err := in.surface(s)
	if err != nil {
		return vk.SurfaceCapabilities{}, err
	}
	var caps vkgo.SurfaceCapabilities
	if err := result("query surface capabilities", vkgo.GetPhysicalDeviceSurfaceCapabilities(in.pd(pd), native, &caps)); err != nil {
		return vk.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return vk.SurfaceCapabilities{
		MinImageCount:    caps.MinImageCount,
		MaxImageCount:    caps.MaxImageCount,
		CurrentExtent:    vk.Extent2D{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinImageExtent:   vk.Extent2D{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxImageExtent:   vk.Extent2D{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
		CurrentTransform: vk.SurfaceTransform(caps.CurrentTransform),
	}, nil
}

func (in *instance) SurfaceFormats(pd vk.PhysicalDevice, s vk.Surface) ([]vk.SurfaceFormat, error) {
	native, err := in.surface(s)
	if err != nil {
		return nil, err
	}
	var count uint32
	if err := result("query surface formats", vkgo.GetPhysicalDeviceSurfaceFormats(in.pd(pd), native, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vkgo.SurfaceFormat, count)
	if err := result("query surface formats", vkgo.GetPhysicalDeviceSurfaceFormats(in.pd(pd), native, &count, formats)); err != nil {
		return nil, err
	}
	out := make([]vk.SurfaceFormat, 0, count)
	for i := range formats[:count] {
		formats[i].Deref()
		out = append(out, vk.SurfaceFormat{
			Format:     vk.Format(formats[i].Format),
			ColorSpace: vk.ColorSpace(formats[i].ColorSpace),
		})
	}
	return out, nil
}

func (in *instance) SurfacePresentModes(pd vk.PhysicalDevice, s vk.Surface) ([]vk.PresentMode, error) {
	native, err := in.surface(s)
	if err != nil {
		return nil, err
	}
	var count uint32
	if err := result("query present modes", vkgo.GetPhysicalDeviceSurfacePresentModes(in.pd(pd), native, &count, nil)); err != nil {
		return nil, err
	}
	modes := make([]vkgo.PresentMode, count)
	if err := result("query present modes", vkgo.GetPhysicalDeviceSurfacePresentModes(in.pd(pd), native, &count, modes)); err != nil {
		return nil, err
	}
	out := make([]vk.PresentMode, count)
	for i, m := range modes[:count] {
		out[i] = vk.PresentMode(m)
	}
	return out, nil
}

func (in *instance) MemoryProperties(pd vk.PhysicalDevice) vk.MemoryProperties {
	var props vkgo.PhysicalDeviceMemoryProperties
	vkgo.GetPhysicalDeviceMemoryProperties(in.pd(pd), &props)
	props.Deref()
	var out vk.MemoryProperties
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		t := props.MemoryTypes[i]
		t.Deref()
		// The low five property bits match vk.MemoryPropertyFlags.
		out.Types = append(out.Types, vk.MemoryType{
			Flags:     vk.MemoryPropertyFlags(t.PropertyFlags) & 0x1f,
			HeapIndex: t.HeapIndex,
		})
	}
	for i := uint32(0); i < props.MemoryHeapCount; i++ {
		h := props.MemoryHeaps[i]
		h.Deref()
		out.Heaps = append(out.Heaps, vk.MemoryHeap{
			Size:        uint64(h.Size),
			DeviceLocal: h.Flags&vkgo.MemoryHeapFlags(vkgo.MemoryHeapDeviceLocalBit) != 0,
		})
	}
	return out
}

func (in *instance) CreateDevice(desc *vk.DeviceDescriptor) (vk.Device, error) {
	if desc.PhysicalDevice == 0 || int(desc.PhysicalDevice) > len(in.physical) {
		return nil, fmt.Errorf("vulkan: unknown physical device %d: %w", desc.PhysicalDevice, vk.ErrInitializationFailed)
	}
	pd := in.pd(desc.PhysicalDevice)

	var families []uint32
	seen := make(map[uint32]bool)
	for _, f := range desc.QueueFamilies {
		if !seen[f] {
			seen[f] = true
			families = append(families, f)
		}
	}
	queueInfos := make([]vkgo.DeviceQueueCreateInfo, len(families))
	for i, f := range families {
		queueInfos[i] = vkgo.DeviceQueueCreateInfo{
			SType:            vkgo.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}
	}
	exts := cstrings(desc.Extensions)
	info := vkgo.DeviceCreateInfo{
		SType:                   vkgo.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(in.layers)),
		PpEnabledLayerNames:     in.layers,
		PEnabledFeatures:        []vkgo.PhysicalDeviceFeatures{{}},
	}
	var native vkgo.Device
	if err := result("create device", vkgo.CreateDevice(pd, &info, nil, &native)); err != nil {
		return nil, err
	}

	dev := &device{in: in, native: native, pd: pd, queues: make(map[uint32]vk.Queue)}
	for _, f := range families {
		var q vkgo.Queue
		vkgo.GetDeviceQueue(native, f, 0, &q)
		dev.queues[f] = vk.Queue(dev.objects.add(q))
	}
	logging.L().Debug("vulkan device created", "families", families, "extensions", desc.Extensions)
	return dev, nil
}

func (in *instance) Destroy() {
	if n := in.objects.len(); n > 0 {
		logging.L().Warn("vulkan instance destroyed with live children", "count", n)
	}
	vkgo.DestroyInstance(in.native, nil)
}
