// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package vulkan implements vk.API on the system Vulkan loader through
// github.com/vulkan-go/vulkan, with windows and the loader entry point
// provided by GLFW.
//
// Init must be called from the main thread before any other function, and
// every call into the driver must stay on that thread:
//
//	runtime.LockOSThread()
//	if err := vulkan.Init(); err != nil { ... }
//	defer vulkan.Terminate()
//	w, err := vulkan.NewWindow("demo", 800, 600)
//	r, err := renderer.New(vulkan.New(), w,
//		renderer.WithCrownConfig(&shared.CrownConfig{Extensions: w.RequiredExtensions()}))
package vulkan

import (
	"fmt"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
	vkgo "github.com/vulkan-go/vulkan"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init initializes GLFW and loads the Vulkan entry points. It is safe to call
// more than once; only the first call does any work.
func Init() error {
	initOnce.Do(func() {
		if err := glfw.Init(); err != nil {
			initErr = fmt.Errorf("vulkan: glfw init: %w", err)
			return
		}
		if !glfw.VulkanSupported() {
			glfw.Terminate()
			initErr = fmt.Errorf("vulkan: no loader found: %w", vk.ErrInitializationFailed)
			return
		}
		vkgo.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
		if err := vkgo.Init(); err != nil {
			glfw.Terminate()
			initErr = fmt.Errorf("vulkan: loader init: %w", err)
		}
	})
	return initErr
}

// Terminate releases GLFW. Every window must be destroyed first.
func Terminate() { glfw.Terminate() }

// Driver is the native vk.API.
type Driver struct{}

// New returns the native driver. Init must have succeeded.
func New() *Driver { return &Driver{} }

// Name implements vk.API.
func (*Driver) Name() string { return "vulkan" }

// CreateInstance implements vk.API. Debug adds the debug-report extension
// that debug messengers are built on.
func (d *Driver) CreateInstance(desc *vk.InstanceDescriptor) (vk.Instance, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	if err := checkLayers(desc.Layers); err != nil {
		return nil, err
	}

	extensions := desc.Extensions
	if desc.Debug {
		extensions = append(extensions[:len(extensions):len(extensions)], vk.ExtDebugReport)
	}
	exts := cstrings(extensions)
	layers := cstrings(desc.Layers)

	app := vkgo.ApplicationInfo{
		SType:              vkgo.StructureTypeApplicationInfo,
		PApplicationName:   desc.ApplicationName + "\x00",
		ApplicationVersion: vkgo.MakeVersion(1, 0, 0),
		PEngineName:        "rendercore\x00",
		EngineVersion:      vkgo.MakeVersion(1, 0, 0),
		ApiVersion:         vkgo.MakeVersion(1, 0, 0),
	}
	info := vkgo.InstanceCreateInfo{
		SType:                   vkgo.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &app,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}
	var native vkgo.Instance
	if err := result("create instance", vkgo.CreateInstance(&info, nil, &native)); err != nil {
		return nil, err
	}
	if err := vkgo.InitInstance(native); err != nil {
		vkgo.DestroyInstance(native, nil)
		return nil, fmt.Errorf("vulkan: load instance entry points: %w", err)
	}

	var count uint32
	if err := result("enumerate physical devices", vkgo.EnumeratePhysicalDevices(native, &count, nil)); err != nil {
		vkgo.DestroyInstance(native, nil)
		return nil, err
	}
	physical := make([]vkgo.PhysicalDevice, count)
	if err := result("enumerate physical devices", vkgo.EnumeratePhysicalDevices(native, &count, physical)); err != nil {
		vkgo.DestroyInstance(native, nil)
		return nil, err
	}

	logging.L().Debug("vulkan instance created", "extensions", len(exts), "layers", len(layers), "adapters", count)
	return &instance{native: native, physical: physical[:count], layers: layers}, nil
}

// checkLayers fails with vk.ErrLayerNotPresent when a requested layer is not
// installed.
func checkLayers(want []string) error {
	if len(want) == 0 {
		return nil
	}
	var count uint32
	if err := result("enumerate layers", vkgo.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return err
	}
	props := make([]vkgo.LayerProperties, count)
	if err := result("enumerate layers", vkgo.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return err
	}
	have := make(map[string]bool, len(props))
	for i := range props {
		props[i].Deref()
		have[vkgo.ToString(props[i].LayerName[:])] = true
	}
	for _, l := range want {
		if !have[l] {
			return fmt.Errorf("vulkan: layer %s: %w", l, vk.ErrLayerNotPresent)
		}
	}
	return nil
}
