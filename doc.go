// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package rendercore is a swapchain-resilient rendering core for the native
// explicit graphics API.
//
// # Overview
//
// rendercore owns every GPU object a windowed renderer needs and keeps them
// valid across the events that invalidate them: window resizes, minimized
// windows, stale swapchains and device loss. Objects are grouped into tiers
// by lifetime:
//
//   - shared.Crown: instance, debug messenger and surface; lives as long as the window
//   - shared.Stem: device, queues, command buffer and frame synchronization
//   - shared.Frond: swapchain and per-resolution render targets
//
// A renderer.Renderer drives frames on top of the tiers and rebuilds only the
// tier that an event invalidated. Render passes plug in as
// renderer.Technique values; passes/geometry, passes/lighting and
// passes/tonemapping form a small deferred pipeline.
//
// # Quick Start
//
//	d := offscreen.New()
//	w := offscreen.NewWindow(640, 480)
//	r, err := renderer.New(d, w, renderer.WithTechniques(
//		geometry.New(), lighting.New(), tonemapping.New()))
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	for {
//		frame, err := r.Draw(nil)
//		...
//	}
//
// # Backends
//
// Drivers implement vk.API. backend/vulkan talks to the system Vulkan loader
// and presents to a GLFW window. backend/offscreen runs on gogpu/wgpu HAL
// against a virtual window and can read back presented images, which makes
// it the backend of choice for tests and headless capture.
//
// # Logging
//
// rendercore is silent by default. See SetLogger.
package rendercore

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
