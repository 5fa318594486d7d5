// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vk is the native-handle layer of rendercore.
//
// It mirrors the shape of an explicit graphics API: non-dispatchable objects
// are opaque 64-bit handles (0 is null), while the two dispatchable objects
// that act as destruction contexts, Instance and Device, are interfaces. Every
// handle kind has exactly one destroy method, found on the object that created
// it.
//
// Implementations live in backend/offscreen (gogpu/wgpu HAL), backend/vulkan
// (vulkan-go) and vk/vktest (a recording fake for tests).
package vk
