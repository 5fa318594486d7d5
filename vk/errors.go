// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vk

import "errors"

// Result errors reported by drivers. Implementations wrap these so callers
// can test with errors.Is.
var (
	// ErrDeviceLost means the logical device is gone. Every object created
	// from it must be destroyed and the device recreated.
	ErrDeviceLost = errors.New("vk: device lost")

	// ErrOutOfDate means the swapchain no longer matches the surface and
	// must be recreated before presenting again.
	ErrOutOfDate = errors.New("vk: swapchain out of date")

	// ErrSurfaceLost means the window surface is no longer usable.
	ErrSurfaceLost = errors.New("vk: surface lost")

	ErrOutOfHostMemory      = errors.New("vk: out of host memory")
	ErrOutOfDeviceMemory    = errors.New("vk: out of device memory")
	ErrInitializationFailed = errors.New("vk: initialization failed")
	ErrExtensionNotPresent  = errors.New("vk: extension not present")
	ErrLayerNotPresent      = errors.New("vk: layer not present")
	ErrFormatNotSupported   = errors.New("vk: format not supported")
	ErrTimeout              = errors.New("vk: timeout")
	ErrUnknown              = errors.New("vk: unknown error")
)
