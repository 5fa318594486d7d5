// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vkgo "github.com/vulkan-go/vulkan"

	"github.com/gogpu/rendercore/vk"
)

// Window is a resizable GLFW window without a client API, suitable for a
// Vulkan surface.
type Window struct {
	win *glfw.Window
}

// NewWindow opens a window. Init must have succeeded.
func NewWindow(title string, width, height int) (*Window, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vulkan: create window: %w", err)
	}
	return &Window{win: win}, nil
}

// DrawableSize implements vk.Window. A minimized window reports zero.
func (w *Window) DrawableSize() vk.Extent2D {
	fw, fh := w.win.GetFramebufferSize()
	return vk.Extent2D{Width: uint32(max(fw, 0)), Height: uint32(max(fh, 0))}
}

// RequiredExtensions lists the instance extensions a surface for this
// window needs.
func (w *Window) RequiredExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }

// Destroy closes the window. Its surface must already be destroyed.
func (w *Window) Destroy() { w.win.Destroy() }

// PollEvents processes pending window events.
func PollEvents() { glfw.PollEvents() }

func (w *Window) createSurface(in vkgo.Instance) (vkgo.Surface, error) {
	ptr, err := w.win.CreateWindowSurface(in, nil)
	if err != nil {
		return vkgo.NullSurface, fmt.Errorf("vulkan: create surface: %w: %w", vk.ErrInitializationFailed, err)
	}
	return vkgo.SurfaceFromPointer(ptr), nil
}
