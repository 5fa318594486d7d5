// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package main

import (
	"runtime"

	"github.com/gogpu/rendercore/backend/vulkan"
	"github.com/gogpu/rendercore/renderer"
)

func runVulkan(cfg *Config) (*result, error) {
	// GLFW calls must stay on the main thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := vulkan.Init(); err != nil {
		return nil, err
	}
	defer vulkan.Terminate()

	win, err := vulkan.NewWindow("ngdemo", int(cfg.Width), int(cfg.Height))
	if err != nil {
		return nil, err
	}
	defer win.Destroy()

	drv := vulkan.New()
	r, err := renderer.New(drv, win, cfg.rendererOptions(win.RequiredExtensions(), techniques()...)...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	res := &result{Backend: drv.Name()}
	params := cfg.frameParams()
	for i := 0; cfg.Frames == 0 || i < cfg.Frames; i++ {
		vulkan.PollEvents()
		if win.ShouldClose() {
			break
		}
		frame, err := r.Draw(params)
		if err := res.count(r, frame, err); err != nil {
			return res, err
		}
	}
	return res, nil
}
