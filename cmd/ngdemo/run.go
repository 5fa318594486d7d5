// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/rendercore/backend/offscreen"
	"github.com/gogpu/rendercore/passes/geometry"
	"github.com/gogpu/rendercore/passes/lighting"
	"github.com/gogpu/rendercore/passes/tonemapping"
	"github.com/gogpu/rendercore/renderer"
	"github.com/gogpu/rendercore/vk"
)

// result summarizes a run.
type result struct {
	Backend  string
	Drew     int
	Skipped  int
	Failed   int
	Lost     int
	Captured string
}

func (r *result) String() string {
	s := fmt.Sprintf("%s: drew %d, skipped %d, failed %d (%d device losses)", r.Backend, r.Drew, r.Skipped, r.Failed, r.Lost)
	if r.Captured != "" {
		s += ", captured " + r.Captured
	}
	return s
}

// count records a Draw outcome. Errors that leave the renderer able to
// rebuild on the next frame are absorbed; anything else is returned.
func (r *result) count(rend *renderer.Renderer, frame renderer.Frame, err error) error {
	switch frame.Status {
	case renderer.StatusDrew:
		r.Drew++
	case renderer.StatusSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, vk.ErrDeviceLost) || rend.State() == renderer.StateNoDevice {
		r.Lost++
		return nil
	}
	return err
}

func techniques() []renderer.Technique {
	return []renderer.Technique{geometry.New(), lighting.New(), tonemapping.New()}
}

func runOffscreen(cfg *Config) (*result, error) {
	drv := offscreen.New()
	win := offscreen.NewWindow(cfg.Width, cfg.Height)
	script := offscreen.NewScript(win, cfg.ResizeScript)

	r, err := renderer.New(drv, win, cfg.rendererOptions(nil, techniques()...)...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	res := &result{Backend: drv.Name()}
	params := cfg.frameParams()
	for i := 0; i < cfg.Frames; i++ {
		script.Advance(i)
		if slices.Contains(cfg.LoseDeviceAt, i) {
			drv.LoseDevice()
		}
		frame, err := r.Draw(params)
		if err := res.count(r, frame, err); err != nil {
			return res, fmt.Errorf("frame %d: %w", i, err)
		}
	}

	if cfg.Capture != "" {
		img, err := drv.Capture()
		if err != nil {
			return res, fmt.Errorf("capture: %w", err)
		}
		if err := writeWebP(cfg.Capture, img, cfg.CaptureWidth); err != nil {
			return res, err
		}
		res.Captured = cfg.Capture
	}
	return res, nil
}
