// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package offscreen

import (
	"slices"
	"sync"

	"github.com/gogpu/rendercore/vk"
)

// Window is a virtual vk.Window. Its drawable area changes only through
// SetSize or a Script.
type Window struct {
	mu   sync.Mutex
	size vk.Extent2D
}

// NewWindow returns a window with the given drawable area.
func NewWindow(width, height uint32) *Window {
	return &Window{size: vk.Extent2D{Width: width, Height: height}}
}

// SetSize changes the drawable area. Zero means minimized.
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

// ResizeStep sets the drawable area before frame Frame is drawn. Frames are
// counted from zero.
type ResizeStep struct {
	Frame  int    `yaml:"frame"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// Script replays resize steps against a Window.
type Script struct {
	w     *Window
	steps []ResizeStep
}

// NewScript returns a script for w. Steps may be given in any order; two
// steps for the same frame apply in the order given.
func NewScript(w *Window, steps []ResizeStep) *Script {
	steps = slices.Clone(steps)
	slices.SortStableFunc(steps, func(a, b ResizeStep) int { return a.Frame - b.Frame })
	return &Script{w: w, steps: steps}
}

// Advance applies every step scheduled at or before frame and reports
// whether the size changed.
func (s *Script) Advance(frame int) bool {
	changed := false
	for len(s.steps) > 0 && s.steps[0].Frame <= frame {
		st := s.steps[0]
		s.steps = s.steps[1:]
		s.w.SetSize(st.Width, st.Height)
		changed = true
	}
	return changed
}

// Done reports whether every step was applied.
func (s *Script) Done() bool { return len(s.steps) == 0 }
