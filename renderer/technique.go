// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

// Technique is a render pass plugged into the Renderer. Techniques run in
// the order they are given, which must respect their data dependencies.
type Technique interface {
	// Name identifies the technique in errors and logs.
	Name() string

	// Attachments lists the auxiliary images the technique needs in every
	// Frond. Attachments with the same name are shared between techniques.
	Attachments() []shared.AttachmentSpec

	// NewStem builds the device-lifetime part of the pass. The returned
	// PassStem holds its own reference to stem.
	NewStem(stem *shared.Stem) (PassStem, error)
}

// PassStem is the device-lifetime part of a pass (shaders, layouts).
type PassStem interface {
	// NewFrond builds the resolution-dependent part of the pass. It must
	// fail with shared.ErrStemMismatch when frond belongs to another
	// Stem. The returned PassFrond must not keep a reference to frond past
	// Destroy.
	NewFrond(frond *shared.Frond) (PassFrond, error)
	Destroy()
}

// PassFrond is the resolution-dependent part of a pass (render pass,
// pipeline, framebuffers).
type PassFrond interface {
	// Record records exactly one render-pass scope into cb. It never
	// submits.
	Record(cb vk.CommandBuffer, frame *FrameState) error
	Destroy()
}

// FrameParams are per-frame inputs supplied by the caller.
type FrameParams struct {
	ClearColor gputypes.Color
}

// FrameState is handed to every PassFrond while a frame is recorded. It is
// valid only for the duration of the Record call; passes must not cache the
// Stem or Frond across frames.
type FrameState struct {
	Stem       *shared.Stem
	Frond      *shared.Frond
	ImageIndex uint32
	Params     *FrameParams
	// Number counts frames drawn by the Renderer, starting at 1.
	Number uint64
}
