// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package passes holds what the deferred passes share: the G-buffer
// attachment layout and identity checks against the Stem a pass was built
// from.
//
// The passes themselves live in the geometry, lighting and tonemapping
// subpackages and must run in that order:
//
//	renderer.WithTechniques(geometry.New(), lighting.New(), tonemapping.New())
package passes

import (
	"errors"
	"fmt"

	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

// ErrMissingAttachment is returned when a Frond was built without an
// attachment a pass reads or writes.
var ErrMissingAttachment = errors.New("passes: frond lacks attachment")

// G-buffer attachments.
var (
	Diffuse = shared.AttachmentSpec{
		Name:   "diffuse",
		Format: vk.FormatR8G8B8A8Unorm,
		Usage:  vk.UsageColorAttachment | vk.UsageSampled,
		Aspect: vk.AspectColor,
	}
	Normal = shared.AttachmentSpec{
		Name:   "normal",
		Format: vk.FormatR16G16B16A16Sfloat,
		Usage:  vk.UsageColorAttachment | vk.UsageSampled,
		Aspect: vk.AspectColor,
	}
	DepthStencil = shared.AttachmentSpec{
		Name:   "depth_stencil",
		Format: vk.FormatD24UnormS8Uint,
		Usage:  vk.UsageDepthStencilAttachment,
		Aspect: vk.AspectDepth,
	}
	// Light is the HDR lighting result.
	Light = shared.AttachmentSpec{
		Name:   "light",
		Format: vk.FormatR16G16B16A16Sfloat,
		Usage:  vk.UsageColorAttachment | vk.UsageSampled,
		Aspect: vk.AspectColor,
	}
)

// Attachment returns the image for spec from frond.
func Attachment(frond *shared.Frond, spec shared.AttachmentSpec) (shared.DeviceImage, error) {
	img, ok := frond.Attachment(spec.Name)
	if !ok {
		return shared.DeviceImage{}, fmt.Errorf("%w %q", ErrMissingAttachment, spec.Name)
	}
	if img.Format != spec.Format {
		return shared.DeviceImage{}, fmt.Errorf("%w %q with format %v (have %v)", ErrMissingAttachment, spec.Name, spec.Format, img.Format)
	}
	return img, nil
}

// CheckStem fails with shared.ErrStemMismatch unless frond was built on
// owner.
func CheckStem(pass string, owner *shared.Stem, frond *shared.Frond) error {
	if frond == nil || !frond.Stem().Is(owner) {
		return fmt.Errorf("%s: %w", pass, shared.ErrStemMismatch)
	}
	return nil
}

// CheckFrame fails with shared.ErrStemMismatch unless stem and frond are the
// objects a pass frond was built from.
func CheckFrame(pass string, ownerStem *shared.Stem, ownerFrond *shared.Frond, stem *shared.Stem, frond *shared.Frond) error {
	if !ownerStem.Is(stem) || ownerFrond != frond {
		return fmt.Errorf("%s: recorded against another generation: %w", pass, shared.ErrStemMismatch)
	}
	return nil
}
