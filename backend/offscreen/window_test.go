// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package offscreen

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/rendercore/vk"
)

func TestScript(t *testing.T) {
	w := NewWindow(10, 10)
	s := NewScript(w, []ResizeStep{
		{Frame: 3, Width: 30, Height: 30},
		{Frame: 1, Width: 0, Height: 0},
		{Frame: 1, Width: 20, Height: 20},
	})

	tests := []struct {
		frame   int
		changed bool
		want    vk.Extent2D
	}{
		{0, false, vk.Extent2D{Width: 10, Height: 10}},
		{1, true, vk.Extent2D{Width: 20, Height: 20}},
		{2, false, vk.Extent2D{Width: 20, Height: 20}},
		{5, true, vk.Extent2D{Width: 30, Height: 30}},
	}
	for _, tt := range tests {
		if got := s.Advance(tt.frame); got != tt.changed {
			t.Errorf("Advance(%d) = %v, want %v", tt.frame, got, tt.changed)
		}
		if got := w.DrawableSize(); got != tt.want {
			t.Errorf("after frame %d: size %v, want %v", tt.frame, got, tt.want)
		}
	}
	if !s.Done() {
		t.Error("Done = false after every step")
	}
}

func TestToRGBA(t *testing.T) {
	texel := []byte{1, 2, 3, 4}
	tests := []struct {
		format vk.Format
		want   []byte
	}{
		{vk.FormatR8G8B8A8Unorm, []byte{1, 2, 3, 4}},
		{vk.FormatB8G8R8A8Srgb, []byte{3, 2, 1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			img, err := toRGBA(texel, vk.Extent2D{Width: 1, Height: 1}, tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, img.Pix); diff != "" {
				t.Errorf("pixels (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := toRGBA(texel, vk.Extent2D{Width: 2, Height: 1}, vk.FormatR8G8B8A8Unorm); err == nil {
		t.Error("short readback accepted")
	}
	if _, err := toRGBA(make([]byte, 16), vk.Extent2D{Width: 1, Height: 1}, vk.FormatR16G16B16A16Sfloat); err == nil {
		t.Error("float format accepted")
	}
}

func TestTextureUsage(t *testing.T) {
	tests := []struct {
		in   vk.ImageUsage
		want gputypes.TextureUsage
	}{
		{vk.UsageColorAttachment, gputypes.TextureUsageRenderAttachment},
		{vk.UsageColorAttachment | vk.UsageSampled, gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding},
		{vk.UsageDepthStencilAttachment, gputypes.TextureUsageRenderAttachment},
		{vk.UsageTransferSrc | vk.UsageTransferDst, gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst},
		{vk.UsageInputAttachment, gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding},
	}
	for _, tt := range tests {
		if got := textureUsage(tt.in); got != tt.want {
			t.Errorf("textureUsage(%#x) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}
