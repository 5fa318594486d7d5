// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vk

import "testing"

func TestExtent2DIsZero(t *testing.T) {
	tests := []struct {
		e    Extent2D
		want bool
	}{
		{Extent2D{}, true},
		{Extent2D{Width: 800}, true},
		{Extent2D{Height: 600}, true},
		{Extent2D{Width: 800, Height: 600}, false},
	}
	for _, tt := range tests {
		if got := tt.e.IsZero(); got != tt.want {
			t.Errorf("%v.IsZero() = %v, want %v", tt.e, got, tt.want)
		}
	}
}

func TestExtent2DExtent3D(t *testing.T) {
	got := Extent2D{Width: 4, Height: 3}.Extent3D()
	if got.Width != 4 || got.Height != 3 || got.DepthOrArrayLayers != 1 {
		t.Errorf("Extent3D() = %+v", got)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for f := range formatNames {
		got, err := ParseFormat(f.String())
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", f.String(), err)
		}
		if got != f {
			t.Errorf("ParseFormat(%q) = %v, want %v", f.String(), got, f)
		}
	}
	if _, err := ParseFormat("rgb565"); err == nil {
		t.Error("ParseFormat(rgb565) should fail")
	}
}

func TestMemoryPropertyFlagsHas(t *testing.T) {
	f := MemoryHostVisible | MemoryHostCoherent
	if !f.Has(MemoryHostVisible) {
		t.Error("expected HostVisible")
	}
	if f.Has(MemoryHostVisible | MemoryDeviceLocal) {
		t.Error("Has must require every bit")
	}
	if !f.Has(0) {
		t.Error("empty requirement is always satisfied")
	}
}

func TestFormatIsDepth(t *testing.T) {
	if !FormatD24UnormS8Uint.IsDepth() || !FormatD32Sfloat.IsDepth() {
		t.Error("depth formats not recognized")
	}
	if FormatB8G8R8A8Srgb.IsDepth() {
		t.Error("color format reported as depth")
	}
}

func TestTextureFormatMapping(t *testing.T) {
	for _, f := range []Format{FormatR8G8B8A8Unorm, FormatB8G8R8A8Srgb, FormatR16G16B16A16Sfloat, FormatD24UnormS8Uint} {
		if _, ok := f.TextureFormat(); !ok {
			t.Errorf("%v has no texture format", f)
		}
		if f.BytesPerPixel() == 0 {
			t.Errorf("%v has no texel size", f)
		}
	}
	if _, ok := FormatD32Sfloat.TextureFormat(); ok {
		t.Error("d32 should not map")
	}
}

func TestObjectTypeString(t *testing.T) {
	if s := ObjectTypeDescriptorSetLayout.String(); s != "descriptor_set_layout" {
		t.Errorf("String() = %q", s)
	}
	if s := ObjectType(9).String(); s != "ObjectType(9)" {
		t.Errorf("unnamed type String() = %q", s)
	}
}
