// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gogpu/rendercore/vk"
	"github.com/gogpu/rendercore/vk/vktest"
)

func imageDesc() *DeviceImageDescriptor {
	return &DeviceImageDescriptor{
		Label:      "normal",
		Format:     vk.FormatR16G16B16A16Sfloat,
		Resolution: vk.Extent2D{Width: 640, Height: 480}.Extent3D(),
		Usage:      vk.UsageColorAttachment | vk.UsageSampled,
		Aspect:     vk.AspectColor,
	}
}

func TestNewDeviceImage(t *testing.T) {
	d := vktest.New()
	s := newTestStem(t, d, vktest.NewWindow(640, 480))
	dev := s.Device()

	g, err := NewDeviceImage(dev, imageDesc(), s.MemorySelector(vk.MemoryDeviceLocal))
	if err != nil {
		t.Fatal(err)
	}
	img := g.Get()
	if img.Resolution2D() != (vk.Extent2D{Width: 640, Height: 480}) {
		t.Errorf("Resolution2D() = %v", img.Resolution2D())
	}
	if d.Live(vktest.KindImage, vktest.KindMemory, vktest.KindImageView) != 3 {
		t.Fatalf("live = %d, want image, memory and view", d.Live(vktest.KindImage, vktest.KindMemory, vktest.KindImageView))
	}

	d.ResetEvents()
	g.Release()
	g.Release()
	want := []vktest.Kind{vktest.KindImageView, vktest.KindMemory, vktest.KindImage}
	if diff := cmp.Diff(want, d.Destroyed()); diff != "" {
		t.Errorf("destroy order (-want +got):\n%s", diff)
	}
	s.Release()
	d.AssertClean(t)
}

func TestNewDeviceImagePartialFailure(t *testing.T) {
	tests := []struct {
		op   string
		want []vktest.Kind
	}{
		{"CreateImage", nil},
		{"AllocateMemory", []vktest.Kind{vktest.KindImage}},
		{"BindImageMemory", []vktest.Kind{vktest.KindMemory, vktest.KindImage}},
		{"CreateImageView", []vktest.Kind{vktest.KindMemory, vktest.KindImage}},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			d := vktest.New()
			s := newTestStem(t, d, vktest.NewWindow(640, 480))
			d.ResetEvents()
			d.FailNth(tt.op, 1, vk.ErrOutOfDeviceMemory)

			_, err := NewDeviceImage(s.Device(), imageDesc(), s.MemorySelector(vk.MemoryDeviceLocal))
			if !errors.Is(err, vk.ErrOutOfDeviceMemory) {
				t.Fatalf("err = %v, want out of device memory", err)
			}
			var se *StepError
			if !errors.As(err, &se) {
				t.Errorf("err = %T, want *StepError", err)
			}
			if diff := cmp.Diff(tt.want, d.Destroyed(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("destroyed (-want +got):\n%s", diff)
			}
			s.Release()
			d.AssertClean(t)
		})
	}
}

func TestNewDeviceImageNoMemoryType(t *testing.T) {
	d := vktest.New()
	d.Devices[0].ImageTypeBits = 0b010 // only host-visible memory allowed
	s := newTestStem(t, d, vktest.NewWindow(64, 64))
	d.ResetEvents()

	_, err := NewDeviceImage(s.Device(), imageDesc(), s.MemorySelector(vk.MemoryDeviceLocal))
	var mte *MemoryTypeError
	if !errors.As(err, &mte) {
		t.Fatalf("err = %v, want *MemoryTypeError", err)
	}
	if mte.Requirements.TypeBits != 0b010 {
		t.Errorf("requirements = %+v", mte.Requirements)
	}
	if diff := cmp.Diff([]vktest.Kind{vktest.KindImage}, d.Destroyed()); diff != "" {
		t.Errorf("destroyed (-want +got):\n%s", diff)
	}
	if d.Calls("AllocateMemory") != 0 {
		t.Error("memory allocated despite selection failure")
	}
	s.Release()
	d.AssertClean(t)
}

func TestResolution2DPanicsOnVolume(t *testing.T) {
	img := DeviceImage{}
	img.Resolution.Width, img.Resolution.Height, img.Resolution.DepthOrArrayLayers = 4, 4, 2
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	img.Resolution2D()
}
