// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/rendercore/vk"
	"github.com/gogpu/rendercore/vk/vktest"
)

func TestNewFrond(t *testing.T) {
	d := vktest.New()
	s := newTestStem(t, d, vktest.NewWindow(800, 600))

	f, err := NewFrond(s, gbufferConfig())
	if err != nil {
		t.Fatal(err)
	}
	if f.Resolution() != (vk.Extent2D{Width: 800, Height: 600}) {
		t.Errorf("Resolution() = %v", f.Resolution())
	}
	if f.Format().Format != vk.FormatB8G8R8A8Srgb {
		t.Errorf("Format() = %v", f.Format())
	}
	if f.PresentMode() != vk.PresentModeMailbox {
		t.Errorf("PresentMode() = %v, want mailbox", f.PresentMode())
	}
	// min 2 + 1
	if len(f.Images()) != 3 || len(f.ImageViews()) != 3 {
		t.Errorf("images = %d, views = %d, want 3", len(f.Images()), len(f.ImageViews()))
	}
	if diff := cmp.Diff([]string{"diffuse", "depth"}, f.Attachments()); diff != "" {
		t.Errorf("attachments (-want +got):\n%s", diff)
	}
	depth, ok := f.Attachment("depth")
	if !ok || depth.Format != vk.FormatD24UnormS8Uint || depth.Resolution2D() != f.Resolution() {
		t.Errorf("depth attachment = %+v, %v", depth, ok)
	}
	if _, ok := f.Attachment("missing"); ok {
		t.Error("unexpected attachment")
	}
	if !f.Stem().Is(s) {
		t.Error("frond not tied to its stem")
	}

	s.Release()
	if d.Live(vktest.KindDevice) != 1 {
		t.Fatal("frond does not hold its stem")
	}
	d.ResetEvents()
	f.Release()
	want := []vktest.Kind{
		vktest.KindImageView, vktest.KindMemory, vktest.KindImage, // depth
		vktest.KindImageView, vktest.KindMemory, vktest.KindImage, // diffuse
		vktest.KindImageView, vktest.KindImageView, vktest.KindImageView,
		vktest.KindSwapchain,
		vktest.KindFence, vktest.KindSemaphore, vktest.KindSemaphore, vktest.KindCommandPool, vktest.KindDevice,
		vktest.KindSurface, vktest.KindDebugMessenger, vktest.KindInstance,
	}
	if diff := cmp.Diff(want, d.Destroyed()); diff != "" {
		t.Errorf("destroy order (-want +got):\n%s", diff)
	}
	d.AssertClean(t)
}

func TestNewFrondNamesObjects(t *testing.T) {
	d := vktest.New()
	s := newTestStem(t, d, vktest.NewWindow(320, 240))
	defer s.Release()
	f, err := NewFrond(s, gbufferConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Release()

	if got, want := d.ObjectName(uint64(f.Swapchain())), fmt.Sprintf("swapchain gen %d", f.Generation()); got != want {
		t.Errorf("swapchain name = %q, want %q", got, want)
	}
	if got := d.ObjectName(uint64(f.Images()[1])); got != "swapchain[1]" {
		t.Errorf("swapchain image name = %q", got)
	}
	depth, _ := f.Attachment("depth")
	if got := d.ObjectName(uint64(depth.Memory)); got != "depth" {
		t.Errorf("depth memory name = %q", got)
	}
	d.AssertNoViolations(t)
}

func TestNewFrondZeroAreaTouchesNothing(t *testing.T) {
	d := vktest.New()
	w := vktest.NewWindow(0, 600)
	s := newTestStem(t, d, w)
	defer func() {
		s.Release()
		d.AssertClean(t)
	}()
	d.ResetEvents()

	if _, err := NewFrond(s, nil); !errors.Is(err, ErrNoSurfaceArea) {
		t.Fatalf("err = %v, want ErrNoSurfaceArea", err)
	}
	if n := d.Calls("SurfaceCapabilities") + d.Calls("CreateSwapchain"); n != 0 {
		t.Errorf("%d API calls made for a zero area", n)
	}
	if len(d.Events()) != 0 {
		t.Errorf("events = %v", d.Events())
	}
}

func TestNewFrondChoices(t *testing.T) {
	t.Run("fifo fallback and bounded image count", func(t *testing.T) {
		d := vktest.New()
		d.Devices[0].PresentModes = []vk.PresentMode{vk.PresentModeFifo}
		d.Devices[0].MinImageCount, d.Devices[0].MaxImageCount = 2, 2
		s := newTestStem(t, d, vktest.NewWindow(8, 8))
		f, err := NewFrond(s, nil)
		if err != nil {
			t.Fatal(err)
		}
		if f.PresentMode() != vk.PresentModeFifo || len(f.Images()) != 2 {
			t.Errorf("mode = %v, images = %d", f.PresentMode(), len(f.Images()))
		}
		f.Release()
		s.Release()
		d.AssertClean(t)
	})
	t.Run("extent follows window", func(t *testing.T) {
		d := vktest.New()
		d.Devices[0].ExtentFollowsSwapchain = true
		s := newTestStem(t, d, vktest.NewWindow(1024, 768))
		f, err := NewFrond(s, nil)
		if err != nil {
			t.Fatal(err)
		}
		if f.Resolution() != (vk.Extent2D{Width: 1024, Height: 768}) {
			t.Errorf("Resolution() = %v", f.Resolution())
		}
		f.Release()
		s.Release()
		d.AssertClean(t)
	})
	t.Run("extent clamped to surface maximum", func(t *testing.T) {
		d := vktest.New()
		d.Devices[0].ExtentFollowsSwapchain = true
		s := newTestStem(t, d, vktest.NewWindow(20000, 300))
		f, err := NewFrond(s, nil)
		if err != nil {
			t.Fatal(err)
		}
		if f.Resolution() != (vk.Extent2D{Width: 16384, Height: 300}) {
			t.Errorf("Resolution() = %v", f.Resolution())
		}
		if f.DrawableArea() != (vk.Extent2D{Width: 20000, Height: 300}) {
			t.Errorf("DrawableArea() = %v", f.DrawableArea())
		}
		f.Release()
		s.Release()
		d.AssertClean(t)
	})
	t.Run("no preferred format", func(t *testing.T) {
		d := vktest.New()
		d.Devices[0].Formats = []vk.SurfaceFormat{{Format: vk.FormatR16G16B16A16Sfloat}}
		s := newTestStem(t, d, vktest.NewWindow(8, 8))
		_, err := NewFrond(s, nil)
		var nsf *NoSurfaceFormatError
		if !errors.Is(err, ErrNoSurfaceFormat) || !errors.As(err, &nsf) || len(nsf.Available) != 1 {
			t.Errorf("err = %v", err)
		}
		s.Release()
		d.AssertClean(t)
	})
}

func TestNewFrondPartialFailureKeepsOldSwapchain(t *testing.T) {
	ops := []struct {
		op  string
		nth int
	}{
		{"SurfaceCapabilities", 1},
		{"SurfaceFormats", 1},
		{"SurfacePresentModes", 1},
		{"CreateSwapchain", 1},
		{"SwapchainImages", 1},
		{"CreateImageView", 2},
		{"CreateImage", 1},
		{"AllocateMemory", 2},
		{"CreateImageView", 5},
	}
	for _, tt := range ops {
		t.Run(tt.op, func(t *testing.T) {
			d := vktest.New()
			w := vktest.NewWindow(800, 600)
			s := newTestStem(t, d, w)
			f, err := NewFrond(s, gbufferConfig())
			if err != nil {
				t.Fatal(err)
			}
			r, err := f.Retire()
			if err != nil {
				t.Fatal(err)
			}
			old := r.Swapchain()
			w.SetSize(1024, 768)
			before := d.Live()

			d.FailNth(tt.op, tt.nth, vk.ErrOutOfDeviceMemory)
			if _, err := r.Resurrect(gbufferConfig()); !errors.Is(err, vk.ErrOutOfDeviceMemory) {
				t.Fatalf("err = %v", err)
			}
			if r.Swapchain() != old || d.Live(vktest.KindSwapchain) != 1 {
				t.Error("failed resurrection lost the retired swapchain")
			}
			if after := d.Live(); after != before {
				t.Errorf("live handles %d -> %d after failure", before, after)
			}

			next, err := r.Resurrect(gbufferConfig())
			if err != nil {
				t.Fatalf("retry: %v", err)
			}
			if next.Resolution() != (vk.Extent2D{Width: 1024, Height: 768}) {
				t.Errorf("Resolution() = %v", next.Resolution())
			}
			next.Release()
			s.Release()
			d.AssertClean(t)
		})
	}
}

func TestRetireRequiresSoleReference(t *testing.T) {
	d := vktest.New()
	s := newTestStem(t, d, vktest.NewWindow(8, 8))
	f, err := NewFrond(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	f.Retain()
	if _, err := f.Retire(); !errors.Is(err, ErrFrondInUse) {
		t.Fatalf("err = %v, want ErrFrondInUse", err)
	}
	f.Release()

	r, err := f.Retire()
	if err != nil {
		t.Fatal(err)
	}
	if d.Live(vktest.KindImageView) != 0 {
		t.Error("retire must destroy the views")
	}
	r.Destroy()
	r.Destroy()
	if _, err := r.Resurrect(nil); !errors.Is(err, ErrSpent) {
		t.Errorf("Resurrect after Destroy: err = %v", err)
	}
	s.Release()
	d.AssertClean(t)
}

func TestResurrectIdempotentUnderZeroArea(t *testing.T) {
	d := vktest.New()
	w := vktest.NewWindow(800, 600)
	s := newTestStem(t, d, w)
	f, err := NewFrond(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, err := f.Retire()
	if err != nil {
		t.Fatal(err)
	}
	w.SetSize(0, 0)
	for i := 0; i < 5; i++ {
		if _, err := r.Resurrect(nil); !errors.Is(err, ErrNoSurfaceArea) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
		if d.Live(vktest.KindSwapchain) != 1 {
			t.Fatalf("attempt %d: %d live swapchains", i, d.Live(vktest.KindSwapchain))
		}
	}
	if d.Calls("CreateSwapchain") != 1 {
		t.Errorf("CreateSwapchain called %d times", d.Calls("CreateSwapchain"))
	}

	w.SetSize(640, 480)
	d.ResetEvents()
	next, err := r.Resurrect(nil)
	if err != nil {
		t.Fatal(err)
	}
	// The old swapchain goes after everything new exists.
	destroyed := d.Destroyed()
	if diff := cmp.Diff([]vktest.Kind{vktest.KindSwapchain}, destroyed); diff != "" {
		t.Errorf("destroyed (-want +got):\n%s", diff)
	}
	events := d.Events()
	if last := events[len(events)-1]; last.Op != "destroy" || last.Kind != vktest.KindSwapchain {
		t.Errorf("last event = %v, want old swapchain destroy", last)
	}
	if _, err := r.Resurrect(nil); !errors.Is(err, ErrSpent) {
		t.Errorf("second Resurrect: err = %v", err)
	}
	next.Release()
	s.Release()
	d.AssertClean(t)
}

func TestRetiredFromStemHasNoSwapchain(t *testing.T) {
	d := vktest.New()
	w := vktest.NewWindow(0, 0)
	s := newTestStem(t, d, w)
	r := NewRetiredSwapchain(s)
	s.Release()

	if r.Swapchain() != vk.NullSwapchain {
		t.Fatal("expected null swapchain")
	}
	w.SetSize(32, 32)
	f, err := r.Resurrect(nil)
	if err != nil {
		t.Fatal(err)
	}
	f.Release()
	d.AssertClean(t)
}

func TestDeviceProvider(t *testing.T) {
	d := vktest.New()
	s := newTestStem(t, d, vktest.NewWindow(8, 8))
	f, err := NewFrond(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	p := f.DeviceProvider()
	if want, _ := vk.FormatB8G8R8A8Srgb.TextureFormat(); p.SurfaceFormat() != want {
		t.Errorf("SurfaceFormat() = %v", p.SurfaceFormat())
	}
	p.Device().Poll(true)
	if d.Calls("WaitIdle") != 1 {
		t.Errorf("Poll(true) made %d WaitIdle calls", d.Calls("WaitIdle"))
	}
	if p.Queue() == nil || p.Adapter() == nil {
		t.Error("provider returned nil queue or adapter")
	}
	f.Release()
	s.Release()
	d.AssertClean(t)
}
