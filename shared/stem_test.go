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

func TestStemLifecycle(t *testing.T) {
	d := vktest.New()
	s := newTestStem(t, d, vktest.NewWindow(800, 600))

	q := s.Queues()
	if !q.Shared() || q.GraphicsFamily != 0 {
		t.Errorf("queues = %+v, want shared family 0", q)
	}
	if s.CommandBuffer() == 0 || s.ImageAcquiredSemaphore() == s.RenderCompleteSemaphore() {
		t.Error("stem objects not initialized")
	}
	// The presentation fence starts signaled.
	if err := s.Device().WaitForFence(s.PresentationFence(), vk.Infinite); err != nil {
		t.Errorf("first wait: %v", err)
	}
	if _, ok := s.SelectMemoryType(vk.MemoryRequirements{TypeBits: 0b111}, vk.MemoryHostVisible); !ok {
		t.Error("cached memory table not used")
	}

	d.ResetEvents()
	s.Release()
	want := []vktest.Kind{
		vktest.KindFence, vktest.KindSemaphore, vktest.KindSemaphore, vktest.KindCommandPool, vktest.KindDevice,
		vktest.KindSurface, vktest.KindDebugMessenger, vktest.KindInstance,
	}
	if diff := cmp.Diff(want, d.Destroyed()); diff != "" {
		t.Errorf("destroy order (-want +got):\n%s", diff)
	}
	d.AssertClean(t)
}

func TestStemNamesObjects(t *testing.T) {
	d := vktest.New()
	s := newTestStem(t, d, vktest.NewWindow(64, 64))
	defer s.Release()

	names := map[uint64]string{
		uint64(s.CommandBuffer()):           "frame",
		uint64(s.ImageAcquiredSemaphore()):  "image acquired",
		uint64(s.RenderCompleteSemaphore()): "render complete",
		uint64(s.PresentationFence()):       "presentation",
	}
	for h, want := range names {
		if got := d.ObjectName(h); got != want {
			t.Errorf("name of %d = %q, want %q", h, got, want)
		}
	}
	d.AssertNoViolations(t)
}

func TestStemWithoutDebugNamesNothing(t *testing.T) {
	d := vktest.New()
	cfg := testCrownConfig()
	cfg.Debug = false
	c, err := NewCrown(d, vktest.NewWindow(64, 64), cfg)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewStem(c, nil)
	c.Release()
	if err != nil {
		t.Fatal(err)
	}
	if n := d.Calls("SetObjectName"); n != 0 {
		t.Errorf("SetObjectName called %d times with debugging off", n)
	}
	s.Release()
	d.AssertClean(t)
}

func TestStemPartialFailure(t *testing.T) {
	tests := []struct {
		op   string
		nth  int
		want []vktest.Kind
	}{
		{"PhysicalDevices", 1, nil},
		{"CreateDevice", 1, nil},
		{"CreateCommandPool", 1, []vktest.Kind{vktest.KindDevice}},
		{"AllocateCommandBuffer", 1, []vktest.Kind{vktest.KindCommandPool, vktest.KindDevice}},
		{"CreateSemaphore", 1, []vktest.Kind{vktest.KindCommandPool, vktest.KindDevice}},
		{"CreateSemaphore", 2, []vktest.Kind{vktest.KindSemaphore, vktest.KindCommandPool, vktest.KindDevice}},
		{"CreateFence", 1, []vktest.Kind{vktest.KindSemaphore, vktest.KindSemaphore, vktest.KindCommandPool, vktest.KindDevice}},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			d := vktest.New()
			c := newTestCrown(t, d, vktest.NewWindow(8, 8))
			d.ResetEvents()
			d.FailNth(tt.op, tt.nth, vk.ErrOutOfHostMemory)

			if _, err := NewStem(c, nil); !errors.Is(err, vk.ErrOutOfHostMemory) {
				t.Fatalf("err = %v", err)
			}
			if diff := cmp.Diff(tt.want, d.Destroyed(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("destroyed (-want +got):\n%s", diff)
			}
			if d.Live(vktest.KindInstance) != 1 {
				t.Error("failed stem construction released the caller's crown reference")
			}
			c.Release()
			d.AssertClean(t)
		})
	}
}

func TestSelectPhysicalDevice(t *testing.T) {
	graphicsOnly := vktest.DefaultPhysicalDevice()
	graphicsOnly.Name = "graphics only"
	graphicsOnly.PresentFamilies = nil

	split := vktest.DefaultPhysicalDevice()
	split.Name = "split"
	split.QueueFamilies = []vk.QueueFamilyProperties{
		{Flags: vk.QueueGraphics, Count: 1},
		{Flags: vk.QueueTransfer, Count: 1},
	}
	split.PresentFamilies = []uint32{1}

	shared := vktest.DefaultPhysicalDevice()
	shared.Name = "shared later"
	shared.QueueFamilies = []vk.QueueFamilyProperties{
		{Flags: vk.QueueGraphics, Count: 1},
		{Flags: vk.QueueTransfer, Count: 1},
		{Flags: vk.QueueGraphics, Count: 1},
	}
	shared.PresentFamilies = []uint32{1, 2}

	tests := []struct {
		name     string
		devices  []vktest.PhysicalDeviceSpec
		wantName string
		want     Queues
		wantErr  error
	}{
		{"none", nil, "", Queues{}, ErrNoSuitableDevice},
		{"no present", []vktest.PhysicalDeviceSpec{graphicsOnly}, "", Queues{}, ErrNoSuitableDevice},
		{"skips unsuitable", []vktest.PhysicalDeviceSpec{graphicsOnly, split}, "split", Queues{GraphicsFamily: 0, PresentFamily: 1}, nil},
		{"prefers shared family", []vktest.PhysicalDeviceSpec{shared}, "shared later", Queues{GraphicsFamily: 2, PresentFamily: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := vktest.New()
			d.Devices = tt.devices
			c := newTestCrown(t, d, vktest.NewWindow(8, 8))
			defer c.Release()

			s, err := NewStem(c, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer s.Release()
			if s.Properties().Name != tt.wantName {
				t.Errorf("device = %q, want %q", s.Properties().Name, tt.wantName)
			}
			q := s.Queues()
			if q.GraphicsFamily != tt.want.GraphicsFamily || q.PresentFamily != tt.want.PresentFamily {
				t.Errorf("families = %d/%d, want %d/%d", q.GraphicsFamily, q.PresentFamily, tt.want.GraphicsFamily, tt.want.PresentFamily)
			}
		})
	}
}

func TestStemReleaseAfterDeviceLoss(t *testing.T) {
	d := vktest.New()
	s := newTestStem(t, d, vktest.NewWindow(8, 8))
	d.LoseDevice()
	s.Release()
	d.AssertClean(t)
}

func TestStemReleaseTwicePanics(t *testing.T) {
	d := vktest.New()
	s := newTestStem(t, d, vktest.NewWindow(8, 8))
	s.Release()
	defer func() {
		if recover() == nil {
			t.Error("second Release should panic")
		}
	}()
	s.Release()
}
