// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	vkgo "github.com/vulkan-go/vulkan"

	"github.com/gogpu/rendercore/vk"
)

func TestResult(t *testing.T) {
	tests := []struct {
		res  vkgo.Result
		want error
	}{
		{vkgo.ErrorDeviceLost, vk.ErrDeviceLost},
		{vkgo.ErrorOutOfDate, vk.ErrOutOfDate},
		{vkgo.ErrorSurfaceLost, vk.ErrSurfaceLost},
		{vkgo.ErrorLayerNotPresent, vk.ErrLayerNotPresent},
		{vkgo.Timeout, vk.ErrTimeout},
		{vkgo.NotReady, vk.ErrTimeout},
		{vkgo.Result(-9999), vk.ErrUnknown},
	}
	for _, tt := range tests {
		if err := result("op", tt.res); !errors.Is(err, tt.want) {
			t.Errorf("result(%d) = %v, want %v", tt.res, err, tt.want)
		}
	}
	for _, ok := range []vkgo.Result{vkgo.Success, vkgo.Suboptimal} {
		if err := result("op", ok); err != nil {
			t.Errorf("result(%d) = %v, want nil", ok, err)
		}
	}
}

func TestTimeoutNanos(t *testing.T) {
	if got := timeoutNanos(vk.Infinite); got != vkgo.MaxUint64 {
		t.Errorf("timeoutNanos(Infinite) = %d", got)
	}
	if got := timeoutNanos(time.Millisecond); got != 1e6 {
		t.Errorf("timeoutNanos(1ms) = %d", got)
	}
}

func TestCStrings(t *testing.T) {
	got := cstrings([]string{vk.ExtSurface, "VK_KHR_xcb_surface"}, []string{vk.ExtSurface, "", vk.ExtDebugReport})
	want := []string{"VK_KHR_surface\x00", "VK_KHR_xcb_surface\x00", "VK_EXT_debug_report\x00"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cstrings (-want +got):\n%s", diff)
	}
}

func TestImageUsage(t *testing.T) {
	tests := []struct {
		in   vk.ImageUsage
		want vkgo.ImageUsageFlagBits
	}{
		{vk.UsageColorAttachment | vk.UsageSampled, vkgo.ImageUsageColorAttachmentBit | vkgo.ImageUsageSampledBit},
		{vk.UsageDepthStencilAttachment, vkgo.ImageUsageDepthStencilAttachmentBit},
		{vk.UsageInputAttachment | vk.UsageTransferSrc, vkgo.ImageUsageInputAttachmentBit | vkgo.ImageUsageTransferSrcBit},
	}
	for _, tt := range tests {
		if got := imageUsage(tt.in); got != vkgo.ImageUsageFlags(tt.want) {
			t.Errorf("imageUsage(%#x) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestSeverityRoundTrip(t *testing.T) {
	for _, s := range []vk.DebugSeverity{vk.SeverityVerbose, vk.SeverityInfo, vk.SeverityWarning, vk.SeverityError} {
		if got := severity(reportFlags(s)); got != s {
			t.Errorf("severity(reportFlags(%v)) = %v", s, got)
		}
	}
	perf := vkgo.DebugReportFlags(vkgo.DebugReportPerformanceWarningBit)
	if got := severity(perf); got != vk.SeverityWarning {
		t.Errorf("performance warning maps to %v", got)
	}
}

func TestHandles(t *testing.T) {
	var h handles
	a := h.add("a")
	b := h.add(42)
	if a == 0 || a == b {
		t.Fatalf("handles %d, %d", a, b)
	}
	if _, ok := get[int](&h, a); ok {
		t.Error("string handle read back as int")
	}
	if v, ok := get[int](&h, b); !ok || v != 42 {
		t.Errorf("get = %v, %v", v, ok)
	}
	h.remove(a)
	if h.len() != 1 {
		t.Errorf("len = %d, want 1", h.len())
	}
}

func TestHandleNames(t *testing.T) {
	var h handles
	a := h.add("a")
	b := h.add("b")
	if !h.setName(b, "gbuffer") || !h.setName(a, "albedo") {
		t.Fatal("setName on live handles failed")
	}
	if h.setName(99, "ghost") {
		t.Error("setName on an unknown handle succeeded")
	}
	if diff := cmp.Diff([]string{"albedo", "gbuffer"}, h.named()); diff != "" {
		t.Errorf("named (-want +got):\n%s", diff)
	}
	h.remove(a)
	if diff := cmp.Diff([]string{"gbuffer"}, h.named()); diff != "" {
		t.Errorf("named after remove (-want +got):\n%s", diff)
	}
}
