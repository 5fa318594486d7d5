// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
	"github.com/gogpu/rendercore/vk/vktest"
)

func TestCrownLifecycle(t *testing.T) {
	d := vktest.New()
	w := vktest.NewWindow(800, 600)
	c := newTestCrown(t, d, w)

	if got := c.DrawableArea(); got != (vk.Extent2D{Width: 800, Height: 600}) {
		t.Errorf("DrawableArea() = %v", got)
	}
	w.SetSize(0, 0)
	if !c.DrawableArea().IsZero() {
		t.Error("DrawableArea should follow the window")
	}

	c.Retain()
	c.Release()
	if d.Live(vktest.KindInstance) != 1 {
		t.Fatal("crown destroyed while still referenced")
	}
	c.Release()

	want := []vktest.Kind{vktest.KindSurface, vktest.KindDebugMessenger, vktest.KindInstance}
	if diff := cmp.Diff(want, d.Destroyed()); diff != "" {
		t.Errorf("destroy order (-want +got):\n%s", diff)
	}
	d.AssertClean(t)
}

func TestCrownPartialFailure(t *testing.T) {
	tests := []struct {
		op   string
		want []vktest.Kind
	}{
		{"CreateInstance", nil},
		{"CreateDebugMessenger", []vktest.Kind{vktest.KindInstance}},
		{"CreateSurface", []vktest.Kind{vktest.KindDebugMessenger, vktest.KindInstance}},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			d := vktest.New()
			d.FailNth(tt.op, 1, vk.ErrInitializationFailed)
			_, err := NewCrown(d, vktest.NewWindow(1, 1), testCrownConfig())
			if !errors.Is(err, vk.ErrInitializationFailed) {
				t.Fatalf("err = %v", err)
			}
			if diff := cmp.Diff(tt.want, d.Destroyed(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("destroyed (-want +got):\n%s", diff)
			}
			d.AssertClean(t)
		})
	}
}

func TestCrownWithoutDebug(t *testing.T) {
	d := vktest.New()
	c, err := NewCrown(d, vktest.NewWindow(1, 1), &CrownConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if d.Calls("CreateDebugMessenger") != 0 || c.DebugMessenger() != 0 {
		t.Error("debug messenger created with Debug off")
	}
	c.Release()
	if diff := cmp.Diff([]vktest.Kind{vktest.KindSurface, vktest.KindInstance}, d.Destroyed()); diff != "" {
		t.Errorf("destroyed (-want +got):\n%s", diff)
	}
	d.AssertClean(t)
}

func TestCrownMissingValidationLayer(t *testing.T) {
	d := vktest.New()
	d.Layers = nil
	_, err := NewCrown(d, vktest.NewWindow(1, 1), testCrownConfig())
	if !errors.Is(err, vk.ErrLayerNotPresent) {
		t.Fatalf("err = %v, want layer not present", err)
	}
}

func TestDebugLevel(t *testing.T) {
	tests := []struct {
		sev  vk.DebugSeverity
		want slog.Level
	}{
		{vk.SeverityVerbose, slog.LevelDebug},
		{vk.SeverityInfo, slog.LevelInfo},
		{vk.SeverityWarning, slog.LevelWarn},
		{vk.SeverityError, slog.LevelError},
		{0, slog.LevelError},
	}
	for _, tt := range tests {
		if got := debugLevel(tt.sev); got != tt.want {
			t.Errorf("debugLevel(%d) = %v, want %v", tt.sev, got, tt.want)
		}
	}
}

func TestDebugMessagesReachLogger(t *testing.T) {
	orig := logging.L()
	t.Cleanup(func() { logging.Set(orig) })
	var buf bytes.Buffer
	logging.Set(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	d := vktest.New()
	c := newTestCrown(t, d, vktest.NewWindow(1, 1))
	d.Emit(vk.DebugMessage{Severity: vk.SeverityError, Type: "validation", Message: "image layout mismatch"})
	d.Emit(vk.DebugMessage{Severity: vk.SeverityVerbose, Message: "filtered out"})
	c.Release()

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "image layout mismatch") {
		t.Errorf("log output missing driver error:\n%s", out)
	}
	if strings.Contains(out, "filtered out") {
		t.Error("verbose message forwarded despite severity filter")
	}
}
