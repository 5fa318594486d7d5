// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/rendercore/backend/offscreen"
	"github.com/gogpu/rendercore/vk"
)

const sampleConfig = `
backend: offscreen
width: 320
height: 200
frames: 12
log_level: debug
formats: [bgra8-srgb]
present_modes: [mailbox, fifo]
eager_retire: true
clear_color: [0.5, 0.25, 0, 1]
resize_script:
  - {frame: 4, width: 0, height: 0}
  - {frame: 6, width: 160, height: 100}
lose_device_at: [9]
`

func TestDecodeConfig(t *testing.T) {
	cfg := defaultConfig()
	if err := decodeConfig(strings.NewReader(sampleConfig), cfg); err != nil {
		t.Fatalf("decodeConfig: %v", err)
	}
	want := &Config{
		Backend:      "offscreen",
		Width:        320,
		Height:       200,
		Frames:       12,
		LogLevel:     "debug",
		Debug:        true,
		Formats:      []string{"bgra8-srgb"},
		PresentModes: []string{"mailbox", "fifo"},
		EagerRetire:  true,
		ClearColor:   [4]float64{0.5, 0.25, 0, 1},
		ResizeScript: []offscreen.ResizeStep{{Frame: 4}, {Frame: 6, Width: 160, Height: 100}},
		LoseDeviceAt: []int{9},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}

	modes, err := cfg.presentModes()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeFifo}, modes); diff != "" {
		t.Errorf("present modes (-want +got):\n%s", diff)
	}
	formats, err := cfg.surfaceFormats()
	if err != nil {
		t.Fatal(err)
	}
	if len(formats) != 1 || formats[0].Format != vk.FormatB8G8R8A8Srgb {
		t.Errorf("formats = %v", formats)
	}
}

func TestDecodeConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "frame_count: 3\n", "frame_count"},
		{"unknown backend", "backend: metal\n", "unknown backend"},
		{"zero size", "width: 0\n", "must not be zero"},
		{"bad format", "formats: [NOPE]\n", "NOPE"},
		{"bad present mode", "present_modes: [vsync]\n", "vsync"},
		{"bad level", "log_level: loud\n", "log level"},
		{"capture on vulkan", "backend: vulkan\ncapture: out.webp\n", "capture"},
		{"offscreen forever", "frames: 0\n", "frame count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeConfig(strings.NewReader(tt.yaml), defaultConfig())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
		t.Errorf("empty path (-want +got):\n%s", diff)
	}

	path := filepath.Join(t.TempDir(), "ngdemo.yaml")
	if err := os.WriteFile(path, []byte("frames: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Frames != 3 || cfg.Width != 640 {
		t.Errorf("frames=%d width=%d", cfg.Frames, cfg.Width)
	}

	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
