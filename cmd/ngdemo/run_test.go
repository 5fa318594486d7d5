// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/rendercore/backend/offscreen"
)

func TestScaleToWidth(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	if got := scaleToWidth(src, 0); got != src {
		t.Error("width 0 should return the source")
	}
	if got := scaleToWidth(src, 64); got != src {
		t.Error("same width should return the source")
	}
	dst := scaleToWidth(src, 16)
	if b := dst.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatalf("scaled bounds = %v, want 16x8", b)
	}
	if c := dst.RGBAAt(8, 4); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("scaled pixel = %v", c)
	}
}

func TestEncodeWebP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := encodeWebP(&buf, img, 4); err != nil {
		t.Fatalf("encodeWebP: %v", err)
	}
	b := buf.Bytes()
	if len(b) < 12 || string(b[:4]) != "RIFF" || string(b[8:12]) != "WEBP" {
		t.Errorf("output is not a WebP container: % x", b[:min(len(b), 12)])
	}
}

func TestRunOffscreen(t *testing.T) {
	cfg := defaultConfig()
	cfg.Width, cfg.Height = 96, 64
	cfg.Frames = 10
	cfg.ResizeScript = []offscreen.ResizeStep{
		{Frame: 3, Width: 0, Height: 0},
		{Frame: 5, Width: 48, Height: 32},
	}
	cfg.LoseDeviceAt = []int{7}
	cfg.Capture = filepath.Join(t.TempDir(), "out", "frame.webp")

	res, err := runOffscreen(cfg)
	if err != nil {
		t.Fatalf("runOffscreen: %v", err)
	}
	// Frames 3 and 4 see a minimized window, frame 7 a lost device.
	if res.Skipped != 2 || res.Failed != 1 || res.Lost != 1 || res.Drew != 7 {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(cfg.Capture); err != nil {
		t.Errorf("capture not written: %v", err)
	}
	if !strings.Contains(res.String(), "captured") {
		t.Errorf("summary %q does not mention the capture", res)
	}
}

func TestRunCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--frames", "2", "--log-level", "error"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "drew 2") {
		t.Errorf("output = %q", out.String())
	}
}

func TestConfigCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg := defaultConfig()
	cfg.Frames = 0
	if err := decodeConfig(strings.NewReader(out.String()), cfg); err != nil {
		t.Fatalf("printed config does not decode: %v", err)
	}
	if cfg.Frames != defaultConfig().Frames {
		t.Errorf("frames = %d", cfg.Frames)
	}
}
