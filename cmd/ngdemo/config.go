// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/rendercore/backend/offscreen"
	"github.com/gogpu/rendercore/renderer"
	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

// Config is the ngdemo configuration file.
type Config struct {
	// Backend is "offscreen" or "vulkan".
	Backend string `yaml:"backend"`
	Width   uint32 `yaml:"width"`
	Height  uint32 `yaml:"height"`
	// Frames is the number of Draw calls. Zero runs a vulkan window until
	// it is closed.
	Frames int `yaml:"frames"`

	// Capture is a .webp path the last presented image is written to
	// (offscreen only).
	Capture      string `yaml:"capture"`
	CaptureWidth int    `yaml:"capture_width"`

	LogLevel   string `yaml:"log_level"`
	Debug      bool   `yaml:"debug"`
	Validation bool   `yaml:"validation"`

	Formats      []string   `yaml:"formats"`
	PresentModes []string   `yaml:"present_modes"`
	EagerRetire  bool       `yaml:"eager_retire"`
	ClearColor   [4]float64 `yaml:"clear_color"`

	// ResizeScript changes the offscreen window size at given frames.
	ResizeScript []offscreen.ResizeStep `yaml:"resize_script"`
	// LoseDeviceAt simulates device loss before the listed frames
	// (offscreen only).
	LoseDeviceAt []int `yaml:"lose_device_at"`
}

func defaultConfig() *Config {
	return &Config{
		Backend:    "offscreen",
		Width:      640,
		Height:     480,
		Frames:     60,
		LogLevel:   "info",
		Debug:      true,
		ClearColor: [4]float64{0.02, 0.02, 0.05, 1},
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults. Unknown keys are rejected.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := decodeConfig(bytes.NewReader(data), cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func decodeConfig(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return cfg.validate()
}

func (c *Config) validate() error {
	switch c.Backend {
	case "offscreen", "vulkan":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("window size %dx%d must not be zero", c.Width, c.Height)
	}
	if c.Frames < 0 {
		return fmt.Errorf("frames must not be negative")
	}
	if c.Frames == 0 && c.Backend == "offscreen" {
		return fmt.Errorf("offscreen runs need a frame count")
	}
	if c.Capture != "" && c.Backend != "offscreen" {
		return fmt.Errorf("capture needs the offscreen backend")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if _, err := c.surfaceFormats(); err != nil {
		return err
	}
	_, err := c.presentModes()
	return err
}

func (c *Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

func (c *Config) surfaceFormats() ([]vk.SurfaceFormat, error) {
	out := make([]vk.SurfaceFormat, 0, len(c.Formats))
	for _, name := range c.Formats {
		f, err := vk.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		out = append(out, vk.SurfaceFormat{Format: f, ColorSpace: vk.ColorSpaceSrgbNonlinear})
	}
	return out, nil
}

func (c *Config) presentModes() ([]vk.PresentMode, error) {
	out := make([]vk.PresentMode, 0, len(c.PresentModes))
	for _, name := range c.PresentModes {
		m, ok := parsePresentMode(name)
		if !ok {
			return nil, fmt.Errorf("unknown present mode %q", name)
		}
		out = append(out, m)
	}
	return out, nil
}

func parsePresentMode(s string) (vk.PresentMode, bool) {
	for _, m := range []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo, vk.PresentModeFifoRelaxed} {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// rendererOptions turns the configuration into renderer options. extensions
// are the instance extensions the window needs.
func (c *Config) rendererOptions(extensions []string, techniques ...renderer.Technique) []renderer.Option {
	formats, _ := c.surfaceFormats()
	modes, _ := c.presentModes()
	opts := []renderer.Option{
		renderer.WithCrownConfig(&shared.CrownConfig{
			ApplicationName: "ngdemo",
			Extensions:      extensions,
			Debug:           c.Debug,
			Validation:      c.Validation,
		}),
		renderer.WithTechniques(techniques...),
		renderer.WithEagerRetireOnSuboptimal(c.EagerRetire),
	}
	if len(formats) > 0 {
		opts = append(opts, renderer.WithPreferredFormats(formats...))
	}
	if len(modes) > 0 {
		opts = append(opts, renderer.WithPresentModes(modes...))
	}
	return opts
}

func (c *Config) frameParams() *renderer.FrameParams {
	return &renderer.FrameParams{ClearColor: gputypes.Color{
		R: c.ClearColor[0], G: c.ClearColor[1], B: c.ClearColor[2], A: c.ClearColor[3],
	}}
}
