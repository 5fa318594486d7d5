// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command ngdemo drives the rendercore renderer through the deferred
// geometry, lighting and tonemapping passes.
//
// The offscreen backend renders headless, can replay a resize script and
// simulated device loss, and writes the last presented image as WebP:
//
//	ngdemo run --frames 120 --capture out.webp
//	ngdemo run --config ngdemo.yaml
//
// The vulkan backend opens a GLFW window:
//
//	ngdemo run --backend vulkan
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/rendercore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type runFlags struct {
	config   string
	backend  string
	frames   int
	capture  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ngdemo",
		Short:        "Render frames with the rendercore deferred pipeline",
		Version:      rendercore.Version,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newConfigCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render frames",
		Long: `Render frames through the geometry, lighting and tonemapping passes.

Flags override the values read from --config.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f.config)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			level, _ := cfg.level()
			rendercore.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			defer rendercore.SetLogger(nil)

			var res *result
			switch cfg.Backend {
			case "vulkan":
				res, err = runVulkan(cfg)
			default:
				res, err = runOffscreen(cfg)
			}
			if res != nil {
				fmt.Fprintln(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "YAML configuration file")
	fl.StringVar(&f.backend, "backend", "", "offscreen or vulkan")
	fl.IntVarP(&f.frames, "frames", "n", 0, "number of frames to draw")
	fl.StringVarP(&f.capture, "capture", "o", "", "write the last presented image to this .webp file")
	fl.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	return cmd
}

// apply overrides cfg with the flags set on the command line.
func (f *runFlags) apply(cmd *cobra.Command, cfg *Config) error {
	fl := cmd.Flags()
	if fl.Changed("backend") {
		cfg.Backend = f.backend
	}
	if fl.Changed("frames") {
		cfg.Frames = f.frames
	}
	if fl.Changed("capture") {
		cfg.Capture = f.capture
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	return cfg.validate()
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(defaultConfig()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
