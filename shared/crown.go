// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gogpu/rendercore/guard"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// CrownConfig configures a Crown.
type CrownConfig struct {
	ApplicationName string

	// Extensions are extra instance extensions, usually the ones the
	// window system requires.
	Extensions []string

	// Debug registers a debug messenger that forwards driver messages to
	// the rendercore logger.
	Debug bool

	// Validation enables the Khronos validation layer.
	Validation bool

	// DebugSeverities selects the forwarded severities. Zero means all.
	DebugSeverities vk.DebugSeverity
}

// DefaultCrownConfig returns a configuration with the debug messenger on and
// validation off.
func DefaultCrownConfig() *CrownConfig {
	return &CrownConfig{
		ApplicationName: "rendercore",
		Debug:           true,
		DebugSeverities: vk.SeverityWarning | vk.SeverityError,
	}
}

// Crown owns the objects that live as long as the window: the instance, the
// debug messenger and the surface. It outlives every Stem built from it.
type Crown struct {
	refs refs

	api       vk.API
	window    vk.Window
	instance  vk.Instance
	messenger vk.DebugMessenger
	debug     bool

	// surfaceMu serializes use of the surface, which the native API
	// requires to be externally synchronized.
	surfaceMu sync.Mutex
	surface   vk.Surface

	// teardown destroys the surface, the messenger and the instance.
	teardown func()
	objects  int
}

// NewCrown creates the instance, debug messenger and surface for window.
// The caller owns one reference.
func NewCrown(api vk.API, window vk.Window, cfg *CrownConfig) (*Crown, error) {
	if cfg == nil {
		cfg = DefaultCrownConfig()
	}

	desc := &vk.InstanceDescriptor{
		ApplicationName: cfg.ApplicationName,
		Extensions:      append([]string{vk.ExtSurface}, cfg.Extensions...),
		Debug:           cfg.Debug,
	}
	if cfg.Validation {
		desc.Layers = append(desc.Layers, vk.LayerKhronosValidation)
	}
	inst, err := api.CreateInstance(desc)
	if err != nil {
		return nil, stepError("create instance", err)
	}
	var cleanup guard.Stack
	defer cleanup.Unwind()
	cleanup.Push(inst.Destroy)

	var messenger vk.DebugMessenger
	if cfg.Debug {
		severities := cfg.DebugSeverities
		if severities == 0 {
			severities = vk.SeverityAll
		}
		messenger, err = inst.CreateDebugMessenger(&vk.DebugMessengerDescriptor{
			Severities: severities,
			Callback:   forwardDebugMessage,
		})
		if err != nil {
			return nil, stepError("create debug messenger", err)
		}
		cleanup.Push(func() { inst.DestroyDebugMessenger(messenger) })
	}

	s, err := inst.CreateSurface(window)
	if err != nil {
		return nil, stepError("create surface", err)
	}
	cleanup.Push(func() { inst.DestroySurface(s) })

	objects := cleanup.Len()
	c := &Crown{
		api:       api,
		window:    window,
		instance:  inst,
		messenger: messenger,
		debug:     cfg.Debug,
		surface:   s,
		objects:   objects,
		teardown:  cleanup.Detach(),
	}
	c.refs.init()

	logging.L().Info("crown created", "api", api.Name(), "debug", cfg.Debug, "validation", cfg.Validation)
	return c, nil
}

// Debug reports whether the Crown was built with debugging on. Device
// objects are only named then.
func (c *Crown) Debug() bool { return c.debug }

// DebugMessenger returns the debug messenger, or zero when Debug is off.
func (c *Crown) DebugMessenger() vk.DebugMessenger { return c.messenger }

// Instance returns the instance.
func (c *Crown) Instance() vk.Instance { return c.instance }

// Window returns the window the surface was created for.
func (c *Crown) Window() vk.Window { return c.window }

// API returns the driver the crown was created with.
func (c *Crown) API() vk.API { return c.api }

// WithSurface calls fn with the surface while holding the surface lock.
func (c *Crown) WithSurface(fn func(vk.Surface) error) error {
	c.surfaceMu.Lock()
	defer c.surfaceMu.Unlock()
	return fn(c.surface)
}

// DrawableArea returns the window's current drawable area. A zero area is a
// valid "do not render now" answer.
func (c *Crown) DrawableArea() vk.Extent2D { return c.window.DrawableSize() }

// Retain adds a reference.
func (c *Crown) Retain() { c.refs.retain("crown") }

// Release drops a reference. The last one destroys the surface, the debug
// messenger and the instance, in that order.
func (c *Crown) Release() {
	if !c.refs.release("crown") {
		return
	}
	c.teardown()
	logging.L().Info("crown destroyed", "objects", c.objects)
}

// debugLevel maps a driver severity to a log level.
func debugLevel(s vk.DebugSeverity) slog.Level {
	switch s {
	case vk.SeverityVerbose:
		return slog.LevelDebug
	case vk.SeverityInfo:
		return slog.LevelInfo
	case vk.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func forwardDebugMessage(m vk.DebugMessage) {
	logging.L().Log(context.Background(), debugLevel(m.Severity), m.Message,
		"source", "driver", "type", m.Type, "id", m.ID)
}
