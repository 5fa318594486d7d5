// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package offscreen implements the vk driver interfaces on top of the
// gogpu/wgpu HAL.
//
// Device objects are real HAL objects: images are textures, render passes
// and framebuffers are resolved into HAL render pass descriptors when a
// command buffer is submitted, and fences are points on a per-device HAL
// fence timeline. Presentation is emulated: a swapchain is a ring of
// textures sized to a Window whose drawable area the caller controls, and
// the last presented image can be read back with Capture.
//
// The default HAL is the noop backend, which needs no GPU:
//
//	d := offscreen.New()
//	w := offscreen.NewWindow(800, 600)
//	r, err := renderer.New(d, w, ...)
//	...
//	img, err := d.Capture()
package offscreen

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// ErrNoPresentation is returned by Capture before the first present.
var ErrNoPresentation = errors.New("offscreen: nothing presented yet")

// halAPI is the part of a HAL backend the driver uses.
type halAPI interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Option configures a Driver.
type Option func(*Driver)

// WithBackend selects a registered HAL backend instead of noop. New panics
// if the backend is not compiled in; use Available to check first.
func WithBackend(b gputypes.Backend) Option {
	return func(d *Driver) {
		api, ok := hal.GetBackend(b)
		if !ok {
			panic(fmt.Sprintf("offscreen: HAL backend %v is not available", b))
		}
		d.api = api
		d.backend = fmt.Sprint(b)
	}
}

// WithImageCount sets the number of images per swapchain. Values below two
// are raised to two.
func WithImageCount(n uint32) Option {
	return func(d *Driver) { d.imageCount = max(n, 2) }
}

// WithSurfaceFormats replaces the surface formats reported to the renderer.
func WithSurfaceFormats(formats ...vk.Format) Option {
	return func(d *Driver) { d.formats = slices.Clone(formats) }
}

// Available reports whether HAL backend b is compiled in.
func Available(b gputypes.Backend) bool {
	_, ok := hal.GetBackend(b)
	return ok
}

// Stats are counters kept by a Driver. Instances, Devices, Swapchains and
// Textures count live objects; the rest count calls.
type Stats struct {
	Instances  int
	Devices    int
	Swapchains int
	Textures   int
	Submits    int
	Presents   int
	// Messages counts debug messages sent to messengers, by severity.
	Messages map[vk.DebugSeverity]int
}

// Driver is a vk.API backed by a HAL backend.
type Driver struct {
	api        halAPI
	backend    string
	imageCount uint32
	formats    []vk.Format

	mu         sync.Mutex
	next       uint64
	instances  map[uint64]*instance
	messengers map[vk.DebugMessenger]vk.DebugMessengerDescriptor
	stats      Stats
	pending    []delivery

	last *presentation
}

type delivery struct {
	cb  vk.DebugCallback
	msg vk.DebugMessage
}

type presentation struct {
	dev    *device
	sc     vk.Swapchain
	index  uint32
	extent vk.Extent2D
	format vk.Format
}

// New returns a driver. Without options it runs on the noop HAL backend.
func New(opts ...Option) *Driver {
	d := &Driver{
		api:        &noop.API{},
		backend:    "noop",
		imageCount: 3,
		formats:    []vk.Format{vk.FormatB8G8R8A8Srgb, vk.FormatB8G8R8A8Unorm, vk.FormatR8G8B8A8Unorm},
		instances:  make(map[uint64]*instance),
		messengers: make(map[vk.DebugMessenger]vk.DebugMessengerDescriptor),
		stats:      Stats{Messages: make(map[vk.DebugSeverity]int)},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements vk.API.
func (d *Driver) Name() string { return "offscreen/" + d.backend }

// CreateInstance implements vk.API.
func (d *Driver) CreateInstance(desc *vk.InstanceDescriptor) (vk.Instance, error) {
	for _, l := range desc.Layers {
		if l != vk.LayerKhronosValidation {
			return nil, fmt.Errorf("offscreen: layer %q: %w", l, vk.ErrLayerNotPresent)
		}
	}
	for _, ext := range desc.Extensions {
		switch ext {
		case vk.ExtSurface, vk.ExtDebugUtils, vk.ExtDebugReport:
		default:
			// Window-system extensions are satisfied by the virtual surface.
			logging.L().Debug("offscreen: ignoring instance extension", "ext", ext)
		}
	}

	inner, err := d.api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("offscreen: create instance: %w: %w", vk.ErrInitializationFailed, err)
	}
	adapters := inner.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		inner.Destroy()
		return nil, fmt.Errorf("offscreen: no adapters: %w", vk.ErrInitializationFailed)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	in := &instance{
		d:          d,
		id:         d.next,
		hal:        inner,
		adapters:   adapters,
		validation: slices.Contains(desc.Layers, vk.LayerKhronosValidation),
		surfaces:   make(map[vk.Surface]*surface),
	}
	d.instances[in.id] = in
	d.stats.Instances++
	logging.L().Debug("offscreen: instance created", "backend", d.backend, "adapters", len(adapters))
	return in, nil
}

// LoseDevice makes every existing device report vk.ErrDeviceLost from then
// on. Devices created afterwards work normally.
func (d *Driver) LoseDevice() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, in := range d.instances {
		for _, dev := range in.devices {
			dev.lost = true
		}
	}
}

// Stats returns a snapshot of the driver's counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Messages = make(map[vk.DebugSeverity]int, len(d.stats.Messages))
	for k, v := range d.stats.Messages {
		s.Messages[k] = v
	}
	return s
}

// report queues a debug message for every messenger that wants it. d.mu
// must be held; messages are delivered by unlock.
func (d *Driver) report(sev vk.DebugSeverity, typ, format string, args ...any) {
	msg := vk.DebugMessage{Severity: sev, Type: typ, Message: fmt.Sprintf(format, args...)}
	d.stats.Messages[sev]++
	for _, m := range d.messengers {
		if m.Severities&sev != 0 && m.Callback != nil {
			d.pending = append(d.pending, delivery{cb: m.Callback, msg: msg})
		}
	}
}

// violate reports a usage error if validation is enabled on in.
func (d *Driver) violate(in *instance, format string, args ...any) {
	if in.validation {
		d.report(vk.SeverityError, "validation", format, args...)
	}
}

// unlock releases d.mu, then delivers queued debug messages so callbacks
// may call back into the driver.
func (d *Driver) unlock() {
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()
	for _, p := range pending {
		p.cb(p.msg)
	}
}
