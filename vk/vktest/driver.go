// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vktest provides a recording fake of the vk driver interfaces.
//
// Driver behaves like a GPU that finishes work instantly. It records every
// handle creation and destruction in order, validates handle use (double
// destroys, destroying parents before children, using destroyed objects,
// waiting on a fence nothing will signal, creating a second swapchain for a
// surface) and lets tests inject a failure at any step:
//
//	d := vktest.New()
//	d.FailNth("CreateImageView", 1, vk.ErrOutOfDeviceMemory)
//	...
//	d.AssertClean(t)
package vktest

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/vk"
)

// ErrDeadlock is returned by WaitForFence when the fence is unsignaled and no
// pending work will ever signal it.
var ErrDeadlock = errors.New("vktest: fence wait would never return")

// Kind names a handle kind in the event log.
type Kind string

// Handle kinds.
const (
	KindInstance            Kind = "instance"
	KindDebugMessenger      Kind = "debug_messenger"
	KindSurface             Kind = "surface"
	KindDevice              Kind = "device"
	KindImage               Kind = "image"
	KindMemory              Kind = "memory"
	KindImageView           Kind = "image_view"
	KindSwapchain           Kind = "swapchain"
	KindCommandPool         Kind = "command_pool"
	KindSemaphore           Kind = "semaphore"
	KindFence               Kind = "fence"
	KindShaderModule        Kind = "shader_module"
	KindDescriptorSetLayout Kind = "descriptor_set_layout"
	KindDescriptorPool      Kind = "descriptor_pool"
	KindPipelineLayout      Kind = "pipeline_layout"
	KindPipeline            Kind = "pipeline"
	KindRenderPass          Kind = "render_pass"
	KindFramebuffer         Kind = "framebuffer"
)

// Event is one entry of the creation/destruction log.
type Event struct {
	Op     string // "create" or "destroy"
	Kind   Kind
	Handle uint64
	Label  string
}

func (e Event) String() string {
	if e.Label != "" {
		return fmt.Sprintf("%s %s#%d(%s)", e.Op, e.Kind, e.Handle, e.Label)
	}
	return fmt.Sprintf("%s %s#%d", e.Op, e.Kind, e.Handle)
}

// Presentation records one successful present.
type Presentation struct {
	Swapchain  vk.Swapchain
	ImageIndex uint32
	Extent     vk.Extent2D
}

// PhysicalDeviceSpec describes one fake adapter.
type PhysicalDeviceSpec struct {
	Name          string
	Type          gputypes.DeviceType
	QueueFamilies []vk.QueueFamilyProperties
	// PresentFamilies lists the families that can present to any surface.
	PresentFamilies []uint32
	Memory          vk.MemoryProperties
	Formats         []vk.SurfaceFormat
	PresentModes    []vk.PresentMode
	MinImageCount   uint32
	MaxImageCount   uint32
	// ExtentFollowsSwapchain makes the surface report ExtentMatchWindow.
	ExtentFollowsSwapchain bool
	// ImageTypeBits is reported in image memory requirements.
	ImageTypeBits uint32
}

// DefaultPhysicalDevice returns a discrete adapter with one family that does
// graphics and presentation, and three memory types: device-local,
// host-visible|coherent and both.
func DefaultPhysicalDevice() PhysicalDeviceSpec {
	return PhysicalDeviceSpec{
		Name: "vktest discrete",
		Type: gputypes.DeviceTypeDiscreteGPU,
		QueueFamilies: []vk.QueueFamilyProperties{
			{Flags: vk.QueueGraphics | vk.QueueCompute | vk.QueueTransfer, Count: 1},
		},
		PresentFamilies: []uint32{0},
		Memory: vk.MemoryProperties{
			Types: []vk.MemoryType{
				{Flags: vk.MemoryDeviceLocal, HeapIndex: 0},
				{Flags: vk.MemoryHostVisible | vk.MemoryHostCoherent, HeapIndex: 1},
				{Flags: vk.MemoryDeviceLocal | vk.MemoryHostVisible | vk.MemoryHostCoherent, HeapIndex: 0},
			},
			Heaps: []vk.MemoryHeap{
				{Size: 8 << 30, DeviceLocal: true},
				{Size: 16 << 30},
			},
		},
		Formats: []vk.SurfaceFormat{
			{Format: vk.FormatB8G8R8A8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8G8R8A8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		PresentModes:  []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		MinImageCount: 2,
		MaxImageCount: 8,
		ImageTypeBits: 0b111,
	}
}

type object struct {
	kind  Kind
	owner uint64
	label string
}

type fault struct {
	op     string
	skip   int
	always bool
	err    error
}

type fenceState struct{ signaled bool }

type swapchainState struct {
	surface vk.Surface
	extent  vk.Extent2D
	images  []vk.Image
	next    uint32
	retired bool
}

type cmdState struct {
	pool      vk.CommandPool
	recording bool
	ended     bool
	inPass    bool
	commands  []string
}

// Driver is a fake vk.API.
type Driver struct {
	// Devices are the adapters enumerated by every instance.
	Devices []PhysicalDeviceSpec
	// Layers are the instance layers that exist.
	Layers []string
	// StrictExtent makes AcquireNextImage report ErrOutOfDate when the
	// window size no longer matches the swapchain extent.
	StrictExtent bool

	mu         sync.Mutex
	next       uint64
	live       map[uint64]object
	events     []Event
	violations []string
	faults     []*fault
	calls      map[string]int

	devices         map[uint64]*device
	surfaces        map[vk.Surface]vk.Window
	messengers      map[vk.DebugMessenger]vk.DebugMessengerDescriptor
	semaphores      map[vk.Semaphore]bool
	fences          map[vk.Fence]*fenceState
	swapchains      map[vk.Swapchain]*swapchainState
	swapchainImages map[vk.Image]vk.Swapchain
	cmds            map[vk.CommandBuffer]*cmdState
	framebuffers    map[vk.Framebuffer][]vk.ImageView
	sets            map[vk.DescriptorSet]vk.DescriptorPool
	names           map[uint64]string

	suboptimalAcquires int
	suboptimalPresents int
	submits            int
	lastSubmitted      []string
	presented          []Presentation
}

// New returns a driver with one default adapter.
func New() *Driver {
	return &Driver{
		Devices:         []PhysicalDeviceSpec{DefaultPhysicalDevice()},
		Layers:          []string{vk.LayerKhronosValidation},
		live:            make(map[uint64]object),
		calls:           make(map[string]int),
		devices:         make(map[uint64]*device),
		surfaces:        make(map[vk.Surface]vk.Window),
		messengers:      make(map[vk.DebugMessenger]vk.DebugMessengerDescriptor),
		semaphores:      make(map[vk.Semaphore]bool),
		fences:          make(map[vk.Fence]*fenceState),
		swapchains:      make(map[vk.Swapchain]*swapchainState),
		swapchainImages: make(map[vk.Image]vk.Swapchain),
		cmds:            make(map[vk.CommandBuffer]*cmdState),
		framebuffers:    make(map[vk.Framebuffer][]vk.ImageView),
		sets:            make(map[vk.DescriptorSet]vk.DescriptorPool),
		names:           make(map[uint64]string),
	}
}

// Name implements vk.API.
func (d *Driver) Name() string { return "vktest" }

// CreateInstance implements vk.API.
func (d *Driver) CreateInstance(desc *vk.InstanceDescriptor) (vk.Instance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateInstance"); err != nil {
		return nil, err
	}
	for _, l := range desc.Layers {
		if !slices.Contains(d.Layers, l) {
			return nil, fmt.Errorf("%w: %s", vk.ErrLayerNotPresent, l)
		}
	}
	id := d.create(KindInstance, 0, desc.ApplicationName)
	return &instance{d: d, id: id}, nil
}

// FailNth makes the n-th upcoming call of op (1 = the next one) return err.
func (d *Driver) FailNth(op string, n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = append(d.faults, &fault{op: op, skip: n - 1, err: err})
}

// FailAlways makes every upcoming call of op return err.
func (d *Driver) FailAlways(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = append(d.faults, &fault{op: op, always: true, err: err})
}

// ClearFaults removes every pending fault.
func (d *Driver) ClearFaults() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = nil
}

// LoseDevice marks every existing device as lost. Calls that can fail return
// vk.ErrDeviceLost until a new device is created; destroys keep working.
func (d *Driver) LoseDevice() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dev := range d.devices {
		dev.lost = true
	}
}

// SuboptimalAcquires makes the next n acquires report suboptimal.
func (d *Driver) SuboptimalAcquires(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suboptimalAcquires = n
}

// SuboptimalPresents makes the next n presents report suboptimal.
func (d *Driver) SuboptimalPresents(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suboptimalPresents = n
}

// Emit delivers msg to every live debug messenger whose severity mask
// includes msg.Severity.
func (d *Driver) Emit(msg vk.DebugMessage) {
	d.mu.Lock()
	var cbs []vk.DebugCallback
	for _, m := range d.messengers {
		if m.Severities&msg.Severity != 0 && m.Callback != nil {
			cbs = append(cbs, m.Callback)
		}
	}
	d.mu.Unlock()
	for _, cb := range cbs {
		cb(msg)
	}
}

// Events returns a copy of the creation/destruction log.
func (d *Driver) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.events)
}

// ResetEvents clears the log; live handles are kept.
func (d *Driver) ResetEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

// Destroyed returns the destroyed kinds in destruction order.
func (d *Driver) Destroyed() []Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Kind
	for _, e := range d.events {
		if e.Op == "destroy" {
			out = append(out, e.Kind)
		}
	}
	return out
}

// Created returns the created kinds in creation order.
func (d *Driver) Created() []Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Kind
	for _, e := range d.events {
		if e.Op == "create" {
			out = append(out, e.Kind)
		}
	}
	return out
}

// Live returns the number of live handles of the given kinds, or of every
// kind when none is given.
func (d *Driver) Live(kinds ...Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, o := range d.live {
		if len(kinds) == 0 || slices.Contains(kinds, o.kind) {
			n++
		}
	}
	return n
}

// ObjectName returns the last name given to h with SetObjectName.
func (d *Driver) ObjectName(h uint64) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.names[h]
}

// Violations returns every misuse detected so far.
func (d *Driver) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.violations)
}

// Calls returns how many times op was called.
func (d *Driver) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// Submits returns the number of non-empty queue submissions.
func (d *Driver) Submits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits
}

// LastSubmitted returns the commands recorded in the last non-empty
// submission.
func (d *Driver) LastSubmitted() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.lastSubmitted)
}

// Presented returns every successful presentation.
func (d *Driver) Presented() []Presentation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.presented)
}

// AssertClean fails t if any handle is still live or any violation was
// recorded.
func (d *Driver) AssertClean(t testing.TB) {
	t.Helper()
	d.AssertNoViolations(t)
	d.mu.Lock()
	defer d.mu.Unlock()
	for h, o := range d.live {
		t.Errorf("leaked %s#%d(%s)", o.kind, h, o.label)
	}
}

// AssertNoViolations fails t if any misuse was recorded.
func (d *Driver) AssertNoViolations(t testing.TB) {
	t.Helper()
	for _, v := range d.Violations() {
		t.Errorf("violation: %s", v)
	}
}

// call counts op and fires a pending fault. d.mu must be held.
func (d *Driver) call(op string) error {
	d.calls[op]++
	for i, f := range d.faults {
		if f.op != op {
			continue
		}
		if f.always {
			return f.err
		}
		if f.skip > 0 {
			f.skip--
			continue
		}
		d.faults = slices.Delete(d.faults, i, i+1)
		return f.err
	}
	return nil
}

func (d *Driver) create(kind Kind, owner uint64, label string) uint64 {
	d.next++
	h := d.next
	d.live[h] = object{kind: kind, owner: owner, label: label}
	d.events = append(d.events, Event{Op: "create", Kind: kind, Handle: h, Label: label})
	return h
}

// destroy removes a live handle. It reports false for a violation.
func (d *Driver) destroy(kind Kind, h uint64) bool {
	if h == 0 {
		d.violate("destroy of null %s", kind)
		return false
	}
	o, ok := d.live[h]
	if !ok {
		d.violate("destroy of dead or unknown %s#%d", kind, h)
		return false
	}
	if o.kind != kind {
		d.violate("destroy of %s#%d as %s", o.kind, h, kind)
		return false
	}
	for ch, co := range d.live {
		if co.owner == h {
			d.violate("destroy of %s#%d while %s#%d is alive", kind, h, co.kind, ch)
		}
	}
	delete(d.live, h)
	d.events = append(d.events, Event{Op: "destroy", Kind: kind, Handle: h, Label: o.label})
	return true
}

func (d *Driver) alive(kind Kind, h uint64) bool {
	o, ok := d.live[h]
	return ok && o.kind == kind
}

func (d *Driver) violate(format string, args ...any) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}
