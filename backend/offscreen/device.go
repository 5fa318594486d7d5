// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package offscreen

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// forever stands in for vk.Infinite in HAL waits.
const forever = time.Duration(math.MaxInt64)

type deviceImage struct {
	tex    hal.Texture
	label  string
	format vk.Format
	extent vk.Extent2D
	// sc is set for swapchain images, which are destroyed with their
	// swapchain.
	sc  vk.Swapchain
	mem vk.DeviceMemory
}

type imageView struct {
	view  hal.TextureView
	image vk.Image
}

type memory struct {
	size  uint64
	bound int
}

type swapchain struct {
	surface  vk.Surface
	window   vk.Window
	extent   vk.Extent2D
	format   vk.Format
	images   []vk.Image
	acquired []bool
	next     uint32
	retired  bool
}

type semaphore struct{ signaled bool }

// fence is a point on the device timeline. value is zero when no submit
// will signal it.
type fence struct {
	signaled bool
	value    uint64
}

type commandPool struct {
	family  uint32
	buffers []vk.CommandBuffer
}

type shaderModule struct{ module hal.ShaderModule }

type setLayout struct {
	layout   hal.BindGroupLayout
	bindings []vk.DescriptorBinding
}

type descriptorPool struct {
	maxSets uint32
	sets    []vk.DescriptorSet
}

type descriptorSet struct {
	pool   vk.DescriptorPool
	layout vk.DescriptorSetLayout
	views  map[uint32]vk.ImageView
	group  hal.BindGroup
}

type pipelineLayout struct {
	layout hal.PipelineLayout
}

type pipeline struct {
	pipeline hal.RenderPipeline
	label    string
}

type renderPass struct {
	desc vk.RenderPassDescriptor
}

type framebuffer struct {
	pass   vk.RenderPass
	views  []vk.ImageView
	extent vk.Extent2D
}

// inflight is a HAL command buffer that may still be executing.
type inflight struct {
	cb    hal.CommandBuffer
	value uint64
}

type device struct {
	d   *Driver
	in  *instance
	id  uint64
	hal hal.Device
	q   hal.Queue

	// timeline is signaled with an increasing value by every submit.
	timeline  hal.Fence
	submitted uint64
	completed uint64
	inflight  []inflight

	objects map[uint64]any
	// names holds debug names set with SetObjectName.
	names map[uint64]string
	lost  bool
}

func newDevice(in *instance, id uint64, dev hal.Device, q hal.Queue, timeline hal.Fence) *device {
	return &device{
		d:        in.d,
		in:       in,
		id:       id,
		hal:      dev,
		q:        q,
		timeline: timeline,
		objects:  make(map[uint64]any),
		names:    make(map[uint64]string),
	}
}

// lookup returns the live object behind h. d.mu must be held.
func lookup[T any](dev *device, h uint64, what string) (T, bool) {
	o, ok := dev.objects[h].(T)
	if !ok {
		dev.d.violate(dev.in, "use of dead %s %d", what, h)
	}
	return o, ok
}

// add registers o and returns its handle. d.mu must be held.
func (dev *device) add(o any) uint64 {
	dev.d.next++
	dev.objects[dev.d.next] = o
	return dev.d.next
}

// remove unregisters h and reports whether it was alive. d.mu must be held.
func (dev *device) remove(h uint64, what string) bool {
	if _, ok := dev.objects[h]; !ok {
		if h != 0 {
			dev.d.violate(dev.in, "destroy of dead %s %d", what, h)
		}
		return false
	}
	delete(dev.objects, h)
	delete(dev.names, h)
	return true
}

// SetObjectName names a live object. The names show up in leak reports.
func (dev *device) SetObjectName(typ vk.ObjectType, h uint64, name string) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if _, ok := dev.objects[h]; !ok {
		dev.d.violate(dev.in, "name %q given to dead %s %d", name, typ, h)
		return
	}
	dev.names[h] = name
}

// leaked lists the names of the live objects that have one. d.mu must be
// held.
func (dev *device) leaked() []string {
	var out []string
	for h := range dev.objects {
		if n, ok := dev.names[h]; ok {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// check reports device loss. d.mu must be held.
func (dev *device) check() error {
	if dev.lost {
		return vk.ErrDeviceLost
	}
	return nil
}

// halError wraps an error returned by the HAL.
func halError(op string, kind, err error) error {
	return fmt.Errorf("offscreen: %s: %w: %w", op, kind, err)
}

func (dev *device) Queue(family uint32) vk.Queue {
	if family != 0 {
		dev.d.mu.Lock()
		dev.d.violate(dev.in, "queue of family %d was not requested", family)
		dev.d.unlock()
	}
	return vk.Queue(dev.id)
}

func (dev *device) WaitIdle() error {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return err
	}
	return dev.waitValue(dev.submitted, forever)
}

// waitValue blocks until the timeline reaches value, then frees the command
// buffers that finished. d.mu must be held.
func (dev *device) waitValue(value uint64, timeout time.Duration) error {
	if value <= dev.completed {
		return nil
	}
	ok, err := dev.hal.Wait(dev.timeline, value, timeout)
	if err != nil {
		return halError("wait", vk.ErrDeviceLost, err)
	}
	if !ok {
		return vk.ErrTimeout
	}
	dev.completed = value
	kept := dev.inflight[:0]
	for _, f := range dev.inflight {
		if f.value <= value {
			dev.hal.FreeCommandBuffer(f.cb)
			continue
		}
		kept = append(kept, f)
	}
	dev.inflight = kept
	return nil
}

func textureUsage(u vk.ImageUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&vk.UsageTransferSrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&vk.UsageTransferDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&(vk.UsageSampled|vk.UsageInputAttachment) != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&vk.UsageStorage != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	if u&(vk.UsageColorAttachment|vk.UsageDepthStencilAttachment|vk.UsageInputAttachment) != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

// createTexture creates a 2D texture. d.mu must be held.
func (dev *device) createTexture(label string, format vk.Format, extent vk.Extent2D, usage gputypes.TextureUsage) (hal.Texture, error) {
	tf, ok := format.TextureFormat()
	if !ok {
		return nil, fmt.Errorf("offscreen: texture %q: %v: %w", label, format, vk.ErrFormatNotSupported)
	}
	if extent.IsZero() || extent.Width > maxExtent || extent.Height > maxExtent {
		dev.d.violate(dev.in, "texture %q with extent %v", label, extent)
	}
	tex, err := dev.hal.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: extent.Width, Height: extent.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        tf,
		Usage:         usage,
	})
	if err != nil {
		return nil, halError("create texture "+label, vk.ErrOutOfDeviceMemory, err)
	}
	dev.d.stats.Textures++
	return tex, nil
}

func (dev *device) destroyTexture(tex hal.Texture) {
	dev.hal.DestroyTexture(tex)
	dev.d.stats.Textures--
}

func (dev *device) CreateImage(desc *vk.ImageDescriptor) (vk.Image, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	if desc.Samples > 1 || desc.MipLevels > 1 || desc.ArrayLayers > 1 {
		dev.d.violate(dev.in, "image %q: only single-sample 2D images with one mip and layer are supported", desc.Label)
	}
	extent := vk.Extent2D{Width: desc.Size.Width, Height: desc.Size.Height}
	tex, err := dev.createTexture(desc.Label, desc.Format, extent, textureUsage(desc.Usage))
	if err != nil {
		return 0, err
	}
	return vk.Image(dev.add(&deviceImage{tex: tex, label: desc.Label, format: desc.Format, extent: extent})), nil
}

func (dev *device) DestroyImage(h vk.Image) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	img, ok := lookup[*deviceImage](dev, uint64(h), "image")
	if !ok {
		return
	}
	if img.sc != 0 {
		dev.d.violate(dev.in, "destroy of swapchain image %d", h)
		return
	}
	for _, o := range dev.objects {
		if v, ok := o.(*imageView); ok && v.image == h {
			dev.d.violate(dev.in, "destroy of image %q while a view of it is alive", img.label)
		}
	}
	if m, ok := dev.objects[uint64(img.mem)].(*memory); ok {
		m.bound--
	}
	dev.destroyTexture(img.tex)
	dev.remove(uint64(h), "image")
}

func (dev *device) ImageMemoryRequirements(h vk.Image) vk.MemoryRequirements {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	img, ok := lookup[*deviceImage](dev, uint64(h), "image")
	if !ok {
		return vk.MemoryRequirements{}
	}
	const alignment = 256
	size := uint64(img.extent.Width) * uint64(img.extent.Height) * uint64(img.format.BytesPerPixel())
	return vk.MemoryRequirements{
		Size:      (size + alignment - 1) &^ (alignment - 1),
		Alignment: alignment,
		TypeBits:  0b01,
	}
}

func (dev *device) AllocateMemory(size uint64, memoryType uint32) (vk.DeviceMemory, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	if memoryType > 1 {
		dev.d.violate(dev.in, "allocation from memory type %d out of range", memoryType)
		return 0, vk.ErrOutOfDeviceMemory
	}
	return vk.DeviceMemory(dev.add(&memory{size: size})), nil
}

func (dev *device) FreeMemory(h vk.DeviceMemory) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if m, ok := dev.objects[uint64(h)].(*memory); ok && m.bound > 0 {
		dev.d.violate(dev.in, "free of memory %d still bound to %d images", h, m.bound)
	}
	dev.remove(uint64(h), "memory")
}

func (dev *device) BindImageMemory(h vk.Image, mem vk.DeviceMemory, offset uint64) error {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return err
	}
	img, ok := lookup[*deviceImage](dev, uint64(h), "image")
	m, mok := lookup[*memory](dev, uint64(mem), "memory")
	if !ok || !mok {
		return vk.ErrUnknown
	}
	if img.mem != 0 {
		dev.d.violate(dev.in, "image %q bound twice", img.label)
	}
	img.mem = mem
	m.bound++
	return nil
}

func (dev *device) CreateImageView(desc *vk.ImageViewDescriptor) (vk.ImageView, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	img, ok := lookup[*deviceImage](dev, uint64(desc.Image), "image")
	if !ok {
		return 0, vk.ErrUnknown
	}
	format := desc.Format
	if format == vk.FormatUndefined {
		format = img.format
	}
	tf, ok := format.TextureFormat()
	if !ok {
		return 0, fmt.Errorf("offscreen: view %q: %v: %w", desc.Label, format, vk.ErrFormatNotSupported)
	}
	v, err := dev.hal.CreateTextureView(img.tex, &hal.TextureViewDescriptor{
		Label:         desc.Label,
		Format:        tf,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return 0, halError("create view "+desc.Label, vk.ErrOutOfHostMemory, err)
	}
	return vk.ImageView(dev.add(&imageView{view: v, image: desc.Image})), nil
}

func (dev *device) DestroyImageView(h vk.ImageView) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	v, ok := lookup[*imageView](dev, uint64(h), "image view")
	if !ok {
		return
	}
	for _, o := range dev.objects {
		if fb, ok := o.(*framebuffer); ok {
			for _, fv := range fb.views {
				if fv == h {
					dev.d.violate(dev.in, "destroy of view %d used by a live framebuffer", h)
				}
			}
		}
	}
	dev.hal.DestroyTextureView(v.view)
	dev.remove(uint64(h), "image view")
}

func (dev *device) CreateSwapchain(desc *vk.SwapchainDescriptor) (vk.Swapchain, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	surf, ok := dev.in.surfaces[desc.Surface]
	if !ok {
		return 0, fmt.Errorf("offscreen: swapchain for dead surface %d: %w", desc.Surface, vk.ErrSurfaceLost)
	}
	if desc.Extent.IsZero() {
		dev.d.violate(dev.in, "swapchain with zero extent")
		return 0, vk.ErrInitializationFailed
	}
	for h, o := range dev.objects {
		if sc, ok := o.(*swapchain); ok && sc.surface == desc.Surface && !sc.retired && vk.Swapchain(h) != desc.OldSwapchain {
			dev.d.violate(dev.in, "surface %d already has swapchain %d", desc.Surface, h)
		}
	}
	if desc.OldSwapchain != vk.NullSwapchain {
		old, ok := lookup[*swapchain](dev, uint64(desc.OldSwapchain), "swapchain")
		if ok {
			old.retired = true
		}
	}

	st := &swapchain{
		surface:  desc.Surface,
		window:   surf.w,
		extent:   desc.Extent,
		format:   desc.Format.Format,
		acquired: make([]bool, desc.MinImageCount),
	}
	// Capture copies out of swapchain images.
	usage := textureUsage(desc.Usage) | gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc
	var textures []hal.Texture
	for i := range desc.MinImageCount {
		tex, err := dev.createTexture(fmt.Sprintf("swapchain[%d]", i), st.format, desc.Extent, usage)
		if err != nil {
			for _, t := range textures {
				dev.destroyTexture(t)
			}
			return 0, err
		}
		textures = append(textures, tex)
	}
	sc := vk.Swapchain(dev.add(st))
	for i, tex := range textures {
		img := &deviceImage{tex: tex, label: fmt.Sprintf("swapchain[%d]", i), format: st.format, extent: desc.Extent, sc: sc}
		st.images = append(st.images, vk.Image(dev.add(img)))
	}
	dev.d.stats.Swapchains++
	logging.L().Debug("offscreen: swapchain created", "extent", desc.Extent, "images", len(st.images), "format", st.format)
	return sc, nil
}

func (dev *device) DestroySwapchain(h vk.Swapchain) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	st, ok := lookup[*swapchain](dev, uint64(h), "swapchain")
	if !ok {
		return
	}
	for _, ih := range st.images {
		img := dev.objects[uint64(ih)].(*deviceImage)
		for _, o := range dev.objects {
			if v, ok := o.(*imageView); ok && v.image == ih {
				dev.d.violate(dev.in, "destroy of swapchain %d while a view of %s is alive", h, img.label)
			}
		}
		dev.destroyTexture(img.tex)
		delete(dev.objects, uint64(ih))
	}
	if p := dev.d.last; p != nil && p.dev == dev && p.sc == h {
		dev.d.last = nil
	}
	dev.remove(uint64(h), "swapchain")
	dev.d.stats.Swapchains--
}

func (dev *device) SwapchainImages(h vk.Swapchain) ([]vk.Image, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return nil, err
	}
	st, ok := lookup[*swapchain](dev, uint64(h), "swapchain")
	if !ok {
		return nil, vk.ErrUnknown
	}
	return append([]vk.Image(nil), st.images...), nil
}

// AcquireNextImage hands out images round-robin. A retired swapchain or a
// minimized window is out of date; a window whose size no longer matches
// the swapchain still works but is suboptimal.
func (dev *device) AcquireNextImage(h vk.Swapchain, timeout time.Duration, sem vk.Semaphore) (uint32, bool, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, false, err
	}
	st, ok := lookup[*swapchain](dev, uint64(h), "swapchain")
	if !ok {
		return 0, false, vk.ErrUnknown
	}
	size := st.window.DrawableSize()
	if st.retired || size.IsZero() {
		return 0, false, vk.ErrOutOfDate
	}
	s, ok := lookup[*semaphore](dev, uint64(sem), "semaphore")
	if !ok {
		return 0, false, vk.ErrUnknown
	}
	if s.signaled {
		dev.d.violate(dev.in, "acquire with already signaled semaphore %d", sem)
	}
	n := uint32(len(st.images))
	for range n {
		idx := st.next
		st.next = (st.next + 1) % n
		if st.acquired[idx] {
			continue
		}
		st.acquired[idx] = true
		s.signaled = true
		return idx, size != st.extent, nil
	}
	dev.d.violate(dev.in, "acquire with every image of swapchain %d already acquired", h)
	return 0, false, vk.ErrTimeout
}

func (dev *device) CreateCommandPool(desc *vk.CommandPoolDescriptor) (vk.CommandPool, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	if desc.QueueFamily != 0 {
		dev.d.violate(dev.in, "command pool for family %d", desc.QueueFamily)
	}
	return vk.CommandPool(dev.add(&commandPool{family: desc.QueueFamily})), nil
}

func (dev *device) DestroyCommandPool(h vk.CommandPool) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	pool, ok := lookup[*commandPool](dev, uint64(h), "command pool")
	if !ok {
		return
	}
	for _, cb := range pool.buffers {
		delete(dev.objects, uint64(cb))
	}
	dev.remove(uint64(h), "command pool")
}

func (dev *device) AllocateCommandBuffer(h vk.CommandPool) (vk.CommandBuffer, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	pool, ok := lookup[*commandPool](dev, uint64(h), "command pool")
	if !ok {
		return 0, vk.ErrUnknown
	}
	cb := vk.CommandBuffer(dev.add(&commandBuffer{}))
	pool.buffers = append(pool.buffers, cb)
	return cb, nil
}

func (dev *device) CreateSemaphore() (vk.Semaphore, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	return vk.Semaphore(dev.add(&semaphore{})), nil
}

func (dev *device) DestroySemaphore(h vk.Semaphore) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	dev.remove(uint64(h), "semaphore")
}

func (dev *device) CreateFence(signaled bool) (vk.Fence, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	return vk.Fence(dev.add(&fence{signaled: signaled})), nil
}

func (dev *device) DestroyFence(h vk.Fence) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	dev.remove(uint64(h), "fence")
}

// WaitForFence returns vk.ErrTimeout instead of blocking forever on a fence
// that no submit will signal.
func (dev *device) WaitForFence(h vk.Fence, timeout time.Duration) error {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return err
	}
	f, ok := lookup[*fence](dev, uint64(h), "fence")
	if !ok {
		return vk.ErrUnknown
	}
	if f.signaled {
		return nil
	}
	if f.value == 0 {
		dev.d.violate(dev.in, "wait on fence %d that nothing will signal", h)
		return vk.ErrTimeout
	}
	if timeout == vk.Infinite {
		timeout = forever
	}
	if err := dev.waitValue(f.value, timeout); err != nil {
		return err
	}
	f.signaled = true
	f.value = 0
	return nil
}

func (dev *device) ResetFence(h vk.Fence) error {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return err
	}
	f, ok := lookup[*fence](dev, uint64(h), "fence")
	if !ok {
		return vk.ErrUnknown
	}
	if f.value != 0 {
		dev.d.violate(dev.in, "reset of fence %d with pending work", h)
	}
	*f = fence{}
	return nil
}

func (dev *device) CreateShaderModule(desc *vk.ShaderModuleDescriptor) (vk.ShaderModule, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	if len(desc.Code) == 0 || desc.Code[0] != 0x07230203 {
		return 0, fmt.Errorf("offscreen: shader module %q is not SPIR-V: %w", desc.Label, vk.ErrInitializationFailed)
	}
	m, err := dev.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: hal.ShaderSource{SPIRV: desc.Code},
	})
	if err != nil {
		return 0, halError("create shader module "+desc.Label, vk.ErrInitializationFailed, err)
	}
	return vk.ShaderModule(dev.add(&shaderModule{module: m})), nil
}

func (dev *device) DestroyShaderModule(h vk.ShaderModule) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if m, ok := lookup[*shaderModule](dev, uint64(h), "shader module"); ok {
		dev.hal.DestroyShaderModule(m.module)
		dev.remove(uint64(h), "shader module")
	}
}

func shaderStages(s vk.ShaderStages) gputypes.ShaderStages {
	var out gputypes.ShaderStages
	if s&vk.ShaderVertex != 0 {
		out |= gputypes.ShaderStageVertex
	}
	if s&vk.ShaderFragment != 0 {
		out |= gputypes.ShaderStageFragment
	}
	return out
}

func (dev *device) CreateDescriptorSetLayout(desc *vk.DescriptorSetLayoutDescriptor) (vk.DescriptorSetLayout, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(desc.Bindings))
	for _, b := range desc.Bindings {
		e := gputypes.BindGroupLayoutEntry{Binding: b.Binding, Visibility: shaderStages(b.Stages)}
		switch b.Type {
		case vk.DescriptorSampledImage, vk.DescriptorInputAttachment:
			e.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case vk.DescriptorUniformBuffer:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		default:
			return 0, fmt.Errorf("offscreen: set layout %q: descriptor type %d: %w", desc.Label, b.Type, vk.ErrFormatNotSupported)
		}
		entries = append(entries, e)
	}
	l, err := dev.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: desc.Label, Entries: entries})
	if err != nil {
		return 0, halError("create set layout "+desc.Label, vk.ErrOutOfHostMemory, err)
	}
	return vk.DescriptorSetLayout(dev.add(&setLayout{layout: l, bindings: append([]vk.DescriptorBinding(nil), desc.Bindings...)})), nil
}

func (dev *device) DestroyDescriptorSetLayout(h vk.DescriptorSetLayout) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if l, ok := lookup[*setLayout](dev, uint64(h), "descriptor set layout"); ok {
		dev.hal.DestroyBindGroupLayout(l.layout)
		dev.remove(uint64(h), "descriptor set layout")
	}
}

func (dev *device) CreateDescriptorPool(desc *vk.DescriptorPoolDescriptor) (vk.DescriptorPool, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	return vk.DescriptorPool(dev.add(&descriptorPool{maxSets: desc.MaxSets})), nil
}

func (dev *device) DestroyDescriptorPool(h vk.DescriptorPool) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	pool, ok := lookup[*descriptorPool](dev, uint64(h), "descriptor pool")
	if !ok {
		return
	}
	for _, s := range pool.sets {
		if set, ok := dev.objects[uint64(s)].(*descriptorSet); ok && set.group != nil {
			dev.hal.DestroyBindGroup(set.group)
		}
		delete(dev.objects, uint64(s))
	}
	dev.remove(uint64(h), "descriptor pool")
}

func (dev *device) AllocateDescriptorSet(h vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	pool, ok := lookup[*descriptorPool](dev, uint64(h), "descriptor pool")
	if !ok {
		return 0, vk.ErrUnknown
	}
	if _, ok := lookup[*setLayout](dev, uint64(layout), "descriptor set layout"); !ok {
		return 0, vk.ErrUnknown
	}
	if uint32(len(pool.sets)) >= pool.maxSets {
		return 0, fmt.Errorf("offscreen: descriptor pool %d exhausted: %w", h, vk.ErrOutOfHostMemory)
	}
	s := vk.DescriptorSet(dev.add(&descriptorSet{pool: h, layout: layout, views: make(map[uint32]vk.ImageView)}))
	pool.sets = append(pool.sets, s)
	return s, nil
}

// UpdateDescriptorSets rebuilds the bind group of every set whose bindings
// are all written. HAL bind groups are immutable.
func (dev *device) UpdateDescriptorSets(writes []vk.DescriptorImageWrite) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	touched := map[vk.DescriptorSet]*descriptorSet{}
	for _, w := range writes {
		set, ok := lookup[*descriptorSet](dev, uint64(w.Set), "descriptor set")
		if !ok {
			continue
		}
		if _, ok := lookup[*imageView](dev, uint64(w.View), "image view"); !ok {
			continue
		}
		set.views[w.Binding] = w.View
		touched[w.Set] = set
	}
	for h, set := range touched {
		layout, ok := lookup[*setLayout](dev, uint64(set.layout), "descriptor set layout")
		if !ok || len(set.views) < len(layout.bindings) {
			continue
		}
		entries := make([]gputypes.BindGroupEntry, 0, len(layout.bindings))
		for _, b := range layout.bindings {
			v := dev.objects[uint64(set.views[b.Binding])].(*imageView)
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  b.Binding,
				Resource: gputypes.TextureViewBinding{TextureView: v.view.NativeHandle()},
			})
		}
		group, err := dev.hal.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("set%d", h),
			Layout:  layout.layout,
			Entries: entries,
		})
		if err != nil {
			dev.d.report(vk.SeverityError, "general", "descriptor set %d: create bind group: %v", h, err)
			continue
		}
		if set.group != nil {
			dev.hal.DestroyBindGroup(set.group)
		}
		set.group = group
	}
}

func (dev *device) CreatePipelineLayout(desc *vk.PipelineLayoutDescriptor) (vk.PipelineLayout, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	layouts := make([]hal.BindGroupLayout, 0, len(desc.SetLayouts))
	for _, h := range desc.SetLayouts {
		l, ok := lookup[*setLayout](dev, uint64(h), "descriptor set layout")
		if !ok {
			return 0, vk.ErrUnknown
		}
		layouts = append(layouts, l.layout)
	}
	l, err := dev.hal.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{Label: desc.Label, BindGroupLayouts: layouts})
	if err != nil {
		return 0, halError("create pipeline layout "+desc.Label, vk.ErrOutOfHostMemory, err)
	}
	return vk.PipelineLayout(dev.add(&pipelineLayout{layout: l})), nil
}

func (dev *device) DestroyPipelineLayout(h vk.PipelineLayout) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if l, ok := lookup[*pipelineLayout](dev, uint64(h), "pipeline layout"); ok {
		dev.hal.DestroyPipelineLayout(l.layout)
		dev.remove(uint64(h), "pipeline layout")
	}
}

// CreateGraphicsPipeline takes its target formats from the render pass.
func (dev *device) CreateGraphicsPipeline(desc *vk.GraphicsPipelineDescriptor) (vk.Pipeline, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	layout, lok := lookup[*pipelineLayout](dev, uint64(desc.Layout), "pipeline layout")
	rp, rok := lookup[*renderPass](dev, uint64(desc.RenderPass), "render pass")
	vs, vok := lookup[*shaderModule](dev, uint64(desc.VertexModule), "shader module")
	fs, fok := lookup[*shaderModule](dev, uint64(desc.FragmentModule), "shader module")
	if !lok || !rok || !vok || !fok {
		return 0, vk.ErrUnknown
	}
	if int(desc.ColorTargets) != len(rp.desc.Color) {
		dev.d.violate(dev.in, "pipeline %q writes %d targets, render pass %q has %d", desc.Label, desc.ColorTargets, rp.desc.Label, len(rp.desc.Color))
	}

	targets := make([]gputypes.ColorTargetState, 0, len(rp.desc.Color))
	for _, ref := range rp.desc.Color {
		tf, _ := rp.desc.Attachments[ref.Index].Format.TextureFormat()
		targets = append(targets, gputypes.ColorTargetState{Format: tf, WriteMask: gputypes.ColorWriteMaskAll})
	}
	var depth *hal.DepthStencilState
	if ref := rp.desc.DepthStencil; ref != nil {
		tf, _ := rp.desc.Attachments[ref.Index].Format.TextureFormat()
		compare := gputypes.CompareFunctionAlways
		if desc.DepthTest {
			compare = gputypes.CompareFunctionLess
		}
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		depth = &hal.DepthStencilState{
			Format:            tf,
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      keep,
			StencilBack:       keep,
		}
	}

	p, err := dev.hal.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.layout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: desc.VertexEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     fs.module,
			EntryPoint: desc.FragmentEntry,
			Targets:    targets,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: desc.Topology,
			CullMode: gputypes.CullModeNone,
		},
		DepthStencil: depth,
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return 0, halError("create pipeline "+desc.Label, vk.ErrInitializationFailed, err)
	}
	return vk.Pipeline(dev.add(&pipeline{pipeline: p, label: desc.Label})), nil
}

func (dev *device) DestroyPipeline(h vk.Pipeline) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if p, ok := lookup[*pipeline](dev, uint64(h), "pipeline"); ok {
		dev.hal.DestroyRenderPipeline(p.pipeline)
		dev.remove(uint64(h), "pipeline")
	}
}

// CreateRenderPass only validates and stores desc; HAL render passes are
// described per use.
func (dev *device) CreateRenderPass(desc *vk.RenderPassDescriptor) (vk.RenderPass, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	refs := append([]vk.AttachmentRef(nil), desc.Color...)
	if desc.DepthStencil != nil {
		refs = append(refs, *desc.DepthStencil)
	}
	for _, ref := range refs {
		if int(ref.Index) >= len(desc.Attachments) {
			return 0, fmt.Errorf("offscreen: render pass %q: attachment ref %d out of range: %w", desc.Label, ref.Index, vk.ErrInitializationFailed)
		}
		if _, ok := desc.Attachments[ref.Index].Format.TextureFormat(); !ok {
			return 0, fmt.Errorf("offscreen: render pass %q: %v: %w", desc.Label, desc.Attachments[ref.Index].Format, vk.ErrFormatNotSupported)
		}
	}
	c := *desc
	c.Attachments = append([]vk.AttachmentDescription(nil), desc.Attachments...)
	c.Color = append([]vk.AttachmentRef(nil), desc.Color...)
	if desc.DepthStencil != nil {
		ds := *desc.DepthStencil
		c.DepthStencil = &ds
	}
	return vk.RenderPass(dev.add(&renderPass{desc: c})), nil
}

func (dev *device) DestroyRenderPass(h vk.RenderPass) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	dev.remove(uint64(h), "render pass")
}

func (dev *device) CreateFramebuffer(desc *vk.FramebufferDescriptor) (vk.Framebuffer, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return 0, err
	}
	rp, ok := lookup[*renderPass](dev, uint64(desc.RenderPass), "render pass")
	if !ok {
		return 0, vk.ErrUnknown
	}
	if len(desc.Attachments) != len(rp.desc.Attachments) {
		dev.d.violate(dev.in, "framebuffer %q has %d views, render pass %q has %d attachments",
			desc.Label, len(desc.Attachments), rp.desc.Label, len(rp.desc.Attachments))
	}
	for _, v := range desc.Attachments {
		if _, ok := lookup[*imageView](dev, uint64(v), "image view"); !ok {
			return 0, vk.ErrUnknown
		}
	}
	fb := &framebuffer{pass: desc.RenderPass, views: append([]vk.ImageView(nil), desc.Attachments...), extent: desc.Extent}
	return vk.Framebuffer(dev.add(fb)), nil
}

func (dev *device) DestroyFramebuffer(h vk.Framebuffer) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	dev.remove(uint64(h), "framebuffer")
}

func (dev *device) Destroy() {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if len(dev.objects) > 0 {
		dev.d.violate(dev.in, "destroy of device with %d live objects %v", len(dev.objects), dev.leaked())
	}
	if !dev.lost {
		if err := dev.waitValue(dev.submitted, forever); err != nil {
			logging.L().Warn("offscreen: wait before device destroy failed", "err", err)
		}
	}
	for _, f := range dev.inflight {
		dev.hal.FreeCommandBuffer(f.cb)
	}
	dev.inflight = nil
	dev.hal.DestroyFence(dev.timeline)
	dev.hal.Destroy()
	for i, o := range dev.in.devices {
		if o == dev {
			dev.in.devices = append(dev.in.devices[:i], dev.in.devices[i+1:]...)
			break
		}
	}
	if p := dev.d.last; p != nil && p.dev == dev {
		dev.d.last = nil
	}
	dev.d.stats.Devices--
}
