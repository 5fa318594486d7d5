// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vktest

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/rendercore/vk"
)

type device struct {
	d      *Driver
	id     uint64
	spec   *PhysicalDeviceSpec
	queues map[uint32]vk.Queue
	lost   bool
}

// check runs fault injection for op and reports device loss. d.mu must be
// held.
func (dev *device) check(op string) error {
	if err := dev.d.call(op); err != nil {
		if errors.Is(err, vk.ErrDeviceLost) {
			dev.lost = true
		}
		return err
	}
	if dev.lost {
		return vk.ErrDeviceLost
	}
	return nil
}

func (dev *device) Queue(family uint32) vk.Queue {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	q, ok := dev.queues[family]
	if !ok {
		dev.d.violate("queue of family %d was not requested", family)
	}
	return q
}

func (dev *device) WaitIdle() error {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	return dev.check("WaitIdle")
}

func (dev *device) CreateImage(desc *vk.ImageDescriptor) (vk.Image, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateImage"); err != nil {
		return 0, err
	}
	if desc.Size.Width == 0 || desc.Size.Height == 0 {
		d.violate("image %q with zero extent", desc.Label)
	}
	return vk.Image(d.create(KindImage, dev.id, desc.Label)), nil
}

func (dev *device) DestroyImage(img vk.Image) {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	dev.d.destroy(KindImage, uint64(img))
}

func (dev *device) ImageMemoryRequirements(img vk.Image) vk.MemoryRequirements {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.alive(KindImage, uint64(img)) {
		d.violate("memory requirements of dead image#%d", img)
	}
	return vk.MemoryRequirements{Size: 1 << 20, Alignment: 256, TypeBits: dev.spec.ImageTypeBits}
}

func (dev *device) AllocateMemory(size uint64, memoryType uint32) (vk.DeviceMemory, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("AllocateMemory"); err != nil {
		return 0, err
	}
	if int(memoryType) >= len(dev.spec.Memory.Types) {
		d.violate("allocation from memory type %d out of range", memoryType)
		return 0, vk.ErrOutOfDeviceMemory
	}
	return vk.DeviceMemory(d.create(KindMemory, dev.id, "")), nil
}

func (dev *device) FreeMemory(mem vk.DeviceMemory) {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	dev.d.destroy(KindMemory, uint64(mem))
}

func (dev *device) BindImageMemory(img vk.Image, mem vk.DeviceMemory, offset uint64) error {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("BindImageMemory"); err != nil {
		return err
	}
	if !d.alive(KindImage, uint64(img)) || !d.alive(KindMemory, uint64(mem)) {
		d.violate("bind of image#%d to memory#%d with a dead handle", img, mem)
	}
	return nil
}

func (dev *device) CreateImageView(desc *vk.ImageViewDescriptor) (vk.ImageView, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateImageView"); err != nil {
		return 0, err
	}
	if _, ok := d.swapchainImages[desc.Image]; !ok && !d.alive(KindImage, uint64(desc.Image)) {
		d.violate("view %q of dead image#%d", desc.Label, desc.Image)
	}
	return vk.ImageView(d.create(KindImageView, dev.id, desc.Label)), nil
}

func (dev *device) DestroyImageView(v vk.ImageView) {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	dev.d.destroy(KindImageView, uint64(v))
}

func (dev *device) CreateSwapchain(desc *vk.SwapchainDescriptor) (vk.Swapchain, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateSwapchain"); err != nil {
		return 0, err
	}
	if _, ok := d.surfaces[desc.Surface]; !ok {
		return 0, fmt.Errorf("vktest: swapchain for dead surface#%d: %w", desc.Surface, vk.ErrSurfaceLost)
	}
	if desc.Extent.IsZero() {
		d.violate("swapchain with zero extent %v", desc.Extent)
	}
	if desc.OldSwapchain != vk.NullSwapchain && !d.alive(KindSwapchain, uint64(desc.OldSwapchain)) {
		d.violate("old swapchain#%d is not alive", desc.OldSwapchain)
	}
	for sc, st := range d.swapchains {
		if st.surface == desc.Surface && !st.retired && sc != desc.OldSwapchain {
			d.violate("surface#%d already has swapchain#%d", desc.Surface, sc)
		}
	}
	if old, ok := d.swapchains[desc.OldSwapchain]; ok {
		old.retired = true
	}
	sc := vk.Swapchain(d.create(KindSwapchain, dev.id, desc.Extent.String()))
	st := &swapchainState{surface: desc.Surface, extent: desc.Extent}
	for i := uint32(0); i < desc.MinImageCount; i++ {
		d.next++
		img := vk.Image(d.next)
		st.images = append(st.images, img)
		d.swapchainImages[img] = sc
	}
	d.swapchains[sc] = st
	return sc, nil
}

func (dev *device) DestroySwapchain(sc vk.Swapchain) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.destroy(KindSwapchain, uint64(sc)) {
		return
	}
	for _, img := range d.swapchains[sc].images {
		delete(d.swapchainImages, img)
	}
	delete(d.swapchains, sc)
}

func (dev *device) SwapchainImages(sc vk.Swapchain) ([]vk.Image, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("SwapchainImages"); err != nil {
		return nil, err
	}
	st, ok := d.swapchains[sc]
	if !ok {
		d.violate("images of dead swapchain#%d", sc)
		return nil, vk.ErrUnknown
	}
	return append([]vk.Image(nil), st.images...), nil
}

func (dev *device) AcquireNextImage(sc vk.Swapchain, timeout time.Duration, sem vk.Semaphore) (uint32, bool, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("AcquireNextImage"); err != nil {
		return 0, false, err
	}
	st, ok := d.swapchains[sc]
	if !ok {
		d.violate("acquire from dead swapchain#%d", sc)
		return 0, false, vk.ErrUnknown
	}
	if st.retired {
		return 0, false, vk.ErrOutOfDate
	}
	if w := d.surfaces[st.surface]; d.StrictExtent && w != nil && w.DrawableSize() != st.extent {
		return 0, false, vk.ErrOutOfDate
	}
	if signaled, ok := d.semaphores[sem]; !ok {
		d.violate("acquire with dead semaphore#%d", sem)
	} else if signaled {
		d.violate("acquire with already signaled semaphore#%d", sem)
	}
	d.semaphores[sem] = true
	idx := st.next
	st.next = (st.next + 1) % uint32(len(st.images))
	suboptimal := d.suboptimalAcquires > 0
	if suboptimal {
		d.suboptimalAcquires--
	}
	return idx, suboptimal, nil
}

func (dev *device) CreateCommandPool(desc *vk.CommandPoolDescriptor) (vk.CommandPool, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateCommandPool"); err != nil {
		return 0, err
	}
	if _, ok := dev.queues[desc.QueueFamily]; !ok {
		d.violate("command pool for unrequested family %d", desc.QueueFamily)
	}
	return vk.CommandPool(d.create(KindCommandPool, dev.id, "")), nil
}

func (dev *device) DestroyCommandPool(pool vk.CommandPool) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(KindCommandPool, uint64(pool)) {
		for cb, st := range d.cmds {
			if st.pool == pool {
				delete(d.cmds, cb)
			}
		}
	}
}

func (dev *device) AllocateCommandBuffer(pool vk.CommandPool) (vk.CommandBuffer, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("AllocateCommandBuffer"); err != nil {
		return 0, err
	}
	if !d.alive(KindCommandPool, uint64(pool)) {
		d.violate("command buffer from dead pool#%d", pool)
	}
	d.next++
	cb := vk.CommandBuffer(d.next)
	d.cmds[cb] = &cmdState{pool: pool}
	return cb, nil
}

func (dev *device) cmd(op string, cb vk.CommandBuffer) *cmdState {
	st, ok := dev.d.cmds[cb]
	if !ok {
		dev.d.violate("%s on freed command buffer %d", op, cb)
		return &cmdState{}
	}
	return st
}

func (dev *device) ResetCommandBuffer(cb vk.CommandBuffer) error {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("ResetCommandBuffer"); err != nil {
		return err
	}
	st := dev.cmd("reset", cb)
	*st = cmdState{pool: st.pool}
	return nil
}

func (dev *device) BeginCommandBuffer(cb vk.CommandBuffer) error {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("BeginCommandBuffer"); err != nil {
		return err
	}
	st := dev.cmd("begin", cb)
	if st.recording {
		d.violate("begin of command buffer %d that is already recording", cb)
	}
	*st = cmdState{pool: st.pool, recording: true}
	return nil
}

func (dev *device) EndCommandBuffer(cb vk.CommandBuffer) error {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("EndCommandBuffer"); err != nil {
		return err
	}
	st := dev.cmd("end", cb)
	if !st.recording {
		d.violate("end of command buffer %d that is not recording", cb)
	}
	if st.inPass {
		d.violate("end of command buffer %d inside a render pass", cb)
	}
	st.recording = false
	st.ended = true
	return nil
}

func (dev *device) CreateSemaphore() (vk.Semaphore, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateSemaphore"); err != nil {
		return 0, err
	}
	s := vk.Semaphore(d.create(KindSemaphore, dev.id, ""))
	d.semaphores[s] = false
	return s, nil
}

func (dev *device) DestroySemaphore(s vk.Semaphore) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(KindSemaphore, uint64(s)) {
		delete(d.semaphores, s)
	}
}

func (dev *device) CreateFence(signaled bool) (vk.Fence, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateFence"); err != nil {
		return 0, err
	}
	f := vk.Fence(d.create(KindFence, dev.id, ""))
	d.fences[f] = &fenceState{signaled: signaled}
	return f, nil
}

func (dev *device) DestroyFence(f vk.Fence) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(KindFence, uint64(f)) {
		delete(d.fences, f)
	}
}

func (dev *device) WaitForFence(f vk.Fence, timeout time.Duration) error {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("WaitForFence"); err != nil {
		return err
	}
	st, ok := d.fences[f]
	if !ok {
		d.violate("wait on dead fence#%d", f)
		return vk.ErrUnknown
	}
	if !st.signaled {
		d.violate("wait on fence#%d that nothing will signal", f)
		return ErrDeadlock
	}
	return nil
}

func (dev *device) ResetFence(f vk.Fence) error {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("ResetFence"); err != nil {
		return err
	}
	st, ok := d.fences[f]
	if !ok {
		d.violate("reset of dead fence#%d", f)
		return vk.ErrUnknown
	}
	st.signaled = false
	return nil
}

func (dev *device) CreateShaderModule(desc *vk.ShaderModuleDescriptor) (vk.ShaderModule, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateShaderModule"); err != nil {
		return 0, err
	}
	if len(desc.Code) == 0 || desc.Code[0] != 0x07230203 {
		d.violate("shader module %q is not SPIR-V", desc.Label)
	}
	return vk.ShaderModule(d.create(KindShaderModule, dev.id, desc.Label)), nil
}

func (dev *device) DestroyShaderModule(m vk.ShaderModule) {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	dev.d.destroy(KindShaderModule, uint64(m))
}

func (dev *device) CreateDescriptorSetLayout(desc *vk.DescriptorSetLayoutDescriptor) (vk.DescriptorSetLayout, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateDescriptorSetLayout"); err != nil {
		return 0, err
	}
	return vk.DescriptorSetLayout(d.create(KindDescriptorSetLayout, dev.id, desc.Label)), nil
}

func (dev *device) DestroyDescriptorSetLayout(l vk.DescriptorSetLayout) {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	dev.d.destroy(KindDescriptorSetLayout, uint64(l))
}

func (dev *device) CreateDescriptorPool(desc *vk.DescriptorPoolDescriptor) (vk.DescriptorPool, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateDescriptorPool"); err != nil {
		return 0, err
	}
	return vk.DescriptorPool(d.create(KindDescriptorPool, dev.id, desc.Label)), nil
}

func (dev *device) DestroyDescriptorPool(p vk.DescriptorPool) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(KindDescriptorPool, uint64(p)) {
		for s, pool := range d.sets {
			if pool == p {
				delete(d.sets, s)
			}
		}
	}
}

func (dev *device) AllocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("AllocateDescriptorSet"); err != nil {
		return 0, err
	}
	if !d.alive(KindDescriptorPool, uint64(pool)) || !d.alive(KindDescriptorSetLayout, uint64(layout)) {
		d.violate("descriptor set from dead pool#%d or layout#%d", pool, layout)
	}
	d.next++
	s := vk.DescriptorSet(d.next)
	d.sets[s] = pool
	return s, nil
}

func (dev *device) UpdateDescriptorSets(writes []vk.DescriptorImageWrite) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range writes {
		if _, ok := d.sets[w.Set]; !ok {
			d.violate("update of freed descriptor set %d", w.Set)
		}
		if !d.alive(KindImageView, uint64(w.View)) {
			d.violate("descriptor write of dead view#%d", w.View)
		}
	}
}

func (dev *device) CreatePipelineLayout(desc *vk.PipelineLayoutDescriptor) (vk.PipelineLayout, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreatePipelineLayout"); err != nil {
		return 0, err
	}
	for _, l := range desc.SetLayouts {
		if !d.alive(KindDescriptorSetLayout, uint64(l)) {
			d.violate("pipeline layout %q with dead set layout#%d", desc.Label, l)
		}
	}
	return vk.PipelineLayout(d.create(KindPipelineLayout, dev.id, desc.Label)), nil
}

func (dev *device) DestroyPipelineLayout(l vk.PipelineLayout) {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	dev.d.destroy(KindPipelineLayout, uint64(l))
}

func (dev *device) CreateGraphicsPipeline(desc *vk.GraphicsPipelineDescriptor) (vk.Pipeline, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateGraphicsPipeline"); err != nil {
		return 0, err
	}
	if !d.alive(KindRenderPass, uint64(desc.RenderPass)) ||
		!d.alive(KindPipelineLayout, uint64(desc.Layout)) ||
		!d.alive(KindShaderModule, uint64(desc.VertexModule)) ||
		!d.alive(KindShaderModule, uint64(desc.FragmentModule)) {
		d.violate("pipeline %q references a dead object", desc.Label)
	}
	return vk.Pipeline(d.create(KindPipeline, dev.id, desc.Label)), nil
}

func (dev *device) DestroyPipeline(p vk.Pipeline) {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	dev.d.destroy(KindPipeline, uint64(p))
}

func (dev *device) CreateRenderPass(desc *vk.RenderPassDescriptor) (vk.RenderPass, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateRenderPass"); err != nil {
		return 0, err
	}
	for _, ref := range desc.Color {
		if int(ref.Index) >= len(desc.Attachments) {
			d.violate("render pass %q color ref %d out of range", desc.Label, ref.Index)
		}
	}
	return vk.RenderPass(d.create(KindRenderPass, dev.id, desc.Label)), nil
}

func (dev *device) DestroyRenderPass(rp vk.RenderPass) {
	dev.d.mu.Lock()
	defer dev.d.mu.Unlock()
	dev.d.destroy(KindRenderPass, uint64(rp))
}

func (dev *device) CreateFramebuffer(desc *vk.FramebufferDescriptor) (vk.Framebuffer, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("CreateFramebuffer"); err != nil {
		return 0, err
	}
	if !d.alive(KindRenderPass, uint64(desc.RenderPass)) {
		d.violate("framebuffer %q for dead render pass#%d", desc.Label, desc.RenderPass)
	}
	for _, v := range desc.Attachments {
		if !d.alive(KindImageView, uint64(v)) {
			d.violate("framebuffer %q with dead view#%d", desc.Label, v)
		}
	}
	fb := vk.Framebuffer(d.create(KindFramebuffer, dev.id, desc.Label))
	d.framebuffers[fb] = append([]vk.ImageView(nil), desc.Attachments...)
	return fb, nil
}

func (dev *device) DestroyFramebuffer(fb vk.Framebuffer) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(KindFramebuffer, uint64(fb)) {
		delete(d.framebuffers, fb)
	}
}

func (dev *device) label(h uint64) string { return dev.d.live[h].label }

func (dev *device) record(op string, cb vk.CommandBuffer, text string) *cmdState {
	st := dev.cmd(op, cb)
	if !st.recording {
		dev.d.violate("%s outside recording on command buffer %d", op, cb)
	}
	st.commands = append(st.commands, text)
	return st
}

var objectKinds = map[vk.ObjectType]Kind{
	vk.ObjectTypeDevice:              KindDevice,
	vk.ObjectTypeSemaphore:           KindSemaphore,
	vk.ObjectTypeFence:               KindFence,
	vk.ObjectTypeDeviceMemory:        KindMemory,
	vk.ObjectTypeImage:               KindImage,
	vk.ObjectTypeImageView:           KindImageView,
	vk.ObjectTypeShaderModule:        KindShaderModule,
	vk.ObjectTypePipelineLayout:      KindPipelineLayout,
	vk.ObjectTypeRenderPass:          KindRenderPass,
	vk.ObjectTypePipeline:            KindPipeline,
	vk.ObjectTypeDescriptorSetLayout: KindDescriptorSetLayout,
	vk.ObjectTypeDescriptorPool:      KindDescriptorPool,
	vk.ObjectTypeFramebuffer:         KindFramebuffer,
	vk.ObjectTypeCommandPool:         KindCommandPool,
	vk.ObjectTypeSwapchain:           KindSwapchain,
}

// SetObjectName records name for h. Naming a handle that is not alive, or
// naming it as the wrong type, is a violation.
func (dev *device) SetObjectName(typ vk.ObjectType, h uint64, name string) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["SetObjectName"]++
	var ok bool
	switch typ {
	case vk.ObjectTypeCommandBuffer:
		_, ok = d.cmds[vk.CommandBuffer(h)]
	case vk.ObjectTypeDescriptorSet:
		_, ok = d.sets[vk.DescriptorSet(h)]
	default:
		kind, known := objectKinds[typ]
		if known && kind == KindImage {
			_, ok = d.swapchainImages[vk.Image(h)]
		}
		ok = ok || known && d.alive(kind, h)
	}
	if !ok {
		d.violate("name %q given to dead or mistyped %s#%d", name, typ, h)
		return
	}
	d.names[h] = name
}

func (dev *device) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	st := dev.record("CmdBeginRenderPass", cb, "begin_render_pass "+dev.label(uint64(info.RenderPass)))
	if st.inPass {
		d.violate("nested render pass on command buffer %d", cb)
	}
	st.inPass = true
	if !d.alive(KindRenderPass, uint64(info.RenderPass)) {
		d.violate("begin of dead render pass#%d", info.RenderPass)
	}
	views, ok := d.framebuffers[info.Framebuffer]
	if !ok {
		d.violate("begin with dead framebuffer#%d", info.Framebuffer)
	}
	for _, v := range views {
		if !d.alive(KindImageView, uint64(v)) {
			d.violate("framebuffer#%d uses dead view#%d", info.Framebuffer, v)
		}
	}
}

func (dev *device) CmdEndRenderPass(cb vk.CommandBuffer) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	st := dev.record("CmdEndRenderPass", cb, "end_render_pass")
	if !st.inPass {
		d.violate("end of render pass that was not begun on command buffer %d", cb)
	}
	st.inPass = false
}

func (dev *device) CmdBindPipeline(cb vk.CommandBuffer, p vk.Pipeline) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.alive(KindPipeline, uint64(p)) {
		d.violate("bind of dead pipeline#%d", p)
	}
	dev.record("CmdBindPipeline", cb, "bind_pipeline "+dev.label(uint64(p)))
}

func (dev *device) CmdBindDescriptorSet(cb vk.CommandBuffer, layout vk.PipelineLayout, set vk.DescriptorSet) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sets[set]; !ok {
		d.violate("bind of freed descriptor set %d", set)
	}
	dev.record("CmdBindDescriptorSet", cb, "bind_descriptor_set")
}

func (dev *device) CmdDraw(cb vk.CommandBuffer, vertexCount, instanceCount uint32) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	st := dev.record("CmdDraw", cb, fmt.Sprintf("draw %d %d", vertexCount, instanceCount))
	if !st.inPass {
		d.violate("draw outside a render pass on command buffer %d", cb)
	}
}

func (dev *device) QueueSubmit(q vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("QueueSubmit"); err != nil {
		return err
	}
	var recorded []string
	for _, s := range submits {
		if len(s.WaitStages) != len(s.WaitSemaphores) {
			d.violate("submit with %d wait semaphores and %d stages", len(s.WaitSemaphores), len(s.WaitStages))
		}
		for _, sem := range s.WaitSemaphores {
			if !d.semaphores[sem] {
				d.violate("submit waits on unsignaled semaphore#%d", sem)
			}
			d.semaphores[sem] = false
		}
		for _, cb := range s.CommandBuffers {
			st := dev.cmd("submit", cb)
			if !st.ended {
				d.violate("submit of command buffer %d that was not ended", cb)
			}
			recorded = append(recorded, st.commands...)
		}
		for _, sem := range s.SignalSemaphores {
			if d.semaphores[sem] {
				d.violate("submit signals semaphore#%d that is already signaled", sem)
			}
			d.semaphores[sem] = true
		}
	}
	if len(submits) > 0 {
		d.submits++
		d.lastSubmitted = recorded
	}
	if fence != 0 {
		st, ok := d.fences[fence]
		switch {
		case !ok:
			d.violate("submit signals dead fence#%d", fence)
		case st.signaled:
			d.violate("submit signals fence#%d that is already signaled", fence)
		default:
			st.signaled = true
		}
	}
	return nil
}

func (dev *device) QueuePresent(q vk.Queue, info *vk.PresentInfo) (bool, error) {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := dev.check("QueuePresent"); err != nil {
		// These failures still enqueue the present, so its waits execute.
		if errors.Is(err, vk.ErrOutOfDate) || errors.Is(err, vk.ErrSurfaceLost) {
			for _, sem := range info.WaitSemaphores {
				d.semaphores[sem] = false
			}
		}
		return false, err
	}
	st, ok := d.swapchains[info.Swapchain]
	if !ok {
		d.violate("present to dead swapchain#%d", info.Swapchain)
		return false, vk.ErrUnknown
	}
	if st.retired {
		for _, sem := range info.WaitSemaphores {
			d.semaphores[sem] = false
		}
		return false, vk.ErrOutOfDate
	}
	if int(info.ImageIndex) >= len(st.images) {
		d.violate("present of image %d out of range", info.ImageIndex)
	}
	for _, sem := range info.WaitSemaphores {
		if !d.semaphores[sem] {
			d.violate("present waits on unsignaled semaphore#%d", sem)
		}
		d.semaphores[sem] = false
	}
	d.presented = append(d.presented, Presentation{Swapchain: info.Swapchain, ImageIndex: info.ImageIndex, Extent: st.extent})
	suboptimal := d.suboptimalPresents > 0
	if suboptimal {
		d.suboptimalPresents--
	}
	return suboptimal, nil
}

func (dev *device) Destroy() {
	d := dev.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroy(KindDevice, dev.id) {
		delete(d.devices, dev.id)
	}
}
