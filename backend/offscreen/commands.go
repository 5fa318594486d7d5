// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package offscreen

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rendercore/vk"
)

type cbState int

const (
	cbInitial cbState = iota
	cbRecording
	cbExecutable
)

// command is one recorded operation. Handles are resolved when recorded so
// that a submit replays plain HAL calls.
type command struct {
	begin *hal.RenderPassDescriptor
	end   bool
	apply func(hal.RenderPassEncoder)
}

type commandBuffer struct {
	state    cbState
	inPass   bool
	commands []command
}

func (dev *device) commandBuffer(op string, h vk.CommandBuffer) (*commandBuffer, bool) {
	return lookup[*commandBuffer](dev, uint64(h), "command buffer ("+op+")")
}

func (dev *device) ResetCommandBuffer(h vk.CommandBuffer) error {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return err
	}
	cb, ok := dev.commandBuffer("reset", h)
	if !ok {
		return vk.ErrUnknown
	}
	*cb = commandBuffer{}
	return nil
}

func (dev *device) BeginCommandBuffer(h vk.CommandBuffer) error {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return err
	}
	cb, ok := dev.commandBuffer("begin", h)
	if !ok {
		return vk.ErrUnknown
	}
	if cb.state == cbRecording {
		dev.d.violate(dev.in, "begin of command buffer %d that is already recording", h)
	}
	*cb = commandBuffer{state: cbRecording}
	return nil
}

func (dev *device) EndCommandBuffer(h vk.CommandBuffer) error {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return err
	}
	cb, ok := dev.commandBuffer("end", h)
	if !ok {
		return vk.ErrUnknown
	}
	if cb.state != cbRecording {
		dev.d.violate(dev.in, "end of command buffer %d that is not recording", h)
	}
	if cb.inPass {
		dev.d.violate(dev.in, "end of command buffer %d inside a render pass", h)
		return vk.ErrUnknown
	}
	cb.state = cbExecutable
	return nil
}

// recording returns the command buffer if it may take a command. inPass
// tells whether the command belongs inside a render pass.
func (dev *device) recording(op string, h vk.CommandBuffer, inPass bool) (*commandBuffer, bool) {
	cb, ok := dev.commandBuffer(op, h)
	if !ok {
		return nil, false
	}
	if cb.state != cbRecording {
		dev.d.violate(dev.in, "%s on command buffer %d that is not recording", op, h)
		return nil, false
	}
	if cb.inPass != inPass {
		if inPass {
			dev.d.violate(dev.in, "%s outside a render pass on command buffer %d", op, h)
		} else {
			dev.d.violate(dev.in, "%s inside a render pass on command buffer %d", op, h)
		}
		return nil, false
	}
	return cb, true
}

func (dev *device) CmdBeginRenderPass(h vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	cb, ok := dev.recording("begin render pass", h, false)
	if !ok {
		return
	}
	rp, rok := lookup[*renderPass](dev, uint64(info.RenderPass), "render pass")
	fb, fok := lookup[*framebuffer](dev, uint64(info.Framebuffer), "framebuffer")
	if !rok || !fok {
		return
	}
	if fb.pass != info.RenderPass {
		dev.d.report(vk.SeverityWarning, "validation", "framebuffer %d was created for another render pass", info.Framebuffer)
	}
	views := make([]hal.TextureView, len(fb.views))
	for i, vh := range fb.views {
		v, ok := lookup[*imageView](dev, uint64(vh), "image view")
		if !ok {
			return
		}
		views[i] = v.view
	}
	clear := func(i uint32) vk.ClearValue {
		if int(i) < len(info.ClearValues) {
			return info.ClearValues[i]
		}
		return vk.ClearValue{}
	}

	desc := &hal.RenderPassDescriptor{Label: rp.desc.Label}
	for _, ref := range rp.desc.Color {
		a := rp.desc.Attachments[ref.Index]
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       views[ref.Index],
			LoadOp:     a.LoadOp,
			StoreOp:    a.StoreOp,
			ClearValue: clear(ref.Index).Color,
		})
	}
	if ref := rp.desc.DepthStencil; ref != nil {
		a := rp.desc.Attachments[ref.Index]
		cv := clear(ref.Index)
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              views[ref.Index],
			DepthLoadOp:       a.LoadOp,
			DepthStoreOp:      a.StoreOp,
			DepthClearValue:   cv.Depth,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpDiscard,
			StencilClearValue: cv.Stencil,
		}
	}
	cb.commands = append(cb.commands, command{begin: desc})
	cb.inPass = true
}

func (dev *device) CmdEndRenderPass(h vk.CommandBuffer) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	cb, ok := dev.recording("end render pass", h, true)
	if !ok {
		return
	}
	cb.commands = append(cb.commands, command{end: true})
	cb.inPass = false
}

func (dev *device) CmdBindPipeline(h vk.CommandBuffer, ph vk.Pipeline) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	cb, ok := dev.recording("bind pipeline", h, true)
	if !ok {
		return
	}
	p, ok := lookup[*pipeline](dev, uint64(ph), "pipeline")
	if !ok {
		return
	}
	cb.commands = append(cb.commands, command{apply: func(pe hal.RenderPassEncoder) {
		pe.SetPipeline(p.pipeline)
	}})
}

func (dev *device) CmdBindDescriptorSet(h vk.CommandBuffer, layout vk.PipelineLayout, sh vk.DescriptorSet) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	cb, ok := dev.recording("bind descriptor set", h, true)
	if !ok {
		return
	}
	set, ok := lookup[*descriptorSet](dev, uint64(sh), "descriptor set")
	if !ok {
		return
	}
	if set.group == nil {
		dev.d.violate(dev.in, "bind of descriptor set %d with unwritten bindings", sh)
		return
	}
	group := set.group
	cb.commands = append(cb.commands, command{apply: func(pe hal.RenderPassEncoder) {
		pe.SetBindGroup(0, group, nil)
	}})
}

func (dev *device) CmdDraw(h vk.CommandBuffer, vertexCount, instanceCount uint32) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	cb, ok := dev.recording("draw", h, true)
	if !ok {
		return
	}
	cb.commands = append(cb.commands, command{apply: func(pe hal.RenderPassEncoder) {
		pe.Draw(vertexCount, instanceCount, 0, 0)
	}})
}

// encode replays cb into a fresh HAL command buffer. d.mu must be held.
func (dev *device) encode(h vk.CommandBuffer, cb *commandBuffer) (hal.CommandBuffer, error) {
	enc, err := dev.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "offscreen"})
	if err != nil {
		return nil, halError("create command encoder", vk.ErrOutOfHostMemory, err)
	}
	if err := enc.BeginEncoding(fmt.Sprintf("cb%d", h)); err != nil {
		return nil, halError("begin encoding", vk.ErrOutOfHostMemory, err)
	}
	var pass hal.RenderPassEncoder
	for _, c := range cb.commands {
		switch {
		case c.begin != nil:
			pass = enc.BeginRenderPass(c.begin)
		case c.end:
			pass.End()
			pass = nil
		default:
			c.apply(pass)
		}
	}
	buf, err := enc.EndEncoding()
	if err != nil {
		return nil, halError("end encoding", vk.ErrOutOfHostMemory, err)
	}
	return buf, nil
}

// submit sends bufs to the queue as the next timeline value. d.mu must be
// held.
func (dev *device) submit(bufs []hal.CommandBuffer) (uint64, error) {
	value := dev.submitted + 1
	if err := dev.q.Submit(bufs, dev.timeline, value); err != nil {
		for _, b := range bufs {
			dev.hal.FreeCommandBuffer(b)
		}
		return 0, halError("submit", vk.ErrDeviceLost, err)
	}
	dev.submitted = value
	for _, b := range bufs {
		dev.inflight = append(dev.inflight, inflight{cb: b, value: value})
	}
	dev.d.stats.Submits++
	return value, nil
}

// QueueSubmit flattens every batch into one HAL submission. Semaphores are
// only validated: the HAL queue executes in order and presentation is
// immediate.
func (dev *device) QueueSubmit(q vk.Queue, submits []vk.SubmitInfo, fh vk.Fence) error {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return err
	}
	var f *fence
	if fh != 0 {
		var ok bool
		if f, ok = lookup[*fence](dev, uint64(fh), "fence"); !ok {
			return vk.ErrUnknown
		}
		if f.signaled || f.value != 0 {
			dev.d.violate(dev.in, "submit signals fence %d that is already signaled or pending", fh)
		}
	}

	var bufs []hal.CommandBuffer
	discard := func() {
		for _, b := range bufs {
			dev.hal.FreeCommandBuffer(b)
		}
	}
	for _, s := range submits {
		if len(s.WaitStages) != len(s.WaitSemaphores) {
			dev.d.violate(dev.in, "submit with %d wait semaphores and %d stages", len(s.WaitSemaphores), len(s.WaitStages))
		}
		for _, h := range s.CommandBuffers {
			cb, ok := dev.commandBuffer("submit", h)
			if !ok {
				discard()
				return vk.ErrUnknown
			}
			if cb.state != cbExecutable {
				dev.d.violate(dev.in, "submit of command buffer %d that was not ended", h)
				discard()
				return vk.ErrUnknown
			}
			buf, err := dev.encode(h, cb)
			if err != nil {
				discard()
				return err
			}
			bufs = append(bufs, buf)
		}
	}

	for _, s := range submits {
		for _, h := range s.WaitSemaphores {
			if sem, ok := lookup[*semaphore](dev, uint64(h), "semaphore"); ok {
				if !sem.signaled {
					dev.d.violate(dev.in, "submit waits on unsignaled semaphore %d", h)
				}
				sem.signaled = false
			}
		}
		for _, h := range s.SignalSemaphores {
			if sem, ok := lookup[*semaphore](dev, uint64(h), "semaphore"); ok {
				sem.signaled = true
			}
		}
	}

	value, err := dev.submit(bufs)
	if err != nil {
		return err
	}
	if f != nil {
		f.signaled = false
		f.value = value
	}
	return nil
}

func (dev *device) QueuePresent(q vk.Queue, info *vk.PresentInfo) (bool, error) {
	dev.d.mu.Lock()
	defer dev.d.unlock()
	if err := dev.check(); err != nil {
		return false, err
	}
	st, ok := lookup[*swapchain](dev, uint64(info.Swapchain), "swapchain")
	if !ok {
		return false, vk.ErrUnknown
	}
	if int(info.ImageIndex) >= len(st.images) || !st.acquired[info.ImageIndex] {
		dev.d.violate(dev.in, "present of image %d that was not acquired", info.ImageIndex)
		return false, vk.ErrUnknown
	}
	for _, h := range info.WaitSemaphores {
		if sem, ok := lookup[*semaphore](dev, uint64(h), "semaphore"); ok {
			if !sem.signaled {
				dev.d.violate(dev.in, "present waits on unsignaled semaphore %d", h)
			}
			sem.signaled = false
		}
	}
	st.acquired[info.ImageIndex] = false

	size := st.window.DrawableSize()
	if st.retired || size.IsZero() {
		return false, vk.ErrOutOfDate
	}
	dev.d.last = &presentation{
		dev:    dev,
		sc:     info.Swapchain,
		index:  info.ImageIndex,
		extent: st.extent,
		format: st.format,
	}
	dev.d.stats.Presents++
	return size != st.extent, nil
}
