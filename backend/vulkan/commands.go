// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"fmt"

	"github.com/gogpu/gputypes"
	vkgo "github.com/vulkan-go/vulkan"

	"github.com/gogpu/rendercore/vk"
)

func (dev *device) CreateGraphicsPipeline(desc *vk.GraphicsPipelineDescriptor) (vk.Pipeline, error) {
	layout, ok := get[vkgo.PipelineLayout](&dev.objects, uint64(desc.Layout))
	if !ok {
		return 0, fmt.Errorf("vulkan: pipeline %s: unknown layout: %w", desc.Label, vk.ErrUnknown)
	}
	rp, ok := get[*renderPass](&dev.objects, uint64(desc.RenderPass))
	if !ok {
		return 0, fmt.Errorf("vulkan: pipeline %s: unknown render pass: %w", desc.Label, vk.ErrUnknown)
	}
	vs, ok := get[vkgo.ShaderModule](&dev.objects, uint64(desc.VertexModule))
	if !ok {
		return 0, fmt.Errorf("vulkan: pipeline %s: unknown vertex module: %w", desc.Label, vk.ErrUnknown)
	}
	fs, ok := get[vkgo.ShaderModule](&dev.objects, uint64(desc.FragmentModule))
	if !ok {
		return 0, fmt.Errorf("vulkan: pipeline %s: unknown fragment module: %w", desc.Label, vk.ErrUnknown)
	}

	stages := []vkgo.PipelineShaderStageCreateInfo{
		{
			SType:  vkgo.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vkgo.ShaderStageVertexBit,
			Module: vs,
			PName:  entry(desc.VertexEntry),
		},
		{
			SType:  vkgo.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vkgo.ShaderStageFragmentBit,
			Module: fs,
			PName:  entry(desc.FragmentEntry),
		},
	}
	vertexInput := vkgo.PipelineVertexInputStateCreateInfo{
		SType: vkgo.StructureTypePipelineVertexInputStateCreateInfo,
	}
	assembly := vkgo.PipelineInputAssemblyStateCreateInfo{
		SType:    vkgo.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topology(desc.Topology),
	}
	extent := vkgo.Extent2D{Width: desc.Viewport.Width, Height: desc.Viewport.Height}
	viewport := vkgo.PipelineViewportStateCreateInfo{
		SType:         vkgo.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vkgo.Viewport{{
			Width:    float32(extent.Width),
			Height:   float32(extent.Height),
			MaxDepth: 1,
		}},
		ScissorCount: 1,
		PScissors:    []vkgo.Rect2D{{Extent: extent}},
	}
	raster := vkgo.PipelineRasterizationStateCreateInfo{
		SType:       vkgo.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vkgo.PolygonModeFill,
		CullMode:    vkgo.CullModeFlags(vkgo.CullModeNone),
		FrontFace:   vkgo.FrontFaceCounterClockwise,
		LineWidth:   1,
	}
	multisample := vkgo.PipelineMultisampleStateCreateInfo{
		SType:                vkgo.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vkgo.SampleCount1Bit,
	}
	depth := vkgo.PipelineDepthStencilStateCreateInfo{
		SType:          vkgo.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthCompareOp: vkgo.CompareOpAlways,
	}
	if desc.DepthTest {
		depth.DepthTestEnable = vkgo.True
		depth.DepthCompareOp = vkgo.CompareOpLess
	}
	if desc.DepthWrite {
		depth.DepthWriteEnable = vkgo.True
	}
	blend := make([]vkgo.PipelineColorBlendAttachmentState, desc.ColorTargets)
	for i := range blend {
		blend[i] = vkgo.PipelineColorBlendAttachmentState{
			ColorWriteMask: vkgo.ColorComponentFlags(vkgo.ColorComponentRBit | vkgo.ColorComponentGBit | vkgo.ColorComponentBBit | vkgo.ColorComponentABit),
		}
	}
	colorBlend := vkgo.PipelineColorBlendStateCreateInfo{
		SType:           vkgo.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blend)),
		PAttachments:    blend,
	}

	info := vkgo.GraphicsPipelineCreateInfo{
		SType:               vkgo.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &assembly,
		PViewportState:      &viewport,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PColorBlendState:    &colorBlend,
		Layout:              layout,
		RenderPass:          rp.native,
	}
	for _, f := range rp.formats {
		if f.IsDepth() {
			info.PDepthStencilState = &depth
			break
		}
	}
	pipelines := make([]vkgo.Pipeline, 1)
	res := vkgo.CreateGraphicsPipelines(dev.native, vkgo.PipelineCache(vkgo.NullHandle), 1, []vkgo.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := result("create graphics pipeline "+desc.Label, res); err != nil {
		return 0, err
	}
	return vk.Pipeline(dev.addNamed(desc.Label, pipelines[0])), nil
}

func (dev *device) DestroyPipeline(p vk.Pipeline) {
	if native, ok := dev.objects.remove(uint64(p)).(vkgo.Pipeline); ok {
		vkgo.DestroyPipeline(dev.native, native, nil)
	}
}

func entry(name string) string {
	if name == "" {
		name = "main"
	}
	return name + "\x00"
}

// topology maps the primitive topology. Passes only draw triangle lists.
func topology(gputypes.PrimitiveTopology) vkgo.PrimitiveTopology {
	return vkgo.PrimitiveTopologyTriangleList
}

func (dev *device) commandBuffer(cb vk.CommandBuffer) (vkgo.CommandBuffer, bool) {
	c, ok := get[*commandBuffer](&dev.objects, uint64(cb))
	if !ok {
		return nil, false
	}
	return c.native, true
}

func (dev *device) ResetCommandBuffer(cb vk.CommandBuffer) error {
	native, ok := dev.commandBuffer(cb)
	if !ok {
		return fmt.Errorf("vulkan: reset: unknown command buffer %d: %w", cb, vk.ErrUnknown)
	}
	return result("reset command buffer", vkgo.ResetCommandBuffer(native, 0))
}

func (dev *device) BeginCommandBuffer(cb vk.CommandBuffer) error {
	native, ok := dev.commandBuffer(cb)
	if !ok {
		return fmt.Errorf("vulkan: begin: unknown command buffer %d: %w", cb, vk.ErrUnknown)
	}
	info := vkgo.CommandBufferBeginInfo{
		SType: vkgo.StructureTypeCommandBufferBeginInfo,
		Flags: vkgo.CommandBufferUsageFlags(vkgo.CommandBufferUsageOneTimeSubmitBit),
	}
	return result("begin command buffer", vkgo.BeginCommandBuffer(native, &info))
}

func (dev *device) EndCommandBuffer(cb vk.CommandBuffer) error {
	native, ok := dev.commandBuffer(cb)
	if !ok {
		return fmt.Errorf("vulkan: end: unknown command buffer %d: %w", cb, vk.ErrUnknown)
	}
	return result("end command buffer", vkgo.EndCommandBuffer(native))
}

func (dev *device) CmdBeginRenderPass(cb vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	native, ok := dev.commandBuffer(cb)
	rp, ok2 := get[*renderPass](&dev.objects, uint64(info.RenderPass))
	fb, ok3 := get[vkgo.Framebuffer](&dev.objects, uint64(info.Framebuffer))
	if !ok || !ok2 || !ok3 {
		return
	}
	clears := make([]vkgo.ClearValue, len(info.ClearValues))
	for i, c := range info.ClearValues {
		if i < len(rp.formats) && rp.formats[i].IsDepth() {
			clears[i] = vkgo.NewClearDepthStencil(c.Depth, c.Stencil)
			continue
		}
		clears[i] = vkgo.NewClearValue([]float32{float32(c.Color.R), float32(c.Color.G), float32(c.Color.B), float32(c.Color.A)})
	}
	begin := vkgo.RenderPassBeginInfo{
		SType:       vkgo.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.native,
		Framebuffer: fb,
		RenderArea: vkgo.Rect2D{
			Extent: vkgo.Extent2D{Width: info.Area.Width, Height: info.Area.Height},
		},
		ClearValueCount: uint32(len(clears)),
		PClearValues:    clears,
	}
	vkgo.CmdBeginRenderPass(native, &begin, vkgo.SubpassContentsInline)
}

func (dev *device) CmdEndRenderPass(cb vk.CommandBuffer) {
	if native, ok := dev.commandBuffer(cb); ok {
		vkgo.CmdEndRenderPass(native)
	}
}

func (dev *device) CmdBindPipeline(cb vk.CommandBuffer, p vk.Pipeline) {
	native, ok := dev.commandBuffer(cb)
	pipeline, ok2 := get[vkgo.Pipeline](&dev.objects, uint64(p))
	if ok && ok2 {
		vkgo.CmdBindPipeline(native, vkgo.PipelineBindPointGraphics, pipeline)
	}
}

func (dev *device) CmdBindDescriptorSet(cb vk.CommandBuffer, layout vk.PipelineLayout, set vk.DescriptorSet) {
	native, ok := dev.commandBuffer(cb)
	l, ok2 := get[vkgo.PipelineLayout](&dev.objects, uint64(layout))
	s, ok3 := get[vkgo.DescriptorSet](&dev.objects, uint64(set))
	if ok && ok2 && ok3 {
		vkgo.CmdBindDescriptorSets(native, vkgo.PipelineBindPointGraphics, l, 0, 1, []vkgo.DescriptorSet{s}, 0, nil)
	}
}

func (dev *device) CmdDraw(cb vk.CommandBuffer, vertexCount, instanceCount uint32) {
	if native, ok := dev.commandBuffer(cb); ok {
		vkgo.CmdDraw(native, vertexCount, instanceCount, 0, 0)
	}
}

func (dev *device) semaphores(hs []vk.Semaphore) ([]vkgo.Semaphore, error) {
	out := make([]vkgo.Semaphore, len(hs))
	for i, h := range hs {
		s, ok := get[vkgo.Semaphore](&dev.objects, uint64(h))
		if !ok {
			return nil, fmt.Errorf("vulkan: unknown semaphore %d: %w", h, vk.ErrUnknown)
		}
		out[i] = s
	}
	return out, nil
}

func (dev *device) QueueSubmit(q vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) error {
	queue, ok := get[vkgo.Queue](&dev.objects, uint64(q))
	if !ok {
		return fmt.Errorf("vulkan: submit: unknown queue %d: %w", q, vk.ErrUnknown)
	}
	f := vkgo.Fence(vkgo.NullHandle)
	if fence != 0 {
		if f, ok = get[vkgo.Fence](&dev.objects, uint64(fence)); !ok {
			return fmt.Errorf("vulkan: submit: unknown fence %d: %w", fence, vk.ErrUnknown)
		}
	}

	infos := make([]vkgo.SubmitInfo, len(submits))
	for i, s := range submits {
		wait, err := dev.semaphores(s.WaitSemaphores)
		if err != nil {
			return err
		}
		signal, err := dev.semaphores(s.SignalSemaphores)
		if err != nil {
			return err
		}
		stages := make([]vkgo.PipelineStageFlags, len(s.WaitStages))
		for j, st := range s.WaitStages {
			stages[j] = pipelineStages(st)
		}
		cbs := make([]vkgo.CommandBuffer, len(s.CommandBuffers))
		for j, cb := range s.CommandBuffers {
			native, ok := dev.commandBuffer(cb)
			if !ok {
				return fmt.Errorf("vulkan: submit: unknown command buffer %d: %w", cb, vk.ErrUnknown)
			}
			cbs[j] = native
		}
		infos[i] = vkgo.SubmitInfo{
			SType:                vkgo.StructureTypeSubmitInfo,
			WaitSemaphoreCount:   uint32(len(wait)),
			PWaitSemaphores:      wait,
			PWaitDstStageMask:    stages,
			CommandBufferCount:   uint32(len(cbs)),
			PCommandBuffers:      cbs,
			SignalSemaphoreCount: uint32(len(signal)),
			PSignalSemaphores:    signal,
		}
	}
	return result("queue submit", vkgo.QueueSubmit(queue, uint32(len(infos)), infos, f))
}

func (dev *device) QueuePresent(q vk.Queue, info *vk.PresentInfo) (bool, error) {
	queue, ok := get[vkgo.Queue](&dev.objects, uint64(q))
	if !ok {
		return false, fmt.Errorf("vulkan: present: unknown queue %d: %w", q, vk.ErrUnknown)
	}
	sc, ok := get[*swapchain](&dev.objects, uint64(info.Swapchain))
	if !ok {
		return false, fmt.Errorf("vulkan: present: unknown swapchain %d: %w", info.Swapchain, vk.ErrOutOfDate)
	}
	wait, err := dev.semaphores(info.WaitSemaphores)
	if err != nil {
		return false, err
	}
	present := vkgo.PresentInfo{
		SType:              vkgo.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(wait)),
		PWaitSemaphores:    wait,
		SwapchainCount:     1,
		PSwapchains:        []vkgo.Swapchain{sc.native},
		PImageIndices:      []uint32{info.ImageIndex},
	}
	res := vkgo.QueuePresent(queue, &present)
	if err := result("queue present", res); err != nil {
		return false, err
	}
	return res == vkgo.Suboptimal, nil
}
