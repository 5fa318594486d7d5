// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tonemapping implements the last deferred pass. It reads the HDR
// light attachment and writes the acquired swapchain image, leaving it ready
// for presentation.
package tonemapping

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/guard"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/shader"
	"github.com/gogpu/rendercore/passes"
	"github.com/gogpu/rendercore/renderer"
	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

//go:embed tonemapping.wgsl
var source string

// Name is the technique name.
const Name = "tonemapping"

// Technique is the tonemapping pass.
type Technique struct{}

// New returns the tonemapping technique.
func New() *Technique { return &Technique{} }

// Name implements renderer.Technique.
func (*Technique) Name() string { return Name }

// Attachments implements renderer.Technique.
func (*Technique) Attachments() []shared.AttachmentSpec {
	return []shared.AttachmentSpec{passes.Light}
}

// NewStem implements renderer.Technique.
func (*Technique) NewStem(stem *shared.Stem) (renderer.PassStem, error) {
	dev := stem.Device()
	module, err := shader.NewModule(dev, Name, source)
	if err != nil {
		return nil, err
	}
	defer module.Release()

	setLayout, err := shared.NewDescriptorSetLayout(dev, Name,
		vk.DescriptorBinding{Binding: 0, Type: vk.DescriptorSampledImage, Count: 1, Stages: vk.ShaderFragment})
	if err != nil {
		return nil, err
	}
	defer setLayout.Release()

	layout, err := shared.NewPipelineLayout(dev, Name, setLayout.Get())
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	stem.Retain()
	return &Stem{
		stem:      stem,
		module:    module.Take(),
		layout:    layout.Take(),
		setLayout: setLayout.Take(),
	}, nil
}

// Stem holds the device-lifetime objects of the pass.
type Stem struct {
	stem      *shared.Stem
	module    vk.ShaderModule
	setLayout vk.DescriptorSetLayout
	layout    vk.PipelineLayout
}

// NewFrond implements renderer.PassStem.
func (s *Stem) NewFrond(frond *shared.Frond) (renderer.PassFrond, error) {
	if err := passes.CheckStem(Name, s.stem, frond); err != nil {
		return nil, err
	}
	light, err := passes.Attachment(frond, passes.Light)
	if err != nil {
		return nil, err
	}

	dev := s.stem.Device()
	pool, err := shared.NewDescriptorPool(dev, Name, 1,
		vk.DescriptorPoolSize{Type: vk.DescriptorSampledImage, Count: 1})
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	set, err := dev.AllocateDescriptorSet(pool.Get(), s.setLayout)
	if err != nil {
		return nil, fmt.Errorf("tonemapping: allocate descriptor set: %w", err)
	}
	dev.UpdateDescriptorSets([]vk.DescriptorImageWrite{{
		Set: set, Binding: 0, Type: vk.DescriptorSampledImage, View: light.View, Layout: vk.LayoutShaderReadOnly,
	}})

	rp, err := shared.NewRenderPass(dev, &vk.RenderPassDescriptor{
		Label: Name,
		Attachments: []vk.AttachmentDescription{{
			Format:        frond.Format().Format,
			LoadOp:        gputypes.LoadOpClear,
			StoreOp:       gputypes.StoreOpStore,
			InitialLayout: vk.LayoutUndefined,
			FinalLayout:   vk.LayoutPresentSrc,
		}},
		Color: []vk.AttachmentRef{{Index: 0, Layout: vk.LayoutColorAttachment}},
	})
	if err != nil {
		return nil, err
	}
	defer rp.Release()

	resolution := frond.Resolution()
	pipeline, err := shared.NewGraphicsPipeline(dev, &vk.GraphicsPipelineDescriptor{
		Label:          Name,
		Layout:         s.layout,
		RenderPass:     rp.Get(),
		VertexModule:   s.module,
		VertexEntry:    "vs_main",
		FragmentModule: s.module,
		FragmentEntry:  "fs_main",
		Topology:       gputypes.PrimitiveTopologyTriangleList,
		ColorTargets:   1,
		Viewport:       resolution,
	})
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	framebuffers := guard.SeqWith(dev, vk.Device.DestroyFramebuffer)
	defer framebuffers.Release()
	for i, view := range frond.ImageViews() {
		fb, err := shared.NewFramebuffer(dev, &vk.FramebufferDescriptor{
			Label:       fmt.Sprintf("%s[%d]", Name, i),
			RenderPass:  rp.Get(),
			Attachments: []vk.ImageView{view},
			Extent:      resolution,
		})
		if err != nil {
			return nil, err
		}
		framebuffers.Push(fb.Take())
	}

	logging.L().Debug("tonemapping frond created", "frond", frond.Generation(),
		"resolution", resolution, "framebuffers", framebuffers.Len())
	f := &Frond{stem: s, frond: frond, set: set}
	f.framebuffers = framebuffers.Take()
	f.pipeline = pipeline.Take()
	f.renderPass = rp.Take()
	f.pool = pool.Take()
	return f, nil
}

// Destroy implements renderer.PassStem.
func (s *Stem) Destroy() {
	dev := s.stem.Device()
	dev.DestroyPipelineLayout(s.layout)
	dev.DestroyDescriptorSetLayout(s.setLayout)
	dev.DestroyShaderModule(s.module)
	s.stem.Release()
}

// Frond holds the resolution-dependent objects of the pass, including one
// framebuffer per swapchain image.
type Frond struct {
	stem         *Stem
	frond        *shared.Frond
	pool         vk.DescriptorPool
	set          vk.DescriptorSet
	renderPass   vk.RenderPass
	pipeline     vk.Pipeline
	framebuffers []vk.Framebuffer
}

// Record implements renderer.PassFrond.
func (f *Frond) Record(cb vk.CommandBuffer, frame *renderer.FrameState) error {
	if err := passes.CheckFrame(Name, f.stem.stem, f.frond, frame.Stem, frame.Frond); err != nil {
		return err
	}
	if int(frame.ImageIndex) >= len(f.framebuffers) {
		return fmt.Errorf("tonemapping: image index %d out of range (%d images)", frame.ImageIndex, len(f.framebuffers))
	}
	dev := f.stem.stem.Device()
	dev.CmdBeginRenderPass(cb, &vk.RenderPassBeginInfo{
		RenderPass:  f.renderPass,
		Framebuffer: f.framebuffers[frame.ImageIndex],
		Area:        f.frond.Resolution(),
		ClearValues: []vk.ClearValue{{Color: frame.Params.ClearColor}},
	})
	dev.CmdBindPipeline(cb, f.pipeline)
	dev.CmdBindDescriptorSet(cb, f.stem.layout, f.set)
	dev.CmdDraw(cb, 3, 1)
	dev.CmdEndRenderPass(cb)
	return nil
}

// Destroy implements renderer.PassFrond.
func (f *Frond) Destroy() {
	dev := f.stem.stem.Device()
	for i := len(f.framebuffers) - 1; i >= 0; i-- {
		dev.DestroyFramebuffer(f.framebuffers[i])
	}
	dev.DestroyPipeline(f.pipeline)
	dev.DestroyRenderPass(f.renderPass)
	dev.DestroyDescriptorPool(f.pool)
	f.frond = nil
}
