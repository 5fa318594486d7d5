// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package lighting implements the second deferred pass. It samples the
// diffuse and normal attachments written by the geometry pass and writes the
// HDR light attachment.
package lighting

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/shader"
	"github.com/gogpu/rendercore/passes"
	"github.com/gogpu/rendercore/renderer"
	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

//go:embed lighting.wgsl
var source string

// Name is the technique name.
const Name = "lighting"

const (
	bindingDiffuse = 0
	bindingNormal  = 1
)

// Technique is the lighting pass.
type Technique struct{}

// New returns the lighting technique.
func New() *Technique { return &Technique{} }

// Name implements renderer.Technique.
func (*Technique) Name() string { return Name }

// Attachments implements renderer.Technique.
func (*Technique) Attachments() []shared.AttachmentSpec {
	return []shared.AttachmentSpec{passes.Diffuse, passes.Normal, passes.Light}
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
		vk.DescriptorBinding{Binding: bindingDiffuse, Type: vk.DescriptorSampledImage, Count: 1, Stages: vk.ShaderFragment},
		vk.DescriptorBinding{Binding: bindingNormal, Type: vk.DescriptorSampledImage, Count: 1, Stages: vk.ShaderFragment},
	)
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
	var images [3]shared.DeviceImage
	for i, spec := range []shared.AttachmentSpec{passes.Diffuse, passes.Normal, passes.Light} {
		img, err := passes.Attachment(frond, spec)
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	diffuse, normal, light := images[0], images[1], images[2]

	dev := s.stem.Device()
	pool, err := shared.NewDescriptorPool(dev, Name, 1,
		vk.DescriptorPoolSize{Type: vk.DescriptorSampledImage, Count: 2})
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	set, err := dev.AllocateDescriptorSet(pool.Get(), s.setLayout)
	if err != nil {
		return nil, fmt.Errorf("lighting: allocate descriptor set: %w", err)
	}
	dev.UpdateDescriptorSets([]vk.DescriptorImageWrite{
		{Set: set, Binding: bindingDiffuse, Type: vk.DescriptorSampledImage, View: diffuse.View, Layout: vk.LayoutShaderReadOnly},
		{Set: set, Binding: bindingNormal, Type: vk.DescriptorSampledImage, View: normal.View, Layout: vk.LayoutShaderReadOnly},
	})

	rp, err := shared.NewRenderPass(dev, &vk.RenderPassDescriptor{
		Label: Name,
		Attachments: []vk.AttachmentDescription{{
			Format:        light.Format,
			LoadOp:        gputypes.LoadOpClear,
			StoreOp:       gputypes.StoreOpStore,
			InitialLayout: vk.LayoutUndefined,
			FinalLayout:   vk.LayoutShaderReadOnly,
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

	fb, err := shared.NewFramebuffer(dev, &vk.FramebufferDescriptor{
		Label:       Name,
		RenderPass:  rp.Get(),
		Attachments: []vk.ImageView{light.View},
		Extent:      resolution,
	})
	if err != nil {
		return nil, err
	}

	logging.L().Debug("lighting frond created", "frond", frond.Generation(), "resolution", resolution)
	f := &Frond{
		stem:  s,
		frond: frond,
		set:   set,
	}
	f.framebuffer = fb.Take()
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

// Frond holds the resolution-dependent objects of the pass. Its descriptor
// set points at the attachments of one Frond and dies with the pool.
type Frond struct {
	stem        *Stem
	frond       *shared.Frond
	pool        vk.DescriptorPool
	set         vk.DescriptorSet
	renderPass  vk.RenderPass
	pipeline    vk.Pipeline
	framebuffer vk.Framebuffer
}

// Record implements renderer.PassFrond.
func (f *Frond) Record(cb vk.CommandBuffer, frame *renderer.FrameState) error {
	if err := passes.CheckFrame(Name, f.stem.stem, f.frond, frame.Stem, frame.Frond); err != nil {
		return err
	}
	dev := f.stem.stem.Device()
	dev.CmdBeginRenderPass(cb, &vk.RenderPassBeginInfo{
		RenderPass:  f.renderPass,
		Framebuffer: f.framebuffer,
		Area:        f.frond.Resolution(),
		ClearValues: []vk.ClearValue{{}},
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
	dev.DestroyFramebuffer(f.framebuffer)
	dev.DestroyPipeline(f.pipeline)
	dev.DestroyRenderPass(f.renderPass)
	dev.DestroyDescriptorPool(f.pool)
	f.frond = nil
}
