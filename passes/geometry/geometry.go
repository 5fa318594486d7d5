// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package geometry implements the first deferred pass: it clears the
// G-buffer and rasterizes the scene's surfaces into the diffuse, normal and
// depth attachments.
package geometry

import (
	_ "embed"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/internal/shader"
	"github.com/gogpu/rendercore/passes"
	"github.com/gogpu/rendercore/renderer"
	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

//go:embed geometry.wgsl
var source string

// Name is the technique name.
const Name = "geometry"

// vertexCount covers the two triangles of the quad.
const vertexCount = 6

// Technique is the geometry pass.
type Technique struct{}

// New returns the geometry technique.
func New() *Technique { return &Technique{} }

// Name implements renderer.Technique.
func (*Technique) Name() string { return Name }

// Attachments implements renderer.Technique.
func (*Technique) Attachments() []shared.AttachmentSpec {
	return []shared.AttachmentSpec{passes.Diffuse, passes.Normal, passes.DepthStencil}
}

// NewStem implements renderer.Technique.
func (*Technique) NewStem(stem *shared.Stem) (renderer.PassStem, error) {
	dev := stem.Device()
	module, err := shader.NewModule(dev, Name, source)
	if err != nil {
		return nil, err
	}
	defer module.Release()

	layout, err := shared.NewPipelineLayout(dev, Name)
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	stem.Retain()
	return &Stem{stem: stem, module: module.Take(), layout: layout.Take()}, nil
}

// Stem holds the device-lifetime objects of the pass.
type Stem struct {
	stem   *shared.Stem
	module vk.ShaderModule
	layout vk.PipelineLayout
}

// NewFrond implements renderer.PassStem.
func (s *Stem) NewFrond(frond *shared.Frond) (renderer.PassFrond, error) {
	if err := passes.CheckStem(Name, s.stem, frond); err != nil {
		return nil, err
	}
	diffuse, err := passes.Attachment(frond, passes.Diffuse)
	if err != nil {
		return nil, err
	}
	normal, err := passes.Attachment(frond, passes.Normal)
	if err != nil {
		return nil, err
	}
	depth, err := passes.Attachment(frond, passes.DepthStencil)
	if err != nil {
		return nil, err
	}

	dev := s.stem.Device()
	rp, err := shared.NewRenderPass(dev, &vk.RenderPassDescriptor{
		Label: Name,
		Attachments: []vk.AttachmentDescription{
			{Format: diffuse.Format, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore, InitialLayout: vk.LayoutUndefined, FinalLayout: vk.LayoutShaderReadOnly},
			{Format: normal.Format, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore, InitialLayout: vk.LayoutUndefined, FinalLayout: vk.LayoutShaderReadOnly},
			{Format: depth.Format, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore, InitialLayout: vk.LayoutUndefined, FinalLayout: vk.LayoutDepthStencilAttachment},
		},
		Color: []vk.AttachmentRef{
			{Index: 0, Layout: vk.LayoutColorAttachment},
			{Index: 1, Layout: vk.LayoutColorAttachment},
		},
		DepthStencil: &vk.AttachmentRef{Index: 2, Layout: vk.LayoutDepthStencilAttachment},
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
		ColorTargets:   2,
		DepthTest:      true,
		DepthWrite:     true,
		Viewport:       resolution,
	})
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	fb, err := shared.NewFramebuffer(dev, &vk.FramebufferDescriptor{
		Label:       Name,
		RenderPass:  rp.Get(),
		Attachments: []vk.ImageView{diffuse.View, normal.View, depth.View},
		Extent:      resolution,
	})
	if err != nil {
		return nil, err
	}

	logging.L().Debug("geometry frond created", "frond", frond.Generation(), "resolution", resolution)
	return &Frond{
		stem:        s,
		frond:       frond,
		framebuffer: fb.Take(),
		pipeline:    pipeline.Take(),
		renderPass:  rp.Take(),
	}, nil
}

// Destroy implements renderer.PassStem.
func (s *Stem) Destroy() {
	dev := s.stem.Device()
	dev.DestroyPipelineLayout(s.layout)
	dev.DestroyShaderModule(s.module)
	s.stem.Release()
}

// Frond holds the resolution-dependent objects of the pass.
type Frond struct {
	stem        *Stem
	frond       *shared.Frond
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
		ClearValues: []vk.ClearValue{
			{Color: frame.Params.ClearColor},
			{},
			{Depth: 1},
		},
	})
	dev.CmdBindPipeline(cb, f.pipeline)
	dev.CmdDraw(cb, vertexCount, 1)
	dev.CmdEndRenderPass(cb)
	return nil
}

// Destroy implements renderer.PassFrond.
func (f *Frond) Destroy() {
	dev := f.stem.stem.Device()
	dev.DestroyFramebuffer(f.framebuffer)
	dev.DestroyPipeline(f.pipeline)
	dev.DestroyRenderPass(f.renderPass)
	f.frond = nil
}
