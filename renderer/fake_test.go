// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"fmt"

	"github.com/gogpu/rendercore/guard"
	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

// spirvMagic is the smallest module vktest accepts.
var spirvMagic = []uint32{0x07230203}

// fakeTechnique draws a fullscreen triangle into the swapchain image with a
// render pass named after the technique.
type fakeTechnique struct {
	name        string
	attachments []shared.AttachmentSpec

	failStem   error
	failFrond  error
	failRecord error

	stems, fronds, records int
}

func (t *fakeTechnique) Name() string { return t.name }

func (t *fakeTechnique) Attachments() []shared.AttachmentSpec { return t.attachments }

func (t *fakeTechnique) NewStem(stem *shared.Stem) (PassStem, error) {
	t.stems++
	if err := t.failStem; err != nil {
		t.failStem = nil
		return nil, err
	}
	mod, err := shared.NewShaderModule(stem.Device(), t.name, spirvMagic)
	if err != nil {
		return nil, err
	}
	stem.Retain()
	return &fakeStem{t: t, stem: stem, module: mod.Take()}, nil
}

type fakeStem struct {
	t      *fakeTechnique
	stem   *shared.Stem
	module vk.ShaderModule
}

func (s *fakeStem) NewFrond(frond *shared.Frond) (PassFrond, error) {
	s.t.fronds++
	if !frond.Stem().Is(s.stem) {
		return nil, shared.ErrStemMismatch
	}
	if err := s.t.failFrond; err != nil {
		s.t.failFrond = nil
		return nil, err
	}
	dev := s.stem.Device()
	rp, err := shared.NewRenderPass(dev, &vk.RenderPassDescriptor{
		Label: s.t.name,
		Attachments: []vk.AttachmentDescription{{
			Format:      frond.Format().Format,
			FinalLayout: vk.LayoutPresentSrc,
		}},
		Color: []vk.AttachmentRef{{Index: 0, Layout: vk.LayoutColorAttachment}},
	})
	if err != nil {
		return nil, err
	}
	defer rp.Release()

	fbs := guard.SeqWith(dev, vk.Device.DestroyFramebuffer)
	defer fbs.Release()
	for i, v := range frond.ImageViews() {
		fb, err := shared.NewFramebuffer(dev, &vk.FramebufferDescriptor{
			Label:       fmt.Sprintf("%s[%d]", s.t.name, i),
			RenderPass:  rp.Get(),
			Attachments: []vk.ImageView{v},
			Extent:      frond.Resolution(),
		})
		if err != nil {
			return nil, err
		}
		fbs.Push(fb.Take())
	}
	return &fakeFrond{t: s.t, dev: dev, extent: frond.Resolution(), framebuffers: fbs.Take(), pass: rp.Take()}, nil
}

func (s *fakeStem) Destroy() {
	s.stem.Device().DestroyShaderModule(s.module)
	s.stem.Release()
}

type fakeFrond struct {
	t            *fakeTechnique
	dev          vk.Device
	extent       vk.Extent2D
	pass         vk.RenderPass
	framebuffers []vk.Framebuffer
}

func (f *fakeFrond) Record(cb vk.CommandBuffer, frame *FrameState) error {
	f.t.records++
	if err := f.t.failRecord; err != nil {
		f.t.failRecord = nil
		return err
	}
	f.dev.CmdBeginRenderPass(cb, &vk.RenderPassBeginInfo{
		RenderPass:  f.pass,
		Framebuffer: f.framebuffers[frame.ImageIndex],
		Area:        f.extent,
		ClearValues: []vk.ClearValue{{Color: frame.Params.ClearColor}},
	})
	f.dev.CmdDraw(cb, 3, 1)
	f.dev.CmdEndRenderPass(cb)
	return nil
}

func (f *fakeFrond) Destroy() {
	for i := len(f.framebuffers) - 1; i >= 0; i-- {
		f.dev.DestroyFramebuffer(f.framebuffers[i])
	}
	f.dev.DestroyRenderPass(f.pass)
}
