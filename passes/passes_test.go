// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package passes_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/rendercore/passes"
	"github.com/gogpu/rendercore/passes/geometry"
	"github.com/gogpu/rendercore/passes/lighting"
	"github.com/gogpu/rendercore/passes/tonemapping"
	"github.com/gogpu/rendercore/renderer"
	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
	"github.com/gogpu/rendercore/vk/vktest"
)

func deferred() []renderer.Technique {
	return []renderer.Technique{geometry.New(), lighting.New(), tonemapping.New()}
}

func TestDeferredFrame(t *testing.T) {
	d := vktest.New()
	w := vktest.NewWindow(800, 600)
	r, err := renderer.New(d, w, renderer.WithTechniques(deferred()...))
	if err != nil {
		t.Fatal(err)
	}

	f, err := r.Draw(&renderer.FrameParams{})
	if err != nil || f.Status != renderer.StatusDrew {
		t.Fatalf("Draw = %v, %v", f.Status, err)
	}
	want := []string{
		"begin_render_pass geometry", "bind_pipeline geometry", "draw 6 1", "end_render_pass",
		"begin_render_pass lighting", "bind_pipeline lighting", "bind_descriptor_set", "draw 3 1", "end_render_pass",
		"begin_render_pass tonemapping", "bind_pipeline tonemapping", "bind_descriptor_set", "draw 3 1", "end_render_pass",
	}
	if diff := cmp.Diff(want, d.LastSubmitted()); diff != "" {
		t.Errorf("recorded commands (-want +got):\n%s", diff)
	}

	_, frond := r.Current()
	if diff := cmp.Diff([]string{"diffuse", "normal", "depth_stencil", "light"}, frond.Attachments()); diff != "" {
		t.Errorf("frond attachments (-want +got):\n%s", diff)
	}

	// Resize, minimize and restore: every generation of pass objects must
	// be rebuilt against live views.
	for _, size := range []vk.Extent2D{{Width: 1024, Height: 768}, {}, {Width: 640, Height: 480}} {
		w.SetSize(size.Width, size.Height)
		f, err := r.Draw(nil)
		if err != nil {
			t.Fatalf("Draw at %v: %v", size, err)
		}
		if size.IsZero() != (f.Status == renderer.StatusSkipped) {
			t.Errorf("Draw at %v: status %v", size, f.Status)
		}
	}

	r.Close()
	d.AssertClean(t)
}

func TestDeferredDeviceLost(t *testing.T) {
	d := vktest.New()
	r, err := renderer.New(d, vktest.NewWindow(320, 240), renderer.WithTechniques(deferred()...))
	if err != nil {
		t.Fatal(err)
	}
	defer d.AssertClean(t)
	defer r.Close()

	if _, err := r.Draw(nil); err != nil {
		t.Fatal(err)
	}
	d.LoseDevice()
	if _, err := r.Draw(nil); !errors.Is(err, vk.ErrDeviceLost) {
		t.Fatalf("Draw err = %v, want device lost", err)
	}
	if f, err := r.Draw(nil); err != nil || f.Status != renderer.StatusDrew {
		t.Fatalf("Draw after rebuild = %v, %v", f.Status, err)
	}
}

type fixture struct {
	d      *vktest.Driver
	stems  []*shared.Stem
	fronds []*shared.Frond
}

// newFixture builds two independent Stem/Frond pairs on one driver.
func newFixture(t *testing.T, attachments []shared.AttachmentSpec) *fixture {
	t.Helper()
	fx := &fixture{d: vktest.New()}
	for range 2 {
		crown, err := shared.NewCrown(fx.d, vktest.NewWindow(64, 64), nil)
		if err != nil {
			t.Fatal(err)
		}
		stem, err := shared.NewStem(crown, nil)
		crown.Release()
		if err != nil {
			t.Fatal(err)
		}
		cfg := shared.DefaultFrondConfig()
		cfg.Attachments = attachments
		frond, err := shared.NewFrond(stem, cfg)
		if err != nil {
			t.Fatal(err)
		}
		fx.stems = append(fx.stems, stem)
		fx.fronds = append(fx.fronds, frond)
	}
	return fx
}

func (fx *fixture) close(t *testing.T) {
	t.Helper()
	for i := range fx.stems {
		fx.fronds[i].Release()
		fx.stems[i].Release()
	}
	fx.d.AssertClean(t)
}

var all = []shared.AttachmentSpec{passes.Diffuse, passes.Normal, passes.DepthStencil, passes.Light}

func TestPassIdentity(t *testing.T) {
	for _, tech := range deferred() {
		t.Run(tech.Name(), func(t *testing.T) {
			fx := newFixture(t, all)
			defer fx.close(t)

			ps, err := tech.NewStem(fx.stems[0])
			if err != nil {
				t.Fatal(err)
			}
			defer ps.Destroy()

			if _, err := ps.NewFrond(fx.fronds[1]); !errors.Is(err, shared.ErrStemMismatch) {
				t.Errorf("NewFrond on foreign frond: err = %v", err)
			}

			pf, err := ps.NewFrond(fx.fronds[0])
			if err != nil {
				t.Fatal(err)
			}
			defer pf.Destroy()

			foreign := &renderer.FrameState{Stem: fx.stems[1], Frond: fx.fronds[1], Params: &renderer.FrameParams{}}
			if err := pf.Record(0, foreign); !errors.Is(err, shared.ErrStemMismatch) {
				t.Errorf("Record with foreign frame: err = %v", err)
			}
		})
	}
}

func TestPassMissingAttachment(t *testing.T) {
	for _, tech := range deferred() {
		t.Run(tech.Name(), func(t *testing.T) {
			fx := newFixture(t, nil)
			defer fx.close(t)

			ps, err := tech.NewStem(fx.stems[0])
			if err != nil {
				t.Fatal(err)
			}
			defer ps.Destroy()

			if _, err := ps.NewFrond(fx.fronds[0]); !errors.Is(err, passes.ErrMissingAttachment) {
				t.Errorf("NewFrond without G-buffer: err = %v", err)
			}
		})
	}
}

func TestPassStemFailureLeavesNothing(t *testing.T) {
	ops := []string{"CreateShaderModule", "CreateDescriptorSetLayout", "CreatePipelineLayout"}
	for _, tech := range deferred() {
		for _, op := range ops {
			t.Run(tech.Name()+"/"+op, func(t *testing.T) {
				fx := newFixture(t, all)
				defer fx.close(t)

				before := fx.d.Live()
				fx.d.FailNth(op, 1, vk.ErrOutOfHostMemory)
				ps, err := tech.NewStem(fx.stems[0])
				if err == nil {
					// The pass does not use op.
					ps.Destroy()
					return
				}
				if !errors.Is(err, vk.ErrOutOfHostMemory) {
					t.Errorf("err = %v", err)
				}
				if got := fx.d.Live(); got != before {
					t.Errorf("live objects = %d, want %d", got, before)
				}
			})
		}
	}
}

func TestPassFrondFailureLeavesNothing(t *testing.T) {
	ops := []string{"CreateDescriptorPool", "AllocateDescriptorSet", "CreateRenderPass", "CreateGraphicsPipeline", "CreateFramebuffer"}
	for _, tech := range deferred() {
		for _, op := range ops {
			t.Run(tech.Name()+"/"+op, func(t *testing.T) {
				fx := newFixture(t, all)
				defer fx.close(t)

				ps, err := tech.NewStem(fx.stems[0])
				if err != nil {
					t.Fatal(err)
				}
				defer ps.Destroy()

				before := fx.d.Live()
				fx.d.FailNth(op, 1, vk.ErrOutOfDeviceMemory)
				pf, err := ps.NewFrond(fx.fronds[0])
				if err == nil {
					pf.Destroy()
					return
				}
				if !errors.Is(err, vk.ErrOutOfDeviceMemory) {
					t.Errorf("err = %v", err)
				}
				if got := fx.d.Live(); got != before {
					t.Errorf("live objects = %d, want %d", got, before)
				}
			})
		}
	}
}

func TestAttachment(t *testing.T) {
	fx := newFixture(t, []shared.AttachmentSpec{passes.Diffuse})
	defer fx.close(t)

	img, err := passes.Attachment(fx.fronds[0], passes.Diffuse)
	if err != nil {
		t.Fatal(err)
	}
	if img.Format != passes.Diffuse.Format || img.Resolution2D() != fx.fronds[0].Resolution() {
		t.Errorf("Attachment() = %+v", img)
	}

	wrong := passes.Diffuse
	wrong.Format = vk.FormatR32G32B32A32Sfloat
	if _, err := passes.Attachment(fx.fronds[0], wrong); !errors.Is(err, passes.ErrMissingAttachment) {
		t.Errorf("format mismatch: err = %v", err)
	}
	if _, err := passes.Attachment(fx.fronds[0], passes.Light); !errors.Is(err, passes.ErrMissingAttachment) {
		t.Errorf("missing: err = %v", err)
	}
}
