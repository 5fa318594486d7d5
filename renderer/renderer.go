// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderer drives frames on top of the shared object tiers and
// recovers from resizes, minimized windows and device loss.
//
// A Renderer is in one of three states (see State). Every Draw first moves
// it toward StateLive, rebuilding only what is missing: a resize retires the
// swapchain and resurrects it at the new size, while device loss drops
// everything below the Crown and rebuilds from scratch. Draw reports one of
// three outcomes: the frame was drawn, it was skipped because there is
// nothing to draw into (zero drawable area or a stale swapchain), or it
// failed.
package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

// ErrClosed is returned by Draw after Close.
var ErrClosed = errors.New("renderer: closed")

// Status is the outcome of one Draw.
type Status int

const (
	// StatusFailed means Draw returned an error.
	StatusFailed Status = iota
	// StatusSkipped means nothing was drawn and nothing is wrong.
	StatusSkipped
	// StatusDrew means a frame was submitted and presented.
	StatusDrew
)

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusDrew:
		return "drew"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Frame describes the outcome of one Draw.
type Frame struct {
	Status Status
	// Suboptimal reports that the swapchain still works but no longer
	// matches the surface exactly.
	Suboptimal bool
	Resolution vk.Extent2D
	ImageIndex uint32
}

// Renderer owns a Crown and everything built from it.
type Renderer struct {
	crown       *shared.Crown
	techniques  []Technique
	stemCfg     *shared.StemConfig
	frondCfg    *shared.FrondConfig
	eagerRetire bool

	state       state
	forceRetire bool
	frames      uint64
	closed      bool
}

// New creates the Crown for window and a Renderer around it. No device is
// created until the first Draw.
func New(api vk.API, window vk.Window, opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	frondCfg, err := frondConfig(&o)
	if err != nil {
		return nil, err
	}
	crown, err := shared.NewCrown(api, window, o.crown)
	if err != nil {
		return nil, err
	}
	return newRenderer(crown, &o, frondCfg), nil
}

// NewFromCrown creates a Renderer that takes its own reference to crown.
func NewFromCrown(crown *shared.Crown, opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	frondCfg, err := frondConfig(&o)
	if err != nil {
		return nil, err
	}
	crown.Retain()
	return newRenderer(crown, &o, frondCfg), nil
}

func newRenderer(crown *shared.Crown, o *options, frondCfg *shared.FrondConfig) *Renderer {
	return &Renderer{
		crown:       crown,
		techniques:  o.techniques,
		stemCfg:     o.stem,
		frondCfg:    frondCfg,
		eagerRetire: o.eagerRetire,
		state:       noDevice{},
	}
}

// frondConfig merges the attachments of every technique.
func frondConfig(o *options) (*shared.FrondConfig, error) {
	cfg := shared.DefaultFrondConfig()
	if len(o.formats) > 0 {
		cfg.PreferredFormats = o.formats
	}
	if len(o.presentModes) > 0 {
		cfg.PresentModes = o.presentModes
	}
	seen := map[string]shared.AttachmentSpec{}
	for _, t := range o.techniques {
		for _, a := range t.Attachments() {
			prev, ok := seen[a.Name]
			if !ok {
				seen[a.Name] = a
				cfg.Attachments = append(cfg.Attachments, a)
				continue
			}
			if prev.Format != a.Format || prev.Aspect != a.Aspect {
				return nil, fmt.Errorf("renderer: technique %s redeclares attachment %q as %v", t.Name(), a.Name, a.Format)
			}
			// Shared attachments need the union of all usages.
			for i := range cfg.Attachments {
				if cfg.Attachments[i].Name == a.Name {
					cfg.Attachments[i].Usage |= a.Usage
				}
			}
		}
	}
	return cfg, nil
}

// State reports the current resurrection state.
func (r *Renderer) State() State { return r.state.kind() }

// Crown returns the Renderer's Crown.
func (r *Renderer) Crown() *shared.Crown { return r.crown }

// Current returns the Stem and Frond of the current generation. Either may
// be nil. Callers must not keep them across Draw calls.
func (r *Renderer) Current() (*shared.Stem, *shared.Frond) {
	switch s := r.state.(type) {
	case *live:
		return s.frond.Stem(), s.frond
	case *retiring:
		return s.retired.Stem(), nil
	}
	return nil, nil
}

// Draw renders and presents one frame.
func (r *Renderer) Draw(params *FrameParams) (Frame, error) {
	if r.closed {
		return Frame{Status: StatusFailed}, ErrClosed
	}
	if params == nil {
		params = &FrameParams{}
	}
	log := logging.L()

	if err := r.prepare(); err != nil {
		if errors.Is(err, shared.ErrNoSurfaceArea) {
			return Frame{Status: StatusSkipped}, nil
		}
		if errors.Is(err, vk.ErrDeviceLost) {
			r.dropDevice()
		}
		return Frame{Status: StatusFailed}, err
	}

	lv := r.state.(*live)
	frame, err := r.drawFrame(lv, params)
	switch {
	case err == nil:
	case errors.Is(err, vk.ErrDeviceLost), errors.Is(err, errWedged):
		log.Warn("device unusable, rebuilding on next frame", "err", err)
		r.dropDevice()
		return Frame{Status: StatusFailed}, err
	case errors.Is(err, vk.ErrOutOfDate):
		log.Info("swapchain out of date", "resolution", lv.frond.Resolution())
		r.retire(lv)
		return Frame{Status: StatusSkipped, Resolution: frame.Resolution}, nil
	default:
		return Frame{Status: StatusFailed}, err
	}

	if frame.Suboptimal {
		log.Debug("swapchain suboptimal", "resolution", frame.Resolution, "eager", r.eagerRetire)
		if r.eagerRetire {
			r.forceRetire = true
		}
	}
	return frame, nil
}

// prepare moves the state machine to live. A zero drawable area leaves it
// retiring and returns shared.ErrNoSurfaceArea.
func (r *Renderer) prepare() error {
	if lv, ok := r.state.(*live); ok {
		if area := r.crown.DrawableArea(); r.forceRetire || area != lv.frond.DrawableArea() {
			log := logging.L()
			log.Info("retiring swapchain", "from", lv.frond.DrawableArea(), "to", area, "forced", r.forceRetire)
			r.retire(lv)
		}
	}

	if _, ok := r.state.(noDevice); ok {
		stem, err := shared.NewStem(r.crown, r.stemCfg)
		if err != nil {
			return err
		}
		passes, err := r.newPassStems(stem)
		if err != nil {
			stem.Release()
			return err
		}
		r.state = &retiring{retired: shared.NewRetiredSwapchain(stem), passes: passes}
		stem.Release()
	}

	rt, ok := r.state.(*retiring)
	if !ok {
		return nil
	}
	frond, err := rt.retired.Resurrect(r.frondCfg)
	if err != nil {
		return err
	}
	fronds, err := r.newPassFronds(rt.passes, frond)
	if err != nil {
		retired, rerr := frond.Retire()
		if rerr != nil {
			// A pass leaked a reference; start over without the old swapchain.
			stem := frond.Stem()
			rt.retired = shared.NewRetiredSwapchain(stem)
			frond.Release()
			return errors.Join(err, rerr)
		}
		rt.retired = retired
		return err
	}
	r.state = &live{frond: frond, passes: rt.passes, fronds: fronds}
	return nil
}

func (r *Renderer) newPassStems(stem *shared.Stem) ([]PassStem, error) {
	passes := make([]PassStem, 0, len(r.techniques))
	for _, t := range r.techniques {
		p, err := t.NewStem(stem)
		if err != nil {
			destroyPassStems(passes)
			return nil, fmt.Errorf("renderer: %s stem: %w", t.Name(), err)
		}
		passes = append(passes, p)
	}
	return passes, nil
}

func (r *Renderer) newPassFronds(passes []PassStem, frond *shared.Frond) ([]PassFrond, error) {
	fronds := make([]PassFrond, 0, len(passes))
	for i, p := range passes {
		f, err := p.NewFrond(frond)
		if err != nil {
			destroyPassFronds(fronds)
			return nil, fmt.Errorf("renderer: %s frond: %w", r.techniques[i].Name(), err)
		}
		fronds = append(fronds, f)
	}
	return fronds, nil
}

// retire replaces the live state with a retiring one.
func (r *Renderer) retire(lv *live) {
	r.forceRetire = false
	stem := lv.frond.Stem()
	if err := stem.Device().WaitIdle(); err != nil {
		logging.L().Warn("retire: wait idle failed", "err", err)
	}
	destroyPassFronds(lv.fronds)
	retired, err := lv.frond.Retire()
	if err != nil {
		logging.L().Error("retire: frond still referenced, dropping its swapchain", "err", err)
		retired = shared.NewRetiredSwapchain(stem)
		lv.frond.Release()
	}
	r.state = &retiring{retired: retired, passes: lv.passes}
}

// dropDevice destroys everything below the Crown.
func (r *Renderer) dropDevice() {
	switch s := r.state.(type) {
	case *live:
		destroyPassFronds(s.fronds)
		s.frond.Release()
		destroyPassStems(s.passes)
	case *retiring:
		s.retired.Destroy()
		destroyPassStems(s.passes)
	}
	r.state = noDevice{}
	r.forceRetire = false
}

// Close waits for the GPU and destroys everything, the Crown last. It is
// safe to call more than once.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	if stem, _ := r.Current(); stem != nil {
		if err := stem.Device().WaitIdle(); err != nil {
			logging.L().Warn("close: wait idle failed", "err", err)
		}
	}
	r.dropDevice()
	r.crown.Release()
	logging.L().Info("renderer closed", "frames", r.frames)
}
