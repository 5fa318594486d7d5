// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// errWedged marks a frame after which the presentation fence can no longer
// be brought back to the signaled state.
var errWedged = errors.New("renderer: presentation fence lost")

// drawFrame runs one frame against lv:
//
//	wait fence -> acquire -> reset fence -> record -> submit -> present
//
// The fence is reset only after an image was acquired. Any failure between
// the reset and the submit re-signals it with an empty submission so the
// next frame's wait cannot block forever.
func (r *Renderer) drawFrame(lv *live, params *FrameParams) (Frame, error) {
	frond := lv.frond
	stem := frond.Stem()
	dev := stem.Device()
	queues := stem.Queues()
	fence := stem.PresentationFence()
	acquired := stem.ImageAcquiredSemaphore()
	frame := Frame{Status: StatusFailed, Resolution: frond.Resolution()}

	if err := dev.WaitForFence(fence, vk.Infinite); err != nil {
		return frame, fmt.Errorf("renderer: wait for presentation fence: %w", err)
	}

	index, suboptimal, err := dev.AcquireNextImage(frond.Swapchain(), vk.Infinite, acquired)
	if err != nil {
		return frame, fmt.Errorf("renderer: acquire image: %w", err)
	}
	frame.ImageIndex = index
	frame.Suboptimal = suboptimal

	if err := dev.ResetFence(fence); err != nil {
		// The fence is still signaled; only the semaphore needs consuming.
		return frame, r.resignal(dev, queues.Graphics, acquired, 0, fmt.Errorf("renderer: reset fence: %w", err))
	}

	cb := stem.CommandBuffer()
	if err := r.record(lv, cb, index, params); err != nil {
		return frame, r.resignal(dev, queues.Graphics, acquired, fence, err)
	}

	complete := stem.RenderCompleteSemaphore()
	err = dev.QueueSubmit(queues.Graphics, []vk.SubmitInfo{{
		WaitSemaphores:   []vk.Semaphore{acquired},
		WaitStages:       []vk.PipelineStageFlags{vk.StageColorAttachmentOutput},
		CommandBuffers:   []vk.CommandBuffer{cb},
		SignalSemaphores: []vk.Semaphore{complete},
	}}, fence)
	if err != nil {
		return frame, r.resignal(dev, queues.Graphics, acquired, fence, fmt.Errorf("renderer: submit: %w", err))
	}

	suboptimal, err = dev.QueuePresent(queues.Present, &vk.PresentInfo{
		WaitSemaphores: []vk.Semaphore{complete},
		Swapchain:      frond.Swapchain(),
		ImageIndex:     index,
	})
	if err != nil {
		return frame, r.unwaitedPresent(dev, queues.Graphics, complete, fmt.Errorf("renderer: present: %w", err))
	}

	r.frames++
	frame.Status = StatusDrew
	frame.Suboptimal = frame.Suboptimal || suboptimal
	return frame, nil
}

func (r *Renderer) record(lv *live, cb vk.CommandBuffer, index uint32, params *FrameParams) error {
	dev := lv.frond.Stem().Device()
	if err := dev.ResetCommandBuffer(cb); err != nil {
		return fmt.Errorf("renderer: reset command buffer: %w", err)
	}
	if err := dev.BeginCommandBuffer(cb); err != nil {
		return fmt.Errorf("renderer: begin command buffer: %w", err)
	}
	state := &FrameState{
		Stem:       lv.frond.Stem(),
		Frond:      lv.frond,
		ImageIndex: index,
		Params:     params,
		Number:     r.frames + 1,
	}
	for i, p := range lv.fronds {
		if err := p.Record(cb, state); err != nil {
			// Left recording; the next frame resets it.
			return fmt.Errorf("renderer: record %s: %w", r.techniques[i].Name(), err)
		}
	}
	if err := dev.EndCommandBuffer(cb); err != nil {
		return fmt.Errorf("renderer: end command buffer: %w", err)
	}
	return nil
}

// resignal consumes the acquire semaphore and, unless fence is zero, signals
// the fence with an empty submission, then returns cause. Device loss needs
// no repair; the whole device is dropped.
func (r *Renderer) resignal(dev vk.Device, q vk.Queue, acquired vk.Semaphore, fence vk.Fence, cause error) error {
	if errors.Is(cause, vk.ErrDeviceLost) {
		return cause
	}
	err := dev.QueueSubmit(q, []vk.SubmitInfo{{
		WaitSemaphores: []vk.Semaphore{acquired},
		WaitStages:     []vk.PipelineStageFlags{vk.StageTopOfPipe},
	}}, fence)
	if err != nil {
		logging.L().Error("failed to re-signal presentation fence", "err", err, "cause", cause)
		return errors.Join(cause, errWedged, err)
	}
	return cause
}

// unwaitedPresent handles a failed present. Out-of-date, surface-lost and
// device-lost presents still execute their semaphore waits; any other
// failure leaves renderComplete signaled, so an empty submission waits on
// it before the next frame signals it again.
func (r *Renderer) unwaitedPresent(dev vk.Device, q vk.Queue, complete vk.Semaphore, cause error) error {
	if errors.Is(cause, vk.ErrOutOfDate) || errors.Is(cause, vk.ErrSurfaceLost) || errors.Is(cause, vk.ErrDeviceLost) {
		return cause
	}
	err := dev.QueueSubmit(q, []vk.SubmitInfo{{
		WaitSemaphores: []vk.Semaphore{complete},
		WaitStages:     []vk.PipelineStageFlags{vk.StageTopOfPipe},
	}}, 0)
	if err != nil {
		logging.L().Error("failed to consume render-complete semaphore", "err", err, "cause", cause)
		return errors.Join(cause, errWedged, err)
	}
	return cause
}
