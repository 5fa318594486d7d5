// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"fmt"

	"github.com/gogpu/rendercore/shared"
)

// State is the observable resurrection state of a Renderer.
type State int

const (
	// StateNoDevice: only the Crown exists; the next Draw builds a device.
	StateNoDevice State = iota
	// StateRetiring: the device and pass stems exist, the swapchain is
	// retired (or was never built) and waits to be resurrected.
	StateRetiring
	// StateLive: everything needed to draw exists.
	StateLive
)

func (s State) String() string {
	switch s {
	case StateNoDevice:
		return "no-device"
	case StateRetiring:
		return "retiring"
	case StateLive:
		return "live"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// state is the tagged union behind State. Each variant owns exactly the
// objects that exist in that state.
type state interface {
	kind() State
}

type noDevice struct{}

type retiring struct {
	retired *shared.RetiredSwapchain
	passes  []PassStem
}

type live struct {
	frond  *shared.Frond
	passes []PassStem
	fronds []PassFrond
}

func (noDevice) kind() State  { return StateNoDevice }
func (*retiring) kind() State { return StateRetiring }
func (*live) kind() State     { return StateLive }

func destroyPassFronds(fronds []PassFrond) {
	for i := len(fronds) - 1; i >= 0; i-- {
		fronds[i].Destroy()
	}
}

func destroyPassStems(passes []PassStem) {
	for i := len(passes) - 1; i >= 0; i-- {
		passes[i].Destroy()
	}
}
