// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// RetiredSwapchain is what survives of a Frond between a resize and the next
// successful rebuild: the old swapchain, kept so the driver can hand its
// resources over, and a reference to the Stem. The swapchain is null when no
// Frond was ever built for the Stem.
type RetiredSwapchain struct {
	stem       *Stem
	swapchain  vk.Swapchain
	resolution vk.Extent2D
	spent      bool
}

// NewRetiredSwapchain returns residue without a swapchain for stem. It takes
// its own reference to stem.
func NewRetiredSwapchain(stem *Stem) *RetiredSwapchain {
	stem.Retain()
	return &RetiredSwapchain{stem: stem}
}

// Stem returns the Stem the next Frond will be built on.
func (r *RetiredSwapchain) Stem() *Stem { return r.stem }

// Swapchain returns the retired handle, possibly null.
func (r *RetiredSwapchain) Swapchain() vk.Swapchain { return r.swapchain }

// Resolution returns the extent of the retired swapchain.
func (r *RetiredSwapchain) Resolution() vk.Extent2D { return r.resolution }

// Resurrect builds a new Frond that replaces the retired swapchain. On
// success the residue is consumed: the old swapchain has been destroyed and
// the residue's Stem reference released. On failure, including
// ErrNoSurfaceArea, the residue is unchanged and Resurrect may be called
// again.
func (r *RetiredSwapchain) Resurrect(cfg *FrondConfig) (*Frond, error) {
	if r.spent {
		return nil, ErrSpent
	}
	f, err := newFrond(r.stem, cfg, r.swapchain)
	if err != nil {
		return nil, err
	}
	logging.L().Debug("swapchain resurrected", "stem", r.stem.Generation(), "from", r.resolution, "to", f.Resolution())
	r.consume()
	return f, nil
}

// Destroy destroys the retired swapchain and releases the Stem. It is a
// no-op on consumed residue.
func (r *RetiredSwapchain) Destroy() {
	if r.spent {
		return
	}
	if r.swapchain != vk.NullSwapchain {
		r.stem.Device().DestroySwapchain(r.swapchain)
	}
	r.consume()
}

func (r *RetiredSwapchain) consume() {
	stem := r.stem
	r.spent, r.stem, r.swapchain = true, nil, vk.NullSwapchain
	stem.Release()
}
