// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

// Option configures a Renderer.
type Option func(*options)

type options struct {
	techniques   []Technique
	crown        *shared.CrownConfig
	stem         *shared.StemConfig
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
	eagerRetire  bool
}

func defaultOptions() options {
	return options{
		crown: shared.DefaultCrownConfig(),
		stem:  &shared.StemConfig{},
	}
}

// WithTechniques sets the passes recorded every frame, in order.
func WithTechniques(t ...Technique) Option {
	return func(o *options) { o.techniques = append(o.techniques, t...) }
}

// WithCrownConfig configures instance creation. Ignored by NewFromCrown.
func WithCrownConfig(cfg *shared.CrownConfig) Option {
	return func(o *options) {
		if cfg != nil {
			o.crown = cfg
		}
	}
}

// WithStemConfig configures device creation.
func WithStemConfig(cfg *shared.StemConfig) Option {
	return func(o *options) {
		if cfg != nil {
			o.stem = cfg
		}
	}
}

// WithPreferredFormats overrides the swapchain format preference list.
func WithPreferredFormats(formats ...vk.SurfaceFormat) Option {
	return func(o *options) { o.formats = formats }
}

// WithPresentModes overrides the present mode preference list. FIFO remains
// the fallback.
func WithPresentModes(modes ...vk.PresentMode) Option {
	return func(o *options) { o.presentModes = modes }
}

// WithEagerRetireOnSuboptimal rebuilds the swapchain on the frame after the
// driver reports it suboptimal. By default a suboptimal swapchain is kept
// until the drawable area changes.
func WithEagerRetireOnSuboptimal(eager bool) Option {
	return func(o *options) { o.eagerRetire = eager }
}
