// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// DeviceProvider exposes the Frond's device to gogpu libraries that accept a
// gpucontext.DeviceProvider. The provider holds no reference: it is valid only
// while the Frond is.
func (f *Frond) DeviceProvider() gpucontext.DeviceProvider {
	return &deviceProvider{frond: f}
}

type deviceProvider struct {
	frond *Frond
}

func (p *deviceProvider) Device() gpucontext.Device {
	return &providerDevice{stem: p.frond.stem}
}

func (p *deviceProvider) Queue() gpucontext.Queue {
	return providerQueue{queue: p.frond.stem.Queues().Graphics}
}

func (p *deviceProvider) Adapter() gpucontext.Adapter {
	return providerAdapter{properties: p.frond.stem.Properties()}
}

func (p *deviceProvider) SurfaceFormat() gputypes.TextureFormat {
	tf, _ := p.frond.format.Format.TextureFormat()
	return tf
}

type providerDevice struct {
	stem *Stem
}

// Poll waits for the device to go idle when wait is set.
func (d *providerDevice) Poll(wait bool) {
	if !wait {
		return
	}
	if err := d.stem.Device().WaitIdle(); err != nil {
		logging.L().Warn("device provider: wait idle failed", "err", err)
	}
}

// Destroy does nothing: the Stem owns the device.
func (d *providerDevice) Destroy() {}

type providerQueue struct {
	queue vk.Queue
}

type providerAdapter struct {
	properties vk.PhysicalDeviceProperties
}
