// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader compiles the WGSL sources of the built-in passes to SPIR-V.
package shader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/rendercore/guard"
	"github.com/gogpu/rendercore/internal/cache"
	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// ErrNotSPIRV is returned for output that is not a SPIR-V module.
var ErrNotSPIRV = errors.New("shader: not a SPIR-V module")

// cacheSize bounds the number of compiled modules kept.
const cacheSize = 32

var compiled = cache.New[string, []uint32](cacheSize)

// Compile compiles WGSL source to SPIR-V words. Results are cached by
// source; callers must not modify the returned slice.
func Compile(label, source string) ([]uint32, error) {
	return compiled.GetOrCreate(source, func() ([]uint32, error) {
		b, err := naga.Compile(source)
		if err != nil {
			return nil, fmt.Errorf("shader: compile %s: %w", label, err)
		}
		w, err := Words(b)
		if err != nil {
			return nil, fmt.Errorf("shader: compile %s: %w", label, err)
		}
		return w, nil
	})
}

// CacheStats reports the compile cache counters.
func CacheStats() cache.Stats { return compiled.Stats() }

// Words converts a little-endian SPIR-V byte stream to words.
func Words(b []byte) ([]uint32, error) {
	if len(b) < 4 || len(b)%4 != 0 {
		return nil, fmt.Errorf("%w (%d bytes)", ErrNotSPIRV, len(b))
	}
	w := make([]uint32, len(b)/4)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if w[0] != SPIRVMagic {
		return nil, fmt.Errorf("%w (magic %#08x)", ErrNotSPIRV, w[0])
	}
	return w, nil
}

// NewModule compiles source and creates a guarded shader module on dev.
func NewModule(dev vk.Device, label, source string) (*guard.Guard[vk.ShaderModule], error) {
	code, err := Compile(label, source)
	if err != nil {
		return nil, err
	}
	return shared.NewShaderModule(dev, label, code)
}
