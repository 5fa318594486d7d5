// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import "sync/atomic"

// generations numbers every Stem and Frond ever built.
var generations atomic.Uint64

func nextGeneration() uint64 { return generations.Add(1) }

// refs is a reference count that starts at one.
type refs struct {
	n atomic.Int32
}

func (r *refs) init() { r.n.Store(1) }

func (r *refs) retain(what string) {
	if r.n.Add(1) <= 1 {
		panic("shared: Retain of released " + what)
	}
}

// release reports whether the last reference was dropped.
func (r *refs) release(what string) bool {
	n := r.n.Add(-1)
	if n < 0 {
		panic("shared: Release of released " + what)
	}
	return n == 0
}

func (r *refs) count() int32 { return r.n.Load() }
