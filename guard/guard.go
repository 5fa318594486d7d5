// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package guard provides scoped ownership of native handles.
//
// A Guard owns exactly one handle together with the destroy function for it,
// usually a method expression bound to its destruction context:
//
//	img := guard.With(device, h, vk.Device.DestroyImage)
//	defer img.Release()
//	...
//	return img.Take(), nil
//
// Release runs on every exit path and destroys the handle unless ownership was
// moved out with Take first. Because defers run in reverse, a sequence of
// guarded construction steps that fails at step k destroys exactly the steps
// before k, newest first.
package guard

import "fmt"

type state uint8

const (
	held state = iota
	taken
	released
)

func (s state) String() string {
	switch s {
	case held:
		return "held"
	case taken:
		return "taken"
	}
	return "released"
}

// Guard exclusively owns a handle of type H.
type Guard[H any] struct {
	h       H
	destroy func(H)
	state   state
}

// New guards h. destroy is called at most once.
func New[H any](h H, destroy func(H)) *Guard[H] {
	return &Guard[H]{h: h, destroy: destroy}
}

// With guards h with a destroy function that needs a context, typically the
// device or instance that created h.
func With[C, H any](ctx C, h H, destroy func(C, H)) *Guard[H] {
	return New(h, func(h H) { destroy(ctx, h) })
}

// Get returns the guarded handle. It panics if the guard no longer owns it.
func (g *Guard[H]) Get() H {
	g.mustHold("Get")
	return g.h
}

// Ptr returns a pointer to the guarded value for in-place updates.
func (g *Guard[H]) Ptr() *H {
	g.mustHold("Ptr")
	return &g.h
}

// Held reports whether the guard still owns its handle.
func (g *Guard[H]) Held() bool { return g.state == held }

// Take moves ownership to the caller; the guard will not destroy the handle.
// Taking twice, or after Release, is an ownership bug and panics.
func (g *Guard[H]) Take() H {
	g.mustHold("Take")
	g.state = taken
	h := g.h
	var zero H
	g.h = zero
	return h
}

// Release destroys the handle if it is still owned. It is a no-op otherwise,
// so it can be deferred unconditionally.
func (g *Guard[H]) Release() {
	if g.state != held {
		return
	}
	g.state = released
	h := g.h
	var zero H
	g.h = zero
	g.destroy(h)
}

func (g *Guard[H]) mustHold(op string) {
	if g.state != held {
		panic(fmt.Sprintf("guard: %s on %s guard", op, g.state))
	}
}
