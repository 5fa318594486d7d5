// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package guard

// Seq owns a growing sequence of handles sharing one destroy function.
// Release destroys every element exactly once, newest first.
type Seq[H any] struct {
	items   []H
	destroy func(H)
	state   state
}

// NewSeq returns an empty sequence guard.
func NewSeq[H any](destroy func(H)) *Seq[H] {
	return &Seq[H]{destroy: destroy}
}

// SeqWith is NewSeq with a destruction context.
func SeqWith[C, H any](ctx C, destroy func(C, H)) *Seq[H] {
	return NewSeq(func(h H) { destroy(ctx, h) })
}

// Push transfers ownership of h to the sequence.
func (s *Seq[H]) Push(h H) {
	if s.state != held {
		panic("guard: Push on " + s.state.String() + " sequence")
	}
	s.items = append(s.items, h)
}

// Items returns the owned handles in push order. The slice is shared with
// the guard and must not be modified.
func (s *Seq[H]) Items() []H { return s.items }

// Len returns the number of owned handles.
func (s *Seq[H]) Len() int { return len(s.items) }

// Take moves every handle to the caller.
func (s *Seq[H]) Take() []H {
	if s.state != held {
		panic("guard: Take on " + s.state.String() + " sequence")
	}
	s.state = taken
	items := s.items
	s.items = nil
	return items
}

// Release destroys all owned handles in reverse push order.
func (s *Seq[H]) Release() {
	if s.state != held {
		return
	}
	s.state = released
	items := s.items
	s.items = nil
	for i := len(items) - 1; i >= 0; i-- {
		s.destroy(items[i])
	}
}
