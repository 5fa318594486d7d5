// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package guard

// Stack collects cleanups in acquisition order and runs them in reverse.
//
// The zero value is ready to use:
//
//	var st guard.Stack
//	defer st.Unwind()
//	st.Push(func() { ... })
//	...
//	teardown := st.Detach() // success: the caller now owns the cleanups
type Stack struct {
	fns []func()
}

// Push appends a cleanup.
func (s *Stack) Push(fn func()) { s.fns = append(s.fns, fn) }

// Len returns the number of pending cleanups.
func (s *Stack) Len() int { return len(s.fns) }

// Unwind runs pending cleanups newest first and empties the stack.
func (s *Stack) Unwind() {
	fns := s.fns
	s.fns = nil
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// Detach empties the stack and returns a function that unwinds what was in
// it. The returned function runs the cleanups at most once.
func (s *Stack) Detach() func() {
	moved := Stack{fns: s.fns}
	s.fns = nil
	return moved.Unwind
}
