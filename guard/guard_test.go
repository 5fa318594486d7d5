// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package guard

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type recorder struct {
	destroyed []string
}

func (r *recorder) destroy(h string) { r.destroyed = append(r.destroyed, h) }

func TestGuardReleaseDestroysOnce(t *testing.T) {
	var r recorder
	g := New("image", r.destroy)
	if !g.Held() {
		t.Fatal("new guard should hold its handle")
	}
	g.Release()
	g.Release()
	if diff := cmp.Diff([]string{"image"}, r.destroyed); diff != "" {
		t.Errorf("destroyed mismatch (-want +got):\n%s", diff)
	}
	if g.Held() {
		t.Error("released guard still reports Held")
	}
}

func TestGuardTakeSuppressesRelease(t *testing.T) {
	var r recorder
	g := New("view", r.destroy)
	if got := g.Take(); got != "view" {
		t.Errorf("Take() = %q", got)
	}
	g.Release()
	if len(r.destroyed) != 0 {
		t.Errorf("taken handle was destroyed: %v", r.destroyed)
	}
}

func TestGuardTakeAfterReleasePanics(t *testing.T) {
	g := New(1, func(int) {})
	g.Release()
	defer func() {
		if recover() == nil {
			t.Error("Take after Release should panic")
		}
	}()
	g.Take()
}

func TestGuardWithBindsContext(t *testing.T) {
	type device struct{ log []string }
	dev := &device{}
	g := With(dev, 42, func(d *device, h int) { d.log = append(d.log, fmt.Sprint("destroy ", h)) })
	*g.Ptr() = 43
	g.Release()
	if diff := cmp.Diff([]string{"destroy 43"}, dev.log); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

// build runs n guarded steps and fails at step failAt (1-based, 0 = never).
func build(r *recorder, n, failAt int) ([]string, error) {
	var guards []*Guard[string]
	defer func() {
		for i := len(guards) - 1; i >= 0; i-- {
			guards[i].Release()
		}
	}()
	for i := 1; i <= n; i++ {
		if i == failAt {
			return nil, errors.New("step failed")
		}
		guards = append(guards, New(fmt.Sprintf("step%d", i), r.destroy))
	}
	out := make([]string, 0, n)
	for _, g := range guards {
		out = append(out, g.Take())
	}
	return out, nil
}

func TestPartialConstructionUnwindsInReverse(t *testing.T) {
	const n = 5
	for k := 1; k <= n; k++ {
		t.Run(fmt.Sprintf("fail_at_%d", k), func(t *testing.T) {
			var r recorder
			if _, err := build(&r, n, k); err == nil {
				t.Fatal("expected error")
			}
			want := []string{}
			for i := k - 1; i >= 1; i-- {
				want = append(want, fmt.Sprintf("step%d", i))
			}
			if diff := cmp.Diff(want, r.destroyed, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("destroyed mismatch (-want +got):\n%s", diff)
			}
		})
	}
	t.Run("success", func(t *testing.T) {
		var r recorder
		out, err := build(&r, n, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != n || len(r.destroyed) != 0 {
			t.Errorf("out=%v destroyed=%v", out, r.destroyed)
		}
	})
}

func TestSeqReleaseReverseOrder(t *testing.T) {
	for k := 0; k <= 4; k++ {
		var r recorder
		s := NewSeq(r.destroy)
		for i := 0; i < k; i++ {
			s.Push(fmt.Sprint(i))
		}
		if s.Len() != k {
			t.Fatalf("Len() = %d, want %d", s.Len(), k)
		}
		s.Release()
		s.Release()
		if len(r.destroyed) != k {
			t.Fatalf("k=%d: destroyed %d elements", k, len(r.destroyed))
		}
		for i, h := range r.destroyed {
			if want := fmt.Sprint(k - 1 - i); h != want {
				t.Errorf("k=%d: destroyed[%d] = %s, want %s", k, i, h, want)
			}
		}
	}
}

func TestSeqTake(t *testing.T) {
	var r recorder
	s := SeqWith(&r, (*recorder).destroy)
	s.Push("a")
	s.Push("b")
	items := s.Take()
	s.Release()
	if diff := cmp.Diff([]string{"a", "b"}, items); diff != "" {
		t.Errorf("Take mismatch (-want +got):\n%s", diff)
	}
	if len(r.destroyed) != 0 {
		t.Errorf("taken sequence destroyed %v", r.destroyed)
	}
}

func TestSeqPushAfterReleasePanics(t *testing.T) {
	s := NewSeq(func(int) {})
	s.Release()
	defer func() {
		if recover() == nil {
			t.Error("Push after Release should panic")
		}
	}()
	s.Push(1)
}

func TestStack(t *testing.T) {
	var log []int
	var st Stack
	for i := 0; i < 3; i++ {
		st.Push(func() { log = append(log, i) })
	}
	teardown := st.Detach()
	st.Unwind()
	if len(log) != 0 {
		t.Fatalf("detached cleanups ran early: %v", log)
	}
	teardown()
	teardown()
	if diff := cmp.Diff([]int{2, 1, 0}, log); diff != "" {
		t.Errorf("unwind order (-want +got):\n%s", diff)
	}
}
