// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vktest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/rendercore/vk"
)

func newDevice(t *testing.T, d *Driver) (vk.Instance, vk.Device) {
	t.Helper()
	inst, err := d.CreateInstance(&vk.InstanceDescriptor{ApplicationName: "test"})
	if err != nil {
		t.Fatal(err)
	}
	dev, err := inst.CreateDevice(&vk.DeviceDescriptor{PhysicalDevice: 1, QueueFamilies: []uint32{0}})
	if err != nil {
		t.Fatal(err)
	}
	return inst, dev
}

func TestFailNth(t *testing.T) {
	d := New()
	_, dev := newDevice(t, d)
	d.FailNth("CreateSemaphore", 2, vk.ErrOutOfHostMemory)

	s1, err := dev.CreateSemaphore()
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := dev.CreateSemaphore(); !errors.Is(err, vk.ErrOutOfHostMemory) {
		t.Fatalf("second call: err = %v, want out of host memory", err)
	}
	s3, err := dev.CreateSemaphore()
	if err != nil {
		t.Fatalf("third call: %v", err)
	}
	dev.DestroySemaphore(s3)
	dev.DestroySemaphore(s1)
	if got := d.Calls("CreateSemaphore"); got != 3 {
		t.Errorf("Calls = %d, want 3", got)
	}
}

func TestDoubleDestroyIsViolation(t *testing.T) {
	d := New()
	_, dev := newDevice(t, d)
	f, _ := dev.CreateFence(false)
	dev.DestroyFence(f)
	dev.DestroyFence(f)
	if len(d.Violations()) != 1 {
		t.Errorf("violations = %v, want one", d.Violations())
	}
}

func TestDestroyParentFirstIsViolation(t *testing.T) {
	d := New()
	inst, dev := newDevice(t, d)
	if _, err := dev.CreateSemaphore(); err != nil {
		t.Fatal(err)
	}
	dev.Destroy()
	inst.Destroy()
	if len(d.Violations()) == 0 {
		t.Error("destroying a device with live children should be reported")
	}
}

func TestSetObjectName(t *testing.T) {
	d := New()
	_, dev := newDevice(t, d)
	sem, _ := dev.CreateSemaphore()
	pool, _ := dev.CreateCommandPool(&vk.CommandPoolDescriptor{})
	cb, _ := dev.AllocateCommandBuffer(pool)

	dev.SetObjectName(vk.ObjectTypeSemaphore, uint64(sem), "acquire")
	dev.SetObjectName(vk.ObjectTypeCommandBuffer, uint64(cb), "frame")
	if got := d.ObjectName(uint64(sem)); got != "acquire" {
		t.Errorf("semaphore name = %q", got)
	}
	if got := d.ObjectName(uint64(cb)); got != "frame" {
		t.Errorf("command buffer name = %q", got)
	}
	d.AssertNoViolations(t)

	dev.SetObjectName(vk.ObjectTypeFence, uint64(sem), "wrong type")
	dev.DestroySemaphore(sem)
	dev.SetObjectName(vk.ObjectTypeSemaphore, uint64(sem), "dead")
	if len(d.Violations()) != 2 {
		t.Errorf("violations = %v, want two", d.Violations())
	}
	if got := d.ObjectName(uint64(sem)); got != "acquire" {
		t.Errorf("rejected names overwrote %q", got)
	}
}

func TestFenceDeadlockDetected(t *testing.T) {
	d := New()
	inst, dev := newDevice(t, d)
	f, _ := dev.CreateFence(true)
	if err := dev.WaitForFence(f, vk.Infinite); err != nil {
		t.Fatalf("signaled fence: %v", err)
	}
	_ = dev.ResetFence(f)
	if err := dev.WaitForFence(f, vk.Infinite); !errors.Is(err, ErrDeadlock) {
		t.Fatalf("reset fence wait: err = %v, want deadlock", err)
	}
	q := dev.Queue(0)
	if err := dev.QueueSubmit(q, nil, f); err != nil {
		t.Fatal(err)
	}
	if err := dev.WaitForFence(f, vk.Infinite); err != nil {
		t.Fatalf("after empty submit: %v", err)
	}
	dev.DestroyFence(f)
	dev.Destroy()
	inst.Destroy()
	if len(d.Violations()) != 1 {
		t.Errorf("violations = %v, want only the deadlock", d.Violations())
	}
}

func TestLoseDevice(t *testing.T) {
	d := New()
	inst, dev := newDevice(t, d)
	d.LoseDevice()
	if err := dev.WaitIdle(); !errors.Is(err, vk.ErrDeviceLost) {
		t.Fatalf("WaitIdle err = %v", err)
	}
	dev.Destroy()
	inst.Destroy()
	d.AssertClean(t)
}

func TestEventLog(t *testing.T) {
	d := New()
	inst, dev := newDevice(t, d)
	s, _ := dev.CreateSemaphore()
	dev.DestroySemaphore(s)
	dev.Destroy()
	inst.Destroy()

	want := []Kind{KindSemaphore, KindDevice, KindInstance}
	if diff := cmp.Diff(want, d.Destroyed()); diff != "" {
		t.Errorf("destroy order (-want +got):\n%s", diff)
	}
	d.AssertClean(t)
}

func TestEmitFiltersSeverity(t *testing.T) {
	d := New()
	inst, _ := newDevice(t, d)
	var got []string
	_, err := inst.CreateDebugMessenger(&vk.DebugMessengerDescriptor{
		Severities: vk.SeverityWarning | vk.SeverityError,
		Callback:   func(m vk.DebugMessage) { got = append(got, m.Message) },
	})
	if err != nil {
		t.Fatal(err)
	}
	d.Emit(vk.DebugMessage{Severity: vk.SeverityInfo, Message: "info"})
	d.Emit(vk.DebugMessage{Severity: vk.SeverityError, Message: "error"})
	if diff := cmp.Diff([]string{"error"}, got); diff != "" {
		t.Errorf("delivered (-want +got):\n%s", diff)
	}
}
