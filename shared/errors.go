// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"errors"
	"fmt"

	"github.com/gogpu/rendercore/vk"
)

// Sentinel errors.
var (
	// ErrNoSuitableDevice means no physical device offers both a graphics
	// queue family and a family that can present to the surface.
	ErrNoSuitableDevice = errors.New("shared: no physical device with graphics and present queues")

	// ErrNoSurfaceFormat means the surface supports none of the preferred
	// formats.
	ErrNoSurfaceFormat = errors.New("shared: no supported surface format")

	// ErrNoMemoryType means no memory type satisfies a resource's
	// requirements and the requested properties.
	ErrNoMemoryType = errors.New("shared: no suitable memory type")

	// ErrNoSurfaceArea means the drawable area is zero. It is not a fault:
	// callers skip rendering until the window has an area again.
	ErrNoSurfaceArea = errors.New("shared: drawable area is zero")

	// ErrFrondInUse is returned by Frond.Retire when other references to
	// the frond are still held.
	ErrFrondInUse = errors.New("shared: frond is still referenced")

	// ErrSpent is returned when a retired swapchain that was already
	// resurrected or destroyed is used again.
	ErrSpent = errors.New("shared: retired swapchain already consumed")

	// ErrStemMismatch is returned when an object built from one Stem is
	// combined with another.
	ErrStemMismatch = errors.New("shared: object belongs to a different stem")
)

// StepError reports which construction step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("shared: %s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

func stepError(step string, err error) error {
	var se *StepError
	if errors.As(err, &se) || errors.Is(err, ErrNoMemoryType) || errors.Is(err, ErrNoSurfaceArea) {
		return err
	}
	return &StepError{Step: step, Err: err}
}

// MemoryTypeError is returned when memory-type selection finds nothing.
type MemoryTypeError struct {
	Requirements vk.MemoryRequirements
	Flags        vk.MemoryPropertyFlags
}

func (e *MemoryTypeError) Error() string {
	return fmt.Sprintf("shared: no memory type in bits %#b with flags %#x", e.Requirements.TypeBits, uint32(e.Flags))
}

func (e *MemoryTypeError) Is(target error) bool { return target == ErrNoMemoryType }

// NoSurfaceFormatError lists what the surface offered instead.
type NoSurfaceFormatError struct {
	Available []vk.SurfaceFormat
}

func (e *NoSurfaceFormatError) Error() string {
	return fmt.Sprintf("shared: none of the preferred formats is supported (surface offers %v)", e.Available)
}

func (e *NoSurfaceFormatError) Is(target error) bool { return target == ErrNoSurfaceFormat }
