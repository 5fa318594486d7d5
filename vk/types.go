// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vk

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gputypes"
)

// Extent2D is a width/height pair in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero. A zero drawable area means
// "do not render now" (typically a minimized window).
func (e Extent2D) IsZero() bool { return e.Width == 0 || e.Height == 0 }

// Extent3D returns e with a depth of one.
func (e Extent2D) Extent3D() gputypes.Extent3D {
	return gputypes.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: 1}
}

func (e Extent2D) String() string { return fmt.Sprintf("%dx%d", e.Width, e.Height) }

// ExtentMatchWindow is reported as SurfaceCapabilities.CurrentExtent width and
// height when the surface size is determined by the swapchain extent.
const ExtentMatchWindow uint32 = math.MaxUint32

// Format is a texel format. Values follow the native API enumeration.
type Format uint32

// Formats used by rendercore.
const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Unorm      Format = 37
	FormatR8G8B8A8Srgb       Format = 43
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatR16G16B16A16Sfloat Format = 97
	FormatR32G32B32A32Sfloat Format = 109
	FormatD32Sfloat          Format = 126
	FormatD24UnormS8Uint     Format = 129
)

var formatNames = map[Format]string{
	FormatUndefined:          "undefined",
	FormatR8G8B8A8Unorm:      "rgba8-unorm",
	FormatR8G8B8A8Srgb:       "rgba8-srgb",
	FormatB8G8R8A8Unorm:      "bgra8-unorm",
	FormatB8G8R8A8Srgb:       "bgra8-srgb",
	FormatR16G16B16A16Sfloat: "rgba16-sfloat",
	FormatR32G32B32A32Sfloat: "rgba32-sfloat",
	FormatD32Sfloat:          "d32-sfloat",
	FormatD24UnormS8Uint:     "d24-unorm-s8-uint",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// ParseFormat parses the names printed by Format.String.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(name, s) {
			return f, nil
		}
	}
	return FormatUndefined, fmt.Errorf("vk: unknown format %q", s)
}

// IsDepth reports whether f has a depth component.
func (f Format) IsDepth() bool {
	return f == FormatD32Sfloat || f == FormatD24UnormS8Uint
}

// ColorSpace is a presentation color space.
type ColorSpace uint32

// ColorSpaceSrgbNonlinear is the only color space rendercore requests.
const ColorSpaceSrgbNonlinear ColorSpace = 0

// SurfaceFormat pairs a format with a color space.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode controls how presented images are queued.
type PresentMode uint32

// Present modes.
const (
	PresentModeImmediate   PresentMode = 0
	PresentModeMailbox     PresentMode = 1
	PresentModeFifo        PresentMode = 2
	PresentModeFifoRelaxed PresentMode = 3
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo-relaxed"
	}
	return fmt.Sprintf("PresentMode(%d)", uint32(m))
}

// QueueFlags describe queue family capabilities.
type QueueFlags uint32

// Queue capabilities.
const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
)

// QueueFamilyProperties describes one queue family of a physical device.
type QueueFamilyProperties struct {
	Flags QueueFlags
	Count uint32
}

// PhysicalDeviceProperties describes an adapter.
type PhysicalDeviceProperties struct {
	Name string
	Type gputypes.DeviceType
}

// MemoryPropertyFlags describe a memory type.
type MemoryPropertyFlags uint32

// Memory properties.
const (
	MemoryDeviceLocal MemoryPropertyFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
	MemoryLazilyAllocated
)

// Has reports whether all bits of want are set in f.
func (f MemoryPropertyFlags) Has(want MemoryPropertyFlags) bool { return f&want == want }

// MemoryType is one entry of a device's memory-type table.
type MemoryType struct {
	Flags     MemoryPropertyFlags
	HeapIndex uint32
}

// MemoryHeap is one memory heap.
type MemoryHeap struct {
	Size        uint64
	DeviceLocal bool
}

// MemoryProperties is the device memory-type table.
type MemoryProperties struct {
	Types []MemoryType
	Heaps []MemoryHeap
}

// MemoryRequirements are reported for an image before allocation.
// Bit i of TypeBits is set when memory type i may back the resource.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

// ImageAspectFlags select the aspects an image view covers.
type ImageAspectFlags uint32

// Image aspects.
const (
	AspectColor ImageAspectFlags = 1 << iota
	AspectDepth
	AspectStencil
)

// ImageUsage describes how an image is used.
type ImageUsage uint32

// Image usages.
const (
	UsageTransferSrc ImageUsage = 1 << iota
	UsageTransferDst
	UsageSampled
	UsageStorage
	UsageColorAttachment
	UsageDepthStencilAttachment
	UsageInputAttachment
)

// ImageLayout is the layout of an image subresource.
type ImageLayout uint32

// Image layouts.
const (
	LayoutUndefined ImageLayout = iota
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutPresentSrc
)

// SurfaceTransform is an opaque pre-transform value forwarded from the surface
// capabilities to the swapchain.
type SurfaceTransform uint32

// SurfaceCapabilities describe what a surface supports.
type SurfaceCapabilities struct {
	MinImageCount uint32
	// MaxImageCount of zero means there is no upper bound.
	MaxImageCount uint32
	// CurrentExtent is {ExtentMatchWindow, ExtentMatchWindow} when the
	// swapchain decides the surface size.
	CurrentExtent    Extent2D
	MinImageExtent   Extent2D
	MaxImageExtent   Extent2D
	CurrentTransform SurfaceTransform
}

// SharingMode controls queue-family ownership of swapchain images.
type SharingMode uint32

// Sharing modes.
const (
	SharingExclusive SharingMode = iota
	SharingConcurrent
)

// PipelineStageFlags select pipeline stages for semaphore waits.
type PipelineStageFlags uint32

// Pipeline stages.
const (
	StageTopOfPipe PipelineStageFlags = 1 << iota
	StageColorAttachmentOutput
	StageFragmentShader
	StageBottomOfPipe
)

// DescriptorType is the kind of resource bound at a descriptor binding.
type DescriptorType uint32

// Descriptor types.
const (
	DescriptorSampledImage DescriptorType = iota
	DescriptorInputAttachment
	DescriptorCombinedImageSampler
	DescriptorUniformBuffer
)

// ShaderStages is a mask of shader stages.
type ShaderStages uint32

// Shader stages.
const (
	ShaderVertex ShaderStages = 1 << iota
	ShaderFragment
)

// DebugSeverity is the severity attached to a driver debug message.
type DebugSeverity uint32

// Debug severities, ordered from least to most severe.
const (
	SeverityVerbose DebugSeverity = 1 << iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

// SeverityAll enables every severity.
const SeverityAll = SeverityVerbose | SeverityInfo | SeverityWarning | SeverityError

// DebugMessage is delivered to a DebugCallback.
type DebugMessage struct {
	Severity DebugSeverity
	// Type is a short category such as "validation" or "performance".
	Type    string
	ID      int32
	Message string
}

// DebugCallback receives driver debug messages. It may be called from any
// goroutine the driver chooses.
type DebugCallback func(DebugMessage)
