// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	vkgo "github.com/vulkan-go/vulkan"

	"github.com/gogpu/rendercore/vk"
)

// handles maps the opaque uint64 handles handed to callers onto native
// objects. Handle zero is never issued.
type handles struct {
	mu    sync.Mutex
	next  uint64
	m     map[uint64]any
	names map[uint64]string
}

func (h *handles) add(o any) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = make(map[uint64]any)
	}
	h.next++
	h.m[h.next] = o
	return h.next
}

func (h *handles) remove(id uint64) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	o := h.m[id]
	delete(h.m, id)
	delete(h.names, id)
	return o
}

// setName names a live handle and reports whether it exists.
func (h *handles) setName(id uint64, name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.m[id]; !ok {
		return false
	}
	if h.names == nil {
		h.names = make(map[uint64]string)
	}
	h.names[id] = name
	return true
}

// named returns the sorted names of the live handles that have one.
func (h *handles) named() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.names))
	for _, n := range h.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func (h *handles) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.m)
}

func get[T any](h *handles, id uint64) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.m[id].(T)
	return o, ok
}

// result converts a native result to an error wrapping the matching vk
// sentinel. Success and Suboptimal are not errors.
func result(op string, res vkgo.Result) error {
	var err error
	switch res {
	case vkgo.Success, vkgo.Suboptimal:
		return nil
	case vkgo.ErrorDeviceLost:
		err = vk.ErrDeviceLost
	case vkgo.ErrorOutOfDate:
		err = vk.ErrOutOfDate
	case vkgo.ErrorSurfaceLost:
		err = vk.ErrSurfaceLost
	case vkgo.ErrorOutOfHostMemory:
		err = vk.ErrOutOfHostMemory
	case vkgo.ErrorOutOfDeviceMemory:
		err = vk.ErrOutOfDeviceMemory
	case vkgo.ErrorInitializationFailed:
		err = vk.ErrInitializationFailed
	case vkgo.ErrorExtensionNotPresent:
		err = vk.ErrExtensionNotPresent
	case vkgo.ErrorLayerNotPresent:
		err = vk.ErrLayerNotPresent
	case vkgo.ErrorFormatNotSupported:
		err = vk.ErrFormatNotSupported
	case vkgo.Timeout, vkgo.NotReady:
		err = vk.ErrTimeout
	default:
		err = vk.ErrUnknown
	}
	return fmt.Errorf("vulkan: %s: %w (result %d)", op, err, int32(res))
}

// timeoutNanos converts a wait timeout; negative durations wait forever.
func timeoutNanos(d time.Duration) uint64 {
	if d < 0 {
		return vkgo.MaxUint64
	}
	return uint64(d)
}

// cstrings returns NUL-terminated copies of names without duplicates.
func cstrings(names ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range names {
		for _, n := range list {
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n+"\x00")
		}
	}
	return out
}

func imageUsage(u vk.ImageUsage) vkgo.ImageUsageFlags {
	var f vkgo.ImageUsageFlagBits
	if u&vk.UsageTransferSrc != 0 {
		f |= vkgo.ImageUsageTransferSrcBit
	}
	if u&vk.UsageTransferDst != 0 {
		f |= vkgo.ImageUsageTransferDstBit
	}
	if u&vk.UsageSampled != 0 {
		f |= vkgo.ImageUsageSampledBit
	}
	if u&vk.UsageStorage != 0 {
		f |= vkgo.ImageUsageStorageBit
	}
	if u&vk.UsageColorAttachment != 0 {
		f |= vkgo.ImageUsageColorAttachmentBit
	}
	if u&vk.UsageDepthStencilAttachment != 0 {
		f |= vkgo.ImageUsageDepthStencilAttachmentBit
	}
	if u&vk.UsageInputAttachment != 0 {
		f |= vkgo.ImageUsageInputAttachmentBit
	}
	return vkgo.ImageUsageFlags(f)
}

func imageLayout(l vk.ImageLayout) vkgo.ImageLayout {
	switch l {
	case vk.LayoutColorAttachment:
		return vkgo.ImageLayoutColorAttachmentOptimal
	case vk.LayoutDepthStencilAttachment:
		return vkgo.ImageLayoutDepthStencilAttachmentOptimal
	case vk.LayoutShaderReadOnly:
		return vkgo.ImageLayoutShaderReadOnlyOptimal
	case vk.LayoutTransferSrc:
		return vkgo.ImageLayoutTransferSrcOptimal
	case vk.LayoutPresentSrc:
		return vkgo.ImageLayoutPresentSrc
	}
	return vkgo.ImageLayoutUndefined
}

func pipelineStages(s vk.PipelineStageFlags) vkgo.PipelineStageFlags {
	var f vkgo.PipelineStageFlagBits
	if s&vk.StageTopOfPipe != 0 {
		f |= vkgo.PipelineStageTopOfPipeBit
	}
	if s&vk.StageColorAttachmentOutput != 0 {
		f |= vkgo.PipelineStageColorAttachmentOutputBit
	}
	if s&vk.StageFragmentShader != 0 {
		f |= vkgo.PipelineStageFragmentShaderBit
	}
	if s&vk.StageBottomOfPipe != 0 {
		f |= vkgo.PipelineStageBottomOfPipeBit
	}
	return vkgo.PipelineStageFlags(f)
}

func descriptorType(t vk.DescriptorType) vkgo.DescriptorType {
	switch t {
	case vk.DescriptorInputAttachment:
		return vkgo.DescriptorTypeInputAttachment
	case vk.DescriptorCombinedImageSampler:
		return vkgo.DescriptorTypeCombinedImageSampler
	case vk.DescriptorUniformBuffer:
		return vkgo.DescriptorTypeUniformBuffer
	}
	return vkgo.DescriptorTypeSampledImage
}

func shaderStages(s vk.ShaderStages) vkgo.ShaderStageFlags {
	var f vkgo.ShaderStageFlagBits
	if s&vk.ShaderVertex != 0 {
		f |= vkgo.ShaderStageVertexBit
	}
	if s&vk.ShaderFragment != 0 {
		f |= vkgo.ShaderStageFragmentBit
	}
	return vkgo.ShaderStageFlags(f)
}

func loadOp(op gputypes.LoadOp) vkgo.AttachmentLoadOp {
	switch op {
	case gputypes.LoadOpClear:
		return vkgo.AttachmentLoadOpClear
	case gputypes.LoadOpLoad:
		return vkgo.AttachmentLoadOpLoad
	}
	return vkgo.AttachmentLoadOpDontCare
}

func storeOp(op gputypes.StoreOp) vkgo.AttachmentStoreOp {
	if op == gputypes.StoreOpStore {
		return vkgo.AttachmentStoreOpStore
	}
	return vkgo.AttachmentStoreOpDontCare
}

func viewType(d gputypes.TextureViewDimension) vkgo.ImageViewType {
	switch d {
	case gputypes.TextureViewDimension1D:
		return vkgo.ImageViewType1d
	case gputypes.TextureViewDimension3D:
		return vkgo.ImageViewType3d
	}
	return vkgo.ImageViewType2d
}

func imageType(d gputypes.TextureDimension) vkgo.ImageType {
	switch d {
	case gputypes.TextureDimension1D:
		return vkgo.ImageType1d
	case gputypes.TextureDimension3D:
		return vkgo.ImageType3d
	}
	return vkgo.ImageType2d
}

func deviceType(t vkgo.PhysicalDeviceType) gputypes.DeviceType {
	switch t {
	case vkgo.PhysicalDeviceTypeDiscreteGpu:
		return gputypes.DeviceTypeDiscreteGPU
	case vkgo.PhysicalDeviceTypeIntegratedGpu:
		return gputypes.DeviceTypeIntegratedGPU
	}
	var other gputypes.DeviceType
	return other
}

// severity maps debug-report flags to the most severe matching level.
func severity(flags vkgo.DebugReportFlags) vk.DebugSeverity {
	switch {
	case flags&vkgo.DebugReportFlags(vkgo.DebugReportErrorBit) != 0:
		return vk.SeverityError
	case flags&vkgo.DebugReportFlags(vkgo.DebugReportWarningBit|vkgo.DebugReportPerformanceWarningBit) != 0:
		return vk.SeverityWarning
	case flags&vkgo.DebugReportFlags(vkgo.DebugReportInformationBit) != 0:
		return vk.SeverityInfo
	}
	return vk.SeverityVerbose
}

// reportFlags is the inverse of severity for messenger registration.
func reportFlags(s vk.DebugSeverity) vkgo.DebugReportFlags {
	var f vkgo.DebugReportFlagBits
	if s&vk.SeverityError != 0 {
		f |= vkgo.DebugReportErrorBit
	}
	if s&vk.SeverityWarning != 0 {
		f |= vkgo.DebugReportWarningBit | vkgo.DebugReportPerformanceWarningBit
	}
	if s&vk.SeverityInfo != 0 {
		f |= vkgo.DebugReportInformationBit
	}
	if s&vk.SeverityVerbose != 0 {
		f |= vkgo.DebugReportDebugBit
	}
	return vkgo.DebugReportFlags(f)
}
