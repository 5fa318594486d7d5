// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vk

import "fmt"

// Non-dispatchable handles.
//
// These opaque IDs mirror the native API's 64-bit handles. The zero value is
// the null handle for every kind.
type (
	// PhysicalDevice identifies an adapter enumerated by an Instance.
	PhysicalDevice uint64

	// Queue identifies a device queue.
	Queue uint64

	// Surface is a presentable window surface.
	Surface uint64

	// DebugMessenger is a registered driver debug callback.
	DebugMessenger uint64

	// Swapchain is a chain of presentable images.
	Swapchain uint64

	// Image is a device image. Swapchain images are owned by their swapchain.
	Image uint64

	// DeviceMemory is a device memory allocation.
	DeviceMemory uint64

	// ImageView is a view over an Image.
	ImageView uint64

	// CommandPool allocates command buffers.
	CommandPool uint64

	// CommandBuffer is freed together with its pool.
	CommandBuffer uint64

	// Semaphore is a GPU-GPU synchronization primitive.
	Semaphore uint64

	// Fence is a GPU-CPU synchronization primitive.
	Fence uint64

	// ShaderModule holds compiled SPIR-V.
	ShaderModule uint64

	// PipelineLayout describes the descriptor sets a pipeline uses.
	PipelineLayout uint64

	// Pipeline is a compiled graphics pipeline.
	Pipeline uint64

	// RenderPass describes attachments and their load/store behavior.
	RenderPass uint64

	// Framebuffer binds image views to a render pass.
	Framebuffer uint64

	// DescriptorSetLayout describes one descriptor set.
	DescriptorSetLayout uint64

	// DescriptorPool allocates descriptor sets.
	DescriptorPool uint64

	// DescriptorSet is freed together with its pool.
	DescriptorSet uint64
)

// NullSwapchain is passed as OldSwapchain when there is nothing to replace.
const NullSwapchain Swapchain = 0

// ObjectType names a handle kind for SetObjectName. The values match the
// native debug-report object types.
type ObjectType uint32

// Object types.
const (
	ObjectTypeUnknown             ObjectType = 0
	ObjectTypeInstance            ObjectType = 1
	ObjectTypePhysicalDevice      ObjectType = 2
	ObjectTypeDevice              ObjectType = 3
	ObjectTypeQueue               ObjectType = 4
	ObjectTypeSemaphore           ObjectType = 5
	ObjectTypeCommandBuffer       ObjectType = 6
	ObjectTypeFence               ObjectType = 7
	ObjectTypeDeviceMemory        ObjectType = 8
	ObjectTypeImage               ObjectType = 10
	ObjectTypeImageView           ObjectType = 14
	ObjectTypeShaderModule        ObjectType = 15
	ObjectTypePipelineLayout      ObjectType = 17
	ObjectTypeRenderPass          ObjectType = 18
	ObjectTypePipeline            ObjectType = 19
	ObjectTypeDescriptorSetLayout ObjectType = 20
	ObjectTypeDescriptorPool      ObjectType = 22
	ObjectTypeDescriptorSet       ObjectType = 23
	ObjectTypeFramebuffer         ObjectType = 24
	ObjectTypeCommandPool         ObjectType = 25
	ObjectTypeSurface             ObjectType = 26
	ObjectTypeSwapchain           ObjectType = 27
)

var objectTypeNames = map[ObjectType]string{
	ObjectTypeInstance:            "instance",
	ObjectTypePhysicalDevice:      "physical_device",
	ObjectTypeDevice:              "device",
	ObjectTypeQueue:               "queue",
	ObjectTypeSemaphore:           "semaphore",
	ObjectTypeCommandBuffer:       "command_buffer",
	ObjectTypeFence:               "fence",
	ObjectTypeDeviceMemory:        "device_memory",
	ObjectTypeImage:               "image",
	ObjectTypeImageView:           "image_view",
	ObjectTypeShaderModule:        "shader_module",
	ObjectTypePipelineLayout:      "pipeline_layout",
	ObjectTypeRenderPass:          "render_pass",
	ObjectTypePipeline:            "pipeline",
	ObjectTypeDescriptorSetLayout: "descriptor_set_layout",
	ObjectTypeDescriptorPool:      "descriptor_pool",
	ObjectTypeDescriptorSet:       "descriptor_set",
	ObjectTypeFramebuffer:         "framebuffer",
	ObjectTypeCommandPool:         "command_pool",
	ObjectTypeSurface:             "surface",
	ObjectTypeSwapchain:           "swapchain",
}

func (t ObjectType) String() string {
	if s, ok := objectTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ObjectType(%d)", uint32(t))
}
