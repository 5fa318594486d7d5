// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vk

import "time"

// Standard extension and layer names.
const (
	ExtSurface             = "VK_KHR_surface"
	ExtSwapchain           = "VK_KHR_swapchain"
	ExtDebugUtils          = "VK_EXT_debug_utils"
	ExtDebugReport         = "VK_EXT_debug_report"
	LayerKhronosValidation = "VK_LAYER_KHRONOS_validation"
)

// API is the entry point of a driver implementation.
type API interface {
	// Name identifies the driver in logs.
	Name() string

	// CreateInstance creates the root object of the driver. Extensions
	// required by windows are appended by the caller.
	CreateInstance(desc *InstanceDescriptor) (Instance, error)
}

// Window is the platform window a Surface is created for.
type Window interface {
	// DrawableSize returns the current drawable area in pixels. A zero
	// width or height is legal and means nothing should be rendered.
	DrawableSize() Extent2D
}

// Instance is the destruction context for surfaces and debug messengers, and
// the parent of every Device.
type Instance interface {
	CreateDebugMessenger(desc *DebugMessengerDescriptor) (DebugMessenger, error)
	DestroyDebugMessenger(m DebugMessenger)

	CreateSurface(w Window) (Surface, error)
	DestroySurface(s Surface)

	PhysicalDevices() ([]PhysicalDevice, error)
	PhysicalDeviceProperties(pd PhysicalDevice) PhysicalDeviceProperties
	QueueFamilies(pd PhysicalDevice) []QueueFamilyProperties
	SurfaceSupport(pd PhysicalDevice, family uint32, s Surface) (bool, error)
	SurfaceCapabilities(pd PhysicalDevice, s Surface) (SurfaceCapabilities, error)
	SurfaceFormats(pd PhysicalDevice, s Surface) ([]SurfaceFormat, error)
	SurfacePresentModes(pd PhysicalDevice, s Surface) ([]PresentMode, error)
	MemoryProperties(pd PhysicalDevice) MemoryProperties

	CreateDevice(desc *DeviceDescriptor) (Device, error)

	// Destroy destroys the instance. All child objects must already be gone.
	Destroy()
}

// Device is the destruction context for every device-level handle.
type Device interface {
	// Queue returns the first queue of a family requested at creation.
	Queue(family uint32) Queue
	WaitIdle() error

	CreateImage(desc *ImageDescriptor) (Image, error)
	DestroyImage(img Image)
	ImageMemoryRequirements(img Image) MemoryRequirements
	AllocateMemory(size uint64, memoryType uint32) (DeviceMemory, error)
	FreeMemory(mem DeviceMemory)
	BindImageMemory(img Image, mem DeviceMemory, offset uint64) error
	CreateImageView(desc *ImageViewDescriptor) (ImageView, error)
	DestroyImageView(v ImageView)

	CreateSwapchain(desc *SwapchainDescriptor) (Swapchain, error)
	DestroySwapchain(sc Swapchain)
	SwapchainImages(sc Swapchain) ([]Image, error)
	// AcquireNextImage signals sem once the returned image is available.
	// suboptimal reports that presentation still works but no longer
	// matches the surface exactly.
	AcquireNextImage(sc Swapchain, timeout time.Duration, sem Semaphore) (index uint32, suboptimal bool, err error)

	CreateCommandPool(desc *CommandPoolDescriptor) (CommandPool, error)
	DestroyCommandPool(pool CommandPool)
	AllocateCommandBuffer(pool CommandPool) (CommandBuffer, error)
	ResetCommandBuffer(cb CommandBuffer) error
	BeginCommandBuffer(cb CommandBuffer) error
	EndCommandBuffer(cb CommandBuffer) error

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(s Semaphore)
	CreateFence(signaled bool) (Fence, error)
	DestroyFence(f Fence)
	WaitForFence(f Fence, timeout time.Duration) error
	ResetFence(f Fence) error

	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)
	DestroyShaderModule(m ShaderModule)
	CreateDescriptorSetLayout(desc *DescriptorSetLayoutDescriptor) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(l DescriptorSetLayout)
	CreateDescriptorPool(desc *DescriptorPoolDescriptor) (DescriptorPool, error)
	DestroyDescriptorPool(p DescriptorPool)
	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error)
	UpdateDescriptorSets(writes []DescriptorImageWrite)
	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayout, error)
	DestroyPipelineLayout(l PipelineLayout)
	CreateGraphicsPipeline(desc *GraphicsPipelineDescriptor) (Pipeline, error)
	DestroyPipeline(p Pipeline)
	CreateRenderPass(desc *RenderPassDescriptor) (RenderPass, error)
	DestroyRenderPass(rp RenderPass)
	CreateFramebuffer(desc *FramebufferDescriptor) (Framebuffer, error)
	DestroyFramebuffer(fb Framebuffer)

	// SetObjectName attaches a debug name to handle for validation messages
	// and capture tools. It is a no-op when the device has no naming
	// extension enabled.
	SetObjectName(typ ObjectType, handle uint64, name string)

	CmdBeginRenderPass(cb CommandBuffer, info *RenderPassBeginInfo)
	CmdEndRenderPass(cb CommandBuffer)
	CmdBindPipeline(cb CommandBuffer, p Pipeline)
	CmdBindDescriptorSet(cb CommandBuffer, layout PipelineLayout, set DescriptorSet)
	CmdDraw(cb CommandBuffer, vertexCount, instanceCount uint32)

	// QueueSubmit submits work and signals fence, if non-zero, when it
	// completes. An empty submit only signals the fence.
	QueueSubmit(q Queue, submits []SubmitInfo, fence Fence) error
	QueuePresent(q Queue, info *PresentInfo) (suboptimal bool, err error)

	// Destroy destroys the device. All child objects must already be gone.
	Destroy()
}
