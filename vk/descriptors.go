// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vk

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Infinite is the timeout for waits that never give up.
const Infinite time.Duration = -1

// InstanceDescriptor describes an Instance.
type InstanceDescriptor struct {
	ApplicationName string
	Extensions      []string
	Layers          []string
	// Debug asks the driver to enable whatever extension its debug
	// messengers need.
	Debug bool
}

// DebugMessengerDescriptor describes a debug messenger.
type DebugMessengerDescriptor struct {
	Severities DebugSeverity
	Callback   DebugCallback
}

// DeviceDescriptor describes a logical device. One queue is created for each
// distinct family in QueueFamilies.
type DeviceDescriptor struct {
	PhysicalDevice PhysicalDevice
	QueueFamilies  []uint32
	Extensions     []string
}

// ImageDescriptor describes a device image.
type ImageDescriptor struct {
	Label       string
	Format      Format
	Size        gputypes.Extent3D
	Dimension   gputypes.TextureDimension
	MipLevels   uint32
	ArrayLayers uint32
	Samples     uint32
	Usage       ImageUsage
}

// ImageViewDescriptor describes a view over an image.
type ImageViewDescriptor struct {
	Label      string
	Image      Image
	Format     Format
	Dimension  gputypes.TextureViewDimension
	Aspect     ImageAspectFlags
	BaseMip    uint32
	MipCount   uint32
	BaseLayer  uint32
	LayerCount uint32
}

// SwapchainDescriptor describes a swapchain.
type SwapchainDescriptor struct {
	Surface       Surface
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent2D
	Usage         ImageUsage
	Sharing       SharingMode
	QueueFamilies []uint32
	Transform     SurfaceTransform
	PresentMode   PresentMode
	// OldSwapchain is the swapchain being replaced, or NullSwapchain.
	OldSwapchain Swapchain
}

// CommandPoolDescriptor describes a command pool.
type CommandPoolDescriptor struct {
	QueueFamily uint32
	// Resettable allows individual command buffers to be reset.
	Resettable bool
}

// ShaderModuleDescriptor holds SPIR-V words.
type ShaderModuleDescriptor struct {
	Label string
	Code  []uint32
}

// DescriptorBinding is one binding of a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStages
}

// DescriptorSetLayoutDescriptor describes a descriptor set layout.
type DescriptorSetLayoutDescriptor struct {
	Label    string
	Bindings []DescriptorBinding
}

// DescriptorPoolSize reserves Count descriptors of Type.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// DescriptorPoolDescriptor describes a descriptor pool.
type DescriptorPoolDescriptor struct {
	Label   string
	MaxSets uint32
	Sizes   []DescriptorPoolSize
}

// DescriptorImageWrite points a descriptor binding at an image view.
type DescriptorImageWrite struct {
	Set     DescriptorSet
	Binding uint32
	Type    DescriptorType
	View    ImageView
	Layout  ImageLayout
}

// PipelineLayoutDescriptor describes a pipeline layout.
type PipelineLayoutDescriptor struct {
	Label      string
	SetLayouts []DescriptorSetLayout
}

// AttachmentDescription describes one render pass attachment.
type AttachmentDescription struct {
	Format        Format
	LoadOp        gputypes.LoadOp
	StoreOp       gputypes.StoreOp
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
}

// AttachmentRef references an attachment from the subpass.
type AttachmentRef struct {
	Index  uint32
	Layout ImageLayout
}

// RenderPassDescriptor describes a single-subpass render pass.
type RenderPassDescriptor struct {
	Label        string
	Attachments  []AttachmentDescription
	Color        []AttachmentRef
	DepthStencil *AttachmentRef
}

// FramebufferDescriptor binds views to a render pass.
type FramebufferDescriptor struct {
	Label       string
	RenderPass  RenderPass
	Attachments []ImageView
	Extent      Extent2D
}

// GraphicsPipelineDescriptor describes a graphics pipeline without vertex
// input: every pass draws procedurally generated geometry.
type GraphicsPipelineDescriptor struct {
	Label          string
	Layout         PipelineLayout
	RenderPass     RenderPass
	VertexModule   ShaderModule
	VertexEntry    string
	FragmentModule ShaderModule
	FragmentEntry  string
	Topology       gputypes.PrimitiveTopology
	ColorTargets   uint32
	DepthTest      bool
	DepthWrite     bool
	Viewport       Extent2D
}

// ClearValue clears either a color or a depth/stencil attachment.
type ClearValue struct {
	Color   gputypes.Color
	Depth   float32
	Stencil uint32
}

// RenderPassBeginInfo starts a render pass scope.
type RenderPassBeginInfo struct {
	RenderPass  RenderPass
	Framebuffer Framebuffer
	Area        Extent2D
	ClearValues []ClearValue
}

// SubmitInfo describes one queue submission.
type SubmitInfo struct {
	WaitSemaphores   []Semaphore
	WaitStages       []PipelineStageFlags
	CommandBuffers   []CommandBuffer
	SignalSemaphores []Semaphore
}

// PresentInfo presents one swapchain image.
type PresentInfo struct {
	WaitSemaphores []Semaphore
	Swapchain      Swapchain
	ImageIndex     uint32
}
