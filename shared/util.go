// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"github.com/gogpu/rendercore/guard"
	"github.com/gogpu/rendercore/vk"
)

// NewShaderModule creates a guarded shader module from SPIR-V words.
func NewShaderModule(dev vk.Device, label string, code []uint32) (*guard.Guard[vk.ShaderModule], error) {
	m, err := dev.CreateShaderModule(&vk.ShaderModuleDescriptor{Label: label, Code: code})
	if err != nil {
		return nil, stepError("create shader module "+label, err)
	}
	return guard.With(dev, m, vk.Device.DestroyShaderModule), nil
}

// NewPipelineLayout creates a guarded pipeline layout over setLayouts.
func NewPipelineLayout(dev vk.Device, label string, setLayouts ...vk.DescriptorSetLayout) (*guard.Guard[vk.PipelineLayout], error) {
	l, err := dev.CreatePipelineLayout(&vk.PipelineLayoutDescriptor{Label: label, SetLayouts: setLayouts})
	if err != nil {
		return nil, stepError("create pipeline layout "+label, err)
	}
	return guard.With(dev, l, vk.Device.DestroyPipelineLayout), nil
}

// NewDescriptorSetLayout creates a guarded descriptor set layout.
func NewDescriptorSetLayout(dev vk.Device, label string, bindings ...vk.DescriptorBinding) (*guard.Guard[vk.DescriptorSetLayout], error) {
	l, err := dev.CreateDescriptorSetLayout(&vk.DescriptorSetLayoutDescriptor{Label: label, Bindings: bindings})
	if err != nil {
		return nil, stepError("create descriptor set layout "+label, err)
	}
	return guard.With(dev, l, vk.Device.DestroyDescriptorSetLayout), nil
}

// NewDescriptorPool creates a guarded pool sized for maxSets sets.
func NewDescriptorPool(dev vk.Device, label string, maxSets uint32, sizes ...vk.DescriptorPoolSize) (*guard.Guard[vk.DescriptorPool], error) {
	p, err := dev.CreateDescriptorPool(&vk.DescriptorPoolDescriptor{Label: label, MaxSets: maxSets, Sizes: sizes})
	if err != nil {
		return nil, stepError("create descriptor pool "+label, err)
	}
	return guard.With(dev, p, vk.Device.DestroyDescriptorPool), nil
}

// NewRenderPass creates a guarded render pass.
func NewRenderPass(dev vk.Device, desc *vk.RenderPassDescriptor) (*guard.Guard[vk.RenderPass], error) {
	rp, err := dev.CreateRenderPass(desc)
	if err != nil {
		return nil, stepError("create render pass "+desc.Label, err)
	}
	return guard.With(dev, rp, vk.Device.DestroyRenderPass), nil
}

// NewGraphicsPipeline creates a guarded graphics pipeline.
func NewGraphicsPipeline(dev vk.Device, desc *vk.GraphicsPipelineDescriptor) (*guard.Guard[vk.Pipeline], error) {
	p, err := dev.CreateGraphicsPipeline(desc)
	if err != nil {
		return nil, stepError("create pipeline "+desc.Label, err)
	}
	return guard.With(dev, p, vk.Device.DestroyPipeline), nil
}

// NewFramebuffer creates a guarded framebuffer.
func NewFramebuffer(dev vk.Device, desc *vk.FramebufferDescriptor) (*guard.Guard[vk.Framebuffer], error) {
	fb, err := dev.CreateFramebuffer(desc)
	if err != nil {
		return nil, stepError("create framebuffer "+desc.Label, err)
	}
	return guard.With(dev, fb, vk.Device.DestroyFramebuffer), nil
}
