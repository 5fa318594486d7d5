// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"fmt"
	"time"

	vkgo "github.com/vulkan-go/vulkan"

	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

type deviceImage struct {
	native vkgo.Image
	format vk.Format
	// owned images belong to a swapchain and are never destroyed directly.
	owned bool
}

type swapchain struct {
	native vkgo.Swapchain
	format vk.Format
	images []vk.Image
}

type commandPool struct {
	native  vkgo.CommandPool
	buffers []uint64
}

type commandBuffer struct {
	native vkgo.CommandBuffer
}

type descriptorPool struct {
	native vkgo.DescriptorPool
	sets   []uint64
}

type renderPass struct {
	native  vkgo.RenderPass
	formats []vk.Format
}

type device struct {
	in     *instance
	native vkgo.Device
	pd     vkgo.PhysicalDevice
	queues map[uint32]vk.Queue

	// sampler backs combined image-sampler writes; created on first use.
	sampler vkgo.Sampler

	objects handles
}

func (dev *device) Queue(family uint32) vk.Queue { return dev.queues[family] }

// addNamed registers o and names it with label, if any.
func (dev *device) addNamed(label string, o any) uint64 {
	id := dev.objects.add(o)
	if label != "" {
		dev.objects.setName(id, label)
	}
	return id
}

// SetObjectName names a live handle. vulkan-go binds no debug-marker entry
// points, so names stay in the handle table and appear in leak warnings.
func (dev *device) SetObjectName(typ vk.ObjectType, h uint64, name string) {
	if !dev.objects.setName(h, name) {
		logging.L().Warn("vulkan: name given to unknown handle", "type", typ, "handle", h, "name", name)
	}
}

func (dev *device) WaitIdle() error {
	return result("wait idle", vkgo.DeviceWaitIdle(dev.native))
}

func (dev *device) CreateImage(desc *vk.ImageDescriptor) (vk.Image, error) {
	info := vkgo.ImageCreateInfo{
		SType:     vkgo.StructureTypeImageCreateInfo,
		ImageType: imageType(desc.Dimension),
		Format:    vkgo.Format(desc.Format),
		Extent: vkgo.Extent3D{
			Width:  desc.Size.Width,
			Height: desc.Size.Height,
			Depth:  max(desc.Size.DepthOrArrayLayers, 1),
		},
		MipLevels:     max(desc.MipLevels, 1),
		ArrayLayers:   max(desc.ArrayLayers, 1),
		Samples:       vkgo.SampleCountFlagBits(max(desc.Samples, 1)),
		Tiling:        vkgo.ImageTilingOptimal,
		Usage:         imageUsage(desc.Usage),
		SharingMode:   vkgo.SharingModeExclusive,
		InitialLayout: vkgo.ImageLayoutUndefined,
	}
	var native vkgo.Image
	if err := result("create image "+desc.Label, vkgo.CreateImage(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.Image(dev.addNamed(desc.Label, &deviceImage{native: native, format: desc.Format})), nil
}

func (dev *device) DestroyImage(img vk.Image) {
	if di, ok := get[*deviceImage](&dev.objects, uint64(img)); ok && !di.owned {
		dev.objects.remove(uint64(img))
		vkgo.DestroyImage(dev.native, di.native, nil)
	}
}

func (dev *device) ImageMemoryRequirements(img vk.Image) vk.MemoryRequirements {
	di, ok := get[*deviceImage](&dev.objects, uint64(img))
	if !ok {
		return vk.MemoryRequirements{}
	}
	var req vkgo.MemoryRequirements
	vkgo.GetImageMemoryRequirements(dev.native, di.native, &req)
	req.Deref()
	return vk.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

func (dev *device) AllocateMemory(size uint64, memoryType uint32) (vk.DeviceMemory, error) {
	info := vkgo.MemoryAllocateInfo{
		SType:           vkgo.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vkgo.DeviceSize(size),
		MemoryTypeIndex: memoryType,
	}
	var native vkgo.DeviceMemory
	if err := result("allocate memory", vkgo.AllocateMemory(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.DeviceMemory(dev.objects.add(native)), nil
}

func (dev *device) FreeMemory(mem vk.DeviceMemory) {
	if native, ok := dev.objects.remove(uint64(mem)).(vkgo.DeviceMemory); ok {
		vkgo.FreeMemory(dev.native, native, nil)
	}
}

func (dev *device) BindImageMemory(img vk.Image, mem vk.DeviceMemory, offset uint64) error {
	di, ok := get[*deviceImage](&dev.objects, uint64(img))
	if !ok {
		return fmt.Errorf("vulkan: bind memory: unknown image %d: %w", img, vk.ErrUnknown)
	}
	native, ok := get[vkgo.DeviceMemory](&dev.objects, uint64(mem))
	if !ok {
		return fmt.Errorf("vulkan: bind memory: unknown allocation %d: %w", mem, vk.ErrUnknown)
	}
	return result("bind image memory", vkgo.BindImageMemory(dev.native, di.native, native, vkgo.DeviceSize(offset)))
}

func (dev *device) CreateImageView(desc *vk.ImageViewDescriptor) (vk.ImageView, error) {
	di, ok := get[*deviceImage](&dev.objects, uint64(desc.Image))
	if !ok {
		return 0, fmt.Errorf("vulkan: create view %s: unknown image %d: %w", desc.Label, desc.Image, vk.ErrUnknown)
	}
	format := desc.Format
	if format == vk.FormatUndefined {
		format = di.format
	}
	aspect := desc.Aspect
	if aspect == 0 {
		aspect = vk.AspectColor
		if format.IsDepth() {
			aspect = vk.AspectDepth
		}
	}
	info := vkgo.ImageViewCreateInfo{
		SType:    vkgo.StructureTypeImageViewCreateInfo,
		Image:    di.native,
		ViewType: viewType(desc.Dimension),
		Format:   vkgo.Format(format),
		Components: vkgo.ComponentMapping{
			R: vkgo.ComponentSwizzleIdentity,
			G: vkgo.ComponentSwizzleIdentity,
			B: vkgo.ComponentSwizzleIdentity,
			A: vkgo.ComponentSwizzleIdentity,
		},
		// Aspect bits share positions with vk.ImageAspectFlags.
		SubresourceRange: vkgo.ImageSubresourceRange{
			AspectMask:     vkgo.ImageAspectFlags(aspect),
			BaseMipLevel:   desc.BaseMip,
			LevelCount:     max(desc.MipCount, 1),
			BaseArrayLayer: desc.BaseLayer,
			LayerCount:     max(desc.LayerCount, 1),
		},
	}
	var native vkgo.ImageView
	if err := result("create image view "+desc.Label, vkgo.CreateImageView(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.ImageView(dev.addNamed(desc.Label, native)), nil
}

func (dev *device) DestroyImageView(v vk.ImageView) {
	if native, ok := dev.objects.remove(uint64(v)).(vkgo.ImageView); ok {
		vkgo.DestroyImageView(dev.native, native, nil)
	}
}

func (dev *device) CreateSwapchain(desc *vk.SwapchainDescriptor) (vk.Swapchain, error) {
	surface, err := dev.in.surface(desc.Surface)
	if err != nil {
		return 0, err
	}
	old := vkgo.NullSwapchain
	if desc.OldSwapchain != vk.NullSwapchain {
		if sc, ok := get[*swapchain](&dev.objects, uint64(desc.OldSwapchain)); ok {
			old = sc.native
		}
	}
	info := vkgo.SwapchainCreateInfo{
		SType:            vkgo.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    desc.MinImageCount,
		ImageFormat:      vkgo.Format(desc.Format.Format),
		ImageColorSpace:  vkgo.ColorSpace(desc.Format.ColorSpace),
		ImageExtent:      vkgo.Extent2D{Width: desc.Extent.Width, Height: desc.Extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       imageUsage(desc.Usage),
		ImageSharingMode: vkgo.SharingModeExclusive,
		PreTransform:     vkgo.SurfaceTransformFlagBits(desc.Transform),
		CompositeAlpha:   vkgo.CompositeAlphaOpaqueBit,
		PresentMode:      vkgo.PresentMode(desc.PresentMode),
		Clipped:          vkgo.True,
		OldSwapchain:     old,
	}
	if desc.Sharing == vk.SharingConcurrent {
		info.ImageSharingMode = vkgo.SharingModeConcurrent
		info.QueueFamilyIndexCount = uint32(len(desc.QueueFamilies))
		info.PQueueFamilyIndices = desc.QueueFamilies
	}
	var native vkgo.Swapchain
	if err := result("create swapchain", vkgo.CreateSwapchain(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.Swapchain(dev.objects.add(&swapchain{native: native, format: desc.Format.Format})), nil
}

func (dev *device) DestroySwapchain(h vk.Swapchain) {
	sc, ok := dev.objects.remove(uint64(h)).(*swapchain)
	if !ok {
		return
	}
	for _, img := range sc.images {
		dev.objects.remove(uint64(img))
	}
	vkgo.DestroySwapchain(dev.native, sc.native, nil)
}

func (dev *device) SwapchainImages(h vk.Swapchain) ([]vk.Image, error) {
	sc, ok := get[*swapchain](&dev.objects, uint64(h))
	if !ok {
		return nil, fmt.Errorf("vulkan: unknown swapchain %d: %w", h, vk.ErrOutOfDate)
	}
	if sc.images != nil {
		return sc.images, nil
	}
	var count uint32
	if err := result("get swapchain images", vkgo.GetSwapchainImages(dev.native, sc.native, &count, nil)); err != nil {
		return nil, err
	}
	natives := make([]vkgo.Image, count)
	if err := result("get swapchain images", vkgo.GetSwapchainImages(dev.native, sc.native, &count, natives)); err != nil {
		return nil, err
	}
	for _, n := range natives[:count] {
		sc.images = append(sc.images, vk.Image(dev.objects.add(&deviceImage{native: n, format: sc.format, owned: true})))
	}
	return sc.images, nil
}

func (dev *device) AcquireNextImage(h vk.Swapchain, timeout time.Duration, sem vk.Semaphore) (uint32, bool, error) {
	sc, ok := get[*swapchain](&dev.objects, uint64(h))
	if !ok {
		return 0, false, fmt.Errorf("vulkan: acquire: unknown swapchain %d: %w", h, vk.ErrOutOfDate)
	}
	s, _ := get[vkgo.Semaphore](&dev.objects, uint64(sem))
	var index uint32
	res := vkgo.AcquireNextImage(dev.native, sc.native, timeoutNanos(timeout), s, vkgo.Fence(vkgo.NullHandle), &index)
	if err := result("acquire next image", res); err != nil {
		return 0, false, err
	}
	return index, res == vkgo.Suboptimal, nil
}

func (dev *device) CreateCommandPool(desc *vk.CommandPoolDescriptor) (vk.CommandPool, error) {
	info := vkgo.CommandPoolCreateInfo{
		SType:            vkgo.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: desc.QueueFamily,
	}
	if desc.Resettable {
		info.Flags = vkgo.CommandPoolCreateFlags(vkgo.CommandPoolCreateResetCommandBufferBit)
	}
	var native vkgo.CommandPool
	if err := result("create command pool", vkgo.CreateCommandPool(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.CommandPool(dev.objects.add(&commandPool{native: native})), nil
}

func (dev *device) DestroyCommandPool(h vk.CommandPool) {
	pool, ok := dev.objects.remove(uint64(h)).(*commandPool)
	if !ok {
		return
	}
	for _, cb := range pool.buffers {
		dev.objects.remove(cb)
	}
	vkgo.DestroyCommandPool(dev.native, pool.native, nil)
}

func (dev *device) AllocateCommandBuffer(h vk.CommandPool) (vk.CommandBuffer, error) {
	pool, ok := get[*commandPool](&dev.objects, uint64(h))
	if !ok {
		return 0, fmt.Errorf("vulkan: unknown command pool %d: %w", h, vk.ErrUnknown)
	}
	info := vkgo.CommandBufferAllocateInfo{
		SType:              vkgo.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.native,
		Level:              vkgo.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vkgo.CommandBuffer, 1)
	if err := result("allocate command buffer", vkgo.AllocateCommandBuffers(dev.native, &info, buffers)); err != nil {
		return 0, err
	}
	id := dev.objects.add(&commandBuffer{native: buffers[0]})
	pool.buffers = append(pool.buffers, id)
	return vk.CommandBuffer(id), nil
}

func (dev *device) CreateSemaphore() (vk.Semaphore, error) {
	info := vkgo.SemaphoreCreateInfo{SType: vkgo.StructureTypeSemaphoreCreateInfo}
	var native vkgo.Semaphore
	if err := result("create semaphore", vkgo.CreateSemaphore(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.Semaphore(dev.objects.add(native)), nil
}

func (dev *device) DestroySemaphore(s vk.Semaphore) {
	if native, ok := dev.objects.remove(uint64(s)).(vkgo.Semaphore); ok {
		vkgo.DestroySemaphore(dev.native, native, nil)
	}
}

func (dev *device) CreateFence(signaled bool) (vk.Fence, error) {
	info := vkgo.FenceCreateInfo{SType: vkgo.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vkgo.FenceCreateFlags(vkgo.FenceCreateSignaledBit)
	}
	var native vkgo.Fence
	if err := result("create fence", vkgo.CreateFence(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.Fence(dev.objects.add(native)), nil
}

func (dev *device) DestroyFence(f vk.Fence) {
	if native, ok := dev.objects.remove(uint64(f)).(vkgo.Fence); ok {
		vkgo.DestroyFence(dev.native, native, nil)
	}
}

func (dev *device) WaitForFence(f vk.Fence, timeout time.Duration) error {
	native, ok := get[vkgo.Fence](&dev.objects, uint64(f))
	if !ok {
		return fmt.Errorf("vulkan: wait: unknown fence %d: %w", f, vk.ErrUnknown)
	}
	return result("wait for fence", vkgo.WaitForFences(dev.native, 1, []vkgo.Fence{native}, vkgo.True, timeoutNanos(timeout)))
}

func (dev *device) ResetFence(f vk.Fence) error {
	native, ok := get[vkgo.Fence](&dev.objects, uint64(f))
	if !ok {
		return fmt.Errorf("vulkan: reset: unknown fence %d: %w", f, vk.ErrUnknown)
	}
	return result("reset fence", vkgo.ResetFences(dev.native, 1, []vkgo.Fence{native}))
}

func (dev *device) CreateShaderModule(desc *vk.ShaderModuleDescriptor) (vk.ShaderModule, error) {
	info := vkgo.ShaderModuleCreateInfo{
		SType:    vkgo.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(desc.Code) * 4),
		PCode:    desc.Code,
	}
	var native vkgo.ShaderModule
	if err := result("create shader module "+desc.Label, vkgo.CreateShaderModule(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.ShaderModule(dev.addNamed(desc.Label, native)), nil
}

func (dev *device) DestroyShaderModule(m vk.ShaderModule) {
	if native, ok := dev.objects.remove(uint64(m)).(vkgo.ShaderModule); ok {
		vkgo.DestroyShaderModule(dev.native, native, nil)
	}
}

func (dev *device) CreateDescriptorSetLayout(desc *vk.DescriptorSetLayoutDescriptor) (vk.DescriptorSetLayout, error) {
	bindings := make([]vkgo.DescriptorSetLayoutBinding, len(desc.Bindings))
	for i, b := range desc.Bindings {
		bindings[i] = vkgo.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorType(b.Type),
			DescriptorCount: max(b.Count, 1),
			StageFlags:      shaderStages(b.Stages),
		}
	}
	info := vkgo.DescriptorSetLayoutCreateInfo{
		SType:        vkgo.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var native vkgo.DescriptorSetLayout
	if err := result("create descriptor set layout "+desc.Label, vkgo.CreateDescriptorSetLayout(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.DescriptorSetLayout(dev.addNamed(desc.Label, native)), nil
}

func (dev *device) DestroyDescriptorSetLayout(l vk.DescriptorSetLayout) {
	if native, ok := dev.objects.remove(uint64(l)).(vkgo.DescriptorSetLayout); ok {
		vkgo.DestroyDescriptorSetLayout(dev.native, native, nil)
	}
}

func (dev *device) CreateDescriptorPool(desc *vk.DescriptorPoolDescriptor) (vk.DescriptorPool, error) {
	sizes := make([]vkgo.DescriptorPoolSize, len(desc.Sizes))
	for i, s := range desc.Sizes {
		sizes[i] = vkgo.DescriptorPoolSize{Type: descriptorType(s.Type), DescriptorCount: s.Count}
	}
	info := vkgo.DescriptorPoolCreateInfo{
		SType:         vkgo.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       desc.MaxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var native vkgo.DescriptorPool
	if err := result("create descriptor pool "+desc.Label, vkgo.CreateDescriptorPool(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.DescriptorPool(dev.addNamed(desc.Label, &descriptorPool{native: native})), nil
}

func (dev *device) DestroyDescriptorPool(h vk.DescriptorPool) {
	pool, ok := dev.objects.remove(uint64(h)).(*descriptorPool)
	if !ok {
		return
	}
	for _, s := range pool.sets {
		dev.objects.remove(s)
	}
	vkgo.DestroyDescriptorPool(dev.native, pool.native, nil)
}

func (dev *device) AllocateDescriptorSet(h vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	pool, ok := get[*descriptorPool](&dev.objects, uint64(h))
	if !ok {
		return 0, fmt.Errorf("vulkan: unknown descriptor pool %d: %w", h, vk.ErrUnknown)
	}
	l, ok := get[vkgo.DescriptorSetLayout](&dev.objects, uint64(layout))
	if !ok {
		return 0, fmt.Errorf("vulkan: unknown descriptor set layout %d: %w", layout, vk.ErrUnknown)
	}
	info := vkgo.DescriptorSetAllocateInfo{
		SType:              vkgo.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool.native,
		DescriptorSetCount: 1,
		PSetLayouts:        []vkgo.DescriptorSetLayout{l},
	}
	var native vkgo.DescriptorSet
	if err := result("allocate descriptor set", vkgo.AllocateDescriptorSets(dev.native, &info, &native)); err != nil {
		return 0, err
	}
	id := dev.objects.add(native)
	pool.sets = append(pool.sets, id)
	return vk.DescriptorSet(id), nil
}

func (dev *device) UpdateDescriptorSets(writes []vk.DescriptorImageWrite) {
	out := make([]vkgo.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		set, ok := get[vkgo.DescriptorSet](&dev.objects, uint64(w.Set))
		if !ok {
			continue
		}
		view, ok := get[vkgo.ImageView](&dev.objects, uint64(w.View))
		if !ok {
			continue
		}
		img := vkgo.DescriptorImageInfo{ImageView: view, ImageLayout: imageLayout(w.Layout)}
		if w.Type == vk.DescriptorCombinedImageSampler {
			s, err := dev.defaultSampler()
			if err != nil {
				logging.L().Error("vulkan: descriptor update skipped", "binding", w.Binding, "err", err)
				continue
			}
			img.Sampler = s
		}
		out = append(out, vkgo.WriteDescriptorSet{
			SType:           vkgo.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      w.Binding,
			DescriptorCount: 1,
			DescriptorType:  descriptorType(w.Type),
			PImageInfo:      []vkgo.DescriptorImageInfo{img},
		})
	}
	if len(out) > 0 {
		vkgo.UpdateDescriptorSets(dev.native, uint32(len(out)), out, 0, nil)
	}
}

func (dev *device) defaultSampler() (vkgo.Sampler, error) {
	if dev.sampler != vkgo.Sampler(vkgo.NullHandle) {
		return dev.sampler, nil
	}
	info := vkgo.SamplerCreateInfo{
		SType:        vkgo.StructureTypeSamplerCreateInfo,
		MagFilter:    vkgo.FilterNearest,
		MinFilter:    vkgo.FilterNearest,
		MipmapMode:   vkgo.SamplerMipmapModeNearest,
		AddressModeU: vkgo.SamplerAddressModeClampToEdge,
		AddressModeV: vkgo.SamplerAddressModeClampToEdge,
		AddressModeW: vkgo.SamplerAddressModeClampToEdge,
		MaxLod:       1,
	}
	if err := result("create sampler", vkgo.CreateSampler(dev.native, &info, nil, &dev.sampler)); err != nil {
		return vkgo.Sampler(vkgo.NullHandle), err
	}
	return dev.sampler, nil
}

func (dev *device) CreatePipelineLayout(desc *vk.PipelineLayoutDescriptor) (vk.PipelineLayout, error) {
	layouts := make([]vkgo.DescriptorSetLayout, 0, len(desc.SetLayouts))
	for _, l := range desc.SetLayouts {
		native, ok := get[vkgo.DescriptorSetLayout](&dev.objects, uint64(l))
		if !ok {
			return 0, fmt.Errorf("vulkan: pipeline layout %s: unknown set layout %d: %w", desc.Label, l, vk.ErrUnknown)
		}
		layouts = append(layouts, native)
	}
	info := vkgo.PipelineLayoutCreateInfo{
		SType:          vkgo.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}
	var native vkgo.PipelineLayout
	if err := result("create pipeline layout "+desc.Label, vkgo.CreatePipelineLayout(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.PipelineLayout(dev.addNamed(desc.Label, native)), nil
}

func (dev *device) DestroyPipelineLayout(l vk.PipelineLayout) {
	if native, ok := dev.objects.remove(uint64(l)).(vkgo.PipelineLayout); ok {
		vkgo.DestroyPipelineLayout(dev.native, native, nil)
	}
}

func (dev *device) CreateRenderPass(desc *vk.RenderPassDescriptor) (vk.RenderPass, error) {
	attachments := make([]vkgo.AttachmentDescription, len(desc.Attachments))
	formats := make([]vk.Format, len(desc.Attachments))
	for i, a := range desc.Attachments {
		formats[i] = a.Format
		attachments[i] = vkgo.AttachmentDescription{
			Format:         vkgo.Format(a.Format),
			Samples:        vkgo.SampleCount1Bit,
			LoadOp:         loadOp(a.LoadOp),
			StoreOp:        storeOp(a.StoreOp),
			StencilLoadOp:  vkgo.AttachmentLoadOpDontCare,
			StencilStoreOp: vkgo.AttachmentStoreOpDontCare,
			InitialLayout:  imageLayout(a.InitialLayout),
			FinalLayout:    imageLayout(a.FinalLayout),
		}
	}
	color := make([]vkgo.AttachmentReference, len(desc.Color))
	for i, r := range desc.Color {
		color[i] = vkgo.AttachmentReference{Attachment: r.Index, Layout: imageLayout(r.Layout)}
	}
	subpass := vkgo.SubpassDescription{
		PipelineBindPoint:    vkgo.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(color)),
		PColorAttachments:    color,
	}
	if desc.DepthStencil != nil {
		subpass.PDepthStencilAttachment = &vkgo.AttachmentReference{
			Attachment: desc.DepthStencil.Index,
			Layout:     imageLayout(desc.DepthStencil.Layout),
		}
	}
	stages := vkgo.PipelineStageFlags(vkgo.PipelineStageColorAttachmentOutputBit | vkgo.PipelineStageEarlyFragmentTestsBit | vkgo.PipelineStageFragmentShaderBit)
	dependency := vkgo.SubpassDependency{
		SrcSubpass:    vkgo.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		DstStageMask:  stages,
		SrcAccessMask: vkgo.AccessFlags(vkgo.AccessColorAttachmentWriteBit | vkgo.AccessDepthStencilAttachmentWriteBit),
		DstAccessMask: vkgo.AccessFlags(vkgo.AccessColorAttachmentWriteBit | vkgo.AccessDepthStencilAttachmentWriteBit | vkgo.AccessShaderReadBit),
	}
	info := vkgo.RenderPassCreateInfo{
		SType:           vkgo.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vkgo.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vkgo.SubpassDependency{dependency},
	}
	var native vkgo.RenderPass
	if err := result("create render pass "+desc.Label, vkgo.CreateRenderPass(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.RenderPass(dev.addNamed(desc.Label, &renderPass{native: native, formats: formats})), nil
}

func (dev *device) DestroyRenderPass(h vk.RenderPass) {
	if rp, ok := dev.objects.remove(uint64(h)).(*renderPass); ok {
		vkgo.DestroyRenderPass(dev.native, rp.native, nil)
	}
}

func (dev *device) CreateFramebuffer(desc *vk.FramebufferDescriptor) (vk.Framebuffer, error) {
	rp, ok := get[*renderPass](&dev.objects, uint64(desc.RenderPass))
	if !ok {
		return 0, fmt.Errorf("vulkan: framebuffer %s: unknown render pass %d: %w", desc.Label, desc.RenderPass, vk.ErrUnknown)
	}
	views := make([]vkgo.ImageView, len(desc.Attachments))
	for i, v := range desc.Attachments {
		native, ok := get[vkgo.ImageView](&dev.objects, uint64(v))
		if !ok {
			return 0, fmt.Errorf("vulkan: framebuffer %s: unknown view %d: %w", desc.Label, v, vk.ErrUnknown)
		}
		views[i] = native
	}
	info := vkgo.FramebufferCreateInfo{
		SType:           vkgo.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.native,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           desc.Extent.Width,
		Height:          desc.Extent.Height,
		Layers:          1,
	}
	var native vkgo.Framebuffer
	if err := result("create framebuffer "+desc.Label, vkgo.CreateFramebuffer(dev.native, &info, nil, &native)); err != nil {
		return 0, err
	}
	return vk.Framebuffer(dev.addNamed(desc.Label, native)), nil
}

func (dev *device) DestroyFramebuffer(fb vk.Framebuffer) {
	if native, ok := dev.objects.remove(uint64(fb)).(vkgo.Framebuffer); ok {
		vkgo.DestroyFramebuffer(dev.native, native, nil)
	}
}

func (dev *device) Destroy() {
	if dev.sampler != vkgo.Sampler(vkgo.NullHandle) {
		vkgo.DestroySampler(dev.native, dev.sampler, nil)
	}
	// Queues are the only children that are not destroyed explicitly.
	if n := dev.objects.len() - len(dev.queues); n > 0 {
		logging.L().Warn("vulkan device destroyed with live children", "count", n, "named", dev.objects.named())
	}
	vkgo.DestroyDevice(dev.native, nil)
}
