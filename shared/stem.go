// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"fmt"

	"github.com/gogpu/rendercore/guard"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// StemConfig configures a Stem.
type StemConfig struct {
	// Extensions are device extensions in addition to the swapchain one.
	Extensions []string
}

// Queues are the queues a Stem submits and presents on.
type Queues struct {
	GraphicsFamily uint32
	PresentFamily  uint32
	Graphics       vk.Queue
	Present        vk.Queue
}

// Shared reports whether one family serves both roles.
func (q Queues) Shared() bool { return q.GraphicsFamily == q.PresentFamily }

// Families returns the distinct families, graphics first.
func (q Queues) Families() []uint32 {
	if q.Shared() {
		return []uint32{q.GraphicsFamily}
	}
	return []uint32{q.GraphicsFamily, q.PresentFamily}
}

// Stem owns the logical device and the per-device objects every frame uses:
// the command pool and its single command buffer, the acquire and
// render-complete semaphores, and the presentation fence. It holds a
// reference to its Crown.
type Stem struct {
	refs refs
	gen  uint64

	crown      *Crown
	physical   vk.PhysicalDevice
	properties vk.PhysicalDeviceProperties
	memory     vk.MemoryProperties
	device     vk.Device
	queues     Queues

	pool           vk.CommandPool
	commandBuffer  vk.CommandBuffer
	imageAcquired  vk.Semaphore
	renderComplete vk.Semaphore
	presentFence   vk.Fence
}

// NewStem selects a physical device for crown's surface and creates the
// device-level objects. The caller owns one reference.
func NewStem(crown *Crown, cfg *StemConfig) (*Stem, error) {
	if cfg == nil {
		cfg = &StemConfig{}
	}
	crown.Retain()
	crownRef := guard.New(crown, (*Crown).Release)
	defer crownRef.Release()

	inst := crown.Instance()
	pd, families, err := selectPhysicalDevice(crown)
	if err != nil {
		return nil, err
	}
	props := inst.PhysicalDeviceProperties(pd)

	dev, err := inst.CreateDevice(&vk.DeviceDescriptor{
		PhysicalDevice: pd,
		QueueFamilies:  families.Families(),
		Extensions:     append([]string{vk.ExtSwapchain}, cfg.Extensions...),
	})
	if err != nil {
		return nil, stepError("create device", err)
	}
	device := guard.New(dev, vk.Device.Destroy)
	defer device.Release()

	queues := families
	queues.Graphics = dev.Queue(queues.GraphicsFamily)
	queues.Present = dev.Queue(queues.PresentFamily)

	p, err := dev.CreateCommandPool(&vk.CommandPoolDescriptor{
		QueueFamily: queues.GraphicsFamily,
		Resettable:  true,
	})
	if err != nil {
		return nil, stepError("create command pool", err)
	}
	pool := guard.With(dev, p, vk.Device.DestroyCommandPool)
	defer pool.Release()

	cb, err := dev.AllocateCommandBuffer(p)
	if err != nil {
		return nil, stepError("allocate command buffer", err)
	}

	sems := guard.SeqWith(dev, vk.Device.DestroySemaphore)
	defer sems.Release()
	for _, name := range []string{"image acquired", "render complete"} {
		s, err := dev.CreateSemaphore()
		if err != nil {
			return nil, stepError("create "+name+" semaphore", err)
		}
		sems.Push(s)
	}

	// Signaled so that the first frame's wait returns immediately.
	fence, err := dev.CreateFence(true)
	if err != nil {
		return nil, stepError("create presentation fence", err)
	}

	s := &Stem{
		gen:           nextGeneration(),
		physical:      pd,
		properties:    props,
		memory:        inst.MemoryProperties(pd),
		queues:        queues,
		commandBuffer: cb,
		presentFence:  fence,
	}
	semaphores := sems.Take()
	s.imageAcquired, s.renderComplete = semaphores[0], semaphores[1]
	s.pool = pool.Take()
	s.device = device.Take()
	s.crown = crownRef.Take()
	s.refs.init()

	s.SetObjectName(vk.ObjectTypeCommandPool, uint64(s.pool), "frame commands")
	s.SetObjectName(vk.ObjectTypeCommandBuffer, uint64(s.commandBuffer), "frame")
	s.SetObjectName(vk.ObjectTypeSemaphore, uint64(s.imageAcquired), "image acquired")
	s.SetObjectName(vk.ObjectTypeSemaphore, uint64(s.renderComplete), "render complete")
	s.SetObjectName(vk.ObjectTypeFence, uint64(s.presentFence), "presentation")

	logging.L().Info("stem created",
		"generation", s.gen, "device", props.Name, "type", props.Type,
		"graphics_family", queues.GraphicsFamily, "present_family", queues.PresentFamily)
	return s, nil
}

// selectPhysicalDevice returns the first device that has a graphics family
// and a family that can present to the surface. A family doing both is used
// for both roles when the device has one.
func selectPhysicalDevice(crown *Crown) (vk.PhysicalDevice, Queues, error) {
	inst := crown.Instance()
	devices, err := inst.PhysicalDevices()
	if err != nil {
		return 0, Queues{}, stepError("enumerate physical devices", err)
	}

	var (
		chosen vk.PhysicalDevice
		queues Queues
		found  bool
	)
	err = crown.WithSurface(func(surface vk.Surface) error {
		for _, pd := range devices {
			graphics, present, both := -1, -1, -1
			for i, family := range inst.QueueFamilies(pd) {
				supported, err := inst.SurfaceSupport(pd, uint32(i), surface)
				if err != nil {
					return stepError("query surface support", err)
				}
				isGraphics := family.Flags&vk.QueueGraphics != 0
				if isGraphics && supported && both < 0 {
					both = i
				}
				if isGraphics && graphics < 0 {
					graphics = i
				}
				if supported && present < 0 {
					present = i
				}
			}
			if both >= 0 {
				graphics, present = both, both
			}
			if graphics >= 0 && present >= 0 {
				chosen, found = pd, true
				queues = Queues{GraphicsFamily: uint32(graphics), PresentFamily: uint32(present)}
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return 0, Queues{}, err
	}
	if !found {
		return 0, Queues{}, fmt.Errorf("%w (%d candidates)", ErrNoSuitableDevice, len(devices))
	}
	return chosen, queues, nil
}

// Generation identifies this Stem among all Stems ever built.
func (s *Stem) Generation() uint64 { return s.gen }

// Is reports whether s and other are the same Stem.
func (s *Stem) Is(other *Stem) bool { return s == other }

// Crown returns the parent Crown.
func (s *Stem) Crown() *Crown { return s.crown }

// SetObjectName names h on the device when the Crown has debugging on.
// Objects created from a descriptor are named after its Label by the
// driver; this covers the rest.
func (s *Stem) SetObjectName(typ vk.ObjectType, h uint64, name string) {
	if s.crown.Debug() {
		s.device.SetObjectName(typ, h, name)
	}
}

// Device returns the logical device.
func (s *Stem) Device() vk.Device { return s.device }

// PhysicalDevice returns the selected physical device.
func (s *Stem) PhysicalDevice() vk.PhysicalDevice { return s.physical }

// Properties returns the selected device's properties.
func (s *Stem) Properties() vk.PhysicalDeviceProperties { return s.properties }

// MemoryProperties returns the cached memory-type table.
func (s *Stem) MemoryProperties() vk.MemoryProperties { return s.memory }

// Queues returns the graphics and present queues.
func (s *Stem) Queues() Queues { return s.queues }

// CommandBuffer returns the single primary command buffer.
func (s *Stem) CommandBuffer() vk.CommandBuffer { return s.commandBuffer }

// ImageAcquiredSemaphore is signaled when an acquired image is ready.
func (s *Stem) ImageAcquiredSemaphore() vk.Semaphore { return s.imageAcquired }

// RenderCompleteSemaphore is signaled when the frame's work finishes.
func (s *Stem) RenderCompleteSemaphore() vk.Semaphore { return s.renderComplete }

// PresentationFence is signaled when the last submission completes. It is
// created signaled.
func (s *Stem) PresentationFence() vk.Fence { return s.presentFence }

// SelectMemoryType selects from the cached memory-type table.
func (s *Stem) SelectMemoryType(reqs vk.MemoryRequirements, flags vk.MemoryPropertyFlags) (uint32, bool) {
	return SelectMemoryType(s.memory, reqs, flags)
}

// MemorySelector returns a selector demanding flags.
func (s *Stem) MemorySelector(flags vk.MemoryPropertyFlags) MemorySelector {
	return RequireMemory(s.memory, flags)
}

// Retain adds a reference.
func (s *Stem) Retain() { s.refs.retain("stem") }

// Release drops a reference. The last one waits for the device to go idle,
// destroys the fence, semaphores, command pool and device, then releases the
// Crown.
func (s *Stem) Release() {
	if !s.refs.release("stem") {
		return
	}
	log := logging.L()
	if err := s.device.WaitIdle(); err != nil {
		// Expected after device loss; destruction is still valid.
		log.Warn("stem teardown: wait idle failed", "generation", s.gen, "err", err)
	}
	s.device.DestroyFence(s.presentFence)
	s.device.DestroySemaphore(s.renderComplete)
	s.device.DestroySemaphore(s.imageAcquired)
	s.device.DestroyCommandPool(s.pool)
	s.device.Destroy()
	log.Info("stem destroyed", "generation", s.gen)
	s.crown.Release()
}
