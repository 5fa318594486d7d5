// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rendercore/guard"
	"github.com/gogpu/rendercore/internal/logging"
	"github.com/gogpu/rendercore/vk"
)

// AttachmentSpec describes an auxiliary render target created at swapchain
// resolution alongside every Frond.
type AttachmentSpec struct {
	Name   string
	Format vk.Format
	Usage  vk.ImageUsage
	Aspect vk.ImageAspectFlags
	// Memory defaults to device-local when zero.
	Memory vk.MemoryPropertyFlags
}

// FrondConfig configures swapchain and attachment creation.
type FrondConfig struct {
	// PreferredFormats are tried in order against the surface.
	PreferredFormats []vk.SurfaceFormat

	// PresentModes are tried in order; FIFO, which is always available,
	// is the fallback.
	PresentModes []vk.PresentMode

	Attachments []AttachmentSpec
}

// DefaultFrondConfig prefers 8-bit sRGB formats and mailbox presentation.
func DefaultFrondConfig() *FrondConfig {
	return &FrondConfig{
		PreferredFormats: []vk.SurfaceFormat{
			{Format: vk.FormatB8G8R8A8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatR8G8B8A8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatB8G8R8A8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			{Format: vk.FormatR8G8B8A8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		},
		PresentModes: []vk.PresentMode{vk.PresentModeMailbox},
	}
}

type attachment struct {
	name  string
	image DeviceImage
}

// Frond owns everything that depends on the drawable area: the swapchain,
// views of its images and the auxiliary attachments. Its resolution never
// changes; a resize builds a new Frond. It holds a reference to its Stem.
type Frond struct {
	refs refs
	gen  uint64

	stem        *Stem
	swapchain   vk.Swapchain
	resolution  vk.Extent2D
	area        vk.Extent2D
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	images      []vk.Image
	views       []vk.ImageView
	attachments []attachment
}

// NewFrond builds a Frond for the current drawable area. It fails with
// ErrNoSurfaceArea, before touching the device, when the area is zero.
func NewFrond(stem *Stem, cfg *FrondConfig) (*Frond, error) {
	return newFrond(stem, cfg, vk.NullSwapchain)
}

// newFrond replaces old, if not null, with a new swapchain. old is destroyed
// only once every step has succeeded; on failure it is left untouched.
func newFrond(stem *Stem, cfg *FrondConfig, old vk.Swapchain) (*Frond, error) {
	if cfg == nil {
		cfg = DefaultFrondConfig()
	}
	crown := stem.Crown()
	area := crown.DrawableArea()
	if area.IsZero() {
		return nil, ErrNoSurfaceArea
	}

	stem.Retain()
	stemRef := guard.New(stem, (*Stem).Release)
	defer stemRef.Release()

	inst, dev, pd := crown.Instance(), stem.Device(), stem.PhysicalDevice()
	queues := stem.Queues()

	var (
		format vk.SurfaceFormat
		mode   vk.PresentMode
		extent vk.Extent2D
		sc     vk.Swapchain
	)
	err := crown.WithSurface(func(surface vk.Surface) error {
		caps, err := inst.SurfaceCapabilities(pd, surface)
		if err != nil {
			return stepError("query surface capabilities", err)
		}
		formats, err := inst.SurfaceFormats(pd, surface)
		if err != nil {
			return stepError("query surface formats", err)
		}
		modes, err := inst.SurfacePresentModes(pd, surface)
		if err != nil {
			return stepError("query present modes", err)
		}

		format, err = chooseSurfaceFormat(formats, cfg.PreferredFormats)
		if err != nil {
			return err
		}
		mode = choosePresentMode(modes, cfg.PresentModes)
		extent = chooseExtent(caps, area)
		if extent.IsZero() {
			return ErrNoSurfaceArea
		}

		desc := &vk.SwapchainDescriptor{
			Surface:       surface,
			MinImageCount: chooseImageCount(caps),
			Format:        format,
			Extent:        extent,
			Usage:         vk.UsageColorAttachment,
			Sharing:       vk.SharingExclusive,
			Transform:     caps.CurrentTransform,
			PresentMode:   mode,
			OldSwapchain:  old,
		}
		if !queues.Shared() {
			desc.Sharing = vk.SharingConcurrent
			desc.QueueFamilies = queues.Families()
		}
		sc, err = dev.CreateSwapchain(desc)
		if err != nil {
			return stepError("create swapchain", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	swapchain := guard.With(dev, sc, vk.Device.DestroySwapchain)
	defer swapchain.Release()

	images, err := dev.SwapchainImages(sc)
	if err != nil {
		return nil, stepError("get swapchain images", err)
	}

	views := guard.SeqWith(dev, vk.Device.DestroyImageView)
	defer views.Release()
	for i, img := range images {
		v, err := dev.CreateImageView(&vk.ImageViewDescriptor{
			Label:      fmt.Sprintf("swapchain[%d]", i),
			Image:      img,
			Format:     format.Format,
			Dimension:  gputypes.TextureViewDimension2D,
			Aspect:     vk.AspectColor,
			MipCount:   1,
			LayerCount: 1,
		})
		if err != nil {
			return nil, stepError(fmt.Sprintf("create swapchain view %d", i), err)
		}
		views.Push(v)
	}

	attachments := guard.NewSeq(func(a attachment) { a.image.Destroy(dev) })
	defer attachments.Release()
	for _, spec := range cfg.Attachments {
		flags := spec.Memory
		if flags == 0 {
			flags = vk.MemoryDeviceLocal
		}
		img, err := NewDeviceImage(dev, &DeviceImageDescriptor{
			Label:      spec.Name,
			Format:     spec.Format,
			Resolution: extent.Extent3D(),
			Usage:      spec.Usage,
			Aspect:     spec.Aspect,
		}, stem.MemorySelector(flags))
		if err != nil {
			return nil, err
		}
		attachments.Push(attachment{name: spec.Name, image: img.Take()})
	}

	// Every step succeeded: the replaced swapchain can go now.
	if old != vk.NullSwapchain {
		dev.DestroySwapchain(old)
	}

	f := &Frond{
		gen:         nextGeneration(),
		format:      format,
		presentMode: mode,
		resolution:  extent,
		area:        area,
		images:      images,
		attachments: attachments.Take(),
		views:       views.Take(),
		swapchain:   swapchain.Take(),
		stem:        stemRef.Take(),
	}
	f.refs.init()

	stem.SetObjectName(vk.ObjectTypeSwapchain, uint64(f.swapchain), fmt.Sprintf("swapchain gen %d", f.gen))
	for i, img := range images {
		stem.SetObjectName(vk.ObjectTypeImage, uint64(img), fmt.Sprintf("swapchain[%d]", i))
	}
	for _, a := range f.attachments {
		stem.SetObjectName(vk.ObjectTypeDeviceMemory, uint64(a.image.Memory), a.name)
	}

	logging.L().Info("frond created",
		"generation", f.gen, "stem", stem.Generation(), "resolution", extent,
		"format", format.Format, "present_mode", mode, "images", len(images),
		"attachments", len(f.attachments), "replaced", old != vk.NullSwapchain)
	return f, nil
}

func chooseSurfaceFormat(available, preferred []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	for _, want := range preferred {
		if slices.Contains(available, want) {
			return want, nil
		}
	}
	return vk.SurfaceFormat{}, &NoSurfaceFormatError{Available: available}
}

func choosePresentMode(available, preferred []vk.PresentMode) vk.PresentMode {
	for _, want := range preferred {
		if slices.Contains(available, want) {
			return want
		}
	}
	return vk.PresentModeFifo
}

// chooseImageCount asks for one image more than the minimum, within the
// maximum (zero means unbounded).
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	n := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

func chooseExtent(caps vk.SurfaceCapabilities, area vk.Extent2D) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.ExtentMatchWindow {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(area.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(area.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func clamp(v, lo, hi uint32) uint32 {
	return min(max(v, lo), hi)
}

// Generation identifies this Frond among all Fronds ever built.
func (f *Frond) Generation() uint64 { return f.gen }

// Stem returns the parent Stem.
func (f *Frond) Stem() *Stem { return f.stem }

// Swapchain returns the swapchain handle.
func (f *Frond) Swapchain() vk.Swapchain { return f.swapchain }

// Resolution returns the swapchain extent.
func (f *Frond) Resolution() vk.Extent2D { return f.resolution }

// DrawableArea returns the window area the Frond was built for. It differs
// from Resolution when the surface clamps or rescales the extent.
func (f *Frond) DrawableArea() vk.Extent2D { return f.area }

// Format returns the swapchain surface format.
func (f *Frond) Format() vk.SurfaceFormat { return f.format }

// PresentMode returns the swapchain present mode.
func (f *Frond) PresentMode() vk.PresentMode { return f.presentMode }

// Images returns the swapchain images. They are owned by the swapchain.
func (f *Frond) Images() []vk.Image { return f.images }

// ImageViews returns one view per swapchain image.
func (f *Frond) ImageViews() []vk.ImageView { return f.views }

// Attachment returns the auxiliary image with the given name.
func (f *Frond) Attachment(name string) (DeviceImage, bool) {
	for _, a := range f.attachments {
		if a.name == name {
			return a.image, true
		}
	}
	return DeviceImage{}, false
}

// Attachments returns the auxiliary attachment names in creation order.
func (f *Frond) Attachments() []string {
	names := make([]string, len(f.attachments))
	for i, a := range f.attachments {
		names[i] = a.name
	}
	return names
}

// Retain adds a reference.
func (f *Frond) Retain() { f.refs.retain("frond") }

// Release drops a reference. The last one destroys the attachments, the
// swapchain views and the swapchain, then releases the Stem.
func (f *Frond) Release() {
	if !f.refs.release("frond") {
		return
	}
	f.destroyTargets()
	f.stem.Device().DestroySwapchain(f.swapchain)
	logging.L().Info("frond destroyed", "generation", f.gen)
	f.stem.Release()
}

// Retire trades the caller's reference, which must be the only one, for the
// minimal residue needed to build the next swapchain: the swapchain handle
// and the Stem. Attachments and views are destroyed.
func (f *Frond) Retire() (*RetiredSwapchain, error) {
	if n := f.refs.count(); n != 1 {
		return nil, fmt.Errorf("%w (%d references)", ErrFrondInUse, n)
	}
	f.refs.release("frond")
	f.destroyTargets()
	r := &RetiredSwapchain{stem: f.stem, swapchain: f.swapchain, resolution: f.resolution}
	f.stem, f.swapchain = nil, vk.NullSwapchain
	logging.L().Info("frond retired", "generation", f.gen, "resolution", f.resolution)
	return r, nil
}

func (f *Frond) destroyTargets() {
	dev := f.stem.Device()
	for i := len(f.attachments) - 1; i >= 0; i-- {
		f.attachments[i].image.Destroy(dev)
	}
	for i := len(f.views) - 1; i >= 0; i-- {
		dev.DestroyImageView(f.views[i])
	}
	f.attachments, f.views, f.images = nil, nil, nil
}
