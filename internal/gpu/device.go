package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// ErrNoAdapter is returned when the noop instance exposes no adapter.
var ErrNoAdapter = errors.New("gpu: no adapter available")

// Device is an opened HAL device with its queue.
type Device struct {
	Device hal.Device
	Queue  hal.Queue

	instance interface{ Destroy() }
}

// OpenNoopDevice opens a device on the noop backend. Every call succeeds
// without touching real hardware, which makes it suitable for tests and
// headless runs.
func OpenNoopDevice() (*Device, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open noop device: %w", err)
	}
	return &Device{Device: openDev.Device, Queue: openDev.Queue, instance: instance}, nil
}

// Close destroys the device and its instance.
func (d *Device) Close() {
	if d.Device != nil {
		d.Device.Destroy()
		d.Device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

// Texture is a 2D texture with a default view.
type Texture struct {
	Texture hal.Texture
	View    hal.TextureView
	Width   uint32
	Height  uint32
}

// CreateTexture creates a sampled RGBA8 texture and uploads pixels, which
// must hold width*height*4 bytes or be nil.
func CreateTexture(device hal.Device, queue hal.Queue, label string, width, height uint32, pixels []byte) (*Texture, error) {
	if pixels != nil && uint64(len(pixels)) != uint64(width)*uint64(height)*4 {
		return nil, fmt.Errorf("texture %s: %d bytes for %dx%d", label, len(pixels), width, height)
	}
	t, err := createTexture(device, label, width, height,
		gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if pixels != nil {
		queue.WriteTexture(
			&hal.ImageCopyTexture{
				Texture:  t.Texture,
				MipLevel: 0,
				Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
				Aspect:   gputypes.TextureAspectAll,
			},
			pixels,
			&hal.ImageDataLayout{Offset: 0, BytesPerRow: width * 4, RowsPerImage: height},
			&hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		)
	}
	return t, nil
}

// CreateRenderTarget creates a color attachment texture.
func CreateRenderTarget(device hal.Device, label string, width, height uint32, format gputypes.TextureFormat) (*Texture, error) {
	return createTexture(device, label, width, height, format,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
}

func createTexture(device hal.Device, label string, width, height uint32,
	format gputypes.TextureFormat, usage gputypes.TextureUsage,
) (*Texture, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}
	return &Texture{Texture: tex, View: view, Width: width, Height: height}, nil
}

// Destroy releases the view and the texture.
func (t *Texture) Destroy(device hal.Device) {
	if t.View != nil {
		device.DestroyTextureView(t.View)
		t.View = nil
	}
	if t.Texture != nil {
		device.DestroyTexture(t.Texture)
		t.Texture = nil
	}
}
