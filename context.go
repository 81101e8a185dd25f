// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package guidraw

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/guidraw/backend"
	"github.com/gogpu/guidraw/drawdata"
	"github.com/gogpu/guidraw/graph"
	"github.com/gogpu/guidraw/internal/gpu"
	"github.com/gogpu/guidraw/schedule"
	"github.com/gogpu/guidraw/texture"
)

// Stats summarises one rendered frame.
type Stats = schedule.Stats

// Context renders GUI frames on one device. It owns the backend buffers,
// the pipeline and the pass executor; textures are owned by the host and
// looked up through the linked registry.
//
// Context is not safe for concurrent use. Hosts render one frame at a
// time.
type Context struct {
	device hal.Device
	queue  hal.Queue

	textures  *texture.Registry
	backend   backend.Backend
	pipeline  *gpu.Pipeline
	executor  *gpu.Executor
	scheduler *schedule.Scheduler
	graph     graph.Builder

	closed bool
}

// NewContext creates a context drawing on device and queue with textures
// resolved through textures. Binding names of cfg are resolved against the
// shader; an unknown name fails with ErrUnknownBinding. Every resource
// created before a failure is released.
func NewContext(device hal.Device, queue hal.Queue, textures *texture.Registry, cfg Config) (*Context, error) {
	return newContext(device, queue, textures, cfg, gputypes.TextureFormatUndefined)
}

// NewContextFromProvider creates a context on the device of a host
// provider. The provider must implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. When cfg leaves the color format
// unset, the provider's surface format is used.
func NewContextFromProvider(provider gpucontext.DeviceProvider, textures *texture.Registry, cfg Config) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNotHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNotHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNotHALProvider)
	}
	return newContext(device, queue, textures, cfg, provider.SurfaceFormat())
}

func newContext(device hal.Device, queue hal.Queue, textures *texture.Registry,
	cfg Config, surface gputypes.TextureFormat,
) (_ *Context, err error) {
	if device == nil || queue == nil {
		return nil, gpu.ErrNilDevice
	}
	if textures == nil {
		return nil, ErrNilRegistry
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Context{device: device, queue: queue}
	defer func() {
		if err != nil {
			c.release()
		}
	}()

	c.backend, err = backend.New(cfg.Backend, device, gpu.QueueUploader{Queue: queue})
	if err != nil {
		return nil, err
	}
	pcfg := gpu.PipelineConfig{
		Kind:        c.backend.Pipeline(),
		ColorFormat: cfg.colorFormat(surface),
		Names:       cfg.bindingNames(),
		Source:      cfg.Shader,
	}
	if err := gpu.ResolvePipelineBindings(pcfg); err != nil {
		return nil, fmt.Errorf("guidraw: %s backend bindings: %w", cfg.Backend, err)
	}
	c.pipeline, err = gpu.NewPipeline(device, pcfg)
	if err != nil {
		return nil, fmt.Errorf("guidraw: %w", err)
	}
	c.executor, err = gpu.NewExecutor(device, queue, c.pipeline)
	if err != nil {
		return nil, fmt.Errorf("guidraw: %w", err)
	}
	c.scheduler = schedule.New(c.backend)
	c.link(textures)

	Logger().Info("guidraw: context created", "backend", cfg.Backend, "format", pcfg.ColorFormat)
	return c, nil
}

// link attaches the texture registry to the scheduler.
func (c *Context) link(textures *texture.Registry) {
	c.textures = textures
	c.scheduler.Link(textures)
}

// Render draws one frame into att. The attachment size is taken from the
// framebuffer size of dd. Frames with an empty framebuffer or no vertices
// are skipped without touching any buffer.
//
// dd is only read during the call and no reference to it is kept.
func (c *Context) Render(dd *drawdata.DrawData, att graph.Attachments) (Stats, error) {
	if c.closed {
		return Stats{}, ErrClosed
	}
	defer c.graph.Reset()
	defer c.scheduler.Release()

	stats, err := c.scheduler.Schedule(dd, &c.graph, att)
	if err != nil {
		return stats, err
	}
	for _, pass := range c.graph.Passes() {
		if err := c.executor.Execute(pass); err != nil {
			return stats, fmt.Errorf("guidraw: %w", err)
		}
	}
	return stats, nil
}

// ForgetTexture unregisters id and drops any bind group created for it.
// Call it before destroying the texture. It reports whether id was
// registered.
func (c *Context) ForgetTexture(id drawdata.TextureID) bool {
	h, err := c.textures.Resolve(id)
	if err != nil {
		return false
	}
	if c.executor != nil {
		c.executor.ForgetTexture(h.View)
	}
	return c.textures.Unregister(id)
}

// Textures returns the linked texture registry.
func (c *Context) Textures() *texture.Registry { return c.textures }

// Backend returns the name of the active backend.
func (c *Context) Backend() string { return c.backend.Name() }

// Close releases every GPU resource owned by the context. It is safe to
// call more than once.
func (c *Context) Close() {
	if c.closed {
		return
	}
	c.release()
	c.closed = true
	Logger().Info("guidraw: context closed")
}

// release destroys whatever has been created so far.
func (c *Context) release() {
	if c.executor != nil {
		c.executor.Destroy()
		c.executor = nil
	}
	if c.pipeline != nil {
		c.pipeline.Destroy()
		c.pipeline = nil
	}
	if c.backend != nil {
		c.backend.Release()
	}
	c.graph.Reset()
}
