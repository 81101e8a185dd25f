// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/guidraw/graph"
	"github.com/gogpu/guidraw/internal/cache"
)

// fenceTimeout bounds the wait for a submitted pass.
const fenceTimeout = 5 * time.Second

// textureBindLimit bounds the number of cached texture bind groups.
const textureBindLimit = 64

// Executor replays recorded passes onto HAL command encoders. It owns the
// projection uniform, the per-draw parameter uniform of the procedural
// pipeline and the bind groups derived from them.
//
// Executor is not safe for concurrent use.
type Executor struct {
	device   hal.Device
	queue    hal.Queue
	pipeline *Pipeline

	projection hal.Buffer
	drawParams *GrowableBuffer
	staging    []byte

	// frame bind group and the buffers it was built from.
	frameBind     hal.BindGroup
	frameVertices hal.Buffer
	frameParams   hal.Buffer

	textureBinds *cache.Cache[hal.TextureView, hal.BindGroup]

	// Bind groups released while a pass is in flight are destroyed once
	// the pass has completed.
	inFlight bool
	retired  []hal.BindGroup
}

// NewExecutor creates an executor drawing with pipeline.
func NewExecutor(device hal.Device, queue hal.Queue, pipeline *Pipeline) (*Executor, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	projection, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gui_projection",
		Size:  projectionSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create projection uniform: %w", err)
	}
	e := &Executor{
		device:     device,
		queue:      queue,
		pipeline:   pipeline,
		projection: projection,
		drawParams: NewGrowableBuffer(device, "gui_draw_params",
			gputypes.BufferUsageUniform, drawParamsStride),
	}
	e.textureBinds = cache.New(textureBindLimit, func(_ hal.TextureView, bg hal.BindGroup) {
		e.releaseBindGroup(bg)
	})
	return e, nil
}

// releaseBindGroup destroys bg, or defers it until the pass in flight has
// completed.
func (e *Executor) releaseBindGroup(bg hal.BindGroup) {
	if e.inFlight {
		e.retired = append(e.retired, bg)
		return
	}
	e.device.DestroyBindGroup(bg)
}

// destroyRetired destroys the bind groups released during the last pass.
func (e *Executor) destroyRetired() {
	for i, bg := range e.retired {
		e.device.DestroyBindGroup(bg)
		e.retired[i] = nil
	}
	e.retired = e.retired[:0]
}

// Pending returns the number of released bind groups awaiting the end of
// the pass in flight.
func (e *Executor) Pending() int { return len(e.retired) }

// Execute encodes pass, submits it and waits for completion.
func (e *Executor) Execute(pass *graph.Pass) error {
	att := pass.Attachments
	if att.Color == nil {
		return fmt.Errorf("execute %s: no color attachment", pass.Name)
	}
	pipeline := e.pipeline.pipeline
	if att.Depth != nil {
		if err := e.pipeline.ensurePipelineWithDepth(); err != nil {
			return err
		}
		pipeline = e.pipeline.pipelineWithDepth
	}

	e.queue.WriteBuffer(e.projection, 0, projectionBytes(pass.Projection))
	if err := e.uploadDrawParams(pass); err != nil {
		return err
	}

	// Until the fence signals, every bind group recorded in this pass may
	// still be read by the GPU. A pass that failed its wait keeps its
	// retired groups until the next completed pass.
	e.inFlight = true
	completed := true
	defer func() {
		e.inFlight = false
		if completed {
			e.destroyRetired()
		}
	}()

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "gui_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(pass.Name); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	loadOp := gputypes.LoadOpClear
	if att.Load {
		loadOp = gputypes.LoadOpLoad
	}
	rpDesc := &hal.RenderPassDescriptor{
		Label: pass.Name,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       att.Color,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	}
	if att.Depth != nil {
		rpDesc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:           att.Depth,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		}
	}

	rp := encoder.BeginRenderPass(rpDesc)
	recErr := e.record(rp, pass, pipeline)
	rp.End()
	if recErr != nil {
		if cmdBuf, err := encoder.EndEncoding(); err == nil {
			e.device.FreeCommandBuffer(cmdBuf)
		}
		return recErr
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer e.device.FreeCommandBuffer(cmdBuf)

	fence, err := e.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer e.device.DestroyFence(fence)

	if err := e.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := e.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !fenceOK {
		completed = false
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	slogger().Debug("gpu: pass executed", "pass", pass.Name, "ops", len(pass.Ops), "draws", pass.Draws())
	return nil
}

// record translates ops into render pass commands.
func (e *Executor) record(rp hal.RenderPassEncoder, pass *graph.Pass, pipeline hal.RenderPipeline) error {
	fbW, fbH := pass.Attachments.Width, pass.Attachments.Height
	v := pass.Viewport
	rp.SetViewport(v.X, v.Y, v.W, v.H, 0, 1)
	rp.SetScissorRect(0, 0, fbW, fbH)

	var indirect hal.Buffer
	slot := uint32(0)
	for i := range pass.Ops {
		op := &pass.Ops[i]
		switch op.Kind {
		case graph.OpBindGeometry:
			g := op.Geometry
			if err := e.ensureFrameBind(g); err != nil {
				return err
			}
			rp.SetPipeline(pipeline)
			if g.Pipeline == graph.PipelineMesh {
				rp.SetBindGroup(frameGroup, e.frameBind, nil)
				rp.SetVertexBuffer(0, g.Vertices, 0)
			}
			rp.SetIndexBuffer(g.Indices, gputypes.IndexFormatUint16, 0)
			indirect = g.Indirect
		case graph.OpScissor:
			x, y, w, h := topLeftScissor(op.Scissor, fbW, fbH)
			rp.SetScissorRect(x, y, w, h)
		case graph.OpDisableScissor:
			rp.SetScissorRect(0, 0, fbW, fbH)
		case graph.OpBindTexture:
			bg, err := e.textureBind(op.Texture.View)
			if err != nil {
				return fmt.Errorf("bind texture %d: %w", op.TextureID, err)
			}
			rp.SetBindGroup(textureGroup, bg, nil)
		case graph.OpSetBaseVertex:
			// Consumed by uploadDrawParams.
		case graph.OpDrawIndexed:
			rp.DrawIndexed(op.IndexCount, 1, op.FirstIndex, op.BaseVertex, 0)
		case graph.OpDrawIndirect:
			rp.SetBindGroup(frameGroup, e.frameBind, []uint32{slot * drawParamsStride})
			rp.DrawIndexedIndirect(indirect, op.IndirectOffset)
			slot++
		case graph.OpCallback:
			op.Callback(op.List, op.Cmd)
		}
	}
	return nil
}

// uploadDrawParams writes one {base_vertex, list_base} slot per indirect
// draw, in draw order.
func (e *Executor) uploadDrawParams(pass *graph.Pass) error {
	n := pass.Count(graph.OpDrawIndirect)
	if n == 0 {
		return nil
	}
	if _, err := e.drawParams.Reserve(n); err != nil {
		return fmt.Errorf("draw params: %w", err)
	}
	size := n * drawParamsStride
	if cap(e.staging) < size {
		e.staging = make([]byte, size)
	}
	e.staging = e.staging[:size]
	clear(e.staging)

	var base int32
	slot := 0
	for i := range pass.Ops {
		op := &pass.Ops[i]
		switch op.Kind {
		case graph.OpSetBaseVertex:
			base = op.BaseVertex
		case graph.OpDrawIndirect:
			off := slot * drawParamsStride
			binary.LittleEndian.PutUint32(e.staging[off:], uint32(base)) //nolint:gosec // base vertex is non-negative
			binary.LittleEndian.PutUint32(e.staging[off+4:], op.ListBase)
			slot++
		}
	}
	return e.drawParams.Write(QueueUploader{Queue: e.queue}, 0, e.staging)
}

// ensureFrameBind (re)creates the frame bind group when the buffers it
// references have been reallocated.
func (e *Executor) ensureFrameBind(g graph.Geometry) error {
	procedural := g.Pipeline == graph.PipelineProcedural
	params := e.drawParams.Raw()
	if procedural && params == nil {
		// A procedural pass without draws still needs a valid binding.
		if _, err := e.drawParams.Reserve(1); err != nil {
			return fmt.Errorf("draw params: %w", err)
		}
		params = e.drawParams.Raw()
	}
	if e.frameBind != nil && e.frameVertices == g.Vertices && e.frameParams == params {
		return nil
	}
	if e.frameBind != nil {
		e.releaseBindGroup(e.frameBind)
		e.frameBind = nil
	}

	slots := e.pipeline.slots
	entries := []gputypes.BindGroupEntry{
		{Binding: slots.projection, Resource: gputypes.BufferBinding{
			Buffer: e.projection.NativeHandle(), Offset: 0, Size: projectionSize,
		}},
	}
	if procedural {
		entries = append(entries,
			gputypes.BindGroupEntry{Binding: slots.vertices, Resource: gputypes.BufferBinding{
				Buffer: g.Vertices.NativeHandle(), Offset: 0, Size: g.VerticesSize,
			}},
			gputypes.BindGroupEntry{Binding: slots.baseVertex, Resource: gputypes.BufferBinding{
				Buffer: params.NativeHandle(), Offset: 0, Size: drawParamsSize,
			}},
		)
	}
	bg, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "gui_frame_bind",
		Layout:  e.pipeline.frameLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create frame bind group: %w", err)
	}
	e.frameBind = bg
	e.frameVertices = g.Vertices
	e.frameParams = params
	return nil
}

// textureBind returns the cached bind group for view.
func (e *Executor) textureBind(view hal.TextureView) (hal.BindGroup, error) {
	return e.textureBinds.GetOrCreate(view, func() (hal.BindGroup, error) {
		slots := e.pipeline.slots
		return e.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "gui_texture_bind",
			Layout: e.pipeline.textureLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: slots.texture, Resource: gputypes.TextureViewBinding{
					TextureView: view.NativeHandle(),
				}},
				{Binding: slots.sampler, Resource: gputypes.SamplerBinding{
					Sampler: e.pipeline.sampler.NativeHandle(),
				}},
			},
		})
	})
}

// ForgetTexture drops the cached bind group of view. Call it before the
// view is destroyed.
func (e *Executor) ForgetTexture(view hal.TextureView) {
	e.textureBinds.Delete(view)
}

// Destroy releases every resource owned by the executor.
func (e *Executor) Destroy() {
	e.textureBinds.Clear()
	e.destroyRetired()
	if e.frameBind != nil {
		e.device.DestroyBindGroup(e.frameBind)
		e.frameBind = nil
	}
	e.drawParams.Release()
	if e.projection != nil {
		e.device.DestroyBuffer(e.projection)
		e.projection = nil
	}
}

// topLeftScissor converts a bottom-left-origin scissor rectangle to the
// top-left origin of the render pass, clamped to the framebuffer.
func topLeftScissor(r graph.Rect, fbW, fbH uint32) (x, y, w, h uint32) {
	x0 := clampPixel(r.X, fbW)
	x1 := clampPixel(r.X+r.W, fbW)
	y0 := clampPixel(float32(fbH)-(r.Y+r.H), fbH)
	y1 := clampPixel(float32(fbH)-r.Y, fbH)
	return x0, y0, x1 - x0, y1 - y0
}

func clampPixel(v float32, limit uint32) uint32 {
	if v <= 0 || math.IsNaN(float64(v)) {
		return 0
	}
	if v >= float32(limit) {
		return limit
	}
	return uint32(v)
}

// projectionBytes encodes a row-major matrix as a WGSL column-major
// mat4x4<f32>.
func projectionBytes(m f32.Mat4) []byte {
	b := make([]byte, projectionSize)
	for col := range 4 {
		for row := range 4 {
			binary.LittleEndian.PutUint32(b[(col*4+row)*4:], math.Float32bits(m[row*4+col]))
		}
	}
	return b
}
