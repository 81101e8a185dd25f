// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package graph records render passes as ordered operation lists.
//
// A pass is recorded once per frame by the scheduler and replayed onto a GPU
// command encoder by an executor. Recording never touches the GPU, which
// keeps submission logic testable without a device.
package graph

import (
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/guidraw/drawdata"
	"github.com/gogpu/guidraw/texture"
)

// OpKind identifies a recorded operation.
type OpKind uint8

const (
	// OpBindGeometry binds a pipeline and the packed buffers.
	OpBindGeometry OpKind = iota
	// OpScissor sets the scissor rectangle.
	OpScissor
	// OpDisableScissor resets the scissor to the full framebuffer.
	OpDisableScissor
	// OpBindTexture binds a texture for subsequent draws.
	OpBindTexture
	// OpSetBaseVertex sets the per-draw base vertex for procedural draws.
	OpSetBaseVertex
	// OpDrawIndexed issues an indexed draw.
	OpDrawIndexed
	// OpDrawIndirect issues an indexed indirect draw.
	OpDrawIndirect
	// OpCallback runs a user callback.
	OpCallback
)

var opNames = [...]string{
	OpBindGeometry:   "BindGeometry",
	OpScissor:        "Scissor",
	OpDisableScissor: "DisableScissor",
	OpBindTexture:    "BindTexture",
	OpSetBaseVertex:  "SetBaseVertex",
	OpDrawIndexed:    "DrawIndexed",
	OpDrawIndirect:   "DrawIndirect",
	OpCallback:       "Callback",
}

// String returns the operation name.
func (k OpKind) String() string {
	if int(k) < len(opNames) {
		return opNames[k]
	}
	return "Unknown"
}

// Pipeline selects the render pipeline used by a pass.
type Pipeline uint8

const (
	// PipelineMesh reads vertices through a vertex buffer.
	PipelineMesh Pipeline = iota
	// PipelineProcedural reads vertices from a storage buffer by index.
	PipelineProcedural
)

// Rect is a scissor rectangle in framebuffer pixels with a bottom-left
// origin.
type Rect struct {
	X, Y, W, H float32
}

// Viewport is the viewport rectangle in framebuffer pixels.
type Viewport struct {
	X, Y, W, H float32
}

// Geometry names the buffers a pass draws from.
type Geometry struct {
	Pipeline Pipeline

	// Vertices is a vertex buffer for PipelineMesh and a storage buffer for
	// PipelineProcedural.
	Vertices     hal.Buffer
	VerticesSize uint64

	Indices  hal.Buffer
	Indirect hal.Buffer
}

// Op is one recorded operation. Only the fields relevant to Kind are set.
type Op struct {
	Kind OpKind

	Geometry Geometry // OpBindGeometry
	Scissor  Rect     // OpScissor

	TextureID drawdata.TextureID // OpBindTexture
	Texture   texture.Handle     // OpBindTexture

	BaseVertex int32 // OpSetBaseVertex, OpDrawIndexed

	// OpDrawIndexed
	IndexCount uint32
	FirstIndex uint32

	// OpDrawIndirect. ListBase repeats the base vertex stored in the
	// indirect record, which the device adds to the vertex index.
	IndirectOffset uint64
	ListBase       uint32

	// OpCallback. List and Cmd are borrowed from the frame and are only
	// valid until the frame has been executed.
	Callback drawdata.Callback
	List     *drawdata.DrawList
	Cmd      *drawdata.DrawCmd
}

// Attachments are the render targets of a pass.
type Attachments struct {
	Color hal.TextureView
	Depth hal.TextureView // optional depth/stencil view

	Width, Height uint32

	// Load keeps the existing color contents instead of clearing.
	Load bool
}

// Pass is a recorded render pass.
type Pass struct {
	Name        string
	Attachments Attachments
	Viewport    Viewport
	Projection  f32.Mat4
	Ops         []Op
}

// SetViewport records the viewport.
func (p *Pass) SetViewport(v Viewport) { p.Viewport = v }

// SetProjection records the projection matrix applied to every vertex.
func (p *Pass) SetProjection(m f32.Mat4) { p.Projection = m }

// BindGeometry records a pipeline and buffer binding.
func (p *Pass) BindGeometry(g Geometry) {
	p.Ops = append(p.Ops, Op{Kind: OpBindGeometry, Geometry: g})
}

// Scissor records a scissor rectangle.
func (p *Pass) Scissor(r Rect) {
	p.Ops = append(p.Ops, Op{Kind: OpScissor, Scissor: r})
}

// DisableScissor records a scissor reset.
func (p *Pass) DisableScissor() {
	p.Ops = append(p.Ops, Op{Kind: OpDisableScissor})
}

// BindTexture records a texture binding.
func (p *Pass) BindTexture(id drawdata.TextureID, h texture.Handle) {
	p.Ops = append(p.Ops, Op{Kind: OpBindTexture, TextureID: id, Texture: h})
}

// SetBaseVertex records the base vertex for following indirect draws.
func (p *Pass) SetBaseVertex(v int32) {
	p.Ops = append(p.Ops, Op{Kind: OpSetBaseVertex, BaseVertex: v})
}

// DrawIndexed records an indexed draw.
func (p *Pass) DrawIndexed(indexCount, firstIndex uint32, baseVertex int32) {
	p.Ops = append(p.Ops, Op{
		Kind:       OpDrawIndexed,
		IndexCount: indexCount,
		FirstIndex: firstIndex,
		BaseVertex: baseVertex,
	})
}

// DrawIndirect records an indirect draw reading its arguments at offset in
// the bound indirect buffer. listBase is the base vertex of that record.
func (p *Pass) DrawIndirect(offset uint64, listBase uint32) {
	p.Ops = append(p.Ops, Op{Kind: OpDrawIndirect, IndirectOffset: offset, ListBase: listBase})
}

// Callback records a user callback.
func (p *Pass) Callback(fn drawdata.Callback, list *drawdata.DrawList, cmd *drawdata.DrawCmd) {
	p.Ops = append(p.Ops, Op{Kind: OpCallback, Callback: fn, List: list, Cmd: cmd})
}

// Count returns the number of recorded operations of the given kind.
func (p *Pass) Count(kind OpKind) int {
	n := 0
	for i := range p.Ops {
		if p.Ops[i].Kind == kind {
			n++
		}
	}
	return n
}

// Draws returns the number of recorded draw operations of either kind.
func (p *Pass) Draws() int {
	return p.Count(OpDrawIndexed) + p.Count(OpDrawIndirect)
}

// Builder collects the passes enqueued for a frame.
type Builder struct {
	passes []*Pass
}

// AddPass enqueues a new pass rendering into att and returns it for
// recording.
func (b *Builder) AddPass(name string, att Attachments) *Pass {
	p := &Pass{Name: name, Attachments: att}
	b.passes = append(b.passes, p)
	return p
}

// Discard removes p from the enqueued passes. It reports whether p was
// enqueued.
func (b *Builder) Discard(p *Pass) bool {
	for i, q := range b.passes {
		if q == p {
			b.passes = append(b.passes[:i], b.passes[i+1:]...)
			return true
		}
	}
	return false
}

// Passes returns the enqueued passes in order.
func (b *Builder) Passes() []*Pass {
	return b.passes
}

// Reset drops all enqueued passes. Callers reset after executing a frame so
// that no borrowed draw data outlives it.
func (b *Builder) Reset() {
	clear(b.passes)
	b.passes = b.passes[:0]
}
