// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/guidraw/drawdata"
	"github.com/gogpu/guidraw/graph"
)

const (
	// frameGroup holds the projection uniform and, for the procedural
	// pipeline, the vertex storage and per-draw parameters.
	frameGroup = 0
	// textureGroup holds the bound texture and its sampler.
	textureGroup = 1

	// projectionSize is one mat4x4<f32>.
	projectionSize = 64

	// drawParamsSize is {base_vertex, list_base}.
	drawParamsSize = 8

	// drawParamsStride is the dynamic uniform offset alignment.
	drawParamsStride = 256
)

// BindingNames are the shader resource names the renderer binds by name.
type BindingNames struct {
	Projection string
	Texture    string
	Sampler    string
	// Vertices and BaseVertex are only used by the procedural pipeline.
	Vertices   string
	BaseVertex string
}

// DefaultBindingNames returns the names declared by the built-in shaders.
func DefaultBindingNames() BindingNames {
	return BindingNames{
		Projection: "uniforms",
		Texture:    "gui_texture",
		Sampler:    "gui_sampler",
		Vertices:   "vertices",
		BaseVertex: "draw",
	}
}

// PipelineConfig selects and configures a GUI pipeline.
type PipelineConfig struct {
	Kind        graph.Pipeline
	ColorFormat gputypes.TextureFormat
	DepthFormat gputypes.TextureFormat
	Names       BindingNames

	// Source overrides the built-in WGSL source when non-empty.
	Source string
}

// pipelineSlots are the resolved binding numbers.
type pipelineSlots struct {
	projection, texture, sampler, vertices, baseVertex uint32
}

// Pipeline is a compiled GUI render pipeline with its layouts and sampler.
type Pipeline struct {
	device hal.Device
	cfg    PipelineConfig
	slots  pipelineSlots

	shader        hal.ShaderModule
	frameLayout   hal.BindGroupLayout
	textureLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	sampler       hal.Sampler

	pipeline          hal.RenderPipeline
	pipelineWithDepth hal.RenderPipeline
}

// ResolvePipelineBindings resolves the names of cfg against its shader
// source and checks that each resource lives in the group the renderer
// binds it to.
func ResolvePipelineBindings(cfg PipelineConfig) error {
	_, err := resolveSlots(cfg)
	return err
}

func shaderSource(cfg PipelineConfig) string {
	if cfg.Source != "" {
		return cfg.Source
	}
	if cfg.Kind == graph.PipelineProcedural {
		return proceduralShaderSource
	}
	return meshShaderSource
}

func resolveSlots(cfg PipelineConfig) (pipelineSlots, error) {
	n := cfg.Names
	names := []string{n.Projection, n.Texture, n.Sampler}
	groups := []uint32{frameGroup, textureGroup, textureGroup}
	if cfg.Kind == graph.PipelineProcedural {
		names = append(names, n.Vertices, n.BaseVertex)
		groups = append(groups, frameGroup, frameGroup)
	}
	bs, err := ResolveBindings(shaderSource(cfg), names...)
	if err != nil {
		return pipelineSlots{}, err
	}
	for i, b := range bs {
		if b.Group != groups[i] {
			return pipelineSlots{}, fmt.Errorf("%q in group %d, want %d: %w",
				names[i], b.Group, groups[i], ErrBindingGroup)
		}
	}
	s := pipelineSlots{projection: bs[0].Binding, texture: bs[1].Binding, sampler: bs[2].Binding}
	if cfg.Kind == graph.PipelineProcedural {
		s.vertices, s.baseVertex = bs[3].Binding, bs[4].Binding
	}
	return s, nil
}

// NewPipeline resolves bindings, compiles the shader through naga and
// creates the layouts, sampler and pipeline. On failure every object
// created so far is destroyed.
func NewPipeline(device hal.Device, cfg PipelineConfig) (*Pipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if cfg.ColorFormat == gputypes.TextureFormatUndefined {
		cfg.ColorFormat = gputypes.TextureFormatBGRA8Unorm
	}
	if cfg.DepthFormat == gputypes.TextureFormatUndefined {
		cfg.DepthFormat = gputypes.TextureFormatDepth24PlusStencil8
	}
	slots, err := resolveSlots(cfg)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{device: device, cfg: cfg, slots: slots}
	if err := p.create(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

// Kind returns the pipeline variant.
func (p *Pipeline) Kind() graph.Pipeline { return p.cfg.Kind }

// ColorFormat returns the color attachment format the pipeline targets.
func (p *Pipeline) ColorFormat() gputypes.TextureFormat { return p.cfg.ColorFormat }

func (p *Pipeline) label(s string) string {
	if p.cfg.Kind == graph.PipelineProcedural {
		return "gui_procedural_" + s
	}
	return "gui_mesh_" + s
}

func (p *Pipeline) create() error {
	shader, err := createShaderModule(p.device, p.label("shader"), shaderSource(p.cfg))
	if err != nil {
		return err
	}
	p.shader = shader

	frameEntries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    p.slots.projection,
			Visibility: gputypes.ShaderStageVertex,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
	}
	if p.cfg.Kind == graph.PipelineProcedural {
		frameEntries = append(frameEntries,
			gputypes.BindGroupLayoutEntry{
				Binding:    p.slots.vertices,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    p.slots.baseVertex,
				Visibility: gputypes.ShaderStageVertex,
				Buffer: &gputypes.BufferBindingLayout{
					Type:             gputypes.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   drawParamsSize,
				},
			},
		)
	}
	frameLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   p.label("frame_layout"),
		Entries: frameEntries,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", p.label("frame_layout"), err)
	}
	p.frameLayout = frameLayout

	textureLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: p.label("texture_layout"),
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    p.slots.texture,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    p.slots.sampler,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", p.label("texture_layout"), err)
	}
	p.textureLayout = textureLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label("pipe_layout"),
		BindGroupLayouts: []hal.BindGroupLayout{p.frameLayout, p.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", p.label("pipe_layout"), err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        p.label("sampler"),
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", p.label("sampler"), err)
	}
	p.sampler = sampler

	pipeline, err := p.device.CreateRenderPipeline(p.descriptor("pipeline", nil))
	if err != nil {
		return fmt.Errorf("create %s: %w", p.label("pipeline"), err)
	}
	p.pipeline = pipeline
	return nil
}

// descriptor builds the render pipeline descriptor. GUI geometry is drawn
// back to front with straight alpha blending, no culling and no depth test.
func (p *Pipeline) descriptor(name string, depth *hal.DepthStencilState) *hal.RenderPipelineDescriptor {
	blend := gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}
	var buffers []gputypes.VertexBufferLayout
	if p.cfg.Kind == graph.PipelineMesh {
		buffers = meshVertexLayout()
	}
	return &hal.RenderPipelineDescriptor{
		Label:  p.label(name),
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.cfg.ColorFormat,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: depth,
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
}

// ensurePipelineWithDepth creates the variant used when the pass carries a
// depth/stencil attachment. The GUI ignores depth and stencil
// (Compare=Always, all ops=Keep, no writes).
func (p *Pipeline) ensurePipelineWithDepth() error {
	if p.pipelineWithDepth != nil {
		return nil
	}
	keep := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}
	pipeline, err := p.device.CreateRenderPipeline(p.descriptor("pipeline_with_depth", &hal.DepthStencilState{
		Format:            p.cfg.DepthFormat,
		DepthWriteEnabled: false,
		DepthCompare:      gputypes.CompareFunctionAlways,
		StencilFront:      keep,
		StencilBack:       keep,
		StencilReadMask:   0x00,
		StencilWriteMask:  0x00,
	}))
	if err != nil {
		return fmt.Errorf("create %s: %w", p.label("pipeline_with_depth"), err)
	}
	p.pipelineWithDepth = pipeline
	return nil
}

// Destroy releases all pipeline resources in reverse creation order.
func (p *Pipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.pipelineWithDepth != nil {
		p.device.DestroyRenderPipeline(p.pipelineWithDepth)
		p.pipelineWithDepth = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.textureLayout != nil {
		p.device.DestroyBindGroupLayout(p.textureLayout)
		p.textureLayout = nil
	}
	if p.frameLayout != nil {
		p.device.DestroyBindGroupLayout(p.frameLayout)
		p.frameLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// meshVertexLayout returns the vertex buffer layout of the GUI vertex.
func meshVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: drawdata.VertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // uv
				{Format: gputypes.VertexFormatUnorm8x4, Offset: 16, ShaderLocation: 2}, // color
			},
		},
	}
}
