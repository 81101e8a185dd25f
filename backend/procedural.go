package backend

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/guidraw/drawdata"
	"github.com/gogpu/guidraw/graph"
	"github.com/gogpu/guidraw/internal/compile"
	"github.com/gogpu/guidraw/internal/gpu"
)

// Procedural draws every sub-draw with an indexed indirect draw whose
// vertices the shader fetches from storage.
type Procedural struct {
	vertices *gpu.GrowableBuffer
	indices  *gpu.GrowableBuffer
	args     *gpu.GrowableBuffer
	up       Uploader

	records  []byte
	released bool
}

// NewProcedural creates a procedural backend.
func NewProcedural(device Device, up Uploader) *Procedural {
	return &Procedural{
		vertices: gpu.NewGrowableBuffer(device, "gui_vertices",
			gputypes.BufferUsageStorage, drawdata.VertexStride),
		indices: gpu.NewGrowableBuffer(device, "gui_indices",
			gputypes.BufferUsageIndex, drawdata.IndexStride),
		// One element per 32-bit integer of the indirect records.
		args: gpu.NewGrowableBuffer(device, "gui_indirect_args",
			gputypes.BufferUsageIndirect, 4),
		up: up,
	}
}

// Name implements Backend.
func (p *Procedural) Name() string { return NameProcedural }

// Pipeline implements Backend.
func (p *Procedural) Pipeline() graph.Pipeline { return graph.PipelineProcedural }

// UsesBaseVertex implements Backend.
func (p *Procedural) UsesBaseVertex() bool { return true }

// Prepare implements Backend.
func (p *Procedural) Prepare(frame *Frame, staging *Staging) error {
	if p.released {
		return ErrReleased
	}
	nArgs := len(frame.SubDraws) * compile.IndirectRecordInts
	if _, err := p.vertices.Reserve(frame.VertexCount); err != nil {
		return err
	}
	if _, err := p.indices.Reserve(frame.IndexCount); err != nil {
		return err
	}
	if _, err := p.args.Reserve(nArgs); err != nil {
		return err
	}

	if err := p.vertices.Write(p.up, 0, staging.Vertices); err != nil {
		return fmt.Errorf("procedural vertices: %w", err)
	}
	if err := p.indices.Write(p.up, 0, staging.IndexBytes()); err != nil {
		return fmt.Errorf("procedural indices: %w", err)
	}

	size := len(frame.SubDraws) * compile.IndirectRecordSize
	if cap(p.records) < size {
		p.records = make([]byte, size)
	}
	p.records = p.records[:size]
	for i, sd := range frame.SubDraws {
		rec := sd.IndirectRecord()
		off := i * compile.IndirectRecordSize
		for j, v := range rec {
			binary.LittleEndian.PutUint32(p.records[off+j*4:], v)
		}
	}
	if err := p.args.Write(p.up, 0, p.records); err != nil {
		return fmt.Errorf("procedural indirect args: %w", err)
	}
	return nil
}

// Geometry implements Backend.
func (p *Procedural) Geometry() graph.Geometry {
	return graph.Geometry{
		Pipeline:     graph.PipelineProcedural,
		Vertices:     p.vertices.Raw(),
		VerticesSize: p.vertices.Size(),
		Indices:      p.indices.Raw(),
		Indirect:     p.args.Raw(),
	}
}

// Draw implements Backend. The base vertex is recorded by the scheduler
// through graph.OpSetBaseVertex before this draw.
func (p *Procedural) Draw(pass *graph.Pass, slot int, sd SubDraw) {
	pass.DrawIndirect(uint64(slot)*compile.IndirectRecordSize, sd.ListVertexOffset) //nolint:gosec // slot is non-negative
}

// Release implements Backend.
func (p *Procedural) Release() {
	p.vertices.Release()
	p.indices.Release()
	p.args.Release()
	p.released = true
}

// Capacities returns the element capacities of the vertex, index and
// indirect-argument buffers.
func (p *Procedural) Capacities() (vertices, indices, args int) {
	return p.vertices.Capacity(), p.indices.Capacity(), p.args.Capacity()
}
