package backend

import (
	"fmt"

	"github.com/gogpu/guidraw/graph"
	"github.com/gogpu/guidraw/internal/gpu"
)

// Mesh draws every sub-draw as a sub-mesh of one dynamic mesh.
type Mesh struct {
	mesh     *gpu.Mesh
	up       Uploader
	released bool
}

// NewMesh creates a mesh backend.
func NewMesh(device Device, up Uploader) *Mesh {
	return &Mesh{mesh: gpu.NewMesh(device, "gui_mesh"), up: up}
}

// Name implements Backend.
func (m *Mesh) Name() string { return NameMesh }

// Pipeline implements Backend.
func (m *Mesh) Pipeline() graph.Pipeline { return graph.PipelineMesh }

// UsesBaseVertex implements Backend. Sub-meshes carry their base vertex.
func (m *Mesh) UsesBaseVertex() bool { return false }

// Prepare implements Backend.
func (m *Mesh) Prepare(frame *Frame, staging *Staging) error {
	if m.released {
		return ErrReleased
	}
	n := len(frame.SubDraws)
	if n != m.mesh.SubMeshCount() {
		m.mesh.Clear()
		if err := m.mesh.SetSubMeshCount(n); err != nil {
			return err
		}
	}
	if err := m.mesh.SetVertexBufferParams(frame.VertexCount); err != nil {
		return err
	}
	if err := m.mesh.SetIndexBufferParams(frame.IndexCount); err != nil {
		return err
	}
	if err := m.mesh.SetVertexBufferData(m.up, staging.Vertices, gpu.NoMeshChecks); err != nil {
		return err
	}
	if err := m.mesh.SetIndexBufferData(m.up, staging.IndexBytes(), gpu.NoMeshChecks); err != nil {
		return err
	}
	for i, sd := range frame.SubDraws {
		sm := gpu.SubMesh{IndexStart: sd.IndexStart, IndexCount: sd.IndexCount, BaseVertex: sd.BaseVertex}
		if err := m.mesh.SetSubMesh(i, sm, gpu.NoMeshChecks); err != nil {
			return fmt.Errorf("mesh backend: %w", err)
		}
	}
	return nil
}

// Geometry implements Backend.
func (m *Mesh) Geometry() graph.Geometry {
	return graph.Geometry{
		Pipeline:     graph.PipelineMesh,
		Vertices:     m.mesh.VertexBuffer().Raw(),
		VerticesSize: m.mesh.VertexBuffer().Size(),
		Indices:      m.mesh.IndexBuffer().Raw(),
	}
}

// Draw implements Backend.
func (m *Mesh) Draw(pass *graph.Pass, slot int, _ SubDraw) {
	sm := m.mesh.SubMesh(slot)
	pass.DrawIndexed(sm.IndexCount, sm.IndexStart, sm.BaseVertex)
}

// Release implements Backend.
func (m *Mesh) Release() {
	m.mesh.Release()
	m.released = true
}

// SubMeshCount returns the number of sub-meshes of the last frame.
func (m *Mesh) SubMeshCount() int { return m.mesh.SubMeshCount() }
