package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/guidraw/drawdata"
)

// Mesh errors.
var (
	// ErrMeshNotCleared is returned when the sub-mesh count changes while
	// the mesh still holds geometry.
	ErrMeshNotCleared = errors.New("gpu: mesh must be cleared before changing sub-mesh count")

	// ErrSubMeshRange is returned when a sub-mesh references indices past
	// the index count.
	ErrSubMeshRange = errors.New("gpu: sub-mesh index range out of bounds")

	// ErrIndexRange is returned when an index addresses a vertex past the
	// vertex count.
	ErrIndexRange = errors.New("gpu: index out of vertex range")

	// ErrSubMeshIndex is returned for a sub-mesh slot that does not exist.
	ErrSubMeshIndex = errors.New("gpu: sub-mesh slot out of range")
)

// MeshUpdateFlags relax the checks performed by mesh uploads.
type MeshUpdateFlags uint8

// MeshUpdateDefault validates indices and recalculates bounds.
const MeshUpdateDefault MeshUpdateFlags = 0

const (
	// DontValidateIndices skips index and sub-mesh range validation.
	DontValidateIndices MeshUpdateFlags = 1 << iota

	// DontRecalculateBounds keeps the previous bounds.
	DontRecalculateBounds

	// NoMeshChecks skips every check. GUI geometry is trusted and rewritten
	// each frame.
	NoMeshChecks = DontValidateIndices | DontRecalculateBounds
)

// SubMesh is one contiguous index range of a mesh drawn with its own state.
type SubMesh struct {
	IndexStart uint32
	IndexCount uint32
	BaseVertex int32
}

// Mesh is a dynamic GPU mesh in the GUI vertex format with 16-bit indices,
// partitioned into sub-meshes. Storage grows in GrowthBlock elements and
// is reused across frames.
//
// Mesh is not safe for concurrent use.
type Mesh struct {
	vertices *GrowableBuffer
	indices  *GrowableBuffer

	vertexCount int
	indexCount  int
	subMeshes   []SubMesh

	// bounds is (min-x, min-y, max-x, max-y) of the vertex positions.
	bounds f32.Vec4
}

// NewMesh creates an empty mesh allocating from device.
func NewMesh(device BufferDevice, label string) *Mesh {
	return &Mesh{
		vertices: NewGrowableBuffer(device, label+"_vertices",
			gputypes.BufferUsageVertex, drawdata.VertexStride),
		indices: NewGrowableBuffer(device, label+"_indices",
			gputypes.BufferUsageIndex, drawdata.IndexStride),
	}
}

// Clear drops the geometry and every sub-mesh. GPU storage is kept.
func (m *Mesh) Clear() {
	m.vertexCount = 0
	m.indexCount = 0
	m.subMeshes = m.subMeshes[:0]
	m.bounds = f32.Vec4{}
}

// SetSubMeshCount sets the number of sub-meshes. Changing the count of a
// mesh that still holds geometry fails with ErrMeshNotCleared.
func (m *Mesh) SetSubMeshCount(n int) error {
	if n == len(m.subMeshes) {
		return nil
	}
	if m.vertexCount > 0 || m.indexCount > 0 {
		return fmt.Errorf("set sub-mesh count %d -> %d: %w", len(m.subMeshes), n, ErrMeshNotCleared)
	}
	slogger().Debug("gpu: sub-mesh count changed", "from", len(m.subMeshes), "to", n)
	if cap(m.subMeshes) >= n {
		m.subMeshes = m.subMeshes[:n]
		clear(m.subMeshes)
	} else {
		m.subMeshes = make([]SubMesh, n)
	}
	return nil
}

// SubMeshCount returns the number of sub-meshes.
func (m *Mesh) SubMeshCount() int { return len(m.subMeshes) }

// SetVertexBufferParams sizes the vertex storage for count vertices.
func (m *Mesh) SetVertexBufferParams(count int) error {
	if _, err := m.vertices.Reserve(count); err != nil {
		return fmt.Errorf("mesh vertices: %w", err)
	}
	m.vertexCount = count
	return nil
}

// SetIndexBufferParams sizes the index storage for count 16-bit indices.
func (m *Mesh) SetIndexBufferParams(count int) error {
	// Capacity is always even, so an odd count still leaves room for the
	// two bytes of upload padding.
	if _, err := m.indices.Reserve(count); err != nil {
		return fmt.Errorf("mesh indices: %w", err)
	}
	m.indexCount = count
	return nil
}

// VertexCount returns the vertex count set by SetVertexBufferParams.
func (m *Mesh) VertexCount() int { return m.vertexCount }

// IndexCount returns the index count set by SetIndexBufferParams.
func (m *Mesh) IndexCount() int { return m.indexCount }

// SetVertexBufferData uploads encoded vertices starting at vertex 0.
func (m *Mesh) SetVertexBufferData(up Uploader, data []byte, flags MeshUpdateFlags) error {
	if len(data) > m.vertexCount*drawdata.VertexStride {
		return fmt.Errorf("mesh vertices: %d bytes for %d vertices: %w",
			len(data), m.vertexCount, ErrWriteOutOfRange)
	}
	if err := m.vertices.Write(up, 0, data); err != nil {
		return fmt.Errorf("mesh vertices: %w", err)
	}
	if flags&DontRecalculateBounds == 0 {
		m.bounds = vertexBounds(data)
	}
	return nil
}

// SetIndexBufferData uploads encoded 16-bit indices starting at index 0.
// data may carry two bytes of padding past the index count.
func (m *Mesh) SetIndexBufferData(up Uploader, data []byte, flags MeshUpdateFlags) error {
	if len(data) > (m.indexCount+1)/2*4 {
		return fmt.Errorf("mesh indices: %d bytes for %d indices: %w",
			len(data), m.indexCount, ErrWriteOutOfRange)
	}
	if flags&DontValidateIndices == 0 {
		for i := 0; i+1 < len(data) && i/drawdata.IndexStride < m.indexCount; i += drawdata.IndexStride {
			if v := int(data[i]) | int(data[i+1])<<8; v >= m.vertexCount {
				return fmt.Errorf("mesh index %d = %d, vertex count %d: %w",
					i/drawdata.IndexStride, v, m.vertexCount, ErrIndexRange)
			}
		}
	}
	if err := m.indices.Write(up, 0, data); err != nil {
		return fmt.Errorf("mesh indices: %w", err)
	}
	return nil
}

// SetSubMesh sets sub-mesh i.
func (m *Mesh) SetSubMesh(i int, sm SubMesh, flags MeshUpdateFlags) error {
	if i < 0 || i >= len(m.subMeshes) {
		return fmt.Errorf("sub-mesh %d of %d: %w", i, len(m.subMeshes), ErrSubMeshIndex)
	}
	if flags&DontValidateIndices == 0 {
		if uint64(sm.IndexStart)+uint64(sm.IndexCount) > uint64(m.indexCount) { //nolint:gosec // index count is non-negative
			return fmt.Errorf("sub-mesh %d [%d, +%d) of %d indices: %w",
				i, sm.IndexStart, sm.IndexCount, m.indexCount, ErrSubMeshRange)
		}
	}
	m.subMeshes[i] = sm
	return nil
}

// SetSubMeshes sets every sub-mesh from descs, whose length must equal
// SubMeshCount.
func (m *Mesh) SetSubMeshes(descs []SubMesh, flags MeshUpdateFlags) error {
	if len(descs) != len(m.subMeshes) {
		return fmt.Errorf("%d descriptors for %d sub-meshes: %w", len(descs), len(m.subMeshes), ErrSubMeshIndex)
	}
	for i, sm := range descs {
		if err := m.SetSubMesh(i, sm, flags); err != nil {
			return err
		}
	}
	return nil
}

// SubMesh returns sub-mesh i.
func (m *Mesh) SubMesh(i int) SubMesh { return m.subMeshes[i] }

// Bounds returns the bounds computed by the last checked vertex upload.
func (m *Mesh) Bounds() f32.Vec4 { return m.bounds }

// VertexBuffer returns the vertex storage.
func (m *Mesh) VertexBuffer() *GrowableBuffer { return m.vertices }

// IndexBuffer returns the index storage.
func (m *Mesh) IndexBuffer() *GrowableBuffer { return m.indices }

// Release destroys the GPU storage.
func (m *Mesh) Release() {
	m.vertices.Release()
	m.indices.Release()
	m.Clear()
}

func vertexBounds(data []byte) f32.Vec4 {
	n := len(data) / drawdata.VertexStride
	if n == 0 {
		return f32.Vec4{}
	}
	v := drawdata.DecodeVertex(data)
	b := f32.Vec4{v.Pos[0], v.Pos[1], v.Pos[0], v.Pos[1]}
	for i := 1; i < n; i++ {
		p := drawdata.DecodeVertex(data[i*drawdata.VertexStride:]).Pos
		b[0] = min(b[0], p[0])
		b[1] = min(b[1], p[1])
		b[2] = max(b[2], p[0])
		b[3] = max(b[3], p[1])
	}
	return b
}
