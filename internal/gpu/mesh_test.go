package gpu

import (
	"errors"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/guidraw/drawdata"
)

func encodeVerts(verts ...drawdata.DrawVert) []byte {
	b := make([]byte, len(verts)*drawdata.VertexStride)
	drawdata.PutVertices(b, verts)
	return b
}

func encodeIdx(idx ...drawdata.DrawIdx) []byte {
	b := make([]byte, len(idx)*drawdata.IndexStride)
	drawdata.PutIndices(b, idx)
	return b
}

func TestMeshSubMeshCountRequiresClear(t *testing.T) {
	m := NewMesh(&fakeBufferDevice{}, "gui")
	if err := m.SetSubMeshCount(2); err != nil {
		t.Fatalf("SetSubMeshCount on empty mesh = %v", err)
	}
	if err := m.SetVertexBufferParams(3); err != nil {
		t.Fatal(err)
	}
	if err := m.SetSubMeshCount(2); err != nil {
		t.Errorf("unchanged count = %v, want nil", err)
	}
	if err := m.SetSubMeshCount(3); !errors.Is(err, ErrMeshNotCleared) {
		t.Errorf("changed count on filled mesh = %v, want ErrMeshNotCleared", err)
	}
	m.Clear()
	if err := m.SetSubMeshCount(3); err != nil {
		t.Errorf("changed count after Clear = %v", err)
	}
	if m.SubMeshCount() != 3 {
		t.Errorf("SubMeshCount() = %d, want 3", m.SubMeshCount())
	}
}

func TestMeshUploadChecks(t *testing.T) {
	m := NewMesh(&fakeBufferDevice{}, "gui")
	var up countingUploader
	_ = m.SetSubMeshCount(1)
	_ = m.SetVertexBufferParams(3)
	_ = m.SetIndexBufferParams(3)

	verts := encodeVerts(
		drawdata.DrawVert{Pos: f32.Vec2{5, 7}},
		drawdata.DrawVert{Pos: f32.Vec2{-1, 20}},
		drawdata.DrawVert{Pos: f32.Vec2{10, 0}},
	)
	if err := m.SetVertexBufferData(&up, verts, MeshUpdateDefault); err != nil {
		t.Fatal(err)
	}
	if got, want := m.Bounds(), (f32.Vec4{-1, 0, 10, 20}); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}

	bad := encodeIdx(0, 1, 3)
	if err := m.SetIndexBufferData(&up, bad, MeshUpdateDefault); !errors.Is(err, ErrIndexRange) {
		t.Errorf("out-of-range index = %v, want ErrIndexRange", err)
	}
	if err := m.SetIndexBufferData(&up, bad, NoMeshChecks); err != nil {
		t.Errorf("NoMeshChecks upload = %v, want nil", err)
	}

	err := m.SetSubMesh(0, SubMesh{IndexStart: 3, IndexCount: 3}, MeshUpdateDefault)
	if !errors.Is(err, ErrSubMeshRange) {
		t.Errorf("sub-mesh past indices = %v, want ErrSubMeshRange", err)
	}
	if err := m.SetSubMesh(0, SubMesh{IndexStart: 3, IndexCount: 3}, NoMeshChecks); err != nil {
		t.Errorf("NoMeshChecks sub-mesh = %v", err)
	}
	if err := m.SetSubMesh(1, SubMesh{}, NoMeshChecks); !errors.Is(err, ErrSubMeshIndex) {
		t.Errorf("missing slot = %v, want ErrSubMeshIndex", err)
	}
}

func TestMeshNoChecksKeepsBounds(t *testing.T) {
	m := NewMesh(&fakeBufferDevice{}, "gui")
	var up countingUploader
	_ = m.SetVertexBufferParams(1)
	_ = m.SetVertexBufferData(&up, encodeVerts(drawdata.DrawVert{Pos: f32.Vec2{1, 1}}), MeshUpdateDefault)
	_ = m.SetVertexBufferData(&up, encodeVerts(drawdata.DrawVert{Pos: f32.Vec2{9, 9}}), NoMeshChecks)
	if got := m.Bounds(); got != (f32.Vec4{1, 1, 1, 1}) {
		t.Errorf("Bounds() = %v, want unchanged {1 1 1 1}", got)
	}
}

func TestMeshOddIndexCountFitsPadding(t *testing.T) {
	m := NewMesh(&fakeBufferDevice{}, "gui")
	var up countingUploader
	_ = m.SetVertexBufferParams(3)
	_ = m.SetIndexBufferParams(3)
	padded := append(encodeIdx(0, 1, 2), 0, 0)
	if err := m.SetIndexBufferData(&up, padded, MeshUpdateDefault); err != nil {
		t.Errorf("padded upload = %v", err)
	}
}

func TestMeshSetSubMeshes(t *testing.T) {
	m := NewMesh(&fakeBufferDevice{}, "gui")
	_ = m.SetSubMeshCount(2)
	_ = m.SetIndexBufferParams(12)
	descs := []SubMesh{{0, 6, 0}, {6, 6, 4}}
	if err := m.SetSubMeshes(descs, MeshUpdateDefault); err != nil {
		t.Fatal(err)
	}
	if m.SubMesh(1) != descs[1] {
		t.Errorf("SubMesh(1) = %+v, want %+v", m.SubMesh(1), descs[1])
	}
	if err := m.SetSubMeshes(descs[:1], MeshUpdateDefault); !errors.Is(err, ErrSubMeshIndex) {
		t.Errorf("short descriptor slice = %v, want ErrSubMeshIndex", err)
	}
}
