package compile

import (
	"math"
	"testing"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/guidraw/drawdata"
	"github.com/gogpu/guidraw/graph"
)

// rawList builds a list with nv vertices, ni indices and the given commands.
func rawList(nv, ni int, cmds ...drawdata.DrawCmd) *drawdata.DrawList {
	l := &drawdata.DrawList{
		VtxBuffer: make([]drawdata.DrawVert, nv),
		IdxBuffer: make([]drawdata.DrawIdx, ni),
		CmdBuffer: cmds,
	}
	for i := range l.VtxBuffer {
		l.VtxBuffer[i].Col = uint32(i) //nolint:gosec // test data
	}
	for i := range l.IdxBuffer {
		l.IdxBuffer[i] = drawdata.DrawIdx(i % 3)
	}
	return l
}

func noop(*drawdata.DrawList, *drawdata.DrawCmd) {}

func TestProjectClip(t *testing.T) {
	got := ProjectClip(f32.Vec4{110, 220, 210, 320}, f32.Vec2{10, 20}, f32.Vec2{2, 2})
	want := f32.Vec4{200, 400, 400, 600}
	if got != want {
		t.Errorf("ProjectClip() = %v, want %v", got, want)
	}
}

func TestDegenerate(t *testing.T) {
	tests := []struct {
		name string
		clip f32.Vec4
		want bool
	}{
		{"inside", f32.Vec4{0, 0, 100, 100}, false},
		{"right of framebuffer", f32.Vec4{810, 0, 900, 50}, true},
		{"starts at right edge", f32.Vec4{800, 0, 900, 50}, true},
		{"below framebuffer", f32.Vec4{0, 600, 10, 700}, true},
		{"left of framebuffer", f32.Vec4{-50, 0, -1, 10}, true},
		{"above framebuffer", f32.Vec4{0, -50, 10, -0.5}, true},
		{"touching left edge", f32.Vec4{-50, 0, 0, 10}, false},
		{"partially outside", f32.Vec4{700, 500, 900, 700}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Degenerate(tt.clip, 800, 600); got != tt.want {
				t.Errorf("Degenerate(%v) = %v, want %v", tt.clip, got, tt.want)
			}
		})
	}
}

func TestScissorRectFlipsY(t *testing.T) {
	got := ScissorRect(f32.Vec4{10, 20, 110, 70}, 600)
	want := graph.Rect{X: 10, Y: 530, W: 100, H: 50}
	if got != want {
		t.Errorf("ScissorRect() = %+v, want %+v", got, want)
	}
}

func TestProjectionMapsDisplayCorners(t *testing.T) {
	m := Projection(f32.Vec2{0, 0}, f32.Vec2{800, 600}, 800, 600)
	const eps = 1e-5
	near := func(a, b float32) bool { return math.Abs(float64(a-b)) < eps }

	tl := Transform(m, f32.Vec2{0, 0})
	br := Transform(m, f32.Vec2{800, 600})
	// Half a pixel of the 800x600 framebuffer in display units, in clip space.
	bx, by := float32(2.0/800*0.5/800), float32(-2.0/600*0.5/600)
	if !near(tl[0], -1+bx) || !near(tl[1], 1+by) {
		t.Errorf("top-left maps to %v, want (%v, %v)", tl, -1+bx, 1+by)
	}
	if !near(br[0], 1+bx) || !near(br[1], -1+by) {
		t.Errorf("bottom-right maps to %v, want (%v, %v)", br, 1+bx, -1+by)
	}
}

func TestProjectionHonoursDisplayPos(t *testing.T) {
	m := Projection(f32.Vec2{100, 50}, f32.Vec2{200, 100}, 200, 100)
	c := Transform(m, f32.Vec2{200, 100})
	if math.Abs(float64(c[0])) > 1e-2 || math.Abs(float64(c[1])) > 1e-2 {
		t.Errorf("display center maps to %v, want ~(0, 0)", c)
	}
}

type countingSink struct {
	vtx, idx   int
	vtxOffsets []int
	idxOffsets []int
}

func (s *countingSink) PutVertices(offset int, v []drawdata.DrawVert) {
	s.vtx += len(v)
	s.vtxOffsets = append(s.vtxOffsets, offset)
}

func (s *countingSink) PutIndices(offset int, idx []drawdata.DrawIdx) {
	s.idx += len(idx)
	s.idxOffsets = append(s.idxOffsets, offset)
}

func TestPackCountsMatchTotals(t *testing.T) {
	dd := drawdata.New(f32.Vec2{800, 600},
		rawList(4, 6, drawdata.DrawCmd{ElemCount: 6}),
		rawList(7, 9, drawdata.DrawCmd{ElemCount: 3}, drawdata.DrawCmd{IdxOffset: 3, ElemCount: 6}),
		rawList(0, 0),
	)
	var p Packer
	var sink countingSink
	f := p.Pack(dd, &sink)

	if f.VertexCount != dd.TotalVtxCount || sink.vtx != dd.TotalVtxCount {
		t.Errorf("vertices packed %d / sunk %d, want %d", f.VertexCount, sink.vtx, dd.TotalVtxCount)
	}
	if f.IndexCount != dd.TotalIdxCount || sink.idx != dd.TotalIdxCount {
		t.Errorf("indices packed %d / sunk %d, want %d", f.IndexCount, sink.idx, dd.TotalIdxCount)
	}
	wantVtxOff := []int{0, 4, 11}
	wantIdxOff := []int{0, 6, 15}
	for i := range wantVtxOff {
		if sink.vtxOffsets[i] != wantVtxOff[i] || sink.idxOffsets[i] != wantIdxOff[i] {
			t.Errorf("list %d offsets = (%d, %d), want (%d, %d)", i,
				sink.vtxOffsets[i], sink.idxOffsets[i], wantVtxOff[i], wantIdxOff[i])
		}
	}
}

func TestPackSubDrawCountExcludesCallbacks(t *testing.T) {
	l1 := rawList(4, 12,
		drawdata.DrawCmd{ElemCount: 6},
		drawdata.DrawCmd{UserCallback: noop},
		drawdata.DrawCmd{IdxOffset: 6, ElemCount: 6},
	)
	l2 := rawList(3, 3, drawdata.DrawCmd{ElemCount: 3})
	l2.CmdBuffer = append(l2.CmdBuffer, drawdata.DrawCmd{})
	l2.CmdBuffer[1].SetResetRenderState()

	dd := drawdata.New(f32.Vec2{800, 600}, l1, l2)
	var p Packer
	f := p.Pack(dd, nil)

	if len(f.SubDraws) != 3 {
		t.Fatalf("len(SubDraws) = %d, want 3", len(f.SubDraws))
	}
	if len(f.Items) != 5 {
		t.Fatalf("len(Items) = %d, want 5", len(f.Items))
	}
	wantKinds := []ItemKind{ItemDraw, ItemCallback, ItemDraw, ItemDraw, ItemCallback}
	wantSlots := []int{0, -1, 1, 2, -1}
	for i := range wantKinds {
		if f.Items[i].Kind != wantKinds[i] || f.Items[i].Slot != wantSlots[i] {
			t.Errorf("item %d = (%v, %d), want (%v, %d)", i,
				f.Items[i].Kind, f.Items[i].Slot, wantKinds[i], wantSlots[i])
		}
	}
	if f.Items[3].Cmd != &l2.CmdBuffer[0] {
		t.Error("item 3 does not reference the first command of list 2")
	}
	if f.SubDraws[2].IndexStart != 12 || f.SubDraws[2].BaseVertex != 4 {
		t.Errorf("SubDraws[2] = %+v, want IndexStart 12 BaseVertex 4", f.SubDraws[2])
	}
}

func TestIndirectRecordConstruction(t *testing.T) {
	// 100 vertices and 40 indices precede the command.
	l1 := rawList(100, 40)
	l2 := rawList(30, 30, drawdata.DrawCmd{VtxOffset: 5, IdxOffset: 6, ElemCount: 18})
	dd := drawdata.New(f32.Vec2{800, 600}, l1, l2)

	var p Packer
	f := p.Pack(dd, nil)
	if len(f.SubDraws) != 1 {
		t.Fatalf("len(SubDraws) = %d, want 1", len(f.SubDraws))
	}
	d := f.SubDraws[0]
	if got, want := d.IndirectRecord(), [5]uint32{18, 1, 46, 100, 0}; got != want {
		t.Errorf("IndirectRecord() = %v, want %v", got, want)
	}
	if d.BaseVertex != 105 {
		t.Errorf("BaseVertex = %d, want 105", d.BaseVertex)
	}
}

func TestReleaseDropsBorrowedPointers(t *testing.T) {
	dd := drawdata.New(f32.Vec2{10, 10}, rawList(3, 3, drawdata.DrawCmd{ElemCount: 3}))
	var p Packer
	f := p.Pack(dd, nil)
	items := f.Items[:1]

	p.Release()
	if len(f.Items) != 0 || len(f.SubDraws) != 0 {
		t.Errorf("frame not emptied: %d items, %d sub-draws", len(f.Items), len(f.SubDraws))
	}
	if items[0].List != nil || items[0].Cmd != nil {
		t.Error("Release kept references into the draw data")
	}
}

func TestStagingEncodesAtOffsets(t *testing.T) {
	l1 := rawList(2, 3, drawdata.DrawCmd{ElemCount: 3})
	l2 := rawList(3, 3, drawdata.DrawCmd{ElemCount: 3})
	l2.VtxBuffer[0].Col = 0xDEADBEEF
	l2.IdxBuffer[2] = 0x0102
	dd := drawdata.New(f32.Vec2{10, 10}, l1, l2)

	var s Staging
	s.Reset(dd.TotalVtxCount, dd.TotalIdxCount)
	var p Packer
	p.Pack(dd, &s)

	if len(s.Vertices) != 5*drawdata.VertexStride {
		t.Fatalf("len(Vertices) = %d", len(s.Vertices))
	}
	if v := drawdata.DecodeVertex(s.Vertices[2*drawdata.VertexStride:]); v.Col != 0xDEADBEEF {
		t.Errorf("vertex 2 color = %#x, want 0xDEADBEEF", v.Col)
	}
	if s.Indices[10] != 0x02 || s.Indices[11] != 0x01 {
		t.Errorf("index 5 bytes = %#x %#x", s.Indices[10], s.Indices[11])
	}
	b := s.IndexBytes()
	if len(b)%4 != 0 || len(b) != 12 {
		t.Errorf("IndexBytes() len = %d, want 12", len(b))
	}
	if b[10] != 0x02 {
		t.Error("padding clobbered index data")
	}
}
