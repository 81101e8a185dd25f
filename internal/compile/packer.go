package compile

import (
	"github.com/gogpu/guidraw/drawdata"
)

// IndirectRecordInts is the number of 32-bit integers in one indirect
// argument record.
const IndirectRecordInts = 5

// IndirectRecordSize is the byte size of one indirect argument record.
const IndirectRecordSize = IndirectRecordInts * 4

// SubDraw describes one drawable command in packed-buffer coordinates.
type SubDraw struct {
	// IndexStart is the first index in the packed index buffer.
	IndexStart uint32
	// IndexCount is the number of indices drawn.
	IndexCount uint32
	// BaseVertex is added to every index: the cumulative vertex offset of
	// the list plus the command's VtxOffset.
	BaseVertex int32
	// ListVertexOffset is the cumulative vertex offset of the list alone.
	ListVertexOffset uint32
}

// IndirectRecord returns the indexed indirect arguments for d:
// index count, instance count, first index, base vertex, first instance.
// The base vertex slot carries the list offset; the command's VtxOffset is
// applied separately through the per-draw base vertex.
func (d SubDraw) IndirectRecord() [IndirectRecordInts]uint32 {
	return [IndirectRecordInts]uint32{d.IndexCount, 1, d.IndexStart, d.ListVertexOffset, 0}
}

// ItemKind distinguishes drawable commands from callbacks.
type ItemKind uint8

const (
	// ItemDraw is a command with geometry.
	ItemDraw ItemKind = iota
	// ItemCallback is a command carrying a user callback.
	ItemCallback
)

// Item is one command of the frame in submission order.
type Item struct {
	Kind ItemKind

	// List and Cmd are borrowed from the draw data and are valid until
	// Packer.Release.
	List *drawdata.DrawList
	Cmd  *drawdata.DrawCmd

	// Slot indexes Frame.SubDraws for ItemDraw and is -1 for callbacks.
	Slot int
}

// Frame is the result of packing one frame.
type Frame struct {
	Items    []Item
	SubDraws []SubDraw

	// VertexCount and IndexCount are the packed totals.
	VertexCount int
	IndexCount  int
}

// Sink receives the pools of each list at their cumulative offsets,
// expressed in elements.
type Sink interface {
	PutVertices(offset int, v []drawdata.DrawVert)
	PutIndices(offset int, idx []drawdata.DrawIdx)
}

// Packer concatenates the pools of every list and derives one SubDraw per
// drawable command. Its internal slices are reused from frame to frame.
//
// Packer is not safe for concurrent use.
type Packer struct {
	frame Frame
}

// Pack walks dd in order, copying every pool into sink and recording every
// command. Commands are never reordered or merged. The returned frame is
// owned by the packer and valid until Release.
func (p *Packer) Pack(dd *drawdata.DrawData, sink Sink) *Frame {
	p.Release()
	f := &p.frame

	vtx, idx := 0, 0
	for _, l := range dd.Lists {
		if sink != nil {
			sink.PutVertices(vtx, l.VtxBuffer)
			sink.PutIndices(idx, l.IdxBuffer)
		}
		for ci := range l.CmdBuffer {
			c := &l.CmdBuffer[ci]
			if c.HasCallback() {
				f.Items = append(f.Items, Item{Kind: ItemCallback, List: l, Cmd: c, Slot: -1})
				continue
			}
			f.Items = append(f.Items, Item{Kind: ItemDraw, List: l, Cmd: c, Slot: len(f.SubDraws)})
			f.SubDraws = append(f.SubDraws, SubDraw{
				IndexStart:       uint32(idx) + c.IdxOffset, //nolint:gosec // packed sizes fit uint32
				IndexCount:       c.ElemCount,
				BaseVertex:       int32(vtx) + int32(c.VtxOffset), //nolint:gosec // packed sizes fit int32
				ListVertexOffset: uint32(vtx),                     //nolint:gosec // packed sizes fit uint32
			})
		}
		vtx += len(l.VtxBuffer)
		idx += len(l.IdxBuffer)
	}
	f.VertexCount = vtx
	f.IndexCount = idx
	return f
}

// Release drops every reference into the last packed draw data. It must be
// called once the frame has been submitted; Pack calls it implicitly.
func (p *Packer) Release() {
	clear(p.frame.Items)
	p.frame.Items = p.frame.Items[:0]
	p.frame.SubDraws = p.frame.SubDraws[:0]
	p.frame.VertexCount = 0
	p.frame.IndexCount = 0
}

// Staging encodes packed pools into reusable byte slices ready for upload.
// It implements Sink.
type Staging struct {
	Vertices []byte
	Indices  []byte
}

// Reset sizes the staging slices for the given totals, reusing their
// backing arrays when large enough.
func (s *Staging) Reset(vertexCount, indexCount int) {
	s.Vertices = grow(s.Vertices, vertexCount*drawdata.VertexStride)
	s.Indices = grow(s.Indices, indexCount*drawdata.IndexStride)
}

// PutVertices implements Sink.
func (s *Staging) PutVertices(offset int, v []drawdata.DrawVert) {
	drawdata.PutVertices(s.Vertices[offset*drawdata.VertexStride:], v)
}

// PutIndices implements Sink.
func (s *Staging) PutIndices(offset int, idx []drawdata.DrawIdx) {
	drawdata.PutIndices(s.Indices[offset*drawdata.IndexStride:], idx)
}

// IndexBytes returns the index staging bytes padded to a 4-byte multiple,
// the copy alignment required by buffer writes.
func (s *Staging) IndexBytes() []byte {
	if len(s.Indices)%4 == 0 {
		return s.Indices
	}
	s.Indices = append(s.Indices, 0, 0)
	return s.Indices
}

func grow(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}
