package drawdata

import (
	"encoding/binary"
	"math"
)

// VertexStride is the byte size of an encoded DrawVert.
// Layout per vertex:
//
//	position (vec2<f32>)  = 8 bytes
//	uv       (vec2<f32>)  = 8 bytes
//	color    (unorm8x4)   = 4 bytes
//
// Total = 20 bytes per vertex.
const VertexStride = 20

// IndexStride is the byte size of an encoded DrawIdx.
const IndexStride = 2

// PutVertices encodes verts into dst, which must hold at least
// len(verts)*VertexStride bytes. It returns the number of bytes written.
func PutVertices(dst []byte, verts []DrawVert) int {
	off := 0
	for i := range verts {
		v := &verts[i]
		binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v.Pos[0]))
		binary.LittleEndian.PutUint32(dst[off+4:], math.Float32bits(v.Pos[1]))
		binary.LittleEndian.PutUint32(dst[off+8:], math.Float32bits(v.UV[0]))
		binary.LittleEndian.PutUint32(dst[off+12:], math.Float32bits(v.UV[1]))
		binary.LittleEndian.PutUint32(dst[off+16:], v.Col)
		off += VertexStride
	}
	return off
}

// PutIndices encodes idx into dst, which must hold at least
// len(idx)*IndexStride bytes. It returns the number of bytes written.
func PutIndices(dst []byte, idx []DrawIdx) int {
	off := 0
	for _, i := range idx {
		binary.LittleEndian.PutUint16(dst[off:], i)
		off += IndexStride
	}
	return off
}

// DecodeVertex reads one vertex written by PutVertices.
func DecodeVertex(src []byte) DrawVert {
	return DrawVert{
		Pos: [2]float32{
			math.Float32frombits(binary.LittleEndian.Uint32(src[0:])),
			math.Float32frombits(binary.LittleEndian.Uint32(src[4:])),
		},
		UV: [2]float32{
			math.Float32frombits(binary.LittleEndian.Uint32(src[8:])),
			math.Float32frombits(binary.LittleEndian.Uint32(src[12:])),
		},
		Col: binary.LittleEndian.Uint32(src[16:]),
	}
}
