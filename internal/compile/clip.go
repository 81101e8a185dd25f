// Package compile turns frame draw data into packed geometry and an ordered
// list of sub-draws. It is shared by every backend.
package compile

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/guidraw/graph"
)

// ProjectClip maps a display-space clip rectangle into framebuffer pixels:
// (clip - displayPos) * scale, applied to both corners.
func ProjectClip(clip f32.Vec4, displayPos, scale f32.Vec2) f32.Vec4 {
	return f32.Vec4{
		(clip[0] - displayPos[0]) * scale[0],
		(clip[1] - displayPos[1]) * scale[1],
		(clip[2] - displayPos[0]) * scale[0],
		(clip[3] - displayPos[1]) * scale[1],
	}
}

// Degenerate reports whether a projected clip rectangle lies entirely
// outside a framebuffer of fbW x fbH pixels.
func Degenerate(clip f32.Vec4, fbW, fbH float32) bool {
	return clip[0] >= fbW || clip[1] >= fbH || clip[2] < 0 || clip[3] < 0
}

// ScissorRect converts a projected clip rectangle to a scissor rectangle
// with a bottom-left origin.
func ScissorRect(clip f32.Vec4, fbH float32) graph.Rect {
	return graph.Rect{
		X: clip[0],
		Y: fbH - clip[3],
		W: clip[2] - clip[0],
		H: clip[3] - clip[1],
	}
}

// Projection returns the orthographic projection that maps the display
// rectangle onto clip space, y pointing down, combined with a half-pixel
// translation that centers texel sampling for text. The matrix is row-major.
func Projection(displayPos, displaySize f32.Vec2, fbW, fbH float32) f32.Mat4 {
	l, r := displayPos[0], displayPos[0]+displaySize[0]
	t, b := displayPos[1], displayPos[1]+displaySize[1]
	ortho := f32.Mat4{
		2 / (r - l), 0, 0, (r + l) / (l - r),
		0, 2 / (t - b), 0, (t + b) / (b - t),
		0, 0, 0.5, 0.5,
		0, 0, 0, 1,
	}
	bias := f32.Mat4{
		1, 0, 0, 0.5 / fbW,
		0, 1, 0, 0.5 / fbH,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	return mul(ortho, bias)
}

// mul returns a*b for row-major matrices.
func mul(a, b f32.Mat4) f32.Mat4 {
	var m f32.Mat4
	for row := range 4 {
		for col := range 4 {
			var s float32
			for k := range 4 {
				s += a[row*4+k] * b[k*4+col]
			}
			m[row*4+col] = s
		}
	}
	return m
}

// Transform applies m to the point (x, y, 0, 1) and returns clip-space x, y.
func Transform(m f32.Mat4, p f32.Vec2) f32.Vec2 {
	return f32.Vec2{
		m[0]*p[0] + m[1]*p[1] + m[3],
		m[4]*p[0] + m[5]*p[1] + m[7],
	}
}
