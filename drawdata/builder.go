package drawdata

import "golang.org/x/image/math/f32"

// maxListIndex is the largest vertex index a command can address without a
// new VtxOffset.
const maxListIndex = 1<<16 - 1

// ListBuilder assembles a DrawList. Consecutive primitives sharing a clip
// rectangle and texture are merged into one command; a new command is
// opened whenever either changes, a callback is added, or the 16-bit index
// range of the current command is exhausted.
//
// The zero value is ready to use and draws with an empty clip rectangle
// until PushClipRect is called.
type ListBuilder struct {
	list    DrawList
	clip    f32.Vec4
	texture TextureID
	open    bool // the last command accepts more geometry

	// clipStack holds the clip rectangles to restore on PopClipRect.
	clipStack []f32.Vec4
}

// Name sets the debug label of the list.
func (b *ListBuilder) Name(name string) *ListBuilder {
	b.list.Name = name
	return b
}

// PushClipRect sets the clip rectangle for subsequent primitives. The
// previous rectangle is restored by PopClipRect.
func (b *ListBuilder) PushClipRect(r f32.Vec4) *ListBuilder {
	b.clipStack = append(b.clipStack, b.clip)
	b.setClip(r)
	return b
}

// PushClipRectIntersect pushes the intersection of r with the current clip
// rectangle. An empty intersection yields a rectangle with max < min,
// which clips everything.
func (b *ListBuilder) PushClipRectIntersect(r f32.Vec4) *ListBuilder {
	c := b.clip
	return b.PushClipRect(f32.Vec4{
		max(c[0], r[0]), max(c[1], r[1]),
		min(c[2], r[2]), min(c[3], r[3]),
	})
}

// PopClipRect restores the clip rectangle that was current before the
// last push. Popping an empty stack is a no-op.
func (b *ListBuilder) PopClipRect() *ListBuilder {
	n := len(b.clipStack)
	if n == 0 {
		return b
	}
	b.setClip(b.clipStack[n-1])
	b.clipStack = b.clipStack[:n-1]
	return b
}

func (b *ListBuilder) setClip(r f32.Vec4) {
	if r != b.clip {
		b.open = false
	}
	b.clip = r
}

// SetTexture sets the texture for subsequent primitives.
func (b *ListBuilder) SetTexture(id TextureID) *ListBuilder {
	if id != b.texture {
		b.open = false
	}
	b.texture = id
	return b
}

// current returns the command that receives the next nVtx vertices,
// opening a new one when needed.
func (b *ListBuilder) current(nVtx int) *DrawCmd {
	if b.open {
		c := &b.list.CmdBuffer[len(b.list.CmdBuffer)-1]
		if len(b.list.VtxBuffer)-int(c.VtxOffset)+nVtx <= maxListIndex+1 {
			return c
		}
	}
	b.list.CmdBuffer = append(b.list.CmdBuffer, DrawCmd{
		ClipRect:  b.clip,
		TextureID: b.texture,
		VtxOffset: uint32(len(b.list.VtxBuffer)), //nolint:gosec // list sizes fit uint32
		IdxOffset: uint32(len(b.list.IdxBuffer)), //nolint:gosec // list sizes fit uint32
	})
	b.open = true
	return &b.list.CmdBuffer[len(b.list.CmdBuffer)-1]
}

// AddTriangle adds one textured triangle with a flat color.
func (b *ListBuilder) AddTriangle(p [3]f32.Vec2, uv [3]f32.Vec2, col uint32) *ListBuilder {
	c := b.current(3)
	base := DrawIdx(len(b.list.VtxBuffer) - int(c.VtxOffset)) //nolint:gosec // bounded by maxListIndex
	for i := range p {
		b.list.VtxBuffer = append(b.list.VtxBuffer, DrawVert{Pos: p[i], UV: uv[i], Col: col})
	}
	b.list.IdxBuffer = append(b.list.IdxBuffer, base, base+1, base+2)
	c.ElemCount += 3
	return b
}

// AddRectFilled adds an axis-aligned rectangle from min to max with a flat
// color, sampling the full texture.
func (b *ListBuilder) AddRectFilled(min, max f32.Vec2, col uint32) *ListBuilder {
	c := b.current(4)
	base := DrawIdx(len(b.list.VtxBuffer) - int(c.VtxOffset)) //nolint:gosec // bounded by maxListIndex
	b.list.VtxBuffer = append(b.list.VtxBuffer,
		DrawVert{Pos: f32.Vec2{min[0], min[1]}, UV: f32.Vec2{0, 0}, Col: col},
		DrawVert{Pos: f32.Vec2{max[0], min[1]}, UV: f32.Vec2{1, 0}, Col: col},
		DrawVert{Pos: f32.Vec2{max[0], max[1]}, UV: f32.Vec2{1, 1}, Col: col},
		DrawVert{Pos: f32.Vec2{min[0], max[1]}, UV: f32.Vec2{0, 1}, Col: col},
	)
	b.list.IdxBuffer = append(b.list.IdxBuffer, base, base+1, base+2, base, base+2, base+3)
	c.ElemCount += 6
	return b
}

// AddCallback adds a user callback command. The next primitive opens a new
// command.
func (b *ListBuilder) AddCallback(fn Callback, data any) *ListBuilder {
	b.list.CmdBuffer = append(b.list.CmdBuffer, DrawCmd{
		ClipRect:         b.clip,
		TextureID:        b.texture,
		IdxOffset:        uint32(len(b.list.IdxBuffer)), //nolint:gosec // list sizes fit uint32
		UserCallback:     fn,
		UserCallbackData: data,
	})
	b.open = false
	return b
}

// AddResetRenderState adds a ResetRenderState marker command.
func (b *ListBuilder) AddResetRenderState() *ListBuilder {
	b.AddCallback(nil, nil)
	b.list.CmdBuffer[len(b.list.CmdBuffer)-1].SetResetRenderState()
	return b
}

// List returns the assembled list. The builder must not be used afterwards.
func (b *ListBuilder) List() *DrawList {
	l := b.list
	b.list = DrawList{}
	b.open = false
	b.clipStack = b.clipStack[:0]
	return &l
}
