package drawdata

import (
	"errors"
	"fmt"

	"golang.org/x/image/math/f32"
)

// ErrTotalsMismatch is returned by Validate when the aggregate counts of a
// frame disagree with the sizes of its pools.
var ErrTotalsMismatch = errors.New("drawdata: totals do not match list pools")

// ErrRangeOutOfBounds is returned by Validate when a command references
// indices outside of its list's index pool.
var ErrRangeOutOfBounds = errors.New("drawdata: command index range out of bounds")

// TextureID is the opaque identifier a GUI library attaches to draw commands.
// Zero is a valid identifier; meaning is assigned by the texture registry.
type TextureID uint64

// DrawIdx is a vertex index. GUI libraries emit 16-bit indices and rely on
// DrawCmd.VtxOffset to address lists larger than 64K vertices.
type DrawIdx = uint16

// DrawVert is one GUI vertex: position and texture coordinate in display
// space, and a packed 0xAABBGGRR color.
type DrawVert struct {
	Pos f32.Vec2
	UV  f32.Vec2
	Col uint32
}

// Callback is a user callback attached to a draw command in place of
// geometry. It runs during submission, between the draws that surround it.
type Callback func(list *DrawList, cmd *DrawCmd)

// ResetRenderState is a special callback value. A command marked with
// SetResetRenderState is not invoked; instead the renderer forgets its cached
// bind state, so that the next draw rebinds everything. Invoking it directly
// is a no-op.
var ResetRenderState Callback = func(*DrawList, *DrawCmd) {}

// DrawCmd is one draw command: a contiguous index range sharing a texture and
// a clip rectangle, or a user callback.
type DrawCmd struct {
	// ClipRect is (min-x, min-y, max-x, max-y) in display space.
	ClipRect f32.Vec4

	// TextureID selects the texture bound for this command.
	TextureID TextureID

	// VtxOffset is added to every index of the command.
	VtxOffset uint32

	// IdxOffset is the first index of the command within its list.
	IdxOffset uint32

	// ElemCount is the number of indices drawn. Always a multiple of 3.
	ElemCount uint32

	// UserCallback replaces the geometry when non-nil.
	UserCallback Callback

	// UserCallbackData is passed through untouched for the callback owner.
	UserCallbackData any

	// reset is set by SetResetRenderState.
	reset bool
}

// HasCallback reports whether the command carries a callback (including the
// ResetRenderState marker) instead of drawable geometry.
func (c *DrawCmd) HasCallback() bool {
	return c.UserCallback != nil || c.reset
}

// IsResetRenderState reports whether the command carries the
// ResetRenderState marker.
func (c *DrawCmd) IsResetRenderState() bool {
	return c.reset
}

// SetResetRenderState turns the command into a ResetRenderState marker.
// Func values are not comparable in Go, so the marker is tracked with a flag
// rather than by comparing UserCallback against ResetRenderState.
func (c *DrawCmd) SetResetRenderState() {
	c.UserCallback = ResetRenderState
	c.reset = true
}

// DrawList is one batch of GUI geometry, typically one per window or layer.
type DrawList struct {
	// Name is a debug label.
	Name string

	CmdBuffer []DrawCmd
	IdxBuffer []DrawIdx
	VtxBuffer []DrawVert
}

// DrawData is everything the GUI library wants drawn this frame.
type DrawData struct {
	// Lists are drawn in order; later lists draw over earlier ones.
	Lists []*DrawList

	// TotalVtxCount is the sum of len(VtxBuffer) over Lists.
	TotalVtxCount int

	// TotalIdxCount is the sum of len(IdxBuffer) over Lists.
	TotalIdxCount int

	// DisplayPos is the top-left of the display rectangle, in display space.
	DisplayPos f32.Vec2

	// DisplaySize is the size of the display rectangle.
	DisplaySize f32.Vec2

	// FramebufferScale converts display units to framebuffer pixels.
	FramebufferScale f32.Vec2
}

// New returns frame draw data for the given lists with a display rectangle
// anchored at the origin and a framebuffer scale of 1. Totals are computed
// from the lists.
func New(displaySize f32.Vec2, lists ...*DrawList) *DrawData {
	dd := &DrawData{
		Lists:            lists,
		DisplaySize:      displaySize,
		FramebufferScale: f32.Vec2{1, 1},
	}
	dd.UpdateTotals()
	return dd
}

// UpdateTotals recomputes TotalVtxCount and TotalIdxCount from the lists.
func (dd *DrawData) UpdateTotals() {
	dd.TotalVtxCount, dd.TotalIdxCount = 0, 0
	for _, l := range dd.Lists {
		dd.TotalVtxCount += len(l.VtxBuffer)
		dd.TotalIdxCount += len(l.IdxBuffer)
	}
}

// FramebufferSize returns DisplaySize * FramebufferScale.
func (dd *DrawData) FramebufferSize() f32.Vec2 {
	return f32.Vec2{
		dd.DisplaySize[0] * dd.FramebufferScale[0],
		dd.DisplaySize[1] * dd.FramebufferScale[1],
	}
}

// CmdCount returns the number of commands across all lists, callbacks
// included.
func (dd *DrawData) CmdCount() int {
	n := 0
	for _, l := range dd.Lists {
		n += len(l.CmdBuffer)
	}
	return n
}

// Validate checks that the aggregate counts match the pools and that every
// geometry command stays within its list's index pool. It is a diagnostic
// aid; renderers trust the GUI library and do not call it per frame.
func (dd *DrawData) Validate() error {
	vtx, idx := 0, 0
	for li, l := range dd.Lists {
		vtx += len(l.VtxBuffer)
		idx += len(l.IdxBuffer)
		for ci := range l.CmdBuffer {
			c := &l.CmdBuffer[ci]
			if c.HasCallback() {
				continue
			}
			end := uint64(c.IdxOffset) + uint64(c.ElemCount)
			if end > uint64(len(l.IdxBuffer)) {
				return fmt.Errorf("%w: list %d cmd %d ends at %d, pool has %d",
					ErrRangeOutOfBounds, li, ci, end, len(l.IdxBuffer))
			}
		}
	}
	if vtx != dd.TotalVtxCount || idx != dd.TotalIdxCount {
		return fmt.Errorf("%w: vertices %d/%d, indices %d/%d",
			ErrTotalsMismatch, dd.TotalVtxCount, vtx, dd.TotalIdxCount, idx)
	}
	return nil
}
