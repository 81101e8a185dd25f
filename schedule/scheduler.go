package schedule

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/guidraw/backend"
	"github.com/gogpu/guidraw/drawdata"
	"github.com/gogpu/guidraw/graph"
	"github.com/gogpu/guidraw/internal/compile"
	"github.com/gogpu/guidraw/texture"
)

// PassName is the name of the pass recorded for each frame.
const PassName = "gui"

// ErrNotLinked is returned when a frame is scheduled before a texture
// registry has been linked.
var ErrNotLinked = errors.New("schedule: no texture registry linked")

// Stats summarises one scheduled frame.
type Stats struct {
	// FrameSkipped is set when the framebuffer was empty or the frame had
	// no vertices. Nothing is written or recorded for such frames.
	FrameSkipped bool

	// Draws is the number of draw ops recorded.
	Draws int
	// Skipped is the number of commands clipped away entirely.
	Skipped int
	// Rebinds is the number of texture binds recorded.
	Rebinds int
	// Callbacks is the number of user callbacks forwarded, excluding
	// render state resets.
	Callbacks int
	// Resets is the number of render state resets.
	Resets int
}

// Scheduler records GUI frames into render passes.
//
// Scheduler is not safe for concurrent use.
type Scheduler struct {
	backend  backend.Backend
	textures *texture.Registry

	packer  compile.Packer
	staging compile.Staging
}

// New creates a scheduler submitting through b. A texture registry must be
// linked before the first frame.
func New(b backend.Backend) *Scheduler {
	return &Scheduler{backend: b}
}

// Link attaches the texture registry used to resolve command textures.
func (s *Scheduler) Link(r *texture.Registry) {
	s.textures = r
}

// Backend returns the backend the scheduler submits through.
func (s *Scheduler) Backend() backend.Backend { return s.backend }

// bindState tracks the state already recorded in the pass.
type bindState struct {
	texture    drawdata.TextureID
	hasTexture bool
	baseVertex int32
	hasBase    bool
}

// Schedule packs dd, uploads it through the backend and records one pass
// into gb with the given attachments. The attachment size is set to the
// framebuffer size.
//
// Draw data whose totals disagree with its pools, or whose commands reach
// past their index pool, fails with a wrapped drawdata error before
// anything is written. On error the pass is discarded from gb. Pointers into dd stay referenced
// until Release.
func (s *Scheduler) Schedule(dd *drawdata.DrawData, gb *graph.Builder, att graph.Attachments) (Stats, error) {
	fb := dd.FramebufferSize()
	if fb[0] <= 0 || fb[1] <= 0 || dd.TotalVtxCount == 0 {
		return Stats{FrameSkipped: true}, nil
	}
	if s.textures == nil {
		return Stats{}, ErrNotLinked
	}
	// Staging is sized from the totals; stale totals would overrun it.
	if err := dd.Validate(); err != nil {
		return Stats{}, fmt.Errorf("schedule: %w", err)
	}

	s.staging.Reset(dd.TotalVtxCount, dd.TotalIdxCount)
	frame := s.packer.Pack(dd, &s.staging)
	if err := s.backend.Prepare(frame, &s.staging); err != nil {
		return Stats{}, fmt.Errorf("prepare %s backend: %w", s.backend.Name(), err)
	}

	att.Width, att.Height = pixels(fb[0]), pixels(fb[1])
	pass := gb.AddPass(PassName, att)
	pass.SetViewport(graph.Viewport{X: 0, Y: 0, W: fb[0], H: fb[1]})
	pass.SetProjection(compile.Projection(dd.DisplayPos, dd.DisplaySize, fb[0], fb[1]))
	geometry := s.backend.Geometry()
	pass.BindGeometry(geometry)

	var (
		stats Stats
		state bindState
	)
	for i := range frame.Items {
		it := &frame.Items[i]
		if it.Kind == compile.ItemCallback {
			if it.Cmd.IsResetRenderState() {
				state = bindState{}
				pass.BindGeometry(geometry)
				stats.Resets++
				continue
			}
			pass.Callback(it.Cmd.UserCallback, it.List, it.Cmd)
			stats.Callbacks++
			continue
		}

		clip := compile.ProjectClip(it.Cmd.ClipRect, dd.DisplayPos, dd.FramebufferScale)
		if compile.Degenerate(clip, fb[0], fb[1]) {
			stats.Skipped++
			continue
		}
		pass.Scissor(compile.ScissorRect(clip, fb[1]))

		if id := it.Cmd.TextureID; !state.hasTexture || id != state.texture {
			h, err := s.textures.Resolve(id)
			if err != nil {
				slogger().Error("schedule: unresolved texture",
					"texture", id, "list", it.List.Name, "err", err)
				gb.Discard(pass)
				return stats, fmt.Errorf("schedule %s: %w", it.List.Name, err)
			}
			pass.BindTexture(id, h)
			state.texture, state.hasTexture = id, true
			stats.Rebinds++
		}

		sd := frame.SubDraws[it.Slot]
		if s.backend.UsesBaseVertex() && (!state.hasBase || sd.BaseVertex != state.baseVertex) {
			pass.SetBaseVertex(sd.BaseVertex)
			state.baseVertex, state.hasBase = sd.BaseVertex, true
		}
		s.backend.Draw(pass, it.Slot, sd)
		stats.Draws++
	}
	pass.DisableScissor()
	return stats, nil
}

// pixels rounds a positive framebuffer extent up to whole pixels.
func pixels(v float32) uint32 {
	return uint32(math.Ceil(float64(v)))
}

// Release drops every reference into the last scheduled draw data.
func (s *Scheduler) Release() {
	s.packer.Release()
}
