package schedule

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/guidraw/backend"
	"github.com/gogpu/guidraw/drawdata"
	"github.com/gogpu/guidraw/graph"
	"github.com/gogpu/guidraw/texture"
)

type fakeBuffer struct{}

func (fakeBuffer) Destroy()               {}
func (fakeBuffer) NativeHandle() uintptr { return 0 }

type fakeView struct{ id int }

func (fakeView) Destroy()               {}
func (fakeView) NativeHandle() uintptr { return 0 }

// countingDevice counts allocations and uploads.
type countingDevice struct {
	buffers int
	writes  int
}

func (d *countingDevice) CreateBuffer(*hal.BufferDescriptor) (hal.Buffer, error) {
	d.buffers++
	return fakeBuffer{}, nil
}

func (d *countingDevice) DestroyBuffer(hal.Buffer) {}

func (d *countingDevice) WriteBuffer(hal.Buffer, uint64, []byte) { d.writes++ }

const (
	texA drawdata.TextureID = 1
	texB drawdata.TextureID = 2
)

func newScheduler(t *testing.T, name string) (*Scheduler, *countingDevice) {
	t.Helper()
	dev := &countingDevice{}
	b, err := backend.New(name, dev, dev)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(b.Release)
	reg := texture.NewRegistry()
	for _, id := range []drawdata.TextureID{texA, texB} {
		if err := reg.Register(id, texture.Handle{View: &fakeView{int(id)}, Width: 1, Height: 1}); err != nil {
			t.Fatal(err)
		}
	}
	s := New(b)
	s.Link(reg)
	t.Cleanup(s.Release)
	return s, dev
}

// list builds one single-quad command per clip rectangle. Clip
// rectangles must differ between neighbours so that commands do not merge.
func list(name string, clips []f32.Vec4, tex []drawdata.TextureID) *drawdata.DrawList {
	var b drawdata.ListBuilder
	b.Name(name)
	for i, c := range clips {
		b.PushClipRect(c).SetTexture(tex[i])
		b.AddRectFilled(f32.Vec2{0, 0}, f32.Vec2{1, 1}, 0xFFFFFFFF)
	}
	return b.List()
}

// visible is a clip rectangle inside every test framebuffer.
var visible = f32.Vec4{0, 0, 100, 100}

func clipN(i int) f32.Vec4 { return f32.Vec4{0, 0, float32(100 + i), 100} }

// drawnScissors returns the scissor in effect at each draw op of pass.
func drawnScissors(pass *graph.Pass) []graph.Rect {
	var out []graph.Rect
	var cur graph.Rect
	for _, op := range pass.Ops {
		switch op.Kind {
		case graph.OpScissor:
			cur = op.Scissor
		case graph.OpDrawIndexed, graph.OpDrawIndirect:
			out = append(out, cur)
		}
	}
	return out
}

func kinds(pass *graph.Pass) []graph.OpKind {
	out := make([]graph.OpKind, len(pass.Ops))
	for i, op := range pass.Ops {
		out[i] = op.Kind
	}
	return out
}

var backends = []string{backend.NameMesh, backend.NameProcedural}

func TestDegenerateClipExcluded(t *testing.T) {
	for _, name := range backends {
		t.Run(name, func(t *testing.T) {
			s, _ := newScheduler(t, name)
			l := list("l", []f32.Vec4{{810, 0, 900, 50}, {0, 0, 100, 100}}, []drawdata.TextureID{texA, texA})
			dd := drawdata.New(f32.Vec2{800, 600}, l)

			var gb graph.Builder
			stats, err := s.Schedule(dd, &gb, graph.Attachments{})
			if err != nil {
				t.Fatal(err)
			}
			if stats.Draws != 1 || stats.Skipped != 1 {
				t.Errorf("stats = %+v, want 1 draw and 1 skipped", stats)
			}
			got := drawnScissors(gb.Passes()[0])
			want := []graph.Rect{{X: 0, Y: 500, W: 100, H: 100}}
			if !slices.Equal(got, want) {
				t.Errorf("scissors = %v, want %v", got, want)
			}
		})
	}
}

func TestRebindOnlyOnTextureChange(t *testing.T) {
	for _, name := range backends {
		t.Run(name, func(t *testing.T) {
			s, _ := newScheduler(t, name)
			l1 := list("l1", []f32.Vec4{clipN(0), clipN(1), clipN(2)}, []drawdata.TextureID{texA, texA, texA})
			l2 := list("l2", []f32.Vec4{clipN(3), clipN(4)}, []drawdata.TextureID{texB, texB})
			dd := drawdata.New(f32.Vec2{800, 600}, l1, l2)

			var gb graph.Builder
			stats, err := s.Schedule(dd, &gb, graph.Attachments{})
			if err != nil {
				t.Fatal(err)
			}
			if stats.Rebinds != 2 {
				t.Errorf("Rebinds = %d, want 2", stats.Rebinds)
			}
			if n := gb.Passes()[0].Count(graph.OpBindTexture); n != 2 {
				t.Errorf("recorded %d texture binds, want 2", n)
			}
		})
	}
}

func TestSubmissionOrder(t *testing.T) {
	for _, name := range backends {
		t.Run(name, func(t *testing.T) {
			s, _ := newScheduler(t, name)
			degenerate := f32.Vec4{900, 0, 950, 50}
			l1 := list("l1", []f32.Vec4{clipN(0), clipN(1), clipN(2)}, []drawdata.TextureID{texA, texA, texA})
			l2 := list("l2", []f32.Vec4{degenerate, clipN(3)}, []drawdata.TextureID{texB, texB})
			dd := drawdata.New(f32.Vec2{800, 600}, l1, l2)

			var gb graph.Builder
			stats, err := s.Schedule(dd, &gb, graph.Attachments{})
			if err != nil {
				t.Fatal(err)
			}
			if n := len(s.packer.Pack(dd, nil).SubDraws); n != 5 {
				t.Errorf("packed %d sub-draws, want 5", n)
			}
			if stats.Draws != 4 || stats.Skipped != 1 || stats.Rebinds != 2 {
				t.Errorf("stats = %+v, want 4 draws, 1 skipped, 2 rebinds", stats)
			}
			var want []graph.Rect
			for i := range 4 {
				c := clipN(i)
				want = append(want, graph.Rect{X: 0, Y: 600 - c[3], W: c[2], H: c[3]})
			}
			if got := drawnScissors(gb.Passes()[0]); !slices.Equal(got, want) {
				t.Errorf("draw order scissors = %v, want %v", got, want)
			}
		})
	}
}

func TestSkippableFrames(t *testing.T) {
	tests := []struct {
		name string
		dd   *drawdata.DrawData
	}{
		{"zero width", drawdata.New(f32.Vec2{0, 600}, list("l", []f32.Vec4{visible}, []drawdata.TextureID{texA}))},
		{"zero scale", func() *drawdata.DrawData {
			dd := drawdata.New(f32.Vec2{800, 600}, list("l", []f32.Vec4{visible}, []drawdata.TextureID{texA}))
			dd.FramebufferScale = f32.Vec2{1, 0}
			return dd
		}()},
		{"no vertices", drawdata.New(f32.Vec2{800, 600}, &drawdata.DrawList{})},
		{"no lists", drawdata.New(f32.Vec2{800, 600})},
	}
	for _, name := range backends {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				s, dev := newScheduler(t, name)
				var gb graph.Builder
				stats, err := s.Schedule(tt.dd, &gb, graph.Attachments{})
				if err != nil {
					t.Fatal(err)
				}
				if !stats.FrameSkipped {
					t.Error("frame not reported as skipped")
				}
				if dev.writes != 0 || dev.buffers != 0 {
					t.Errorf("touched buffers: %d allocations, %d writes", dev.buffers, dev.writes)
				}
				if len(gb.Passes()) != 0 {
					t.Errorf("enqueued %d passes, want 0", len(gb.Passes()))
				}
			})
		}
	}
}

func TestUnknownTextureAbortsFrame(t *testing.T) {
	s, _ := newScheduler(t, backend.NameMesh)
	l := list("window", []f32.Vec4{clipN(0), clipN(1)}, []drawdata.TextureID{texA, 99})
	dd := drawdata.New(f32.Vec2{800, 600}, l)

	var gb graph.Builder
	_, err := s.Schedule(dd, &gb, graph.Attachments{})
	if !errors.Is(err, texture.ErrNotFound) {
		t.Fatalf("Schedule() = %v, want texture.ErrNotFound", err)
	}
	if len(gb.Passes()) != 0 {
		t.Errorf("pass kept after failed frame")
	}
}

func TestNotLinked(t *testing.T) {
	dev := &countingDevice{}
	s := New(backend.NewMesh(dev, dev))
	dd := drawdata.New(f32.Vec2{800, 600}, list("l", []f32.Vec4{visible}, []drawdata.TextureID{texA}))
	if _, err := s.Schedule(dd, &graph.Builder{}, graph.Attachments{}); !errors.Is(err, ErrNotLinked) {
		t.Errorf("Schedule() = %v, want ErrNotLinked", err)
	}
}

func TestPassLayout(t *testing.T) {
	s, _ := newScheduler(t, backend.NameProcedural)
	l := list("l", []f32.Vec4{clipN(0), clipN(1)}, []drawdata.TextureID{texA, texA})
	dd := drawdata.New(f32.Vec2{400, 300}, l)
	dd.FramebufferScale = f32.Vec2{2, 2}

	var gb graph.Builder
	if _, err := s.Schedule(dd, &gb, graph.Attachments{Load: true}); err != nil {
		t.Fatal(err)
	}
	pass := gb.Passes()[0]
	if pass.Name != PassName {
		t.Errorf("pass name = %q", pass.Name)
	}
	if pass.Attachments.Width != 800 || pass.Attachments.Height != 600 || !pass.Attachments.Load {
		t.Errorf("attachments = %+v, want 800x600 with Load", pass.Attachments)
	}
	if pass.Viewport != (graph.Viewport{W: 800, H: 600}) {
		t.Errorf("viewport = %+v", pass.Viewport)
	}
	want := []graph.OpKind{
		graph.OpBindGeometry,
		graph.OpScissor, graph.OpBindTexture, graph.OpSetBaseVertex, graph.OpDrawIndirect,
		// Both quads share list base 0 and have distinct base vertices.
		graph.OpScissor, graph.OpSetBaseVertex, graph.OpDrawIndirect,
		graph.OpDisableScissor,
	}
	if got := kinds(pass); !slices.Equal(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestCallbacksKeepPosition(t *testing.T) {
	s, _ := newScheduler(t, backend.NameMesh)
	var b drawdata.ListBuilder
	b.PushClipRect(clipN(0)).SetTexture(texA)
	b.AddRectFilled(f32.Vec2{0, 0}, f32.Vec2{1, 1}, 0)
	b.AddCallback(func(*drawdata.DrawList, *drawdata.DrawCmd) {}, "user")
	b.AddResetRenderState()
	b.AddRectFilled(f32.Vec2{0, 0}, f32.Vec2{1, 1}, 0)
	dd := drawdata.New(f32.Vec2{800, 600}, b.List())

	var gb graph.Builder
	stats, err := s.Schedule(dd, &gb, graph.Attachments{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Callbacks != 1 || stats.Resets != 1 || stats.Draws != 2 {
		t.Errorf("stats = %+v, want 1 callback, 1 reset, 2 draws", stats)
	}
	// The reset forgets the bound texture, so texture A is bound twice.
	if stats.Rebinds != 2 {
		t.Errorf("Rebinds = %d, want 2", stats.Rebinds)
	}
	want := []graph.OpKind{
		graph.OpBindGeometry,
		graph.OpScissor, graph.OpBindTexture, graph.OpDrawIndexed,
		graph.OpCallback,
		graph.OpBindGeometry,
		graph.OpScissor, graph.OpBindTexture, graph.OpDrawIndexed,
		graph.OpDisableScissor,
	}
	if got := kinds(gb.Passes()[0]); !slices.Equal(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestStaleTotalsFailFrame(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(dd *drawdata.DrawData)
		wantErr error
	}{
		{"vertex total too small", func(dd *drawdata.DrawData) { dd.TotalVtxCount = 4 }, drawdata.ErrTotalsMismatch},
		{"index total too small", func(dd *drawdata.DrawData) { dd.TotalIdxCount = 6 }, drawdata.ErrTotalsMismatch},
		{"range past pool", func(dd *drawdata.DrawData) { dd.Lists[0].CmdBuffer[1].ElemCount = 60 }, drawdata.ErrRangeOutOfBounds},
	}
	for _, name := range backends {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				s, dev := newScheduler(t, name)
				// Two quads: 8 pooled vertices and 12 indices.
				dd := drawdata.New(f32.Vec2{800, 600}, list("l", []f32.Vec4{clipN(0), clipN(1)}, []drawdata.TextureID{texA, texA}))
				tt.mutate(dd)

				var gb graph.Builder
				_, err := s.Schedule(dd, &gb, graph.Attachments{})
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Schedule() = %v, want %v", err, tt.wantErr)
				}
				if dev.writes != 0 || dev.buffers != 0 {
					t.Errorf("touched buffers: %d allocations, %d writes", dev.buffers, dev.writes)
				}
				if len(gb.Passes()) != 0 {
					t.Errorf("enqueued %d passes, want 0", len(gb.Passes()))
				}
			})
		}
	}
}

func TestFractionalFramebufferRoundsUp(t *testing.T) {
	s, _ := newScheduler(t, backend.NameMesh)
	dd := drawdata.New(f32.Vec2{1, 300}, list("l", []f32.Vec4{{0, 0, 1, 100}}, []drawdata.TextureID{texA}))
	dd.FramebufferScale = f32.Vec2{0.5, 1.5}

	var gb graph.Builder
	stats, err := s.Schedule(dd, &gb, graph.Attachments{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.FrameSkipped {
		t.Fatal("frame with a positive framebuffer was skipped")
	}
	att := gb.Passes()[0].Attachments
	if att.Width != 1 || att.Height != 450 {
		t.Errorf("attachment = %dx%d, want 1x450", att.Width, att.Height)
	}
}
