// Package drawdata describes one frame of output from an immediate-mode GUI
// library, in the shape the library hands it to a renderer backend.
//
// A frame is a [DrawData]: an ordered sequence of [DrawList] values plus the
// display rectangle and framebuffer scale. Each list owns a vertex pool, a
// 16-bit index pool and an ordered sequence of [DrawCmd] values. Command
// offsets are relative to the pools of their own list.
//
// # Lifetime
//
// DrawData is borrowed. Its slices belong to the GUI library and may be
// reused on the next frame, so renderers must not keep any reference to a
// DrawData, DrawList or DrawCmd after the frame has been submitted.
//
// # Building frames
//
// [ListBuilder] assembles lists by hand. It is used by tests and by the
// guidemo command, and is handy for hosts that produce GUI geometry without
// a GUI library:
//
//	var b drawdata.ListBuilder
//	b.PushClipRect(f32.Vec4{0, 0, 800, 600}).SetTexture(atlas)
//	b.AddRectFilled(f32.Vec2{10, 10}, f32.Vec2{110, 60}, 0xFF3366FF)
//	dd := drawdata.New(f32.Vec2{800, 600}, b.List())
package drawdata
