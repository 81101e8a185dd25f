// Package guidraw renders the draw data of an immediate-mode GUI library
// on a wgpu HAL device.
//
// # Overview
//
// Each frame the GUI library hands over a [drawdata.DrawData]: ordered draw
// lists, each with a vertex pool, a 16-bit index pool and draw commands that
// reference ranges of those pools. guidraw packs the pools into GPU
// buffers, clips and batches the commands and records one render pass that
// it then submits and waits for.
//
// # Quick Start
//
//	textures := texture.NewRegistry()
//	atlas, _ := textures.Add(texture.Handle{View: fontView, Width: 512, Height: 512})
//
//	ctx, err := guidraw.NewContext(device, queue, textures, guidraw.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer ctx.Close()
//
//	stats, err := ctx.Render(dd, graph.Attachments{Color: surfaceView})
//
// # Backends
//
// Two submission strategies are available, selected by [Config.Backend]:
//   - "mesh": a dynamic mesh with one sub-mesh per command, drawn with
//     indexed draws.
//   - "procedural": vertex storage plus an indirect-argument buffer, drawn
//     with indexed indirect draws.
//
// Both produce identical output and draw commands in exactly the order the
// GUI library emitted them.
//
// # Coordinate System
//
// Draw data uses display coordinates with the origin at the top-left of
// the display rectangle. Clip rectangles are scaled by the framebuffer scale
// and commands whose clip rectangle lies entirely outside the framebuffer
// are skipped.
//
// # Logging
//
// guidraw is silent by default. Use [SetLogger] to route its diagnostics to
// a [log/slog] logger.
package guidraw
