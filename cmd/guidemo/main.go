// Command guidemo renders a synthetic GUI frame on the noop GPU device and
// reports what was submitted.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/guidraw"
	"github.com/gogpu/guidraw/drawdata"
	"github.com/gogpu/guidraw/graph"
	"github.com/gogpu/guidraw/internal/gpu"
	"github.com/gogpu/guidraw/texture"
)

func main() {
	var (
		width   = flag.Int("width", 800, "display width")
		height  = flag.Int("height", 600, "display height")
		scale   = flag.Float64("scale", 1, "framebuffer scale")
		backend = flag.String("backend", "", "backend: mesh or procedural (overrides config)")
		config  = flag.String("config", "", "optional YAML config file")
		frames  = flag.Int("frames", 3, "number of frames to render")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	guidraw.SetLogger(logger)

	cfg := guidraw.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = guidraw.LoadConfig(*config); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if *backend != "" {
		cfg.Backend = *backend
	}

	dev, err := gpu.OpenNoopDevice()
	if err != nil {
		log.Fatalf("device: %v", err)
	}
	defer dev.Close()

	fbW := uint32(float64(*width) * *scale)
	fbH := uint32(float64(*height) * *scale)
	target, err := gpu.CreateRenderTarget(dev.Device, "guidemo_target", fbW, fbH, gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		log.Fatalf("render target: %v", err)
	}
	defer target.Destroy(dev.Device)

	// Font atlas stand-in and a user image.
	atlas, err := gpu.CreateTexture(dev.Device, dev.Queue, "font_atlas", 4, 4, whitePixels(4, 4))
	if err != nil {
		log.Fatalf("atlas: %v", err)
	}
	defer atlas.Destroy(dev.Device)
	image, err := gpu.CreateTexture(dev.Device, dev.Queue, "user_image", 2, 2, whitePixels(2, 2))
	if err != nil {
		log.Fatalf("image: %v", err)
	}
	defer image.Destroy(dev.Device)

	textures := texture.NewRegistry()
	atlasID, err := textures.Add(texture.Handle{View: atlas.View, Width: atlas.Width, Height: atlas.Height})
	if err != nil {
		log.Fatal(err)
	}
	imageID, err := textures.Add(texture.Handle{View: image.View, Width: image.Width, Height: image.Height})
	if err != nil {
		log.Fatal(err)
	}

	ctx, err := guidraw.NewContext(dev.Device, dev.Queue, textures, cfg)
	if err != nil {
		log.Fatalf("context: %v", err)
	}
	defer ctx.Close()

	display := f32.Vec2{float32(*width), float32(*height)}
	for i := range *frames {
		dd := buildFrame(display, atlasID, imageID, i)
		dd.FramebufferScale = f32.Vec2{float32(*scale), float32(*scale)}
		stats, err := ctx.Render(dd, graph.Attachments{Color: target.View})
		if err != nil {
			log.Fatalf("frame %d: %v", i, err)
		}
		logger.Info("frame rendered",
			"frame", i,
			"backend", ctx.Backend(),
			"skipped", stats.FrameSkipped,
			"draws", stats.Draws,
			"clipped", stats.Skipped,
			"rebinds", stats.Rebinds,
			"callbacks", stats.Callbacks,
		)
	}
}

// buildFrame lays out a window with a few widgets, a clipped-away popup and
// a tooltip list. The number of buttons grows with the frame number so
// that buffers grow across frames.
func buildFrame(display f32.Vec2, atlas, image drawdata.TextureID, frame int) *drawdata.DrawData {
	var win drawdata.ListBuilder
	win.Name("window")
	win.PushClipRect(f32.Vec4{0, 0, display[0], display[1]}).SetTexture(atlas)
	win.AddRectFilled(f32.Vec2{20, 20}, f32.Vec2{420, 320}, 0xF0202020)

	win.PushClipRect(f32.Vec4{20, 40, 420, 320})
	for i := range 4 + frame*64 {
		y := 50 + float32(i%8)*30
		win.AddRectFilled(f32.Vec2{30, y}, f32.Vec2{200, y + 24}, 0xFF8A5A2E)
	}
	win.AddTriangle(
		[3]f32.Vec2{{210, 60}, {230, 60}, {220, 75}},
		[3]f32.Vec2{{0, 0}, {1, 0}, {0.5, 1}},
		0xFFFFFFFF,
	)
	win.AddCallback(func(l *drawdata.DrawList, _ *drawdata.DrawCmd) {
		slog.Debug("user callback", "list", l.Name)
	}, nil)
	win.AddResetRenderState()

	win.SetTexture(image)
	win.AddRectFilled(f32.Vec2{250, 60}, f32.Vec2{400, 210}, 0xFFFFFFFF)

	// Popup placed past the right edge of the display.
	win.PushClipRect(f32.Vec4{display[0] + 10, 0, display[0] + 200, 100}).SetTexture(atlas)
	win.AddRectFilled(f32.Vec2{display[0] + 10, 0}, f32.Vec2{display[0] + 200, 100}, 0xFF000000)

	var tip drawdata.ListBuilder
	tip.Name("tooltip")
	tip.PushClipRect(f32.Vec4{0, 0, display[0], display[1]}).SetTexture(atlas)
	tip.AddRectFilled(f32.Vec2{300, 340}, f32.Vec2{460, 370}, 0xE0101010)

	return drawdata.New(display, win.List(), tip.List())
}

func whitePixels(w, h int) []byte {
	p := make([]byte, w*h*4)
	for i := range p {
		p[i] = 0xFF
	}
	return p
}
