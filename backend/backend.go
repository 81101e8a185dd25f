package backend

import (
	"errors"

	"github.com/gogpu/guidraw/graph"
	"github.com/gogpu/guidraw/internal/compile"
	"github.com/gogpu/guidraw/internal/gpu"
)

// Backend names.
const (
	NameMesh       = "mesh"
	NameProcedural = "procedural"
)

// Device allocates and destroys the GPU buffers of a backend. A hal.Device
// satisfies it.
type Device = gpu.BufferDevice

// Uploader copies staged bytes into GPU buffers.
type Uploader = gpu.Uploader

// QueueUploader is the Uploader writing through a hal.Queue.
type QueueUploader = gpu.QueueUploader

// Frame is a packed frame: submission items in draw-data order and one
// SubDraw per command without a callback.
type Frame = compile.Frame

// Staging holds the encoded vertex and index pools of a frame.
type Staging = compile.Staging

// SubDraw locates the geometry of one command in the packed buffers.
type SubDraw = compile.SubDraw

// Common backend errors.
var (
	// ErrUnknownBackend is returned when a requested backend is not registered.
	ErrUnknownBackend = errors.New("backend: unknown backend")

	// ErrReleased is returned when a released backend is prepared again.
	ErrReleased = errors.New("backend: released")
)

// Backend uploads a packed frame and emits the draw op of each sub-draw.
// A backend owns its GPU buffers exclusively and reuses them across frames.
//
// Backends are not safe for concurrent use; the host serialises frames.
type Backend interface {
	// Name returns the backend identifier ("mesh", "procedural").
	Name() string

	// Pipeline returns the pipeline variant the geometry is drawn with.
	Pipeline() graph.Pipeline

	// UsesBaseVertex reports whether draws rely on graph.OpSetBaseVertex
	// to carry the command's vertex offset.
	UsesBaseVertex() bool

	// Prepare uploads the staged pools of frame and derives the per-draw
	// GPU state. It is called once per non-empty frame, before any draw.
	Prepare(frame *Frame, staging *Staging) error

	// Geometry returns the buffers bound for the current frame.
	Geometry() graph.Geometry

	// Draw records the draw of sub-draw slot into pass.
	Draw(pass *graph.Pass, slot int, sd SubDraw)

	// Release destroys the GPU buffers. The backend must not be used
	// afterwards.
	Release()
}
