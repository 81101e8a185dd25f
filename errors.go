package guidraw

import (
	"errors"

	"github.com/gogpu/guidraw/backend"
	"github.com/gogpu/guidraw/internal/gpu"
)

var (
	// ErrUnknownBackend is returned for a backend name that is not
	// registered.
	ErrUnknownBackend = backend.ErrUnknownBackend

	// ErrUnknownBinding is returned when a configured binding name is not
	// declared by the shader.
	ErrUnknownBinding = gpu.ErrUnknownBinding

	// ErrUnknownColorFormat is returned for an unsupported color format
	// name.
	ErrUnknownColorFormat = errors.New("guidraw: unknown color format")

	// ErrNilRegistry is returned when a context is created without a
	// texture registry.
	ErrNilRegistry = errors.New("guidraw: nil texture registry")

	// ErrClosed is returned when rendering with a closed context.
	ErrClosed = errors.New("guidraw: context closed")

	// ErrNotHALProvider is returned when a device provider does not expose
	// HAL device and queue types.
	ErrNotHALProvider = errors.New("guidraw: provider does not expose HAL types")
)
