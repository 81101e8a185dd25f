// Package texture maps the opaque texture identifiers carried by GUI draw
// commands to GPU texture views.
package texture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/guidraw/drawdata"
	"github.com/gogpu/wgpu/hal"
)

// ErrNotFound is returned by Resolve for an identifier that has no
// registered texture.
var ErrNotFound = errors.New("texture: id not registered")

// ErrNilView is returned by Register when the handle carries no view.
var ErrNilView = errors.New("texture: nil texture view")

// Handle is a resolved texture: a view usable as a sampled binding plus its
// size in texels.
type Handle struct {
	View   hal.TextureView
	Width  uint32
	Height uint32
}

// Registry is the texture registry shared by the host and the renderer.
// The host registers textures (the font atlas, user images) and the
// scheduler resolves them while submitting a frame.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[drawdata.TextureID]Handle
	next    drawdata.TextureID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[drawdata.TextureID]Handle),
		next:    1,
	}
}

// Register binds id to h, replacing any previous binding.
func (r *Registry) Register(id drawdata.TextureID, h Handle) error {
	if h.View == nil {
		return fmt.Errorf("register %d: %w", id, ErrNilView)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = h
	if id >= r.next {
		r.next = id + 1
	}
	return nil
}

// Add registers h under a fresh identifier and returns it.
func (r *Registry) Add(h Handle) (drawdata.TextureID, error) {
	if h.View == nil {
		return 0, fmt.Errorf("add: %w", ErrNilView)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.entries[id] = h
	return id, nil
}

// Resolve returns the texture registered for id. The error wraps
// ErrNotFound and names the identifier.
func (r *Registry) Resolve(id drawdata.TextureID) (Handle, error) {
	r.mu.RLock()
	h, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return Handle{}, fmt.Errorf("resolve texture %d: %w", id, ErrNotFound)
	}
	return h, nil
}

// Unregister removes id. It reports whether id was registered. The texture
// itself is owned by the caller and is not destroyed.
func (r *Registry) Unregister(id drawdata.TextureID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	return ok
}

// Len returns the number of registered textures.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
