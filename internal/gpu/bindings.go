package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// ErrUnknownBinding is returned when a shader declares no resource with a
// requested name.
var ErrUnknownBinding = errors.New("gpu: shader has no binding with that name")

// ErrBindingGroup is returned when a named resource is declared in a bind
// group other than the one the renderer binds it to.
var ErrBindingGroup = errors.New("gpu: binding declared in unexpected group")

// Binding locates a shader resource.
type Binding struct {
	Group   uint32
	Binding uint32
}

// ShaderBindings parses WGSL source and returns every resource global it
// declares, keyed by name.
func ShaderBindings(src string) (map[string]Binding, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse shader: %w", err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, fmt.Errorf("lower shader: %w", err)
	}
	out := make(map[string]Binding)
	for _, g := range module.GlobalVariables {
		if g.Binding == nil {
			continue
		}
		out[g.Name] = Binding{Group: g.Binding.Group, Binding: g.Binding.Binding}
	}
	return out, nil
}

// ResolveBindings looks up each name in src. Resolution happens once at
// setup; an unknown name fails with ErrUnknownBinding.
func ResolveBindings(src string, names ...string) ([]Binding, error) {
	decls, err := ShaderBindings(src)
	if err != nil {
		return nil, err
	}
	out := make([]Binding, len(names))
	for i, name := range names {
		b, ok := decls[name]
		if !ok {
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownBinding)
		}
		out[i] = b
	}
	return out, nil
}
