package gpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/guidraw/graph"
)

func TestShaderBindings(t *testing.T) {
	got, err := ShaderBindings(ProceduralShaderSource())
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]Binding{
		"uniforms":    {0, 0},
		"vertices":    {0, 1},
		"draw":        {0, 2},
		"gui_texture": {1, 0},
		"gui_sampler": {1, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("found %d bindings, want %d: %v", len(got), len(want), got)
	}
	for name, b := range want {
		if got[name] != b {
			t.Errorf("%s = %+v, want %+v", name, got[name], b)
		}
	}
}

func TestResolveBindingsIgnoresComments(t *testing.T) {
	src := strings.Replace(MeshShaderSource(), "@group(1)",
		"// old: @group(1) @binding(7) var gui_texture: texture_2d<f32>;\n@group(1)", 1)
	bs, err := ResolveBindings(src, "gui_texture")
	if err != nil {
		t.Fatal(err)
	}
	if want := (Binding{Group: 1, Binding: 0}); bs[0] != want {
		t.Errorf("gui_texture = %+v, want %+v", bs[0], want)
	}
}

func TestResolveBindingsInvalidShader(t *testing.T) {
	if _, err := ResolveBindings("fn broken(", "gui_texture"); err == nil {
		t.Fatal("ResolveBindings() on invalid WGSL succeeded")
	}
}

func TestResolveBindingsUnknownName(t *testing.T) {
	_, err := ResolveBindings(MeshShaderSource(), "gui_texture", "_Texture")
	if !errors.Is(err, ErrUnknownBinding) {
		t.Fatalf("ResolveBindings() = %v, want ErrUnknownBinding", err)
	}
}

func TestResolvePipelineBindings(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PipelineConfig
		wantErr error
	}{
		{"mesh defaults", PipelineConfig{Kind: graph.PipelineMesh, Names: DefaultBindingNames()}, nil},
		{"procedural defaults", PipelineConfig{Kind: graph.PipelineProcedural, Names: DefaultBindingNames()}, nil},
		{"mesh ignores procedural names", PipelineConfig{Kind: graph.PipelineMesh, Names: BindingNames{
			Projection: "uniforms", Texture: "gui_texture", Sampler: "gui_sampler", Vertices: "nope",
		}}, nil},
		{"procedural unknown vertices", PipelineConfig{Kind: graph.PipelineProcedural, Names: BindingNames{
			Projection: "uniforms", Texture: "gui_texture", Sampler: "gui_sampler", Vertices: "_Vertices", BaseVertex: "draw",
		}}, ErrUnknownBinding},
		{"texture in frame group", PipelineConfig{Kind: graph.PipelineMesh, Names: BindingNames{
			Projection: "uniforms", Texture: "uniforms", Sampler: "gui_sampler",
		}}, ErrBindingGroup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ResolvePipelineBindings(tt.cfg)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ResolvePipelineBindings() = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolvePipelineBindings() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
