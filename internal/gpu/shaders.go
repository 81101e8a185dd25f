package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL shader sources.

//go:embed shaders/gui_mesh.wgsl
var meshShaderSource string

//go:embed shaders/gui_procedural.wgsl
var proceduralShaderSource string

// MeshShaderSource returns the WGSL source of the mesh pipeline.
func MeshShaderSource() string { return meshShaderSource }

// ProceduralShaderSource returns the WGSL source of the procedural pipeline.
func ProceduralShaderSource() string { return proceduralShaderSource }

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return code, nil
}

// createShaderModule compiles src and creates a HAL shader module from it.
func createShaderModule(device hal.Device, label, src string) (hal.ShaderModule, error) {
	code, err := compileWGSL(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s module: %w", label, err)
	}
	return module, nil
}
