// Package gpu owns the wgpu HAL resources of the GUI renderer.
//
// It provides capacity-tracked growable buffers, a dynamic mesh with
// sub-mesh partitions, the two WGSL render pipelines (mesh and procedural)
// compiled through naga, shader binding resolution, and an executor that
// replays recorded render passes onto a HAL command encoder.
//
// Nothing in this package knows about GUI draw data beyond the vertex
// encoding; scheduling decisions are made by the schedule package and
// arrive here as recorded graph operations.
//
// # Devices
//
// The package works with any hal.Device/hal.Queue pair. Tests and the
// headless demo use the noop backend through [OpenNoopDevice]:
//
//	dev, err := gpu.OpenNoopDevice()
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
package gpu
