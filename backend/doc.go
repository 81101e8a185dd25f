// Package backend provides the submission strategies that turn a packed
// GUI frame into GPU geometry and draw ops.
//
// Two backends share the packer and clip resolver of internal/compile and
// differ only in how packed geometry reaches the GPU:
//
//   - "mesh": one dynamic mesh partitioned into one sub-mesh per drawable
//     command, drawn with indexed draws.
//   - "procedural": raw vertex storage, index and indirect-argument
//     buffers, drawn with indexed indirect draws. The vertex shader fetches
//     vertices from storage and the command's vertex offset travels as a
//     per-draw base vertex.
//
// # Backend Selection
//
// Backends are registered by name in init and created per context:
//
//	b, err := backend.New(cfg.Backend, device, uploader)
//	if err != nil {
//		return err // wraps ErrUnknownBackend
//	}
//	defer b.Release()
//
// Hosts may register additional strategies with Register.
package backend
