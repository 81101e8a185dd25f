// Package cache provides a bounded LRU cache for GPU objects derived from
// other resources, such as bind groups created per texture view.
//
// Evicted, deleted and cleared values are handed to a release callback so
// that the owner can destroy them:
//
//	binds := cache.New[hal.TextureView, hal.BindGroup](64, func(_ hal.TextureView, bg hal.BindGroup) {
//		device.DestroyBindGroup(bg)
//	})
//	bg, err := binds.GetOrCreate(view, func() (hal.BindGroup, error) {
//		return device.CreateBindGroup(desc)
//	})
package cache
