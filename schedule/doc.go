// Package schedule turns one frame of GUI draw data into a recorded render
// pass.
//
// The Scheduler packs the frame, hands the packed pools to a backend and
// walks the commands in order: callbacks are forwarded, commands whose clip
// rectangle lies outside the framebuffer are skipped, and every other
// command records a scissor, a texture bind when the texture changed, an
// optional base vertex and the backend's draw. Draw order always equals
// command order.
package schedule
