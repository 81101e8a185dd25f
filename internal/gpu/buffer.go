// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer errors.
var (
	// ErrNilDevice is returned when a resource is created without a device.
	ErrNilDevice = errors.New("gpu: device is nil")

	// ErrBufferReleased is returned when writing to a released buffer.
	ErrBufferReleased = errors.New("gpu: buffer has been released")

	// ErrWriteOutOfRange is returned when a write exceeds buffer capacity.
	ErrWriteOutOfRange = errors.New("gpu: write exceeds buffer capacity")
)

// GrowthBlock is the element granularity of buffer growth.
const GrowthBlock = 256

// GrowCapacity returns the element capacity allocated for a request of n
// elements: the smallest multiple of GrowthBlock that holds n, and one block
// for empty requests.
func GrowCapacity(n int) int {
	if n <= 0 {
		return GrowthBlock
	}
	return (n + GrowthBlock - 1) / GrowthBlock * GrowthBlock
}

// BufferDevice is the part of hal.Device used to allocate buffers.
type BufferDevice interface {
	CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error)
	DestroyBuffer(buffer hal.Buffer)
}

// Uploader copies CPU data into GPU buffers.
type Uploader interface {
	WriteBuffer(buffer hal.Buffer, offset uint64, data []byte)
}

// QueueUploader uploads through a HAL queue.
type QueueUploader struct {
	Queue hal.Queue
}

// WriteBuffer implements Uploader.
func (u QueueUploader) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) {
	u.Queue.WriteBuffer(buffer, offset, data)
}

// GrowableBuffer is a GPU buffer whose element capacity only ever grows.
// Reserve reallocates when a request exceeds capacity; contents are not
// preserved across a reallocation since every frame rewrites them.
//
// GrowableBuffer is not safe for concurrent use.
type GrowableBuffer struct {
	device BufferDevice
	label  string
	usage  gputypes.BufferUsage
	stride uint64

	buf      hal.Buffer
	capacity int
	released bool
}

// NewGrowableBuffer creates an empty buffer of elements stride bytes wide.
// No GPU memory is allocated until the first Reserve.
func NewGrowableBuffer(device BufferDevice, label string, usage gputypes.BufferUsage, stride uint64) *GrowableBuffer {
	return &GrowableBuffer{
		device: device,
		label:  label,
		usage:  usage | gputypes.BufferUsageCopyDst,
		stride: stride,
	}
}

// Reserve ensures capacity for n elements. It reports whether a new GPU
// buffer was allocated.
func (b *GrowableBuffer) Reserve(n int) (bool, error) {
	if b.device == nil {
		return false, ErrNilDevice
	}
	if b.buf != nil && n <= b.capacity {
		return false, nil
	}
	newCap := GrowCapacity(n)
	if newCap < b.capacity {
		newCap = b.capacity
	}
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  uint64(newCap) * b.stride, //nolint:gosec // capacity is positive
		Usage: b.usage,
	})
	if err != nil {
		return false, fmt.Errorf("grow %s to %d elements: %w", b.label, newCap, err)
	}
	if b.buf != nil {
		b.device.DestroyBuffer(b.buf)
	}
	slogger().Debug("gpu: buffer grown",
		"label", b.label, "from", b.capacity, "to", newCap, "request", n)
	b.buf = buf
	b.capacity = newCap
	b.released = false
	return true, nil
}

// Write uploads data starting at element offset.
func (b *GrowableBuffer) Write(up Uploader, offset int, data []byte) error {
	if b.released || b.buf == nil {
		return ErrBufferReleased
	}
	start := uint64(offset) * b.stride //nolint:gosec // offsets are non-negative
	if start+uint64(len(data)) > b.Size() {
		return fmt.Errorf("%s: %d bytes at %d, size %d: %w",
			b.label, len(data), start, b.Size(), ErrWriteOutOfRange)
	}
	if len(data) == 0 {
		return nil
	}
	up.WriteBuffer(b.buf, start, data)
	return nil
}

// Capacity returns the capacity in elements.
func (b *GrowableBuffer) Capacity() int { return b.capacity }

// Size returns the capacity in bytes.
func (b *GrowableBuffer) Size() uint64 { return uint64(b.capacity) * b.stride } //nolint:gosec // capacity is non-negative

// Stride returns the element size in bytes.
func (b *GrowableBuffer) Stride() uint64 { return b.stride }

// Raw returns the underlying GPU buffer, nil before the first Reserve.
func (b *GrowableBuffer) Raw() hal.Buffer { return b.buf }

// Release destroys the GPU buffer. It is safe to call more than once; a
// later Reserve allocates again.
func (b *GrowableBuffer) Release() {
	if b.buf != nil && b.device != nil {
		b.device.DestroyBuffer(b.buf)
	}
	b.buf = nil
	b.capacity = 0
	b.released = true
}
