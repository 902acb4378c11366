package device

import "unsafe"

// Buffer is a raw allocation handed out by a Pool: either device memory or
// pinned host-visible memory. It is a byte range with no element type; typed
// access goes through View.
type Buffer struct {
	pool   *Pool
	label  string
	data   []byte
	pinned bool
	freed  bool
}

// Size returns the allocation size in bytes.
func (b *Buffer) Size() int { return len(b.data) }

// Pinned reports whether the buffer lives in page-locked host memory.
func (b *Buffer) Pinned() bool { return b.pinned }

// Label returns the tag given at allocation time.
func (b *Buffer) Label() string { return b.label }

// Free returns the allocation to the pool. Safe to call more than once; the
// caller must ensure no queued device work still references the buffer,
// which in practice means freeing only after the call's barrier.
func (b *Buffer) Free() {
	if b == nil || b.freed {
		return
	}
	b.freed = true
	b.pool.release(b)
	b.data = nil
}

// View reinterprets a buffer as a slice of T. It is the device-side access
// path used by kernels; host code goes through the Array copy methods.
func View[T any](b *Buffer) []T {
	var zero T
	width := int(unsafe.Sizeof(zero))
	n := len(b.data) / width
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.data[0])), n)
}
