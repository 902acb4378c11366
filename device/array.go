package device

import "fmt"

// Array is a typed, contiguous device-resident sequence. Device and host are
// distinct ownership domains: kernels reach the elements through Buffer views,
// while host code moves data across the boundary only through the explicit
// CopyFrom/Read methods below.
type Array struct {
	buf   *Buffer
	dtype DType
	n     int
}

// NewArray allocates an n-element device array of the given dtype.
func NewArray(ctx *Context, dt DType, n int) (*Array, error) {
	if dt.Size() == 0 {
		return nil, fmt.Errorf("device: array of %s: unknown element width", dt)
	}
	if n < 1 {
		return nil, fmt.Errorf("device: array length must be at least 1, got %d", n)
	}
	buf, err := ctx.Pool.Alloc(fmt.Sprintf("array<%s>[%d]", dt, n), n*dt.Size())
	if err != nil {
		return nil, err
	}
	return &Array{buf: buf, dtype: dt, n: n}, nil
}

// Len returns the element count.
func (a *Array) Len() int { return a.n }

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Buffer exposes the backing allocation for kernel-side views.
func (a *Array) Buffer() *Buffer { return a.buf }

// Free releases the backing device memory.
func (a *Array) Free() {
	if a != nil {
		a.buf.Free()
	}
}

// CopyFromInt32s transfers a host slice into the array (host→device).
func (a *Array) CopyFromInt32s(src []int32) error {
	if a.dtype != Int32 {
		return fmt.Errorf("device: copy int32 into %s array", a.dtype)
	}
	if len(src) != a.n {
		return fmt.Errorf("device: copy %d elements into array of %d", len(src), a.n)
	}
	copy(View[int32](a.buf), src)
	return nil
}

// CopyFromInt64s transfers a host slice into the array (host→device).
func (a *Array) CopyFromInt64s(src []int64) error {
	if a.dtype != Int64 {
		return fmt.Errorf("device: copy int64 into %s array", a.dtype)
	}
	if len(src) != a.n {
		return fmt.Errorf("device: copy %d elements into array of %d", len(src), a.n)
	}
	copy(View[int64](a.buf), src)
	return nil
}

// ReadInt32s transfers the array back to a fresh host slice (device→host).
// The caller must have synchronized any queue work that writes the array.
func (a *Array) ReadInt32s() ([]int32, error) {
	if a.dtype != Int32 {
		return nil, fmt.Errorf("device: read int32 from %s array", a.dtype)
	}
	out := make([]int32, a.n)
	copy(out, View[int32](a.buf))
	return out, nil
}

// ReadInt64s transfers the array back to a fresh host slice (device→host).
func (a *Array) ReadInt64s() ([]int64, error) {
	if a.dtype != Int64 {
		return nil, fmt.Errorf("device: read int64 from %s array", a.dtype)
	}
	out := make([]int64, a.n)
	copy(out, View[int64](a.buf))
	return out, nil
}
