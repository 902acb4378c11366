package scan

import (
	"fmt"

	"github.com/warpforge/sweep/device"
)

// Scalar is a host-resident result value tagged with its element type.
type Scalar struct {
	dtype device.DType
	bits  int64
}

// DType returns the element type of the scalar.
func (s Scalar) DType() device.DType { return s.dtype }

// Int32 returns the value as int32. Only meaningful when DType is Int32.
func (s Scalar) Int32() int32 { return int32(s.bits) }

// Int64 returns the value as int64.
func (s Scalar) Int64() int64 { return s.bits }

func (s Scalar) String() string {
	return fmt.Sprintf("%d (%s)", s.bits, s.dtype)
}

// FullCumsum fills output[0..n-1] with the exclusive prefix sums of input and
// returns the grand total of all input elements as a host scalar.
//
// The output array must be caller-allocated with exactly input.Len()+1
// elements of the same type. Element types outside {int32, int64} are
// rejected before any device work is issued. After a failed call the output
// contents are undefined.
//
// Compatibility note: the finalization step writes the grand total over
// output[n-1] — the last exclusive value is replaced, and the extra slot at
// index n is never written. Consumers read the total from the tail of the
// scanned region; do not change this without changing them.
func FullCumsum(ctx *device.Context, input, output *device.Array) (Scalar, error) {
	// Everything validateable is checked here, before the queue or the pool
	// is touched.
	switch input.DType() {
	case device.Int32:
		if err := validate(input, output); err != nil {
			return Scalar{}, err
		}
		total, err := fullCumsum[int32](ctx, input, output)
		return Scalar{dtype: device.Int32, bits: int64(total)}, err
	case device.Int64:
		if err := validate(input, output); err != nil {
			return Scalar{}, err
		}
		total, err := fullCumsum[int64](ctx, input, output)
		return Scalar{dtype: device.Int64, bits: total}, err
	default:
		return Scalar{}, fmt.Errorf("%w: %s", ErrUnsupportedType, input.DType())
	}
}

func validate(input, output *device.Array) error {
	if output.DType() != input.DType() {
		return fmt.Errorf("%w: input %s, output %s", ErrTypeMismatch, input.DType(), output.DType())
	}
	if output.Len() != input.Len()+1 {
		return fmt.Errorf("%w: input %d, output %d", ErrLengthMismatch, input.Len(), output.Len())
	}
	if input.Len() < 1 {
		return ErrEmptyInput
	}
	return nil
}

func fullCumsum[T Element](ctx *device.Context, input, output *device.Array) (T, error) {
	n := input.Len()

	// Step A: dry-run query for the scratch size. Depends on n, so it is
	// recomputed on every call.
	var scratchBytes int
	if err := ExclusiveSum[T](ctx, nil, &scratchBytes, nil, nil, n); err != nil {
		return 0, err
	}

	// Step B: transient scratch allocation. The scan runs asynchronously, so
	// the buffer is freed only after the barrier below.
	scratch, err := ctx.Pool.Alloc("exsum-scratch", scratchBytes)
	if err != nil {
		return 0, fmt.Errorf("scan: scratch allocation: %w", err)
	}
	defer scratch.Free()
	if scratch.Size() < scratchBytes {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrScratchTooSmall, scratch.Size(), scratchBytes)
	}

	// Step C: the bulk exclusive scan of input into output[0..n-1].
	if err := ExclusiveSum[T](ctx, scratch, &scratchBytes, input.Buffer(), output.Buffer(), n); err != nil {
		return 0, err
	}

	// Step D: finalization plus the one device→host handoff.
	return finalize[T](ctx, input, output, n)
}

// finalize repairs the bulk scan's missing value: an exclusive scan over n
// elements never materializes the sum of all of them. A single-thread device
// task computes output[n-1] + input[n-1] and publishes it twice — into
// output[n-1] and into a pinned scalar the host can read. It is ordered
// after the scan by queue issue order alone; the only barrier is the one
// before the host read.
func finalize[T Element](ctx *device.Context, input, output *device.Array, n int) (T, error) {
	pinned, err := ctx.Pool.AllocPinned("cumsum-total", sizeOf[T]())
	if err != nil {
		return 0, fmt.Errorf("scan: pinned result allocation: %w", err)
	}
	defer pinned.Free()

	ctx.Queue.Submit(func() {
		in := device.View[T](input.Buffer())
		out := device.View[T](output.Buffer())
		total := out[n-1] + in[n-1]
		out[n-1] = total
		device.View[T](pinned)[0] = total
	})

	// Device→host barrier: the pinned scalar is undefined until every queued
	// task has completed.
	ctx.Queue.Synchronize()

	return device.View[T](pinned)[0], nil
}
