package scan

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/warpforge/sweep/device"
)

const sentinel32 = int32(math.MinInt32 + 7)

// int32Pair allocates an input/output pair, uploads data, and poisons every
// output slot so tests can detect exactly which slots the call wrote.
func int32Pair(t *testing.T, ctx *device.Context, data []int32) (*device.Array, *device.Array) {
	t.Helper()
	input, err := device.NewArray(ctx, device.Int32, len(data))
	require.NoError(t, err)
	t.Cleanup(input.Free)
	require.NoError(t, input.CopyFromInt32s(data))

	output, err := device.NewArray(ctx, device.Int32, len(data)+1)
	require.NoError(t, err)
	t.Cleanup(output.Free)
	poison := make([]int32, len(data)+1)
	for i := range poison {
		poison[i] = sentinel32
	}
	require.NoError(t, output.CopyFromInt32s(poison))
	return input, output
}

// hostFullCumsumInt32 is the serial reference, including the documented
// behavior of the finalization step: the grand total lands in out[n-1].
func hostFullCumsumInt32(in []int32) ([]int32, int32) {
	out := make([]int32, len(in))
	var running int32
	for i, v := range in {
		out[i] = running
		running += v
	}
	out[len(in)-1] = running
	return out, running
}

func TestFullCumsumInt32Properties(t *testing.T) {
	ctx := newCtx(t)
	rng := rand.New(rand.NewSource(11))

	n := 10_000
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(rng.Intn(2001) - 1000)
	}

	input, output := int32Pair(t, ctx, data)
	total, err := FullCumsum(ctx, input, output)
	require.NoError(t, err)
	require.Equal(t, device.Int32, total.DType())

	got, err := output.ReadInt32s()
	require.NoError(t, err)

	require.Zero(t, got[0])
	for i := 1; i < n-1; i++ {
		require.Equal(t, got[i-1]+data[i-1], got[i], "exclusive recurrence at %d", i)
	}

	var sum int32
	for _, v := range data {
		sum += v
	}
	require.Equal(t, sum, total.Int32())
	require.Equal(t, sum, got[n-1], "grand total replaces the last exclusive value")
	require.Equal(t, sentinel32, got[n], "slot n must never be written")
}

func TestFullCumsumMatchesHostReference(t *testing.T) {
	ctx := newCtx(t)
	rng := rand.New(rand.NewSource(23))

	for _, n := range []int{1, 2, 3, 4095, 4096, 4097, 30_000} {
		data := make([]int32, n)
		for i := range data {
			data[i] = int32(rng.Intn(401) - 200)
		}
		input, output := int32Pair(t, ctx, data)

		total, err := FullCumsum(ctx, input, output)
		require.NoError(t, err)

		got, err := output.ReadInt32s()
		require.NoError(t, err)
		wantOut, wantTotal := hostFullCumsumInt32(data)
		if diff := cmp.Diff(wantOut, got[:n]); diff != "" {
			t.Fatalf("n=%d output mismatch (-want +got):\n%s", n, diff)
		}
		require.Equal(t, wantTotal, total.Int32(), "n=%d", n)
	}
}

func TestFullCumsumSingleElement(t *testing.T) {
	ctx := newCtx(t)

	input, output := int32Pair(t, ctx, []int32{37})
	total, err := FullCumsum(ctx, input, output)
	require.NoError(t, err)

	got, err := output.ReadInt32s()
	require.NoError(t, err)
	require.Len(t, got, 2)
	// With one element the finalization total overwrites the lone exclusive
	// zero, and the extra slot stays untouched.
	require.Equal(t, int32(37), got[0])
	require.Equal(t, sentinel32, got[1])
	require.Equal(t, int32(37), total.Int32())
}

func TestFullCumsumInt32FullRange(t *testing.T) {
	ctx := newCtx(t)

	// Partial sums touch both extremes of the 32-bit range without overflow.
	data := []int32{math.MaxInt32, math.MinInt32, 1, -1}
	input, output := int32Pair(t, ctx, data)

	total, err := FullCumsum(ctx, input, output)
	require.NoError(t, err)

	got, err := output.ReadInt32s()
	require.NoError(t, err)
	require.Equal(t, []int32{0, math.MaxInt32, -1}, got[:3])
	require.Equal(t, int32(-1), total.Int32())
}

func TestFullCumsumInt64(t *testing.T) {
	ctx := newCtx(t)

	data := []int64{1 << 40, -(1 << 41), 1 << 42, -5}
	input, err := device.NewArray(ctx, device.Int64, len(data))
	require.NoError(t, err)
	defer input.Free()
	require.NoError(t, input.CopyFromInt64s(data))

	output, err := device.NewArray(ctx, device.Int64, len(data)+1)
	require.NoError(t, err)
	defer output.Free()

	total, err := FullCumsum(ctx, input, output)
	require.NoError(t, err)
	require.Equal(t, device.Int64, total.DType())

	var sum int64
	for _, v := range data {
		sum += v
	}
	require.Equal(t, sum, total.Int64())

	got, err := output.ReadInt64s()
	require.NoError(t, err)
	require.Equal(t, int64(0), got[0])
	require.Equal(t, sum, got[len(data)-1])
}

func TestFullCumsumUnsupportedTypeIssuesNoDeviceWork(t *testing.T) {
	ctx := newCtx(t)

	input, err := device.NewArray(ctx, device.Float32, 8)
	require.NoError(t, err)
	defer input.Free()
	output, err := device.NewArray(ctx, device.Float32, 9)
	require.NoError(t, err)
	defer output.Free()

	before := ctx.Pool.Stats()
	_, err = FullCumsum(ctx, input, output)
	require.ErrorIs(t, err, ErrUnsupportedType)

	// Allocation probe: rejecting the dtype must not have allocated scratch,
	// pinned memory, or anything else.
	require.Equal(t, before, ctx.Pool.Stats())
}

func TestFullCumsumLengthDeltas(t *testing.T) {
	ctx := newCtx(t)
	n := 8
	data := make([]int32, n)

	for delta, wantOK := range map[int]bool{0: false, 1: true, 2: false, -1: false} {
		input, err := device.NewArray(ctx, device.Int32, n)
		require.NoError(t, err)
		require.NoError(t, input.CopyFromInt32s(data))
		output, err := device.NewArray(ctx, device.Int32, n+delta)
		require.NoError(t, err)

		_, err = FullCumsum(ctx, input, output)
		if wantOK {
			require.NoError(t, err, "delta %d", delta)
		} else {
			require.ErrorIs(t, err, ErrLengthMismatch, "delta %d", delta)
		}
		input.Free()
		output.Free()
	}
}

func TestFullCumsumTypeMismatch(t *testing.T) {
	ctx := newCtx(t)

	input, err := device.NewArray(ctx, device.Int32, 4)
	require.NoError(t, err)
	defer input.Free()
	output, err := device.NewArray(ctx, device.Int64, 5)
	require.NoError(t, err)
	defer output.Free()

	_, err = FullCumsum(ctx, input, output)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestFullCumsumReleasesTransientAllocations(t *testing.T) {
	ctx := newCtx(t)

	input, output := int32Pair(t, ctx, []int32{1, 2, 3})
	_, err := FullCumsum(ctx, input, output)
	require.NoError(t, err)

	s := ctx.Pool.Stats()
	// Input, output, and the poison upload came from the test; the call
	// itself owns exactly one scratch buffer and one pinned scalar, both
	// freed before it returns.
	require.Equal(t, uint64(1), s.DeviceFrees, "scratch must be freed")
	require.Equal(t, uint64(1), s.PinnedAllocs)
	require.Equal(t, uint64(1), s.PinnedFrees, "pinned scalar must be freed")
}

func TestFullCumsumConcurrentCallsMatchSequential(t *testing.T) {
	ctx := newCtx(t)
	const calls = 8
	const n = 5_000

	inputs := make([][]int32, calls)
	wantOuts := make([][]int32, calls)
	wantTotals := make([]int32, calls)
	for c := 0; c < calls; c++ {
		rng := rand.New(rand.NewSource(int64(c + 1)))
		data := make([]int32, n)
		for i := range data {
			data[i] = int32(rng.Intn(2001) - 1000)
		}
		inputs[c] = data
		wantOuts[c], wantTotals[c] = hostFullCumsumInt32(data)
	}

	gotOuts := make([][]int32, calls)
	gotTotals := make([]int32, calls)

	var g errgroup.Group
	for c := 0; c < calls; c++ {
		c := c
		g.Go(func() error {
			input, err := device.NewArray(ctx, device.Int32, n)
			if err != nil {
				return err
			}
			defer input.Free()
			if err := input.CopyFromInt32s(inputs[c]); err != nil {
				return err
			}
			output, err := device.NewArray(ctx, device.Int32, n+1)
			if err != nil {
				return err
			}
			defer output.Free()

			total, err := FullCumsum(ctx, input, output)
			if err != nil {
				return err
			}
			gotTotals[c] = total.Int32()
			full, err := output.ReadInt32s()
			if err != nil {
				return err
			}
			gotOuts[c] = full[:n]
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for c := 0; c < calls; c++ {
		require.Equal(t, wantTotals[c], gotTotals[c], "call %d", c)
		if diff := cmp.Diff(wantOuts[c], gotOuts[c]); diff != "" {
			t.Fatalf("call %d output mismatch (-want +got):\n%s", c, diff)
		}
	}
}

func TestScalarAccessors(t *testing.T) {
	s := Scalar{dtype: device.Int32, bits: -42}
	require.Equal(t, int32(-42), s.Int32())
	require.Equal(t, int64(-42), s.Int64())
	require.Equal(t, "-42 (int32)", s.String())
}
