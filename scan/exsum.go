// Package scan provides device prefix-sum primitives: ExclusiveSum, the bulk
// exclusive scan with a dry-run scratch sizing protocol, and FullCumsum, the
// driver that completes it with a single-thread finalization task and hands
// the grand total back to the host.
package scan

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/warpforge/sweep/device"
)

// Element constrains scans to the implemented integer widths.
type Element interface {
	~int32 | ~int64
}

func sizeOf[T Element]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// blockElems is the number of elements each scan block covers. Scratch holds
// one partial sum per block.
const blockElems = 4096

func blockCount(n int) int {
	if n < 1 {
		return 1
	}
	return (n + blockElems - 1) / blockElems
}

// RequiredScratchBytes reports the scratch size ExclusiveSum needs for n
// elements of the given width. The size depends on n, so it must be queried
// per call and never cached across calls.
func RequiredScratchBytes(n, elemSize int) int {
	return blockCount(n) * elemSize
}

// ExclusiveSum computes out[i] = in[0] + … + in[i-1] for i in [0, n) as a
// single unit of queued device work, using scratch for per-block partial
// sums. It follows the two-call protocol of the native scan libraries:
//
//	var size int
//	ExclusiveSum[T](ctx, nil, &size, nil, nil, n) // dry run: sizes scratch
//	scratch, _ := ctx.Pool.Alloc("scratch", size)
//	ExclusiveSum[T](ctx, scratch, &size, in, out, n)
//
// The dry run touches neither the queue nor the pool. The real call only
// enqueues; it returns before the scan has run and issues no barrier, so the
// scratch buffer must stay alive until the caller synchronizes.
func ExclusiveSum[T Element](ctx *device.Context, scratch *device.Buffer, scratchBytes *int, in, out *device.Buffer, n int) error {
	need := RequiredScratchBytes(n, sizeOf[T]())

	if scratch == nil {
		*scratchBytes = need
		return nil
	}
	if scratch.Size() < need {
		return fmt.Errorf("%w: have %d, need %d", ErrScratchTooSmall, scratch.Size(), need)
	}
	if n < 1 {
		return ErrEmptyInput
	}

	blocks := blockCount(n)
	workers := ctx.Workers

	ctx.Queue.Submit(func() {
		src := device.View[T](in)[:n]
		dst := device.View[T](out)
		sums := device.View[T](scratch)[:blocks]

		// Pass 1: independent exclusive scan of each block, recording the
		// block total in scratch.
		parallelBlocks(workers, blocks, func(b int) {
			lo, hi := blockBounds(b, n)
			var running T
			for i := lo; i < hi; i++ {
				dst[i] = running
				running += src[i]
			}
			sums[b] = running
		})

		// Pass 2: exclusive scan of the block totals, on one lane.
		var running T
		for b := 0; b < blocks; b++ {
			s := sums[b]
			sums[b] = running
			running += s
		}

		// Pass 3: shift each block by its offset. Block 0 has offset zero.
		parallelBlocks(workers, blocks, func(b int) {
			off := sums[b]
			if off == 0 {
				return
			}
			lo, hi := blockBounds(b, n)
			for i := lo; i < hi; i++ {
				dst[i] += off
			}
		})
	})
	return nil
}

func blockBounds(b, n int) (int, int) {
	lo := b * blockElems
	hi := lo + blockElems
	if hi > n {
		hi = n
	}
	return lo, hi
}

// parallelBlocks fans blocks out across up to workers goroutines and waits
// for all of them. Runs inside an already-queued device task, so the queue's
// issue-order guarantee is not affected.
func parallelBlocks(workers, blocks int, f func(b int)) {
	if workers > blocks {
		workers = blocks
	}
	if workers <= 1 {
		for b := 0; b < blocks; b++ {
			f(b)
		}
		return
	}
	per := (blocks + workers - 1) / workers
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		lo := w * per
		hi := lo + per
		if hi > blocks {
			hi = blocks
		}
		go func(lo, hi int) {
			defer wg.Done()
			for b := lo; b < hi; b++ {
				f(b)
			}
		}(lo, hi)
	}
	wg.Wait()
}
