package device

import (
	"fmt"
	"sync"
)

// Stats is a snapshot of pool accounting. Tests use it as an allocation
// probe: an operation that must not touch the device leaves every counter
// unchanged.
type Stats struct {
	DeviceAllocs uint64
	DeviceFrees  uint64
	PinnedAllocs uint64
	PinnedFrees  uint64
	InUseBytes   uint64
	PeakBytes    uint64
}

// Pool hands out device memory and pinned (host-visible) memory, and keeps
// alloc/free counters per kind. Buffers are freed back through Buffer.Free;
// the pool never reuses or caches freed storage across calls.
type Pool struct {
	mu    sync.Mutex
	stats Stats
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// Alloc reserves size bytes of device memory.
func (p *Pool) Alloc(label string, size int) (*Buffer, error) {
	return p.alloc(label, size, false)
}

// AllocPinned reserves size bytes of page-locked host-visible memory. Device
// tasks may write it directly; the host may read it only after a barrier.
func (p *Pool) AllocPinned(label string, size int) (*Buffer, error) {
	return p.alloc(label, size, true)
}

func (p *Pool) alloc(label string, size int, pinned bool) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("device: alloc %q: size must be positive, got %d", label, size)
	}
	p.mu.Lock()
	if pinned {
		p.stats.PinnedAllocs++
	} else {
		p.stats.DeviceAllocs++
	}
	p.stats.InUseBytes += uint64(size)
	if p.stats.InUseBytes > p.stats.PeakBytes {
		p.stats.PeakBytes = p.stats.InUseBytes
	}
	p.mu.Unlock()

	return &Buffer{
		pool:   p,
		label:  label,
		data:   make([]byte, size),
		pinned: pinned,
	}, nil
}

func (p *Pool) release(b *Buffer) {
	p.mu.Lock()
	if b.pinned {
		p.stats.PinnedFrees++
	} else {
		p.stats.DeviceFrees++
	}
	p.stats.InUseBytes -= uint64(len(b.data))
	p.mu.Unlock()
}

// Stats returns a consistent snapshot of the counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
