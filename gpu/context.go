// Package gpu runs the full cumulative sum on real hardware through WebGPU.
// It mirrors the scan package's contract for the 32-bit element type; WGSL
// has no 64-bit integers, so int64 stays on the simulated runtime.
package gpu

import (
	"fmt"
	"sync"

	"github.com/openfluke/webgpu/wgpu"
)

// Context holds the single WebGPU context for the process.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
}

var (
	ctx     Context
	ctxOnce sync.Once
	ctxErr  error
)

// GetContext returns the singleton GPU context, initializing it on first use.
func GetContext() (*Context, error) {
	ctxOnce.Do(func() {
		ctx.Instance = wgpu.CreateInstance(nil)
		if ctx.Instance == nil {
			ctxErr = fmt.Errorf("failed to create WebGPU instance")
			return
		}

		// Prefer a discrete adapter, fall back to whatever is available.
		adapters := ctx.Instance.EnumerateAdapters(nil)
		for _, a := range adapters {
			if a.GetInfo().AdapterType.String() == "discrete-gpu" {
				ctx.Adapter = a
				break
			}
		}
		if ctx.Adapter == nil {
			ctx.Adapter, _ = ctx.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
				PowerPreference: wgpu.PowerPreferenceHighPerformance,
			})
		}
		if ctx.Adapter == nil {
			ctx.Adapter, _ = ctx.Instance.RequestAdapter(nil)
		}
		if ctx.Adapter == nil {
			ctxErr = fmt.Errorf("no usable WebGPU adapter")
			return
		}

		var err error
		ctx.Device, err = ctx.Adapter.RequestDevice(nil)
		if err != nil {
			ctxErr = err
			return
		}
		ctx.Queue = ctx.Device.GetQueue()
	})

	if ctxErr != nil {
		return nil, ctxErr
	}
	if ctx.Device == nil || ctx.Queue == nil {
		return nil, fmt.Errorf("WebGPU device or queue not initialized")
	}
	return &ctx, nil
}
