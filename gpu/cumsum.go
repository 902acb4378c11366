package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// CumsumSpec defines configuration for a full cumulative sum.
type CumsumSpec struct {
	N int // number of input elements
}

// CumsumKernel holds GPU resources for the two-stage full cumulative sum:
// a bulk exclusive scan dispatch followed by a single-thread finalization
// dispatch that repairs the missing grand total.
type CumsumKernel struct {
	Spec CumsumSpec

	scanPipeline  *wgpu.ComputePipeline
	finalPipeline *wgpu.ComputePipeline
	scanBind      *wgpu.BindGroup
	finalBind     *wgpu.BindGroup

	InputBuffer  *wgpu.Buffer
	OutputBuffer *wgpu.Buffer // N+1 elements; slot N is allocated but never written
	TotalBuffer  *wgpu.Buffer // single-element result, read back after submit
}

// AllocateBuffers creates the output and total buffers. The input buffer is
// created by Upload since WebGPU initializes storage at creation time.
func (k *CumsumKernel) AllocateBuffers(c *Context, labelPrefix string) error {
	var err error

	k.OutputBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: labelPrefix + "_Out",
		Size:  uint64((k.Spec.N + 1) * 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return err
	}

	k.TotalBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: labelPrefix + "_Total",
		Size:  4,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	return err
}

// Upload copies the input sequence into a fresh device buffer.
func (k *CumsumKernel) Upload(data []int32) error {
	if len(data) != k.Spec.N {
		return fmt.Errorf("upload %d elements into kernel sized for %d", len(data), k.Spec.N)
	}
	var err error
	k.InputBuffer, err = NewInt32Buffer(data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	return err
}

// GenerateScanShader emits the bulk exclusive scan: one workgroup of 256
// threads walks the input in chunks, doing a Hillis-Steele inclusive scan in
// workgroup memory per chunk and carrying the chunk total forward.
func (k *CumsumKernel) GenerateScanShader() string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> input : array<i32>;
		@group(0) @binding(1) var<storage, read_write> output : array<i32>;

		const N: u32 = %du;

		var<workgroup> tmp: array<i32, 256>;
		var<workgroup> carry: i32;

		@compute @workgroup_size(256)
		fn main(@builtin(local_invocation_id) local_id: vec3<u32>) {
			let tid = local_id.x;
			if (tid == 0u) { carry = 0; }
			workgroupBarrier();

			let chunks = (N + 255u) / 256u;
			for (var c: u32 = 0u; c < chunks; c++) {
				let idx = c * 256u + tid;
				var v: i32 = 0;
				if (idx < N) { v = input[idx]; }
				tmp[tid] = v;
				workgroupBarrier();

				// Inclusive scan of the chunk in workgroup memory.
				for (var off: u32 = 1u; off < 256u; off = off << 1u) {
					var add: i32 = 0;
					if (tid >= off) { add = tmp[tid - off]; }
					workgroupBarrier();
					tmp[tid] = tmp[tid] + add;
					workgroupBarrier();
				}

				// Exclusive value = carry + inclusive - own element.
				if (idx < N) { output[idx] = carry + tmp[tid] - v; }
				workgroupBarrier();
				if (tid == 0u) { carry = carry + tmp[255u]; }
				workgroupBarrier();
			}
		}
	`, k.Spec.N)
}

// GenerateFinalizeShader emits the single-thread finalization: the exclusive
// scan never materializes the sum of all N elements, so one invocation adds
// the last input element to the last exclusive value and publishes the total
// into output[N-1] and the total buffer. Index N is left untouched.
func (k *CumsumKernel) GenerateFinalizeShader() string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> input : array<i32>;
		@group(0) @binding(1) var<storage, read_write> output : array<i32>;
		@group(0) @binding(2) var<storage, read_write> total : array<i32>;

		const N: u32 = %du;

		@compute @workgroup_size(1)
		fn main() {
			let t = output[N - 1u] + input[N - 1u];
			output[N - 1u] = t;
			total[0] = t;
		}
	`, k.Spec.N)
}

func (k *CumsumKernel) Compile(c *Context, labelPrefix string) error {
	scanModule, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          labelPrefix + "_ScanShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: k.GenerateScanShader()},
	})
	if err != nil {
		return err
	}
	k.scanPipeline, err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   labelPrefix + "_ScanPipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: scanModule, EntryPoint: "main"},
	})
	if err != nil {
		return err
	}

	finalModule, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          labelPrefix + "_FinalShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: k.GenerateFinalizeShader()},
	})
	if err != nil {
		return err
	}
	k.finalPipeline, err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   labelPrefix + "_FinalPipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: finalModule, EntryPoint: "main"},
	})
	return err
}

func (k *CumsumKernel) CreateBindGroup(c *Context, labelPrefix string) error {
	var err error
	k.scanBind, err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  labelPrefix + "_ScanBind",
		Layout: k.scanPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: k.InputBuffer, Size: k.InputBuffer.GetSize()},
			{Binding: 1, Buffer: k.OutputBuffer, Size: k.OutputBuffer.GetSize()},
		},
	})
	if err != nil {
		return err
	}

	k.finalBind, err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  labelPrefix + "_FinalBind",
		Layout: k.finalPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: k.InputBuffer, Size: k.InputBuffer.GetSize()},
			{Binding: 1, Buffer: k.OutputBuffer, Size: k.OutputBuffer.GetSize()},
			{Binding: 2, Buffer: k.TotalBuffer, Size: k.TotalBuffer.GetSize()},
		},
	})
	return err
}

// Dispatch records both stages into the pass. Writes from the scan dispatch
// are visible to the finalization dispatch within the same pass, so no extra
// ordering is needed between them.
func (k *CumsumKernel) Dispatch(pass *wgpu.ComputePassEncoder) {
	pass.SetPipeline(k.scanPipeline)
	pass.SetBindGroup(0, k.scanBind, nil)
	pass.DispatchWorkgroups(1, 1, 1)

	pass.SetPipeline(k.finalPipeline)
	pass.SetBindGroup(0, k.finalBind, nil)
	pass.DispatchWorkgroups(1, 1, 1)
}

func (k *CumsumKernel) Cleanup() {
	if k.InputBuffer != nil {
		k.InputBuffer.Destroy()
	}
	if k.OutputBuffer != nil {
		k.OutputBuffer.Destroy()
	}
	if k.TotalBuffer != nil {
		k.TotalBuffer.Destroy()
	}
	if k.scanPipeline != nil {
		k.scanPipeline.Release()
	}
	if k.finalPipeline != nil {
		k.finalPipeline.Release()
	}
	if k.scanBind != nil {
		k.scanBind.Release()
	}
	if k.finalBind != nil {
		k.finalBind.Release()
	}
}

// FullCumsumInt32 runs the full cumulative sum of input on the GPU and
// returns the N+1-element output region plus the grand total. The total
// overwrites output[N-1], matching the scan package; output[N] holds
// whatever the buffer was initialized with (zero).
func FullCumsumInt32(input []int32) ([]int32, int32, error) {
	if len(input) < 1 {
		return nil, 0, fmt.Errorf("gpu: input must hold at least one element")
	}
	c, err := GetContext()
	if err != nil {
		return nil, 0, err
	}

	k := &CumsumKernel{Spec: CumsumSpec{N: len(input)}}
	defer k.Cleanup()

	if err := k.AllocateBuffers(c, "Cumsum"); err != nil {
		return nil, 0, err
	}
	if err := k.Upload(input); err != nil {
		return nil, 0, err
	}
	if err := k.Compile(c, "Cumsum"); err != nil {
		return nil, 0, err
	}
	if err := k.CreateBindGroup(c, "Cumsum"); err != nil {
		return nil, 0, err
	}

	encoder, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, 0, err
	}
	pass := encoder.BeginComputePass(nil)
	k.Dispatch(pass)
	pass.End()
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, 0, err
	}
	c.Queue.Submit(cmd)

	out, err := ReadInt32Buffer(k.OutputBuffer, len(input)+1)
	if err != nil {
		return nil, 0, err
	}
	total, err := ReadInt32Buffer(k.TotalBuffer, 1)
	if err != nil {
		return nil, 0, err
	}
	return out, total[0], nil
}
