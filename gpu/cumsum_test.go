package gpu

import (
	"math/rand"
	"testing"
)

func hostFullCumsum(in []int32) ([]int32, int32) {
	out := make([]int32, len(in))
	var running int32
	for i, v := range in {
		out[i] = running
		running += v
	}
	out[len(in)-1] = running
	return out, running
}

func TestFullCumsumInt32Parity(t *testing.T) {
	if !Available() {
		t.Skip("no usable WebGPU adapter")
	}

	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{1, 2, 255, 256, 257, 10_000} {
		in := make([]int32, n)
		for i := range in {
			in[i] = int32(rng.Intn(201) - 100)
		}

		got, total, err := FullCumsumInt32(in)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(got) != n+1 {
			t.Fatalf("n=%d: expected %d output elements, got %d", n, n+1, len(got))
		}

		want, wantTotal := hostFullCumsum(in)
		for i := 0; i < n; i++ {
			if got[i] != want[i] {
				t.Fatalf("n=%d: output[%d] = %d, want %d", n, i, got[i], want[i])
			}
		}
		if total != wantTotal {
			t.Fatalf("n=%d: total = %d, want %d", n, total, wantTotal)
		}
		if got[n] != 0 {
			t.Fatalf("n=%d: slot n must stay at its initial zero, got %d", n, got[n])
		}
	}
}

func TestFullCumsumInt32RejectsEmpty(t *testing.T) {
	if _, _, err := FullCumsumInt32(nil); err == nil {
		t.Fatal("empty input must fail")
	}
}
