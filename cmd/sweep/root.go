package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warpforge/sweep/device"
	"github.com/warpforge/sweep/gpu"
	"github.com/warpforge/sweep/scan"
)

var (
	FlagCount   int
	FlagDType   string
	FlagSeed    int64
	FlagGPU     bool
	FlagVerbose bool

	logger *zap.Logger
)

func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Full cumulative sum on a device work queue",
		Long: "sweep runs a two-stage device prefix sum over a generated integer sequence:\n" +
			"a scratch-sized bulk exclusive scan followed by a single-thread finalization\n" +
			"task that publishes the grand total through pinned memory.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return appRun()
		},
	}

	rootCmd.Flags().IntVarP(&FlagCount, "count", "n", 1_000_000, "number of input elements")
	rootCmd.Flags().StringVar(&FlagDType, "dtype", "int32", "element type (int32 or int64)")
	rootCmd.Flags().Int64Var(&FlagSeed, "seed", 42, "input generator seed")
	rootCmd.Flags().BoolVar(&FlagGPU, "gpu", false, "run on a WebGPU adapter instead of the simulated runtime (int32 only)")
	rootCmd.Flags().BoolVarP(&FlagVerbose, "verbose", "v", false, "debug logging")

	return rootCmd
}

func Execute() {
	if err := RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger() error {
	cfg := zap.NewDevelopmentConfig()
	if !FlagVerbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func appRun() error {
	defer logger.Sync()

	dt, err := device.ParseDType(FlagDType)
	if err != nil {
		return err
	}
	if FlagCount < 1 {
		return fmt.Errorf("count must be at least 1, got %d", FlagCount)
	}

	logger.Info("generating input",
		zap.Int("count", FlagCount),
		zap.String("dtype", dt.String()),
		zap.Int64("seed", FlagSeed))

	rng := rand.New(rand.NewSource(FlagSeed))

	if FlagGPU {
		return runGPU(rng)
	}
	return runSim(rng, dt)
}

// runSim drives the simulated device runtime for either element type.
func runSim(rng *rand.Rand, dt device.DType) error {
	ctx := device.NewContext()
	defer ctx.Close()

	n := FlagCount
	var (
		result  scan.Scalar
		hostSum int64
		head    []int64
		elapsed time.Duration
	)

	switch dt {
	case device.Int32:
		data := make([]int32, n)
		var sum32 int32 // accumulate in element width so wraparound matches the device
		for i := range data {
			data[i] = int32(rng.Intn(2001) - 1000)
			sum32 += data[i]
		}
		hostSum = int64(sum32)
		input, output, err := allocPair(ctx, dt, n)
		if err != nil {
			return err
		}
		defer input.Free()
		defer output.Free()
		if err := input.CopyFromInt32s(data); err != nil {
			return err
		}
		start := time.Now()
		result, err = scan.FullCumsum(ctx, input, output)
		elapsed = time.Since(start)
		if err != nil {
			return err
		}
		prefix, err := output.ReadInt32s()
		if err != nil {
			return err
		}
		head = headOfInt32s(prefix)

	case device.Int64:
		data := make([]int64, n)
		for i := range data {
			data[i] = int64(rng.Intn(2001) - 1000)
			hostSum += data[i]
		}
		input, output, err := allocPair(ctx, dt, n)
		if err != nil {
			return err
		}
		defer input.Free()
		defer output.Free()
		if err := input.CopyFromInt64s(data); err != nil {
			return err
		}
		start := time.Now()
		result, err = scan.FullCumsum(ctx, input, output)
		elapsed = time.Since(start)
		if err != nil {
			return err
		}
		prefix, err := output.ReadInt64s()
		if err != nil {
			return err
		}
		head = headOfInt64s(prefix)

	default:
		return fmt.Errorf("dtype %s is not supported by the scan primitive", dt)
	}

	if result.Int64() != hostSum {
		return fmt.Errorf("device total %d disagrees with host total %d", result.Int64(), hostSum)
	}
	logger.Info("scan complete", zap.Duration("elapsed", elapsed), zap.Int64("total", result.Int64()))

	renderResult("simulated", dt.String(), n, result.Int64(), head, elapsed)
	renderPoolStats(ctx.Pool.Stats())
	return nil
}

// runGPU drives the WebGPU backend. WGSL has no 64-bit integers, so this
// path is int32 only.
func runGPU(rng *rand.Rand) error {
	if FlagDType != "int32" {
		return fmt.Errorf("--gpu supports int32 only, got %s", FlagDType)
	}
	if !gpu.Available() {
		return fmt.Errorf("no usable WebGPU adapter")
	}

	n := FlagCount
	data := make([]int32, n)
	var hostSum int32
	for i := range data {
		data[i] = int32(rng.Intn(2001) - 1000)
		hostSum += data[i]
	}

	start := time.Now()
	prefix, total, err := gpu.FullCumsumInt32(data)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}
	if total != hostSum {
		return fmt.Errorf("device total %d disagrees with host total %d", total, hostSum)
	}
	logger.Info("gpu scan complete", zap.Duration("elapsed", elapsed), zap.Int32("total", total))

	renderResult("webgpu", "int32", n, int64(total), headOfInt32s(prefix), elapsed)
	return nil
}

func allocPair(ctx *device.Context, dt device.DType, n int) (*device.Array, *device.Array, error) {
	input, err := device.NewArray(ctx, dt, n)
	if err != nil {
		return nil, nil, err
	}
	output, err := device.NewArray(ctx, dt, n+1)
	if err != nil {
		input.Free()
		return nil, nil, err
	}
	return input, output, nil
}

func headOfInt32s(s []int32) []int64 {
	out := make([]int64, 0, 8)
	for i := 0; i < len(s) && i < 8; i++ {
		out = append(out, int64(s[i]))
	}
	return out
}

func headOfInt64s(s []int64) []int64 {
	out := make([]int64, 0, 8)
	for i := 0; i < len(s) && i < 8; i++ {
		out = append(out, s[i])
	}
	return out
}
