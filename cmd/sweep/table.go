package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/warpforge/sweep/device"
)

func newTable() *tablewriter.Table {
	return tablewriter.NewTable(os.Stdout, tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
		Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
	})))
}

func renderResult(backend, dtype string, n int, total int64, head []int64, elapsed time.Duration) {
	table := newTable()
	table.Header([]string{"BACKEND", "DTYPE", "N", "TOTAL", "PREFIX HEAD", "ELAPSED"})
	table.Append([]string{
		backend,
		dtype,
		strconv.Itoa(n),
		strconv.FormatInt(total, 10),
		joinInt64s(head),
		elapsed.String(),
	})
	table.Render()
}

func renderPoolStats(s device.Stats) {
	table := newTable()
	table.Header([]string{"DEVICE ALLOCS", "DEVICE FREES", "PINNED ALLOCS", "PINNED FREES", "IN USE", "PEAK"})
	table.Append([]string{
		strconv.FormatUint(s.DeviceAllocs, 10),
		strconv.FormatUint(s.DeviceFrees, 10),
		strconv.FormatUint(s.PinnedAllocs, 10),
		strconv.FormatUint(s.PinnedFrees, 10),
		humanBytes(s.InUseBytes),
		humanBytes(s.PeakBytes),
	})
	table.Render()
}

func humanBytes(b uint64) string {
	val := float64(b)
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := 0
	for val >= 1024 && i < len(units)-1 {
		val /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", val, units[i])
}

func joinInt64s(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ", ") + ", …"
}
