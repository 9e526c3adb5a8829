// Package sysstats snapshots host load, cpu, memory, and disk usage for
// the per-instance system.log, the Go counterpart of the original
// implementation's direct psutil calls.
package sysstats

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot renders one line-oriented host-resource snapshot for the
// given path (used for the disk usage figure), matching the shape of
// the reference implementation's combined load/cpu/mem/disk log line.
func Snapshot(path string) string {
	var lines []string

	if avg, err := load.Avg(); err == nil {
		lines = append(lines, fmt.Sprintf("load: [%.2f %.2f %.2f] with %d cores",
			avg.Load1, avg.Load5, avg.Load15, runtime.NumCPU()))
	} else {
		lines = append(lines, fmt.Sprintf("load: unavailable (%v)", err))
	}

	if pcts, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pcts) > 0 {
		lines = append(lines, fmt.Sprintf("cpu: %.1f%%", pcts[0]))
	} else {
		lines = append(lines, fmt.Sprintf("cpu: unavailable (%v)", err))
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		lines = append(lines, fmt.Sprintf("mem: total=%d used=%d free=%d percent=%.1f%%",
			vm.Total, vm.Used, vm.Free, vm.UsedPercent))
	} else {
		lines = append(lines, fmt.Sprintf("mem: unavailable (%v)", err))
	}

	if du, err := disk.Usage(path); err == nil {
		lines = append(lines, fmt.Sprintf("disk: total=%d used=%d free=%d percent=%.1f%%",
			du.Total, du.Used, du.Free, du.UsedPercent))
	} else {
		lines = append(lines, fmt.Sprintf("disk: unavailable (%v)", err))
	}

	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
