// File: internal/debug/sysinfo.go
package debug

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// systemSnapshot is the system_info artifact payload. Every section is
// best-effort; a probe that fails leaves its field nil and notes the error.
type systemSnapshot struct {
	Timestamp     string   `json:"timestamp"`
	GoOS          string   `json:"go_os"`
	GoArch        string   `json:"go_arch"`
	NumCPU        int      `json:"num_cpu"`
	NumGoroutines int      `json:"num_goroutines"`
	Hostname      string   `json:"hostname,omitempty"`
	Platform      string   `json:"platform,omitempty"`
	UptimeSeconds uint64   `json:"uptime_seconds,omitempty"`
	CPUPercent    []float64 `json:"cpu_percent,omitempty"`
	MemoryUsedPct float64  `json:"memory_used_pct,omitempty"`
	MemoryTotalMB uint64   `json:"memory_total_mb,omitempty"`
	DiskUsedPct   float64  `json:"disk_used_pct,omitempty"`
	DiskFreeMB    uint64   `json:"disk_free_mb,omitempty"`
	ProbeErrors   []string `json:"probe_errors,omitempty"`
}

func collectSystemInfo(ctx context.Context, diskPath string) systemSnapshot {
	snap := systemSnapshot{
		Timestamp:     time.Now().Format(time.RFC3339),
		GoOS:          runtime.GOOS,
		GoArch:        runtime.GOARCH,
		NumCPU:        runtime.NumCPU(),
		NumGoroutines: runtime.NumGoroutine(),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		snap.Hostname = info.Hostname
		snap.Platform = info.Platform + " " + info.PlatformVersion
		snap.UptimeSeconds = info.Uptime
	} else {
		snap.ProbeErrors = append(snap.ProbeErrors, "host: "+err.Error())
	}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil {
		snap.CPUPercent = pct
	} else {
		snap.ProbeErrors = append(snap.ProbeErrors, "cpu: "+err.Error())
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryUsedPct = vm.UsedPercent
		snap.MemoryTotalMB = vm.Total / (1 << 20)
	} else {
		snap.ProbeErrors = append(snap.ProbeErrors, "mem: "+err.Error())
	}

	if diskPath == "" {
		diskPath = "."
	}
	if du, err := disk.UsageWithContext(ctx, diskPath); err == nil {
		snap.DiskUsedPct = du.UsedPercent
		snap.DiskFreeMB = du.Free / (1 << 20)
	} else {
		snap.ProbeErrors = append(snap.ProbeErrors, "disk: "+err.Error())
	}

	return snap
}
