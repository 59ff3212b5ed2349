package system

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// HostInfo is a snapshot of basic host facts.
type HostInfo struct {
	Hostname          string `cty:"hostname"`
	OS                string `cty:"os"`
	Platform          string `cty:"platform"`
	PlatformVersion   string `cty:"platform_version"`
	KernelVersion     string `cty:"kernel_version"`
	Arch              string `cty:"arch"`
	CPUModel          string `cty:"cpu_model"`
	CPUCores          int    `cty:"cpu_cores"`
	LogicalCPUs       int    `cty:"logical_cpus"`
	MemoryTotalMB     uint64 `cty:"memory_total_mb"`
	MemoryAvailableMB uint64 `cty:"memory_available_mb"`
	GoVersion         string `cty:"go_version"`
}

// Inspect gathers host facts. Probes that fail, which is common inside
// containers, are logged and leave their fields empty.
func Inspect(ctx context.Context) HostInfo {
	logger := ctxlog.FromContext(ctx)
	info := HostInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
	}

	if h, err := host.InfoWithContext(ctx); err != nil {
		logger.Warn("Host lookup failed.", "error", err)
	} else {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		info.PlatformVersion = h.PlatformVersion
		info.KernelVersion = h.KernelVersion
	}

	if cpus, err := cpu.InfoWithContext(ctx); err != nil {
		logger.Warn("CPU lookup failed.", "error", err)
	} else if len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.CPUCores = n
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.LogicalCPUs = n
	} else {
		info.LogicalCPUs = runtime.NumCPU()
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		logger.Warn("Memory lookup failed.", "error", err)
	} else {
		info.MemoryTotalMB = vm.Total / (1 << 20)
		info.MemoryAvailableMB = vm.Available / (1 << 20)
	}

	return info
}

var hostInfoType = func() cty.Type {
	ty, err := gocty.ImpliedType(HostInfo{})
	if err != nil {
		panic(err)
	}
	return ty
}()

func checkYourSystem(ctx context.Context, _ *namespace.Args) (cty.Value, error) {
	info := Inspect(ctx)
	ctxlog.FromContext(ctx).Info("System checked.", "os", info.OS, "platform", info.Platform, "cpus", info.LogicalCPUs)
	return gocty.ToCtyValue(info, hostInfoType)
}
