package core

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// A Host describes the machine a benchmark ran on.
type Host struct {
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	CPUCount    int    `json:"cpu_count"`
	CPUModel    string `json:"cpu_model,omitempty"`
	MemoryTotal uint64 `json:"memory_total,omitempty"`
}

// HostInfo returns what we can find out about the current machine.
// Anything gopsutil can't determine is left at its zero value, except the CPU count
// which falls back to the Go runtime's view.
func HostInfo() Host {
	host := Host{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
	if count, err := cpu.Counts(true); err != nil || count < 1 {
		log.Debug("Error getting CPU count: %s", err)
		host.CPUCount = runtime.NumCPU()
	} else {
		host.CPUCount = count
	}
	if infos, err := cpu.Info(); err != nil {
		log.Debug("Error getting CPU info: %s", err)
	} else if len(infos) > 0 {
		host.CPUModel = infos[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err != nil {
		log.Debug("Error getting memory usage: %s", err)
	} else {
		host.MemoryTotal = vm.Total
	}
	return host
}
