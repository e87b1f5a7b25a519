package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Device describes the machine the experience runs on. Log lines are tagged
// with it once per process.
type Device struct {
	Kind     string
	OS       string
	Platform string
	Arch     string
	CPUs     int
	MemoryMB uint64
}

// DeviceInfo собирает сведения об устройстве. Ошибки gopsutil не фатальны:
// возвращаем то, что удалось узнать из runtime.
func DeviceInfo() Device {
	d := Device{
		Kind: "Desktop",
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		CPUs: runtime.NumCPU(),
	}

	if info, err := host.Info(); err == nil {
		d.Platform = info.Platform
		if info.PlatformVersion != "" {
			d.Platform += " " + info.PlatformVersion
		}
		if info.VirtualizationRole == "guest" {
			d.Kind = "VM"
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		d.MemoryMB = vm.Total / (1024 * 1024)
	}
	return d
}
