package memory

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostTotal returns the total physical memory of the host in bytes.
func HostTotal() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("failed to read host memory: %w", err)
	}
	return vm.Total, nil
}

// HostAvailable returns the memory available for new allocations on the host.
func HostAvailable() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("failed to read host memory: %w", err)
	}
	return vm.Available, nil
}

// ProcessRSS returns the resident set size of the current process in bytes.
func ProcessRSS() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid())) // #nosec G115 -- pids fit in int32
	if err != nil {
		return 0, fmt.Errorf("failed to open current process: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read process memory: %w", err)
	}
	return info.RSS, nil
}
