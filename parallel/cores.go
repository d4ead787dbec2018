package parallel

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// DefaultWorkers is the number of physical cores, falling back to the
// logical count and then to GOMAXPROCS when cpuid cannot tell.
func DefaultWorkers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return max(runtime.GOMAXPROCS(0), 1)
}

// CPUInfo is a one-line description of the host for the startup log.
func CPUInfo() string {
	return fmt.Sprintf("cpu: %s, %d physical / %d logical cores, avx2=%t fma=%t",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores,
		cpuid.CPU.Supports(cpuid.AVX2), cpuid.CPU.Supports(cpuid.FMA3))
}
