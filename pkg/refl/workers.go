package refl

import(
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
)

// A worker holds a raw frame, the radiance products and the output, all
// as float64 grids; this is a generous per-worker budget for a 1280x960
// RedEdge frame.
const bytesPerWorker = 256 * 1024 * 1024

// DefaultWorkers sizes the correction pool by logical cores, capped so
// the workers fit in half of physical memory.
func DefaultWorkers() int {
	n := cpuid.CPU.LogicalCores
	if n < 1 {
		n = runtime.NumCPU()
	}
	if total := memory.TotalMemory(); total > 0 {
		if byMem := int(total / 2 / bytesPerWorker); byMem < n {
			n = byMem
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// HostSummary is logged at startup.
func HostSummary() string {
	return fmt.Sprintf("%s, %d physical / %d logical cores, %d MiB RAM",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, memory.TotalMemory()/(1024*1024))
}
