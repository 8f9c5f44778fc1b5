package swapengine

import "github.com/pbnjay/memory"

// sampleRSS reports the process's resident set size in bytes: the peak
// (ru_maxrss) on unix systems, the current working set on Windows.
// Implemented per-OS in sample_unix.go / sample_windows.go, the same
// build-tag split eventloop uses for its poller_linux.go / poller_darwin.go
// / poller_windows.go and wakeup_*.go files.
//
//	func sampleRSS() (int64, error)

// totalSystemMemory reports total physical memory in bytes. Create uses
// it to log a warning when the configured memory_limit_MB exceeds what
// the host actually has (spec.md §6, "memory_limit_MB"): a limit above
// total memory can never be reached by RSS alone, so the monitor would
// never shed under that policy, which is almost certainly a
// misconfiguration rather than intentional.
func totalSystemMemory() int64 {
	return int64(memory.TotalMemory())
}
