//go:build windows

package swapengine

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// sampleRSS reads WorkingSetSize from GetProcessMemoryInfo, the Windows
// analogue of RSS (spec.md §4.6, step 1).
func sampleRSS() (int64, error) {
	var counters windows.PROCESS_MEMORY_COUNTERS
	counters.Cb = uint32(unsafe.Sizeof(counters))
	h := windows.CurrentProcess()
	if err := windows.GetProcessMemoryInfo(h, &counters); err != nil {
		return 0, fmt.Errorf("swapengine: GetProcessMemoryInfo: %w", err)
	}
	return int64(counters.WorkingSetSize), nil
}
