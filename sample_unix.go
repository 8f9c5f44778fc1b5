//go:build unix

package swapengine

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// sampleRSS reads ru_maxrss from getrusage(RUSAGE_SELF) (spec.md §4.6,
// step 1: "Sample process RSS"). ru_maxrss is the peak resident set size,
// not the current one. Linux reports it in kilobytes and Darwin in bytes;
// unix.Getrusage normalizes neither, so rssBytes converts it, defined per
// GOOS in sample_rss_linux.go and sample_rss_darwin.go. No other unix
// GOOS has an rssBytes definition.
func sampleRSS() (int64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, fmt.Errorf("swapengine: getrusage: %w", err)
	}
	return rssBytes(ru.Maxrss), nil
}
