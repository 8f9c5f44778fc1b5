//go:build darwin

package swapengine

// rssBytes on Darwin: ru_maxrss is already reported in bytes.
func rssBytes(maxrss int64) int64 {
	return maxrss
}
