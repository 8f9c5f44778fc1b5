package swapengine

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the swap scheduler. Use [errors.Is] to
// match them; where there is an underlying cause it is wrapped alongside
// the sentinel via fmt.Errorf("%w: %w", ...) (wrapCause), otherwise the
// sentinel carries a formatted message (wrapf).
var (
	// ErrSwapFailed wraps an I/O error that aborted a swap behaviour. The
	// cown is rolled back to IN_MEMORY; the wrapped error is the
	// underlying cause.
	ErrSwapFailed = errors.New("swapengine: swap behaviour failed")

	// ErrFetchFailed wraps an I/O error that aborted a fetch behaviour.
	// The cown is rolled back to ON_DISK; the wrapped error is the
	// underlying cause.
	ErrFetchFailed = errors.New("swapengine: fetch behaviour failed")
)

// wrapf wraps sentinel with a formatted message. Only the sentinel is
// wrapped (the message is plain text), so errors.Is matches the sentinel
// alone.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// wrapCause wraps a sentinel and the underlying cause together; both
// satisfy errors.Is on the resulting error.
func wrapCause(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}
