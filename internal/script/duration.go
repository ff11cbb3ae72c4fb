package script

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/kla/internal/errors"
)

// ParseDuration parses "<n>ms" or "<n>s" with a non-negative integer n.
// Anything else, including a bare number, wraps errors.ErrInvalidDuration.
func ParseDuration(s string) (time.Duration, error) {
	var (
		digits string
		unit   time.Duration
	)
	switch {
	case strings.HasSuffix(s, "ms"):
		digits, unit = strings.TrimSuffix(s, "ms"), time.Millisecond
	case strings.HasSuffix(s, "s"):
		digits, unit = strings.TrimSuffix(s, "s"), time.Second
	default:
		return 0, fmt.Errorf("%w: %q must end in ms or s", errors.ErrInvalidDuration, s)
	}

	n, err := strconv.ParseUint(digits, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidDuration, s)
	}
	if n > uint64(1<<63-1)/uint64(unit) {
		return 0, fmt.Errorf("%w: %q is out of range", errors.ErrInvalidDuration, s)
	}
	return time.Duration(n) * unit, nil
}

// FormatDuration renders d in the form ParseDuration accepts: whole
// seconds as "Ns", everything else as milliseconds. Sub-millisecond
// precision is dropped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	}
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}
