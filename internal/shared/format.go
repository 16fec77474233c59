package shared

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// ParseISODuration converts an ISO-8601 duration such as "PT4M13S" to whole seconds.
//
// Empty input yields zero.
func ParseISODuration(s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%w: duration %q: %v", ErrInvalidInput, s, err)
	}
	return int(d.ToTimeDuration() / time.Second), nil
}

// FormatDuration renders seconds as m:ss, or h:mm:ss for an hour or longer.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
