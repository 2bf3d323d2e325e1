package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var parkRe = regexp.MustCompile(`(?i)^(?:\d+P\d*|P\d+)$`)

// Upper bounds for each part of a Park-notation string. Together they keep
// the sum well inside time.Duration's range.
const (
	maxHours   = 1_000_000
	maxMinutes = maxHours * 60
)

// IsParkNotation reports whether text is a Park command: "<h>P<m>", "<h>P"
// or "P<m>". The separator is case-insensitive and surrounding whitespace is
// ignored. A bare "P" is not a Park command.
func IsParkNotation(text string) bool {
	return parkRe.MatchString(strings.TrimSpace(text))
}

// Duration converts Park notation into a duration of hours plus minutes.
// It never fails: a missing, non-numeric or negative part counts as zero.
// Callers that need validity must check IsParkNotation first.
func Duration(text string) time.Duration {
	s := strings.TrimSpace(text)
	idx := strings.IndexAny(s, "Pp")
	if idx < 0 {
		return 0
	}

	hours := part(s[:idx], maxHours)
	minutes := part(s[idx+1:], maxMinutes)
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
}

func part(raw string, limit int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// Digit runs too long for an int still mean "a lot".
		if errors.Is(err, strconv.ErrRange) && n > 0 {
			return limit
		}
		return 0
	}
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}

// FormatDuration renders a duration the way replies show it: "2h 30m",
// "45m", "3h". Seconds are dropped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	h, m := total/60, total%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}
