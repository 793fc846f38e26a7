// Package timespec parses the --since and --until flags of the history command.
package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse turns a time specification into Unix milliseconds.
// Accepted forms:
//   - Go durations, relative to now: "90s", "1h30m"
//   - whole days, relative to now: "7d"
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
//   - calendar dates at UTC midnight: "2025-10-29"
func Parse(spec string) (int64, error) {
	return parseAt(spec, time.Now())
}

func parseAt(spec string, now time.Time) (int64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if t, err := time.Parse(time.DateOnly, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if days, ok := strings.CutSuffix(spec, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			return now.AddDate(0, 0, -n).UnixMilli(), nil
		}
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m' or '7d', or a time like '2025-10-29T13:00:00Z')", spec)
}

// ParseRange parses --since and --until. Zero means no bound on that side.
// Both bounds set requires since < until.
func ParseRange(since, until string) (int64, int64, error) {
	return parseRangeAt(since, until, time.Now())
}

func parseRangeAt(since, until string, now time.Time) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		if sinceMS, err = parseAt(since, now); err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		if untilMS, err = parseAt(until, now); err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}
