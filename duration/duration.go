// Package duration parses the human-friendly duration grammar used by
// a recipe's run_every field: a run of ASCII digits followed by an
// optional single-letter unit (s, m, h, d). No unit means seconds.
package duration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse parses strings like "30s", "10m", "2h", "1d", or a bare
// "45" (seconds). It rejects empty input, interleaved digits and
// letters (e.g. "1h2m"), and unrecognized unit letters.
func Parse(input string) (time.Duration, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, fmt.Errorf("duration must not be empty")
	}

	var digits, unit strings.Builder
	for _, ch := range trimmed {
		if ch >= '0' && ch <= '9' {
			if unit.Len() > 0 {
				return 0, fmt.Errorf("invalid duration %q", input)
			}
			digits.WriteRune(ch)
		} else {
			unit.WriteRune(ch)
		}
	}

	if digits.Len() == 0 {
		return 0, fmt.Errorf("invalid duration %q", input)
	}
	value, err := strconv.ParseUint(digits.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", input, err)
	}

	switch unit.String() {
	case "":
		return time.Duration(value) * time.Second, nil
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid duration %q", input)
	}
}
