package instagram

import (
	"strconv"
	"strings"
)

// parseCompactNumber parses a human-readable magnitude string like "664M",
// "1.2K" or "3,932" into an integer. The K/M/B suffix is case-insensitive
// and thousands separators are ignored. Parsing is best effort: any
// malformed input yields 0, since a missing stat is preferable to an
// aborted record.
func parseCompactNumber(text string) int {
	s := strings.ToUpper(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'K':
		mult = 1e3
		s = s[:len(s)-1]
	case 'M':
		mult = 1e6
		s = s[:len(s)-1]
	case 'B':
		mult = 1e9
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0
	}
	return int(n * mult)
}
