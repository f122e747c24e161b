// Package combat tracks the character's combat state: active conditions,
// concentration, death saves and the round/turn tracker. State changes
// are persisted first and then announced on the broadcast channel so
// every open dashboard stays in sync.
package combat

import (
	"regexp"
	"strconv"
	"strings"
)

// Rounds per time unit, at the standard 6 seconds per round.
const (
	roundsPerMinute = 10
	roundsPerHour   = 600
)

var durationRe = regexp.MustCompile(`(\d+)\s*(round|turn|minute|min\b|hour|hr\b)`)

// ParseDuration converts a spell or feature duration string into a round
// count. It understands forms like "1 minute", "10 minutes", "8 hours",
// "1 round" and "Concentration, up to 1 minute". The second return is
// false when the duration is instantaneous or not trackable in rounds.
func ParseDuration(s string) (int, bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" || strings.Contains(lower, "instantaneous") {
		return 0, false
	}

	m := durationRe.FindStringSubmatch(lower)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}

	switch {
	case strings.HasPrefix(m[2], "round"), strings.HasPrefix(m[2], "turn"):
		return n, true
	case strings.HasPrefix(m[2], "min"):
		return n * roundsPerMinute, true
	default:
		return n * roundsPerHour, true
	}
}
