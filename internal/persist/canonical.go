package persist

import (
	"math"
	"time"
)

// round6 rounds a probability-range float to 6 decimal places — the
// canonical textual form spec §8 requires for bit-equivalent round-trips
// modulo floating-point representation.
func round6(f float64) float64 {
	const scale = 1e6
	return math.Round(f*scale) / scale
}

// canonicalDate renders t as lowercase ISO-8601, per spec §8's canonical
// form rule.
func canonicalDate(t time.Time) string {
	return t.UTC().Format("2006-01-02t15:04:05z")
}

// parseCanonicalDate parses a string produced by canonicalDate, accepting
// either case for the literal 't'/'z' separators.
func parseCanonicalDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05Z", "2006-01-02t15:04:05z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Parse(time.RFC3339, s)
}
