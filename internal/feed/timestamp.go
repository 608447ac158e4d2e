package feed

import "time"

// The backend has been observed emitting raw timestamps inconsistently in
// seconds and in milliseconds. Both interpretations are tried and the one
// landing in a plausible year range wins; if neither does, the current time
// is substituted. Isolated here so it can be dropped once the backend emits
// a single unit.

const (
	minPlausibleYear = 2015
)

// NormalizeTimestamp decodes a raw wire timestamp into wall-clock time.
func NormalizeTimestamp(raw int64, now time.Time) time.Time {
	if raw <= 0 {
		return now
	}
	if t := time.Unix(raw, 0); plausible(t, now) {
		return t
	}
	if t := time.UnixMilli(raw); plausible(t, now) {
		return t
	}
	return now
}

func plausible(t, now time.Time) bool {
	y := t.Year()
	return y >= minPlausibleYear && y <= now.Year()+1
}
