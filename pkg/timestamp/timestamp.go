// Package timestamp provides the platform's time representation.
//
// Every stored time is a float64 of Unix seconds (UTC), with sub-second
// precision in the fraction. A value of 0 means "not set".
package timestamp

import (
	"fmt"
	"time"
)

// Now returns the current time as Unix seconds.
func Now() float64 {
	return FromTime(time.Now())
}

// FromTime converts a time.Time to Unix seconds. A zero time yields 0.
func FromTime(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

// ToTime converts Unix seconds to a time.Time. 0 yields the zero time.
func ToTime(ts float64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Format renders Unix seconds as RFC3339 for logs and error data.
// 0 renders as the empty string.
func Format(ts float64) string {
	if ts == 0 {
		return ""
	}
	return ToTime(ts).UTC().Format(time.RFC3339Nano)
}

// Add shifts a timestamp by a duration. An unset timestamp stays unset.
func Add(ts float64, d time.Duration) float64 {
	if ts == 0 {
		return 0
	}
	return ts + d.Seconds()
}

// IsSet reports whether the timestamp carries a value.
func IsSet(ts float64) bool {
	return ts != 0
}

// maxValid is the year 3000 in Unix seconds.
const maxValid = 32503680000

// Validate rejects timestamps outside the representable range.
func Validate(ts float64) error {
	if ts < 0 {
		return fmt.Errorf("timestamp cannot be negative: %g", ts)
	}
	if ts > maxValid {
		return fmt.Errorf("timestamp too far in future: %g", ts)
	}
	return nil
}
