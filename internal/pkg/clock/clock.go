// Package clock provides the time source used for every expiry decision,
// injectable so tests can move time forward without sleeping.
package clock

import "time"

// Clock yields the current time for TTL comparisons.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// System returns the process-wide wall clock in UTC.
func System() Clock {
	return systemClock{}
}
