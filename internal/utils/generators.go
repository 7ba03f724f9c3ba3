package utils

import "time"

// NextRegistrationID derives an id from the creation instant in Unix
// milliseconds. It never returns a value <= last, so ids stay unique even when
// two registrations land in the same millisecond or the clock steps back.
func NextRegistrationID(now time.Time, last int64) int64 {
	id := now.UnixMilli()
	if id <= last {
		return last + 1
	}
	return id
}
