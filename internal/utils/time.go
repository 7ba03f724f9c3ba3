package utils

import (
	"time"
)

// FormatEventDate renders a calendar date the way the events table shows it, e.g. "September 15, 2025".
func FormatEventDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// FormatLongDate adds the weekday, e.g. "Monday, September 15, 2025".
func FormatLongDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}
