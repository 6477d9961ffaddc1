package game

import (
	"fmt"
	"time"
)

// TimeFormatter renders when a clue was captured, relative to now.
type TimeFormatter func(now, captured time.Time) string

// RelativeTime buckets the age of a clue into seconds, minutes or hours,
// truncating toward zero. Anything a day or older is shown as a date.
func RelativeTime(now, captured time.Time) string {
	age := now.Sub(captured)
	if age < 0 {
		age = 0
	}
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%d seconds ago", int(age/time.Second))
	case age < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(age/time.Minute))
	case age < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(age/time.Hour))
	}
	return AbsoluteDate(now, captured)
}

// AbsoluteDate formats captured as "2 Jan", adding the year when it differs
// from now's.
func AbsoluteDate(now, captured time.Time) string {
	captured = captured.UTC()
	if captured.Year() == now.UTC().Year() {
		return captured.Format("2 Jan")
	}
	return captured.Format("2 Jan 2006")
}
