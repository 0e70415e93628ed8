// Package timefmt renders timestamps as short human strings.
//
// Two variants exist. Since is used wherever a commit or branch is shown and
// never falls back to a calendar date. LastActivity is used for repository
// listings and switches to a yyyy.mm.dd date once a week has passed.
package timefmt

import (
	"fmt"
	"time"
)

// DateLayout is the absolute format LastActivity falls back to
const DateLayout = "2006.01.02"

// Since formats t relative to now in hours or days
func Since(t, now time.Time) string {
	hours := wholeHours(now.Sub(t))

	switch {
	case hours < 1:
		return "less than an hour ago"
	case hours == 1:
		return "1 hour ago"
	case hours < 24:
		return fmt.Sprintf("%d hours ago", hours)
	default:
		return fmt.Sprintf("%d days ago", hours/24)
	}
}

// LastActivity formats t like Since, but returns the date for anything a week
// or older
func LastActivity(t, now time.Time) string {
	if wholeHours(now.Sub(t))/24 >= 7 {
		return t.In(now.Location()).Format(DateLayout)
	}
	return Since(t, now)
}

// wholeHours floors d to hours. Future timestamps count as negative.
func wholeHours(d time.Duration) int64 {
	h := int64(d / time.Hour)
	if d < 0 && d%time.Hour != 0 {
		h--
	}
	return h
}
