package presenter

import (
	"fmt"
	"time"
)

// AbsoluteLayout is the minute-resolution timestamp layout.
const AbsoluteLayout = "2006-01-02 15:04"

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// Absolute formats t in loc as YYYY-MM-DD HH:MM.
func Absolute(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return placeholder
	}
	return t.In(loc).Format(AbsoluteLayout)
}

// Relative describes how long before now t happened: seconds under a
// minute, then minutes, hours, days and weeks; anything from 30 days on is
// shown as an absolute date. Times in the future count as zero.
func Relative(t, now time.Time, loc *time.Location) string {
	if t.IsZero() {
		return placeholder
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < day:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < week:
		return fmt.Sprintf("%dd ago", int(d/day))
	case d < 30*day:
		return fmt.Sprintf("%dw ago", int(d/week))
	default:
		return t.In(loc).Format("2006-01-02")
	}
}
