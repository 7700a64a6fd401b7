package leave

import "time"

// DateOnly strips the time of day, keeping the calendar date of t.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TotalCalendarDays returns the inclusive day count between start and end.
func TotalCalendarDays(start, end time.Time) int {
	s, e := DateOnly(start), DateOnly(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// RangesOverlap reports whether the inclusive date ranges intersect.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !DateOnly(aEnd).Before(DateOnly(bStart)) && !DateOnly(bEnd).Before(DateOnly(aStart))
}

// MonthsBetween counts whole months elapsed from `from` to `to`.
func MonthsBetween(from, to time.Time) int {
	from, to = DateOnly(from), DateOnly(to)
	if to.Before(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}

func yearsSpanned(start, end time.Time) []int {
	var years []int
	for y := start.Year(); y <= end.Year(); y++ {
		years = append(years, y)
	}
	return years
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
