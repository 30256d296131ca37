package leave

import "time"

// DateLayout is the calendar-date format used for request start/end.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date as a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// IsWorkday reports whether t falls Monday through Friday. There is no
// holiday calendar.
func IsWorkday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// MaxRequestDays bounds the calendar span of a submitted request.
const MaxRequestDays = 366

// WorkingDays counts Monday-Friday days from start to end inclusive.
// An unparseable start or end yields 0; so does end before start.
func WorkingDays(start, end string) int {
	from, err := ParseDate(start)
	if err != nil {
		return 0
	}
	to, err := ParseDate(end)
	if err != nil {
		return 0
	}
	if to.Before(from) {
		return 0
	}

	// Whole weeks contribute five days each; only the remainder is walked.
	span := SpanDays(from, to)
	weeks := span / 7
	days := int(weeks * 5)
	for d := from.AddDate(0, 0, int(weeks*7)); !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsWorkday(d) {
			days++
		}
	}
	return days
}

// SpanDays is the inclusive number of calendar days from start to end.
func SpanDays(start, end time.Time) int64 {
	return (end.Unix()-start.Unix())/secondsPerDay + 1
}

const secondsPerDay = 24 * 60 * 60
