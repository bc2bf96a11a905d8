package utils

import "time"

// IsTradingDay reports whether t falls on a weekday. Exchange holidays are
// not modeled; the fetch layer simply gets no new bar on those days.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextTradingDay returns the first weekday after t.
func NextTradingDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for !IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// LastTradingDay returns t if it is a weekday, otherwise the most recent
// weekday before it.
func LastTradingDay(t time.Time) time.Time {
	for !IsTradingDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
