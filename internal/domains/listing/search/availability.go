package search

import (
	"stayhub/shared/failure"
	"time"
)

// ErrInvalidRange is returned when a requested range starts after it ends.
var ErrInvalidRange = failure.BadRequestFromString("start date must not be after end date")

// DateSet is a set of calendar days. Every day is stored as midnight UTC.
type DateSet map[time.Time]struct{}

func NewDateSet(days ...time.Time) DateSet {
	set := make(DateSet, len(days))
	for _, day := range days {
		set.Add(day)
	}

	return set
}

func (s DateSet) Add(day time.Time) {
	s[Day(day)] = struct{}{}
}

func (s DateSet) Contains(day time.Time) bool {
	_, ok := s[Day(day)]

	return ok
}

// Day truncates t to its calendar day, read in t's own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsRangeBookable reports whether no day in [start, end] is blocked.
// A missing bound means no date constraint was requested.
func IsRangeBookable(blocked DateSet, start, end *time.Time) (bool, error) {
	if start == nil || end == nil {
		return true, nil
	}

	first, last := Day(*start), Day(*end)
	if first.After(last) {
		return false, ErrInvalidRange
	}

	if len(blocked) == 0 {
		return true, nil
	}

	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if _, ok := blocked[day]; ok {
			return false, nil
		}
	}

	return true, nil
}
