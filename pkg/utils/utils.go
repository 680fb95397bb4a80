package utils

import "time"

const week = 7 * 24 * time.Hour

// AddWeeks moves t forward by n whole weeks.
func AddWeeks(t time.Time, n int) time.Time {
	return t.Add(week * time.Duration(n))
}

// WeeksOverdue returns how many whole weeks have passed since dueDate, or 0
// when dueDate is not in the past.
func WeeksOverdue(dueDate time.Time, now time.Time) int {
	if !IsDateOverdue(dueDate, now) {
		return 0
	}
	return int(now.Sub(dueDate) / week)
}

// IsDateOverdue checks if dueDate is strictly before now
func IsDateOverdue(dueDate time.Time, now time.Time) bool {
	return now.After(dueDate)
}
