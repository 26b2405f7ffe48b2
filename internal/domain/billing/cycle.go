package billing

import "time"

// Cycle is a half-open billing period [Start, End) between two consecutive
// occurrences of an account's bill generation day.
type Cycle struct {
	Start time.Time
	End   time.Time
}

// CycleEndingBefore returns the most recent complete cycle whose end falls on
// the account's bill generation day, on or before now. Days beyond the length
// of a month clamp to the month's last day (a generation day of 31 falls on
// Feb 28/29).
func CycleEndingBefore(generationDay int, now time.Time) Cycle {
	end := dayInMonth(now.Year(), now.Month(), generationDay, now.Location())
	if end.After(now) {
		prev := now.AddDate(0, -1, -now.Day()+1) // First day of previous month
		end = dayInMonth(prev.Year(), prev.Month(), generationDay, now.Location())
	}
	prev := end.AddDate(0, 0, -end.Day()+1).AddDate(0, -1, 0) // First day of the month before end
	start := dayInMonth(prev.Year(), prev.Month(), generationDay, now.Location())
	return Cycle{Start: start, End: end}
}

// DueDateAfter returns the first occurrence of the payment due day strictly
// after the cycle end.
func DueDateAfter(paymentDueDay int, cycleEnd time.Time) time.Time {
	due := dayInMonth(cycleEnd.Year(), cycleEnd.Month(), paymentDueDay, cycleEnd.Location())
	if !due.After(cycleEnd) {
		next := cycleEnd.AddDate(0, 0, -cycleEnd.Day()+1).AddDate(0, 1, 0)
		due = dayInMonth(next.Year(), next.Month(), paymentDueDay, cycleEnd.Location())
	}
	return due
}

// dayInMonth returns midnight of the given day in the given month, clamped to
// the month's last day.
func dayInMonth(year int, month time.Month, day int, loc *time.Location) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
