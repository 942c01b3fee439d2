package progression

import "time"

const hoursPerDay = 24

// DateOf truncates t to its calendar date in t's location and returns it as UTC midnight,
// so dates taken in any location can be compared without DST drift.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / hoursPerDay)
}

// NextStreak returns the streak after activity on today.
// lastActivity in the future is treated as the same day.
func NextStreak(current int, lastActivity *time.Time, today time.Time) int {
	if lastActivity == nil {
		return 1
	}

	switch days := DaysBetween(*lastActivity, today); {
	case days <= 0:
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

// RecordActivity updates the streak counters and the last activity date.
func (s *Stats) RecordActivity(today time.Time) {
	s.CurrentStreak = NextStreak(s.CurrentStreak, s.LastActivity, today)
	s.LongestStreak = max(s.LongestStreak, s.CurrentStreak)

	date := DateOf(today)
	if s.LastActivity == nil || date.After(DateOf(*s.LastActivity)) {
		s.LastActivity = &date
	}
}

// ActiveStreak returns the streak as seen on today: a streak not continued yesterday or today is broken.
func (s Stats) ActiveStreak(today time.Time) int {
	if s.LastActivity == nil || DaysBetween(*s.LastActivity, today) > 1 {
		return 0
	}
	return s.CurrentStreak
}
