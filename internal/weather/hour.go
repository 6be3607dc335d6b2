package weather

import "time"

// TruncateToHour rounds t down to the start of its clock hour in loc.
// Unlike time.Truncate this respects zones whose offset is not a whole hour.
func TruncateToHour(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
}
