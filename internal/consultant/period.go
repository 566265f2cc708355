package consultant

import "time"

// TimePeriod is an inclusive [Start, End] time range. Start must not be
// after End.
type TimePeriod struct {
	Start time.Time
	End   time.Time
}

// Today returns the period covering the current calendar day in loc.
func Today(loc *time.Location) TimePeriod {
	now := time.Now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	return TimePeriod{
		Start: start,
		End:   start.Add(24*time.Hour - time.Nanosecond),
	}
}

// Contains reports whether t falls within the period.
func (p TimePeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Split slices the period into consecutive sub-periods of at most max each.
// Adjacent sub-periods share their boundary instant, so the union equals the
// original period with no gaps. A non-positive max yields the period as is.
func (p TimePeriod) Split(max time.Duration) []TimePeriod {
	if max <= 0 || p.End.Sub(p.Start) <= max {
		return []TimePeriod{p}
	}

	var parts []TimePeriod
	for start := p.Start; start.Before(p.End); start = start.Add(max) {
		end := start.Add(max)
		if end.After(p.End) {
			end = p.End
		}
		parts = append(parts, TimePeriod{Start: start, End: end})
	}

	return parts
}
