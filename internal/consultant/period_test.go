package consultant

import (
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestSplit(t *testing.T) {
	t.Parallel()

	const window = 14 * 24 * time.Hour

	tests := []struct {
		name   string
		period TimePeriod
		max    time.Duration
		want   int
	}{
		{
			name:   "period within window stays single",
			period: TimePeriod{Start: day(0), End: day(14)},
			max:    window,
			want:   1,
		},
		{
			name:   "twenty days split into two windows",
			period: TimePeriod{Start: day(0), End: day(20)},
			max:    window,
			want:   2,
		},
		{
			name:   "forty three days split into four windows",
			period: TimePeriod{Start: day(0), End: day(43)},
			max:    window,
			want:   4,
		},
		{
			name:   "non-positive max disables slicing",
			period: TimePeriod{Start: day(0), End: day(100)},
			max:    0,
			want:   1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			parts := tc.period.Split(tc.max)
			if len(parts) != tc.want {
				t.Fatalf("got %d windows, want %d", len(parts), tc.want)
			}

			// Union must cover the period exactly: first window starts at
			// the period start, last ends at the period end, and adjacent
			// windows meet with no gap.
			if !parts[0].Start.Equal(tc.period.Start) {
				t.Errorf("first window starts at %v, want %v", parts[0].Start, tc.period.Start)
			}
			if !parts[len(parts)-1].End.Equal(tc.period.End) {
				t.Errorf("last window ends at %v, want %v", parts[len(parts)-1].End, tc.period.End)
			}
			for i := 1; i < len(parts); i++ {
				if !parts[i].Start.Equal(parts[i-1].End) {
					t.Errorf("window %d starts at %v, previous ends at %v", i, parts[i].Start, parts[i-1].End)
				}
			}
			for i, p := range parts {
				if p.End.Sub(p.Start) > tc.max && tc.max > 0 {
					t.Errorf("window %d longer than max: %v", i, p.End.Sub(p.Start))
				}
			}
		})
	}
}

func TestSplitTwentyDayShape(t *testing.T) {
	t.Parallel()

	parts := TimePeriod{Start: day(0), End: day(20)}.Split(14 * 24 * time.Hour)

	if len(parts) != 2 {
		t.Fatalf("got %d windows, want 2", len(parts))
	}
	if got := parts[0].End.Sub(parts[0].Start); got != 14*24*time.Hour {
		t.Errorf("first window spans %v, want 14 days", got)
	}
	if got := parts[1].End.Sub(parts[1].Start); got != 6*24*time.Hour {
		t.Errorf("second window spans %v, want 6 days", got)
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	p := TimePeriod{Start: day(0), End: day(1)}

	if !p.Contains(day(0)) || !p.Contains(day(1)) {
		t.Error("period boundaries must be inclusive")
	}
	if p.Contains(day(2)) {
		t.Error("instant past the end must not be contained")
	}
	if p.Contains(day(0).Add(-time.Second)) {
		t.Error("instant before the start must not be contained")
	}
}

func TestToday(t *testing.T) {
	t.Parallel()

	p := Today(time.UTC)

	if !p.Start.Before(p.End) {
		t.Fatalf("start %v not before end %v", p.Start, p.End)
	}
	if got := p.End.Sub(p.Start); got != 24*time.Hour-time.Nanosecond {
		t.Errorf("day spans %v", got)
	}
	if p.Start.Hour() != 0 || p.Start.Minute() != 0 {
		t.Errorf("day starts at %v, want midnight", p.Start)
	}
}
