package date

import (
	"slices"
	"testing"
	"time"
)

// TestTime assert that the time() is canonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)
	if d1.time() != d2.time() {
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestNewNormalizes(t *testing.T) {
	if got, want := New(2024, time.February, 30), New(2024, time.March, 1); got != want {
		t.Errorf("New(2024, 2, 30) = %v, want %v", got, want)
	}
}

func TestParse(t *testing.T) {
	today := Today()
	tests := []struct {
		in   string
		want Date
	}{
		{"2025-07-01", New(2025, 7, 1)},
		{"2025-7-1", New(2025, 7, 1)},
		{"0d", today},
		{"-3d", today.Add(-3)},
		{"+1w", today.Add(7)},
		{"15", New(today.Year(), today.Month(), 15)},
		{"2-15", New(today.Year(), time.February, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2025/07/01"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected an error", in)
		}
	}
}

func TestIn(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	got := New(2024, time.March, 31).In(ams)
	if got.Location() != ams || got.Hour() != 0 || got.Day() != 31 {
		t.Errorf("In() = %v, want midnight 2024-03-31 in Europe/Amsterdam", got)
	}
	if Of(got) != New(2024, time.March, 31) {
		t.Errorf("Of(In(d)) = %v, want %v", Of(got), New(2024, time.March, 31))
	}
}

func TestRangeDays(t *testing.T) {
	r := NewRange(New(2024, time.March, 1), New(2024, time.February, 28))
	want := []Date{New(2024, 2, 28), New(2024, 2, 29), New(2024, 3, 1)}
	got := slices.Collect(r.Days())
	if !slices.Equal(got, want) {
		t.Errorf("Days() = %v, want %v", got, want)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	if !r.Contains(New(2024, 2, 29)) || r.Contains(New(2024, 3, 2)) {
		t.Errorf("Contains() is not inclusive of exactly [From, To]")
	}
}

func TestPeriodRange(t *testing.T) {
	tests := []struct {
		name string
		p    Period
		in   Date
		want Range
	}{
		{"daily", Daily, New(2025, 9, 10), Range{New(2025, 9, 10), New(2025, 9, 10)}},
		{"a wednesday", Weekly, New(2025, 9, 10), Range{New(2025, 9, 8), New(2025, 9, 14)}},
		{"a sunday", Weekly, New(2025, 9, 14), Range{New(2025, 9, 8), New(2025, 9, 14)}},
		{"leap february", Monthly, New(2024, 2, 15), Range{New(2024, 2, 1), New(2024, 2, 29)}},
		{"q4", Quarterly, New(2024, 11, 5), Range{New(2024, 10, 1), New(2024, 12, 31)}},
		{"q1", Quarterly, New(2024, 2, 5), Range{New(2024, 1, 1), New(2024, 3, 31)}},
		{"year", Yearly, New(2024, 6, 5), Range{New(2024, 1, 1), New(2024, 12, 31)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Range(tt.in); got != tt.want {
				t.Errorf("%v.Range(%v) = %v, want %v", tt.p, tt.in, got, tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	for in, want := range map[string]Period{"day": Daily, "Weekly": Weekly, "month": Monthly, "quarter": Quarterly, "YEAR": Yearly} {
		got, err := ParsePeriod(in)
		if err != nil || got != want {
			t.Errorf("ParsePeriod(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Error("ParsePeriod(\"fortnight\") expected an error")
	}
}
