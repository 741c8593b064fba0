package date

import (
	"fmt"
	"iter"
)

// Range is an inclusive range of days.
type Range struct{ From, To Date }

// NewRange creates a new date range. If from is after to, they are swapped.
func NewRange(from, to Date) Range {
	if from.After(to) {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// Contains returns true if day is within the range, boundaries included.
func (r Range) Contains(day Date) bool { return !day.Before(r.From) && !day.After(r.To) }

// Len returns the number of days in the range.
func (r Range) Len() int {
	if r.From.After(r.To) {
		return 0
	}
	return int(r.To.time().Sub(r.From.time()).Hours()/24) + 1
}

// Days yields every day of the range in ascending order.
func (r Range) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.From; !d.After(r.To); d = d.Add(1) {
			if !yield(d) {
				return
			}
		}
	}
}

func (r Range) String() string {
	if r.From == r.To {
		return r.From.String()
	}
	return fmt.Sprintf("%s..%s", r.From, r.To)
}
