package lookup

import (
	"iter"
	"time"

	"github.com/i474232898/weather-diary/internal/weather"
)

// Day is one date of a range that has data.
type Day struct {
	Date   time.Time `json:"date"`
	Fields []string  `json:"fields"`
}

// Days walks the calendar from start to end inclusive, one day at a time,
// and yields the days for which find has data. Days without data are
// skipped. A lookup error is yielded once and ends the sequence. The
// sequence can be ranged over any number of times.
func Days(start, end time.Time, find Finder) iter.Seq2[Day, error] {
	first := weather.Truncate(start)
	last := weather.Truncate(end)

	return func(yield func(Day, error) bool) {
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			fields, ok, err := find(d)
			if err != nil {
				yield(Day{Date: d}, err)
				return
			}
			if !ok {
				continue
			}
			if !yield(Day{Date: d, Fields: fields}, nil) {
				return
			}
		}
	}
}

// Collect drains a day sequence.
func Collect(seq iter.Seq2[Day, error]) ([]Day, error) {
	var days []Day
	for day, err := range seq {
		if err != nil {
			return days, err
		}
		days = append(days, day)
	}
	return days, nil
}
