package model

import (
	"fmt"
	"strings"
	"time"
)

// Day is one column of the monthly grid.
type Day struct {
	Index   int          `json:"index"`
	Number  int          `json:"number"`
	Weekday time.Weekday `json:"weekday"`
	Holiday bool         `json:"holiday,omitempty"`
}

// Weekend reports whether the day falls on Saturday or Sunday.
func (d Day) Weekend() bool {
	return d.Weekday == time.Saturday || d.Weekday == time.Sunday
}

func (d Day) String() string {
	return fmt.Sprintf("%d%s", d.Number, WeekdayLetter(d.Weekday))
}

// NewDays builds n consecutive days starting at start. Holidays are given as
// calendar day numbers.
func NewDays(start time.Time, n int, holidays ...int) []Day {
	hol := make(map[int]bool, len(holidays))
	for _, h := range holidays {
		hol[h] = true
	}
	days := make([]Day, n)
	for i := range days {
		t := start.AddDate(0, 0, i)
		days[i] = Day{Index: i, Number: t.Day(), Weekday: t.Weekday(), Holiday: hol[t.Day()]}
	}
	return days
}

var weekdayLetters = map[time.Weekday]string{
	time.Monday:    "L",
	time.Tuesday:   "M",
	time.Wednesday: "X",
	time.Thursday:  "J",
	time.Friday:    "V",
	time.Saturday:  "S",
	time.Sunday:    "D",
}

// WeekdayLetter returns the single letter used in grid headers.
func WeekdayLetter(w time.Weekday) string { return weekdayLetters[w] }

// ParseWeekday accepts grid header letters (L M X J V S D), English
// abbreviations and full English names.
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.TrimSpace(s)
	for w, l := range weekdayLetters {
		if v == l {
			return w, nil
		}
	}
	lv := strings.ToLower(v)
	for w := time.Sunday; w <= time.Saturday; w++ {
		name := strings.ToLower(w.String())
		if lv == name || (len(lv) >= 3 && strings.HasPrefix(name, lv)) {
			return w, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// WeekdayAt returns the weekday of the i-th day of a month starting on a
// Monday.
func WeekdayAt(i int) time.Weekday {
	return time.Weekday((i + 1) % 7)
}
