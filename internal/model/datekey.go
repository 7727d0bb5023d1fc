package model

import "time"

// DateKey is the integer YYYYMMDD encoding of a calendar date, used as
// the join key between fact rows and the date dimension.
type DateKey int

// NewDateKey encodes t's calendar date.
func NewDateKey(t time.Time) DateKey {
	return DateKey(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// Time decodes the date key back to midnight UTC of that date.
func (k DateKey) Time() time.Time {
	return time.Date(k.Year(), time.Month(k.Month()), int(k)%100, 0, 0, 0, 0, time.UTC)
}

// Year returns the calendar year component.
func (k DateKey) Year() int { return int(k) / 10000 }

// Month returns the calendar month component (1-12).
func (k DateKey) Month() int { return (int(k) / 100) % 100 }
