package daterange

import (
	"errors"
	"time"
)

var (
	ErrCheckOutNotAfterCheckIn = errors.New("daterange: check-out must be after check-in")
	ErrZeroDate                = errors.New("daterange: check-in and check-out are required")
)

// DateRange is a half-open stay interval [CheckIn, CheckOut). Both ends are
// calendar dates normalized to midnight UTC; time-of-day carries no meaning.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New builds a validated range. The inputs are truncated to their calendar day.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return DateRange{}, ErrZeroDate
	}
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if !dr.CheckOut.After(dr.CheckIn) {
		return DateRange{}, ErrCheckOutNotAfterCheckIn
	}
	return dr, nil
}

// Day truncates a timestamp to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Nights returns the stay length in nights.
func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn) / (24 * time.Hour))
}

// Overlaps reports whether two half-open ranges intersect. A check-out that
// equals another range's check-in is a back-to-back stay, not an overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && dr.CheckOut.After(other.CheckIn)
}

// Contains reports whether the given date falls inside the range.
func (dr DateRange) Contains(date time.Time) bool {
	d := Day(date)
	return !d.Before(dr.CheckIn) && d.Before(dr.CheckOut)
}
