package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewTruncatesToDay(t *testing.T) {
	dr, err := New(
		time.Date(2026, time.March, 10, 15, 4, 5, 0, time.UTC),
		time.Date(2026, time.March, 12, 9, 30, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Equal(t, day(2026, time.March, 10), dr.CheckIn)
	assert.Equal(t, day(2026, time.March, 12), dr.CheckOut)
	assert.Equal(t, 2, dr.Nights())
}

func TestNewRejectsInvalidRanges(t *testing.T) {
	_, err := New(day(2026, time.March, 12), day(2026, time.March, 10))
	assert.ErrorIs(t, err, ErrCheckOutNotAfterCheckIn)

	_, err = New(day(2026, time.March, 10), day(2026, time.March, 10))
	assert.ErrorIs(t, err, ErrCheckOutNotAfterCheckIn)

	_, err = New(time.Time{}, day(2026, time.March, 10))
	assert.ErrorIs(t, err, ErrZeroDate)
}

func TestOverlapsHalfOpen(t *testing.T) {
	base, err := New(day(2026, time.June, 10), day(2026, time.June, 15))
	require.NoError(t, err)

	cases := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		want     bool
	}{
		{"identical", day(2026, time.June, 10), day(2026, time.June, 15), true},
		{"contained", day(2026, time.June, 11), day(2026, time.June, 13), true},
		{"straddles start", day(2026, time.June, 8), day(2026, time.June, 11), true},
		{"straddles end", day(2026, time.June, 14), day(2026, time.June, 18), true},
		{"surrounds", day(2026, time.June, 8), day(2026, time.June, 20), true},
		{"checkout on checkin day", day(2026, time.June, 5), day(2026, time.June, 10), false},
		{"checkin on checkout day", day(2026, time.June, 15), day(2026, time.June, 20), false},
		{"disjoint before", day(2026, time.June, 1), day(2026, time.June, 5), false},
		{"disjoint after", day(2026, time.June, 20), day(2026, time.June, 25), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			other, err := New(tc.checkIn, tc.checkOut)
			require.NoError(t, err)
			assert.Equal(t, tc.want, base.Overlaps(other))
			assert.Equal(t, tc.want, other.Overlaps(base))
		})
	}
}
