package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewTruncatesAndValidates(t *testing.T) {
	dr, err := New(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, date(2026, 3, 2), dr.CheckIn)
	assert.Equal(t, 2, dr.Nights())

	_, err = New(date(2026, 3, 4), date(2026, 3, 4))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestEachNightLengthMatchesNights(t *testing.T) {
	for n := 1; n <= 40; n++ {
		dr := MustNew(date(2026, 1, 25), date(2026, 1, 25).AddDate(0, 0, n))
		nights := dr.EachNight()
		require.Len(t, nights, n)
		assert.Equal(t, dr.CheckIn, nights[0])
		assert.Equal(t, dr.CheckOut.AddDate(0, 0, -1), nights[n-1])
	}
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	booked := MustNew(date(2026, 5, 10), date(2026, 5, 15))

	cases := []struct {
		name string
		in   DateRange
		want bool
	}{
		{"touching after", MustNew(date(2026, 5, 15), date(2026, 5, 18)), false},
		{"touching before", MustNew(date(2026, 5, 7), date(2026, 5, 10)), false},
		{"inside", MustNew(date(2026, 5, 11), date(2026, 5, 12)), true},
		{"straddles start", MustNew(date(2026, 5, 8), date(2026, 5, 11)), true},
		{"straddles end", MustNew(date(2026, 5, 14), date(2026, 5, 20)), true},
		{"covers", MustNew(date(2026, 5, 1), date(2026, 5, 30)), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, booked.Overlaps(tc.in))
			assert.Equal(t, tc.want, tc.in.Overlaps(booked))
		})
	}
}

func TestMerge(t *testing.T) {
	a := MustNew(date(2026, 5, 1), date(2026, 5, 3))
	b := MustNew(date(2026, 5, 3), date(2026, 5, 6))
	merged, ok := a.Merge(b)
	require.True(t, ok)
	assert.Equal(t, MustNew(date(2026, 5, 1), date(2026, 5, 6)), merged)

	_, ok = a.Merge(MustNew(date(2026, 6, 1), date(2026, 6, 2)))
	assert.False(t, ok)
}
