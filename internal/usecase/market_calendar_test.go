package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var cst = time.FixedZone("CST", 8*60*60)

func TestMarketCalendar_Weekend(t *testing.T) {
	cal := NewMarketCalendar(cst)

	// 2024-01-20 is a Saturday.
	for _, day := range []int{20, 21} {
		for hour := 0; hour < 24; hour++ {
			ts := time.Date(2024, 1, day, hour, 30, 0, 0, cst)
			assert.False(t, cal.IsTradingTime(ts), "weekend %v", ts)
		}
	}
}

func TestMarketCalendar_SessionBoundaries(t *testing.T) {
	cal := NewMarketCalendar(cst)

	// 2024-01-17 is a Wednesday.
	tests := []struct {
		name     string
		hour     int
		minute   int
		expected bool
	}{
		{"before morning open", 9, 29, false},
		{"morning open", 9, 30, true},
		{"mid morning", 10, 15, true},
		{"morning close", 11, 30, true},
		{"lunch", 11, 31, false},
		{"lunch late", 12, 59, false},
		{"afternoon open", 13, 0, true},
		{"afternoon close", 15, 0, true},
		{"after close", 15, 1, false},
		{"midnight", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := time.Date(2024, 1, 17, tt.hour, tt.minute, 0, 0, cst)
			assert.Equal(t, tt.expected, cal.IsTradingTime(ts))
		})
	}
}

func TestMarketCalendar_ConvertsToCalendarZone(t *testing.T) {
	cal := NewMarketCalendar(cst)

	// 02:00 UTC is 10:00 in CST.
	ts := time.Date(2024, 1, 17, 2, 0, 0, 0, time.UTC)
	assert.True(t, cal.IsTradingTime(ts))

	// Friday 23:00 UTC is already Saturday in CST.
	ts = time.Date(2024, 1, 19, 23, 0, 0, 0, time.UTC)
	assert.False(t, cal.IsTradingTime(ts))
}

func TestLoadMarketCalendar_UnknownZoneFallsBack(t *testing.T) {
	cal := LoadMarketCalendar("Nowhere/Invalid")
	assert.Equal(t, time.Local, cal.Location())
	assert.Len(t, cal.Windows(), 2)
}
