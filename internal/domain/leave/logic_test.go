package leave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTotalCalendarDays(t *testing.T) {
	assert.Equal(t, 1, TotalCalendarDays(day(2025, 1, 10), day(2025, 1, 10)))
	assert.Equal(t, 3, TotalCalendarDays(day(2025, 1, 10), day(2025, 1, 12)))
	assert.Equal(t, 0, TotalCalendarDays(day(2025, 2, 10), day(2025, 2, 9)))
}

func TestTotalCalendarDaysIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	end := time.Date(2025, 3, 2, 0, 15, 0, 0, time.UTC)
	assert.Equal(t, 2, TotalCalendarDays(start, end))
}

func TestRangesOverlap(t *testing.T) {
	assert.True(t, RangesOverlap(day(2025, 1, 1), day(2025, 1, 5), day(2025, 1, 5), day(2025, 1, 8)))
	assert.False(t, RangesOverlap(day(2025, 1, 1), day(2025, 1, 4), day(2025, 1, 5), day(2025, 1, 8)))
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 24, MonthsBetween(day(2019, 1, 4), day(2021, 1, 4)))
	assert.Equal(t, 23, MonthsBetween(day(2019, 1, 5), day(2021, 1, 4)))
	assert.Equal(t, 0, MonthsBetween(day(2021, 1, 5), day(2021, 1, 4)))
}
