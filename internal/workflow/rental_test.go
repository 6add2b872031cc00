package workflow

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalendarDays(t *testing.T) {
	assert.Equal(t, 6, calendarDays(day("2024-01-01"), day("2024-01-07")))
	assert.Equal(t, 1, calendarDays(day("2024-01-01"), day("2024-01-02")))
	assert.Equal(t, 0, calendarDays(day("2024-01-01"), day("2024-01-01")))
	assert.Equal(t, 0, calendarDays(day("2024-01-02"), day("2024-01-01")))
}

func TestCalendarDays_IgnoresTimeOfDay(t *testing.T) {
	a := day("2024-01-01").Add(23 * time.Hour)
	b := day("2024-01-02").Add(1 * time.Hour)
	assert.Equal(t, 1, calendarDays(a, b))
}

// Mirrors the return charge math: daily_rate=100, start=Jan 1,
// expected_end=Jan 5, returned Jan 7. The return day counts, so the span
// is 7 rental days with 2 overdue days.
func TestReturnCharges_OverduePenalty(t *testing.T) {
	dailyRate := decimal.NewFromInt(100)
	start := day("2024-01-01")
	expectedEnd := day("2024-01-05")
	returnedAt := day("2024-01-07")

	totalDays := calendarDays(start, returnedAt) + 1
	assert.Equal(t, 7, totalDays)

	subtotal := dailyRate.Mul(decimal.NewFromInt(int64(totalDays)))
	assert.True(t, subtotal.Equal(decimal.NewFromInt(700)))

	overdueDays := calendarDays(expectedEnd, returnedAt)
	assert.Equal(t, 2, overdueDays)

	penalty := dailyRate.Mul(overdueRateFraction).Mul(decimal.NewFromInt(int64(overdueDays)))
	assert.True(t, penalty.Equal(decimal.NewFromInt(20)), "penalty = %s", penalty)

	total := subtotal.Add(penalty)
	assert.True(t, total.Equal(decimal.NewFromInt(720)), "total = %s", total)
}

func TestReturnCharges_OnTimeHasNoPenalty(t *testing.T) {
	expectedEnd := day("2024-01-05")
	assert.Equal(t, 0, calendarDays(expectedEnd, day("2024-01-04")))
	assert.Equal(t, 0, calendarDays(expectedEnd, expectedEnd))
}

func TestNumberFor_Shape(t *testing.T) {
	now := day("2024-03-15")
	n := numberFor("LN", now)

	parts := strings.Split(n, "-")
	assert.Len(t, parts, 3)
	assert.Equal(t, "LN", parts[0])
	assert.Equal(t, "20240315", parts[1])
	assert.Len(t, parts[2], 6)
	assert.Equal(t, strings.ToUpper(parts[2]), parts[2])
}

func TestNumberFor_Unique(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := numberFor("RN", now)
		assert.False(t, seen[n], "duplicate number %s", n)
		seen[n] = true
	}
}
