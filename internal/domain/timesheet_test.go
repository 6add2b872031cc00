package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeDerived_OvertimeAboveStandardDay(t *testing.T) {
	ts := &RentalTimesheet{OperatingHours: decimal.NewFromInt(10)}
	ts.ComputeDerived()
	assert.True(t, ts.OvertimeHours.Equal(decimal.NewFromInt(2)),
		"overtime = %s", ts.OvertimeHours)
}

func TestComputeDerived_NoNegativeOvertime(t *testing.T) {
	ts := &RentalTimesheet{OperatingHours: decimal.NewFromInt(6)}
	ts.ComputeDerived()
	assert.True(t, ts.OvertimeHours.IsZero())
}

func TestComputeDerived_ExactStandardDay(t *testing.T) {
	ts := &RentalTimesheet{OperatingHours: decimal.NewFromInt(8)}
	ts.ComputeDerived()
	assert.True(t, ts.OvertimeHours.IsZero())
}

func TestComputeDerived_HmKmUsage(t *testing.T) {
	start := decimal.NewFromInt(1200)
	end := decimal.NewFromInt(1250)
	ts := &RentalTimesheet{HmKmStart: &start, HmKmEnd: &end}
	ts.ComputeDerived()
	assert.NotNil(t, ts.HmKmUsage)
	assert.True(t, ts.HmKmUsage.Equal(decimal.NewFromInt(50)))
}

func TestComputeDerived_HmKmUsageSkippedWhenIncomplete(t *testing.T) {
	start := decimal.NewFromInt(1200)
	ts := &RentalTimesheet{HmKmStart: &start}
	ts.ComputeDerived()
	assert.Nil(t, ts.HmKmUsage)
}
