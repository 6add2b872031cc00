package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/assetflow/backend/internal/domain"
	"github.com/assetflow/backend/internal/repository"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func standardRate() domain.RateSnapshot {
	return domain.RateSnapshot{
		HourlyRate:            dec("50000"),
		MinimumHours:          dec("200"),
		OvertimeMultiplier:    dec("1.25"),
		StandbyMultiplier:     dec("0.5"),
		BreakdownPenaltyDaily: dec("0"),
	}
}

func TestCalculate_MonthAboveMinimum(t *testing.T) {
	b := &domain.BillingPeriod{}
	hours := &repository.HoursTotals{
		Operating: dec("220"),
		Standby:   dec("10"),
		Overtime:  dec("20"),
		Breakdown: dec("8"),
	}

	Calculate(b, hours, standardRate(), Charges{})

	assert.True(t, b.BillableHours.Equal(dec("220")), "billable = %s", b.BillableHours)
	assert.True(t, b.ShortfallHours.IsZero())
	assert.True(t, b.BaseAmount.Equal(dec("11000000")), "base = %s", b.BaseAmount)
	assert.True(t, b.StandbyAmount.Equal(dec("250000")), "standby = %s", b.StandbyAmount)
	assert.True(t, b.OvertimeAmount.Equal(dec("1250000")), "overtime = %s", b.OvertimeAmount)
	assert.True(t, b.BreakdownPenalty.IsZero())
	assert.True(t, b.Subtotal.Equal(dec("12500000")), "subtotal = %s", b.Subtotal)
	assert.True(t, b.Discount.IsZero())
	assert.True(t, b.Tax.Equal(dec("1375000")), "tax = %s", b.Tax)
	assert.True(t, b.Total.Equal(dec("13875000")), "total = %s", b.Total)
}

func TestCalculate_MinimumHoursFloor(t *testing.T) {
	b := &domain.BillingPeriod{}
	hours := &repository.HoursTotals{Operating: dec("150")}

	Calculate(b, hours, standardRate(), Charges{})

	assert.True(t, b.BillableHours.Equal(dec("200")), "minimum hours floor applies")
	assert.True(t, b.ShortfallHours.Equal(dec("50")))
	assert.True(t, b.BaseAmount.Equal(dec("10000000")))
}

func TestCalculate_BreakdownPenaltyDeducts(t *testing.T) {
	rate := standardRate()
	rate.BreakdownPenaltyDaily = dec("400000")
	b := &domain.BillingPeriod{}
	hours := &repository.HoursTotals{
		Operating: dec("200"),
		Breakdown: dec("16"), // two standard days
	}

	Calculate(b, hours, rate, Charges{})

	assert.True(t, b.BreakdownPenalty.Equal(dec("800000")), "penalty = %s", b.BreakdownPenalty)
	assert.True(t, b.Subtotal.Equal(dec("9200000")), "subtotal = %s", b.Subtotal)
}

func TestCalculate_DiscountAndManualCharges(t *testing.T) {
	b := &domain.BillingPeriod{}
	hours := &repository.HoursTotals{Operating: dec("200")}
	charges := Charges{
		Mobilization:    dec("500000"),
		Demobilization:  dec("300000"),
		OtherCharges:    dec("200000"),
		DiscountPercent: dec("10"),
	}

	Calculate(b, hours, standardRate(), charges)

	// subtotal = 10,000,000 + 1,000,000 manual charges
	assert.True(t, b.Subtotal.Equal(dec("11000000")), "subtotal = %s", b.Subtotal)
	assert.True(t, b.Discount.Equal(dec("1100000")), "discount = %s", b.Discount)
	// tax = (11,000,000 - 1,100,000) * 11%
	assert.True(t, b.Tax.Equal(dec("1089000")), "tax = %s", b.Tax)
	assert.True(t, b.Total.Equal(dec("10989000")), "total = %s", b.Total)
}

func TestCalculate_TaxOverride(t *testing.T) {
	zero := decimal.Zero
	b := &domain.BillingPeriod{}
	hours := &repository.HoursTotals{Operating: dec("200")}

	Calculate(b, hours, standardRate(), Charges{TaxPercent: &zero})

	assert.True(t, b.Tax.IsZero())
	assert.True(t, b.Total.Equal(b.Subtotal))
}

func TestCalculate_SnapshotsRateAndHours(t *testing.T) {
	b := &domain.BillingPeriod{}
	rate := standardRate()
	hours := &repository.HoursTotals{Operating: dec("210"), Standby: dec("5")}

	Calculate(b, hours, rate, Charges{})

	assert.True(t, b.Rate.HourlyRate.Equal(rate.HourlyRate))
	assert.True(t, b.OperatingHours.Equal(dec("210")))
	assert.True(t, b.StandbyHours.Equal(dec("5")))
}
