package loan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var standardTerms = Terms{AnnualRate: 0.04, TermMonths: 360}
var rangeTerms = Terms{AnnualRate: 0.04, TermMonths: 240}

func TestComputeAffordability_UnregulatedScenario(t *testing.T) {
	// asset 3.5, price 15.5, 70% ceiling
	res, err := ComputeAffordability(3.5, 15.5, RateUnregulated, standardTerms)
	require.NoError(t, err)

	assert.InDelta(t, 10.85, res.MaxLoanAmount, 1e-9)
	assert.InDelta(t, 4.65, res.DownPayment, 1e-9)
	assert.InDelta(t, 1.15, res.AdditionalFundNeeded, 1e-9)

	// Independently computed annuity reference for P=10.85, 4%/12, 360 months.
	const refMonthly = 0.05179955955800174
	assert.InEpsilon(t, refMonthly, res.MonthlyPayment, 1e-6)
}

func TestComputeAffordability_RegulatedAssetCoversDownPayment(t *testing.T) {
	// asset 10, price 15.5, 40% ceiling: down payment 9.3 is covered.
	res, err := ComputeAffordability(10, 15.5, RateRegulated, standardTerms)
	require.NoError(t, err)

	assert.InDelta(t, 6.2, res.MaxLoanAmount, 1e-9)
	assert.InDelta(t, 9.3, res.DownPayment, 1e-9)
	assert.Zero(t, res.AdditionalFundNeeded)
}

func TestComputeAffordability_LoanPlusDownPaymentEqualsPrice(t *testing.T) {
	prices := []float64{0.1, 1, 7.3, 15.5, 30, 123.45}
	for _, price := range prices {
		for _, rate := range []float64{RateRegulated, RateUnregulated} {
			res, err := ComputeAffordability(0, price, rate, standardTerms)
			require.NoError(t, err)
			assert.InDelta(t, price, res.MaxLoanAmount+res.DownPayment, 1e-9,
				"price %v rate %v", price, rate)
		}
	}
}

func TestComputeAffordability_ShortfallExact(t *testing.T) {
	// asset = 0 -> shortfall equals the down payment exactly.
	res, err := ComputeAffordability(0, 15.5, RateUnregulated, standardTerms)
	require.NoError(t, err)
	assert.Equal(t, res.DownPayment, res.AdditionalFundNeeded)

	// asset below the down payment -> exact difference.
	res, err = ComputeAffordability(2, 15.5, RateUnregulated, standardTerms)
	require.NoError(t, err)
	assert.InDelta(t, res.DownPayment-2, res.AdditionalFundNeeded, 1e-12)

	// asset at or above the down payment -> zero, never negative.
	res, err = ComputeAffordability(res.DownPayment+3, 15.5, RateUnregulated, standardTerms)
	require.NoError(t, err)
	assert.Zero(t, res.AdditionalFundNeeded)
}

func TestComputeAffordability_RateMonotonicity(t *testing.T) {
	low, err := ComputeAffordability(5, 15.5, RateRegulated, standardTerms)
	require.NoError(t, err)
	high, err := ComputeAffordability(5, 15.5, RateUnregulated, standardTerms)
	require.NoError(t, err)

	assert.Greater(t, high.MaxLoanAmount, low.MaxLoanAmount)
	assert.Less(t, high.DownPayment, low.DownPayment)
	assert.Greater(t, high.MonthlyPayment, low.MonthlyPayment)
}

func TestComputeAffordability_InvalidInput(t *testing.T) {
	cases := []struct {
		name          string
		asset, price  float64
		rate          float64
	}{
		{"zero price", 1, 0, RateUnregulated},
		{"negative price", 1, -3, RateUnregulated},
		{"nan price", 1, math.NaN(), RateUnregulated},
		{"inf price", 1, math.Inf(1), RateUnregulated},
		{"negative asset", -1, 10, RateUnregulated},
		{"nan asset", math.NaN(), 10, RateUnregulated},
		{"intermediate ltv", 1, 10, 0.55},
		{"zero ltv", 1, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeAffordability(tc.asset, tc.price, tc.rate, standardTerms)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestAnnuityPayment_ZeroRateDegeneratesToStraightDivision(t *testing.T) {
	assert.InDelta(t, 100.0, AnnuityPayment(1200, 0, 12), 1e-12)
	assert.Zero(t, AnnuityPayment(0, 0.04/12, 360))
	assert.Zero(t, AnnuityPayment(100, 0.01, 0))
}

func TestAnnuityPayment_MatchesReference(t *testing.T) {
	got := AnnuityPayment(10.85, 0.04/12, 360)
	assert.InEpsilon(t, 0.05179955955800174, got, 1e-6)
}

func TestComputeRange_LoanNeverBelowRegulatoryFloor(t *testing.T) {
	const price = 15.5
	for _, firstTime := range []bool{false, true} {
		floor := price * RateRegulated
		if firstTime {
			floor = price * RateUnregulated
		}
		// Sweep the slider across the full 0..100% split.
		for pct := 0.0; pct <= 100.0; pct += 2.5 {
			res, err := ComputeRange(price, price*pct/100, firstTime, rangeTerms)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.ActualLoanAmount+1e-12, floor,
				"slider %.1f%% firstTime=%v", pct, firstTime)
			assert.LessOrEqual(t, res.ActualAsset, price)
		}
	}
}

func TestComputeRange_AssetClampedToPrice(t *testing.T) {
	res, err := ComputeRange(15.5, 40, false, rangeTerms)
	require.NoError(t, err)
	assert.InDelta(t, 15.5, res.ActualAsset, 1e-9)
	// Even with the price fully covered, the loan holds at the regulatory floor.
	assert.InDelta(t, 15.5*RateRegulated, res.ActualLoanAmount, 1e-9)
}

func TestComputeRange_TotalInterest(t *testing.T) {
	// price 15.5, asset 3.5, standard tier: loan = max(6.2, 12) = 12.
	res, err := ComputeRange(15.5, 3.5, false, rangeTerms)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, res.ActualLoanAmount, 1e-9)
	assert.InEpsilon(t, 0.07271763951592913, res.MonthlyPayment, 1e-6)
	assert.InEpsilon(t, 5.452233483822994, res.TotalInterest, 1e-6)
	assert.Equal(t, 40, res.LtvPercent)

	// Total interest is consistent with the schedule identity.
	assert.InDelta(t, res.MonthlyPayment*240-res.ActualLoanAmount, res.TotalInterest, 1e-9)
}

func TestComputeRange_FirstTimeBuyerToggle(t *testing.T) {
	standard, err := ComputeRange(15.5, 3.5, false, rangeTerms)
	require.NoError(t, err)
	relaxed, err := ComputeRange(15.5, 3.5, true, rangeTerms)
	require.NoError(t, err)

	assert.Equal(t, 40, standard.LtvPercent)
	assert.Equal(t, 70, relaxed.LtvPercent)
	assert.Greater(t, relaxed.MaxLoanAmount, standard.MaxLoanAmount)
}

func TestRateForRegion(t *testing.T) {
	assert.Equal(t, RateRegulated, RateForRegion(true))
	assert.Equal(t, RateUnregulated, RateForRegion(false))
}
