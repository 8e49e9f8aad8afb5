// Package loan implements the affordability calculator: given a
// property price, available capital, and an LTV ceiling it derives the
// maximum loan, required down payment, funding shortfall, and the
// level-payment amortization schedule. All functions are pure; the
// historical log lives in services.
package loan

import (
	"errors"
	"fmt"
	"math"
)

// Two-tier regulatory LTV ceiling. There are no intermediate values.
const (
	RateRegulated   = 0.40
	RateUnregulated = 0.70
)

var ErrInvalidInput = errors.New("invalid loan input")

// Terms holds the amortization policy. The observed product uses 4%
// annual with a 360-month term in the standalone calculator and a
// 240-month term in the range variant, so both are injected rather
// than hard-coded.
type Terms struct {
	AnnualRate float64
	TermMonths int
}

// MonthlyRate is the nominal periodic rate.
func (t Terms) MonthlyRate() float64 {
	return t.AnnualRate / 12
}

func (t Terms) validate() error {
	if t.TermMonths <= 0 {
		return fmt.Errorf("%w: term must be positive, got %d months", ErrInvalidInput, t.TermMonths)
	}
	if t.AnnualRate < 0 || math.IsNaN(t.AnnualRate) || math.IsInf(t.AnnualRate, 0) {
		return fmt.Errorf("%w: annual rate %v", ErrInvalidInput, t.AnnualRate)
	}
	return nil
}

// Result is the outcome of one affordability computation. It is
// immutable; a changed input produces a new Result.
type Result struct {
	MaxLoanAmount        float64 `json:"max_loan_amount"`
	DownPayment          float64 `json:"down_payment"`
	AdditionalFundNeeded float64 `json:"additional_fund_needed"`
	MonthlyPayment       float64 `json:"monthly_payment"`
}

// RangeResult is the outcome of the interactive capital/loan split
// variant, where the user chooses how much of the price to cover with
// their own capital.
type RangeResult struct {
	ApartmentPrice   float64 `json:"apartment_price"`
	MaxLoanAmount    float64 `json:"max_loan_amount"`
	ActualAsset      float64 `json:"actual_asset"`
	ActualLoanAmount float64 `json:"actual_loan_amount"`
	AssetRatio       float64 `json:"asset_ratio"`
	LoanRatio        float64 `json:"loan_ratio"`
	MonthlyPayment   float64 `json:"monthly_payment"`
	TotalInterest    float64 `json:"total_interest"`
	LtvPercent       int     `json:"ltv_percent"`
}

// RateForRegion maps the regulated-region flag to the applicable LTV
// ceiling: 40% in regulated areas, 70% elsewhere.
func RateForRegion(isRegulated bool) float64 {
	if isRegulated {
		return RateRegulated
	}
	return RateUnregulated
}

func validRate(ltvRate float64) bool {
	return ltvRate == RateRegulated || ltvRate == RateUnregulated
}

// ComputeAffordability derives the maximum loan at the given LTV
// ceiling and the funding gap against the buyer's assets.
//
// The arithmetic itself is total; invalid input (non-positive or
// non-finite price, negative asset, an LTV outside the two regulatory
// tiers) is rejected here instead of letting NaN propagate.
func ComputeAffordability(asset, price, ltvRate float64, terms Terms) (Result, error) {
	if err := terms.validate(); err != nil {
		return Result{}, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return Result{}, fmt.Errorf("%w: price must be a positive finite number, got %v", ErrInvalidInput, price)
	}
	if math.IsNaN(asset) || math.IsInf(asset, 0) || asset < 0 {
		return Result{}, fmt.Errorf("%w: asset must be a non-negative finite number, got %v", ErrInvalidInput, asset)
	}
	if !validRate(ltvRate) {
		return Result{}, fmt.Errorf("%w: ltv rate must be %.2f or %.2f, got %v", ErrInvalidInput, RateRegulated, RateUnregulated, ltvRate)
	}

	maxLoanAmount := price * ltvRate
	downPayment := price - maxLoanAmount
	additionalFundNeeded := math.Max(0, downPayment-asset)
	monthlyPayment := AnnuityPayment(maxLoanAmount, terms.MonthlyRate(), terms.TermMonths)

	return Result{
		MaxLoanAmount:        maxLoanAmount,
		DownPayment:          downPayment,
		AdditionalFundNeeded: additionalFundNeeded,
		MonthlyPayment:       monthlyPayment,
	}, nil
}

// AnnuityPayment returns the fixed installment that amortizes
// principal p over n months at monthly rate r:
//
//	p * r * (1+r)^n / ((1+r)^n - 1)
//
// A zero rate degenerates to straight division p/n.
func AnnuityPayment(p, r float64, n int) float64 {
	if n <= 0 || p == 0 {
		return 0
	}
	if r == 0 {
		return p / float64(n)
	}
	pow := math.Pow(1+r, float64(n))
	return p * r * pow / (pow - 1)
}

// ComputeRange evaluates the slider variant: the user picks a capital
// amount, and the loan covers the rest of the price but never drops
// below the regulatory ceiling's implied loan (the ceiling acts as a
// floor on the loan here, not a cap). The first-time-buyer toggle
// switches the ceiling between the relaxed 70% and the standard 40%
// without touching the stored record.
func ComputeRange(price, chosenAsset float64, firstTimeBuyer bool, terms Terms) (RangeResult, error) {
	if err := terms.validate(); err != nil {
		return RangeResult{}, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return RangeResult{}, fmt.Errorf("%w: price must be a positive finite number, got %v", ErrInvalidInput, price)
	}
	if math.IsNaN(chosenAsset) || math.IsInf(chosenAsset, 0) {
		return RangeResult{}, fmt.Errorf("%w: chosen asset %v", ErrInvalidInput, chosenAsset)
	}

	ltvRate := RateRegulated
	if firstTimeBuyer {
		ltvRate = RateUnregulated
	}

	maxLoanAmount := price * ltvRate
	actualAsset := math.Min(math.Max(chosenAsset, 0), price)
	actualLoanAmount := math.Max(maxLoanAmount, price-actualAsset)

	monthlyPayment := AnnuityPayment(actualLoanAmount, terms.MonthlyRate(), terms.TermMonths)
	totalInterest := monthlyPayment*float64(terms.TermMonths) - actualLoanAmount

	return RangeResult{
		ApartmentPrice:   price,
		MaxLoanAmount:    maxLoanAmount,
		ActualAsset:      actualAsset,
		ActualLoanAmount: actualLoanAmount,
		AssetRatio:       clampRatio(actualAsset / price * 100),
		LoanRatio:        clampRatio(actualLoanAmount / price * 100),
		MonthlyPayment:   monthlyPayment,
		TotalInterest:    totalInterest,
		LtvPercent:       int(math.Round(ltvRate * 100)),
	}, nil
}

func clampRatio(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
