package finance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeposit_AnnualCompounding(t *testing.T) {
	res, err := Deposit(DepositInput{Principal: 10_000_000, Rate: 3.5, Years: 2, Compound: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(10_712_250), res.FinalAmount)
	assert.Equal(t, int64(712_250), res.InterestEarned)
	assert.Equal(t, 3.56, res.EffectiveRate)
	assert.Equal(t, 2.0, res.Term)
}

func TestDeposit_DefaultsCompoundToYearly(t *testing.T) {
	res, err := Deposit(DepositInput{Principal: 10_000_000, Rate: 3.5, Years: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(10_350_000), res.FinalAmount)
	assert.Equal(t, 3.5, res.EffectiveRate)
}

func TestDeposit_MonthlyEarnsMore(t *testing.T) {
	yearly, err := Deposit(DepositInput{Principal: 5_000_000, Rate: 4, Years: 3, Compound: 1})
	require.NoError(t, err)
	monthly, err := Deposit(DepositInput{Principal: 5_000_000, Rate: 4, Years: 3, Compound: 12})
	require.NoError(t, err)

	assert.Greater(t, monthly.FinalAmount, yearly.FinalAmount)
	assert.Equal(t, monthly.FinalAmount-5_000_000, monthly.InterestEarned)
}

func TestDeposit_InvalidInput(t *testing.T) {
	tests := map[string]DepositInput{
		"zero principal": {Principal: 0, Rate: 3, Years: 1},
		"zero rate":      {Principal: 1000, Rate: 0, Years: 1},
		"huge rate":      {Principal: 1000, Rate: 150, Years: 1},
		"zero years":     {Principal: 1000, Rate: 3, Years: 0},
		"long term":      {Principal: 1000, Rate: 3, Years: 51},
		"bad compound":   {Principal: 1000, Rate: 3, Years: 1, Compound: 400},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Deposit(in)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestRepayment_WithInterest(t *testing.T) {
	res, err := Repayment(RepaymentInput{Principal: 100_000_000, Rate: 4.5, Years: 30})
	require.NoError(t, err)

	assert.Equal(t, RepaymentEqual, res.RepaymentType)
	assert.InDelta(t, 506_685, res.MonthlyPayment, 2)
	assert.Greater(t, res.TotalInterest, int64(0))
	assert.InDelta(t, res.MonthlyPayment*360, res.TotalPayment, 360)

	// months 1..12 then 24, 36, ..., 360
	require.Len(t, res.Schedule, 41)
	first := res.Schedule[0]
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, int64(375_000), first.InterestPayment)
	assert.InDelta(t, res.MonthlyPayment-375_000, first.PrincipalPayment, 1)
	assert.Equal(t, 12, res.Schedule[11].Month)
	assert.Equal(t, 24, res.Schedule[12].Month)

	last := res.Schedule[len(res.Schedule)-1]
	assert.Equal(t, 360, last.Month)
	assert.InDelta(t, 0, last.RemainingBalance, 1)
}

func TestRepayment_ZeroInterest(t *testing.T) {
	res, err := Repayment(RepaymentInput{Principal: 12_000_000, Rate: 0, Years: 1, Type: "equal"})
	require.NoError(t, err)

	assert.Equal(t, int64(1_000_000), res.MonthlyPayment)
	assert.Equal(t, int64(12_000_000), res.TotalPayment)
	assert.Equal(t, int64(0), res.TotalInterest)
	require.Len(t, res.Schedule, 12)
	assert.Equal(t, int64(0), res.Schedule[11].RemainingBalance)
}

func TestRepayment_BalanceDecreases(t *testing.T) {
	res, err := Repayment(RepaymentInput{Principal: 30_000_000, Rate: 5.2, Years: 5})
	require.NoError(t, err)

	for i := 1; i < len(res.Schedule); i++ {
		assert.Less(t, res.Schedule[i].RemainingBalance, res.Schedule[i-1].RemainingBalance)
	}
}

func TestRepayment_UnsupportedType(t *testing.T) {
	_, err := Repayment(RepaymentInput{Principal: 1_000_000, Rate: 3, Years: 1, Type: "bullet"})
	assert.ErrorIs(t, err, ErrUnsupportedRepayment)
}

func TestRepayment_InvalidInput(t *testing.T) {
	tests := map[string]RepaymentInput{
		"negative amount": {Principal: -5, Rate: 3, Years: 1},
		"negative rate":   {Principal: 1000, Rate: -1, Years: 1},
		"zero years":      {Principal: 1000, Rate: 3, Years: 0},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Repayment(in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
