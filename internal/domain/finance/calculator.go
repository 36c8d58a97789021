// Package finance has the kiosk's deposit and loan calculators. Amounts are
// in KRW and rounded to whole won.
package finance

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput         = errors.New("invalid calculation input")
	ErrUnsupportedRepayment = errors.New("only equal repayment type is currently supported")
)

const (
	MaxPrincipal = 10_000_000_000_000
	MaxRate      = 100
	MaxYears     = 50
)

const RepaymentEqual = "equal"

type DepositInput struct {
	Principal float64
	Rate      float64 // annual, percent
	Years     float64
	Compound  int // compounding periods per year
}

type DepositResult struct {
	Principal      float64 `json:"principal"`
	FinalAmount    int64   `json:"finalAmount"`
	InterestEarned int64   `json:"interestEarned"`
	EffectiveRate  float64 `json:"effectiveRate"`
	Term           float64 `json:"term"`
	Rate           float64 `json:"rate"`
}

// Deposit computes principal*(1+r/n)^(n*years). EffectiveRate is the
// average simple annual yield in percent.
func Deposit(in DepositInput) (DepositResult, error) {
	if in.Compound == 0 {
		in.Compound = 1
	}
	switch {
	case in.Principal <= 0 || in.Principal > MaxPrincipal:
		return DepositResult{}, fmt.Errorf("%w: amount must be between 1 and %d", ErrInvalidInput, int64(MaxPrincipal))
	case in.Rate <= 0 || in.Rate > MaxRate:
		return DepositResult{}, fmt.Errorf("%w: rate must be between 0 and %d", ErrInvalidInput, MaxRate)
	case in.Years <= 0 || in.Years > MaxYears:
		return DepositResult{}, fmt.Errorf("%w: term must be between 0 and %d years", ErrInvalidInput, MaxYears)
	case in.Compound < 0 || in.Compound > 365:
		return DepositResult{}, fmt.Errorf("%w: compound must be between 1 and 365", ErrInvalidInput)
	}

	n := float64(in.Compound)
	growth := math.Pow(1+in.Rate/100/n, n*in.Years)

	principal := decimal.NewFromFloat(in.Principal)
	final := principal.Mul(decimal.NewFromFloat(growth))
	interest := final.Sub(principal)
	effective := final.Div(principal).Sub(decimal.NewFromInt(1)).
		Div(decimal.NewFromFloat(in.Years)).
		Mul(decimal.NewFromInt(100))

	return DepositResult{
		Principal:      in.Principal,
		FinalAmount:    final.Round(0).IntPart(),
		InterestEarned: interest.Round(0).IntPart(),
		EffectiveRate:  effective.Round(2).InexactFloat64(),
		Term:           in.Years,
		Rate:           in.Rate,
	}, nil
}

type RepaymentInput struct {
	Principal float64
	Rate      float64 // annual, percent
	Years     int
	Type      string
}

type ScheduleRow struct {
	Month            int   `json:"month"`
	MonthlyPayment   int64 `json:"monthlyPayment"`
	PrincipalPayment int64 `json:"principalPayment"`
	InterestPayment  int64 `json:"interestPayment"`
	RemainingBalance int64 `json:"remainingBalance"`
}

type RepaymentResult struct {
	LoanAmount     float64       `json:"loanAmount"`
	InterestRate   float64       `json:"interestRate"`
	TermYears      int           `json:"termYears"`
	RepaymentType  string        `json:"repaymentType"`
	MonthlyPayment int64         `json:"monthlyPayment"`
	TotalPayment   int64         `json:"totalPayment"`
	TotalInterest  int64         `json:"totalInterest"`
	Schedule       []ScheduleRow `json:"schedule"`
}

// Repayment simulates an equal-installment loan. The schedule keeps the
// first twelve months and then every twelfth month.
func Repayment(in RepaymentInput) (RepaymentResult, error) {
	if in.Type == "" {
		in.Type = RepaymentEqual
	}
	switch {
	case in.Principal <= 0 || in.Principal > MaxPrincipal:
		return RepaymentResult{}, fmt.Errorf("%w: amount must be between 1 and %d", ErrInvalidInput, int64(MaxPrincipal))
	case in.Rate < 0 || in.Rate > MaxRate:
		return RepaymentResult{}, fmt.Errorf("%w: rate must be between 0 and %d", ErrInvalidInput, MaxRate)
	case in.Years <= 0 || in.Years > MaxYears:
		return RepaymentResult{}, fmt.Errorf("%w: term must be between 1 and %d years", ErrInvalidInput, MaxYears)
	case in.Type != RepaymentEqual:
		return RepaymentResult{}, ErrUnsupportedRepayment
	}

	months := in.Years * 12
	principal := decimal.NewFromFloat(in.Principal)
	monthlyRate := decimal.NewFromFloat(in.Rate).Div(decimal.NewFromInt(1200))

	var payment decimal.Decimal
	if monthlyRate.IsZero() {
		payment = principal.Div(decimal.NewFromInt(int64(months)))
	} else {
		r := monthlyRate.InexactFloat64()
		factor := r * math.Pow(1+r, float64(months)) / (math.Pow(1+r, float64(months)) - 1)
		payment = principal.Mul(decimal.NewFromFloat(factor))
	}

	remaining := principal
	schedule := make([]ScheduleRow, 0, 12+in.Years)
	for month := 1; month <= months; month++ {
		interest := remaining.Mul(monthlyRate)
		principalPart := payment.Sub(interest)
		remaining = remaining.Sub(principalPart)

		if month <= 12 || month%12 == 0 {
			balance := remaining
			if balance.IsNegative() {
				balance = decimal.Zero
			}
			schedule = append(schedule, ScheduleRow{
				Month:            month,
				MonthlyPayment:   payment.Round(0).IntPart(),
				PrincipalPayment: principalPart.Round(0).IntPart(),
				InterestPayment:  interest.Round(0).IntPart(),
				RemainingBalance: balance.Round(0).IntPart(),
			})
		}
	}

	total := payment.Mul(decimal.NewFromInt(int64(months)))
	return RepaymentResult{
		LoanAmount:     in.Principal,
		InterestRate:   in.Rate,
		TermYears:      in.Years,
		RepaymentType:  in.Type,
		MonthlyPayment: payment.Round(0).IntPart(),
		TotalPayment:   total.Round(0).IntPart(),
		TotalInterest:  total.Sub(principal).Round(0).IntPart(),
		Schedule:       schedule,
	}, nil
}
