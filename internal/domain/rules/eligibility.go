package rules

import (
	"time"

	"github.com/bryanwahyu/bank-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
)

const (
	MinLoanAge        = 20
	MaxLoanAge        = 70
	BaseCreditScore   = 600
	EligibilityCutoff = 650
	minReportedScore  = 300
	maxReportedScore  = 950
)

var incomeCreditBonus = map[customer.IncomeBand]int{
	customer.IncomeBelow3000:   50,
	customer.Income3000to5000:  100,
	customer.Income5000to7000:  150,
	customer.Income7000to10000: 200,
	customer.IncomeAbove10000:  250,
}

var occupationCreditBonus = map[customer.Occupation]int{
	customer.OccupationPublic:       100,
	customer.OccupationEmployee:     80,
	customer.OccupationProfessional: 60,
	customer.OccupationBusiness:     40,
	customer.OccupationFreelancer:   20,
	customer.OccupationStudent:      -50,
}

// CheckEligibility runs the loan pre-check. It is a hard gate: an ineligible
// customer is never profiled.
func CheckEligibility(p customer.Profile, now time.Time) advisory.Eligibility {
	age := p.Age(now)
	if age < MinLoanAge || age > MaxLoanAge {
		return advisory.Eligibility{
			Eligible: false,
			Age:      age,
			Score:    0,
			Reason:   "Applicant age is outside the eligible range (20-70).",
		}
	}

	score := BaseCreditScore + incomeCreditBonus[p.Income] + occupationCreditBonus[p.Occupation]
	e := advisory.Eligibility{
		Eligible: score >= EligibilityCutoff,
		Age:      age,
		Score:    clamp(score, minReportedScore, maxReportedScore),
		Reason:   "Basic requirements are met.",
	}
	if !e.Eligible {
		e.Reason = "Credit or income requirements are not met."
	}
	return e
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
