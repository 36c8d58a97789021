// Package rules holds the deterministic fallback used whenever the language
// model cannot produce a usable answer. Everything here is pure: same input,
// same output, no I/O.
package rules

import (
	"fmt"
	"time"

	"github.com/bryanwahyu/bank-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
)

const (
	DepositConfidence = 0.7
	LoanConfidence    = 0.6
)

type depositRule struct {
	tags []string
	risk advisory.RiskLevel
}

var depositRules = map[customer.Occupation]depositRule{
	customer.OccupationRetiree:    {[]string{"stability-seeking", "principal-protection", "long-term-savings"}, advisory.RiskLow},
	customer.OccupationBusiness:   {[]string{"profit-focused", "active-investment"}, advisory.RiskMedium},
	customer.OccupationStudent:    {[]string{"small-savings", "short-term-preference"}, advisory.RiskLow},
	customer.OccupationEmployee:   {[]string{"stability-seeking", "regular-saving"}, advisory.RiskLow},
	customer.OccupationHousewife:  {[]string{"household-management", "safety-oriented"}, advisory.RiskLow},
	customer.OccupationFreelancer: {[]string{"liquidity-focused", "variable-income"}, advisory.RiskMedium},
}

var defaultDepositRule = depositRule{[]string{"general-customer"}, advisory.RiskLow}

type loanRule struct {
	tags   []string
	risk   advisory.RiskLevel
	credit advisory.CreditAssessment
}

var loanRules = map[customer.Occupation]loanRule{
	customer.OccupationPublic:       {[]string{"excellent-credit", "stable-income", "public-sector-preferred"}, advisory.RiskLow, advisory.CreditExcellent},
	customer.OccupationEmployee:     {[]string{"excellent-credit", "stable-income"}, advisory.RiskLow, advisory.CreditGood},
	customer.OccupationProfessional: {[]string{"professional", "high-income-expected"}, advisory.RiskLow, advisory.CreditGood},
	customer.OccupationBusiness:     {[]string{"business-owner", "income-volatility", "collateral-required"}, advisory.RiskMedium, advisory.CreditFair},
	customer.OccupationFreelancer:   {[]string{"freelancer", "unstable-income"}, advisory.RiskHigh, advisory.CreditFair},
	customer.OccupationStudent:      {[]string{"student", "limited-income"}, advisory.RiskHigh, advisory.CreditPoor},
}

var defaultLoanRule = loanRule{[]string{"general-customer", "basic-screening"}, advisory.RiskMedium, advisory.CreditFair}

// Profile builds the rule-based analysis for a validated customer.
func Profile(service customer.ServiceType, p customer.Profile, now time.Time) advisory.AnalysisResult {
	if service == customer.Loan {
		return profileLoan(p, now)
	}
	return profileDeposit(p, now)
}

func profileDeposit(p customer.Profile, now time.Time) advisory.AnalysisResult {
	rule, ok := depositRules[p.Occupation]
	if !ok {
		rule = defaultDepositRule
	}
	tags := newTagSet(rule.tags...)
	risk := rule.risk

	// Risk here is the customer's appetite for return, so a larger income
	// raises it.
	switch p.Income {
	case customer.IncomeAbove10000:
		tags.add("high-value-investment")
		risk = risk.Raise()
	case customer.IncomeBelow3000:
		tags.add("small-savings")
		risk = risk.Lower()
	}

	return advisory.AnalysisResult{
		CustomerType:         fmt.Sprintf("%s_%s_backup", p.Occupation, p.Income),
		Characteristics:      tags.list(),
		RecommendationReason: "Backup analysis based on the customer's occupation and income.",
		RiskLevel:            risk,
		Confidence:           DepositConfidence,
		IsBackup:             true,
		Timestamp:            now,
	}
}

func profileLoan(p customer.Profile, now time.Time) advisory.AnalysisResult {
	rule, ok := loanRules[p.Occupation]
	if !ok {
		rule = defaultLoanRule
	}
	tags := newTagSet(rule.tags...)
	risk := rule.risk

	switch p.Income {
	case customer.IncomeAbove10000:
		tags.add("high-income", "preferred-customer")
		risk = risk.Lower()
	case customer.IncomeBelow3000:
		tags.add("low-income", "careful-screening")
		risk = risk.Raise()
	}

	switch {
	case p.Purpose.IsHousing():
		tags.add("housing-related", "collateral-available")
	case p.Purpose == customer.PurposeBusiness:
		tags.add("business-purpose", "profitability-review")
	}

	return advisory.AnalysisResult{
		CustomerType:         fmt.Sprintf("%s_%s_backup", p.Occupation, risk),
		Characteristics:      tags.list(),
		RecommendationReason: "Backup loan analysis based on occupation, income and loan purpose.",
		RiskLevel:            risk,
		CreditAssessment:     rule.credit,
		Confidence:           LoanConfidence,
		IsBackup:             true,
		Timestamp:            now,
	}
}

// tagSet keeps insertion order and drops duplicates.
type tagSet struct {
	seen  map[string]bool
	order []string
}

func newTagSet(tags ...string) *tagSet {
	s := &tagSet{seen: make(map[string]bool)}
	s.add(tags...)
	return s
}

func (s *tagSet) add(tags ...string) {
	for _, t := range tags {
		if !s.seen[t] {
			s.seen[t] = true
			s.order = append(s.order, t)
		}
	}
}

func (s *tagSet) list() []string {
	return append([]string(nil), s.order...)
}
