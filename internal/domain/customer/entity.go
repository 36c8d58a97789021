package customer

import (
	"strings"
	"time"
)

// ServiceType selects the catalog, eligibility rules and prompt templates.
type ServiceType string

const (
	Deposit ServiceType = "deposit"
	Loan    ServiceType = "loan"
)

func ParseServiceType(s string) (ServiceType, bool) {
	switch ServiceType(strings.ToLower(strings.TrimSpace(s))) {
	case Deposit:
		return Deposit, true
	case Loan:
		return Loan, true
	}
	return "", false
}

type Occupation string

const (
	OccupationPublic       Occupation = "public"
	OccupationEmployee     Occupation = "employee"
	OccupationProfessional Occupation = "professional"
	OccupationBusiness     Occupation = "business"
	OccupationFreelancer   Occupation = "freelancer"
	OccupationStudent      Occupation = "student"
	OccupationRetiree      Occupation = "retiree"
	OccupationHousewife    Occupation = "housewife"
	OccupationOther        Occupation = "other"
)

var occupations = []Occupation{
	OccupationPublic, OccupationEmployee, OccupationProfessional, OccupationBusiness,
	OccupationFreelancer, OccupationStudent, OccupationRetiree, OccupationHousewife,
}

// ParseOccupation maps unknown values to OccupationOther.
func ParseOccupation(s string) Occupation {
	v := Occupation(strings.ToLower(strings.TrimSpace(s)))
	for _, o := range occupations {
		if v == o {
			return o
		}
	}
	return OccupationOther
}

type IncomeBand string

const (
	IncomeBelow3000   IncomeBand = "below3000"
	Income3000to5000  IncomeBand = "3000to5000"
	Income5000to7000  IncomeBand = "5000to7000"
	Income7000to10000 IncomeBand = "7000to10000"
	IncomeAbove10000  IncomeBand = "above10000"
	IncomeUnknown     IncomeBand = "unknown"
)

var incomeBands = []IncomeBand{
	IncomeBelow3000, Income3000to5000, Income5000to7000, Income7000to10000, IncomeAbove10000,
}

// ParseIncomeBand maps unknown values to IncomeUnknown.
func ParseIncomeBand(s string) IncomeBand {
	v := IncomeBand(strings.ToLower(strings.TrimSpace(s)))
	for _, b := range incomeBands {
		if v == b {
			return b
		}
	}
	return IncomeUnknown
}

type LoanPurpose string

const (
	PurposeHousePurchase LoanPurpose = "house_purchase"
	PurposeHouseLease    LoanPurpose = "house_lease"
	PurposeBusiness      LoanPurpose = "business"
	PurposeLiving        LoanPurpose = "living"
	PurposeInvestment    LoanPurpose = "investment"
	PurposeOther         LoanPurpose = "other"
)

var loanPurposes = []LoanPurpose{
	PurposeHousePurchase, PurposeHouseLease, PurposeBusiness, PurposeLiving, PurposeInvestment,
}

// ParseLoanPurpose maps unknown values to PurposeOther.
func ParseLoanPurpose(s string) LoanPurpose {
	v := LoanPurpose(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range loanPurposes {
		if v == p {
			return p
		}
	}
	return PurposeOther
}

// IsHousing reports whether the purpose is backed by residential property.
func (p LoanPurpose) IsHousing() bool {
	return p == PurposeHousePurchase || p == PurposeHouseLease
}

type AmountBand string

const (
	AmountBelow10m  AmountBand = "below10m"
	Amount10to50m   AmountBand = "10to50m"
	Amount50to100m  AmountBand = "50to100m"
	Amount100to300m AmountBand = "100to300m"
	AmountAbove300m AmountBand = "above300m"
)

// AmountBands lists the accepted loan amount bands in ascending order.
var AmountBands = []AmountBand{
	AmountBelow10m, Amount10to50m, Amount50to100m, Amount100to300m, AmountAbove300m,
}

// ParseAmountBand is strict: there is no fallback variant for amounts.
func ParseAmountBand(s string) (AmountBand, bool) {
	v := AmountBand(strings.ToLower(strings.TrimSpace(s)))
	for _, b := range AmountBands {
		if v == b {
			return b, true
		}
	}
	return "", false
}

// Profile is the validated customer declaration for a single request.
type Profile struct {
	Name          string
	BirthDate     time.Time
	AccountNumber string
	Occupation    Occupation
	Income        IncomeBand
	Purpose       LoanPurpose // loan only
	Amount        AmountBand  // loan only
}

// Age is the calendar-year difference between now and the birth year.
func (p Profile) Age(now time.Time) int {
	return now.Year() - p.BirthDate.Year()
}
