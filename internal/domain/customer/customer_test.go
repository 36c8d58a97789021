package customer

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeposit(t *testing.T) {
	p, err := Parse(Deposit, Data{
		CustomerName: " Kim ",
		BirthDate:    "1960-04-02",
		Occupation:   "Retiree",
		Income:       "below3000",
	})
	require.NoError(t, err)

	assert.Equal(t, "Kim", p.Name)
	assert.Equal(t, OccupationRetiree, p.Occupation)
	assert.Equal(t, IncomeBelow3000, p.Income)
	assert.Equal(t, 65, p.Age(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Empty(t, p.Purpose)
}

func TestParseMissingFields(t *testing.T) {
	_, err := Parse(Loan, Data{CustomerName: "Lee", Occupation: "employee"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"birthDate", "income", "loanAmount", "loanPurpose"}, verr.MissingFields)
}

func TestParseDepositIgnoresLoanFields(t *testing.T) {
	_, err := Parse(Deposit, Data{CustomerName: "Lee", BirthDate: "1990", Occupation: "employee", Income: "3000to5000"})
	assert.NoError(t, err)
}

func TestParseInvalidAmountBand(t *testing.T) {
	_, err := Parse(Loan, Data{
		CustomerName: "Park",
		BirthDate:    "1985-07-20",
		Occupation:   "employee",
		Income:       "5000to7000",
		LoanAmount:   "a lot",
		LoanPurpose:  "living",
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"loanAmount"}, verr.InvalidFields)
	assert.Len(t, verr.ValidValues, len(AmountBands))
}

func TestParseInvalidBirthDate(t *testing.T) {
	_, err := Parse(Deposit, Data{CustomerName: "Choi", BirthDate: "yesterday", Occupation: "student", Income: "below3000"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"birthDate"}, verr.InvalidFields)
}

func TestParseUnknownEnumsFallBack(t *testing.T) {
	p, err := Parse(Loan, Data{
		CustomerName: "Jung",
		BirthDate:    "1979-12-01",
		Occupation:   "astronaut",
		Income:       "plenty",
		LoanAmount:   "50to100m",
		LoanPurpose:  "yacht",
	})
	require.NoError(t, err)

	assert.Equal(t, OccupationOther, p.Occupation)
	assert.Equal(t, IncomeUnknown, p.Income)
	assert.Equal(t, PurposeOther, p.Purpose)
	assert.Equal(t, Amount50to100m, p.Amount)
}

func TestParseServiceType(t *testing.T) {
	s, ok := ParseServiceType("Loan")
	assert.True(t, ok)
	assert.Equal(t, Loan, s)

	_, ok = ParseServiceType("insurance")
	assert.False(t, ok)
}

func TestParseSurvey(t *testing.T) {
	raw := json.RawMessage(`{"2": {"value": "Over 1 year", "weight": 0.25}, "0": {"selectedOption": "Emergency fund", "weight": 0.3}}`)

	s, err := ParseSurvey(raw)
	require.NoError(t, err)

	require.Len(t, s, 2)
	assert.Equal(t, SurveyAnswer{Question: 0, SelectedOption: "Emergency fund", Weight: 0.3}, s[0])
	assert.Equal(t, SurveyAnswer{Question: 2, SelectedOption: "Over 1 year", Weight: 0.25}, s[1])
}

func TestParseSurveyEmptyObject(t *testing.T) {
	s, err := ParseSurvey(json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestParseSurveyRejects(t *testing.T) {
	tests := map[string]string{
		"missing":      ``,
		"null":         `null`,
		"array":        `[1,2]`,
		"bad weight":   `{"0": {"value": "x", "weight": 1.5}}`,
		"bad question": `{"first": {"value": "x", "weight": 0.5}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSurvey(json.RawMessage(raw))
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}
