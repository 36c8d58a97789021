package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/bank-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/bank-advisor/internal/domain/catalog"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"chatter", "Sure! Here it is: {\"a\":{\"b\":2}} Thanks.", `{"a":{"b":2}}`, true},
		{"no object", "I cannot help with that.", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTuningFor(t *testing.T) {
	assert.Equal(t, Tuning{Temperature: 0.2, MaxTokens: 900}, TuningFor(customer.Loan, StageAnalysis))
	assert.Equal(t, Tuning{Temperature: 0.4, MaxTokens: 1200}, TuningFor(customer.Deposit, StageRecommendation))
}

func TestAnalysisUserPromptLoanFields(t *testing.T) {
	p := customer.Profile{
		Occupation: customer.OccupationEmployee,
		Income:     customer.Income5000to7000,
		Purpose:    customer.PurposeHouseLease,
		Amount:     customer.Amount100to300m,
	}
	survey := customer.Survey{{Question: 0, SelectedOption: "Fixed rate", Weight: 0.3}}

	loan := GetAnalysisUserPrompt(customer.Loan, p, survey)
	assert.Contains(t, loan, "house_lease")
	assert.Contains(t, loan, "100to300m")
	assert.Contains(t, loan, "creditAssessment")
	assert.Contains(t, loan, "Question 1: Fixed rate")

	deposit := GetAnalysisUserPrompt(customer.Deposit, p, nil)
	assert.NotContains(t, deposit, "creditAssessment")
	assert.NotContains(t, deposit, "Loan purpose")
}

func TestRecommendationUserPromptListsProducts(t *testing.T) {
	products := []catalog.Product{
		{ID: 4, Name: "Jeonse Loan", Rate: 2.9, Term: "10 years", Features: []string{"low rate"}, BaseScore: 90, Category: catalog.CategoryJeonse},
	}
	a := advisory.AnalysisResult{CustomerType: "stable", Characteristics: []string{"stable-income"}, RiskLevel: advisory.RiskLow}

	got := GetRecommendationUserPrompt(customer.Loan, a, customer.Profile{Occupation: customer.OccupationPublic}, products)

	assert.Contains(t, got, "id 4: Jeonse Loan")
	assert.Contains(t, got, "2.9% p.a.")
	assert.Contains(t, got, "productId")
}
