package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/bank-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/bank-advisor/internal/domain/catalog"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
)

type Stage string

const (
	StageAnalysis       Stage = "analysis"
	StageRecommendation Stage = "recommendation"
)

// Tuning is the sampling setup of one model call.
type Tuning struct {
	Temperature float32
	MaxTokens   int
}

var tunings = map[customer.ServiceType]map[Stage]Tuning{
	customer.Deposit: {
		StageAnalysis:       {Temperature: 0.3, MaxTokens: 800},
		StageRecommendation: {Temperature: 0.4, MaxTokens: 1200},
	},
	customer.Loan: {
		StageAnalysis:       {Temperature: 0.2, MaxTokens: 900},
		StageRecommendation: {Temperature: 0.3, MaxTokens: 1200},
	},
}

func TuningFor(service customer.ServiceType, stage Stage) Tuning {
	if t, ok := tunings[service][stage]; ok {
		return t
	}
	return Tuning{Temperature: 0.7, MaxTokens: 1000}
}

// GetAnalysisSystemPrompt fixes the persona for the profiling call.
func GetAnalysisSystemPrompt(service customer.ServiceType) string {
	if service == customer.Loan {
		return `You are a conservative loan underwriter at a Korean retail bank. Assess the applicant's credit profile carefully and never overstate eligibility. Respond with one valid JSON object only (no markdown, no commentary, no code fences).`
	}
	return `You are a financial expert at a Korean retail bank who analyses customers' deposit tendencies. Respond with one valid JSON object only (no markdown, no commentary, no code fences).`
}

// GetRecommendationSystemPrompt fixes the persona for the ranking call.
func GetRecommendationSystemPrompt(service customer.ServiceType) string {
	return fmt.Sprintf(`You are a %s product expert at a Korean retail bank. Only recommend products from the list you are given, identified by their id. Respond with one valid JSON object only (no markdown, no commentary, no code fences).`, service)
}

// GetAnalysisUserPrompt describes the customer and the expected schema.
func GetAnalysisUserPrompt(service customer.ServiceType, p customer.Profile, survey customer.Survey) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyse this customer for %s products.\n\nCustomer:\n", service)
	writeCustomer(&b, service, p)

	b.WriteString("\nSurvey answers:\n")
	if len(survey) == 0 {
		b.WriteString("- none\n")
	}
	for _, a := range survey {
		fmt.Fprintf(&b, "- Question %d: %s\n", a.Question+1, a.SelectedOption)
	}

	b.WriteString(`
Schema:
{
  "customerType": "<short label, e.g. stable, active, conservative>",
  "characteristics": ["<trait>", "<trait>", "<trait>"],
  "recommendationReason": "<detailed explanation>",
  "riskLevel": "<low|medium|high>",`)
	if service == customer.Loan {
		b.WriteString(`
  "creditAssessment": "<excellent|good|fair|poor>",`)
	}
	b.WriteString(`
  "confidence": <number between 0 and 1>
}

characteristics must contain at least one item.`)
	return b.String()
}

// GetRecommendationUserPrompt lists the catalog and asks for the top three products.
func GetRecommendationUserPrompt(service customer.ServiceType, a advisory.AnalysisResult, p customer.Profile, products []catalog.Product) string {
	var b strings.Builder
	b.WriteString("Customer analysis:\n")
	fmt.Fprintf(&b, "- Type: %s\n", a.CustomerType)
	fmt.Fprintf(&b, "- Characteristics: %s\n", strings.Join(a.Characteristics, ", "))
	fmt.Fprintf(&b, "- Risk level: %s\n", a.RiskLevel)
	if a.RecommendationReason != "" {
		fmt.Fprintf(&b, "- Reason: %s\n", a.RecommendationReason)
	}

	b.WriteString("\nCustomer:\n")
	writeCustomer(&b, service, p)

	fmt.Fprintf(&b, "\nAvailable %s products:\n", service)
	for _, pr := range products {
		fmt.Fprintf(&b, "- id %d: %s | rate %s | term %s | features: %s | base score %d\n",
			pr.ID, pr.Name, pr.RateLabel(), pr.Term, strings.Join(pr.Features, ", "), pr.BaseScore)
	}

	b.WriteString(`
Recommend the three most suitable products.

Schema:
{
  "summary": "<2-3 sentence overview>",
  "products": [
    {"productId": <id from the list>, "score": <integer 60-100>, "reason": "<why this product fits>"}
  ]
}`)
	return b.String()
}

func writeCustomer(b *strings.Builder, service customer.ServiceType, p customer.Profile) {
	fmt.Fprintf(b, "- Occupation: %s\n", p.Occupation)
	fmt.Fprintf(b, "- Annual income band (10k KRW): %s\n", p.Income)
	if service == customer.Loan {
		fmt.Fprintf(b, "- Requested amount band: %s\n", p.Amount)
		fmt.Fprintf(b, "- Loan purpose: %s\n", p.Purpose)
	}
}
