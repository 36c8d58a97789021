package advisory

import (
	"time"

	"github.com/bryanwahyu/bank-advisor/internal/domain/catalog"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskOrder = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

func ParseRiskLevel(s string) (RiskLevel, bool) {
	for _, r := range riskOrder {
		if RiskLevel(s) == r {
			return r, true
		}
	}
	return "", false
}

// Raise moves the risk one level up, saturating at high.
func (r RiskLevel) Raise() RiskLevel { return r.shift(1) }

// Lower moves the risk one level down, saturating at low.
func (r RiskLevel) Lower() RiskLevel { return r.shift(-1) }

func (r RiskLevel) shift(d int) RiskLevel {
	for i, v := range riskOrder {
		if v == r {
			j := i + d
			if j < 0 {
				j = 0
			}
			if j >= len(riskOrder) {
				j = len(riskOrder) - 1
			}
			return riskOrder[j]
		}
	}
	return RiskMedium
}

type CreditAssessment string

const (
	CreditExcellent CreditAssessment = "excellent"
	CreditGood      CreditAssessment = "good"
	CreditFair      CreditAssessment = "fair"
	CreditPoor      CreditAssessment = "poor"
)

func ParseCreditAssessment(s string) (CreditAssessment, bool) {
	switch c := CreditAssessment(s); c {
	case CreditExcellent, CreditGood, CreditFair, CreditPoor:
		return c, true
	}
	return "", false
}

// AnalysisResult is the customer profile produced by either the language
// model or the rule-based profiler.
type AnalysisResult struct {
	CustomerType         string           `json:"customerType"`
	Characteristics      []string         `json:"characteristics"`
	RecommendationReason string           `json:"recommendationReason"`
	RiskLevel            RiskLevel        `json:"riskLevel"`
	CreditAssessment     CreditAssessment `json:"creditAssessment,omitempty"`
	Confidence           float64          `json:"confidence"`
	IsBackup             bool             `json:"isBackup"`
	Timestamp            time.Time        `json:"timestamp"`
}

const (
	MinScore     = 60
	MaxScore     = 100
	DefaultScore = 75
	TopN         = 3
)

// ClampScore bounds a recommendation score to [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

type Recommendation struct {
	Product catalog.Product `json:"product"`
	Score   int             `json:"score"`
	Reason  string          `json:"reason"`
}

// RecommendationSet is a ranked list, descending by score, of at most TopN items.
type RecommendationSet struct {
	Items    []Recommendation `json:"products"`
	Summary  string           `json:"summary"`
	IsBackup bool             `json:"isBackup"`
}

// Eligibility is the outcome of the loan pre-check.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Age      int    `json:"age"`
	Score    int    `json:"estimatedScore"`
	Reason   string `json:"reason"`
}
