package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bryanwahyu/bank-advisor/internal/application"
	"github.com/bryanwahyu/bank-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/bank-advisor/internal/domain/ai"
	"github.com/bryanwahyu/bank-advisor/internal/domain/catalog"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
	"github.com/bryanwahyu/bank-advisor/internal/infra/ai/prompt"
)

const defaultConfidence = 0.8

// Service turns customer data into model prompts and model replies into
// validated domain results. Every failure it returns is an *ai.Error.
type Service struct {
	client ai.Client
	clock  application.Clock
}

func NewService(client ai.Client, clock application.Clock) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Service{client: client, clock: clock}
}

// RequestAnalysis asks the model to profile the customer.
func (s *Service) RequestAnalysis(ctx context.Context, service customer.ServiceType, p customer.Profile, survey customer.Survey) (advisory.AnalysisResult, error) {
	const op = "request analysis"

	tuning := prompt.TuningFor(service, prompt.StageAnalysis)
	resp, err := s.complete(ctx, op, ai.Request{
		SystemInstruction: prompt.GetAnalysisSystemPrompt(service),
		UserPrompt:        prompt.GetAnalysisUserPrompt(service, p, survey),
		Temperature:       tuning.Temperature,
		MaxTokens:         tuning.MaxTokens,
	})
	if err != nil {
		return advisory.AnalysisResult{}, err
	}

	var payload struct {
		CustomerType         string          `json:"customerType"`
		Characteristics      []string        `json:"characteristics"`
		RecommendationReason string          `json:"recommendationReason"`
		RiskLevel            string          `json:"riskLevel"`
		CreditAssessment     string          `json:"creditAssessment"`
		Confidence           json.RawMessage `json:"confidence"`
	}
	if err := decode(resp.Content, &payload); err != nil {
		return advisory.AnalysisResult{}, ai.NewError(ai.KindMalformedResponse, op, err)
	}

	characteristics := make([]string, 0, len(payload.Characteristics))
	for _, c := range payload.Characteristics {
		if c = strings.TrimSpace(c); c != "" {
			characteristics = append(characteristics, c)
		}
	}
	if len(characteristics) == 0 {
		return advisory.AnalysisResult{}, ai.NewError(ai.KindMalformedResponse, op, errors.New("characteristics missing or empty"))
	}

	risk, ok := advisory.ParseRiskLevel(strings.ToLower(strings.TrimSpace(payload.RiskLevel)))
	if !ok {
		risk = advisory.RiskMedium
	}

	result := advisory.AnalysisResult{
		CustomerType:         strings.TrimSpace(payload.CustomerType),
		Characteristics:      characteristics,
		RecommendationReason: strings.TrimSpace(payload.RecommendationReason),
		RiskLevel:            risk,
		Confidence:           parseConfidence(payload.Confidence),
		IsBackup:             false,
		Timestamp:            s.clock.Now(),
	}
	if result.CustomerType == "" {
		result.CustomerType = "ai_analysis"
	}
	if result.RecommendationReason == "" {
		result.RecommendationReason = "Analysis based on the customer's profile."
	}
	if service == customer.Loan {
		credit, ok := advisory.ParseCreditAssessment(strings.ToLower(strings.TrimSpace(payload.CreditAssessment)))
		if !ok {
			credit = advisory.CreditFair
		}
		result.CreditAssessment = credit
	}
	return result, nil
}

// RequestRecommendation asks the model to rank products for an analysed
// customer. Items referring to products outside the list are dropped.
func (s *Service) RequestRecommendation(ctx context.Context, service customer.ServiceType, a advisory.AnalysisResult, p customer.Profile, products []catalog.Product) (advisory.RecommendationSet, error) {
	const op = "request recommendation"

	tuning := prompt.TuningFor(service, prompt.StageRecommendation)
	resp, err := s.complete(ctx, op, ai.Request{
		SystemInstruction: prompt.GetRecommendationSystemPrompt(service),
		UserPrompt:        prompt.GetRecommendationUserPrompt(service, a, p, products),
		Temperature:       tuning.Temperature,
		MaxTokens:         tuning.MaxTokens,
	})
	if err != nil {
		return advisory.RecommendationSet{}, err
	}

	var payload struct {
		Summary  string `json:"summary"`
		Products []struct {
			ProductID json.RawMessage `json:"productId"`
			Name      string          `json:"name"`
			Product   *struct {
				ID   json.RawMessage `json:"id"`
				Name string          `json:"name"`
			} `json:"product"`
			Score  json.RawMessage `json:"score"`
			Reason string          `json:"reason"`
		} `json:"products"`
	}
	if err := decode(resp.Content, &payload); err != nil {
		return advisory.RecommendationSet{}, ai.NewError(ai.KindMalformedResponse, op, err)
	}
	if len(payload.Products) == 0 {
		return advisory.RecommendationSet{}, ai.NewError(ai.KindMalformedResponse, op, errors.New("products missing or empty"))
	}

	byID := make(map[int]catalog.Product, len(products))
	byName := make(map[string]catalog.Product, len(products))
	for _, pr := range products {
		byID[pr.ID] = pr
		byName[strings.ToLower(pr.Name)] = pr
	}

	seen := make(map[int]bool)
	items := make([]advisory.Recommendation, 0, len(payload.Products))
	for _, item := range payload.Products {
		id, name := item.ProductID, item.Name
		if item.Product != nil {
			if len(id) == 0 {
				id = item.Product.ID
			}
			if name == "" {
				name = item.Product.Name
			}
		}
		pr, ok := resolve(byID, byName, id, name)
		if !ok || seen[pr.ID] {
			continue
		}
		seen[pr.ID] = true

		reason := strings.TrimSpace(item.Reason)
		if reason == "" {
			reason = "Recommended for your profile."
		}
		items = append(items, advisory.Recommendation{
			Product: pr,
			Score:   advisory.ClampScore(parseScore(item.Score)),
			Reason:  reason,
		})
	}
	if len(items) == 0 {
		return advisory.RecommendationSet{}, ai.NewError(ai.KindMalformedResponse, op, errors.New("no recommended product matches the catalog"))
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) > advisory.TopN {
		items = items[:advisory.TopN]
	}

	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		summary = fmt.Sprintf("These %s products suit your profile best.", service)
	}
	return advisory.RecommendationSet{Items: items, Summary: summary, IsBackup: false}, nil
}

func (s *Service) complete(ctx context.Context, op string, req ai.Request) (ai.Response, error) {
	resp, err := s.client.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if _, ok := ai.KindOf(err); ok {
		return ai.Response{}, err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ai.Response{}, ai.NewError(ai.KindTimeout, op, err)
	}
	if errors.Is(err, context.Canceled) {
		return ai.Response{}, err
	}
	return ai.Response{}, ai.NewError(ai.KindUpstream, op, err)
}

func decode(content string, v any) error {
	raw, ok := prompt.ExtractJSON(content)
	if !ok {
		return errors.New("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func resolve(byID map[int]catalog.Product, byName map[string]catalog.Product, id json.RawMessage, name string) (catalog.Product, bool) {
	if n, ok := parseInt(id); ok {
		if pr, ok := byID[n]; ok {
			return pr, true
		}
	}
	pr, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return pr, ok
}

// parseInt accepts 3, 3.0 and "3".
func parseInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(math.Round(f)), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func parseScore(raw json.RawMessage) int {
	if n, ok := parseInt(raw); ok && n != 0 {
		return n
	}
	return advisory.DefaultScore
}

func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return defaultConfidence
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || math.IsNaN(f) {
		return defaultConfidence
	}
	// Some replies use a percentage.
	if f > 1 && f <= 100 {
		f /= 100
	}
	return math.Max(0, math.Min(1, f))
}
