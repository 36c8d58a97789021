// Package advisory runs one customer analysis end to end: validation, the
// loan pre-check, profiling and product recommendation. Each of the two
// model-backed stages falls back to the rule engine on any model failure,
// so a valid request always gets a complete answer.
package advisory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/bank-advisor/internal/application"
	"github.com/bryanwahyu/bank-advisor/internal/domain/advisory"
	"github.com/bryanwahyu/bank-advisor/internal/domain/ai"
	"github.com/bryanwahyu/bank-advisor/internal/domain/catalog"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
	"github.com/bryanwahyu/bank-advisor/internal/domain/rules"
)

type State string

const (
	StateStart                State = "start"
	StateProfilingExternal    State = "profiling_external"
	StateProfilingDone        State = "profiling_done"
	StateProfilingFallback    State = "profiling_fallback"
	StateRecommendingExternal State = "recommending_external"
	StateRecommendingDone     State = "recommending_done"
	StateRecommendingFallback State = "recommending_fallback"
	StateComplete             State = "complete"
	StateIneligible           State = "ineligible"
)

const (
	stageAnalysis       = "analysis"
	stageRecommendation = "recommendation"
)

var (
	ErrUnknownService = errors.New("unknown service type")
	ErrInternal       = errors.New("analysis service unavailable")
)

// InternalError is returned for failures that are neither validation nor
// model errors. It always matches ErrInternal.
type InternalError struct {
	RequestID string
	Err       error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("request %s: %v", e.RequestID, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) Is(target error) bool { return target == ErrInternal }

// Analyzer is the model-backed side of both stages. Failures it returns
// are *ai.Error values.
type Analyzer interface {
	RequestAnalysis(ctx context.Context, service customer.ServiceType, p customer.Profile, survey customer.Survey) (advisory.AnalysisResult, error)
	RequestRecommendation(ctx context.Context, service customer.ServiceType, a advisory.AnalysisResult, p customer.Profile, products []catalog.Product) (advisory.RecommendationSet, error)
}

type Recorder interface {
	ObserveStage(service, stage string, backup bool)
	ObserveOutcome(service, state string)
}

type Service struct {
	Catalog  *catalog.Catalog
	AI       Analyzer
	Clock    application.Clock
	Logger   *zap.Logger
	Recorder Recorder
	// Budget bounds the model calls of one request. Each stage gets an even
	// share of what remains, so the rule fallback still answers in time.
	// Zero means no bound beyond the client's own timeout.
	Budget time.Duration
}

type AdviseCommand struct {
	ServiceType string
	Customer    customer.Data
	Survey      json.RawMessage
	RequestID   string
}

// RecommendCommand runs the recommendation stage alone. Analysis is
// optional; without it the rule-based profile is used as context.
type RecommendCommand struct {
	ServiceType string
	Customer    customer.Data
	Analysis    *advisory.AnalysisResult
	RequestID   string
}

type Outcome struct {
	ServiceType           customer.ServiceType      `json:"serviceType"`
	Eligible              bool                      `json:"eligible"`
	Eligibility           *advisory.Eligibility     `json:"eligibility,omitempty"`
	Analysis              *advisory.AnalysisResult  `json:"analysis,omitempty"`
	Recommendations       []advisory.Recommendation `json:"recommendations"`
	Summary               string                    `json:"summary"`
	IsBackup              bool                      `json:"isBackup"`
	RecommendationsBackup bool                      `json:"recommendationsBackup"`
	State                 State                     `json:"-"`
	Timestamp             time.Time                 `json:"timestamp"`
}

// run carries per-request state through the stages.
type run struct {
	s         *Service
	requestID string
	service   customer.ServiceType
	profile   customer.Profile
	state     State
	log       *zap.Logger
	deadline  time.Time

	eligibility *advisory.Eligibility
}

func (r *run) transition(to State) {
	r.log.Debug("advisory transition",
		zap.String("from", string(r.state)),
		zap.String("to", string(to)))
	r.state = to
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) start(requestID, rawService string, data customer.Data) (*run, error) {
	service, ok := customer.ParseServiceType(rawService)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, rawService)
	}
	profile, err := customer.Parse(service, data)
	if err != nil {
		return nil, err
	}
	r := &run{
		s:         s,
		requestID: requestID,
		service:   service,
		profile:   profile,
		state:     StateStart,
		log: s.logger().With(
			zap.String("request_id", requestID),
			zap.String("service_type", string(service))),
	}
	if s.Budget > 0 {
		r.deadline = time.Now().Add(s.Budget)
	}
	return r, nil
}

// stageContext limits one model call to its share of the remaining budget.
func (r *run) stageContext(ctx context.Context, stagesLeft int) (context.Context, context.CancelFunc) {
	if r.deadline.IsZero() {
		return context.WithCancel(ctx)
	}
	share := time.Until(r.deadline) / time.Duration(stagesLeft)
	return context.WithTimeout(ctx, share)
}

// Advise validates the request and runs both stages. It returns a
// *customer.ValidationError for bad input, ErrUnknownService, ctx.Err()
// when the caller gives up, or an *InternalError.
func (s *Service) Advise(ctx context.Context, cmd AdviseCommand) (out *Outcome, err error) {
	r, err := s.start(cmd.RequestID, cmd.ServiceType, cmd.Customer)
	if err != nil {
		return nil, err
	}
	survey, err := parseSurvey(r.service, cmd.Survey)
	if err != nil {
		return nil, err
	}
	defer r.recoverPanic(&out, &err)

	if ineligible := r.checkEligibility(); ineligible != nil {
		return ineligible, nil
	}

	analysis, err := r.analyze(ctx, survey)
	if err != nil {
		return nil, err
	}
	set, err := r.recommend(ctx, analysis, 1)
	if err != nil {
		return nil, err
	}
	return r.complete(&analysis, set), nil
}

// Recommend runs only the recommendation stage, keeping the loan gate.
func (s *Service) Recommend(ctx context.Context, cmd RecommendCommand) (out *Outcome, err error) {
	r, err := s.start(cmd.RequestID, cmd.ServiceType, cmd.Customer)
	if err != nil {
		return nil, err
	}
	defer r.recoverPanic(&out, &err)

	if ineligible := r.checkEligibility(); ineligible != nil {
		return ineligible, nil
	}

	var analysis advisory.AnalysisResult
	if cmd.Analysis != nil {
		analysis = *cmd.Analysis
	} else {
		analysis = rules.Profile(r.service, r.profile, s.now())
	}
	set, err := r.recommend(ctx, analysis, 1)
	if err != nil {
		return nil, err
	}
	return r.complete(nil, set), nil
}

// parseSurvey requires answers for deposits only; loan applicants may skip
// the questionnaire.
func parseSurvey(service customer.ServiceType, raw json.RawMessage) (customer.Survey, error) {
	if service == customer.Loan {
		if trimmed := strings.TrimSpace(string(raw)); trimmed == "" || trimmed == "null" {
			return customer.Survey{}, nil
		}
	}
	return customer.ParseSurvey(raw)
}

func (r *run) recoverPanic(out **Outcome, err *error) {
	if v := recover(); v != nil {
		r.log.Error("advisory panic", zap.Any("panic", v), zap.String("state", string(r.state)))
		*out = nil
		*err = &InternalError{RequestID: r.requestID, Err: fmt.Errorf("panic in %s: %v", r.state, v)}
	}
}

// checkEligibility returns a terminal outcome for an ineligible loan
// applicant, nil otherwise.
func (r *run) checkEligibility() *Outcome {
	if r.service != customer.Loan {
		return nil
	}
	e := rules.CheckEligibility(r.profile, r.s.now())
	r.eligibility = &e
	if e.Eligible {
		return nil
	}

	r.transition(StateIneligible)
	r.s.observeOutcome(r.service, StateIneligible)
	r.log.Info("loan pre-check failed", zap.Int("age", e.Age), zap.Int("score", e.Score))
	return &Outcome{
		ServiceType:     r.service,
		Eligible:        false,
		Eligibility:     &e,
		Recommendations: []advisory.Recommendation{},
		Summary:         e.Reason + " You may reapply once your age, income or employment situation changes.",
		State:           StateIneligible,
		Timestamp:       r.s.now(),
	}
}

func (r *run) analyze(ctx context.Context, survey customer.Survey) (advisory.AnalysisResult, error) {
	r.transition(StateProfilingExternal)
	stageCtx, cancel := r.stageContext(ctx, 2)
	res, err := r.s.AI.RequestAnalysis(stageCtx, r.service, r.profile, survey)
	cancel()
	fallback, err := r.classify(ctx, stageAnalysis, err)
	if err != nil {
		return advisory.AnalysisResult{}, err
	}
	if fallback {
		r.transition(StateProfilingFallback)
		res = rules.Profile(r.service, r.profile, r.s.now())
	} else {
		r.transition(StateProfilingDone)
	}
	r.s.observeStage(r.service, stageAnalysis, fallback)
	return res, nil
}

func (r *run) recommend(ctx context.Context, analysis advisory.AnalysisResult, stagesLeft int) (advisory.RecommendationSet, error) {
	products := r.s.Catalog.Products(r.service)

	r.transition(StateRecommendingExternal)
	stageCtx, cancel := r.stageContext(ctx, stagesLeft)
	set, err := r.s.AI.RequestRecommendation(stageCtx, r.service, analysis, r.profile, products)
	cancel()
	fallback, err := r.classify(ctx, stageRecommendation, err)
	if err != nil {
		return advisory.RecommendationSet{}, err
	}
	if fallback {
		r.transition(StateRecommendingFallback)
		set = rules.Recommend(r.service, r.profile, products)
	} else {
		r.transition(StateRecommendingDone)
	}
	r.s.observeStage(r.service, stageRecommendation, fallback)
	return set, nil
}

// classify reports whether a stage error should fall back to the rules.
// Cancellation and unclassified errors abort the request instead.
func (r *run) classify(ctx context.Context, stage string, err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.log.Info("advisory cancelled", zap.String("stage", stage), zap.Error(ctxErr))
		return false, ctxErr
	}
	var aiErr *ai.Error
	if errors.As(err, &aiErr) {
		r.log.Warn("model stage failed, using rules",
			zap.String("stage", stage),
			zap.String("kind", string(aiErr.Kind)),
			zap.Error(err))
		return true, nil
	}
	r.log.Error("advisory stage failed", zap.String("stage", stage), zap.Error(err))
	return false, &InternalError{RequestID: r.requestID, Err: err}
}

func (r *run) complete(analysis *advisory.AnalysisResult, set advisory.RecommendationSet) *Outcome {
	r.transition(StateComplete)
	r.s.observeOutcome(r.service, StateComplete)

	out := &Outcome{
		ServiceType:           r.service,
		Eligible:              true,
		Eligibility:           r.eligibility,
		Analysis:              analysis,
		Recommendations:       set.Items,
		Summary:               set.Summary,
		RecommendationsBackup: set.IsBackup,
		IsBackup:              set.IsBackup,
		State:                 StateComplete,
		Timestamp:             r.s.now(),
	}
	if analysis != nil && analysis.IsBackup {
		out.IsBackup = true
	}
	return out
}

func (s *Service) observeStage(service customer.ServiceType, stage string, backup bool) {
	if s.Recorder != nil {
		s.Recorder.ObserveStage(string(service), stage, backup)
	}
}

func (s *Service) observeOutcome(service customer.ServiceType, state State) {
	if s.Recorder != nil {
		s.Recorder.ObserveOutcome(string(service), string(state))
	}
}
