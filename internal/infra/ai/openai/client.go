package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/bank-advisor/internal/domain/ai"
)

const (
	DefaultModel   = "gpt-4o"
	DefaultTimeout = 30 * time.Second
	defaultTokens  = 1000
)

// CallRecorder receives one observation per model call.
type CallRecorder interface {
	ObserveAICall(model, outcome string, d time.Duration, usage ai.Usage)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// MaxAttempts is the total number of HTTP attempts, first try included.
	MaxAttempts  int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

type Client struct {
	*openai.Client
	Model    string
	timeout  time.Duration
	logger   *zap.Logger
	recorder CallRecorder
}

func NewClient(cfg Config, logger *zap.Logger, recorder CallRecorder) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxAttempts - 1
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.Logger = leveledLogger{logger.Sugar()}
	// Hand the final response back so status codes can be classified.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.HTTPClient = rc.StandardClient()
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		Client:   openai.NewClientWithConfig(oc),
		Model:    cfg.Model,
		timeout:  cfg.Timeout,
		logger:   logger,
		recorder: recorder,
	}
}

// Complete sends one chat completion, in JSON mode when the model supports
// it. Failures are *ai.Error, except caller cancellation which is returned
// as the context error.
func (c *Client) Complete(ctx context.Context, in ai.Request) (ai.Response, error) {
	const op = "openai complete"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultTokens
	}
	req := openai.ChatCompletionRequest{
		Model:       c.Model,
		Temperature: in.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: in.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: in.UserPrompt},
		},
	}
	// Older chat models reject response_format with a 400; their replies go
	// through prompt.ExtractJSON instead.
	if SupportsJSONMode(c.Model) {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		req.MaxCompletionTokens = maxTokens
		req.Temperature = 0
	} else {
		req.MaxTokens = maxTokens
	}

	start := time.Now()
	resp, err := c.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		if parent := context.Cause(ctx); errors.Is(parent, context.Canceled) {
			c.observe(c.Model, "canceled", elapsed, ai.Usage{}, err)
			return ai.Response{}, parent
		}
		kind := classify(err)
		c.observe(c.Model, string(kind), elapsed, ai.Usage{}, err)
		return ai.Response{}, ai.NewError(kind, op, fmt.Errorf("failed to create chat completion: %w", err))
	}

	usage := ai.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	model := resp.Model
	if model == "" {
		model = c.Model
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		err := errors.New("empty completion")
		c.observe(model, string(ai.KindMalformedResponse), elapsed, usage, err)
		return ai.Response{}, ai.NewError(ai.KindMalformedResponse, op, err)
	}

	c.observe(model, "success", elapsed, usage, nil)
	return ai.Response{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
		Usage:   usage,
	}, nil
}

func (c *Client) observe(model, outcome string, d time.Duration, usage ai.Usage, err error) {
	fields := []zap.Field{
		zap.String("model", model),
		zap.String("outcome", outcome),
		zap.Int("prompt_tokens", usage.PromptTokens),
		zap.Int("completion_tokens", usage.CompletionTokens),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Duration("duration", d),
	}
	if err != nil {
		c.logger.Warn("ai call failed", append(fields, zap.Error(err))...)
	} else {
		c.logger.Info("ai call completed", fields...)
	}
	if c.recorder != nil {
		c.recorder.ObserveAICall(model, outcome, d, usage)
	}
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// SupportsJSONMode reports whether the model accepts response_format
// json_object. The original gpt-4 snapshots and gpt-4-32k do not.
func SupportsJSONMode(model string) bool {
	switch {
	case model == "gpt-4", model == "gpt-4-0314", model == "gpt-4-0613":
		return false
	case strings.HasPrefix(model, "gpt-4-32k"):
		return false
	case model == "gpt-3.5-turbo-0301", model == "gpt-3.5-turbo-0613", strings.HasPrefix(model, "gpt-3.5-turbo-16k"):
		return false
	}
	return true
}

func classify(err error) ai.Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ai.KindTimeout
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		switch {
		case code == "insufficient_quota" || apiErr.Type == "insufficient_quota":
			return ai.KindQuotaExceeded
		case code == "invalid_api_key" || apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return ai.KindInvalidCredentials
		case code == "rate_limit_exceeded" || apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return ai.KindRateLimited
		}
		return ai.KindUpstream
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return ai.KindRateLimited
		case http.StatusUnauthorized, http.StatusForbidden:
			return ai.KindInvalidCredentials
		}
		return ai.KindUpstream
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ai.KindTimeout
	}
	return ai.KindUpstream
}

// Disabled is used when no API key is configured; every call fails fast so
// the rule-based path answers.
type Disabled struct{}

func (Disabled) Complete(context.Context, ai.Request) (ai.Response, error) {
	return ai.Response{}, ai.NewError(ai.KindUpstream, "openai complete", errors.New("ai disabled: no api key configured"))
}

// leveledLogger adapts zap to retryablehttp's logger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
