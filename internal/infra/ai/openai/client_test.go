package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/bank-advisor/internal/domain/ai"
)

type recorded struct {
	model   string
	outcome string
	usage   ai.Usage
}

type fakeRecorder struct {
	calls []recorded
}

func (f *fakeRecorder) ObserveAICall(model, outcome string, _ time.Duration, usage ai.Usage) {
	f.calls = append(f.calls, recorded{model, outcome, usage})
}

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4-0613",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"characteristics\":[\"stable\"]}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

func newTestClient(t *testing.T, url string, attempts int, timeout time.Duration) (*Client, *observer.ObservedLogs, *fakeRecorder) {
	t.Helper()
	return newModelClient(t, url, "gpt-4o", attempts, timeout)
}

func newModelClient(t *testing.T, url, model string, attempts int, timeout time.Duration) (*Client, *observer.ObservedLogs, *fakeRecorder) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	rec := &fakeRecorder{}
	c := NewClient(Config{
		APIKey:       "sk-test",
		BaseURL:      url + "/v1",
		Model:        model,
		Timeout:      timeout,
		MaxAttempts:  attempts,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	}, zap.New(core), rec)
	return c, logs, rec
}

func TestCompleteSuccess(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer srv.Close()

	c, logs, rec := newTestClient(t, srv.URL, 1, time.Second)
	resp, err := c.Complete(context.Background(), ai.Request{
		SystemInstruction: "system",
		UserPrompt:        "user",
		Temperature:       0.3,
		MaxTokens:         800,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"characteristics":["stable"]}`, resp.Content)
	assert.Equal(t, "gpt-4-0613", resp.Model)
	assert.Equal(t, ai.Usage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150}, resp.Usage)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, float32(0.3), got.Temperature)
	assert.Equal(t, 800, got.MaxTokens)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)

	entries := logs.FilterMessage("ai call completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "gpt-4-0613", fields["model"])
	assert.Equal(t, "success", fields["outcome"])
	assert.EqualValues(t, 150, fields["total_tokens"])

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "success", rec.calls[0].outcome)
}

func TestCompleteClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ai.Kind
	}{
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`, ai.KindQuotaExceeded},
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, ai.KindRateLimited},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`, ai.KindInvalidCredentials},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, ai.KindUpstream},
		{"non json error", http.StatusBadGateway, `<html>bad gateway</html>`, ai.KindUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, logs, rec := newTestClient(t, srv.URL, 1, time.Second)
			_, err := c.Complete(context.Background(), ai.Request{UserPrompt: "x"})
			require.Error(t, err)

			kind, ok := ai.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)

			failed := logs.FilterMessage("ai call failed").All()
			require.Len(t, failed, 1)
			assert.Equal(t, string(tt.want), failed[0].ContextMap()["outcome"])
			require.Len(t, rec.calls, 1)
			assert.Equal(t, string(tt.want), rec.calls[0].outcome)
		})
	}
}

func TestCompleteRetriesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL, 2, time.Second)
	_, err := c.Complete(context.Background(), ai.Request{UserPrompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCompleteGivesUpAfterBudget(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL, 2, time.Second)
	_, err := c.Complete(context.Background(), ai.Request{UserPrompt: "x"})
	assert.ErrorIs(t, err, ai.ErrUpstream)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL, 1, 50*time.Millisecond)
	_, err := c.Complete(context.Background(), ai.Request{UserPrompt: "x"})
	assert.ErrorIs(t, err, ai.ErrTimeout)
}

func TestCompleteCallerCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Complete(ctx, ai.Request{UserPrompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	_, typed := ai.KindOf(err)
	assert.False(t, typed)
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","model":"gpt-4","choices":[]}`))
	}))
	defer srv.Close()

	c, _, _ := newTestClient(t, srv.URL, 1, time.Second)
	_, err := c.Complete(context.Background(), ai.Request{UserPrompt: "x"})
	assert.ErrorIs(t, err, ai.ErrMalformedResponse)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Complete(context.Background(), ai.Request{})
	assert.ErrorIs(t, err, ai.ErrUpstream)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o3-mini"))
	assert.True(t, isReasoningModel("gpt-5"))
	assert.False(t, isReasoningModel("gpt-4"))
}

func TestCompleteResponseFormatByModel(t *testing.T) {
	tests := []struct {
		model    string
		jsonMode bool
	}{
		{"gpt-4o", true},
		{"gpt-4-turbo", true},
		{"gpt-4o-mini", true},
		{"gpt-4", false},
		{"gpt-4-0613", false},
		{"gpt-4-32k", false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			var body map[string]json.RawMessage
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(completion))
			}))
			defer srv.Close()

			c, _, _ := newModelClient(t, srv.URL, tt.model, 1, time.Second)
			_, err := c.Complete(context.Background(), ai.Request{SystemInstruction: "s", UserPrompt: "u"})
			require.NoError(t, err)

			format, ok := body["response_format"]
			assert.Equal(t, tt.jsonMode, ok)
			if tt.jsonMode {
				assert.JSONEq(t, `{"type":"json_object"}`, string(format))
			}
			assert.Equal(t, tt.jsonMode, SupportsJSONMode(tt.model))
		})
	}
}

func TestDefaultModelSupportsJSONMode(t *testing.T) {
	assert.True(t, SupportsJSONMode(DefaultModel))
}
