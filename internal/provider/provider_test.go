package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"duet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleHistory = []models.HistoryEntry{
	{Role: models.RoleUser, Content: "Hello"},
	{Role: models.RoleAssistant, Content: "Hi"},
	{Role: models.RoleUser, Content: "How are you?"},
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.groq.com/openai/v1/", BaseURL("https://api.groq.com/openai/v1/chat/completions"))
	assert.Equal(t, "https://api.groq.com/openai/v1/", BaseURL("https://api.groq.com/openai/v1/chat/completions/"))
	assert.Equal(t, "http://localhost:8080/v1/", BaseURL("http://localhost:8080/v1"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, models.KindOpenAI, KindOf(models.Endpoint{URL: "https://api.groq.com/openai/v1/chat/completions"}))
	assert.Equal(t, models.KindGemini, KindOf(models.Endpoint{URL: "https://generativelanguage.googleapis.com/v1beta/models/x:generateContent"}))
	assert.Equal(t, models.KindGemini, KindOf(models.Endpoint{Kind: models.KindGemini, URL: "http://localhost"}))
}

func TestNew_NotConfigured(t *testing.T) {
	_, err := New(models.Endpoint{URL: "http://x"}, Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(models.Endpoint{Kind: models.KindGemini, APIKey: "k"}, Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestEstimator(t *testing.T) {
	assert.Equal(t, 2, DefaultEstimator("12345678"))
	assert.Equal(t, 1, DefaultEstimator("héllo"), "counts characters, not bytes")
	assert.Equal(t, 4, CharEstimator(2)("12345678"))
	assert.Equal(t, 2, CharEstimator(0)("12345678"), "non-positive divisor falls back")

	assert.Equal(t, 7, Reply{Text: "abcdefgh", Tokens: 7, UsageReported: true}.TokenCount(DefaultEstimator))
	assert.Equal(t, 2, Reply{Text: "abcdefgh"}.TokenCount(nil))
	assert.Equal(t, 8, Reply{Text: "abcdefgh"}.TokenCount(func(s string) int { return len(s) }))
}

func TestOpenAI_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cmpl-1", "object": "chat.completion", "created": 1, "model": "llama",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  Hi there \n"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`)
	}))
	defer srv.Close()

	p, err := New(models.Endpoint{APIKey: "secret", URL: srv.URL + "/v1/chat/completions", Model: "llama"}, Options{Temperature: 0.7, MaxTokens: 1000})
	require.NoError(t, err)

	reply, err := p.Complete(context.Background(), sampleHistory)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply.Text)
	assert.True(t, reply.UsageReported)
	assert.Equal(t, 13, reply.Tokens)

	assert.Equal(t, "llama", got["model"])
	assert.InDelta(t, 0.7, got["temperature"], 1e-9)
	assert.InDelta(t, 1000, got["max_tokens"], 1e-9)
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
}

func TestOpenAI_NoUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"abcdefgh"}}]}`)
	}))
	defer srv.Close()

	p, err := NewOpenAI(models.Endpoint{APIKey: "k", URL: srv.URL + "/chat/completions"}, Options{})
	require.NoError(t, err)

	reply, err := p.Complete(context.Background(), sampleHistory)
	require.NoError(t, err)
	assert.False(t, reply.UsageReported)
	assert.Equal(t, 2, reply.TokenCount(DefaultEstimator))
}

func TestOpenAI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`)
			},
			check: func(t *testing.T, err error) {
				var up *UpstreamError
				require.ErrorAs(t, err, &up)
				assert.Equal(t, http.StatusUnauthorized, up.Status)
			},
		},
		{
			name: "server error is not retried",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			check: func(t *testing.T, err error) {
				var up *UpstreamError
				require.ErrorAs(t, err, &up)
				assert.Equal(t, http.StatusInternalServerError, up.Status)
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"choices": [`)
			},
			check: func(t *testing.T, err error) {
				var te *TransportError
				require.ErrorAs(t, err, &te)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"id":"c","object":"chat.completion","created":1,"model":"m","choices":[]}`)
			},
			check: func(t *testing.T, err error) {
				var te *TransportError
				require.ErrorAs(t, err, &te)
				assert.ErrorIs(t, err, errEmptyResponse)
			},
		},
		{
			name: "blank content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"id":"c","object":"chat.completion","created":1,"model":"m",
					"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"   "}}]}`)
			},
			check: func(t *testing.T, err error) {
				var te *TransportError
				require.ErrorAs(t, err, &te)
				assert.ErrorIs(t, err, errEmptyResponse)
			},
		},
		{
			name: "error payload with ok status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"error":{"message":"model overloaded"}}`)
			},
			check: func(t *testing.T, err error) {
				var up *UpstreamError
				require.ErrorAs(t, err, &up)
				assert.Equal(t, "model overloaded", up.Message)
				assert.Equal(t, "upstream error: model overloaded", err.Error())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				tt.handler(w, r)
			}))
			defer srv.Close()

			p, err := NewOpenAI(models.Endpoint{APIKey: "k", URL: srv.URL + "/chat/completions"}, Options{})
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), sampleHistory)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestOpenAI_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewOpenAI(models.Endpoint{APIKey: "k", URL: url + "/chat/completions"}, Options{})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), sampleHistory)
	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestOpenAI_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p, err := NewOpenAI(models.Endpoint{APIKey: "k", URL: srv.URL + "/chat/completions"}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = p.Complete(ctx, sampleHistory)
	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestGemini_Complete(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Hi "}, {"text": "there"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 2, "totalTokenCount": 6}
		}`)
	}))
	defer srv.Close()

	p, err := New(models.Endpoint{Kind: models.KindGemini, APIKey: "secret", URL: srv.URL + "/v1beta/models/gemini:generateContent"}, Options{Temperature: 0.5, MaxTokens: 64})
	require.NoError(t, err)

	reply, err := p.Complete(context.Background(), sampleHistory)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply.Text)
	assert.Equal(t, 6, reply.Tokens)
	assert.True(t, reply.UsageReported)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "model", got.Contents[1].Role)
	assert.Equal(t, "How are you?", got.Contents[2].Parts[0].Text)
	assert.Equal(t, 0.5, got.GenerationConfig.Temperature)
	assert.Equal(t, 64, got.GenerationConfig.MaxOutputTokens)
}

func TestGemini_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		upstream   bool
	}{
		{"status with payload", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, http.StatusBadRequest, true},
		{"status without payload", http.StatusServiceUnavailable, `oops`, http.StatusServiceUnavailable, true},
		{"error payload with 200", http.StatusOK, `{"error":{"code":429,"message":"quota"}}`, 429, true},
		{"malformed", http.StatusOK, `{"candidates":`, 0, false},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			p, err := NewGemini(models.Endpoint{APIKey: "k", URL: srv.URL}, Options{})
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), sampleHistory)
			require.Error(t, err)
			if tt.upstream {
				var up *UpstreamError
				require.ErrorAs(t, err, &up)
				assert.Equal(t, tt.wantStatus, up.Status)
				return
			}
			var te *TransportError
			require.ErrorAs(t, err, &te)
		})
	}
}

func TestUpstreamError_Message(t *testing.T) {
	assert.Equal(t, "upstream error (401): bad key", (&UpstreamError{Status: 401, Message: "bad key"}).Error())
	assert.Equal(t, "upstream error (503): Service Unavailable", (&UpstreamError{Status: 503}).Error())
	assert.Equal(t, "upstream error: quota", (&UpstreamError{Message: "quota"}).Error())
}
