package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"duet/internal/models"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Gemini talks to a generateContent endpoint with the credential passed as
// the key query parameter.
type Gemini struct {
	endpoint string
	apiKey   string
	opts     Options
	client   *http.Client
}

func NewGemini(e models.Endpoint, opts Options) (*Gemini, error) {
	if e.APIKey == "" || e.URL == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(e.URL); err != nil {
		return nil, fmt.Errorf("provider: bad gemini url: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Gemini{endpoint: e.URL, apiKey: e.APIKey, opts: opts, client: client}, nil
}

func (g *Gemini) Complete(ctx context.Context, history []models.HistoryEntry) (Reply, error) {
	req := geminiRequest{
		Contents: make([]geminiContent, 0, len(history)),
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.opts.Temperature,
			MaxOutputTokens: g.opts.MaxTokens,
		},
	}
	for _, h := range history {
		role := "user"
		if h.Role == models.RoleAssistant {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: h.Content}}})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("provider: marshal request: %w", err)
	}

	u, _ := url.Parse(g.endpoint)
	q := u.Query()
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return Reply{}, &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Reply{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, &TransportError{Err: err}
	}

	var parsed geminiResponse
	decodeErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := ""
		if decodeErr == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return Reply{}, &UpstreamError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return Reply{}, &TransportError{Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if parsed.Error != nil {
		return Reply{}, &UpstreamError{Status: parsed.Error.Code, Message: parsed.Error.Message}
	}
	if len(parsed.Candidates) == 0 {
		return Reply{}, &TransportError{Err: errEmptyResponse}
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Reply{}, &TransportError{Err: errEmptyResponse}
	}

	total := parsed.UsageMetadata.TotalTokenCount
	return Reply{Text: text, Tokens: total, UsageReported: total > 0}, nil
}
