package provider

import (
	"context"
	"errors"
	"strings"

	"duet/internal/models"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tidwall/gjson"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint using a
// bearer credential.
type OpenAI struct {
	client openai.Client
	model  string
	opts   Options
}

func NewOpenAI(e models.Endpoint, opts Options) (*OpenAI, error) {
	if e.APIKey == "" || e.URL == "" {
		return nil, ErrNotConfigured
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(e.APIKey),
		option.WithBaseURL(BaseURL(e.URL)),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  e.Model,
		opts:   opts,
	}, nil
}

// BaseURL turns a full .../chat/completions endpoint into the base URL the
// client appends its paths to.
func BaseURL(endpoint string) string {
	base := strings.TrimRight(endpoint, "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return base + "/"
}

func (p *OpenAI) Complete(ctx context.Context, history []models.HistoryEntry) (Reply, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, h := range history {
		switch h.Role {
		case models.RoleUser:
			msgs = append(msgs, openai.UserMessage(h.Content))
		case models.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(h.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    msgs,
		Temperature: openai.Float(p.opts.Temperature),
	}
	if p.opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.opts.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Reply{}, &UpstreamError{Status: apiErr.StatusCode, Message: apiErr.Message}
		}
		return Reply{}, &TransportError{Err: err}
	}

	if len(resp.Choices) == 0 {
		// some compatible servers answer 200 with an error object
		if msg := gjson.Get(resp.RawJSON(), "error.message"); msg.Exists() {
			return Reply{}, &UpstreamError{Message: msg.String()}
		}
		return Reply{}, &TransportError{Err: errEmptyResponse}
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Reply{}, &TransportError{Err: errEmptyResponse}
	}

	return Reply{
		Text:          text,
		Tokens:        int(resp.Usage.TotalTokens),
		UsageReported: resp.Usage.TotalTokens > 0,
	}, nil
}
