// Package provider adapts the upstream chat endpoints to a single capability:
// accept a message history, return text or an error.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"duet/internal/models"
)

// CharsPerToken is the divisor of the default token estimator.
const CharsPerToken = 4

// ErrNotConfigured is returned when an endpoint lacks a credential or URL.
var ErrNotConfigured = errors.New("provider: endpoint not configured")

// Reply is a successful completion.
type Reply struct {
	Text          string
	Tokens        int
	UsageReported bool
}

// TokenCount returns the reported usage, or est's guess when the upstream
// did not report any.
func (r Reply) TokenCount(est Estimator) int {
	if r.UsageReported {
		return r.Tokens
	}
	if est == nil {
		est = DefaultEstimator
	}
	return est(r.Text)
}

// Provider is one upstream chat endpoint.
type Provider interface {
	Complete(ctx context.Context, history []models.HistoryEntry) (Reply, error)
}

// Options are the generation parameters shared by every request.
type Options struct {
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

// New builds the provider matching the endpoint's kind.
func New(e models.Endpoint, opts Options) (Provider, error) {
	switch KindOf(e) {
	case models.KindGemini:
		return NewGemini(e, opts)
	default:
		return NewOpenAI(e, opts)
	}
}

// KindOf returns the endpoint's kind, inferring it from the URL when unset.
func KindOf(e models.Endpoint) string {
	if e.Kind != "" {
		return e.Kind
	}
	if strings.Contains(e.URL, "generativelanguage.googleapis.com") {
		return models.KindGemini
	}
	return models.KindOpenAI
}

// UpstreamError is a non-success status or a structured error payload.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Status == 0 {
		return "upstream error: " + msg
	}
	return fmt.Sprintf("upstream error (%d): %s", e.Status, msg)
}

// TransportError is a network failure or an unreadable response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "connection error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

var errEmptyResponse = errors.New("empty response from model")

// Estimator approximates the token count of a text.
type Estimator func(text string) int

// CharEstimator divides the character count by charsPerToken. It is a rough
// stand-in for a tokenizer, used when the upstream reports no usage.
func CharEstimator(charsPerToken int) Estimator {
	if charsPerToken <= 0 {
		charsPerToken = CharsPerToken
	}
	return func(text string) int {
		return utf8.RuneCountInString(text) / charsPerToken
	}
}

var DefaultEstimator = CharEstimator(CharsPerToken)
