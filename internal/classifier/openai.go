package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/crosslink/internal/model"
	"golang.org/x/time/rate"
)

// Defaults for OpenAI.
const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultModel             = "gpt-4o-mini"
	DefaultTimeout           = 2 * time.Minute
	DefaultRequestsPerSecond = 5.0
)

// Config configures an OpenAI classifier.
type Config struct {
	// APIKey is sent as a bearer token. Calls fail with ErrAuth when empty.
	APIKey string

	// BaseURL is the API root, for example https://api.openai.com/v1.
	BaseURL string

	// Model is the chat model name.
	Model string

	// Timeout bounds each call, rate limiting excluded.
	Timeout time.Duration

	// RequestsPerSecond paces calls.
	RequestsPerSecond float64

	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client

	// Logger receives debug output.
	Logger *slog.Logger
}

// OpenAI classifies pages through the chat completions API in JSON mode.
type OpenAI struct {
	client  *http.Client
	apiKey  string
	apiURL  string
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Classifier = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI classifier. Zero values in cfg take defaults.
func NewOpenAI(cfg Config) *OpenAI {
	apiURL := strings.TrimRight(cfg.BaseURL, "/")
	if apiURL == "" {
		apiURL = DefaultBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAI{
		client:  client,
		apiKey:  cfg.APIKey,
		apiURL:  apiURL,
		model:   modelName,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

// ClassifyPage asks for the title and linkable keywords of a page.
func (o *OpenAI) ClassifyPage(ctx context.Context, req PageRequest) (*PageResult, error) {
	content, err := o.complete(ctx, pageSystemPrompt, pagePrompt(req))
	if err != nil {
		return nil, err
	}

	var out pageResponse
	if err := decodeJSON(content, &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCollaborator, req.URL, err) //nolint:errorlint // only the sentinel is matched
	}

	title := strings.TrimSpace(out.Title)
	return &PageResult{
		Title:    title,
		Keywords: cleanKeywords(out.Keywords, title),
	}, nil
}

// ClassifyPair asks for links from the source page to the target page.
func (o *OpenAI) ClassifyPair(ctx context.Context, req PairRequest) ([]model.IntersectionCandidate, error) {
	if req.Source == nil || req.Target == nil {
		return nil, fmt.Errorf("%w: pair is incomplete", ErrCollaborator)
	}

	content, err := o.complete(ctx, pairSystemPrompt, pairPrompt(req))
	if err != nil {
		return nil, err
	}

	candidates, err := decodeCandidates(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s -> %s: %v", ErrCollaborator, req.Source.URL, req.Target.URL, err) //nolint:errorlint // only the sentinel is matched
	}
	return candidates, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// complete sends one chat completion and returns the assistant content.
func (o *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("%w: %w: OPENAI_API_KEY is not set", ErrCollaborator, ErrAuth)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, o.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: no response within %s", ErrCollaborator, o.timeout)
		}
		return "", fmt.Errorf("%w: request failed: %v", ErrCollaborator, err) //nolint:errorlint // only the sentinel is matched
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: read response: %v", ErrCollaborator, err) //nolint:errorlint // only the sentinel is matched
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: %w: %s", ErrCollaborator, ErrAuth, resp.Status)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return "", fmt.Errorf("%w: unexpected status %s: %s", ErrCollaborator, resp.Status, truncate(strings.TrimSpace(string(body)), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrCollaborator, err) //nolint:errorlint // only the sentinel is matched
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrCollaborator)
	}
	msg := out.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("%w: model refused: %s", ErrCollaborator, msg.Refusal)
	}

	o.logger.Debug("classification call done", "model", o.model, "elapsed", time.Since(start), "finish_reason", out.Choices[0].FinishReason)
	return msg.Content, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
