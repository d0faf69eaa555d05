// Package summarize wraps an OpenAI-compatible chat completion provider
// that produces short article summaries in a fixed target language.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"
	requestTimeout = 30 * time.Second
	maxTokens      = 150
	temperature    = 0.3

	systemPrompt = "Jesteś pomocnym asystentem, który tworzy krótkie i zwięzłe " +
		"streszczenia artykułów w języku polskim. Streszczenie powinno być " +
		"obiektywne i zawierać najważniejsze informacje z artykułu."
)

// SummarizerConfig bundles summarizer settings.
type SummarizerConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Summarizer is a thin client over the completion provider. The configured
// state is decided once at construction from the credential.
type Summarizer struct {
	apiKey     string
	baseURL    string
	model      string
	client     *http.Client
	configured bool
	logger     *zap.Logger
}

// NewSummarizer constructs a Summarizer; an absent or placeholder
// credential yields an unconfigured adapter that fails fast.
func NewSummarizer(cfg SummarizerConfig) *Summarizer {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	key := strings.TrimSpace(cfg.APIKey)
	configured := key != "" && !strings.HasPrefix(key, "your_") && len(key) > 10
	if configured {
		logger.Info("summary service initialized")
	} else {
		logger.Warn("summarization API key not configured")
	}

	return &Summarizer{
		apiKey:     key,
		baseURL:    baseURL,
		model:      model,
		client:     client,
		configured: configured,
		logger:     logger,
	}
}

// Configured reports whether the provider credential is present.
func (s *Summarizer) Configured() bool {
	return s.configured
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type providerError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize produces a 2-3 sentence summary of the article. At least one
// of title/content must be non-empty. An empty completion is a failure,
// never a silently-empty summary.
func (s *Summarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	if !s.configured {
		return "", apperr.New(apperr.KindNotConfigured, "summary service not configured")
	}
	if strings.TrimSpace(title) == "" && strings.TrimSpace(content) == "" {
		return "", apperr.New(apperr.KindValidation, "no content provided for summarization")
	}

	if title == "" {
		title = "Brak tytułu"
	}
	if content == "" {
		content = "Brak treści"
	}
	prompt := fmt.Sprintf(
		"Stwórz krótkie streszczenie (2-3 zdania) tego artykułu w języku polskim:\n\nTytuł: %s\nTreść: %s",
		title, content)

	payload := completionRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to encode summary request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to build summary request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("summary request failed", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.Wrap(apperr.KindTimeout, "summary generation timed out", err)
		}
		return "", apperr.Wrap(apperr.KindUpstream, "summary provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", s.mapProviderError(resp)
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "invalid summary provider response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", apperr.New(apperr.KindEmptyResponse, "empty response from summary provider")
	}
	summary := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if summary == "" {
		return "", apperr.New(apperr.KindEmptyResponse, "empty response from summary provider")
	}

	s.logger.Debug("summary generated",
		zap.Int("summary_length", len(summary)),
		zap.Int("tokens_used", parsed.Usage.TotalTokens))
	return summary, nil
}

func (s *Summarizer) mapProviderError(resp *http.Response) error {
	var parsed providerError
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	cause := fmt.Errorf("provider status %d, code %q: %s",
		resp.StatusCode, parsed.Error.Code, parsed.Error.Message)

	switch parsed.Error.Code {
	case "insufficient_quota":
		return apperr.Wrap(apperr.KindQuotaExceeded, "summary quota exceeded", cause)
	case "invalid_api_key":
		return apperr.Wrap(apperr.KindAuth, "invalid summary API key", cause)
	case "rate_limit_exceeded":
		return apperr.Wrap(apperr.KindRateLimit, "summary rate limit exceeded", cause)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.Wrap(apperr.KindAuth, "invalid summary API key", cause)
	case http.StatusTooManyRequests:
		return apperr.Wrap(apperr.KindRateLimit, "summary rate limit exceeded", cause)
	default:
		return apperr.Wrap(apperr.KindUpstream, "summary generation failed", cause)
	}
}
