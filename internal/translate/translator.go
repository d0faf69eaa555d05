// Package translate wraps a DeepL-compatible text translation provider
// behind a uniform configured/error contract.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api-free.deepl.com/v2"
	requestTimeout = 15 * time.Second

	// Provider-side status for exhausted translation quota.
	statusQuotaExceeded = 456
)

// Result is one completed translation.
type Result struct {
	Text               string `json:"text"`
	DetectedSourceLang string `json:"detectedSourceLang"`
	TargetLang         string `json:"targetLang"`
}

// Usage reports the provider character quota consumption.
type Usage struct {
	CharacterCount int64 `json:"character_count"`
	CharacterLimit int64 `json:"character_limit"`
}

// Language is one supported target language.
type Language struct {
	Code string `json:"language"`
	Name string `json:"name"`
}

// TranslatorConfig bundles translator settings.
type TranslatorConfig struct {
	APIKey        string
	BaseURL       string
	MaxTextLength int
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Translator is a thin client over the translation provider. The
// configured state is decided once at construction from the credential.
type Translator struct {
	apiKey        string
	baseURL       string
	maxTextLength int
	client        *http.Client
	configured    bool
	logger        *zap.Logger
}

// NewTranslator constructs a Translator; an absent or placeholder
// credential yields an unconfigured adapter that fails fast.
func NewTranslator(cfg TranslatorConfig) *Translator {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxTextLength := cfg.MaxTextLength
	if maxTextLength <= 0 {
		maxTextLength = 1000
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	configured := credentialConfigured(cfg.APIKey)
	if configured {
		logger.Info("translation service initialized")
	} else {
		logger.Warn("translation API key not configured")
	}

	return &Translator{
		apiKey:        strings.TrimSpace(cfg.APIKey),
		baseURL:       baseURL,
		maxTextLength: maxTextLength,
		client:        client,
		configured:    configured,
		logger:        logger,
	}
}

func credentialConfigured(apiKey string) bool {
	key := strings.TrimSpace(apiKey)
	return key != "" && !strings.HasPrefix(key, "your_") && len(key) > 10
}

// Configured reports whether the provider credential is present.
func (t *Translator) Configured() bool {
	return t.configured
}

// MaxTextLength exposes the validation limit for boundary checks.
func (t *Translator) MaxTextLength() int {
	return t.maxTextLength
}

type translateRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
	SourceLang string   `json:"source_lang,omitempty"`
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate translates text into targetLang. sourceLang may be empty for
// provider-side detection. Input is validated before any network call.
func (t *Translator) Translate(ctx context.Context, text, targetLang, sourceLang string) (Result, error) {
	if !t.configured {
		return Result{}, apperr.New(apperr.KindNotConfigured, "translation service not configured")
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, apperr.New(apperr.KindValidation, "text is required")
	}
	if len([]rune(text)) > t.maxTextLength {
		return Result{}, apperr.New(apperr.KindValidation,
			fmt.Sprintf("text too long for translation (max %d characters)", t.maxTextLength))
	}
	if targetLang == "" {
		targetLang = "PL"
	}

	payload := translateRequest{Text: []string{text}, TargetLang: targetLang, SourceLang: sourceLang}
	var parsed translateResponse
	if err := t.postJSON(ctx, "/translate", payload, &parsed); err != nil {
		return Result{}, err
	}
	if len(parsed.Translations) == 0 {
		return Result{}, apperr.New(apperr.KindEmptyResponse, "empty translation response")
	}

	t.logger.Debug("translation completed",
		zap.Int("original_length", len(text)),
		zap.Int("translated_length", len(parsed.Translations[0].Text)))

	return Result{
		Text:               parsed.Translations[0].Text,
		DetectedSourceLang: parsed.Translations[0].DetectedSourceLanguage,
		TargetLang:         targetLang,
	}, nil
}

// GetUsage returns the provider quota statistics.
func (t *Translator) GetUsage(ctx context.Context) (Usage, error) {
	if !t.configured {
		return Usage{}, apperr.New(apperr.KindNotConfigured, "translation service not configured")
	}
	var usage Usage
	if err := t.getJSON(ctx, "/usage", &usage); err != nil {
		return Usage{}, err
	}
	return usage, nil
}

// GetLanguages lists the supported target languages.
func (t *Translator) GetLanguages(ctx context.Context) ([]Language, error) {
	if !t.configured {
		return nil, apperr.New(apperr.KindNotConfigured, "translation service not configured")
	}
	var languages []Language
	if err := t.getJSON(ctx, "/languages?type=target", &languages); err != nil {
		return nil, err
	}
	return languages, nil
}

func (t *Translator) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode translation request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to build translation request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, out)
}

func (t *Translator) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to build translation request", err)
	}
	return t.do(req, out)
}

func (t *Translator) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "DeepL-Auth-Key "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("translation request failed", zap.Error(err))
		return apperr.Wrap(apperr.KindUpstream, "translation provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return mapProviderStatus(resp.StatusCode, string(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "invalid translation provider response", err)
	}
	return nil
}

func mapProviderStatus(status int, body string) error {
	cause := fmt.Errorf("provider status %d: %s", status, strings.TrimSpace(body))
	switch status {
	case http.StatusForbidden, http.StatusUnauthorized:
		return apperr.Wrap(apperr.KindAuth, "invalid translation API key", cause)
	case statusQuotaExceeded:
		return apperr.Wrap(apperr.KindQuotaExceeded, "translation quota exceeded", cause)
	case http.StatusTooManyRequests:
		return apperr.Wrap(apperr.KindRateLimit, "translation rate limit exceeded", cause)
	case http.StatusBadRequest:
		return apperr.Wrap(apperr.KindValidation, "invalid translation parameters", cause)
	default:
		return apperr.Wrap(apperr.KindUpstream, "translation provider error", cause)
	}
}
