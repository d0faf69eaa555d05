package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
)

const testAPIKey = "sk-test-1234567890abcdef"

func newTestSummarizer(t *testing.T, handler http.HandlerFunc) *Summarizer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSummarizer(SummarizerConfig{
		APIKey:     testAPIKey,
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
}

func completionBody(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"total_tokens": 42},
	}
}

func TestSummarizeSuccess(t *testing.T) {
	summarizer := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+testAPIKey {
			t.Errorf("unexpected authorization header: %s", got)
		}
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "gpt-3.5-turbo" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "Some title") {
			t.Errorf("prompt missing title: %s", req.Messages[1].Content)
		}
		json.NewEncoder(w).Encode(completionBody("  Krótkie streszczenie artykułu.  "))
	})

	summary, err := summarizer.Summarize(context.Background(), "Some title", "Some content")
	if err != nil {
		t.Fatalf("unexpected summarize error: %v", err)
	}
	if summary != "Krótkie streszczenie artykułu." {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func TestSummarizeRequiresTitleOrContent(t *testing.T) {
	var providerCalls atomic.Int64
	summarizer := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		providerCalls.Add(1)
	})

	_, err := summarizer.Summarize(context.Background(), " ", "")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("unexpected kind: %s", apperr.KindOf(err))
	}
	if providerCalls.Load() != 0 {
		t.Fatalf("validation failures must not reach the provider")
	}
}

func TestSummarizeNotConfigured(t *testing.T) {
	var providerCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		providerCalls.Add(1)
	}))
	defer server.Close()

	summarizer := NewSummarizer(SummarizerConfig{BaseURL: server.URL, HTTPClient: server.Client()})
	if summarizer.Configured() {
		t.Fatalf("expected unconfigured summarizer")
	}
	_, err := summarizer.Summarize(context.Background(), "Title", "Content")
	if apperr.KindOf(err) != apperr.KindNotConfigured {
		t.Fatalf("unexpected kind: %s", apperr.KindOf(err))
	}
	if providerCalls.Load() != 0 {
		t.Fatalf("unconfigured adapter must not attempt network calls")
	}
}

func TestSummarizeEmptyCompletionIsError(t *testing.T) {
	cases := []struct {
		name string
		body any
	}{
		{"no choices", map[string]any{"choices": []any{}}},
		{"blank content", completionBody("   ")},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			summarizer := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(testCase.body)
			})
			_, err := summarizer.Summarize(context.Background(), "Title", "Content")
			if apperr.KindOf(err) != apperr.KindEmptyResponse {
				t.Fatalf("unexpected kind: %s", apperr.KindOf(err))
			}
		})
	}
}

func TestSummarizeProviderErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		want   apperr.Kind
	}{
		{"quota", http.StatusTooManyRequests, "insufficient_quota", apperr.KindQuotaExceeded},
		{"bad key code", http.StatusUnauthorized, "invalid_api_key", apperr.KindAuth},
		{"rate limit code", http.StatusTooManyRequests, "rate_limit_exceeded", apperr.KindRateLimit},
		{"bad key status", http.StatusUnauthorized, "", apperr.KindAuth},
		{"rate limit status", http.StatusTooManyRequests, "", apperr.KindRateLimit},
		{"server error", http.StatusInternalServerError, "", apperr.KindUpstream},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			summarizer := newTestSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(testCase.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"code": testCase.code, "message": "provider failure"},
				})
			})
			_, err := summarizer.Summarize(context.Background(), "Title", "Content")
			if apperr.KindOf(err) != testCase.want {
				t.Fatalf("got kind %s, want %s", apperr.KindOf(err), testCase.want)
			}
		})
	}
}
