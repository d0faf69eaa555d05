package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/KamilMichalski0/news-summarizer/internal/cache"
	"github.com/KamilMichalski0/news-summarizer/internal/config"
	"github.com/KamilMichalski0/news-summarizer/internal/feeds"
	"github.com/KamilMichalski0/news-summarizer/internal/identity"
	"github.com/KamilMichalski0/news-summarizer/internal/pipeline"
	"github.com/KamilMichalski0/news-summarizer/internal/summarize"
	"github.com/KamilMichalski0/news-summarizer/internal/translate"
	"github.com/KamilMichalski0/news-summarizer/internal/userdata"
	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	validToken  = "token-user-1"
	secondToken = "token-user-2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier struct {
	identities map[string]identity.Identity
}

func (v *stubVerifier) Verify(token string) (identity.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return identity.Identity{}, apperr.New(apperr.KindNoAuth, "no token provided")
	}
	ident, ok := v.identities[token]
	if !ok {
		return identity.Identity{}, apperr.New(apperr.KindInvalidToken, "invalid or expired token")
	}
	return ident, nil
}

func testConfig() config.AppConfig {
	return config.AppConfig{
		Environment:    "development",
		RateWindow:     time.Minute,
		RateLimitMax:   100,
		CacheTTL:       300 * time.Second,
		MaxArticles:    6,
		MaxTextLength:  1000,
		AllowedOrigins: []string{"*"},
		AllowedDomains: []string{"feeds.bbci.co.uk", "127.0.0.1"},
	}
}

type testServer struct {
	handler  http.Handler
	userData *userdata.Service
	cache    *cache.Cache
}

func newTestServer(t *testing.T, cfg config.AppConfig) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&userdata.Profile{}, &userdata.FeedSubscription{},
		&userdata.ReadingHistoryEntry{}, &userdata.SavedSummary{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	userData, err := userdata.NewService(userdata.ServiceConfig{
		Database:   db,
		IDProvider: userdata.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to create userdata service: %v", err)
	}

	feedCache := cache.New(cache.Config{DefaultTTL: cfg.CacheTTL})
	fetcher, err := feeds.NewFetcher(feeds.FetcherConfig{
		Cache:      feedCache,
		CacheTTL:   cfg.CacheTTL,
		MaxEntries: cfg.MaxArticles,
	})
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}

	translator := translate.NewTranslator(translate.TranslatorConfig{
		MaxTextLength: cfg.MaxTextLength,
	})
	summarizer := summarize.NewSummarizer(summarize.SummarizerConfig{})

	feedPipeline, err := pipeline.New(pipeline.Config{
		Fetcher:       fetcher,
		ShapedFetcher: fetcher,
		Translator:    translator,
		Summarizer:    summarizer,
	})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	verifier := &stubVerifier{identities: map[string]identity.Identity{
		validToken:  {ID: "user-1", Email: "reader@example.com", DisplayName: "Reader One"},
		secondToken: {ID: "user-2", Email: "other@example.com"},
	}}

	handler, err := NewHTTPHandler(Dependencies{
		Verifier:   verifier,
		UserData:   userData,
		Pipeline:   feedPipeline,
		Translator: translator,
		Summarizer: summarizer,
		Cache:      feedCache,
		Config:     cfg,
	})
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}

	return &testServer{handler: handler, userData: userData, cache: feedCache}
}

func (s *testServer) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in body: %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server := newTestServer(t, testConfig())

	recorder := server.request(t, http.MethodGet, "/api/user/profile", "", "")
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	body := decodeEnvelope(t, recorder)
	if body["success"] != false {
		t.Fatalf("expected failure envelope: %v", body)
	}
	if code := errorCode(t, body); code != string(apperr.KindNoAuth) {
		t.Fatalf("expected NO_AUTH code, got %s", code)
	}
}

func TestProtectedRoutesRejectInvalidToken(t *testing.T) {
	server := newTestServer(t, testConfig())

	recorder := server.request(t, http.MethodGet, "/api/user/profile", "bogus", "")
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if code := errorCode(t, decodeEnvelope(t, recorder)); code != string(apperr.KindInvalidToken) {
		t.Fatalf("expected INVALID_TOKEN code, got %s", code)
	}
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	server := newTestServer(t, testConfig())

	recorder := server.request(t, http.MethodGet, "/api/nonsense", validToken, "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	if code := errorCode(t, decodeEnvelope(t, recorder)); code != string(apperr.KindNotFound) {
		t.Fatalf("expected NOT_FOUND code, got %s", code)
	}
}

func TestRateLimitExceededReturns429(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 2
	server := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		recorder := server.request(t, http.MethodGet, "/api/user/profile", validToken, "")
		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, recorder.Code)
		}
	}
	recorder := server.request(t, http.MethodGet, "/api/user/profile", validToken, "")
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", recorder.Code)
	}
	if code := errorCode(t, decodeEnvelope(t, recorder)); code != string(apperr.KindRateLimit) {
		t.Fatalf("expected RATE_LIMIT code, got %s", code)
	}

	// Another identity gets its own window.
	recorder = server.request(t, http.MethodGet, "/api/user/profile", secondToken, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("other user must not be throttled, got %d", recorder.Code)
	}
}
