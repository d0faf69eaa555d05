package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/KamilMichalski0/news-summarizer/internal/pipeline"
)

const newsFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <item>
      <title>First article</title>
      <description>First description</description>
      <link>https://example.com/1</link>
      <pubDate>Wed, 01 May 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second article</title>
      <description>Second description</description>
      <link>https://example.com/2</link>
      <pubDate>Wed, 01 May 2024 13:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(newsFeedXML))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewsDigestAcrossSubscriptions(t *testing.T) {
	server := newTestServer(t, testConfig())
	feedServer := newFeedServer(t)

	recorder := server.request(t, http.MethodPost, "/api/user/feeds", validToken,
		`{"rssUrl":"`+feedServer.URL+`/rss.xml","customName":"Test"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("failed to add feed: %d %s", recorder.Code, recorder.Body.String())
	}

	recorder = server.request(t, http.MethodGet, "/api/news", validToken, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeEnvelope(t, recorder)
	data := body["data"].(map[string]any)
	articles := data["articles"].([]any)
	if len(articles) != 2 {
		t.Fatalf("expected 2 digest articles, got %d", len(articles))
	}
	// Newest first.
	first := articles[0].(map[string]any)
	if first["originalTitle"] != "Second article" {
		t.Fatalf("digest must be sorted newest first, got %v", first["originalTitle"])
	}
	if data["feedsProcessed"] != float64(1) {
		t.Fatalf("unexpected feedsProcessed: %v", data["feedsProcessed"])
	}
}

func TestNewsDigestHonorsMaxArticlesPreference(t *testing.T) {
	server := newTestServer(t, testConfig())
	feedServer := newFeedServer(t)

	server.request(t, http.MethodGet, "/api/user/profile", validToken, "")
	recorder := server.request(t, http.MethodPut, "/api/user/profile", validToken,
		`{"preferences":{"language":"pl","max_articles":1,"auto_translate":false,"auto_summarize":false,"max_translation_length":1000}}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("failed to update preferences: %d", recorder.Code)
	}
	server.request(t, http.MethodPost, "/api/user/feeds", validToken,
		`{"rssUrl":"`+feedServer.URL+`/rss.xml"}`)

	recorder = server.request(t, http.MethodGet, "/api/news", validToken, "")
	data := decodeEnvelope(t, recorder)["data"].(map[string]any)
	articles := data["articles"].([]any)
	if len(articles) != 1 {
		t.Fatalf("digest must honor max_articles=1, got %d", len(articles))
	}
}

func TestNewsDigestWithNoSubscriptionsIsEmpty(t *testing.T) {
	server := newTestServer(t, testConfig())

	recorder := server.request(t, http.MethodGet, "/api/news", validToken, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	data := decodeEnvelope(t, recorder)["data"].(map[string]any)
	if articles := data["articles"].([]any); len(articles) != 0 {
		t.Fatalf("expected empty digest, got %d articles", len(articles))
	}
}

func TestProcessFeedRejectsDisallowedDomain(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedDomains = []string{"feeds.bbci.co.uk"}
	server := newTestServer(t, cfg)

	recorder := server.request(t, http.MethodPost, "/api/news/process", validToken,
		`{"articleUrl":"https://evil.example.com/rss.xml","translate":true,"summarize":true}`)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if code := errorCode(t, decodeEnvelope(t, recorder)); code != string(apperr.KindForbiddenDomain) {
		t.Fatalf("expected FORBIDDEN_DOMAIN code, got %s", code)
	}
}

func TestProcessFeedAllowedDomainWithUnreachableUpstream(t *testing.T) {
	server := newTestServer(t, testConfig())

	// The host passes the allow-list; the fetch then fails upstream,
	// which proves the gate was cleared.
	recorder := server.request(t, http.MethodPost, "/api/news/process", validToken,
		`{"articleUrl":"http://127.0.0.1:1/feed.xml"}`)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if code := errorCode(t, decodeEnvelope(t, recorder)); code != string(apperr.KindUpstream) {
		t.Fatalf("expected UPSTREAM_UNAVAILABLE code, got %s", code)
	}
}

func TestProcessFeedRejectsMalformedURL(t *testing.T) {
	server := newTestServer(t, testConfig())

	cases := []string{
		`{"articleUrl":""}`,
		`{"articleUrl":"not a url"}`,
		`{"articleUrl":"ftp://feeds.bbci.co.uk/rss.xml"}`,
	}
	for _, body := range cases {
		recorder := server.request(t, http.MethodPost, "/api/news/process", validToken, body)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, recorder.Code)
		}
	}
}

func TestProcessFeedReturnsArticles(t *testing.T) {
	server := newTestServer(t, testConfig())
	feedServer := newFeedServer(t)

	recorder := server.request(t, http.MethodPost, "/api/news/process", validToken,
		`{"articleUrl":"`+feedServer.URL+`/rss.xml","translate":true,"summarize":true}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeEnvelope(t, recorder)
	data := body["data"].(map[string]any)
	articles := data["articles"].([]any)
	if len(articles) != 2 {
		t.Fatalf("expected 2 processed articles, got %d", len(articles))
	}
	article := articles[0].(map[string]any)
	// Adapters are unconfigured in this setup, so translated fields mirror
	// the originals and the summary is the placeholder.
	if article["translatedTitle"] != article["originalTitle"] {
		t.Fatalf("unexpected translated title: %v", article["translatedTitle"])
	}
	if article["summary"] != pipeline.SummaryPlaceholder {
		t.Fatalf("expected placeholder summary, got %v", article["summary"])
	}
	services := body["servicesUsed"].(map[string]any)
	if services["translation"] != false || services["summarization"] != false {
		t.Fatalf("unexpected servicesUsed: %v", services)
	}
}
