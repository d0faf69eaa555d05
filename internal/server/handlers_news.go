package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/KamilMichalski0/news-summarizer/internal/pipeline"
	"github.com/KamilMichalski0/news-summarizer/internal/userdata"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *httpHandler) handleNewsDigest(c *gin.Context) {
	ctx := c.Request.Context()
	ident := h.currentIdentity(c)

	profile, err := h.userData.GetProfile(ctx, ident)
	if err != nil {
		h.respondError(c, err)
		return
	}
	subscriptions, err := h.userData.ListFeeds(ctx, ident.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	urls := make([]string, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		urls = append(urls, subscription.RSSURL)
	}

	prefs := profile.Preferences
	digest := h.pipeline.BuildDigest(ctx, urls, prefs.MaxArticles, pipeline.Options{
		Translate:  prefs.AutoTranslate,
		Summarize:  prefs.AutoSummarize,
		TargetLang: strings.ToUpper(prefs.Language),
	})

	h.respond(c, http.StatusOK, digest, gin.H{
		"subscriptions": len(subscriptions),
	})
}

type processFeedPayload struct {
	ArticleURL string `json:"articleUrl"`
	Translate  bool   `json:"translate"`
	Summarize  bool   `json:"summarize"`
}

func (h *httpHandler) handleProcessFeed(c *gin.Context) {
	var payload processFeedPayload
	if err := c.ShouldBindJSON(&payload); err != nil || strings.TrimSpace(payload.ArticleURL) == "" {
		h.respondError(c, apperr.New(apperr.KindValidation, "RSS URL jest wymagany"))
		return
	}

	feedURL := strings.TrimSpace(payload.ArticleURL)
	parsed, err := url.Parse(feedURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Hostname() == "" {
		h.respondError(c, apperr.New(apperr.KindValidation, "Nieprawidłowy format URL"))
		return
	}
	if !hostAllowed(parsed.Hostname(), h.cfg.AllowedDomains) {
		h.logger.Warn("unauthorized domain access attempt",
			zap.String("domain", parsed.Hostname()),
			zap.String("user_id", h.currentIdentity(c).ID))
		h.respondError(c, apperr.New(apperr.KindForbiddenDomain, "Domena nie jest dozwolona"))
		return
	}

	ctx := c.Request.Context()
	result, err := h.pipeline.ProcessFeed(ctx, feedURL, pipeline.Options{
		Translate: payload.Translate,
		Summarize: payload.Summarize,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if payload.Summarize {
		h.persistSummaries(c, result)
	}

	h.respond(c, http.StatusOK, result, gin.H{
		"servicesUsed": gin.H{
			"translation":   h.translator.Configured(),
			"summarization": h.summarizer.Configured(),
		},
	})
}

// persistSummaries stores real summaries produced on demand. Failures are
// logged and do not affect the response.
func (h *httpHandler) persistSummaries(c *gin.Context, result pipeline.Result) {
	ident := h.currentIdentity(c)
	for _, article := range result.Articles {
		if article.Summary == "" || article.Summary == pipeline.SummaryPlaceholder {
			continue
		}
		_, err := h.userData.SaveSummary(c.Request.Context(), ident.ID, userdata.SavedSummary{
			ArticleTitle: article.TranslatedTitle,
			ArticleURL:   article.Link,
			Summary:      article.Summary,
		})
		if err != nil {
			h.logger.Warn("failed to persist summary",
				zap.String("user_id", ident.ID),
				zap.String("article_url", article.Link),
				zap.Error(err))
		}
	}
}
