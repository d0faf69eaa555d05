package server

import (
	"net/http"
	"strconv"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/KamilMichalski0/news-summarizer/internal/userdata"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	profile, err := h.userData.GetProfile(c.Request.Context(), h.currentIdentity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, profile, nil)
}

type profileUpdatePayload struct {
	DisplayName *string               `json:"display_name"`
	Preferences *userdata.Preferences `json:"preferences"`
	Settings    *userdata.Settings    `json:"settings"`
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	var payload profileUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.respondError(c, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	profile, err := h.userData.UpdateProfile(c.Request.Context(), h.currentIdentity(c).ID, userdata.ProfileUpdate{
		DisplayName: payload.DisplayName,
		Preferences: payload.Preferences,
		Settings:    payload.Settings,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, profile, nil)
}

func (h *httpHandler) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	ident := h.currentIdentity(c)

	profile, err := h.userData.GetProfile(ctx, ident)
	if err != nil {
		h.respondError(c, err)
		return
	}
	feeds, err := h.userData.ListFeeds(ctx, ident.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	history, err := h.userData.ListHistory(ctx, ident.ID, 10)
	if err != nil {
		h.respondError(c, err)
		return
	}
	summaries, err := h.userData.ListSummaries(ctx, ident.ID, 5)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respond(c, http.StatusOK, gin.H{
		"profile": profile,
		"feeds": gin.H{
			"items": feeds,
			"count": len(feeds),
		},
		"recentActivity": gin.H{
			"history":   history,
			"summaries": summaries,
		},
		"stats": gin.H{
			"totalFeeds":     len(feeds),
			"totalRead":      len(history),
			"totalSummaries": len(summaries),
		},
	}, nil)
}

func (h *httpHandler) handleDeleteAccount(c *gin.Context) {
	ident := h.currentIdentity(c)
	if err := h.userData.DeleteUserData(c.Request.Context(), ident.ID); err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Info("user account deleted", zap.String("user_id", ident.ID))
	h.respond(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

func (h *httpHandler) handleListFeeds(c *gin.Context) {
	feeds, err := h.userData.ListFeeds(c.Request.Context(), h.currentIdentity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, feeds, gin.H{"count": len(feeds)})
}

type addFeedPayload struct {
	RSSURL     string `json:"rssUrl"`
	CustomName string `json:"customName"`
}

func (h *httpHandler) handleAddFeed(c *gin.Context) {
	var payload addFeedPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.respondError(c, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	feed, err := h.userData.AddFeed(c.Request.Context(), h.currentIdentity(c).ID, payload.RSSURL, payload.CustomName)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, feed, nil)
}

func (h *httpHandler) handleRemoveFeed(c *gin.Context) {
	feed, err := h.userData.RemoveFeed(c.Request.Context(), h.currentIdentity(c).ID, c.Param("feedId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, feed, nil)
}

func (h *httpHandler) handleListHistory(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	history, err := h.userData.ListHistory(c.Request.Context(), h.currentIdentity(c).ID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, history, gin.H{"count": len(history)})
}

type markReadPayload struct {
	ArticleURL string `json:"articleUrl"`
	Liked      bool   `json:"liked"`
}

func (h *httpHandler) handleMarkRead(c *gin.Context) {
	var payload markReadPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.respondError(c, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	entry, err := h.userData.MarkRead(c.Request.Context(), h.currentIdentity(c).ID, payload.ArticleURL, payload.Liked)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, entry, nil)
}

func (h *httpHandler) handleListSummaries(c *gin.Context) {
	limit := parseLimit(c.Query("limit"))
	summaries, err := h.userData.ListSummaries(c.Request.Context(), h.currentIdentity(c).ID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, summaries, gin.H{"count": len(summaries)})
}

// parseLimit reads a positive limit, zero meaning "use the service default".
func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
