package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/gin-gonic/gin"
)

type translatePayload struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

func (h *httpHandler) handleTranslate(c *gin.Context) {
	var payload translatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.respondError(c, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		h.respondError(c, apperr.New(apperr.KindValidation, "Tekst nie może być pusty"))
		return
	}
	if maxLength := h.translator.MaxTextLength(); len([]rune(payload.Text)) > maxLength {
		h.respondError(c, apperr.New(apperr.KindValidation,
			fmt.Sprintf("Tekst nie może być dłuższy niż %d znaków", maxLength)))
		return
	}

	targetLang := payload.TargetLang
	if targetLang == "" {
		targetLang = "PL"
	}

	result, err := h.translator.Translate(c.Request.Context(), payload.Text, targetLang, payload.SourceLang)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respond(c, http.StatusOK, gin.H{
		"translatedText":     result.Text,
		"detectedSourceLang": result.DetectedSourceLang,
		"targetLang":         targetLang,
	}, nil)
}

func (h *httpHandler) handleTranslateUsage(c *gin.Context) {
	usage, err := h.translator.GetUsage(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	metadata := gin.H{}
	profile, err := h.userData.GetProfile(c.Request.Context(), h.currentIdentity(c))
	if err == nil {
		metadata["preferredLanguage"] = profile.Preferences.Language
	}
	h.respond(c, http.StatusOK, usage, metadata)
}

func (h *httpHandler) handleTranslateLanguages(c *gin.Context) {
	languages, err := h.translator.GetLanguages(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, languages, gin.H{"count": len(languages)})
}
