package server

import (
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/gin-gonic/gin"
)

// respond writes the standard envelope: success flag and timestamp at the
// top level, metadata keys merged alongside, payload under "data".
func (h *httpHandler) respond(c *gin.Context, status int, data any, metadata gin.H) {
	body := gin.H{
		"success":   true,
		"timestamp": h.clock().UTC().Format(time.RFC3339),
	}
	for key, value := range metadata {
		body[key] = value
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// respondError maps the error kind to a status code and writes the failure
// envelope. Untyped errors surface as a generic internal failure.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.JSON(kind.HTTPStatus(), gin.H{
		"success":   false,
		"timestamp": h.clock().UTC().Format(time.RFC3339),
		"error": gin.H{
			"message": apperr.MessageOf(err),
			"code":    string(kind),
		},
	})
}

// abortError is respondError for middleware, stopping the handler chain.
func (h *httpHandler) abortError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.AbortWithStatusJSON(kind.HTTPStatus(), gin.H{
		"success":   false,
		"timestamp": h.clock().UTC().Format(time.RFC3339),
		"error": gin.H{
			"message": apperr.MessageOf(err),
			"code":    string(kind),
		},
	})
}
