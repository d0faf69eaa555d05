package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/gin-gonic/gin"
)

// handleHealth is the liveness probe. It intentionally skips the envelope
// so probes stay cheap to parse.
func (h *httpHandler) handleHealth(c *gin.Context) {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.clock().UTC().Format(time.RFC3339),
		"uptime":    h.clock().Sub(h.startedAt).Seconds(),
		"memory": gin.H{
			"alloc":      memory.Alloc,
			"totalAlloc": memory.TotalAlloc,
			"sys":        memory.Sys,
			"numGC":      memory.NumGC,
		},
		"cache": h.cache.Stats(),
	})
}

func (h *httpHandler) handleStatus(c *gin.Context) {
	services := gin.H{
		"rss":            true,
		"translation":    h.translator.Configured(),
		"summarization":  h.summarizer.Configured(),
		"authentication": true,
		"cache":          true,
	}

	// Production exposes only an aggregate count.
	if h.cfg.IsProduction() {
		available := 0
		for _, up := range services {
			if up == true {
				available++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"services": gin.H{
				"available": available,
				"total":     len(services),
			},
		})
		return
	}

	h.respond(c, http.StatusOK, gin.H{
		"deepl":       h.translator.Configured(),
		"openai":      h.summarizer.Configured(),
		"services":    services,
		"environment": h.cfg.Environment,
		"uptime":      h.clock().Sub(h.startedAt).Seconds(),
	}, nil)
}

func (h *httpHandler) handleMetrics(c *gin.Context) {
	if h.cfg.IsProduction() {
		h.respondError(c, apperr.New(apperr.KindNotFound, "endpoint not available in production"))
		return
	}

	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	h.respond(c, http.StatusOK, gin.H{
		"uptime": h.clock().Sub(h.startedAt).Seconds(),
		"memory": gin.H{
			"alloc":      memory.Alloc,
			"totalAlloc": memory.TotalAlloc,
			"sys":        memory.Sys,
			"heapInuse":  memory.HeapInuse,
			"numGC":      memory.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
		"cache":      h.cache.Stats(),
		"environment": gin.H{
			"goVersion": runtime.Version(),
			"platform":  runtime.GOOS,
			"arch":      runtime.GOARCH,
		},
		"services": gin.H{
			"deepl":  h.translator.Configured(),
			"openai": h.summarizer.Configured(),
			"cache":  true,
			"rss":    true,
		},
	}, nil)
}
