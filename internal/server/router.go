// Package server exposes the HTTP surface: authentication, rate limiting,
// domain allow-listing and the JSON envelope over the domain services.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/apperr"
	"github.com/KamilMichalski0/news-summarizer/internal/cache"
	"github.com/KamilMichalski0/news-summarizer/internal/config"
	"github.com/KamilMichalski0/news-summarizer/internal/identity"
	"github.com/KamilMichalski0/news-summarizer/internal/pipeline"
	"github.com/KamilMichalski0/news-summarizer/internal/summarize"
	"github.com/KamilMichalski0/news-summarizer/internal/translate"
	"github.com/KamilMichalski0/news-summarizer/internal/userdata"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingVerifier   = errors.New("token verifier dependency required")
	errMissingUserData   = errors.New("user data service dependency required")
	errMissingPipeline   = errors.New("pipeline dependency required")
	errMissingTranslator = errors.New("translator dependency required")
	errMissingSummarizer = errors.New("summarizer dependency required")
	errMissingCache      = errors.New("cache dependency required")
)

// TokenVerifier resolves bearer tokens into identities.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// Dependencies wires the domain services into the HTTP handler.
type Dependencies struct {
	Verifier   TokenVerifier
	UserData   *userdata.Service
	Pipeline   *pipeline.Pipeline
	Translator *translate.Translator
	Summarizer *summarize.Summarizer
	Cache      *cache.Cache
	Config     config.AppConfig
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewHTTPHandler builds the gin router with all routes and middleware.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Verifier == nil {
		return nil, errMissingVerifier
	}
	if deps.UserData == nil {
		return nil, errMissingUserData
	}
	if deps.Pipeline == nil {
		return nil, errMissingPipeline
	}
	if deps.Translator == nil {
		return nil, errMissingTranslator
	}
	if deps.Summarizer == nil {
		return nil, errMissingSummarizer
	}
	if deps.Cache == nil {
		return nil, errMissingCache
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	handler := &httpHandler{
		verifier:   deps.Verifier,
		userData:   deps.UserData,
		pipeline:   deps.Pipeline,
		translator: deps.Translator,
		summarizer: deps.Summarizer,
		cache:      deps.Cache,
		cfg:        deps.Config,
		logger:     logger,
		clock:      clock,
		limiter:    newRateLimiter(deps.Config.RateWindow, deps.Config.RateLimitMax, clock),
		startedAt:  clock(),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.logRequests)

	allowOrigins := deps.Config.AllowedOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", handler.handleHealth)

	api := router.Group("/api")
	api.Use(handler.authenticate)
	api.Use(handler.rateLimit)

	api.GET("/status", handler.handleStatus)
	api.GET("/metrics", handler.handleMetrics)

	protected := api.Group("/")
	protected.Use(handler.requireIdentity)

	protected.GET("/user/profile", handler.handleGetProfile)
	protected.PUT("/user/profile", handler.handleUpdateProfile)
	protected.GET("/user/dashboard", handler.handleDashboard)
	protected.DELETE("/user/account", handler.handleDeleteAccount)
	protected.GET("/user/feeds", handler.handleListFeeds)
	protected.POST("/user/feeds", handler.handleAddFeed)
	protected.DELETE("/user/feeds/:feedId", handler.handleRemoveFeed)
	protected.GET("/user/history", handler.handleListHistory)
	protected.POST("/user/history/read", handler.handleMarkRead)
	protected.GET("/user/summaries", handler.handleListSummaries)

	protected.GET("/news", handler.handleNewsDigest)
	protected.POST("/news/process", handler.handleProcessFeed)

	protected.POST("/translate", handler.handleTranslate)
	protected.GET("/translate/usage", handler.handleTranslateUsage)
	protected.GET("/translate/languages", handler.handleTranslateLanguages)

	router.NoRoute(func(c *gin.Context) {
		handler.respondError(c, apperr.New(apperr.KindNotFound, "endpoint not found"))
	})

	return router, nil
}

type httpHandler struct {
	verifier   TokenVerifier
	userData   *userdata.Service
	pipeline   *pipeline.Pipeline
	translator *translate.Translator
	summarizer *summarize.Summarizer
	cache      *cache.Cache
	cfg        config.AppConfig
	logger     *zap.Logger
	clock      func() time.Time
	limiter    *rateLimiter
	startedAt  time.Time
}
