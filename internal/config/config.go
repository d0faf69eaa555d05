package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "NEWS"

	defaultHTTPAddress    = "0.0.0.0:3000"
	defaultEnvironment    = "development"
	defaultDatabasePath   = "news.db"
	defaultLogLevel       = "info"
	defaultDeepLBaseURL   = "https://api-free.deepl.com/v2"
	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
	defaultRateWindowMins = 15
	defaultRateLimitMax   = 100
	productionRateLimit   = 50
	defaultCacheTTLSecs   = 300
	defaultMaxArticles    = 6
	defaultMaxTextLength  = 1000
)

// EnvironmentProduction is the environment name that tightens rate limits
// and hides diagnostic surfaces.
const EnvironmentProduction = "production"

var defaultAllowedDomains = []string{
	"feeds.bbci.co.uk",
	"rss.cnn.com",
	"feeds.reuters.com",
	"www.theguardian.com",
	"techcrunch.com",
}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	Environment    string
	DatabasePath   string
	LogLevel       string
	DeepLAPIKey    string
	DeepLBaseURL   string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	AuthJWTSecret  string
	AllowedOrigins []string
	RateWindow     time.Duration
	RateLimitMax   int
	CacheTTL       time.Duration
	MaxArticles    int
	MaxTextLength  int
	AllowedDomains []string
}

// IsProduction reports whether the server runs with production hardening.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("environment", defaultEnvironment)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("deepl.base_url", defaultDeepLBaseURL)
	configViper.SetDefault("openai.base_url", defaultOpenAIBaseURL)
	configViper.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	configViper.SetDefault("ratelimit.window_minutes", defaultRateWindowMins)
	configViper.SetDefault("ratelimit.max", 0)
	configViper.SetDefault("cache.ttl_seconds", defaultCacheTTLSecs)
	configViper.SetDefault("feeds.max_articles", defaultMaxArticles)
	configViper.SetDefault("feeds.allowed_domains", defaultAllowedDomains)
	configViper.SetDefault("translate.max_text_length", defaultMaxTextLength)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		Environment:    configViper.GetString("environment"),
		DatabasePath:   configViper.GetString("database.path"),
		LogLevel:       configViper.GetString("log.level"),
		DeepLAPIKey:    configViper.GetString("deepl.api_key"),
		DeepLBaseURL:   configViper.GetString("deepl.base_url"),
		OpenAIAPIKey:   configViper.GetString("openai.api_key"),
		OpenAIBaseURL:  configViper.GetString("openai.base_url"),
		AuthJWTSecret:  configViper.GetString("auth.jwt_secret"),
		AllowedOrigins: configViper.GetStringSlice("cors.allowed_origins"),
		RateWindow:     time.Duration(configViper.GetInt("ratelimit.window_minutes")) * time.Minute,
		RateLimitMax:   configViper.GetInt("ratelimit.max"),
		CacheTTL:       time.Duration(configViper.GetInt("cache.ttl_seconds")) * time.Second,
		MaxArticles:    configViper.GetInt("feeds.max_articles"),
		MaxTextLength:  configViper.GetInt("translate.max_text_length"),
		AllowedDomains: configViper.GetStringSlice("feeds.allowed_domains"),
	}

	// Production defaults to a tighter per-window cap when unset.
	if cfg.RateLimitMax <= 0 {
		if cfg.IsProduction() {
			cfg.RateLimitMax = productionRateLimit
		} else {
			cfg.RateLimitMax = defaultRateLimitMax
		}
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AuthJWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.MaxArticles <= 0 {
		return fmt.Errorf("feeds.max_articles must be positive")
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("translate.max_text_length must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive")
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("ratelimit.window_minutes must be positive")
	}
	return nil
}
