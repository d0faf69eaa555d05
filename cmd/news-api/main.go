package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KamilMichalski0/news-summarizer/internal/cache"
	"github.com/KamilMichalski0/news-summarizer/internal/config"
	"github.com/KamilMichalski0/news-summarizer/internal/database"
	"github.com/KamilMichalski0/news-summarizer/internal/feeds"
	"github.com/KamilMichalski0/news-summarizer/internal/identity"
	"github.com/KamilMichalski0/news-summarizer/internal/logging"
	"github.com/KamilMichalski0/news-summarizer/internal/pipeline"
	"github.com/KamilMichalski0/news-summarizer/internal/server"
	"github.com/KamilMichalski0/news-summarizer/internal/summarize"
	"github.com/KamilMichalski0/news-summarizer/internal/translate"
	"github.com/KamilMichalski0/news-summarizer/internal/userdata"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "news-api",
		Short: "Personalized news aggregation backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("environment", defaults.GetString("environment"), "Runtime environment (development, production)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("deepl-api-key", "", "DeepL API key (overrides env)")
	cmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key (overrides env)")
	cmd.PersistentFlags().String("jwt-secret", "", "Identity provider JWT secret (overrides env)")
	cmd.PersistentFlags().Int("rate-limit-max", defaults.GetInt("ratelimit.max"), "Requests allowed per rate-limit window")
	cmd.PersistentFlags().Int("cache-ttl-seconds", defaults.GetInt("cache.ttl_seconds"), "Feed cache TTL in seconds")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "environment", "environment")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "deepl.api_key", "deepl-api-key")
	bindFlag(cmd, "openai.api_key", "openai-api-key")
	bindFlag(cmd, "auth.jwt_secret", "jwt-secret")
	bindFlag(cmd, "ratelimit.max", "rate-limit-max")
	bindFlag(cmd, "cache.ttl_seconds", "cache-ttl-seconds")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.IsProduction())
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	verifier, err := identity.NewVerifier(identity.VerifierConfig{
		JWTSecret: []byte(appConfig.AuthJWTSecret),
	})
	if err != nil {
		return err
	}

	userData, err := userdata.NewService(userdata.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: userdata.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	feedCache := cache.New(cache.Config{DefaultTTL: appConfig.CacheTTL})

	fetcher, err := feeds.NewFetcher(feeds.FetcherConfig{
		Cache:      feedCache,
		CacheTTL:   appConfig.CacheTTL,
		MaxEntries: appConfig.MaxArticles,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	translator := translate.NewTranslator(translate.TranslatorConfig{
		APIKey:        appConfig.DeepLAPIKey,
		BaseURL:       appConfig.DeepLBaseURL,
		MaxTextLength: appConfig.MaxTextLength,
		Logger:        logger,
	})
	summarizer := summarize.NewSummarizer(summarize.SummarizerConfig{
		APIKey:  appConfig.OpenAIAPIKey,
		BaseURL: appConfig.OpenAIBaseURL,
		Logger:  logger,
	})

	feedPipeline, err := pipeline.New(pipeline.Config{
		Fetcher:       fetcher,
		ShapedFetcher: fetcher,
		Translator:    translator,
		Summarizer:    summarizer,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Verifier:   verifier,
		UserData:   userData,
		Pipeline:   feedPipeline,
		Translator: translator,
		Summarizer: summarizer,
		Cache:      feedCache,
		Config:     appConfig,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic cache sweep so expired feeds do not linger between reads.
	go func() {
		ticker := time.NewTicker(appConfig.CacheTTL)
		defer ticker.Stop()
		for {
			select {
			case <-signalCtx.Done():
				return
			case <-ticker.C:
				if removed := feedCache.PurgeExpired(); removed > 0 {
					logger.Debug("cache sweep", zap.Int("removed", removed))
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("environment", appConfig.Environment))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
