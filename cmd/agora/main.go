package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/agora-board/agora/pkg/api"
	"github.com/agora-board/agora/pkg/auth"
	"github.com/agora-board/agora/pkg/config"
	"github.com/agora-board/agora/pkg/middleware"
	"github.com/agora-board/agora/pkg/oauth"
	"github.com/agora-board/agora/pkg/observability"
	"github.com/agora-board/agora/pkg/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger("info", os.Stderr).WithError(err).Fatal("load configuration")
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := storage.Open(cfg.Storage.PostgresURL, cfg.Storage.ConnectTimeout)
	if err != nil {
		logger.WithError(err).Fatal("connect to postgres")
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("parse redis URL")
		}
		if cfg.Storage.RedisPassword != "" {
			opts.Password = cfg.Storage.RedisPassword
		}
		opts.DB = cfg.Storage.RedisDB
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	codec, err := auth.NewCodec(cfg.Auth.Secret, cfg.Auth.Algorithm)
	if err != nil {
		logger.WithError(err).Fatal("build token codec")
	}
	cookies := auth.NewCookieManager(cfg.Auth.Production, cfg.Auth.CookieDomain,
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	gate := auth.NewGate(codec)

	users := storage.NewUserStore(db)
	topics := storage.NewTopicStore(db)

	var metrics *observability.Metrics
	var registry *prometheus.Registry
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	rateConfig := middleware.RateLimitConfig{
		Requests: cfg.Auth.LoginRateLimit,
		Window:   cfg.Auth.LoginRateWindow,
	}
	var limiter middleware.Limiter
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient, rateConfig, "")
	} else {
		limiter = middleware.NewMemoryLimiter(rateConfig)
	}
	var limitedCounter *prometheus.CounterVec
	if metrics != nil {
		limitedCounter = metrics.RateLimitedTotal
	}

	handlers := []api.RouteRegistrar{
		api.NewUserHandlers(users, topics, codec, cookies, gate,
			cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, logger, metrics),
		api.NewTopicHandlers(topics, gate, logger),
		api.NewAdminHandlers(users, topics),
	}

	if providers := buildProviders(cfg, logger); len(providers) > 0 {
		handlers = append(handlers, oauth.NewHandlers(providers, users, codec, cookies,
			cfg.Server.FrontendURL, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, logger))
	}

	server := api.NewServer(api.Deps{
		Logger:      logger,
		Metrics:     metrics,
		Registry:    registry,
		Health:      observability.NewHealthChecker(db, redisClient, metrics),
		AdminGuard:  middleware.NewAdminGuard(cfg.Auth.Production, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword),
		RateLimit:   middleware.NewLoginRateLimit(limiter, logger, limitedCounter),
		CSRFGuard:   middleware.NewCSRFGuard(),
		Refresher:   middleware.NewTokenRefresher(codec, cookies, users, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, logger),
		FrontendURL: cfg.Server.FrontendURL,
		Handlers:    handlers,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	shutdownFuncs := []observability.ShutdownFunc{
		func(context.Context) error { return db.Close() },
	}
	if redisClient != nil {
		shutdownFuncs = append(shutdownFuncs, func(context.Context) error { return redisClient.Close() })
	}
	if err := observability.GracefulShutdown(logger, httpServer, cfg.Server.ShutdownTimeout, shutdownFuncs...); err != nil {
		logger.WithError(err).Error("shutdown")
		os.Exit(1)
	}
}

// buildProviders registers every OAuth provider with a configured client.
// Google needs a discovery round-trip, so it gets a bounded context.
func buildProviders(cfg *config.Config, logger *logrus.Logger) []oauth.Provider {
	var providers []oauth.Provider

	if creds := toCredentials(cfg.OAuth.Google); creds.Configured() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		google, err := oauth.NewGoogleProvider(ctx, creds)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("configure google provider")
		}
		providers = append(providers, google)
	}
	if creds := toCredentials(cfg.OAuth.Naver); creds.Configured() {
		providers = append(providers, oauth.NewNaverProvider(creds))
	}
	if creds := toCredentials(cfg.OAuth.Kakao); creds.Configured() {
		providers = append(providers, oauth.NewKakaoProvider(creds))
	}

	return providers
}

func toCredentials(p config.ProviderCredentials) oauth.Credentials {
	return oauth.Credentials{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURI:  p.RedirectURI,
	}
}
