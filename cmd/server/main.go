package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/config"
	"github.com/uran124/avito-relay/internal/credentials"
	"github.com/uran124/avito-relay/internal/database"
	"github.com/uran124/avito-relay/internal/handler"
	"github.com/uran124/avito-relay/internal/jobs"
	"github.com/uran124/avito-relay/internal/llm"
	"github.com/uran124/avito-relay/internal/marketplace"
	"github.com/uran124/avito-relay/internal/middleware"
	"github.com/uran124/avito-relay/internal/notify"
	"github.com/uran124/avito-relay/internal/policy"
	"github.com/uran124/avito-relay/internal/redis"
	"github.com/uran124/avito-relay/internal/repository"
	"github.com/uran124/avito-relay/internal/service"
	"github.com/uran124/avito-relay/internal/session"
	"github.com/uran124/avito-relay/internal/store"
	"github.com/uran124/avito-relay/internal/token"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	// The primary store is optional at startup: a down database degrades
	// requests to file sessions instead of blocking the webhook.
	var db *database.DB
	var primary store.ConversationStore
	if cfg.PrimaryStoreConfigured() {
		db, err = database.Open(cfg.DatabaseDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		if err := db.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("database unreachable at startup, requests will use file sessions until it recovers")
		} else {
			log.Info().Msg("database connected")
		}
		cancel()

		primary = store.NewPrimary(
			repository.NewConversationRepository(db.DB, cfg.TablePrefix),
			repository.NewMessageRepository(db.DB, cfg.TablePrefix),
			repository.NewLeadRepository(db.DB, cfg.TablePrefix),
		)
	}

	sessions, err := session.NewStore(filepath.Join(cfg.DataDir, "sessions"), config.FallbackHistoryCap)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init session store")
	}
	fallback := store.NewFallback(sessions)

	credStore, err := credentials.NewStore(filepath.Join(cfg.DataDir, "tokens.json"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init credential store")
	}

	tokenManager := token.NewManager(credStore, token.Options{
		TokenURL:     cfg.MarketplaceTokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AccountID:    cfg.AccountID,
		RedirectURI:  cfg.OAuthRedirectURI,
	})

	pol, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.PolicyFile).Msg("failed to load policy")
	}

	llmClient, err := llm.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build LLM client")
	}
	log.Info().Str("provider", llmClient.Name()).Msg("LLM provider selected")

	telegram := notify.NewTelegram(notify.TelegramOptions{
		BotToken: cfg.TelegramBotToken,
		ChatID:   cfg.TelegramChatID,
		ThreadID: cfg.TelegramThreadID,
	})
	notifyEngine := notify.NewEngine(telegram, pol, cfg.NotifyMode)

	pipeline := service.NewPipeline(service.PipelineOptions{
		Primary:      primary,
		Fallback:     fallback,
		LLM:          llmClient,
		Notify:       notifyEngine,
		Policy:       pol,
		LeadMode:     cfg.LeadCaptureMode,
		HistoryLimit: cfg.HistoryLimit,
	})

	sender := marketplace.NewClient(tokenManager, marketplace.Options{
		APIBase:   cfg.MarketplaceAPIBase,
		AccountID: cfg.AccountID,
	})

	webhookHandler := handler.NewWebhookHandler(pipeline)
	operatorHandler := handler.NewOperatorHandler(sender, tokenManager)
	healthHandler := handler.NewHealthHandler(db)

	webhookGate := middleware.NewWebhookGateMiddleware(middleware.WebhookGateOptions{
		Enabled:      cfg.WebhookEnabled,
		AllowIPs:     cfg.AllowIPs,
		SecretHeader: cfg.WebhookSecretHeader,
		Secret:       cfg.WebhookSecret,
	})
	operatorAuth := middleware.NewOperatorAuthMiddleware(cfg.OperatorToken)
	bodyLimit := middleware.NewBodyLimitMiddleware(0)

	// Redis is optional and only backs the webhook rate limit.
	var rateLimit *middleware.IPRateLimitMiddleware
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
		rateLimit = middleware.NewIPRateLimitMiddleware(redisClient.Client, cfg.RateLimitPerIP)
	} else {
		rateLimit = middleware.NewIPRateLimitMiddleware(nil, 0)
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimit.Handler)

	r.Get("/health", healthHandler.Health)

	r.Route("/webhook", func(r chi.Router) {
		r.Use(webhookGate.Handler)
		r.Use(rateLimit.Handler)
		r.Post("/", webhookHandler.Webhook)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(operatorAuth.Handler)
		r.Mount("/", operatorHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(sessions, config.SessionMaxIdleAge, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
