package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"riverway/internal/cache"
	"riverway/internal/chatbot"
	"riverway/internal/config"
	"riverway/internal/db"
	"riverway/internal/email"
	"riverway/internal/handlers/api"
	"riverway/internal/jobs"
	"riverway/internal/logger"
	"riverway/internal/metrics"
	"riverway/internal/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	log.Info("migrations completed successfully")

	seed, err := config.LoadSeedData(cfg.SeedFile)
	if err != nil {
		log.Fatal("failed to load seed file", zap.Error(err), zap.String("path", cfg.SeedFile))
	}
	if seed != nil {
		res, err := database.Seed(ctx, seed)
		if err != nil {
			log.Fatal("failed to apply seed data", zap.Error(err))
		}
		log.Info("seed data applied",
			zap.Int("hours", res.Hours),
			zap.Int("faqs", res.FAQs),
			zap.Int("categories", res.Categories),
			zap.Int("products", res.Products),
		)
	}

	settings, err := cache.NewSettingsCache(database, cfg.SettingsCacheTTL, log)
	if err != nil {
		log.Fatal("failed to create settings cache", zap.Error(err))
	}
	defer settings.Close()

	checks := map[string]api.Pinger{"database": database}

	var attempts chatbot.AttemptTracker = chatbot.NewMemoryAttemptTracker()
	if cfg.UseRedisAttempts() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		client := redis.NewClient(opts)
		defer client.Close()
		attempts = chatbot.NewRedisAttemptTracker(client, "", cfg.AttemptTTL)
		checks["redis"] = api.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		log.Info("failed-attempt counters stored in redis")
	}

	engineOpts := []chatbot.Option{
		chatbot.WithLocation(cfg.Location()),
		chatbot.WithCurrency(cfg.CurrencySymbol),
		chatbot.WithMediaURL(cfg.MediaURL),
		chatbot.WithBrandName(cfg.BrandName),
		chatbot.WithFAQThreshold(cfg.FAQThreshold),
	}
	if cfg.RandomReplyVariants() {
		engineOpts = append(engineOpts, chatbot.WithVariantSelector(chatbot.RandomSelector{}))
	}

	engine := chatbot.NewEngine(chatbot.Dependencies{
		FAQs:     database,
		Catalog:  database,
		Settings: settings,
		Attempts: attempts,
		Orders:   database,
		Logger:   log,
	}, engineOpts...)
	log.Info("chatbot configured",
		zap.String("reply_variants", cfg.ReplyVariants),
		zap.Float64("faq_threshold", cfg.FAQThreshold),
	)

	recorder := metrics.Init(database, log)

	notifier := email.NewNotifier(cfg, database, log)
	if notifier.IsEnabled() {
		log.Info("email notifications enabled", zap.String("smtp_host", cfg.SMTPHost))
	} else {
		log.Warn("email notifications disabled; set SMTP_HOST and SMTP_FROM to enable")
	}

	janitor := jobs.NewSessionJanitor(database, cfg.JanitorInterval, cfg.Location(), log)
	go janitor.Start(ctx)

	srv := server.New(cfg, log)
	if err := srv.RegisterRoutes(ctx, server.Dependencies{
		DB:          database,
		Engine:      engine,
		Settings:    settings,
		Invalidator: settings,
		Notifier:    notifier,
		Metrics:     recorder,
		Checks:      checks,
	}); err != nil {
		log.Fatal("failed to register routes", zap.Error(err))
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	cancel()
	if err := srv.Shutdown(); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	notifier.Wait()
	log.Info("server exited")
}
