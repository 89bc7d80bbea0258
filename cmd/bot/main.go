package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/socialchef/recipebot/internal/api"
	"github.com/socialchef/recipebot/internal/bot"
	"github.com/socialchef/recipebot/internal/cache"
	"github.com/socialchef/recipebot/internal/config"
	"github.com/socialchef/recipebot/internal/httpclient"
	"github.com/socialchef/recipebot/internal/logger"
	"github.com/socialchef/recipebot/internal/metrics"
	"github.com/socialchef/recipebot/internal/sentry"
	"github.com/socialchef/recipebot/internal/services/recipe"
	"github.com/socialchef/recipebot/internal/services/translation"
	"github.com/socialchef/recipebot/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName, cfg.ServiceVersion, cfg.Env, cfg.OtelExporterOTLPEndpoint, nil)
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Initialize Sentry
	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	}
	if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize business metrics
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	// Initialize logger with OTel support
	slog.SetDefault(logger.New(cfg.Env))

	// Optional Redis cache for lookups and translations
	var c cache.Cache
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("Redis unavailable, running without cache", "error", err)
		} else {
			defer client.Close()
			c = cache.NewRedisCache(client, "recipebot:")
		}
	}

	locale, err := bot.LoadLocale(cfg.Bot.Locale, bot.MenuStyle(cfg.Bot.MenuStyle))
	if err != nil {
		log.Fatalf("Failed to load locale: %v", err)
	}

	recipes := recipe.NewProvider(cfg, c)
	translator := translation.NewFromConfig(cfg, c)

	telegramClient := httpclient.WrapClient(&http.Client{})
	botAPI, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, tgbotapi.APIEndpoint, telegramClient)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}
	botAPI.Debug = cfg.BotDebug

	slog.Info("Authorized on Telegram",
		"username", botAPI.Self.UserName,
		"locale", locale.Code,
		"menu_style", string(locale.MenuStyle),
		"translation_enabled", translator != nil,
		"webhook", cfg.WebhookURL != "",
	)

	dispatcher := bot.NewDispatcher(locale, recipes, translator, bot.NewTelegramSender(botAPI))
	b := bot.New(botAPI, dispatcher)

	// HTTP server: health check, plus the webhook endpoint in webhook mode
	webhookMode := cfg.WebhookURL != ""
	apiServer := api.NewServer(webhookMode, cfg.WebhookSecret, 100)

	r := chi.NewRouter()
	r.Use(sentry.HTTPMiddleware)
	r.Use(otelchi.Middleware(cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	// HTTP metrics
	metricCfg := otelchimetric.NewBaseConfig(cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	apiServer.Routes(r)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return api.ListenAndServe(gctx, httpServer, shutdownTimeout)
	})

	if webhookMode {
		if err := bot.SetWebhook(botAPI, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			log.Fatalf("Failed to register webhook: %v", err)
		}
		slog.Info("Receiving updates by webhook", "url", cfg.WebhookURL)

		g.Go(func() error {
			return b.Run(gctx, apiServer.Updates())
		})
	} else {
		if err := bot.DeleteWebhook(botAPI); err != nil {
			slog.Warn("Failed to delete webhook", "error", err)
		}
		slog.Info("Receiving updates by long polling")

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := botAPI.GetUpdatesChan(u)

		g.Go(func() error {
			<-gctx.Done()
			botAPI.StopReceivingUpdates()
			return nil
		})
		g.Go(func() error {
			return b.Run(gctx, updates)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot stopped")
}
