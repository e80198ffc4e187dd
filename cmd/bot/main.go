package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/app"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/bot"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/sessions"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/config"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/instance"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "bot"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "bot"

	logg = logger.New(logger.Options{
		ServiceName: "bot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.Bot.Token == "" {
		logg.Error(context.Background(), "telegram token missing", errors.New(config.EnvTelegramToken+" is required"))
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionStore, err := sessions.NewRedisStore(redisClient, cfg.Bot.SessionTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}

	// The bot only reads orders, so it runs without the journal.
	workflow, err := app.NewWorkflow(cfg, logg, nil, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to build order workflow", err)
		os.Exit(1)
	}

	handler, err := bot.NewHandler(bot.HandlerParams{
		Sessions:  sessionStore,
		Pools:     workflow.Pools,
		Orders:    workflow.Orders,
		Logger:    logg,
		WebAppURL: cfg.Bot.WebAppURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bot handler", err)
		os.Exit(1)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		logg.Error(context.Background(), "failed to connect to telegram", err)
		os.Exit(1)
	}
	botAPI.Debug = cfg.Bot.Debug

	poller, err := bot.NewPoller(botAPI, handler, logg, time.Duration(cfg.Bot.PollTimeout)*time.Second)
	if err != nil {
		logg.Error(context.Background(), "failed to create poller", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"instance":    instance.ID(),
		"serviceKind": cfg.Service.Kind,
		"bot":         botAPI.Self.UserName,
	})
	logg.Info(ctx, "starting bot")

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "bot stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "bot shutting down gracefully")
}
