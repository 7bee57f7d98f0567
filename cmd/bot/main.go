package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"household_schedule_bot/internal/app"
	"household_schedule_bot/internal/infra/config"
	idb "household_schedule_bot/internal/infra/database"
	"household_schedule_bot/internal/infra/logger"
	"household_schedule_bot/internal/infra/metrics"
	"household_schedule_bot/internal/infra/scheduler"
	"household_schedule_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Household Schedule Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.For("main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"admin_id":    cfg.AdminTelegramID,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	if err := idb.Migrate(db, logger.For("migrations")); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply database migrations")
	}

	dataStore := idb.NewStore(db, logger.For("store"))
	appMetrics := metrics.New()

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.For("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"text": c.Text(), "sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	processingService := app.NewProcessingService(dataStore, telegram.NewTelebotAdapter(bot), appMetrics, logger.For("processing"))
	adminService := app.NewAdminService(dataStore, cfg.AdminTelegramID, logger.For("admin"))

	householdScheduler := scheduler.NewHouseholdScheduler(processingService, appMetrics, logger.For("scheduler"), scheduler.Options{
		CronSpecAllowances: cfg.CronSpecAllowances,
		CronSpecChores:     cfg.CronSpecChores,
		LookaheadDays:      cfg.ChoreLookaheadDays,
		JobTimeout:         cfg.JobTimeout,
	})
	if err := householdScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start scheduler")
	}

	go func() {
		if err := appMetrics.Serve(ctx, cfg.MetricsAddr, logger.For("metrics")); err != nil {
			mainLogger.WithError(err).Error("Metrics server stopped")
		}
	}()

	// Register Handlers
	handlerLogger := logger.For("telegram")
	telegram.RegisterBotCommands(ctx, bot, cfg.AdminTelegramID, dataStore.Repositories().Members, processingService, handlerLogger)
	telegram.RegisterAdminHandlers(ctx, bot, adminService, cfg.AdminTelegramID, handlerLogger)
	telegram.RegisterMemberResponseHandlers(ctx, bot, processingService, handlerLogger)
	mainLogger.Info("Telegram handlers registered.")

	// Catch up on anything missed while the bot was down; the gate makes this idempotent.
	go householdScheduler.RunChores()
	go householdScheduler.RunAllowances()

	mainLogger.Info("Application setup complete. Bot and Scheduler are starting...")
	go bot.Start()

	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	householdScheduler.Stop()
	bot.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
