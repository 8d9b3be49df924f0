package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"catalert/agent"
	"catalert/config"
	"catalert/db"
	"catalert/llm"
	"catalert/notify"
	"catalert/server"

	tele "gopkg.in/telebot.v4"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	level := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	store, err := db.NewCatAlertDB(cfg.PostgresURL)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	llmClient := llm.NewClient(cfg)
	careAgent := agent.New(store, llmClient)

	var bot *tele.Bot
	if cfg.TelegramToken != "" {
		bot, err = tele.NewBot(tele.Settings{
			Token:  cfg.TelegramToken,
			Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		})
		if err != nil {
			log.Fatal("Failed to create telegram bot:", err)
		}
	} else {
		slog.Info("TELEGRAM_BOT_TOKEN is not set, reminder alerts are disabled")
	}

	if cfg.SchedulerEnabled {
		notifier, err := notify.New(store, bot, time.Duration(cfg.ActivityExpiryHrs)*time.Hour)
		if err != nil {
			log.Fatal("Failed to create notifier:", err)
		}
		if err := notifier.Start(context.Background()); err != nil {
			log.Fatal("Failed to start notifier:", err)
		}
		defer notifier.Stop()
	}

	srv := server.New(store, careAgent)

	slog.Info("starting catalert server", "port", cfg.Port, "environment", cfg.Environment)
	if err := http.ListenAndServe(":"+cfg.Port, srv.Router()); err != nil {
		log.Fatal("Server stopped:", err)
	}
}
