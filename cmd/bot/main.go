package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"chgk-bot/internal/config"
	"chgk-bot/internal/quiz"
	"chgk-bot/internal/server"
	"chgk-bot/internal/sheets"
	"chgk-bot/internal/tgbot"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	store, err := sheets.New(cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID, cfg.SheetsTimeout, cfg.HeaderRow)
	if err != nil {
		logger.Fatal("sheets", zap.Error(err))
	}

	svc := quiz.NewService(store, logger)

	botApp, err := tgbot.New(cfg, svc, logger)
	if err != nil {
		logger.Fatal("telegram", zap.Error(err))
	}

	httpSrv := server.New(cfg, svc, botApp, logger)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	if cfg.BasePublicURL != "" {
		// webhook mode: Telegram pushes updates to POST /webhook
		if err := botApp.SetupWebhook(ctx); err != nil {
			logger.Fatal("webhook setup", zap.Error(err))
		}
		logger.Info("webhook registered", zap.String("url", cfg.BasePublicURL+"/webhook"))
	} else {
		go func() {
			logger.Info("long polling started")
			if err := botApp.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("bot stopped", zap.Error(err))
				cancel()
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(ctxTimeout)

	logger.Info("bye")
}
