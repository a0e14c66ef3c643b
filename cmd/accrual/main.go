// Package main — разовый прогон начисления ROI (для cron хоста или ручного запуска).
// Код выхода 0 — прогон прошёл без ошибок, 1 — были ошибки.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/invest-platform/internal/app"
	"serotonyl.ru/invest-platform/internal/config"
	"serotonyl.ru/invest-platform/internal/features/investments"
	"serotonyl.ru/invest-platform/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	logging.Setup(cfg.AppLogFormat, cfg.AppLogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("Не удалось инициализировать приложение")
		return 1
	}
	defer application.Close()

	result, err := application.Investments.RunAccrual(ctx, investments.TriggerCLI)
	if err != nil {
		log.WithError(err).Error("Начисление не выполнено")
		return 1
	}

	fmt.Printf("processed=%d updated=%d completed=%d expired=%d failed=%d\n",
		result.Processed, result.Updated, result.Completed, result.Expired, result.Failed)
	if result.Failed > 0 {
		return 1
	}
	return 0
}
