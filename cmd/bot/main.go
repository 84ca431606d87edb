// Package main — точка входа бота.
// Загружает конфигурацию, инициализирует приложение и запускает.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"serotonyl.ru/reputation-bot/internal/app"
	"serotonyl.ru/reputation-bot/internal/config"
)

func main() {
	// Флаги перекрывают переменные окружения
	settingsFile := flag.String("settings", "", "путь к YAML с настройками сообщества (SETTINGS_FILE)")
	logLevel := flag.String("log-level", "", "уровень логов: debug, info, warn, error (APP_LOG_LEVEL)")
	storeBackend := flag.String("store", "", "хранилище: postgres или memory (STORE_BACKEND)")
	flag.Parse()

	for env, value := range map[string]string{
		"SETTINGS_FILE": *settingsFile,
		"APP_LOG_LEVEL": *logLevel,
		"STORE_BACKEND": *storeBackend,
	} {
		if value != "" {
			if err := os.Setenv(env, value); err != nil {
				fmt.Fprintf(os.Stderr, "не удалось выставить %s: %v\n", env, err)
				os.Exit(2)
			}
		}
	}

	// Настраиваем логирование
	setupLogging()

	log.Info("=== Бот запускается ===")

	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	// Устанавливаем уровень логирования из конфига
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.AppLogLevel).Warn("Неизвестный уровень логов, оставляем debug")
	}

	// Контекст отменяется по Ctrl+C и docker stop
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем приложение (хранилище, Reddit, сервисы, консоль)
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.Close()

	log.WithFields(log.Fields{
		"subreddit": cfg.Subreddit,
		"store":     cfg.StoreBackend,
		"console":   application.Console != nil,
	}).Info("=== Бот готов к работе ===")

	// Блокируется до сигнала остановки
	application.Run(ctx)

	log.Info("=== Бот остановлен ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
