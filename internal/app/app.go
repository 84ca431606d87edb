// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: хранилище, клиент Reddit, сервисы, обработчики,
// фильтры, планировщик и консоль модераторов.
package app

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/bot"
	"serotonyl.ru/reputation-bot/internal/bot/filters"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/db/postgres"
	"serotonyl.ru/reputation-bot/internal/features/admin"
	"serotonyl.ru/reputation-bot/internal/features/awards"
	"serotonyl.ru/reputation-bot/internal/features/leaderboard"
	"serotonyl.ru/reputation-bot/internal/features/restriction"
	"serotonyl.ru/reputation-bot/internal/jobs"
	"serotonyl.ru/reputation-bot/internal/notify"
	"serotonyl.ru/reputation-bot/internal/platform"
	"serotonyl.ru/reputation-bot/internal/reddit"
	"serotonyl.ru/reputation-bot/internal/store"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Console   *bot.Console // nil, если консоль выключена
	Poller    *reddit.Poller
	Scheduler *jobs.Scheduler
	Store     store.Store
	DB        *pgxpool.Pool // nil для STORE_BACKEND=memory
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Хранилище ===
	st, pool, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// === 2. Настройки сообщества ===
	// Первый снимок читаем сразу: битый файл лучше увидеть на старте
	settings := config.NewFileSource(cfg.SettingsFile)
	if _, err := settings.Snapshot(ctx); err != nil {
		closePool(pool)
		return nil, fmt.Errorf("ошибка настроек сообщества: %w", err)
	}

	// === 3. Reddit ===
	client := reddit.New(ctx, reddit.Options{
		ClientID:          cfg.RedditClientID,
		ClientSecret:      cfg.RedditClientSecret,
		Username:          cfg.RedditUsername,
		Password:          cfg.RedditPassword,
		UserAgent:         cfg.RedditUserAgent,
		BaseURL:           cfg.RedditAPIBaseURL,
		TokenURL:          cfg.RedditTokenURL,
		RequestsPerMinute: cfg.RedditRequestsPerMinute,
	})
	var p platform.Platform = client
	log.WithFields(log.Fields{"user": client.BotUsername(), "subreddit": cfg.Subreddit}).Info("Клиент Reddit создан")

	// === 4. Планировщик задач ===
	scheduler := jobs.NewScheduler(cfg.Location(), cfg.LeaderboardDebounce)

	// === 5. Репозитории ===
	scores := awards.NewScores(st)
	guard := awards.NewGuard(st)
	restrictionRepo := restriction.NewRepository(st)
	adminRepo := admin.NewRepository(st)

	// === 6. Сервисы ===
	notifier := notify.New(p)
	flair := awards.NewFlairService(scores, restrictionRepo, p)
	restrictions := restriction.NewService(restrictionRepo, p, notifier, flair)
	warnings := awards.NewContextWarnings(st, notifier)
	engine := awards.NewEngine(awards.Deps{
		Platform:     p,
		Scores:       scores,
		Guard:        guard,
		Resolver:     awards.NewResolver(p, awards.NewScorer(scores, p)),
		Flair:        flair,
		Restrictions: restrictions,
		Warnings:     warnings,
		Notifier:     notifier,
		Scheduler:    scheduler,
	})
	board := leaderboard.NewService(scores, restrictionRepo, p)

	// === 7. Фоновые задачи ===
	if err := leaderboard.NewJobs(board, settings, cfg.Subreddit).Register(scheduler, cfg); err != nil {
		closePool(pool)
		return nil, fmt.Errorf("ошибка регистрации задач: %w", err)
	}

	// === 8. Диспетчер событий ===
	var postHandler bot.PostHandler
	if cfg.FeatureRestrictionsEnabled {
		postHandler = restrictions
	}
	b := bot.New(
		cfg, settings,
		filters.NewSubredditFilter(cfg.Subreddit, client.BotUsername()),
		awards.NewHandler(engine, warnings),
		postHandler,
	)

	application := &App{
		Bot:       b,
		Poller:    reddit.NewPoller(client, cfg.Subreddit, cfg.RedditPollInterval),
		Scheduler: scheduler,
		Store:     st,
		DB:        pool,
	}

	// === 9. Консоль модераторов ===
	if cfg.ConsoleEnabled() {
		botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			closePool(pool)
			return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
		}
		botAPI.Debug = cfg.AppEnv == "development"
		log.Infof("Консоль авторизована как @%s", botAPI.Self.UserName)

		adminService := admin.NewService(adminRepo, admin.Deps{
			Config:       cfg,
			Settings:     settings,
			Scores:       scores,
			Guard:        guard,
			Flair:        flair,
			FlairAPI:     p,
			Restrictions: restrictions,
			Leaderboard:  board,
		})
		application.Console = bot.NewConsole(botAPI, cfg, admin.NewHandler(adminService, botAPI), filters.NewChatFilter(cfg.AdminIDs))
	} else {
		log.Info("Консоль модераторов выключена (нет TELEGRAM_BOT_TOKEN или ADMIN_IDS)")
	}

	return application, nil
}

// Run запускает планировщик, поллер, консоль и диспетчер.
// Блокируется до отмены ctx и ждёт остановки всех горутин.
func (a *App) Run(ctx context.Context) {
	a.Scheduler.Start(ctx)
	defer a.Scheduler.Stop()

	var wg sync.WaitGroup
	events := make(chan platform.Event, 64)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Poller.Run(ctx, events)
	}()

	if a.Console != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Console.Start(ctx)
		}()
	}

	a.Bot.Start(ctx, events)
	wg.Wait()
}

// Close освобождает ресурсы.
func (a *App) Close() {
	closePool(a.DB)
}

// openStore выбирает хранилище по STORE_BACKEND.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, *pgxpool.Pool, error) {
	if cfg.StoreBackend == "memory" {
		log.Warn("STORE_BACKEND=memory: все данные пропадут при рестарте")
		return store.NewMemory(), nil, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ошибка миграций: %w", err)
	}
	return store.NewPostgres(pool), pool, nil
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
