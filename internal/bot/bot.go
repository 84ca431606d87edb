// Package bot содержит главный цикл бота.
// bot.go принимает события Reddit из поллера и раскладывает их по обработчикам:
// комментарии → выдача очков, посты → ограничение на посты, ЛС → отказ от предупреждений.
package bot

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/bot/filters"
	"serotonyl.ru/reputation-bot/internal/bot/middleware"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/awards"
	"serotonyl.ru/reputation-bot/internal/features/restriction"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// AwardHandler — обработчик комментариев и личных сообщений.
type AwardHandler interface {
	HandleComment(ctx context.Context, s *config.Settings, eventID string, ev *platform.CommentEvent) awards.Result
	HandleMessage(ctx context.Context, s *config.Settings, eventID string, msg *platform.PrivateMessage)
}

// PostHandler — обработчик новых постов.
type PostHandler interface {
	HandlePost(ctx context.Context, s *config.Settings, ev *platform.PostEvent) restriction.Decision
}

// Bot — диспетчер событий Reddit.
type Bot struct {
	cfg      *config.Config
	settings config.SettingsSource

	filter      *filters.SubredditFilter
	rateLimiter *middleware.RateLimiter

	awardHandler AwardHandler
	postHandler  PostHandler

	// ограничитель параллелизма обработки событий
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт диспетчер. postHandler может быть nil, если ограничение выключено.
func New(
	cfg *config.Config,
	settings config.SettingsSource,
	filter *filters.SubredditFilter,
	awardHandler AwardHandler,
	postHandler PostHandler,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 16
	}

	return &Bot{
		cfg:          cfg,
		settings:     settings,
		filter:       filter,
		rateLimiter:  middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		awardHandler: awardHandler,
		postHandler:  postHandler,
		inflight:     make(chan struct{}, maxInFlight),
	}
}

// Start читает события до отмены ctx или закрытия канала
// и ждёт завершения уже запущенных обработчиков.
func (b *Bot) Start(ctx context.Context, events <-chan platform.Event) {
	defer b.rateLimiter.Close()
	defer b.wg.Wait()

	log.WithFields(log.Fields{
		"subreddit":    b.cfg.Subreddit,
		"max_inflight": cap(b.inflight),
	}).Info("Бот запущен и ожидает события...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return

		case ev, ok := <-events:
			if !ok {
				log.Info("Канал событий закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			select {
			case b.inflight <- struct{}{}:
			case <-ctx.Done():
				return
			}
			b.wg.Add(1)
			go func(ev platform.Event) {
				defer b.wg.Done()
				defer func() { <-b.inflight }()
				b.HandleEvent(ctx, ev)
			}(ev)
		}
	}
}

// HandleEvent обрабатывает одно событие синхронно.
func (b *Bot) HandleEvent(ctx context.Context, ev platform.Event) {
	defer middleware.RecoverFromPanic("dispatcher")

	middleware.LogEvent(ev)

	if !b.filter.CheckAccess(ev) {
		return
	}

	// Лимит только на ЛС: комментарии и посты Reddit повторно не присылает
	if ev.Message != nil && !b.rateLimiter.Allow(ev.Author()) {
		log.WithFields(log.Fields{"event_id": ev.ID, "author": ev.Author()}).Debug("rate limited")
		return
	}

	// Снимок настроек на каждое событие
	settings, err := b.settings.Snapshot(ctx)
	if err != nil {
		log.WithError(err).WithField("event_id", ev.ID).Error("Настройки недоступны, событие пропущено")
		return
	}

	switch {
	case ev.Comment != nil:
		b.awardHandler.HandleComment(ctx, settings, ev.ID, ev.Comment)

	case ev.Post != nil:
		if b.postHandler == nil || !b.cfg.FeatureRestrictionsEnabled {
			return
		}
		decision := b.postHandler.HandlePost(ctx, settings, ev.Post)
		logger := log.WithFields(log.Fields{
			"event_id": ev.ID,
			"author":   ev.Post.Author,
			"post":     ev.Post.Post.ID,
			"decision": decision,
		})
		if decision == restriction.DecisionIgnored {
			logger.Debug("Пост обработан")
		} else {
			logger.Info("Пост обработан")
		}

	case ev.Message != nil:
		b.awardHandler.HandleMessage(ctx, settings, ev.ID, ev.Message)
	}
}
