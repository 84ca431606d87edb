// Package bot — console.go запускает консоль модераторов в Telegram (long polling).
package bot

import (
	"context"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/bot/filters"
	"serotonyl.ru/reputation-bot/internal/bot/middleware"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/admin"
)

// Console — цикл обновлений Telegram для консоли.
type Console struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	handler     *admin.Handler

	inflight chan struct{}
	wg       sync.WaitGroup
}

// NewConsole создаёт консоль.
func NewConsole(api *tgbotapi.BotAPI, cfg *config.Config, handler *admin.Handler, chatFilter *filters.ChatFilter) *Console {
	return &Console{
		api:         api,
		cfg:         cfg,
		chatFilter:  chatFilter,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		handler:     handler,
		inflight:    make(chan struct{}, 4),
	}
}

// Start запускает polling обновлений от Telegram.
func (c *Console) Start(ctx context.Context) {
	defer c.rateLimiter.Close()
	defer c.wg.Wait()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.cfg.TelegramUpdateTimeoutSeconds

	updates := c.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"bot":         c.api.Self.UserName,
		"admins":      len(c.cfg.AdminIDs),
		"timeout_sec": c.cfg.TelegramUpdateTimeoutSeconds,
	}).Info("Консоль модераторов запущена")

	for {
		select {
		case <-ctx.Done():
			log.Info("Консоль останавливается (ctx done)...")
			c.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, консоль остановлена")
				return
			}

			c.inflight <- struct{}{}
			c.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer c.wg.Done()
				defer func() { <-c.inflight }()
				c.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (c *Console) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic("console")

	message := update.Message
	if message == nil || message.Text == "" {
		return
	}
	middleware.LogMessage(message)

	if !c.chatFilter.CheckAccess(message) {
		return
	}
	if !c.rateLimiter.Allow(strconv.FormatInt(message.From.ID, 10)) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	if !c.handler.HandleAdminMessage(ctx, message) {
		c.sendMessage(message.Chat.ID, "Не понимаю. /help")
	}
}

func (c *Console) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
