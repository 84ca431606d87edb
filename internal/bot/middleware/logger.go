// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// LogEvent логирует входящее событие Reddit.
// Записывает: event_id, тип, автора, сабреддит, id объекта и начало текста.
func LogEvent(ev platform.Event) {
	fields := log.Fields{
		"event_id":  ev.ID,
		"kind":      ev.Kind(),
		"author":    ev.Author(),
		"subreddit": ev.Subreddit(),
	}
	switch {
	case ev.Comment != nil && ev.Comment.Comment != nil:
		fields["id"] = ev.Comment.Comment.ID
		fields["text"] = common.TruncateText(ev.Comment.Comment.Body, 50)
	case ev.Post != nil && ev.Post.Post != nil:
		fields["id"] = ev.Post.Post.ID
		fields["text"] = common.TruncateText(ev.Post.Post.Title, 50)
	case ev.Message != nil:
		fields["id"] = ev.Message.ID
		fields["text"] = common.TruncateText(ev.Message.Body, 50)
	}
	log.WithFields(fields).Debug("Входящее событие")
}

// LogMessage логирует входящее сообщение консоли.
// Текст не пишем: там может быть пароль.
func LogMessage(message *tgbotapi.Message) {
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}
	log.WithFields(log.Fields{
		"user_id":  message.From.ID,
		"chat_id":  message.Chat.ID,
		"username": message.From.UserName,
		"length":   len(message.Text),
	}).Debug("Входящее сообщение консоли")
}
