package filters

import (
	"slices"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает в консоль только личные сообщения администраторов.
type ChatFilter struct {
	adminIDs []int64
}

// NewChatFilter создаёт фильтр консоли.
func NewChatFilter(adminIDs []int64) *ChatFilter {
	return &ChatFilter{adminIDs: adminIDs}
}

// CheckAccess возвращает true для DM от администратора.
func (f *ChatFilter) CheckAccess(message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (service/channel message?)")
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
	})

	if !message.Chat.IsPrivate() {
		logger.Debug("deny: консоль работает только в личке")
		return false
	}
	if !slices.Contains(f.adminIDs, message.From.ID) {
		logger.Info("deny: не администратор")
		return false
	}
	return true
}
