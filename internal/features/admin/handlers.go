// Package admin — handlers.go разбирает команды консоли в личных сообщениях Telegram.
// Поток: /login → пароль → сессия → команды.
package admin

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const helpText = `Команды консоли:
/login <пароль> — вход
/score <user> — счёт, флер и ограничение
/setscore <user> <n> — перезаписать счёт
/unrestrict <user> — снять ограничение на посты
/clearguard normal|mod <parentId> — удалить ключ дубля
/clearguard alt <postId> <user> — удалить ключ дубля alt
/leaderboard — обновить таблицу лидеров
/logout — выход`

// Handler обрабатывает админ-команды.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик консоли.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleAdminMessage обрабатывает сообщение администратора в DM.
// Возвращает false, если сообщение не относится к консоли.
func (h *Handler) HandleAdminMessage(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.From == nil || message.Chat == nil {
		return false
	}
	chatID := message.Chat.ID

	reply, handled := h.Reply(ctx, message.From.ID, message.Text)
	if !handled {
		return false
	}

	// Пароль не должен оставаться в истории чата
	if carriesPassword(message.Text) {
		if _, err := h.bot.Request(tgbotapi.NewDeleteMessage(chatID, message.MessageID)); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Warn("Не удалось удалить сообщение с паролем")
		}
	}
	h.sendMessage(chatID, reply)
	return true
}

// Reply вычисляет ответ консоли на текст. handled=false — не наше сообщение.
func (h *Handler) Reply(ctx context.Context, userID int64, text string) (reply string, handled bool) {
	if !h.service.IsAdmin(userID) {
		return "", false
	}

	// Ожидаем пароль после голого /login
	if state := h.service.GetState(userID); state != nil && state.State == StateAwaitingPassword {
		h.service.ClearState(userID)
		return h.login(ctx, userID, strings.TrimSpace(text)), true
	}

	cmd, args, ok := parseCommand(text)
	if !ok {
		return "", false
	}

	switch cmd {
	case "start", "help":
		return helpText, true
	case "login":
		if len(args) == 0 {
			h.service.SetState(userID, StateAwaitingPassword)
			return "🔐 Введите пароль:", true
		}
		return h.login(ctx, userID, strings.Join(args, " ")), true
	}

	if !h.service.HasActiveSession(ctx, userID) {
		return "🔐 Сначала войдите: /login <пароль>", true
	}
	h.service.Touch(ctx, userID)

	var (
		out string
		err error
	)
	switch cmd {
	case "score":
		if len(args) != 1 {
			return "Использование: /score <user>", true
		}
		out, err = h.service.UserReport(ctx, args[0])
	case "setscore":
		if len(args) != 2 {
			return "Использование: /setscore <user> <n>", true
		}
		out, err = h.service.SetScore(ctx, args[0], args[1])
	case "unrestrict":
		if len(args) != 1 {
			return "Использование: /unrestrict <user>", true
		}
		out, err = h.service.Unrestrict(ctx, args[0])
	case "clearguard":
		out, err = h.service.ClearGuard(ctx, args)
	case "leaderboard":
		out, err = h.service.PublishLeaderboard(ctx)
	case "logout":
		err = h.service.Logout(ctx, userID)
		out = "👋 Сессия завершена"
	default:
		return "Неизвестная команда. /help", true
	}

	if err != nil {
		log.WithError(err).WithFields(log.Fields{"user_id": userID, "cmd": cmd}).Warn("Ошибка команды консоли")
		return fmt.Sprintf("❌ %s", err.Error()), true
	}
	return out, true
}

func (h *Handler) login(ctx context.Context, userID int64, password string) string {
	if err := h.service.VerifyPassword(ctx, userID, password); err != nil {
		return fmt.Sprintf("❌ %s", err.Error())
	}
	return "✅ Аутентификация успешна!\n\n" + helpText
}

// carriesPassword — в обработанном сообщении был пароль.
// Обработанный текст без команды бывает только ответом на приглашение ввести пароль.
func carriesPassword(text string) bool {
	cmd, args, ok := parseCommand(text)
	return !ok || (cmd == "login" && len(args) > 0)
}

// parseCommand разбирает "/cmd@bot arg1 arg2".
func parseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	parts := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(parts) == 0 {
		return "", nil, false
	}
	cmd := strings.ToLower(parts[0])
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd, parts[1:], true
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
