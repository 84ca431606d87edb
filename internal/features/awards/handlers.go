// Package awards — handlers.go связывает движок с потоком событий:
// комментарии идут в движок, личные сообщения CONFIRM — в отказ от предупреждений.
package awards

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// Handler обрабатывает события выдачи очков.
type Handler struct {
	engine   *Engine
	warnings *ContextWarnings
}

// NewHandler создаёт обработчик.
func NewHandler(engine *Engine, warnings *ContextWarnings) *Handler {
	return &Handler{engine: engine, warnings: warnings}
}

// HandleComment прогоняет комментарий через движок и логирует исход.
func (h *Handler) HandleComment(ctx context.Context, s *config.Settings, eventID string, ev *platform.CommentEvent) Result {
	res := h.engine.HandleComment(ctx, s, ev)

	fields := log.Fields{
		"event_id": eventID,
		"outcome":  res.Outcome,
	}
	if ev != nil {
		fields["subreddit"] = ev.Subreddit
		fields["author"] = ev.Author
		fields["type"] = ev.Type.String()
		if ev.Comment != nil {
			fields["comment"] = ev.Comment.ID
		}
	}
	logger := log.WithFields(fields)

	switch res.Outcome {
	case OutcomeNoCommand:
		logger.Debug("Команды нет")
	case OutcomeMissingFields:
		logger.Warn("В событии не хватает полей, пропускаем")
	case OutcomeError:
		logger.WithError(res.Err).WithField("kind", res.Kind.String()).Error("Ошибка выдачи очка")
	case OutcomeAwarded:
		logger.WithFields(log.Fields{
			"kind":      res.Kind.String(),
			"recipient": res.Recipient,
			"score":     res.NewScore,
		}).Info("Очко выдано")
	default:
		logger.WithFields(log.Fields{
			"kind":      res.Kind.String(),
			"recipient": res.Recipient,
		}).Info("Выдача отклонена")
	}
	return res
}

// HandleMessage обрабатывает личное сообщение боту. Понимает только CONFIRM.
func (h *Handler) HandleMessage(ctx context.Context, s *config.Settings, eventID string, msg *platform.PrivateMessage) {
	if msg == nil || !IsConfirmation(msg.Body) {
		return
	}
	logger := log.WithFields(log.Fields{
		"event_id": eventID,
		"author":   msg.Author,
	})
	kinds, err := h.warnings.Confirm(ctx, s, msg.Author)
	if err != nil {
		logger.WithError(err).Error("Ошибка записи отказа от предупреждений")
		return
	}
	if len(kinds) == 0 {
		logger.Debug("CONFIRM без ожидающих предупреждений")
		return
	}
	logger.WithField("contexts", kinds).Info("Пользователь отказался от предупреждений")
}
