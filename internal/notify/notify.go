// Package notify отправляет ответы пользователям в режиме из настроек:
// личным сообщением, модераторским комментарием или никак.
package notify

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// Target — кому и куда отвечать.
type Target struct {
	// User получает личное сообщение
	User string
	// ReplyTo — fullname комментария или поста для ответа комментарием
	ReplyTo string
}

// Notifier — отправка уведомлений через площадку.
type Notifier struct {
	replier platform.Replier
}

// New создаёт отправителя.
func New(replier platform.Replier) *Notifier {
	return &Notifier{replier: replier}
}

// Send отправляет текст согласно режиму. Пустой текст не отправляется.
// Ошибка пометки комментария модераторским только логируется:
// ответ уже опубликован.
func (n *Notifier) Send(ctx context.Context, mode config.NotifyMode, to Target, subject, text string) error {
	if text == "" {
		return nil
	}
	switch mode {
	case config.NoReply, "":
		return nil
	case config.ReplyByPM:
		if to.User == "" {
			return fmt.Errorf("не указан получатель личного сообщения")
		}
		return n.replier.SendPrivateMessage(ctx, to.User, subject, text)
	case config.ReplyAsComment:
		if to.ReplyTo == "" {
			return fmt.Errorf("не указан комментарий для ответа")
		}
		reply, err := n.replier.SubmitComment(ctx, to.ReplyTo, text)
		if err != nil {
			return err
		}
		if err := n.replier.Distinguish(ctx, reply.ID, false); err != nil {
			log.WithError(err).WithField("comment", reply.ID).Warn("Не удалось пометить ответ модераторским")
		}
		return nil
	default:
		return fmt.Errorf("неизвестный режим уведомления %q", mode)
	}
}

// Reply публикует модераторский комментарий, sticky — закрепить (только для ответов на пост).
func (n *Notifier) Reply(ctx context.Context, parentID, text string, sticky bool) error {
	reply, err := n.replier.SubmitComment(ctx, parentID, text)
	if err != nil {
		return err
	}
	if err := n.replier.Distinguish(ctx, reply.ID, sticky); err != nil {
		log.WithError(err).WithField("comment", reply.ID).Warn("Не удалось пометить ответ модераторским")
	}
	return nil
}
