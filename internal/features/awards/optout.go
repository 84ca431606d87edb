// Package awards — optout.go: предупреждения о командах внутри разметки.
//
// Команда в цитате, коде или спойлере не выполняется. Автору уходит одно
// личное сообщение на комментарий и вид разметки (правки не шлют повторно).
// Ответ CONFIRM навсегда отключает предупреждения по всем видам,
// о которых пользователь уже был предупреждён.
package awards

import (
	"context"
	"fmt"
	"strings"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/notify"
	"serotonyl.ru/reputation-bot/internal/store"
)

// ConfirmWord — ответ, отключающий предупреждения.
const ConfirmWord = "CONFIRM"

// ContextWarnings — предупреждения и отказ от них.
type ContextWarnings struct {
	store    store.Store
	notifier *notify.Notifier
}

// NewContextWarnings создаёт сервис предупреждений.
func NewContextWarnings(s store.Store, notifier *notify.Notifier) *ContextWarnings {
	return &ContextWarnings{store: s, notifier: notifier}
}

// Warn предупреждает автора. true — сообщение отправлено.
func (w *ContextWarnings) Warn(ctx context.Context, s *config.Settings, subreddit, user, commentID string, kind ContextKind) (bool, error) {
	optedOut, err := w.OptedOut(ctx, user, kind)
	if err != nil || optedOut {
		return false, err
	}
	first, err := w.store.SetNX(ctx, contextWarnedKey(kind, commentID), "1")
	if err != nil || !first {
		return false, err
	}
	if err := w.store.Set(ctx, contextPendingKey(kind, user), commentID); err != nil {
		return false, err
	}

	text := common.RenderTemplate(s.Messages.ContextIgnored, map[string]string{
		"subreddit": subreddit,
		"context":   string(kind),
		"name":      s.PointName,
		"commands":  strings.Join(s.Triggers(), ", "),
	})
	subject := fmt.Sprintf("Award command ignored in r/%s", subreddit)
	if err := w.notifier.Send(ctx, config.ReplyByPM, notify.Target{User: user}, subject, text); err != nil {
		return false, err
	}
	return true, nil
}

// IsConfirmation — текст сообщения является ответом CONFIRM.
func IsConfirmation(body string) bool {
	return strings.EqualFold(strings.TrimSpace(body), ConfirmWord)
}

// Confirm превращает ожидающие предупреждения пользователя в постоянный отказ.
// Возвращает виды разметки, по которым отказ записан.
func (w *ContextWarnings) Confirm(ctx context.Context, s *config.Settings, user string) ([]ContextKind, error) {
	var confirmed []ContextKind
	for _, kind := range ContextKinds {
		pending, err := w.store.Exists(ctx, contextPendingKey(kind, user))
		if err != nil {
			return confirmed, err
		}
		if !pending {
			continue
		}
		if err := w.store.Set(ctx, contextOptOutKey(kind, user), "1"); err != nil {
			return confirmed, err
		}
		if err := w.store.Del(ctx, contextPendingKey(kind, user)); err != nil {
			return confirmed, err
		}
		confirmed = append(confirmed, kind)
	}
	if len(confirmed) == 0 {
		return nil, nil
	}

	names := make([]string, len(confirmed))
	for i, k := range confirmed {
		names[i] = string(k)
	}
	text := common.RenderTemplate(s.Messages.OptOutConfirmed, map[string]string{
		"context": strings.Join(names, ", "),
		"name":    s.PointName,
	})
	if err := w.notifier.Send(ctx, config.ReplyByPM, notify.Target{User: user}, "Warnings disabled", text); err != nil {
		return confirmed, err
	}
	return confirmed, nil
}

// OptedOut — пользователь отказался от предупреждений этого вида.
func (w *ContextWarnings) OptedOut(ctx context.Context, user string, kind ContextKind) (bool, error) {
	return w.store.Exists(ctx, contextOptOutKey(kind, user))
}
