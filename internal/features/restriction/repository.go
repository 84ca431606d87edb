// Package restriction — repository.go прячет строковые ключи состояния
// за типизированными методами.
//
// Ключи:
//   - restrictedUser:<имя>            — флаг ограничения
//   - awardsRequired:<имя>            — сколько ещё выдач нужно
//   - lastValidPost:<имя>             — пост, с которого началось ограничение
//   - restrictionLiftNotified:<имя>:<пост> — уведомление о снятии уже отправлено
package restriction

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"serotonyl.ru/reputation-bot/internal/store"
)

// Repository хранит состояние ограничений в KeyValue Store.
type Repository struct {
	store store.Store
}

// NewRepository создаёт репозиторий ограничений.
func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

func restrictedKey(user string) string { return "restrictedUser:" + strings.ToLower(user) }
func counterKey(user string) string    { return "awardsRequired:" + strings.ToLower(user) }
func lastPostKey(user string) string   { return "lastValidPost:" + strings.ToLower(user) }
func liftNotifiedKey(user, postID string) string {
	return "restrictionLiftNotified:" + strings.ToLower(user) + ":" + postID
}

// Get читает состояние пользователя.
func (r *Repository) Get(ctx context.Context, user string) (State, error) {
	var st State

	restricted, err := r.store.Exists(ctx, restrictedKey(user))
	if err != nil {
		return st, fmt.Errorf("ошибка чтения флага ограничения: %w", err)
	}
	st.Restricted = restricted

	raw, found, err := r.store.Get(ctx, counterKey(user))
	if err != nil {
		return st, fmt.Errorf("ошибка чтения счётчика: %w", err)
	}
	if found {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return st, fmt.Errorf("счётчик %s не число: %w", user, err)
		}
		st.HasCounter = true
		st.AwardsRemaining = n
	}

	last, _, err := r.store.Get(ctx, lastPostKey(user))
	if err != nil {
		return st, fmt.Errorf("ошибка чтения последнего поста: %w", err)
	}
	st.LastValidPost = last
	return st, nil
}

// IsRestricted — есть ли флаг ограничения.
func (r *Repository) IsRestricted(ctx context.Context, user string) (bool, error) {
	return r.store.Exists(ctx, restrictedKey(user))
}

// Start включает ограничение: флаг, счётчик и последний разрешённый пост.
func (r *Repository) Start(ctx context.Context, user string, required int, postID string) error {
	if err := r.store.Set(ctx, restrictedKey(user), "1"); err != nil {
		return err
	}
	if err := r.store.Set(ctx, counterKey(user), strconv.Itoa(required)); err != nil {
		return err
	}
	return r.store.Set(ctx, lastPostKey(user), postID)
}

// Decrement уменьшает счётчик на 1 и возвращает новое значение.
func (r *Repository) Decrement(ctx context.Context, user string) (int64, error) {
	return r.store.IncrBy(ctx, counterKey(user), -1)
}

// Clear снимает ограничение (флаг и счётчик). Последний пост остаётся для шаблонов.
func (r *Repository) Clear(ctx context.Context, user string) error {
	return r.store.Del(ctx, restrictedKey(user), counterKey(user))
}

// ClearAll удаляет все ключи пользователя (ручное снятие, чистка удалённых аккаунтов).
func (r *Repository) ClearAll(ctx context.Context, user string) error {
	return r.store.Del(ctx, restrictedKey(user), counterKey(user), lastPostKey(user))
}

// MarkLiftNotified ставит одноразовый флаг уведомления. false — уже стоял.
func (r *Repository) MarkLiftNotified(ctx context.Context, user, postID string) (bool, error) {
	return r.store.SetNX(ctx, liftNotifiedKey(user, postID), "1")
}
