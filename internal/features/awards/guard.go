// Package awards — guard.go: защита от повторной выдачи.
//
// Ключ ставится после начисления и не истекает: правка комментария
// снова присылает событие, и оно должно упереться в ключ.
// Проверка и отметка не атомарны: два почти одновременных события
// могут оба пройти проверку. Инкремент при этом не теряется,
// страдает только подавление повторного уведомления.
package awards

import (
	"context"
	"time"

	"serotonyl.ru/reputation-bot/internal/store"
)

// Guard — ключи защиты от дублей.
type Guard struct {
	store store.Store
}

// NewGuard создаёт защиту от дублей.
func NewGuard(s store.Store) *Guard {
	return &Guard{store: s}
}

// HasAwarded — ключ уже стоит.
func (g *Guard) HasAwarded(ctx context.Context, key string) (bool, error) {
	return g.store.Exists(ctx, key)
}

// MarkAwarded ставит ключ (значение — время выдачи).
func (g *Guard) MarkAwarded(ctx context.Context, key string) error {
	return g.store.Set(ctx, key, time.Now().UTC().Format(time.RFC3339))
}

// Clear удаляет ключ (административное действие). false — ключа не было.
func (g *Guard) Clear(ctx context.Context, key string) (bool, error) {
	exists, err := g.store.Exists(ctx, key)
	if err != nil || !exists {
		return false, err
	}
	return true, g.store.Del(ctx, key)
}

// MarkSuperuserNotified ставит одноразовый флаг уведомления о статусе доверенного.
// false — уведомление уже отправлялось.
func (g *Guard) MarkSuperuserNotified(ctx context.Context, user string) (bool, error) {
	return g.store.SetNX(ctx, superuserNotifiedKey(user), time.Now().UTC().Format(time.RFC3339))
}
