// Package awards — repository.go работает со счётом пользователей в sorted set.
package awards

import (
	"context"
	"fmt"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/store"
)

// Scores — счёт пользователей. Имена хранятся в каноническом регистре площадки.
type Scores struct {
	store store.Store
}

// NewScores создаёт репозиторий счёта.
func NewScores(s store.Store) *Scores {
	return &Scores{store: s}
}

// Get возвращает сохранённый счёт.
func (r *Scores) Get(ctx context.Context, user string) (int64, bool, error) {
	return r.store.ZScore(ctx, ScoreSet, user)
}

// Increment атомарно добавляет 1 и возвращает новый счёт.
func (r *Scores) Increment(ctx context.Context, user string) (int64, error) {
	score, err := r.store.ZIncrBy(ctx, ScoreSet, user, 1)
	if err != nil {
		return 0, fmt.Errorf("ошибка начисления очка %s: %w", user, err)
	}
	return score, nil
}

// Set перезаписывает счёт вручную.
func (r *Scores) Set(ctx context.Context, user string, score int64) error {
	if score < 0 {
		return common.ErrInvalidScore
	}
	return r.store.ZAdd(ctx, ScoreSet, user, score)
}

// Remove удаляет пользователей из таблицы.
func (r *Scores) Remove(ctx context.Context, users ...string) error {
	return r.store.ZRem(ctx, ScoreSet, users...)
}

// Top возвращает n лучших по убыванию счёта.
func (r *Scores) Top(ctx context.Context, n int) ([]store.Member, error) {
	if n <= 0 {
		return nil, nil
	}
	return r.store.ZRange(ctx, ScoreSet, 0, n-1, true)
}

// All возвращает всех пользователей со счётом.
func (r *Scores) All(ctx context.Context) ([]store.Member, error) {
	return r.store.ZRange(ctx, ScoreSet, 0, -1, false)
}
