// Package admin — repository.go хранит сессии и неудачные попытки входа в KeyValue Store.
//
// Ключи:
//   - adminSession:<telegram id>                 — JSON сессии
//   - adminLoginFailures:<telegram id>:<час UTC>  — счётчик неудачных попыток за час
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/store"
)

// Repository работает с админскими ключами.
type Repository struct {
	store store.Store
	now   func() time.Time
}

// NewRepository создаёт репозиторий.
func NewRepository(s store.Store) *Repository {
	return &Repository{store: s, now: time.Now}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("adminSession:%d", userID)
}

func failuresKey(userID int64, at time.Time) string {
	return fmt.Sprintf("adminLoginFailures:%d:%s", userID, at.UTC().Format("2006010215"))
}

// CreateSession сохраняет сессию администратора (старая перезаписывается).
func (r *Repository) CreateSession(ctx context.Context, session *AdminSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("ошибка сериализации сессии: %w", err)
	}
	if err := r.store.Set(ctx, sessionKey(session.UserID), string(data)); err != nil {
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

// GetActiveSession возвращает активную сессию пользователя.
// Истёкшая сессия удаляется, возвращается common.ErrSessionExpired.
func (r *Repository) GetActiveSession(ctx context.Context, userID int64) (*AdminSession, error) {
	raw, found, err := r.store.Get(ctx, sessionKey(userID))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	if !found {
		return nil, common.ErrSessionExpired
	}
	var s AdminSession
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("повреждённая сессия: %w", err)
	}
	if !s.Active(r.now()) {
		_ = r.DeactivateSession(ctx, userID)
		return nil, common.ErrSessionExpired
	}
	return &s, nil
}

// DeactivateSession удаляет сессию.
func (r *Repository) DeactivateSession(ctx context.Context, userID int64) error {
	return r.store.Del(ctx, sessionKey(userID))
}

// UpdateActivity обновляет время последней активности.
func (r *Repository) UpdateActivity(ctx context.Context, userID int64) error {
	s, err := r.GetActiveSession(ctx, userID)
	if err != nil {
		return err
	}
	s.LastActivity = r.now()
	return r.CreateSession(ctx, s)
}

// LogFailedAttempt увеличивает счётчик неудачных попыток за текущий час.
func (r *Repository) LogFailedAttempt(ctx context.Context, userID int64) error {
	_, err := r.store.IncrBy(ctx, failuresKey(userID, r.now()), 1)
	return err
}

// GetRecentFailures возвращает число неудачных попыток за текущий час.
func (r *Repository) GetRecentFailures(ctx context.Context, userID int64) (int, error) {
	raw, found, err := r.store.Get(ctx, failuresKey(userID, r.now()))
	if err != nil || !found {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("счётчик попыток не число: %w", err)
	}
	return n, nil
}

// ResetFailures сбрасывает счётчики попыток пользователя после успешного входа.
func (r *Repository) ResetFailures(ctx context.Context, userID int64) error {
	_, err := r.store.DelPrefix(ctx, fmt.Sprintf("adminLoginFailures:%d:", userID))
	return err
}
