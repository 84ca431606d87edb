// Package admin реализует консоль модераторов в Telegram с парольной аутентификацией.
// models.go описывает структуры сессий и состояния диалога.
package admin

import "time"

// AdminSession — активная сессия администратора.
type AdminSession struct {
	UserID          int64     `json:"user_id"`
	SessionToken    string    `json:"session_token"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	LastActivity    time.Time `json:"last_activity"`
}

// Active — сессия ещё не истекла.
func (s *AdminSession) Active(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// AdminState — состояние диалога с админом.
type AdminState struct {
	State     string    // Текущее состояние ("", "awaiting_password")
	ExpiresAt time.Time // Когда состояние истекает (5 минут)
}

// Возможные состояния админ-диалога
const (
	StateNone             = ""                  // Нет активного состояния
	StateAwaitingPassword = "awaiting_password" // Ждём пароль
)
