// Package admin — service.go содержит аутентификацию, сессии
// и модераторские операции консоли: просмотр и правку счёта,
// ручное снятие ограничения, удаление ключей защиты от дублей.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/awards"
	"serotonyl.ru/reputation-bot/internal/features/leaderboard"
	"serotonyl.ru/reputation-bot/internal/features/restriction"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// Deps — сервисы, над которыми работает консоль.
type Deps struct {
	Config       *config.Config
	Settings     config.SettingsSource
	Scores       *awards.Scores
	Guard        *awards.Guard
	Flair        *awards.FlairService
	FlairAPI     platform.FlairAPI
	Restrictions *restriction.Service
	Leaderboard  *leaderboard.Service
}

// Service управляет консолью модераторов.
type Service struct {
	repo *Repository
	Deps

	states   map[int64]*AdminState // Состояния диалогов (in-memory)
	statesMu sync.RWMutex
}

// NewService создаёт сервис консоли.
func NewService(repo *Repository, deps Deps) *Service {
	return &Service{
		repo:   repo,
		Deps:   deps,
		states: make(map[int64]*AdminState),
	}
}

// IsAdmin — Telegram id есть в ADMIN_IDS.
func (s *Service) IsAdmin(userID int64) bool {
	return slices.Contains(s.Config.AdminIDs, userID)
}

// VerifyPassword проверяет пароль администратора с использованием Argon2id.
// Включает защиту от brute-force: ADMIN_LOGIN_ATTEMPTS_PER_HOUR неудач = блокировка до конца часа.
func (s *Service) VerifyPassword(ctx context.Context, userID int64, password string) error {
	if !s.IsAdmin(userID) {
		return common.ErrNotAdmin
	}

	// Проверяем лимит попыток
	attempts, err := s.repo.GetRecentFailures(ctx, userID)
	if err != nil {
		return err
	}
	if attempts >= s.Config.AdminLoginAttemptsPerHour {
		return common.ErrTooManyAttempts
	}

	if !verifyArgon2id(password, s.Config.AdminPasswordHash) {
		if err := s.repo.LogFailedAttempt(ctx, userID); err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Не удалось записать попытку входа")
		}
		log.WithField("user_id", userID).Warn("Неверный пароль консоли")
		return common.ErrWrongPassword
	}

	if err := s.repo.ResetFailures(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось сбросить счётчик попыток")
	}

	now := time.Now()
	session := &AdminSession{
		UserID:          userID,
		SessionToken:    generateSecureToken(),
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(s.Config.AdminSessionTTL),
		LastActivity:    now,
	}
	log.WithField("user_id", userID).Info("Вход в консоль")
	return s.repo.CreateSession(ctx, session)
}

// HasActiveSession проверяет, есть ли у пользователя активная сессия.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	session, err := s.repo.GetActiveSession(ctx, userID)
	return err == nil && session != nil
}

// Touch продлевает отметку активности.
func (s *Service) Touch(ctx context.Context, userID int64) {
	if err := s.repo.UpdateActivity(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось обновить активность")
	}
}

// Logout завершает сессию.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.DeactivateSession(ctx, userID)
}

// GetState возвращает текущее состояние диалога.
func (s *Service) GetState(userID int64) *AdminState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	state, ok := s.states[userID]
	if !ok || time.Now().After(state.ExpiresAt) {
		return nil
	}
	return state
}

// SetState устанавливает состояние диалога с 5-минутным таймаутом.
func (s *Service) SetState(userID int64, stateName string) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	s.states[userID] = &AdminState{
		State:     stateName,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
}

// ClearState сбрасывает состояние диалога.
func (s *Service) ClearState(userID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	delete(s.states, userID)
}

// --- Модераторские операции ---

// UserReport описывает счёт и ограничение пользователя.
func (s *Service) UserReport(ctx context.Context, username string) (string, error) {
	user, err := parseUsername(username)
	if err != nil {
		return "", err
	}
	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	stored, found, err := s.Scores.Get(ctx, user)
	if err != nil {
		return "", err
	}
	flair, err := s.FlairAPI.GetUserFlair(ctx, s.Config.Subreddit, user)
	if err != nil {
		log.WithError(err).WithField("user", user).Warn("Не удалось прочитать флер")
		flair = nil
	}
	st, err := s.Restrictions.Repository().Get(ctx, user)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👤 u/%s\n", user))
	if found {
		sb.WriteString(fmt.Sprintf("Сохранённый счёт: %d\n", stored))
	} else {
		sb.WriteString("Сохранённый счёт: нет\n")
	}
	if flair != nil && flair.Text != "" {
		sb.WriteString(fmt.Sprintf("Флер: %q\n", flair.Text))
	} else {
		sb.WriteString("Флер: нет\n")
	}
	sb.WriteString(fmt.Sprintf("Текущий счёт: %d %s\n", awards.EffectiveScore(stored, flair, settings), settings.PointName))
	switch {
	case st.Blocking():
		sb.WriteString(fmt.Sprintf("🚫 Ограничен: нужно ещё %d (пост %s)", st.AwardsRemaining, st.LastValidPost))
	case st.Restricted || st.HasCounter:
		sb.WriteString("⚠️ Неполное состояние ограничения, снимется при следующем посте")
	default:
		sb.WriteString("Ограничений нет")
	}
	return sb.String(), nil
}

// SetScore перезаписывает счёт и обновляет флер.
func (s *Service) SetScore(ctx context.Context, username, rawScore string) (string, error) {
	user, err := parseUsername(username)
	if err != nil {
		return "", err
	}
	score, err := strconv.ParseInt(strings.TrimSpace(rawScore), 10, 64)
	if err != nil || score < 0 {
		return "", common.ErrInvalidScore
	}
	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	old, _, err := s.Scores.Get(ctx, user)
	if err != nil {
		return "", err
	}
	if err := s.Scores.Set(ctx, user, score); err != nil {
		return "", err
	}
	log.WithFields(log.Fields{"user": user, "old": old, "new": score}).Info("Счёт изменён вручную")

	reply := fmt.Sprintf("✅ u/%s: %d → %d %s", user, old, score, settings.PointName)
	if err := s.Flair.Apply(ctx, settings, s.Config.Subreddit, user, score); err != nil {
		log.WithError(err).WithField("user", user).Warn("Не удалось обновить флер")
		reply += "\n⚠️ Флер не обновлён"
	}
	return reply, nil
}

// Unrestrict снимает ограничение вручную. Пользователь уведомление не получает.
func (s *Service) Unrestrict(ctx context.Context, username string) (string, error) {
	user, err := parseUsername(username)
	if err != nil {
		return "", err
	}
	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	before, err := s.Restrictions.ManualClear(ctx, settings, s.Config.Subreddit, user)
	if err != nil {
		return "", err
	}
	if before.Empty() {
		return fmt.Sprintf("ℹ️ У u/%s не было ограничения", user), nil
	}
	return fmt.Sprintf("✅ Ограничение u/%s снято (оставалось %d)", user, before.AwardsRemaining), nil
}

// ClearGuard удаляет ключ защиты от дублей.
// Форматы: normal|mod <parentId>, alt <postId> <user>.
func (s *Service) ClearGuard(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("использование: /clearguard normal|mod <parentId> или /clearguard alt <postId> <user>")
	}
	kind, err := awards.ParseGuardKind(args[0])
	if err != nil {
		return "", err
	}

	var key string
	if kind == awards.KindAlternate {
		if len(args) < 3 {
			return "", errors.New("для alt нужны <postId> и <user>")
		}
		user, err := parseUsername(args[2])
		if err != nil {
			return "", err
		}
		key = awards.GuardKey(kind, "", args[1], user)
	} else {
		key = awards.GuardKey(kind, args[1], "", "")
	}

	existed, err := s.Guard.Clear(ctx, key)
	if err != nil {
		return "", err
	}
	if !existed {
		return fmt.Sprintf("ℹ️ Ключа %s нет", key), nil
	}
	log.WithField("key", key).Info("Ключ защиты от дублей удалён вручную")
	return fmt.Sprintf("✅ Ключ %s удалён", key), nil
}

// PublishLeaderboard пересобирает таблицу лидеров немедленно.
func (s *Service) PublishLeaderboard(ctx context.Context) (string, error) {
	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(settings.LeaderboardWikiPage) == "" {
		return "ℹ️ leaderboardWikiPage не задан", nil
	}
	changed, err := s.Leaderboard.Publish(ctx, settings, s.Config.Subreddit)
	if err != nil {
		return "", err
	}
	if !changed {
		return "ℹ️ Таблица лидеров не изменилась", nil
	}
	return "✅ Таблица лидеров обновлена", nil
}

func parseUsername(raw string) (string, error) {
	user := common.TrimUserPrefix(strings.TrimSpace(raw))
	if !common.IsValidUsername(user) {
		return "", common.ErrInvalidUsername
	}
	return user, nil
}

// --- Криптографические утилиты ---

// verifyArgon2id проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
