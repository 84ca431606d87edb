// Package leaderboard — service.go: обслуживание таблицы лидеров.
// Publish пересобирает вики-страницу с топом, Cleanup убирает из таблицы
// удалённые и заблокированные аккаунты.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/awards"
	"serotonyl.ru/reputation-bot/internal/features/restriction"
	"serotonyl.ru/reputation-bot/internal/platform"
	"serotonyl.ru/reputation-bot/internal/store"
)

// Collaborators — что нужно от площадки.
type Collaborators interface {
	platform.Identity
	platform.Wiki
}

// Service обслуживает таблицу лидеров.
type Service struct {
	scores       *awards.Scores
	restrictions *restriction.Repository
	platform     Collaborators
}

// NewService создаёт сервис. restrictions может быть nil.
func NewService(scores *awards.Scores, restrictions *restriction.Repository, p Collaborators) *Service {
	return &Service{scores: scores, restrictions: restrictions, platform: p}
}

// Publish записывает топ на вики-страницу. Возвращает true, если страница изменилась.
func (s *Service) Publish(ctx context.Context, cfg *config.Settings, subreddit string) (bool, error) {
	page := strings.TrimSpace(cfg.LeaderboardWikiPage)
	if page == "" {
		return false, nil
	}

	top, err := s.scores.Top(ctx, cfg.LeaderboardSize)
	if err != nil {
		return false, fmt.Errorf("ошибка чтения топа: %w", err)
	}
	content := Render(cfg, subreddit, top)

	current, err := s.platform.GetWikiPage(ctx, subreddit, page)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return false, fmt.Errorf("ошибка чтения вики %s: %w", page, err)
	}
	if current == content {
		log.WithField("page", page).Debug("Таблица лидеров не изменилась")
		return false, nil
	}

	if err := s.platform.UpdateWikiPage(ctx, subreddit, page, content, "Update leaderboard"); err != nil {
		return false, fmt.Errorf("ошибка записи вики %s: %w", page, err)
	}
	log.WithFields(log.Fields{"page": page, "entries": len(top)}).Info("Таблица лидеров обновлена")
	return true, nil
}

// Render строит markdown-таблицу топа.
func Render(cfg *config.Settings, subreddit string, top []store.Member) string {
	var sb strings.Builder
	name := cfg.PointName
	sb.WriteString(fmt.Sprintf("# Top %s in r/%s\n\n", name, subreddit))
	if len(top) == 0 {
		sb.WriteString(fmt.Sprintf("Nobody has received any %s yet.\n", name))
		return sb.String()
	}

	sb.WriteString("| Rank | User | " + capitalize(name) + " |\n")
	sb.WriteString("|---:|:---|---:|\n")
	for i, m := range top {
		sb.WriteString(fmt.Sprintf("| %d | u/%s | %d%s |\n", i+1, m.Member, m.Score, cfg.PointSymbol))
	}
	return sb.String()
}

// CleanupReport — итог очистки.
type CleanupReport struct {
	Checked int
	Removed []string
	Failed  int
}

// Cleanup удаляет из таблицы пользователей, которых площадка больше не отдаёт.
// Ошибка поиска не считается отсутствием: такой пользователь пропускается.
func (s *Service) Cleanup(ctx context.Context, subreddit string) (CleanupReport, error) {
	var report CleanupReport

	all, err := s.scores.All(ctx)
	if err != nil {
		return report, fmt.Errorf("ошибка чтения таблицы: %w", err)
	}

	start := time.Now()
	for _, m := range all {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		user, err := s.platform.GetUserByUsername(ctx, m.Member)
		if err != nil {
			report.Failed++
			log.WithError(err).WithField("user", m.Member).Warn("Не удалось проверить аккаунт")
			continue
		}
		if user != nil {
			continue
		}

		if err := s.scores.Remove(ctx, m.Member); err != nil {
			report.Failed++
			log.WithError(err).WithField("user", m.Member).Error("Ошибка удаления из таблицы")
			continue
		}
		if s.restrictions != nil {
			if err := s.restrictions.ClearAll(ctx, m.Member); err != nil {
				log.WithError(err).WithField("user", m.Member).Error("Ошибка очистки ограничения")
			}
		}
		report.Removed = append(report.Removed, m.Member)
	}

	log.WithFields(log.Fields{
		"subreddit": subreddit,
		"checked":   report.Checked,
		"removed":   len(report.Removed),
		"failed":    report.Failed,
		"duration":  time.Since(start).String(),
	}).Info("Очистка таблицы завершена")
	return report, nil
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
