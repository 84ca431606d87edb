// Package leaderboard — handlers.go регистрирует фоновые задачи в планировщике.
package leaderboard

import (
	"context"
	"fmt"

	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/awards"
	"serotonyl.ru/reputation-bot/internal/jobs"
)

// CleanupJob — периодическая очистка удалённых аккаунтов.
const CleanupJob = "accounts.cleanup"

// Jobs — обёртки сервиса для планировщика.
type Jobs struct {
	service   *Service
	settings  config.SettingsSource
	subreddit string
}

// NewJobs создаёт задачи для одного сабреддита.
func NewJobs(service *Service, settings config.SettingsSource, subreddit string) *Jobs {
	return &Jobs{service: service, settings: settings, subreddit: subreddit}
}

// Register добавляет задачи в планировщик: пересборку по расписанию
// и по запросу движка (awards.LeaderboardUpdateJob), плюс очистку.
func (j *Jobs) Register(s *jobs.Scheduler, cfg *config.Config) error {
	if cfg.FeatureLeaderboardEnabled {
		s.Register(awards.LeaderboardUpdateJob, j.Publish)
		if err := s.Every(cfg.LeaderboardSchedule, awards.LeaderboardUpdateJob); err != nil {
			return err
		}
	} else {
		// Движок всё равно ставит задачу после каждой выдачи
		s.Register(awards.LeaderboardUpdateJob, func(ctx context.Context, data map[string]string) error { return nil })
	}

	if cfg.FeatureCleanupEnabled {
		s.Register(CleanupJob, j.Cleanup)
		if err := s.Every(cfg.CleanupSchedule, CleanupJob); err != nil {
			return err
		}
	}
	return nil
}

// Publish — обработчик задачи пересборки.
func (j *Jobs) Publish(ctx context.Context, data map[string]string) error {
	settings, err := j.settings.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("настройки недоступны: %w", err)
	}
	_, err = j.service.Publish(ctx, settings, j.target(data))
	return err
}

// Cleanup — обработчик задачи очистки.
func (j *Jobs) Cleanup(ctx context.Context, data map[string]string) error {
	_, err := j.service.Cleanup(ctx, j.target(data))
	return err
}

func (j *Jobs) target(data map[string]string) string {
	if sub := data["subreddit"]; sub != "" {
		return sub
	}
	return j.subreddit
}
