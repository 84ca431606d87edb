// Package restriction — service.go содержит жизненный цикл ограничения:
// первый пост → ограничение → выдачи автором → снятие.
//
// Сбои хранилища не блокируют посты: логируем и пропускаем пост.
// Явные правила (ограничение активно) применяются строго.
package restriction

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/notify"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// FlairUpdater пересчитывает флер пользователя после смены состояния.
type FlairUpdater interface {
	RefreshFlair(ctx context.Context, s *config.Settings, subreddit, username string) error
}

// Collaborators — то, что нужно сервису от площадки.
type Collaborators interface {
	platform.Identity
	platform.Moderation
}

// Service управляет ограничениями на публикацию.
type Service struct {
	repo     *Repository
	platform Collaborators
	notifier *notify.Notifier
	flair    FlairUpdater
}

// NewService создаёт сервис ограничений. flair может быть nil.
func NewService(repo *Repository, p Collaborators, notifier *notify.Notifier, flair FlairUpdater) *Service {
	return &Service{repo: repo, platform: p, notifier: notifier, flair: flair}
}

// Repository возвращает репозиторий (для консоли и чистки).
func (s *Service) Repository() *Repository {
	return s.repo
}

// HandlePost решает судьбу нового поста.
func (s *Service) HandlePost(ctx context.Context, cfg *config.Settings, ev *platform.PostEvent) Decision {
	if cfg.AwardsRequiredToPost <= 0 {
		return DecisionIgnored
	}
	author := ev.Author
	logger := log.WithFields(log.Fields{
		"author": author,
		"post":   ev.Post.ID,
	})

	if cfg.ModeratorsExempt {
		isMod, err := platform.IsModerator(ctx, s.platform, ev.Subreddit, author)
		if err != nil {
			logger.WithError(err).Warn("Не удалось проверить модератора, пост пропущен")
			return DecisionAllowedOnError
		}
		if isMod {
			return DecisionExempt
		}
	}

	st, err := s.repo.Get(ctx, author)
	if err != nil {
		logger.WithError(err).Warn("Хранилище недоступно, пост пропущен без проверки")
		return DecisionAllowedOnError
	}

	if st.Blocking() {
		if err := s.platform.Remove(ctx, ev.Post.ID); err != nil {
			logger.WithError(err).Error("Не удалось удалить пост ограниченного пользователя")
			return DecisionAllowedOnError
		}
		text := common.RenderTemplate(cfg.Messages.SubsequentPost, s.values(cfg, ev.Subreddit, author, st))
		if err := s.notifier.Reply(ctx, ev.Post.ID, text, true); err != nil {
			logger.WithError(err).Warn("Не удалось объяснить удаление поста")
		}
		logger.WithField("remaining", st.AwardsRemaining).Info("Пост удалён: ограничение ещё действует")
		return DecisionRemoved
	}

	// Флаг без счётчика (или счётчик без флага) остаётся после сбоя, считаем ограничение снятым
	if st.Restricted || st.HasCounter {
		logger.WithField("state", fmt.Sprintf("%+v", st)).Warn("Неполное состояние ограничения очищено")
		if err := s.repo.Clear(ctx, author); err != nil {
			logger.WithError(err).Warn("Не удалось очистить состояние")
			return DecisionAllowedOnError
		}
	}

	if err := s.repo.Start(ctx, author, cfg.AwardsRequiredToPost, ev.Post.ID); err != nil {
		logger.WithError(err).Warn("Не удалось включить ограничение, пост пропущен")
		return DecisionAllowedOnError
	}

	started := State{Restricted: true, HasCounter: true, AwardsRemaining: int64(cfg.AwardsRequiredToPost), LastValidPost: ev.Post.ID}
	if strings.TrimSpace(cfg.Messages.FirstPost) != "" {
		text := common.RenderTemplate(cfg.Messages.FirstPost, s.values(cfg, ev.Subreddit, author, started))
		if err := s.notifier.Reply(ctx, ev.Post.ID, text, true); err != nil {
			logger.WithError(err).Warn("Не удалось отправить сообщение к первому посту")
		}
	}
	s.refreshFlair(ctx, cfg, ev.Subreddit, author)

	logger.WithField("required", cfg.AwardsRequiredToPost).Info("Пост пропущен, автор ограничен")
	return DecisionRestricted
}

// Advance уменьшает счётчик автора поста после выдачи им очка.
// На нуле ограничение снимается, уведомление отправляется один раз на пост.
func (s *Service) Advance(ctx context.Context, cfg *config.Settings, subreddit, user, postID string) (Advance, error) {
	var res Advance
	if cfg.AwardsRequiredToPost <= 0 {
		return res, nil
	}

	st, err := s.repo.Get(ctx, user)
	if err != nil {
		return res, err
	}
	if !st.Restricted {
		return res, nil
	}

	remaining, err := s.repo.Decrement(ctx, user)
	if err != nil {
		return res, fmt.Errorf("ошибка уменьшения счётчика: %w", err)
	}
	res.Applied = true
	if remaining > 0 {
		res.Remaining = remaining
		return res, nil
	}

	if err := s.repo.Clear(ctx, user); err != nil {
		return res, fmt.Errorf("ошибка снятия ограничения: %w", err)
	}
	res.Lifted = true
	s.refreshFlair(ctx, cfg, subreddit, user)

	guardPost := st.LastValidPost
	if guardPost == "" {
		guardPost = postID
	}
	first, err := s.repo.MarkLiftNotified(ctx, user, guardPost)
	if err != nil {
		log.WithError(err).WithField("user", user).Warn("Не удалось записать флаг уведомления о снятии")
		return res, nil
	}
	if !first {
		return res, nil
	}

	text := common.RenderTemplate(cfg.Messages.RestrictionLifted, s.values(cfg, subreddit, user, st))
	to := notify.Target{User: user, ReplyTo: postID}
	if err := s.notifier.Send(ctx, cfg.Notify.RestrictionLifted, to, "Post restriction lifted", text); err != nil {
		log.WithError(err).WithField("user", user).Warn("Не удалось отправить уведомление о снятии ограничения")
		return res, nil
	}
	res.Notified = cfg.Notify.RestrictionLifted != config.NoReply
	return res, nil
}

// ManualClear — ручное снятие модератором: удаляет все ключи без уведомления пользователю.
// Возвращает состояние до снятия.
func (s *Service) ManualClear(ctx context.Context, cfg *config.Settings, subreddit, user string) (State, error) {
	st, err := s.repo.Get(ctx, user)
	if err != nil {
		return st, err
	}
	if err := s.repo.ClearAll(ctx, user); err != nil {
		return st, fmt.Errorf("ошибка снятия ограничения: %w", err)
	}
	s.refreshFlair(ctx, cfg, subreddit, user)
	log.WithFields(log.Fields{"user": user, "before": fmt.Sprintf("%+v", st)}).Info("Ограничение снято вручную")
	return st, nil
}

func (s *Service) refreshFlair(ctx context.Context, cfg *config.Settings, subreddit, user string) {
	if s.flair == nil {
		return
	}
	if err := s.flair.RefreshFlair(ctx, cfg, subreddit, user); err != nil {
		log.WithError(err).WithField("user", user).Warn("Не удалось обновить флер")
	}
}

func (s *Service) values(cfg *config.Settings, subreddit, user string, st State) map[string]string {
	return map[string]string{
		"author":      user,
		"subreddit":   subreddit,
		"name":        cfg.PointName,
		"symbol":      cfg.PointSymbol,
		"requirement": fmt.Sprint(cfg.AwardsRequiredToPost),
		"remaining":   fmt.Sprint(st.AwardsRemaining),
		"commands":    strings.Join(cfg.Triggers(), ", "),
		"permalink":   common.PostShortLink(st.LastValidPost),
		"helpPage":    cfg.HelpPage,
		"discord":     cfg.DiscordLink,
	}
}
