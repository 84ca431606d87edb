// Package awards — service.go: движок выдачи очков.
//
// Шаги строго по порядку, любой отказ завершает попытку ровно одним исходом:
//
//	классификация → разметка → проверка имени (alt) → права →
//	получатель → себе → боту → дубль → начисление → побочные эффекты
//
// Побочные эффекты (флер, ограничение, уведомления, таблица лидеров)
// выполняются после начисления и при сбое только логируются:
// начисленное очко не откатывается.
package awards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/restriction"
	"serotonyl.ru/reputation-bot/internal/notify"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// LeaderboardUpdateJob — отложенная задача пересборки таблицы лидеров.
const LeaderboardUpdateJob = "leaderboard.update"

// Deps — зависимости движка. Restrictions и Scheduler могут быть nil.
type Deps struct {
	Platform     platform.Platform
	Scores       *Scores
	Guard        *Guard
	Resolver     *Resolver
	Flair        *FlairService
	Restrictions *restriction.Service
	Warnings     *ContextWarnings
	Notifier     *notify.Notifier
	Scheduler    platform.Scheduler
}

// Engine — движок выдачи очков.
type Engine struct {
	Deps
}

// NewEngine создаёт движок.
func NewEngine(deps Deps) *Engine {
	return &Engine{Deps: deps}
}

// HandleComment обрабатывает один комментарий.
func (e *Engine) HandleComment(ctx context.Context, s *config.Settings, ev *platform.CommentEvent) Result {
	if ev == nil || ev.Author == "" || ev.Subreddit == "" || ev.Comment == nil || ev.Post == nil {
		return Result{Outcome: OutcomeMissingFields}
	}
	awarder := ev.Author
	if common.SameUser(awarder, e.Platform.BotUsername()) {
		return Result{Outcome: OutcomeNoCommand, Awarder: awarder}
	}

	cls := NewClassifier(s.Triggers(), s.ModAwardTrigger).Classify(ev.Comment.Body)
	if cls.Command == nil {
		if len(cls.Ignored) == 0 {
			return Result{Outcome: OutcomeNoCommand, Awarder: awarder}
		}
		e.warnContexts(ctx, s, ev, cls.Ignored)
		return Result{Outcome: OutcomeContextIgnored, Awarder: awarder, Contexts: cls.Ignored}
	}

	cmd := cls.Command
	cmd.Awarder = awarder
	res := Result{Kind: cmd.Kind, Awarder: awarder}
	vals := e.values(s, ev, cmd.Target)

	if cmd.Kind == KindAlternate && !common.IsValidUsername(cmd.Target) {
		return e.reject(ctx, s, ev, res, OutcomeInvalidUsername, s.Notify.Fail, s.Messages.InvalidUsername, vals)
	}
	// Себе нельзя при любых правах на альтернативную команду
	if cmd.Kind == KindAlternate && common.SameUser(awarder, cmd.Target) {
		res.Recipient = awarder
		return e.reject(ctx, s, ev, res, OutcomeSelfAward, s.Notify.SelfAward, s.Messages.SelfAward, vals)
	}

	if cmd.Kind == KindNormal && IsBlocked(s, awarder) {
		return e.reject(ctx, s, ev, res, OutcomeBlocked, s.Notify.Fail, s.Messages.Blocked, vals)
	}
	allowed, err := e.Resolver.CanAward(ctx, s, ev, cmd.Kind)
	if err != nil {
		return e.fail(res, fmt.Errorf("проверка прав: %w", err))
	}
	if !allowed {
		outcome, template := unauthorized(s, cmd.Kind)
		return e.reject(ctx, s, ev, res, outcome, s.Notify.Fail, template, vals)
	}

	recipient, err := e.recipient(ctx, ev, cmd)
	if errors.Is(err, common.ErrUserNotFound) {
		return e.reject(ctx, s, ev, res, OutcomeUserNotFound, s.Notify.Fail, s.Messages.UserNotFound, vals)
	}
	if err != nil {
		return e.fail(res, err)
	}
	vals["awardee"] = recipient
	vals["awardeeProfile"] = common.ProfileURL(recipient)
	res.Recipient = recipient

	if common.SameUser(awarder, recipient) {
		return e.reject(ctx, s, ev, res, OutcomeSelfAward, s.Notify.SelfAward, s.Messages.SelfAward, vals)
	}
	if common.SameUser(recipient, e.Platform.BotUsername()) {
		return e.reject(ctx, s, ev, res, OutcomeBotAward, s.Notify.Fail, s.Messages.BotAward, vals)
	}

	if cmd.Kind == KindAlternate {
		user, err := e.Platform.GetUserByUsername(ctx, recipient)
		if err != nil {
			return e.fail(res, fmt.Errorf("поиск %s: %w", recipient, err))
		}
		if user == nil {
			return e.reject(ctx, s, ev, res, OutcomeUserNotFound, s.Notify.Fail, s.Messages.UserNotFound, vals)
		}
		recipient = user.Name
		res.Recipient = recipient
		vals["awardee"] = recipient
	}

	key := GuardKey(cmd.Kind, ev.Comment.ParentID, ev.Post.ID, recipient)
	awarded, err := e.Guard.HasAwarded(ctx, key)
	if err != nil {
		return e.fail(res, fmt.Errorf("проверка дубля: %w", err))
	}
	if awarded {
		return e.reject(ctx, s, ev, res, OutcomeDuplicate, s.Notify.Duplicate, s.Messages.Duplicate, vals)
	}

	newScore, err := e.Scores.Increment(ctx, recipient)
	if err != nil {
		return e.fail(res, err)
	}
	if err := e.Guard.MarkAwarded(ctx, key); err != nil {
		log.WithError(err).WithField("key", key).Error("Очко начислено, но ключ дубля не записан: возможна повторная выдача")
	}
	res.Outcome = OutcomeAwarded
	res.NewScore = newScore
	vals["total"] = fmt.Sprint(newScore)

	e.sideEffects(ctx, s, ev, cmd, recipient, newScore, vals)
	return res
}

// recipient определяет получателя очка.
func (e *Engine) recipient(ctx context.Context, ev *platform.CommentEvent, cmd *Command) (string, error) {
	if cmd.Kind == KindAlternate {
		return cmd.Target, nil
	}

	var author string
	if ev.Comment.IsTopLevel() {
		author = ev.Post.Author
	} else {
		parent, err := e.Platform.GetComment(ctx, ev.Comment.ParentID)
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUserNotFound
		}
		if err != nil {
			return "", fmt.Errorf("родительский комментарий %s: %w", ev.Comment.ParentID, err)
		}
		author = parent.Author
	}
	if author == "" || author == platform.DeletedAuthor {
		return "", common.ErrUserNotFound
	}
	return author, nil
}

func (e *Engine) sideEffects(ctx context.Context, s *config.Settings, ev *platform.CommentEvent, cmd *Command, recipient string, newScore int64, vals map[string]string) {
	logger := log.WithFields(log.Fields{
		"awarder":   cmd.Awarder,
		"recipient": recipient,
		"comment":   ev.Comment.ID,
	})

	if err := e.Flair.Apply(ctx, s, ev.Subreddit, recipient, newScore); err != nil {
		logger.WithError(err).Warn("Не удалось обновить флер")
	}

	if e.Restrictions != nil && IsOP(ev) {
		adv, err := e.Restrictions.Advance(ctx, s, ev.Subreddit, cmd.Awarder, ev.Post.ID)
		if err != nil {
			logger.WithError(err).Warn("Не удалось обновить счётчик ограничения")
		} else if adv.Applied {
			logger.WithFields(log.Fields{"remaining": adv.Remaining, "lifted": adv.Lifted}).Info("Счётчик ограничения автора уменьшен")
		}
	}

	if s.AutoSuperuserThreshold > 0 && newScore == int64(s.AutoSuperuserThreshold) {
		e.notifySuperuser(ctx, s, ev, recipient, vals, logger)
	}

	to := notify.Target{User: cmd.Awarder, ReplyTo: ev.Comment.ID}
	subject := fmt.Sprintf("%s awarded in r/%s", s.PointName, ev.Subreddit)
	if err := e.Notifier.Send(ctx, s.Notify.Success, to, subject, common.RenderTemplate(s.Messages.Success, vals)); err != nil {
		logger.WithError(err).Warn("Не удалось отправить уведомление об успехе")
	}

	if e.Scheduler != nil {
		if err := e.Scheduler.Enqueue(LeaderboardUpdateJob, time.Now(), map[string]string{"subreddit": ev.Subreddit}); err != nil {
			logger.WithError(err).Warn("Не удалось поставить обновление таблицы лидеров")
		}
	}
}

func (e *Engine) notifySuperuser(ctx context.Context, s *config.Settings, ev *platform.CommentEvent, recipient string, vals map[string]string, logger *log.Entry) {
	first, err := e.Guard.MarkSuperuserNotified(ctx, recipient)
	if err != nil {
		logger.WithError(err).Warn("Не удалось записать флаг уведомления доверенного пользователя")
		return
	}
	if !first {
		return
	}
	to := notify.Target{User: recipient, ReplyTo: ev.Comment.ID}
	subject := fmt.Sprintf("You are now a trusted user in r/%s", ev.Subreddit)
	if err := e.Notifier.Send(ctx, s.Notify.Superuser, to, subject, common.RenderTemplate(s.Messages.Superuser, vals)); err != nil {
		logger.WithError(err).Warn("Не удалось уведомить доверенного пользователя")
	}
}

// warnContexts отправляет предупреждения о командах внутри разметки.
func (e *Engine) warnContexts(ctx context.Context, s *config.Settings, ev *platform.CommentEvent, kinds []ContextKind) {
	for _, kind := range kinds {
		sent, err := e.Warnings.Warn(ctx, s, ev.Subreddit, ev.Author, ev.Comment.ID, kind)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"author":  ev.Author,
				"context": kind,
			}).Warn("Не удалось предупредить о команде в разметке")
			continue
		}
		if sent {
			log.WithFields(log.Fields{"author": ev.Author, "context": kind}).Debug("Отправлено предупреждение о разметке")
		}
	}
}

// reject завершает попытку отказом и уведомляет автора команды согласно режиму.
func (e *Engine) reject(ctx context.Context, s *config.Settings, ev *platform.CommentEvent, res Result, outcome Outcome, mode config.NotifyMode, template string, vals map[string]string) Result {
	res.Outcome = outcome
	to := notify.Target{User: ev.Author, ReplyTo: ev.Comment.ID}
	subject := fmt.Sprintf("Your %s command in r/%s", s.PointName, ev.Subreddit)
	if err := e.Notifier.Send(ctx, mode, to, subject, common.RenderTemplate(template, vals)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"author":  ev.Author,
			"outcome": outcome,
		}).Warn("Не удалось отправить уведомление об отказе")
	}
	return res
}

func (e *Engine) fail(res Result, err error) Result {
	res.Outcome = OutcomeError
	res.Err = err
	return res
}

func unauthorized(s *config.Settings, kind Kind) (Outcome, string) {
	switch kind {
	case KindMod:
		return OutcomeModUnauthorized, s.Messages.ModUnauthorized
	case KindAlternate:
		return OutcomeAltUnauthorized, s.Messages.AltUnauthorized
	default:
		return OutcomeUnauthorized, s.Messages.Unauthorized
	}
}

// values — плейсхолдеры шаблонов. awardee и total дописываются по ходу.
func (e *Engine) values(s *config.Settings, ev *platform.CommentEvent, target string) map[string]string {
	leaderboard := common.SubredditURL(ev.Subreddit)
	if s.LeaderboardWikiPage != "" {
		leaderboard = common.WikiURL(ev.Subreddit, s.LeaderboardWikiPage)
	}
	return map[string]string{
		"awarder":        ev.Author,
		"awardee":        target,
		"awarderProfile": common.ProfileURL(ev.Author),
		"awardeeProfile": common.ProfileURL(target),
		"name":           s.PointName,
		"symbol":         s.PointSymbol,
		"subreddit":      ev.Subreddit,
		"leaderboard":    leaderboard,
		"commands":       strings.Join(s.Triggers(), ", "),
		"modCommand":     s.ModAwardTrigger,
		"permalink":      common.Permalink(ev.Comment.Permalink),
		"helpPage":       s.HelpPage,
		"discord":        s.DiscordLink,
	}
}
