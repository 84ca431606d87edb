// Package filters решает, какие входящие события бот вообще обрабатывает.
// subreddit.go отсекает события чужих сабреддитов, собственные действия бота
// и события без обязательных полей.
package filters

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// SubredditFilter пропускает события одного сабреддита.
type SubredditFilter struct {
	subreddit string
	bot       string
}

// NewSubredditFilter создаёт фильтр.
func NewSubredditFilter(subreddit, botUsername string) *SubredditFilter {
	return &SubredditFilter{
		subreddit: strings.TrimPrefix(subreddit, "r/"),
		bot:       botUsername,
	}
}

// CheckAccess возвращает true, если событие нужно обработать.
// Личные сообщения не привязаны к сабреддиту и проверяются только по автору.
func (f *SubredditFilter) CheckAccess(ev platform.Event) bool {
	logger := log.WithFields(log.Fields{
		"component": "SubredditFilter",
		"event_id":  ev.ID,
		"kind":      ev.Kind(),
	})

	author := ev.Author()
	if author == "" {
		logger.Warn("deny: нет автора")
		return false
	}
	if common.SameUser(author, f.bot) {
		logger.Debug("deny: событие самого бота")
		return false
	}
	if ev.Message != nil {
		return true
	}

	if !strings.EqualFold(ev.Subreddit(), f.subreddit) {
		logger.WithField("subreddit", ev.Subreddit()).Info("deny: чужой сабреддит")
		return false
	}

	switch {
	case ev.Comment != nil:
		if ev.Comment.Comment == nil || ev.Comment.Post == nil {
			logger.Warn("deny: в событии комментария нет поста или комментария")
			return false
		}
	case ev.Post != nil:
		if ev.Post.Post == nil {
			logger.Warn("deny: в событии поста нет поста")
			return false
		}
	default:
		logger.Warn("deny: пустое событие")
		return false
	}
	return true
}
