// Package awards — permissions.go: кто может выдавать очки.
package awards

import (
	"context"

	"serotonyl.ru/reputation-bot/internal/common"
	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// Resolver проверяет права пользователя.
type Resolver struct {
	identity platform.Identity
	scorer   *Scorer
}

// NewResolver создаёт проверку прав.
func NewResolver(identity platform.Identity, scorer *Scorer) *Resolver {
	return &Resolver{identity: identity, scorer: scorer}
}

// IsModerator — пользователь модератор сабреддита.
func (r *Resolver) IsModerator(ctx context.Context, subreddit, user string) (bool, error) {
	return platform.IsModerator(ctx, r.identity, subreddit, user)
}

// IsTrustedUser — пользователь в списке superUsers или набрал autoSuperuserThreshold.
func (r *Resolver) IsTrustedUser(ctx context.Context, s *config.Settings, subreddit, user string) (bool, error) {
	if common.ContainsUser(s.SuperUsers, user) {
		return true, nil
	}
	if s.AutoSuperuserThreshold <= 0 {
		return false, nil
	}
	score, err := r.scorer.Current(ctx, s, subreddit, user)
	if err != nil {
		return false, err
	}
	return score >= int64(s.AutoSuperuserThreshold), nil
}

// IsAltAuthorized — пользователь может выдавать очки по u/имени.
func IsAltAuthorized(s *config.Settings, user string) bool {
	return common.ContainsUser(s.AltCommandUsers, user)
}

// IsBlocked — пользователю запрещено выдавать обычные очки.
func IsBlocked(s *config.Settings, user string) bool {
	return common.ContainsUser(s.BlockedUsers, user)
}

// IsOP — автор события совпадает с автором поста.
// Сравниваем по id аккаунта, если оба известны, иначе по имени.
func IsOP(ev *platform.CommentEvent) bool {
	if ev.Post == nil {
		return false
	}
	if ev.Comment != nil && ev.Comment.AuthorID != "" && ev.Post.AuthorID != "" {
		return ev.Comment.AuthorID == ev.Post.AuthorID
	}
	return common.SameUser(ev.Author, ev.Post.Author)
}

// CanAward проверяет право на команду данного типа.
// Для обычных очков режим accessControl проверяется по порядку:
// модератор → доверенный → автор поста → все.
func (r *Resolver) CanAward(ctx context.Context, s *config.Settings, ev *platform.CommentEvent, kind Kind) (bool, error) {
	user := ev.Author
	switch kind {
	case KindAlternate:
		return IsAltAuthorized(s, user), nil
	case KindMod:
		isMod, err := r.IsModerator(ctx, ev.Subreddit, user)
		if err != nil || isMod {
			return isMod, err
		}
		return r.IsTrustedUser(ctx, s, ev.Subreddit, user)
	}

	if IsBlocked(s, user) {
		return false, nil
	}
	if s.AccessControl == config.AccessEveryone {
		return true, nil
	}

	isMod, err := r.IsModerator(ctx, ev.Subreddit, user)
	if err != nil || isMod {
		return isMod, err
	}
	if s.AccessControl == config.AccessModeratorsOnly {
		return false, nil
	}

	trusted, err := r.IsTrustedUser(ctx, s, ev.Subreddit, user)
	if err != nil || trusted {
		return trusted, err
	}
	if s.AccessControl == config.AccessModeratorsAndSuperusers {
		return false, nil
	}

	return IsOP(ev), nil
}
