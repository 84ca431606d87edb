// Package awards — flair.go: какой флер должен быть у пользователя.
package awards

import (
	"context"
	"fmt"

	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/features/restriction"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// ComputeFlair возвращает флер для счёта. false — флер не пишем (NeverSet).
// Ограниченным пользователям достаётся отдельный класс или шаблон, если он задан.
func ComputeFlair(score int64, restricted bool, s *config.Settings) (platform.Flair, bool) {
	var f platform.Flair
	switch s.FlairMode {
	case config.FlairOverwriteNumericSymbol:
		f.Text = fmt.Sprintf("%d%s", score, s.PointSymbol)
	case config.FlairOverwriteNumeric:
		f.Text = fmt.Sprintf("%d", score)
	default:
		return f, false
	}

	f.CSSClass, f.TemplateID = s.FlairCSSClass, s.FlairTemplateID
	if restricted && (s.RestrictedFlairCSSClass != "" || s.RestrictedFlairTemplateID != "") {
		f.CSSClass, f.TemplateID = s.RestrictedFlairCSSClass, s.RestrictedFlairTemplateID
	}
	if f.TemplateID != "" {
		f.CSSClass = ""
	}
	return f, true
}

// FlairService записывает флер через площадку.
type FlairService struct {
	scores       *Scores
	restrictions *restriction.Repository
	flair        platform.FlairAPI
}

// NewFlairService создаёт сервис флера.
func NewFlairService(scores *Scores, restrictions *restriction.Repository, flair platform.FlairAPI) *FlairService {
	return &FlairService{scores: scores, restrictions: restrictions, flair: flair}
}

// Apply пишет флер для известного счёта.
func (f *FlairService) Apply(ctx context.Context, s *config.Settings, subreddit, user string, score int64) error {
	restricted, err := f.restrictions.IsRestricted(ctx, user)
	if err != nil {
		return err
	}
	flair, ok := ComputeFlair(score, restricted, s)
	if !ok {
		return nil
	}
	return f.flair.SetUserFlair(ctx, subreddit, user, flair)
}

// RefreshFlair перечитывает счёт и состояние ограничения и пишет флер.
// Пользователю без счёта флер пишется, только если для ограниченных задан свой класс:
// его нужно и поставить при ограничении, и снять при снятии.
func (f *FlairService) RefreshFlair(ctx context.Context, s *config.Settings, subreddit, user string) error {
	score, found, err := f.scores.Get(ctx, user)
	if err != nil {
		return err
	}
	restricted, err := f.restrictions.IsRestricted(ctx, user)
	if err != nil {
		return err
	}
	hasRestrictedFlair := s.RestrictedFlairCSSClass != "" || s.RestrictedFlairTemplateID != ""
	if !found && !hasRestrictedFlair {
		return nil
	}
	flair, ok := ComputeFlair(score, restricted, s)
	if !ok {
		return nil
	}
	return f.flair.SetUserFlair(ctx, subreddit, user, flair)
}
