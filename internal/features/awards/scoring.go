// Package awards — scoring.go: какой счёт считать текущим.
//
// Если включён prioritiseFlairScore и флер — неотрицательное число, берём флер.
// Иначе max(сохранённый, число из флера). Флер "-", пустой или не число игнорируется.
package awards

import (
	"context"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/reputation-bot/internal/config"
	"serotonyl.ru/reputation-bot/internal/platform"
)

// ParseFlairScore достаёт число из флера: "12", "12⭐" (с символом очков).
func ParseFlairScore(text, symbol string) (int64, bool) {
	text = strings.TrimSpace(text)
	if symbol != "" {
		text = strings.TrimSpace(strings.TrimSuffix(text, symbol))
	}
	if text == "" || text == "-" {
		return 0, false
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// EffectiveScore применяет правило приоритета.
func EffectiveScore(stored int64, flair *platform.Flair, s *config.Settings) int64 {
	if flair == nil {
		return stored
	}
	parsed, ok := ParseFlairScore(flair.Text, s.PointSymbol)
	if !ok {
		return stored
	}
	if s.PrioritiseFlairScore {
		return parsed
	}
	return max(stored, parsed)
}

// Scorer считает текущий счёт с учётом флера.
type Scorer struct {
	scores *Scores
	flair  platform.FlairAPI
}

// NewScorer создаёт вычислитель счёта.
func NewScorer(scores *Scores, flair platform.FlairAPI) *Scorer {
	return &Scorer{scores: scores, flair: flair}
}

// Current возвращает текущий счёт. Ошибка чтения флера не фатальна.
func (s *Scorer) Current(ctx context.Context, cfg *config.Settings, subreddit, user string) (int64, error) {
	stored, _, err := s.scores.Get(ctx, user)
	if err != nil {
		return 0, err
	}
	flair, err := s.flair.GetUserFlair(ctx, subreddit, user)
	if err != nil {
		log.WithError(err).WithField("user", user).Warn("Не удалось прочитать флер, берём сохранённый счёт")
		return stored, nil
	}
	return EffectiveScore(stored, flair, cfg), nil
}
