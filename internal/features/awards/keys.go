// Package awards — keys.go собирает строковые ключи хранилища.
package awards

import (
	"fmt"
	"strings"

	"serotonyl.ru/reputation-bot/internal/common"
)

// ScoreSet — sorted set со счётом пользователей.
const ScoreSet = "reputation:scores"

// GuardKey возвращает ключ защиты от дублей.
//   - normal, mod: awarded:<kind>:<родительский комментарий>
//   - alt:         awarded:alt:<пост>:<получатель в нижнем регистре>
func GuardKey(kind Kind, parentID, postID, target string) string {
	if kind == KindAlternate {
		return fmt.Sprintf("awarded:alt:%s:%s", postID, strings.ToLower(target))
	}
	return fmt.Sprintf("awarded:%s:%s", kind, parentID)
}

// ParseGuardKind разбирает тип ключа из консоли (normal, mod, alt).
func ParseGuardKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return KindNormal, nil
	case "mod":
		return KindMod, nil
	case "alt", "alternate":
		return KindAlternate, nil
	}
	return 0, common.ErrUnknownGuardKind
}

func superuserNotifiedKey(user string) string {
	return "superuserNotified:" + strings.ToLower(user)
}

func contextWarnedKey(kind ContextKind, commentID string) string {
	return fmt.Sprintf("contextWarned:%s:%s", kind, commentID)
}

func contextPendingKey(kind ContextKind, user string) string {
	return fmt.Sprintf("contextPending:%s:%s", kind, strings.ToLower(user))
}

func contextOptOutKey(kind ContextKind, user string) string {
	return fmt.Sprintf("contextOptOut:%s:%s", kind, strings.ToLower(user))
}
