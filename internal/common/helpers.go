// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: подстановка плейсхолдеров в шаблоны, работа с именами
// пользователей и ссылками Reddit.
package common

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// usernamePattern — допустимое имя пользователя Reddit: 3–21 символ, [a-z0-9_-].
var usernamePattern = regexp.MustCompile(`(?i)^[a-z0-9_-]{3,21}$`)

// IsValidUsername проверяет синтаксис и длину имени.
//
// Примеры:
//
//	IsValidUsername("alice")      → true
//	IsValidUsername("ab")         → false (короче 3)
//	IsValidUsername("bad.name")   → false (точка недопустима)
func IsValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// SameUser сравнивает имена без учёта регистра (Reddit так и делает).
func SameUser(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ContainsUser проверяет, есть ли имя в списке (без учёта регистра и префикса u/).
func ContainsUser(list []string, name string) bool {
	for _, item := range list {
		if SameUser(TrimUserPrefix(item), name) {
			return true
		}
	}
	return false
}

// TrimUserPrefix убирает "u/" и "/u/" в начале имени.
func TrimUserPrefix(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if len(name) >= 2 && strings.EqualFold(name[:2], "u/") {
		return name[2:]
	}
	return name
}

// RenderTemplate подставляет значения вместо {{ключ}}.
// Неизвестные плейсхолдеры остаются как есть, чтобы модератор увидел опечатку.
//
// Пример:
//
//	RenderTemplate("hi {{user}}", map[string]string{"user": "bob"}) → "hi bob"
func RenderTemplate(template string, values map[string]string) string {
	if template == "" || len(values) == 0 {
		return template
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	// Детерминированный порядок замен
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", values[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// SubredditURL возвращает ссылку на сабреддит.
func SubredditURL(subreddit string) string {
	return fmt.Sprintf("https://www.reddit.com/r/%s", subreddit)
}

// ProfileURL возвращает ссылку на профиль пользователя.
func ProfileURL(username string) string {
	return fmt.Sprintf("https://www.reddit.com/user/%s", username)
}

// WikiURL возвращает ссылку на вики-страницу сабреддита.
func WikiURL(subreddit, page string) string {
	return fmt.Sprintf("https://www.reddit.com/r/%s/wiki/%s", subreddit, page)
}

// Permalink превращает относительный permalink в полную ссылку.
func Permalink(path string) string {
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	return "https://www.reddit.com" + path
}

// TruncateText обрезает текст для логов.
func TruncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// PostShortLink возвращает короткую ссылку на пост по fullname (t3_xxx).
func PostShortLink(postID string) string {
	if postID == "" {
		return ""
	}
	return "https://redd.it/" + strings.TrimPrefix(postID, "t3_")
}
