// Package store — хранилище ключ-значение, на котором держится всё состояние бота:
// счёт пользователей (sorted set), ключи защиты от дублей, состояние ограничений,
// сессии консоли.
//
// Две реализации:
//   - Memory   — для тестов и локальной отладки
//   - Postgres — боевой режим, таблицы kv_strings и kv_sorted_sets
package store

import "context"

// Member — элемент sorted set со счётом.
type Member struct {
	Member string
	Score  int64
}

// Store — атомарное хранилище строк и sorted set'ов.
// Инкременты атомарны в пределах одного ключа, межключевых транзакций нет.
type Store interface {
	// ZIncrBy увеличивает счёт и возвращает новое значение (создаёт запись при отсутствии).
	ZIncrBy(ctx context.Context, set, member string, delta int64) (int64, error)
	// ZScore возвращает счёт; found=false, если участника нет.
	ZScore(ctx context.Context, set, member string) (score int64, found bool, err error)
	ZAdd(ctx context.Context, set, member string, score int64) error
	ZRem(ctx context.Context, set string, members ...string) error
	// ZRange возвращает элементы по рангу [start, stop] включительно, stop=-1 — до конца.
	ZRange(ctx context.Context, set string, start, stop int, desc bool) ([]Member, error)
	// ZRangeByScore возвращает элементы со счётом в [min, max] по возрастанию.
	ZRangeByScore(ctx context.Context, set string, min, max int64) ([]Member, error)
	ZCard(ctx context.Context, set string) (int, error)

	// Get возвращает значение; found=false, если ключа нет.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// SetNX записывает значение, только если ключа ещё нет. true — запись произошла.
	SetNX(ctx context.Context, key, value string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// IncrBy трактует значение как число (отсутствие = 0) и возвращает новое.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	// DelPrefix удаляет все строковые ключи с префиксом и возвращает их число.
	DelPrefix(ctx context.Context, prefix string) (int, error)
}

// rankBounds переводит ранги в стиле Redis (отрицательные считаются с конца) в срез [lo, hi).
func rankBounds(start, stop, n int) (int, int, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return 0, 0, false
	}
	return start, stop + 1, true
}
