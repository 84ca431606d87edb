// Package restriction реализует ограничение на публикацию постов:
// после первого поста автор должен выдать N очков в своём посте,
// прежде чем сможет опубликовать следующий.
// models.go описывает состояние и решения по постам.
package restriction

// State — состояние ограничения пользователя.
type State struct {
	Restricted bool
	// HasCounter — ключ счётчика существует
	HasCounter      bool
	AwardsRemaining int64
	// LastValidPost — fullname поста, с которого началось ограничение
	LastValidPost string
}

// Blocking — пользователь не может публиковать посты.
func (s State) Blocking() bool {
	return s.Restricted && s.HasCounter && s.AwardsRemaining > 0
}

// Empty — нет ни одного ключа.
func (s State) Empty() bool {
	return !s.Restricted && !s.HasCounter && s.LastValidPost == ""
}

// Decision — что бот сделал с новым постом.
type Decision string

const (
	// DecisionIgnored — ограничение выключено (awardsRequiredToPost = 0)
	DecisionIgnored Decision = "ignored"
	// DecisionExempt — автор модератор, а модераторы освобождены
	DecisionExempt Decision = "exempt"
	// DecisionRestricted — пост пропущен, автор ограничен до следующих выдач
	DecisionRestricted Decision = "restricted"
	// DecisionRemoved — автор ещё ограничен, пост удалён
	DecisionRemoved Decision = "removed"
	// DecisionAllowedOnError — хранилище недоступно, пост пропущен без проверки
	DecisionAllowedOnError Decision = "allowed-on-error"
)

// Advance — итог уменьшения счётчика после выдачи очка автором поста.
type Advance struct {
	// Applied — пользователь был ограничен и счётчик изменился
	Applied   bool
	Remaining int64
	Lifted    bool
	// Notified — отправлено уведомление о снятии ограничения
	Notified bool
}
