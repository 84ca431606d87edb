// Package awards реализует выдачу очков репутации по командам в комментариях.
// models.go описывает типы команд, исходов и результат попытки выдачи.
package awards

import "fmt"

// Kind — тип команды выдачи.
type Kind int

const (
	// KindNormal — обычный триггер, получатель = автор родительского комментария
	KindNormal Kind = iota
	// KindMod — триггер модераторов и доверенных пользователей
	KindMod
	// KindAlternate — триггер с упоминанием u/имя, получатель назван явно
	KindAlternate
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindMod:
		return "mod"
	case KindAlternate:
		return "alt"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command — разобранная команда выдачи.
type Command struct {
	Kind    Kind
	Trigger string
	Awarder string
	// Target заполнен только для KindAlternate, как написал пользователь
	Target string
}

// ContextKind — разметка, внутри которой команда не считается командой.
type ContextKind string

const (
	ContextQuote   ContextKind = "quote"
	ContextCode    ContextKind = "code"
	ContextSpoiler ContextKind = "spoiler"
)

// ContextKinds — все виды разметки по порядку.
var ContextKinds = []ContextKind{ContextQuote, ContextCode, ContextSpoiler}

// Outcome — итог попытки выдачи. Каждая попытка даёт ровно один исход.
type Outcome string

const (
	OutcomeNoCommand       Outcome = "no-command"
	OutcomeMissingFields   Outcome = "missing-fields"
	OutcomeContextIgnored  Outcome = "context-ignored"
	OutcomeInvalidUsername Outcome = "invalid-username"
	OutcomeBlocked         Outcome = "blocked"
	OutcomeUnauthorized    Outcome = "unauthorized"
	OutcomeModUnauthorized Outcome = "mod-unauthorized"
	OutcomeAltUnauthorized Outcome = "alt-unauthorized"
	OutcomeUserNotFound    Outcome = "user-not-found"
	OutcomeSelfAward       Outcome = "self-award"
	OutcomeBotAward        Outcome = "bot-award"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeAwarded         Outcome = "awarded"
	OutcomeError           Outcome = "error"
)

// Result — результат обработки одного комментария.
type Result struct {
	Outcome   Outcome
	Kind      Kind
	Awarder   string
	Recipient string
	NewScore  int64
	// Contexts — виды разметки, из-за которых команда проигнорирована
	Contexts []ContextKind
	// Err заполнен только для OutcomeError
	Err error
}
