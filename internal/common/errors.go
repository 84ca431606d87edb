// Package common — errors.go определяет ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отвечать пользователю понятными сообщениями.
package common

import "errors"

// Ошибки хранилища и платформы
var (
	// ErrNotFound — объект (комментарий, пост, вики-страница) не найден
	ErrNotFound = errors.New("не найдено")
	// ErrUserNotFound — аккаунт удалён, заблокирован или скрыт (shadowban)
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrMissingFields — в событии нет автора, сабреддита, поста или комментария
	ErrMissingFields = errors.New("в событии не хватает обязательных полей")
)

// Ошибки выдачи очков
var (
	// ErrInvalidUsername — имя пользователя не проходит проверку
	ErrInvalidUsername = errors.New("некорректное имя пользователя")
	// ErrInvalidScore — отрицательный или нечисловой счёт
	ErrInvalidScore = errors.New("счёт должен быть неотрицательным целым")
	// ErrSelfAward — попытка выдать очко самому себе
	ErrSelfAward = errors.New("нельзя выдать очко самому себе")
	// ErrNoTriggers — в настройках нет ни одного триггера
	ErrNoTriggers = errors.New("нужен хотя бы один триггер в triggerWords")
	// ErrUnknownGuardKind — неизвестный тип ключа защиты от дублей
	ErrUnknownGuardKind = errors.New("неизвестный тип ключа (normal, mod, alt)")
)

// Ошибки консоли модераторов
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)
