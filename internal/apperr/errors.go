package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindAuthenticationMissing Kind = iota + 1
	KindAuthorizationDenied
	KindValidationFailed
	KindPersistenceFailure
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationMissing:
		return "authentication_missing"
	case KindAuthorizationDenied:
		return "authorization_denied"
	case KindValidationFailed:
		return "validation_failed"
	case KindPersistenceFailure:
		return "persistence_failure"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Базовые значения для errors.Is.
var (
	ErrAuthenticationMissing = &Error{Kind: KindAuthenticationMissing, Msg: "Требуется вход в систему"}
	ErrAuthorizationDenied   = &Error{Kind: KindAuthorizationDenied, Msg: "Недостаточно прав"}
	ErrValidationFailed      = &Error{Kind: KindValidationFailed, Msg: "Некорректные данные"}
	ErrPersistenceFailure    = &Error{Kind: KindPersistenceFailure, Msg: "Ошибка сохранения, попробуйте позже"}
	ErrNotFound              = &Error{Kind: KindNotFound, Msg: "Запись не найдена"}
)

// Error — ошибка обработчика. Msg показывается пользователю, Err остаётся в логах.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает только по Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindAuthenticationMissing, Msg: msg}
}

func Denied(msg string) *Error {
	return &Error{Kind: KindAuthorizationDenied, Msg: msg}
}

func Invalid(msg string) *Error {
	return &Error{Kind: KindValidationFailed, Msg: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func Persistence(err error) *Error {
	return &Error{Kind: KindPersistenceFailure, Msg: ErrPersistenceFailure.Msg, Err: err}
}

// KindOf возвращает Kind ошибки; всё неизвестное считается сбоем хранилища.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistenceFailure
}

// PublicMessage — текст для пользователя. NotFound и AuthorizationDenied по строкам
// чужого арендатора должны выглядеть одинаково, поэтому сообщение общее.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ErrPersistenceFailure.Msg
	}
	switch e.Kind {
	case KindPersistenceFailure:
		return ErrPersistenceFailure.Msg
	case KindNotFound:
		return "Запись не найдена или недоступна"
	}
	return e.Msg
}
