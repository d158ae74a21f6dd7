package lifecycle

import (
	"errors"
	"fmt"
)

// Kind классифицирует ошибки операций жизненного цикла
type Kind string

const (
	KindNotFound       Kind = "NotFound"
	KindInvalidInput   Kind = "InvalidInput"
	KindUnauthorized   Kind = "Unauthorized"
	KindForbidden      Kind = "Forbidden"
	KindPartialFailure Kind = "PartialFailure"
	KindInternal       Kind = "InternalError"
)

// ErrNoRecord возвращается хранилищем, когда запись отсутствует или не была затронута
var ErrNoRecord = errors.New("запись не найдена")

// Error структурированная ошибка операции над парой Kos/Post
type Error struct {
	Kind    Kind
	Op      string
	ID      int64
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает вид ошибки; чужие ошибки считаются внутренними
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

// MessageOf возвращает сообщение, пригодное для показа пользователю
func MessageOf(err error) string {
	var le *Error
	if errors.As(err, &le) && le.Message != "" {
		return le.Message
	}
	return "Внутренняя ошибка сервера"
}

func newError(kind Kind, op string, id int64, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Message: msg, Err: cause}
}

// NewError создаёт ошибку заданного вида для слоёв вне движка (Identity Guard, обработчики)
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}
