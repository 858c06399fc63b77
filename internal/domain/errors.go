package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes errors.
type ErrorKind string

const (
	KindTransport        ErrorKind = "transport"
	KindTimeout          ErrorKind = "timeout"
	KindTool             ErrorKind = "tool"
	KindUnknownTool      ErrorKind = "unknown_tool"
	KindToolLoopExceeded ErrorKind = "tool_loop_exceeded"
	KindVoice            ErrorKind = "voice"
	KindBusy             ErrorKind = "busy"
	KindNotFound         ErrorKind = "not_found"
	KindInvalid          ErrorKind = "invalid"
)

// Error is the error type shared by every layer of the core.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches an *Error of the same kind. A target that carries a message,
// like the sentinels below, also needs the same message, so two sentinels of
// one kind stay distinct.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// IsRetryable returns true if the operation may succeed when attempted again.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindTransport, KindTimeout:
		return true
	default:
		return false
	}
}

var (
	ErrConversationNotFound = &Error{Kind: KindNotFound, Message: "conversation not found"}
	ErrUserNotFound         = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrSendInProgress       = &Error{Kind: KindBusy, Message: "a message is already being sent in this conversation"}
	ErrToolLoopExceeded     = &Error{Kind: KindToolLoopExceeded, Message: "tool loop exceeded"}
)

// NewError builds an *Error for op.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether err is an *Error that may succeed on retry.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}
