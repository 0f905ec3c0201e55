package webview

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("webview: not found")
	ErrWrongThread     = errors.New("webview: wrong thread")
	ErrInternal        = errors.New("webview: internal error")
	ErrInvalidArgument = errors.New("webview: invalid argument")
)

// Error describes a failed registry or state operation.
// Kind is one of the package sentinels and is matched by errors.Is.
type Error struct {
	Kind   error
	ID     uint64
	Reason string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrNotFound:
		return fmt.Sprintf("webview: view %d not found", e.ID)
	case ErrWrongThread:
		return fmt.Sprintf("webview: view %d accessed from a thread other than its owner", e.ID)
	default:
		if e.Reason == "" {
			return e.Kind.Error()
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notFound(id uint64) error {
	return &Error{Kind: ErrNotFound, ID: id}
}

func wrongThread(id uint64) error {
	return &Error{Kind: ErrWrongThread, ID: id}
}

func internal(reason string) error {
	return &Error{Kind: ErrInternal, Reason: reason}
}

func invalidArgument(reason string) error {
	return &Error{Kind: ErrInvalidArgument, Reason: reason}
}

// IsNotFound reports whether err means the view is already gone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsWrongThread reports whether err means the call must be re-issued on the owner thread.
func IsWrongThread(err error) bool {
	return errors.Is(err, ErrWrongThread)
}
