package posapi

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindBackend ErrorKind = "backend"
	KindStatus  ErrorKind = "status"
)

const MsgNetwork = "Network error, please try again"

var (
	ErrUnknownResource   = errors.New("unknown resource")
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrMissingIdentifier = errors.New("missing identifier")
)

// Error is a failed backend call. Message is safe to show to the user.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: MsgNetwork, Err: err}
}

func backendError(status int, msg string) *Error {
	return &Error{Kind: KindBackend, Status: status, Message: msg}
}

func statusError(status int) *Error {
	return &Error{
		Kind:    KindStatus,
		Status:  status,
		Message: fmt.Sprintf("Unexpected server response (%d)", status),
	}
}

// AsError unwraps err into an *Error when it is one.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
