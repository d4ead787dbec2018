package params

import (
	"errors"
	"fmt"
)

var (
	ErrConfig               = errors.New("configuration error")
	ErrCapacity             = errors.New("capacity error")
	ErrEncoding             = errors.New("encoding error")
	ErrTraining             = errors.New("training failure")
	ErrInvertNotImplemented = errors.New("invert is not implemented yet")
)

// Error carries one of the sentinel kinds above plus the offending detail.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func Configf(format string, args ...any) error {
	return &Error{Kind: ErrConfig, Msg: fmt.Sprintf(format, args...)}
}

func Capacityf(format string, args ...any) error {
	return &Error{Kind: ErrCapacity, Msg: fmt.Sprintf(format, args...)}
}

func Encodingf(format string, args ...any) error {
	return &Error{Kind: ErrEncoding, Msg: fmt.Sprintf(format, args...)}
}

func Trainingf(format string, args ...any) error {
	return &Error{Kind: ErrTraining, Msg: fmt.Sprintf(format, args...)}
}
