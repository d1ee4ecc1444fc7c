package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to the user
type ErrorKind int

const (
	KindUnknown           ErrorKind = iota
	KindConfiguration               // Missing credential, fatal for the session
	KindMalformedResponse           // Resolver output failed validation
	KindUpstream                    // Network or provider failure
	KindEmptyPrompt                 // Image generation asked with a blank prompt
	KindNoImageData                 // Image stream ended without inline data
	KindInvalidInput                // Search text or coordinates rejected before any call
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindMalformedResponse:
		return "MalformedResponse"
	case KindUpstream:
		return "UpstreamFailure"
	case KindEmptyPrompt:
		return "EmptyPromptError"
	case KindNoImageData:
		return "NoImageData"
	case KindInvalidInput:
		return "InvalidInput"
	default:
		return "Unknown"
	}
}

// Error is a classified failure. Msg is the human-readable text shown to
// the user; Err keeps the underlying cause for errors.Is/As.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// Errorf builds a classified error with a formatted message
func Errorf(kind ErrorKind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// AsError converts any error into an *Error, classifying unknown failures
// with the fallback kind
func AsError(err error, fallback ErrorKind) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: fallback, Msg: err.Error(), Err: err}
}
