package clsort

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindOracle    ErrorKind = "ORACLE_FAILURE"
	KindIO        ErrorKind = "IO_FAILURE"
	KindMalformed ErrorKind = "MALFORMED_MATCH"
)

var ErrNotPermutation = errors.New("result is not a permutation of the input")

// Error carries the kind of failure and, when known, where in which file it happened.
type Error struct {
	Kind    ErrorKind
	Path    string
	Line    int
	Column  int
	Message string
	cause   error
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func (e *Error) Error() string {
	loc := ""
	switch {
	case e.Path != "" && e.Line > 0:
		loc = fmt.Sprintf("%s:%d:%d: ", e.Path, e.Line, e.Column)
	case e.Path != "":
		loc = e.Path + ": "
	case e.Line > 0:
		loc = fmt.Sprintf("%d:%d: ", e.Line, e.Column)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s[%s] %s: %v", loc, e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s[%s] %s", loc, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func withPath(err error, path string) error {
	var e *Error
	if errors.As(err, &e) && e.Path == "" {
		e.Path = path
	}
	return err
}

type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string { return e.Err.Error() }

func (e *DetailedError) Unwrap() error { return e.Err }
