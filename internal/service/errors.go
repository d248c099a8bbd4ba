package service

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput is returned when a login is attempted without an identifier
	// or a secret, or a search is attempted without any keyword.
	ErrMissingInput = errors.New("missing input")
	// ErrSessionInvalid means the session slot holds no usable credential, the
	// user has to log in again.
	ErrSessionInvalid = errors.New("session invalid, login required")
	// ErrTooManyKeywords is returned before anything is searched.
	ErrTooManyKeywords = errors.New("too many keywords")
)

type AuthenticationFailedError struct {
	Reason FailureReason
	Err    error
}

func (e *AuthenticationFailedError) Error() string {
	return fmt.Sprintf("authentication failed (%s): %s", e.Reason, e.Err)
}

func (e *AuthenticationFailedError) Unwrap() error {
	return e.Err
}

type KeywordSearchFailedError struct {
	Keyword string
	// Fatal is set when the failure invalidated the session.
	Fatal bool
	Err   error
}

func (e *KeywordSearchFailedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Keyword, e.Err)
}

func (e *KeywordSearchFailedError) Unwrap() error {
	return e.Err
}
