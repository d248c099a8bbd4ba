package service

import (
	"encoding/json"
	"errors"
	"strings"
)

type FailureReason string

const (
	ReasonNeedsSecondFactor FailureReason = "needs-second-factor"
	ReasonBadCredentials    FailureReason = "bad-credentials"
	ReasonUnknown           FailureReason = "unknown"
)

// Message is the text shown to the user for a failed login.
func (r FailureReason) Message() string {
	switch r {
	case ReasonNeedsSecondFactor:
		return "Additional verification is required for this account. Complete it on the site, then try again."
	case ReasonBadCredentials:
		return "Login failed, check your username and password."
	default:
		return "Login failed, please try again later."
	}
}

// ClassifyLoginFailure turns a failed login into a reason, using the error kind
// when the adapter provides one.
func ClassifyLoginFailure(err error) FailureReason {
	var scrapeErr *ScrapeError
	if errors.As(err, &scrapeErr) {
		switch scrapeErr.Kind {
		case ErrorChallenge:
			return ReasonNeedsSecondFactor
		case ErrorBadCredentials:
			return ReasonBadCredentials
		}
	}
	if err == nil {
		return ReasonUnknown
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage guesses a reason from the human readable text of an error.
//
// Known limitation: this depends on the wording of the upstream service and
// breaks silently when it changes. Adapters should report an ErrorKind instead,
// this only exists for errors that arrive without one.
func ClassifyMessage(message string) FailureReason {
	message = strings.ToLower(message)
	switch {
	case containsAny(message, "challenge", "verification", "two factor"):
		return ReasonNeedsSecondFactor
	case containsAny(message, "incorrect", "invalid"):
		return ReasonBadCredentials
	default:
		return ReasonUnknown
	}
}

var fatalSignatures = []string{
	"auth_token",
	"guest token",
	"guest_token",
	"401",
	"unauthorized",
	"invalid character",
	"unexpected end of json input",
	"cannot unmarshal",
}

// IsFatalSearchFailure reports whether a search failure means the session can
// no longer be used.
func IsFatalSearchFailure(err error) bool {
	if err == nil {
		return false
	}

	var scrapeErr *ScrapeError
	if errors.As(err, &scrapeErr) {
		switch scrapeErr.Kind {
		case ErrorUnauthorized, ErrorMalformedResponse:
			return true
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return true
	}

	return containsAny(strings.ToLower(err.Error()), fatalSignatures...)
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
