package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tweetexport-backend/internal/components/assert"
	"tweetexport-backend/internal/credentials"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type AuthState int

const (
	StateUnauthenticated AuthState = iota
	StateAuthenticating
	StateAuthenticated
	StateFailed
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Authenticator runs the login workflow and owns what is written into the
// session slot after it.
type Authenticator struct {
	coreAPIs

	newScraper ScraperFactory
	mode       Mode
}

func NewAuthenticator(newScraper ScraperFactory, mode Mode, options ...Option) Authenticator {
	if newScraper == nil {
		panic("expected scraper factory to be not nil")
	}
	assert.NotEmptyStr(string(mode), "mode")

	return Authenticator{
		coreAPIs:   newCoreAPIs(options),
		newScraper: newScraper,
		mode:       mode,
	}
}

func (a Authenticator) Mode() Mode {
	return a.mode
}

func (a Authenticator) transition(from, to AuthState) AuthState {
	a.tel.ReportDebug(report_auth_state, "from", from.String(), "to", to.String())
	return to
}

// authenticate logs a fresh client in, the error is ErrMissingInput or an
// *AuthenticationFailedError.
func (a Authenticator) authenticate(ctx context.Context, identifier, secret string) (ScraperAPI, error) {
	ctx, span := tracer.Start(ctx, "authenticate")
	defer span.End()

	if identifier == "" || secret == "" {
		span.SetStatus(codes.Error, "missing input")
		return nil, ErrMissingInput
	}

	client := a.newScraper()
	err := client.Login(ctx, identifier, secret)
	if err != nil {
		reason := ClassifyLoginFailure(err)
		span.RecordError(err)
		span.SetAttributes(attribute.String("reason", string(reason)))
		span.SetStatus(codes.Error, "login rejected")
		if reason == ReasonUnknown {
			a.tel.ReportWarning(report_auth_login, err)
		}
		return nil, &AuthenticationFailedError{Reason: reason, Err: err}
	}
	return client, nil
}

// Login authenticates identifier and secret and saves the resulting credential
// into slot. It always ends in StateAuthenticated or StateFailed, on failure the
// slot is left empty.
//
// The error is ErrMissingInput, an *AuthenticationFailedError, or an error from
// the credential store.
func (a Authenticator) Login(ctx context.Context, slot credentials.Slot, identifier, secret string) (AuthState, error) {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()

	identifier = strings.TrimSpace(identifier)
	state := StateUnauthenticated

	fail := func(err error) (AuthState, error) {
		clearErr := slot.Clear(ctx)
		if clearErr != nil {
			a.tel.ReportBroken(report_slot_io, clearErr)
			err = errors.Join(err, clearErr)
		}
		span.SetStatus(codes.Error, err.Error())
		return a.transition(state, StateFailed), err
	}

	if identifier == "" || secret == "" {
		return fail(ErrMissingInput)
	}

	state = a.transition(state, StateAuthenticating)
	client, err := a.authenticate(ctx, identifier, secret)
	if err != nil {
		return fail(err)
	}

	var credential credentials.Credential
	switch a.mode {
	case ModeReauthPerRequest:
		credential = credentials.NewPasswordCredential(identifier, secret)
	default:
		token, err := client.Session(ctx)
		if err != nil {
			a.tel.ReportBroken(report_auth_save_session, err)
			return fail(&AuthenticationFailedError{Reason: ReasonUnknown, Err: err})
		}
		credential = credentials.NewTokenCredential(token)
		if !credential.Valid() {
			return fail(&AuthenticationFailedError{
				Reason: ReasonUnknown,
				Err:    fmt.Errorf("client returned an empty session"),
			})
		}
	}

	err = slot.Save(ctx, credential)
	if err != nil {
		a.tel.ReportBroken(report_slot_io, err)
		return fail(fmt.Errorf("save credential: %w", err))
	}

	return a.transition(state, StateAuthenticated), nil
}

// Logout clears the slot, it is safe to call on an empty slot.
func (a Authenticator) Logout(ctx context.Context, slot credentials.Slot) error {
	err := slot.Clear(ctx)
	if err != nil {
		a.tel.ReportBroken(report_slot_io, err)
		return err
	}
	return nil
}
