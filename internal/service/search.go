package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"tweetexport-backend/internal/credentials"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type SearchOptions struct {
	Kind     SearchKind
	MaxCount int
	// KeywordDelay is waited between two consecutive keywords.
	KeywordDelay time.Duration
	// MaxKeywords caps a single request, zero means no cap.
	MaxKeywords int
}

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Kind:         KindLatest,
		MaxCount:     50,
		KeywordDelay: 3 * time.Second,
	}
}

type OutcomeStatus int

const (
	OutcomeRows OutcomeStatus = iota + 1
	OutcomeEmpty
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeRows:
		return "rows"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type KeywordOutcome struct {
	Keyword string
	Status  OutcomeStatus
	Rows    []Row
	// Err is only set when Status is OutcomeFailed.
	Err *KeywordSearchFailedError
}

type SearchReport struct {
	Outcomes []KeywordOutcome
	// Fatal is set when a keyword invalidated the session, the remaining
	// keywords were not attempted and the slot was cleared.
	Fatal bool
	// Diagnostic joins the non-fatal failures as "<keyword>: <message>"
	// separated by "; ".
	Diagnostic string
}

func (r SearchReport) Completed() bool {
	return !r.Fatal
}

// Rows returns the rows of every keyword in request order.
func (r SearchReport) Rows() []Row {
	out := []Row{}
	for _, o := range r.Outcomes {
		out = append(out, o.Rows...)
	}
	return out
}

func (r SearchReport) Failures() []*KeywordSearchFailedError {
	out := []*KeywordSearchFailedError{}
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.Err)
		}
	}
	return out
}

// Searcher runs the keyword search workflow for one session at a time.
type Searcher struct {
	coreAPIs

	auth    Authenticator
	options SearchOptions
}

func NewSearcher(auth Authenticator, searchOptions SearchOptions, options ...Option) Searcher {
	if auth.newScraper == nil {
		panic("expected an authenticator created with NewAuthenticator")
	}
	if searchOptions.Kind == 0 {
		searchOptions.Kind = KindLatest
	}
	if searchOptions.MaxCount <= 0 {
		searchOptions.MaxCount = DefaultSearchOptions().MaxCount
	}

	return Searcher{
		coreAPIs: newCoreAPIs(options),
		auth:     auth,
		options:  searchOptions,
	}
}

func (s Searcher) Options() SearchOptions {
	return s.options
}

// credential loads the slot, a missing credential is ErrSessionInvalid.
func (s Searcher) credential(ctx context.Context, slot credentials.Slot) (credentials.Credential, error) {
	credential, found, err := slot.Load(ctx)
	if err != nil {
		s.tel.ReportBroken(report_slot_io, err)
		return credentials.Credential{}, err
	}
	if !found {
		return credentials.Credential{}, ErrSessionInvalid
	}
	return credential, nil
}

// client produces an authenticated client from the loaded credential, the
// error is ErrSessionInvalid (possibly joined with the cause), the context's
// error, or a credential store error.
func (s Searcher) client(ctx context.Context, slot credentials.Slot, credential credentials.Credential) (ScraperAPI, error) {
	invalidate := func(cause error) (ScraperAPI, error) {
		// an aborted request says nothing about the credential
		if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
			return nil, cause
		}
		err := slot.Clear(ctx)
		if err != nil {
			s.tel.ReportBroken(report_slot_io, err)
			return nil, err
		}
		if cause == nil {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("%w: %w", ErrSessionInvalid, cause)
	}

	switch s.auth.mode {
	case ModeReauthPerRequest:
		if credential.Kind != credentials.KindPassword {
			return invalidate(nil)
		}
		client, err := s.auth.authenticate(ctx, credential.Identifier, credential.Secret)
		if err != nil {
			return invalidate(err)
		}
		return client, nil
	default:
		if credential.Kind != credentials.KindToken {
			return invalidate(nil)
		}
		client := s.auth.newScraper()
		err := client.Restore(ctx, credential.Token)
		if err != nil {
			s.tel.ReportWarning(report_search_restore, err)
			return invalidate(err)
		}
		return client, nil
	}
}

// Search runs every keyword in order against the session in slot.
//
// The returned error is ErrSessionInvalid when the slot is empty or cannot
// produce an authenticated client, ErrMissingInput when keywords is empty,
// ErrTooManyKeywords when it exceeds SearchOptions.MaxKeywords, or an
// infrastructure error (credential store, context cancellation). Failures of
// individual keywords are never returned as errors, they are part of the report.
func (s Searcher) Search(ctx context.Context, slot credentials.Slot, keywords []string) (SearchReport, error) {
	ctx, span := tracer.Start(ctx, "search")
	defer span.End()

	credential, err := s.credential(ctx, slot)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return SearchReport{}, err
	}

	if len(keywords) == 0 {
		return SearchReport{}, ErrMissingInput
	}
	if s.options.MaxKeywords > 0 && len(keywords) > s.options.MaxKeywords {
		return SearchReport{}, fmt.Errorf("%w: at most %d are allowed", ErrTooManyKeywords, s.options.MaxKeywords)
	}
	span.SetAttributes(attribute.Int("keywords", len(keywords)))

	client, err := s.client(ctx, slot, credential)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return SearchReport{}, err
	}

	report := SearchReport{}
	diagnostics := []string{}
	for i, keyword := range keywords {
		outcome := s.searchKeyword(ctx, span, client, keyword)
		report.Outcomes = append(report.Outcomes, outcome)
		keywordCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", outcome.Status.String()),
			attribute.Bool("fatal", outcome.Err != nil && outcome.Err.Fatal),
		))
		rowCounter.Add(ctx, int64(len(outcome.Rows)))

		if outcome.Err != nil && outcome.Err.Fatal {
			report.Fatal = true
			err = slot.Clear(ctx)
			if err != nil {
				s.tel.ReportBroken(report_slot_io, err)
				return report, err
			}
			break
		}
		if outcome.Err != nil {
			diagnostics = append(diagnostics, outcome.Err.Error())
		}
		if ctx.Err() != nil {
			report.Diagnostic = strings.Join(diagnostics, "; ")
			return report, ctx.Err()
		}

		if i < len(keywords)-1 {
			err = s.time.Sleep(ctx, s.options.KeywordDelay)
			if err != nil {
				report.Diagnostic = strings.Join(diagnostics, "; ")
				return report, err
			}
		}
	}
	report.Diagnostic = strings.Join(diagnostics, "; ")

	if report.Fatal {
		span.SetStatus(codes.Error, "session invalidated during search")
	}
	s.tel.ReportCount(report_search_rows, int64(len(report.Rows())))

	return report, nil
}

func (s Searcher) searchKeyword(ctx context.Context, span trace.Span, client ScraperAPI, keyword string) KeywordOutcome {
	items, err := client.Search(ctx, keyword, s.options.Kind, s.options.MaxCount)
	if err != nil {
		fatal := IsFatalSearchFailure(err) && !errors.Is(err, context.Canceled)
		span.AddEvent("keyword failed", trace.WithAttributes(
			attribute.String("keyword", keyword),
			attribute.Bool("fatal", fatal),
		))
		s.tel.ReportWarning(report_search_keyword, keyword, err)
		return KeywordOutcome{
			Keyword: keyword,
			Status:  OutcomeFailed,
			Err: &KeywordSearchFailedError{
				Keyword: keyword,
				Fatal:   fatal,
				Err:     err,
			},
		}
	}
	if len(items) == 0 {
		return KeywordOutcome{Keyword: keyword, Status: OutcomeEmpty}
	}

	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = NewRow(keyword, item, s.time.Location())
	}
	return KeywordOutcome{Keyword: keyword, Status: OutcomeRows, Rows: rows}
}
