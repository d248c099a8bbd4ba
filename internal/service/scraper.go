package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"tweetexport-backend/internal/credentials"
)

// ScraperAPI is the boundary to the social-media scraping client. One value
// carries the state of a single client session, it is not shared between
// requests.
//
// note: fault injection point
type ScraperAPI interface {
	// Login authenticates a fresh client with an identifier (handle, email or
	// phone number) and secret.
	Login(ctx context.Context, identifier, secret string) error
	// Restore loads a token previously returned by Session and verifies that it
	// is still accepted.
	Restore(ctx context.Context, token credentials.Token) error
	// Session serializes the current session so it can be restored later.
	Session(ctx context.Context) (credentials.Token, error)
	// Search returns at most maxCount items matching keyword. An empty result is
	// not an error.
	Search(ctx context.Context, keyword string, kind SearchKind, maxCount int) ([]Item, error)
}

// ScraperFactory creates a fresh, unauthenticated client.
type ScraperFactory = func() ScraperAPI

type SearchKind int

const (
	KindLatest SearchKind = iota + 1
	KindTop
)

func (k SearchKind) String() string {
	switch k {
	case KindLatest:
		return "latest"
	case KindTop:
		return "top"
	default:
		return "unknown"
	}
}

func ParseSearchKind(value string) (SearchKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "latest":
		return KindLatest, nil
	case "top":
		return KindTop, nil
	default:
		return 0, fmt.Errorf("unknown search kind '%s'", value)
	}
}

// Field is an extra, adapter-specific attribute of an item (ex. like count).
type Field struct {
	Name  string
	Value string
}

type Item struct {
	ID           string
	AuthorName   string
	AuthorHandle string
	Text         string
	// CreatedAt is the zero time when the client could not determine it.
	CreatedAt time.Time
	Extra     []Field
}

// ErrorKind is the stable classification of a failure that an adapter attaches
// to its errors.
type ErrorKind int

const (
	ErrorUnknown ErrorKind = iota
	ErrorUnauthorized
	ErrorMalformedResponse
	ErrorChallenge
	ErrorBadCredentials
	ErrorRateLimited
	ErrorNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorMalformedResponse:
		return "malformed response"
	case ErrorChallenge:
		return "challenge"
	case ErrorBadCredentials:
		return "bad credentials"
	case ErrorRateLimited:
		return "rate limited"
	case ErrorNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ScrapeError is what adapters return for every failure that originates in the
// scraping client.
type ScrapeError struct {
	Kind ErrorKind
	Err  error
}

func NewScrapeError(kind ErrorKind, err error) *ScrapeError {
	return &ScrapeError{Kind: kind, Err: err}
}

func (e *ScrapeError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}
