// Package service implements the login and keyword search workflows on top of
// a ScraperAPI and a per-session credential slot.
package service

import (
	"fmt"
	"strings"
	"tweetexport-backend/internal/components/chrono"
	"tweetexport-backend/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("tweetexport.service")
var meter = otel.Meter("tweetexport.service")

var keywordCounter, _ = meter.Int64Counter(
	"search_keywords",
	metric.WithDescription("Searched keywords by outcome."),
)
var rowCounter, _ = meter.Int64Counter(
	"search_rows",
	metric.WithDescription("Rows produced by keyword searches."),
)

const (
	report_auth_login        = "authenticator.login"
	report_auth_state        = "authenticator.state"
	report_auth_save_session = "authenticator.save-session"
	report_search_restore    = "searcher.restore"
	report_search_keyword    = "searcher.keyword"
	report_search_rows       = "searcher.rows"
	report_slot_io           = "slot.io"
)

// Mode selects what is kept in the session slot after login.
type Mode string

const (
	// ModeCachedSession keeps the client's session token and restores it on
	// every search.
	ModeCachedSession Mode = "cached_session"
	// ModeReauthPerRequest keeps the identifier and secret and logs in again
	// before every search.
	ModeReauthPerRequest Mode = "reauth_per_request"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeCachedSession:
		return ModeCachedSession, nil
	case ModeReauthPerRequest:
		return ModeReauthPerRequest, nil
	default:
		return "", fmt.Errorf("unknown mode '%s'", value)
	}
}

type coreAPIs struct {
	time chrono.TimeAPI
	tel  telemetry.API
}

func newCoreAPIs(options []Option) coreAPIs {
	cfg := coreAPIsConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	apis := coreAPIs{
		time: chrono.StandardImpl{},
		tel:  telemetry.SlogAPI{},
	}
	if cfg.time != nil {
		apis.time = cfg.time
	}
	if cfg.tel != nil {
		apis.tel = cfg.tel
	}
	apis.tel = telemetry.NewScopedAPI("service", apis.tel)

	return apis
}

type coreAPIsConfig struct {
	time chrono.TimeAPI
	tel  telemetry.API
}

type Option func(cfg *coreAPIsConfig)

func WithCustomTimeAPI(time chrono.TimeAPI) Option {
	return func(cfg *coreAPIsConfig) {
		cfg.time = time
	}
}

func WithCustomTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *coreAPIsConfig) {
		cfg.tel = tel
	}
}
