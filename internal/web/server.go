// Package web is the HTML front-end: login, keyword search, CSV download.
package web

import (
	"net/http"
	"time"
	"tweetexport-backend/internal/components/assert"
	"tweetexport-backend/internal/components/chrono"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/credentials"
	"tweetexport-backend/internal/export"
	"tweetexport-backend/internal/service"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	report_handler_login  = "handler.login"
	report_handler_search = "handler.search"
	report_handler_export = "handler.export"
	report_session_id     = "sessions.id"
	report_limiter_size   = "login-limiter.size"
)

type LoginLimitConfig struct {
	PerMinute float64 `json:"per_minute"`
	Burst     int     `json:"burst"`
}

type Config struct {
	CookieName        string `json:"cookie_name"`
	SecureCookie      bool   `json:"secure_cookie"`
	SessionTTLMinutes int    `json:"session_ttl_minutes"`
	MaxSessions       int    `json:"max_sessions"`
	// TrustProxyHeaders makes the login limiter key on X-Forwarded-For.
	TrustProxyHeaders bool             `json:"trust_proxy_headers"`
	LoginLimit        LoginLimitConfig `json:"login_limit"`
}

// Server wires the workflows to HTTP.
type Server struct {
	auth        service.Authenticator
	searcher    service.Searcher
	credentials credentials.Store
	exports     export.Store

	config   Config
	sessions *sessions
	limiter  *loginLimiter
	render   renderer
	tel      telemetry.API
}

func NewServer(
	config Config,
	auth service.Authenticator,
	searcher service.Searcher,
	store credentials.Store,
	exports export.Store,
	time chrono.TimeAPI,
	tel telemetry.API,
) (*Server, error) {
	assert.NotNil(store, "credential store")
	assert.NotNil(time, "time")
	assert.NotNil(tel, "tel")

	tel = telemetry.NewScopedAPI("web", tel)
	render, err := newRenderer(tel)
	if err != nil {
		return nil, err
	}

	return &Server{
		auth:        auth,
		searcher:    searcher,
		credentials: store,
		exports:     exports,
		config:      config,
		sessions:    newSessions(config),
		limiter:     newLoginLimiter(config.LoginLimit.PerMinute, config.LoginLimit.Burst, time.Now),
		render:      render,
		tel:         tel,
	}, nil
}

// Handler returns the routes wrapped with otel instrumentation.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /search", s.handleSearchPage)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /exports/{id}", s.handleExport)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	return otelhttp.NewHandler(mux, "tweetexport")
}

// ScheduleJobs registers the periodic housekeeping of the server.
func (s *Server) ScheduleJobs(cron chrono.CronAPI) error {
	return cron.Cron("@every 3m", func() {
		remaining := s.limiter.prune(5 * time.Minute)
		s.tel.ReportCount(report_limiter_size, int64(remaining))
	})
}

func (s *Server) slot(sessionId string) credentials.Slot {
	return credentials.NewSlot(s.credentials, sessionId)
}
