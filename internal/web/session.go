package web

import (
	"net/http"
	"sync"
	"time"
	"tweetexport-backend/internal/export"

	"github.com/hashicorp/golang-lru/v2/expirable"
	random "github.com/mazen160/go-random"
)

const sessionIdLength = 32

type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
	FlashWarning FlashLevel = "warning"
	FlashInfo    FlashLevel = "info"
)

// Flash is a message shown once on the next rendered page.
type Flash struct {
	Level   FlashLevel
	Message string
}

// sessionState is the non-credential state of a browser session.
type sessionState struct {
	mu      sync.Mutex
	flashes []Flash
	exports map[string]export.File
}

type sessions struct {
	cookieName string
	secure     bool
	ttl        time.Duration

	mu     sync.Mutex
	states *expirable.LRU[string, *sessionState]
}

func newSessions(config Config) *sessions {
	ttl := time.Duration(config.SessionTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cookieName := config.CookieName
	if cookieName == "" {
		cookieName = "tweetexport_session"
	}
	size := config.MaxSessions
	if size <= 0 {
		size = 1024
	}

	return &sessions{
		cookieName: cookieName,
		secure:     config.SecureCookie,
		ttl:        ttl,
		states:     expirable.NewLRU[string, *sessionState](size, nil, ttl),
	}
}

func validSessionId(id string) bool {
	if len(id) != sessionIdLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isAlnum {
			return false
		}
	}
	return true
}

// existing returns the session id of the request without issuing a new one.
func (s *sessions) existing(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || !validSessionId(cookie.Value) {
		return "", false
	}
	return cookie.Value, true
}

// id returns the session id of the request, issuing a fresh one (and setting
// the cookie) when the request carries none.
func (s *sessions) id(w http.ResponseWriter, r *http.Request) (string, error) {
	if id, ok := s.existing(r); ok {
		return id, nil
	}

	id, err := random.String(sessionIdLength)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

func (s *sessions) state(id string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states.Get(id)
	if ok {
		return state
	}
	state = &sessionState{exports: map[string]export.File{}}
	s.states.Add(id, state)
	return state
}

func (s *sessions) flash(id string, level FlashLevel, message string) {
	state := s.state(id)
	state.mu.Lock()
	defer state.mu.Unlock()
	state.flashes = append(state.flashes, Flash{Level: level, Message: message})
}

// takeFlashes returns and forgets the pending flashes.
func (s *sessions) takeFlashes(id string) []Flash {
	state := s.state(id)
	state.mu.Lock()
	defer state.mu.Unlock()
	flashes := state.flashes
	state.flashes = nil
	return flashes
}

func (s *sessions) addExport(id string, file export.File) {
	state := s.state(id)
	state.mu.Lock()
	defer state.mu.Unlock()
	state.exports[file.ID] = file
}

func (s *sessions) export(id, exportId string) (export.File, bool) {
	state := s.state(id)
	state.mu.Lock()
	defer state.mu.Unlock()
	file, ok := state.exports[exportId]
	return file, ok
}

// forget drops everything but the session id itself.
func (s *sessions) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states.Remove(id)
}
