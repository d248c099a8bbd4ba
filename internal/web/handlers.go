package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"tweetexport-backend/internal/export"
	"tweetexport-backend/internal/service"
)

const (
	formatHTML = "html"
	formatCSV  = "csv"
)

// session resolves the session id, writing a 500 and returning false when one
// cannot be issued.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := s.sessions.id(w, r)
	if err != nil {
		s.tel.ReportBroken(report_session_id, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return "", false
	}
	return id, true
}

func (s *Server) loggedIn(ctx context.Context, sessionId string) (bool, error) {
	_, found, err := s.slot(sessionId).Load(ctx)
	return found, err
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := s.session(w, r)
	if !ok {
		return
	}
	found, err := s.loggedIn(r.Context(), sessionId)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if found {
		s.redirect(w, r, "/search")
		return
	}
	s.redirect(w, r, "/login")
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := s.session(w, r)
	if !ok {
		return
	}
	s.render.login(w, http.StatusOK, loginPage{
		page: page{Flashes: s.sessions.takeFlashes(sessionId)},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientIP(r, s.config.TrustProxyHeaders)) {
		s.limiter.reject(w)
		return
	}
	sessionId, ok := s.session(w, r)
	if !ok {
		return
	}

	identifier := strings.TrimSpace(r.PostFormValue("username"))
	secret := r.PostFormValue("password")

	_, err := s.auth.Login(r.Context(), s.slot(sessionId), identifier, secret)
	if err == nil {
		s.sessions.flash(sessionId, FlashSuccess, "Logged in.")
		s.redirect(w, r, "/search")
		return
	}

	status := http.StatusInternalServerError
	var authErr *service.AuthenticationFailedError
	switch {
	case errors.Is(err, service.ErrMissingInput):
		status = http.StatusBadRequest
		s.sessions.flash(sessionId, FlashError, "Enter your username and password.")
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
		s.sessions.flash(sessionId, FlashError, authErr.Reason.Message())
	default:
		s.tel.ReportBroken(report_handler_login, err)
		s.sessions.flash(sessionId, FlashError, "Login failed because of a server error, please try again.")
	}

	s.render.login(w, status, loginPage{
		page:       page{Flashes: s.sessions.takeFlashes(sessionId)},
		Identifier: identifier,
	})
}

func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := s.session(w, r)
	if !ok {
		return
	}
	found, err := s.loggedIn(r.Context(), sessionId)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !found {
		s.sessions.flash(sessionId, FlashWarning, "Login required.")
		s.redirect(w, r, "/login")
		return
	}

	s.render.search(w, http.StatusOK, searchPage{
		page: page{Flashes: s.sessions.takeFlashes(sessionId)},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := s.session(w, r)
	if !ok {
		return
	}

	input := r.PostFormValue("keywords")
	format := r.PostFormValue("format")
	if format != formatCSV {
		format = formatHTML
	}
	keywords := service.ParseKeywords(input)

	data := searchPage{Keywords: input}
	report, err := s.searcher.Search(r.Context(), s.slot(sessionId), keywords)

	switch {
	case errors.Is(err, service.ErrSessionInvalid):
		message := "Your session is no longer valid, please log in again."
		var authErr *service.AuthenticationFailedError
		switch {
		case err == service.ErrSessionInvalid:
			message = "Login required."
		case errors.As(err, &authErr):
			message = authErr.Reason.Message()
		}
		s.sessions.flash(sessionId, FlashWarning, message)
		s.redirect(w, r, "/login")
		return
	case errors.Is(err, service.ErrMissingInput):
		s.sessions.flash(sessionId, FlashWarning, "Enter at least one keyword.")
		data.Flashes = s.sessions.takeFlashes(sessionId)
		s.render.search(w, http.StatusBadRequest, data)
		return
	case errors.Is(err, service.ErrTooManyKeywords):
		s.sessions.flash(sessionId, FlashWarning, fmt.Sprintf(
			"Too many keywords, at most %d can be searched at once.",
			s.searcher.Options().MaxKeywords,
		))
		data.Flashes = s.sessions.takeFlashes(sessionId)
		s.render.search(w, http.StatusBadRequest, data)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// the client is gone
		s.tel.ReportDebug(report_handler_search, "search cancelled", err.Error())
		return
	case err != nil:
		s.tel.ReportBroken(report_handler_search, err)
		s.sessions.flash(sessionId, FlashError, "Search failed because of a server error, please try again.")
		data.Flashes = s.sessions.takeFlashes(sessionId)
		s.render.search(w, http.StatusInternalServerError, data)
		return
	}

	if report.Fatal {
		failures := report.Failures()
		cause := failures[len(failures)-1]
		s.sessions.flash(sessionId, FlashError, fmt.Sprintf(
			"Searching stopped at '%s' because the session was rejected, please log in again.\n(%s)",
			cause.Keyword, cause.Err,
		))
		s.redirect(w, r, "/login")
		return
	}

	if report.Diagnostic != "" {
		s.sessions.flash(sessionId, FlashWarning, "Some keywords failed: "+report.Diagnostic)
	}

	rows := report.Rows()
	if format == formatCSV {
		file, err := s.exports.Create(rows)
		if err != nil {
			s.sessions.flash(sessionId, FlashError, "Could not write the export, please try again.")
			data.Flashes = s.sessions.takeFlashes(sessionId)
			s.render.search(w, http.StatusInternalServerError, data)
			return
		}
		s.sessions.addExport(sessionId, file)
		s.sessions.flash(sessionId, FlashSuccess, fmt.Sprintf("Exported %d rows for %d keywords.", len(rows), len(keywords)))
		data.Export = &file
	} else {
		data.Searched = true
		data.Rows = rows
	}

	data.Flashes = s.sessions.takeFlashes(sessionId)
	s.render.search(w, http.StatusOK, data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := s.sessions.existing(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	exportId := r.PathValue("id")
	file, ok := s.sessions.export(sessionId, exportId)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := s.exports.Open(file.ID)
	if errors.Is(err, export.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.tel.ReportBroken(report_handler_export, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.DownloadName()))
	http.ServeContent(w, r, file.DownloadName(), file.CreatedAt, f)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionId, ok := s.session(w, r)
	if !ok {
		return
	}
	err := s.auth.Logout(r.Context(), s.slot(sessionId))
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.sessions.forget(sessionId)
	s.sessions.flash(sessionId, FlashInfo, "Logged out.")
	s.redirect(w, r, "/login")
}
