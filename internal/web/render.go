package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/export"
	"tweetexport-backend/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

const report_render = "renderer.render"

type page struct {
	Title    string
	LoggedIn bool
	Flashes  []Flash
}

type loginPage struct {
	page
	Identifier string
}

type searchPage struct {
	page
	Keywords string
	Searched bool
	Rows     []service.Row
	Export   *export.File
}

type renderer struct {
	tpls *template.Template
	tel  telemetry.API
}

func newRenderer(tel telemetry.API) (renderer, error) {
	tpls, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return renderer{}, err
	}
	return renderer{tpls: tpls, tel: tel}, nil
}

// render executes into a buffer first so a template error never leaves a half
// written page behind.
func (r renderer) render(w http.ResponseWriter, status int, name string, data any) {
	buff := bytes.NewBuffer(nil)
	err := r.tpls.ExecuteTemplate(buff, name, data)
	if err != nil {
		r.tel.ReportBroken(report_render, err, name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buff.Bytes())
}

func (r renderer) login(w http.ResponseWriter, status int, data loginPage) {
	data.Title = "Log in"
	r.render(w, status, "login", data)
}

func (r renderer) search(w http.ResponseWriter, status int, data searchPage) {
	data.Title = "Search"
	data.LoggedIn = true
	r.render(w, status, "search", data)
}
