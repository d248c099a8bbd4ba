package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/service"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<div class="flash flash-warning" data-level="warning">Some keywords failed: b: network: timeout</div>
<p id="export">Exported 1 rows. <a id="export-link" href="/exports/abc" download="tweets_20240102_030405.csv">Download</a></p>
<table id="results">
<tr><th>Keyword</th></tr>
<tr class="result" data-id="42">
	<td class="keyword">golang</td>
	<td class="time">2024-01-02 03:04:05</td>
	<td class="user-name">Gopher</td>
	<td class="screen-name">gopher</td>
	<td class="text">hello, world</td>
	<td class="url"><a href="https://x.com/gopher/status/42">https://x.com/gopher/status/42</a></td>
</tr>
<tr class="result" data-id="">
	<td class="keyword">golang</td>
	<td class="time">N/A</td>
	<td class="user-name"></td>
	<td class="screen-name"></td>
	<td class="text">no link</td>
	<td class="url"></td>
</tr>
</table>
</body></html>`

func TestParsePage(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchPage))
	require.NoError(t, err)

	var page Page
	parsePage(doc, &page)

	require.Equal(t, []Flash{{Level: "warning", Message: "Some keywords failed: b: network: timeout"}}, page.Flashes)
	require.Equal(t, []string{"Some keywords failed: b: network: timeout"}, page.Errors())
	require.Equal(t, "/exports/abc", page.ExportPath)
	require.Equal(t, "tweets_20240102_030405.csv", page.ExportName)
	require.Equal(t, []service.Row{
		{
			Keyword:    "golang",
			Time:       "2024-01-02 03:04:05",
			UserName:   "Gopher",
			ScreenName: "gopher",
			Text:       "hello, world",
			TweetURL:   "https://x.com/gopher/status/42",
			TweetID:    "42",
		},
		{
			Keyword: "golang",
			Time:    "N/A",
			Text:    "no link",
		},
	}, page.Rows)
}

func fakeServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `<div class="flash" data-level="error">The username or password is incorrect.</div>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
		http.Redirect(w, r, "/search", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="flash" data-level="success">Logged in.</div>`)
	})
	mux.HandleFunc("POST /search", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != "s1" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		require.Equal(t, "a\nb", r.FormValue("keywords"))
		fmt.Fprint(w, searchPage)
	})
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="flash" data-level="error">Login required.</div>`)
	})
	mux.HandleFunc("GET /exports/{id}", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err != nil {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "csv body")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestSessionPersistsBetweenClients(t *testing.T) {
	server := fakeServer(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	first, err := New(server.URL, sessionFile, &telemetry.Recorder{})
	require.NoError(t, err)

	_, err = first.Login(ctx, "user", "wrong")
	require.ErrorContains(t, err, "incorrect")

	page, err := first.Login(ctx, "user", "secret")
	require.NoError(t, err)
	require.Equal(t, "/search", page.Path)
	require.Equal(t, "Logged in.", page.Flashes[0].Message)

	second, err := New(server.URL, sessionFile, &telemetry.Recorder{})
	require.NoError(t, err)
	page, err = second.Search(ctx, []string{"a", "b"}, "csv")
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)
	require.Equal(t, "/exports/abc", page.ExportPath)

	var out bytes.Buffer
	require.NoError(t, second.Download(ctx, page.ExportPath, &out))
	require.Equal(t, "csv body", out.String())
}

func TestSearchWithoutSession(t *testing.T) {
	server := fakeServer(t)

	c, err := New(server.URL, "", &telemetry.Recorder{})
	require.NoError(t, err)

	_, err = c.Search(context.Background(), []string{"a", "b"}, "html")
	require.ErrorIs(t, err, ErrLoginRequired)
	require.ErrorContains(t, err, "Login required.")
}

func TestDumpRedactsSecrets(t *testing.T) {
	server := fakeServer(t)
	dir := t.TempDir()

	c, err := New(server.URL, "", &telemetry.Recorder{})
	require.NoError(t, err)
	dump, err := NewDump(dir)
	require.NoError(t, err)
	c.SetDump(dump)

	_, err = c.Login(context.Background(), "user", "secret")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "POST "+server.URL+"/login")
	require.Contains(t, string(contents), "username=user")
	require.NotContains(t, string(contents), "secret")
}

func TestRedactForm(t *testing.T) {
	require.Equal(t, "password=%5Bredacted%5D&username=a", redactForm("username=a&password=hunter2"))
	require.Equal(t, "keywords=a", redactForm("keywords=a"))
}
