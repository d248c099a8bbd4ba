// Package client drives a running tweetexport server through its HTML forms.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/service"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// ErrLoginRequired is returned when the server redirected to the login page.
var ErrLoginRequired = errors.New("login required, run the login command first")

type Flash struct {
	Level   string
	Message string
}

// Page is what the CLI reads back from a rendered page.
type Page struct {
	Status  int
	Path    string
	Flashes []Flash
	Rows    []service.Row
	// ExportPath is set when the server produced a CSV export.
	ExportPath string
	ExportName string
}

func (p Page) Errors() []string {
	out := []string{}
	for _, f := range p.Flashes {
		if f.Level == "error" || f.Level == "warning" {
			out = append(out, f.Message)
		}
	}
	return out
}

type Client struct {
	baseUrl     *url.URL
	http        *resty.Client
	jar         http.CookieJar
	sessionFile string
}

// New creates a client, the session cookie is loaded from and saved to
// sessionFile so consecutive invocations share one server session.
func New(baseUrl, sessionFile string, tel telemetry.API) (*Client, error) {
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(baseUrl, "/"))
	httpClient.SetCookieJar(jar)
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	// searches wait between keywords, a long list takes minutes
	httpClient.SetTimeout(30 * time.Minute)
	telemetry.InstrumentResty(httpClient, telemetry.NewScopedAPI("cli", tel))

	c := &Client{
		baseUrl:     parsed,
		http:        httpClient,
		jar:         jar,
		sessionFile: sessionFile,
	}
	err = c.loadSession()
	if err != nil {
		return nil, err
	}
	return c, nil
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (c *Client) loadSession() error {
	if c.sessionFile == "" {
		return nil
	}
	contents, err := os.ReadFile(c.sessionFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var saved []savedCookie
	err = json.Unmarshal(contents, &saved)
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}
	cookies := make([]*http.Cookie, len(saved))
	for i, s := range saved {
		cookies[i] = &http.Cookie{Name: s.Name, Value: s.Value}
	}
	c.jar.SetCookies(c.baseUrl, cookies)
	return nil
}

func (c *Client) saveSession() error {
	if c.sessionFile == "" {
		return nil
	}
	saved := []savedCookie{}
	for _, cookie := range c.jar.Cookies(c.baseUrl) {
		saved = append(saved, savedCookie{Name: cookie.Name, Value: cookie.Value})
	}
	contents, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(c.sessionFile), 0700)
	if err != nil {
		return err
	}
	return os.WriteFile(c.sessionFile, contents, 0600)
}

func (c *Client) page(res *resty.Response) (Page, error) {
	page := Page{
		Status: res.StatusCode(),
		Path:   res.RawResponse.Request.URL.Path,
	}
	err := c.saveSession()
	if err != nil {
		return page, err
	}
	if res.StatusCode() == http.StatusTooManyRequests {
		return page, fmt.Errorf("rate limited by the server, retry after %s seconds", res.Header().Get("Retry-After"))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return page, err
	}
	parsePage(doc, &page)
	return page, nil
}

func parsePage(doc *goquery.Document, page *Page) {
	doc.Find(".flash").Each(func(_ int, s *goquery.Selection) {
		page.Flashes = append(page.Flashes, Flash{
			Level:   s.AttrOr("data-level", ""),
			Message: strings.TrimSpace(s.Text()),
		})
	})
	doc.Find("#results tr.result").Each(func(_ int, s *goquery.Selection) {
		page.Rows = append(page.Rows, service.Row{
			Keyword:    s.Find(".keyword").Text(),
			Time:       s.Find(".time").Text(),
			UserName:   s.Find(".user-name").Text(),
			ScreenName: s.Find(".screen-name").Text(),
			Text:       s.Find(".text").Text(),
			TweetURL:   s.Find(".url a").AttrOr("href", ""),
			TweetID:    s.AttrOr("data-id", ""),
		})
	})
	link := doc.Find("#export-link")
	page.ExportPath = link.AttrOr("href", "")
	page.ExportName = link.AttrOr("download", "")
}

func (c *Client) Login(ctx context.Context, username, password string) (Page, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": username,
			"password": password,
		}).
		Post("/login")
	if err != nil {
		return Page{}, err
	}
	page, err := c.page(res)
	if err != nil {
		return page, err
	}
	if page.Path != "/search" {
		return page, fmt.Errorf("login failed: %s", strings.Join(page.Errors(), "; "))
	}
	return page, nil
}

// Search submits keywords, format is "html" (rows in the page) or "csv" (an
// export link in the page).
func (c *Client) Search(ctx context.Context, keywords []string, format string) (Page, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"keywords": strings.Join(keywords, "\n"),
			"format":   format,
		}).
		Post("/search")
	if err != nil {
		return Page{}, err
	}
	page, err := c.page(res)
	if err != nil {
		return page, err
	}
	if page.Path == "/login" {
		return page, fmt.Errorf("%w (%s)", ErrLoginRequired, strings.Join(page.Errors(), "; "))
	}
	if page.Status != http.StatusOK {
		return page, fmt.Errorf("search failed: %s", strings.Join(page.Errors(), "; "))
	}
	return page, nil
}

// Download writes the export at path (as found in Page.ExportPath) to w.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(path)
	if err != nil {
		return err
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", path, res.StatusCode())
	}
	_, err = io.Copy(w, body)
	return err
}

func (c *Client) Logout(ctx context.Context) error {
	res, err := c.http.R().
		SetContext(ctx).
		Get("/logout")
	if err != nil {
		return err
	}
	_, err = c.page(res)
	return err
}
