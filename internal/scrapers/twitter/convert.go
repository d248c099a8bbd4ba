package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"tweetexport-backend/internal/credentials"
	"tweetexport-backend/internal/service"

	twitterscraper "github.com/imperatrona/twitter-scraper"
)

// cookies that must be present for a session to be worth saving
var requiredCookies = []string{"auth_token", "ct0"}

func tokenFromCookies(cookies []*http.Cookie) (credentials.Token, error) {
	token := credentials.Token{}
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		token[c.Name] = c.Value
	}
	for _, name := range requiredCookies {
		if _, ok := token[name].(string); !ok {
			return nil, fmt.Errorf("session is missing the %s cookie", name)
		}
	}
	return token, nil
}

func cookiesFromToken(token credentials.Token) ([]*http.Cookie, error) {
	names := make([]string, 0, len(token))
	for name := range token {
		names = append(names, name)
	}
	sort.Strings(names)

	cookies := make([]*http.Cookie, 0, len(token))
	for _, name := range names {
		var value string
		switch v := token[name].(type) {
		case string:
			value = v
		case float64:
			value = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			value = strconv.Itoa(v)
		case int64:
			value = strconv.FormatInt(v, 10)
		default:
			return nil, fmt.Errorf("cookie %s has unsupported value type %T", name, v)
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies, nil
}

func searchMode(kind service.SearchKind) twitterscraper.SearchMode {
	if kind == service.KindTop {
		return twitterscraper.SearchTop
	}
	return twitterscraper.SearchLatest
}

func itemFromTweet(tweet *twitterscraper.Tweet, extraFields bool) service.Item {
	item := service.Item{
		ID:           tweet.ID,
		AuthorName:   tweet.Name,
		AuthorHandle: tweet.Username,
		Text:         tweet.Text,
	}

	switch {
	case !tweet.TimeParsed.IsZero():
		item.CreatedAt = tweet.TimeParsed
	case tweet.Timestamp > 0:
		item.CreatedAt = time.Unix(tweet.Timestamp, 0)
	}

	if extraFields {
		item.Extra = []service.Field{
			{Name: "likes", Value: strconv.Itoa(tweet.Likes)},
			{Name: "retweets", Value: strconv.Itoa(tweet.Retweets)},
			{Name: "replies", Value: strconv.Itoa(tweet.Replies)},
			{Name: "views", Value: strconv.Itoa(tweet.Views)},
		}
	}
	return item
}

// login flow subtasks that need the account owner to act on the site
var challengeSubtasks = []string{
	"LoginAcid",
	"LoginTwoFactorAuthChallenge",
	"LoginEnterAlternateIdentifierSubtask",
}

// error codes the login flow returns for a wrong identifier or password
var badCredentialCodes = map[int]bool{
	32:  true,
	399: true,
}

var (
	authErrorCodePattern  = regexp.MustCompile(`auth error \((\d+)\)`)
	responseStatusPattern = regexp.MustCompile(`response status (\d{3})`)
)

// libraryErrorKind recognizes the plain errors the scraping library builds
// with fmt.Errorf, it is tied to the library version pinned in go.mod.
func libraryErrorKind(message string) service.ErrorKind {
	if strings.Contains(message, "confirmation data required") {
		return service.ErrorChallenge
	}
	if strings.Contains(message, "auth error") {
		for _, subtask := range challengeSubtasks {
			if strings.Contains(message, subtask) {
				return service.ErrorChallenge
			}
		}
	}
	if match := authErrorCodePattern.FindStringSubmatch(message); match != nil {
		code, err := strconv.Atoi(match[1])
		if err == nil && badCredentialCodes[code] {
			return service.ErrorBadCredentials
		}
	}
	if strings.Contains(strings.ToLower(message), "invalid credentials") {
		return service.ErrorBadCredentials
	}
	if match := responseStatusPattern.FindStringSubmatch(message); match != nil {
		switch match[1] {
		case "401":
			return service.ErrorUnauthorized
		case "429":
			return service.ErrorRateLimited
		}
	}
	return service.ErrorUnknown
}

// errorKind classifies errors by type first, then by the library's known error
// messages. Anything else is left as ErrorUnknown.
func errorKind(err error) service.ErrorKind {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return service.ErrorMalformedResponse
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrorNetwork
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return service.ErrorNetwork
	}

	return libraryErrorKind(err.Error())
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var scrapeErr *service.ScrapeError
	if errors.As(err, &scrapeErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return service.NewScrapeError(errorKind(err), err)
}
