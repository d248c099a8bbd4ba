package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/credentials"
	"tweetexport-backend/internal/service"

	twitterscraper "github.com/imperatrona/twitter-scraper"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestTokenCookieRoundTrip(t *testing.T) {
	cookies := []*http.Cookie{
		{Name: "auth_token", Value: "abc"},
		{Name: "ct0", Value: "def"},
		{Name: "guest_id", Value: "v1%3A123"},
		nil,
		{Name: "", Value: "dropped"},
	}

	token, err := tokenFromCookies(cookies)
	require.NoError(t, err)
	require.Equal(t, credentials.Token{"auth_token": "abc", "ct0": "def", "guest_id": "v1%3A123"}, token)

	restored, err := cookiesFromToken(token)
	require.NoError(t, err)
	require.Equal(t, []*http.Cookie{
		{Name: "auth_token", Value: "abc"},
		{Name: "ct0", Value: "def"},
		{Name: "guest_id", Value: "v1%3A123"},
	}, restored)
}

func TestTokenFromCookiesRequiresSession(t *testing.T) {
	_, err := tokenFromCookies([]*http.Cookie{{Name: "guest_id", Value: "1"}})
	require.ErrorContains(t, err, "auth_token")

	_, err = tokenFromCookies([]*http.Cookie{{Name: "auth_token", Value: "1"}})
	require.ErrorContains(t, err, "ct0")
}

func TestCookiesFromTokenNumbers(t *testing.T) {
	// numbers come back as float64 after a trip through encoding/json
	cookies, err := cookiesFromToken(credentials.Token{"auth_token": "a", "twid": float64(12345)})
	require.NoError(t, err)
	require.Equal(t, "12345", cookies[1].Value)

	_, err = cookiesFromToken(credentials.Token{"auth_token": []string{"a"}})
	require.Error(t, err)
}

func TestItemFromTweet(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tweet := &twitterscraper.Tweet{
		ID:         "1",
		Name:       "Gopher",
		Username:   "golang",
		Text:       "go 1.22 is out",
		TimeParsed: created,
		Likes:      10,
		Retweets:   2,
		Replies:    3,
		Views:      400,
	}

	item := itemFromTweet(tweet, false)
	require.Equal(t, service.Item{
		ID:           "1",
		AuthorName:   "Gopher",
		AuthorHandle: "golang",
		Text:         "go 1.22 is out",
		CreatedAt:    created,
	}, item)

	item = itemFromTweet(tweet, true)
	require.Equal(t, []service.Field{
		{Name: "likes", Value: "10"},
		{Name: "retweets", Value: "2"},
		{Name: "replies", Value: "3"},
		{Name: "views", Value: "400"},
	}, item.Extra)

	item = itemFromTweet(&twitterscraper.Tweet{ID: "2", Timestamp: created.Unix()}, false)
	require.True(t, created.Equal(item.CreatedAt))

	item = itemFromTweet(&twitterscraper.Tweet{ID: "3"}, false)
	require.True(t, item.CreatedAt.IsZero())
}

func TestWrapError(t *testing.T) {
	var scrapeErr *service.ScrapeError

	err := wrapError(fmt.Errorf("decode: %w", &json.SyntaxError{Offset: 1}))
	require.ErrorAs(t, err, &scrapeErr)
	require.Equal(t, service.ErrorMalformedResponse, scrapeErr.Kind)
	require.True(t, service.IsFatalSearchFailure(err))

	err = wrapError(&url.Error{Op: "Get", URL: "https://example.com", Err: errors.New("connection refused")})
	require.ErrorAs(t, err, &scrapeErr)
	require.Equal(t, service.ErrorNetwork, scrapeErr.Kind)
	require.False(t, service.IsFatalSearchFailure(err))

	err = wrapError(errors.New("response status 401 Unauthorized"))
	require.ErrorAs(t, err, &scrapeErr)
	require.Equal(t, service.ErrorUnauthorized, scrapeErr.Kind)
	require.True(t, service.IsFatalSearchFailure(err))

	err = wrapError(errors.New("response status 429 Too Many Requests: rate limit exceeded"))
	require.ErrorAs(t, err, &scrapeErr)
	require.Equal(t, service.ErrorRateLimited, scrapeErr.Kind)
	require.False(t, service.IsFatalSearchFailure(err))

	require.ErrorIs(t, wrapError(context.Canceled), context.Canceled)
	require.False(t, errors.As(wrapError(context.Canceled), &scrapeErr))
	require.NoError(t, wrapError(nil))

	original := service.NewScrapeError(service.ErrorChallenge, errors.New("confirm"))
	require.Same(t, original, wrapError(original))
}

func TestWrapLoginErrors(t *testing.T) {
	cases := []struct {
		message string
		kind    service.ErrorKind
		reason  service.FailureReason
	}{
		{"auth error: LoginAcid", service.ErrorChallenge, service.ReasonNeedsSecondFactor},
		{"auth error: LoginTwoFactorAuthChallenge", service.ErrorChallenge, service.ReasonNeedsSecondFactor},
		{"auth error: LoginEnterAlternateIdentifierSubtask", service.ErrorChallenge, service.ReasonNeedsSecondFactor},
		{"confirmation data required for LoginAcid", service.ErrorChallenge, service.ReasonNeedsSecondFactor},
		{"auth error (399): Wrong password!", service.ErrorBadCredentials, service.ReasonBadCredentials},
		{"auth error (32): Could not authenticate you.", service.ErrorBadCredentials, service.ReasonBadCredentials},
		{"Invalid credentials", service.ErrorBadCredentials, service.ReasonBadCredentials},
		{"auth error (366): flow token expired", service.ErrorUnknown, service.ReasonUnknown},
		{"something else went wrong", service.ErrorUnknown, service.ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			err := wrapError(fmt.Errorf("login: %w", errors.New(tc.message)))

			var scrapeErr *service.ScrapeError
			require.ErrorAs(t, err, &scrapeErr)
			require.Equal(t, tc.kind, scrapeErr.Kind)
			require.Equal(t, tc.reason, service.ClassifyLoginFailure(err))
		})
	}
}

func TestSearchMode(t *testing.T) {
	require.Equal(t, twitterscraper.SearchLatest, searchMode(service.KindLatest))
	require.Equal(t, twitterscraper.SearchTop, searchMode(service.KindTop))
}

func TestConfigLimiter(t *testing.T) {
	require.Equal(t, rate.Inf, Config{}.limiter().Limit())

	limiter := Config{RequestsPerSecond: 0.5}.limiter()
	require.Equal(t, rate.Limit(0.5), limiter.Limit())
	require.Equal(t, 1, limiter.Burst())
}

func TestRestoreRejectsMalformedToken(t *testing.T) {
	factory := NewFactory(Config{}, &telemetry.Recorder{})
	scraper := factory.New()

	err := scraper.Restore(context.Background(), credentials.Token{"auth_token": map[string]any{}})
	var scrapeErr *service.ScrapeError
	require.ErrorAs(t, err, &scrapeErr)
	require.Equal(t, service.ErrorMalformedResponse, scrapeErr.Kind)
}
