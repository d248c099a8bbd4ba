// client.go wraps the scraping library with rate limiting and telemetry, it knows
// nothing about how the results are used.

package twitter

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"tweetexport-backend/internal/components/assert"
	"tweetexport-backend/internal/components/telemetry"

	twitterscraper "github.com/imperatrona/twitter-scraper"
	"golang.org/x/time/rate"
)

const (
	report_client_login   = "client.login"
	report_client_restore = "client.restore"
	report_client_search  = "client.search"
)

type Config struct {
	// RequestsPerSecond is shared by every client created from one Factory.
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
	// TimeoutSeconds bounds a single search, zero means no bound.
	TimeoutSeconds int `json:"timeout_seconds"`
	// ExtraFields adds like, retweet, reply and view counts to every item.
	ExtraFields bool `json:"extra_fields"`
}

func (c Config) limiter() *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := c.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
}

type client struct {
	scraper *twitterscraper.Scraper
	limiter *rate.Limiter
	timeout time.Duration

	tel telemetry.API
}

func newClient(limiter *rate.Limiter, timeout time.Duration, tel telemetry.API) *client {
	assert.NotNil(limiter, "limiter")
	assert.NotNil(tel, "tel")

	return &client{
		scraper: twitterscraper.New(),
		limiter: limiter,
		timeout: timeout,
		tel:     tel,
	}
}

func (c *client) login(ctx context.Context, identifier, secret string) error {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return err
	}

	err = c.scraper.Login(identifier, secret)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !c.scraper.IsLoggedIn() {
		return fmt.Errorf("login: session not accepted after login")
	}
	return nil
}

func (c *client) restore(ctx context.Context, cookies []*http.Cookie) (bool, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return false, err
	}

	c.scraper.SetCookies(cookies)
	// IsLoggedIn verifies the cookies against the server
	return c.scraper.IsLoggedIn(), nil
}

func (c *client) cookies() []*http.Cookie {
	return c.scraper.GetCookies()
}

func (c *client) search(ctx context.Context, query string, mode twitterscraper.SearchMode, maxCount int) ([]*twitterscraper.Tweet, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.scraper.SetSearchMode(mode)

	tweets := []*twitterscraper.Tweet{}
	var searchErr error
	// the channel must be drained, the producing goroutine only exits once it is
	for result := range c.scraper.SearchTweets(ctx, query, maxCount) {
		if result.Error != nil {
			if searchErr == nil {
				searchErr = result.Error
			}
			continue
		}
		if searchErr != nil {
			continue
		}
		tweet := result.Tweet
		tweets = append(tweets, &tweet)
	}
	if searchErr != nil {
		return tweets, searchErr
	}
	if ctx.Err() != nil {
		return tweets, ctx.Err()
	}
	return tweets, nil
}
