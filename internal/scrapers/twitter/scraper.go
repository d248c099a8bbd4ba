package twitter

import (
	"context"
	"errors"
	"fmt"
	"time"
	"tweetexport-backend/internal/components/assert"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/credentials"
	"tweetexport-backend/internal/service"

	"golang.org/x/time/rate"
)

// Factory creates Scrapers that share one rate limiter.
type Factory struct {
	config  Config
	limiter *rate.Limiter
	tel     telemetry.API
}

func NewFactory(config Config, tel telemetry.API) Factory {
	assert.NotNil(tel, "tel")

	return Factory{
		config:  config,
		limiter: config.limiter(),
		tel:     telemetry.NewScopedAPI("twitter_scraper", tel),
	}
}

func (f Factory) New() service.ScraperAPI {
	return &Scraper{
		client: newClient(f.limiter, time.Duration(f.config.TimeoutSeconds)*time.Second, f.tel),
		config: f.config,
		tel:    f.tel,
	}
}

// Scraper implements service.ScraperAPI for a single client session.
type Scraper struct {
	client *client
	config Config
	tel    telemetry.API
}

func (s *Scraper) Login(ctx context.Context, identifier, secret string) error {
	err := s.client.login(ctx, identifier, secret)
	if err != nil {
		s.tel.ReportDebug(report_client_login, "error", err.Error())
		return wrapError(err)
	}
	return nil
}

func (s *Scraper) Restore(ctx context.Context, token credentials.Token) error {
	cookies, err := cookiesFromToken(token)
	if err != nil {
		s.tel.ReportWarning(report_client_restore, err)
		return service.NewScrapeError(service.ErrorMalformedResponse, err)
	}

	ok, err := s.client.restore(ctx, cookies)
	if err != nil {
		return wrapError(err)
	}
	if !ok {
		return service.NewScrapeError(
			service.ErrorUnauthorized,
			errors.New("saved session was rejected"),
		)
	}
	return nil
}

func (s *Scraper) Session(ctx context.Context) (credentials.Token, error) {
	token, err := tokenFromCookies(s.client.cookies())
	if err != nil {
		return nil, service.NewScrapeError(service.ErrorUnauthorized, err)
	}
	return token, nil
}

func (s *Scraper) Search(ctx context.Context, keyword string, kind service.SearchKind, maxCount int) ([]service.Item, error) {
	tweets, err := s.client.search(ctx, keyword, searchMode(kind), maxCount)
	if err != nil {
		s.tel.ReportWarning(report_client_search, fmt.Errorf("search '%s': %w", keyword, err))
		return nil, wrapError(err)
	}

	items := make([]service.Item, len(tweets))
	for i, tweet := range tweets {
		items[i] = itemFromTweet(tweet, s.config.ExtraFields)
	}
	return items, nil
}
