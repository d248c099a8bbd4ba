package main

import (
	"fmt"
	"time"
	"tweetexport-backend/internal/db"
	"tweetexport-backend/internal/export"
	"tweetexport-backend/internal/scrapers/twitter"
	"tweetexport-backend/internal/service"
	"tweetexport-backend/internal/web"
)

const (
	backendMemory = "memory"
	backendSqlite = "sqlite"
)

type CredentialsConfig struct {
	// Backend is "memory" or "sqlite".
	Backend    string    `json:"backend"`
	TTLMinutes int       `json:"ttl_minutes"`
	Size       int       `json:"size"`
	Database   db.Config `json:"database"`
	// AllowPlaintext lets the sqlite backend persist identifier/secret pairs,
	// which reauth_per_request needs.
	AllowPlaintext bool `json:"allow_plaintext"`
}

type SearchConfig struct {
	Mode           string `json:"mode"`
	Kind           string `json:"kind"`
	MaxCount       int    `json:"max_count"`
	KeywordDelayMs int    `json:"keyword_delay_ms"`
	MaxKeywords    int    `json:"max_keywords"`
}

type Config struct {
	Port int `json:"port"`
	// Timezone is an IANA zone name used for result times and cron, empty means UTC.
	Timezone    string               `json:"timezone"`
	Http        web.Config           `json:"http"`
	LoginLimit  web.LoginLimitConfig `json:"login_limit"`
	Credentials CredentialsConfig    `json:"credentials"`
	Search      SearchConfig         `json:"search"`
	Scraper     twitter.Config       `json:"scraper"`
	Export      export.Config        `json:"export"`
}

func defaultConfig() Config {
	return Config{
		Port: 8080,
		Credentials: CredentialsConfig{
			Backend:    backendMemory,
			TTLMinutes: 24 * 60,
			Size:       1024,
		},
		Search: SearchConfig{
			Mode:           string(service.ModeCachedSession),
			Kind:           "latest",
			MaxCount:       50,
			KeywordDelayMs: 3000,
			MaxKeywords:    20,
		},
		Scraper: twitter.Config{
			RequestsPerSecond: 1,
			Burst:             2,
			TimeoutSeconds:    60,
		},
		Export: export.Config{
			Directory:        "exports",
			RetentionMinutes: 60,
		},
		LoginLimit: web.LoginLimitConfig{
			PerMinute: 5,
			Burst:     5,
		},
	}
}

func (c Config) webConfig() web.Config {
	out := c.Http
	out.LoginLimit = c.LoginLimit
	if out.SessionTTLMinutes == 0 {
		out.SessionTTLMinutes = c.Credentials.TTLMinutes
	}
	return out
}

func (c SearchConfig) options() (service.Mode, service.SearchOptions, error) {
	mode, err := service.ParseMode(c.Mode)
	if err != nil {
		return "", service.SearchOptions{}, err
	}
	kind, err := service.ParseSearchKind(c.Kind)
	if err != nil {
		return "", service.SearchOptions{}, err
	}
	return mode, service.SearchOptions{
		Kind:         kind,
		MaxCount:     c.MaxCount,
		KeywordDelay: time.Duration(c.KeywordDelayMs) * time.Millisecond,
		MaxKeywords:  c.MaxKeywords,
	}, nil
}

func (c CredentialsConfig) validate(mode service.Mode) error {
	switch c.Backend {
	case backendMemory:
	case backendSqlite:
		if mode == service.ModeReauthPerRequest && !c.AllowPlaintext {
			return fmt.Errorf(
				"search mode %s stores passwords, set credentials.allow_plaintext to use it with the sqlite backend",
				mode,
			)
		}
	default:
		return fmt.Errorf("unknown credentials backend '%s'", c.Backend)
	}
	return nil
}
