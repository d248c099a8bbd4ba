package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"tweetexport-backend/internal/service"
	"tweetexport-backend/lib/configutil"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()

	mode, options, err := cfg.Search.options()
	require.NoError(t, err)
	require.Equal(t, service.ModeCachedSession, mode)
	require.Equal(t, service.KindLatest, options.Kind)
	require.Equal(t, 50, options.MaxCount)
	require.Equal(t, 3*time.Second, options.KeywordDelay)
	require.NoError(t, cfg.Credentials.validate(mode))

	web := cfg.webConfig()
	require.Equal(t, cfg.LoginLimit, web.LoginLimit)
	require.Equal(t, cfg.Credentials.TTLMinutes, web.SessionTTLMinutes)
}

func TestPlaintextRequiresOptIn(t *testing.T) {
	cfg := defaultConfig().Credentials
	require.NoError(t, cfg.validate(service.ModeReauthPerRequest))

	cfg.Backend = backendSqlite
	require.Error(t, cfg.validate(service.ModeReauthPerRequest))
	require.NoError(t, cfg.validate(service.ModeCachedSession))

	cfg.AllowPlaintext = true
	require.NoError(t, cfg.validate(service.ModeReauthPerRequest))

	cfg.Backend = "redis"
	require.Error(t, cfg.validate(service.ModeCachedSession))
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		port: 9000,
		search: { mode: "reauth_per_request", keyword_delay_ms: 500 },
		credentials: { backend: "sqlite", database: { file: "sessions.db" } },
	}`), 0600))

	cfg, err := configutil.ReadConfigWithDefaults(path, defaultConfig())
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "sessions.db", cfg.Credentials.Database.File)
	require.Equal(t, 24*60, cfg.Credentials.TTLMinutes)

	mode, options, err := cfg.Search.options()
	require.NoError(t, err)
	require.Equal(t, service.ModeReauthPerRequest, mode)
	require.Equal(t, 500*time.Millisecond, options.KeywordDelay)
	require.Equal(t, 50, options.MaxCount)
	require.Error(t, cfg.Credentials.validate(mode))
}
