package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"
	"tweetexport-backend/internal/components/chrono"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/db"

	"github.com/stretchr/testify/require"
)

func TestCredentialRedaction(t *testing.T) {
	credential := NewPasswordCredential("someone@example.com", "hunter2")
	token := NewTokenCredential(Token{"auth_token": "abc123secret", "ct0": "csrf"})

	for _, c := range []Credential{credential, token} {
		require.NotContains(t, c.String(), "hunter2")
		require.NotContains(t, fmt.Sprintf("%v %+v %#v", c, c, c), "hunter2")
		require.NotContains(t, fmt.Sprintf("%v %+v %#v", c, c, c), "abc123secret")

		encoded, err := json.Marshal(map[string]any{"credential": c})
		require.NoError(t, err)
		require.NotContains(t, string(encoded), "hunter2")
		require.NotContains(t, string(encoded), "abc123secret")

		buff := bytes.NewBuffer(nil)
		logger := slog.New(slog.NewTextHandler(buff, nil))
		logger.Info("login", "credential", c)
		require.NotContains(t, buff.String(), "hunter2")
		require.NotContains(t, buff.String(), "abc123secret")
		require.NotContains(t, buff.String(), "someone@example.com")
	}
}

func TestCredentialValid(t *testing.T) {
	require.True(t, NewTokenCredential(Token{"auth_token": "x"}).Valid())
	require.False(t, NewTokenCredential(Token{}).Valid())
	require.True(t, NewPasswordCredential("a", "b").Valid())
	require.False(t, NewPasswordCredential("a", "").Valid())
	require.False(t, Credential{}.Valid())
}

func TestTokenCredentialIsolated(t *testing.T) {
	token := Token{"auth_token": "x"}
	credential := NewTokenCredential(token)
	token["auth_token"] = "mutated"
	require.Equal(t, "x", credential.Token["auth_token"])
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(8, time.Hour)

	_, found, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Save(ctx, "a", NewTokenCredential(Token{"auth_token": "1"})))
	require.NoError(t, store.Save(ctx, "b", NewPasswordCredential("id", "secret")))

	loaded, found, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, KindToken, loaded.Kind)

	// mutating the loaded copy must not leak back into the store
	loaded.Token["auth_token"] = "mutated"
	again, _, _ := store.Load(ctx, "a")
	require.Equal(t, "1", again.Token["auth_token"])

	// overwrite
	require.NoError(t, store.Save(ctx, "a", NewTokenCredential(Token{"auth_token": "2"})))
	again, _, _ = store.Load(ctx, "a")
	require.Equal(t, "2", again.Token["auth_token"])

	require.NoError(t, store.Clear(ctx, "a"))
	require.NoError(t, store.Clear(ctx, "a"))
	_, found, _ = store.Load(ctx, "a")
	require.False(t, found)

	other, found, _ := store.Load(ctx, "b")
	require.True(t, found)
	require.Equal(t, "id", other.Identifier)
	require.Equal(t, 1, store.Len())
}

func TestMemoryStoreEviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1, time.Hour)

	require.NoError(t, store.Save(ctx, "a", NewTokenCredential(Token{"auth_token": "1"})))
	require.NoError(t, store.Save(ctx, "b", NewTokenCredential(Token{"auth_token": "2"})))

	_, found, _ := store.Load(ctx, "a")
	require.False(t, found)
	_, found, _ = store.Load(ctx, "b")
	require.True(t, found)
}

func TestSlot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(8, time.Hour)
	slot := NewSlot(store, "session")
	require.Equal(t, "session", slot.SessionId())

	require.NoError(t, slot.Save(ctx, NewPasswordCredential("id", "secret")))
	loaded, found, err := slot.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "secret", loaded.Secret)

	_, found, _ = NewSlot(store, "other").Load(ctx)
	require.False(t, found)

	require.NoError(t, slot.Clear(ctx))
	_, found, _ = slot.Load(ctx)
	require.False(t, found)
}

func newSQLStore(t *testing.T, allowPlaintext bool) (SQLStore, *chrono.FakeImpl, *telemetry.Recorder) {
	t.Helper()

	database, err := db.Config{}.OpenDB(db.Schema)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	clock := chrono.NewFakeImpl(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	recorder := &telemetry.Recorder{}
	store := NewSQLStore(database, clock, recorder, SQLStoreOptions{
		TTL:            time.Hour,
		AllowPlaintext: allowPlaintext,
	})
	return store, clock, recorder
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newSQLStore(t, false)

	_, found, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)

	token := Token{"auth_token": "abc", "ct0": "def"}
	require.NoError(t, store.Save(ctx, "a", NewTokenCredential(token)))

	loaded, found, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, KindToken, loaded.Kind)
	require.Equal(t, token, loaded.Token)

	require.NoError(t, store.Save(ctx, "a", NewTokenCredential(Token{"auth_token": "new"})))
	loaded, _, _ = store.Load(ctx, "a")
	require.Equal(t, Token{"auth_token": "new"}, loaded.Token)

	require.NoError(t, store.Clear(ctx, "a"))
	require.NoError(t, store.Clear(ctx, "a"))
	_, found, err = store.Load(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSQLStoreRefusesPlaintext(t *testing.T) {
	ctx := context.Background()

	store, _, _ := newSQLStore(t, false)
	err := store.Save(ctx, "a", NewPasswordCredential("id", "secret"))
	require.ErrorIs(t, err, ErrPlaintextRefused)
	_, found, _ := store.Load(ctx, "a")
	require.False(t, found)

	store, _, _ = newSQLStore(t, true)
	require.NoError(t, store.Save(ctx, "a", NewPasswordCredential("id", "secret")))
	loaded, found, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, KindPassword, loaded.Kind)
	require.Equal(t, "id", loaded.Identifier)
	require.Equal(t, "secret", loaded.Secret)
}

func TestSQLStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, clock, recorder := newSQLStore(t, false)

	require.NoError(t, store.Save(ctx, "a", NewTokenCredential(Token{"auth_token": "1"})))
	require.NoError(t, store.Save(ctx, "b", NewTokenCredential(Token{"auth_token": "2"})))

	clock.Advance(30 * time.Minute)
	_, found, _ := store.Load(ctx, "a")
	require.True(t, found)

	clock.Advance(time.Hour)
	_, found, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Purge(ctx))
	counts := recorder.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, int64(1), counts[0].Count)
	require.Equal(t, "credentials: sql-store.purge", counts[0].ID)
}
