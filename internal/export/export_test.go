package export

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"tweetexport-backend/internal/components/chrono"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/service"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testRows = []service.Row{
	{
		Keyword:    "golang",
		Time:       "2024-03-09 07:30:00",
		UserName:   "Gopher",
		ScreenName: "golang",
		Text:       "multi\nline, with \"quotes\"",
		TweetURL:   "https://twitter.com/golang/status/1",
		TweetID:    "1",
		Extra:      []service.Field{{Name: "likes", Value: "10"}},
	},
	{
		Keyword:  "golang",
		Time:     "N/A",
		UserName: "日本語ユーザー",
		Text:     "こんにちは",
		TweetID:  "2",
		Extra:    []service.Field{{Name: "views", Value: "7"}, {Name: "likes", Value: "1"}},
	},
	{
		Keyword:    "rust",
		Time:       "2024-03-09 07:31:00",
		UserName:   "Ferris",
		ScreenName: "rustlang",
		Text:       "",
		TweetURL:   "https://twitter.com/rustlang/status/3",
		TweetID:    "3",
	},
}

func TestWriteColumnOrder(t *testing.T) {
	buff := bytes.NewBuffer(nil)
	require.NoError(t, Write(buff, testRows))

	require.True(t, bytes.HasPrefix(buff.Bytes(), bom))
	firstLine := strings.SplitN(strings.TrimPrefix(buff.String(), string(bom)), "\n", 2)[0]
	require.Equal(t, "keyword,time,user_name,screen_name,text,tweet_url,tweet_id,likes,views", firstLine)

	require.Equal(t,
		[]string{"keyword", "time", "user_name", "screen_name", "text", "tweet_url", "tweet_id", "likes", "views"},
		Columns(testRows),
	)
}

func TestRoundTrip(t *testing.T) {
	buff := bytes.NewBuffer(nil)
	require.NoError(t, Write(buff, testRows))

	rows, err := Read(buff)
	require.NoError(t, err)

	expected := append([]service.Row{}, testRows...)
	// columns are ordered by first appearance, not by the order inside a row
	expected[1].Extra = []service.Field{{Name: "likes", Value: "1"}, {Name: "views", Value: "7"}}
	if diff := cmp.Diff(expected, rows); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteEmpty(t *testing.T) {
	buff := bytes.NewBuffer(nil)
	require.NoError(t, Write(buff, nil))

	rows, err := Read(buff)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestReadRejectsForeignHeader(t *testing.T) {
	_, err := Read(strings.NewReader("a,b,c\n1,2,3\n"))
	require.Error(t, err)

	_, err = Read(strings.NewReader(""))
	require.Error(t, err)
}

func newStore(t *testing.T) (Store, *chrono.FakeImpl, *telemetry.Recorder) {
	t.Helper()
	clock := chrono.NewFakeImpl(time.Now().Truncate(time.Second))
	recorder := &telemetry.Recorder{}
	store, err := NewStore(Config{
		Directory:        filepath.Join(t.TempDir(), "exports"),
		RetentionMinutes: 30,
	}, clock, recorder)
	require.NoError(t, err)
	return store, clock, recorder
}

func TestStoreCreateOpen(t *testing.T) {
	store, clock, _ := newStore(t)

	file, err := store.Create(testRows)
	require.NoError(t, err)
	require.Equal(t, 3, file.Rows)
	require.Equal(t, clock.Now(), file.CreatedAt)
	require.Equal(t, "tweets_"+clock.Now().Format("20060102_150405")+".csv", file.DownloadName())

	f, err := store.Open(file.ID)
	require.NoError(t, err)
	defer f.Close()
	contents, err := io.ReadAll(f)
	require.NoError(t, err)

	rows, err := Read(bytes.NewReader(contents))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	_, err = store.Open("../../etc/passwd")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Open("00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Remove(file.ID))
	_, err = store.Open(file.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Remove(file.ID))
}

func TestStoreCleanup(t *testing.T) {
	store, clock, recorder := newStore(t)

	old, err := store.Create(testRows)
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	recent, err := store.Create(testRows)
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)

	// the old export is past retention even before the cleanup runs
	_, err = store.Open(old.ID)
	require.ErrorIs(t, err, ErrNotFound)

	deleted, err := store.Cleanup(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	f, err := store.Open(recent.ID)
	require.NoError(t, err)
	f.Close()

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	counts := recorder.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, int64(1), counts[0].Count)
}

type fakeCron struct {
	specs     []string
	callbacks []func()
}

func (c *fakeCron) Cron(spec string, callback func()) error {
	c.specs = append(c.specs, spec)
	c.callbacks = append(c.callbacks, callback)
	return nil
}

func TestScheduleCleanup(t *testing.T) {
	store, clock, _ := newStore(t)
	cron := &fakeCron{}
	require.NoError(t, store.ScheduleCleanup(context.Background(), cron))
	require.Equal(t, []string{"@every 5m"}, cron.specs)

	file, err := store.Create(testRows)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	cron.callbacks[0]()

	_, err = os.Stat(filepath.Join(store.dir, file.ID+".csv"))
	require.True(t, os.IsNotExist(err))
}
