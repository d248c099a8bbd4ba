package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"tweetexport-backend/internal/components/assert"
	"tweetexport-backend/internal/components/chrono"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/service"

	"github.com/google/uuid"
)

const (
	report_store_create  = "store.create"
	report_store_cleanup = "store.cleanup"
)

var ErrNotFound = errors.New("export not found")

type Config struct {
	// Directory holds the generated files, it is created if missing.
	Directory        string `json:"directory"`
	RetentionMinutes int    `json:"retention_minutes"`
}

// File describes a generated export.
type File struct {
	ID        string
	CreatedAt time.Time
	Rows      int
}

// DownloadName is the file name offered to the browser.
func (f File) DownloadName() string {
	return fmt.Sprintf("tweets_%s.csv", f.CreatedAt.Format("20060102_150405"))
}

// Store keeps exports as flat files named by a random id.
type Store struct {
	dir       string
	retention time.Duration
	time      chrono.TimeAPI
	tel       telemetry.API
}

func NewStore(config Config, time chrono.TimeAPI, tel telemetry.API) (Store, error) {
	assert.NotEmptyStr(config.Directory, "export directory")
	assert.NotNil(time, "time")
	assert.NotNil(tel, "tel")

	err := os.MkdirAll(config.Directory, 0700)
	if err != nil {
		return Store{}, err
	}

	return Store{
		dir:       config.Directory,
		retention: retentionOf(config.RetentionMinutes),
		time:      time,
		tel:       telemetry.NewScopedAPI("export", tel),
	}, nil
}

func retentionOf(minutes int) time.Duration {
	if minutes <= 0 {
		return time.Hour
	}
	return time.Duration(minutes) * time.Minute
}

func (s Store) path(id string) string {
	return filepath.Join(s.dir, id+".csv")
}

// Create writes rows to a new export file.
func (s Store) Create(rows []service.Row) (File, error) {
	id := uuid.NewString()

	tmp, err := os.CreateTemp(s.dir, ".export-*")
	if err != nil {
		s.tel.ReportBroken(report_store_create, err)
		return File{}, err
	}
	defer os.Remove(tmp.Name())

	err = Write(tmp, rows)
	if err == nil {
		err = tmp.Close()
	} else {
		tmp.Close()
	}
	if err != nil {
		s.tel.ReportBroken(report_store_create, fmt.Errorf("write: %w", err))
		return File{}, err
	}

	err = os.Rename(tmp.Name(), s.path(id))
	if err != nil {
		s.tel.ReportBroken(report_store_create, fmt.Errorf("rename: %w", err))
		return File{}, err
	}

	// expiry is judged by mtime, keep it on the same clock as everything else
	now := s.time.Now()
	err = os.Chtimes(s.path(id), now, now)
	if err != nil {
		s.tel.ReportWarning(report_store_create, fmt.Errorf("chtimes: %w", err))
	}

	return File{
		ID:        id,
		CreatedAt: now,
		Rows:      len(rows),
	}, nil
}

// Open returns ErrNotFound for malformed ids and missing or expired files.
func (s Store) Open(id string) (*os.File, error) {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return nil, ErrNotFound
	}

	path := s.path(id)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.expired(info.ModTime()) {
		return nil, ErrNotFound
	}

	return os.Open(path)
}

func (s Store) Remove(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s Store) expired(modified time.Time) bool {
	return s.time.Now().Sub(modified) > s.retention
}

// Cleanup deletes every export older than the retention period and returns how
// many were deleted.
//
// note: cron job point
func (s Store) Cleanup(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.tel.ReportBroken(report_store_cleanup, err)
		return 0, err
	}

	deleted := 0
	errlist := []error{}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !s.expired(info.ModTime()) {
			continue
		}
		err = os.Remove(filepath.Join(s.dir, entry.Name()))
		if err != nil && !os.IsNotExist(err) {
			errlist = append(errlist, err)
			continue
		}
		deleted++
	}

	s.tel.ReportCount(report_store_cleanup, int64(deleted))
	err = errors.Join(errlist...)
	if err != nil {
		s.tel.ReportBroken(report_store_cleanup, err)
	}
	return deleted, err
}

// ScheduleCleanup runs Cleanup on cron every few minutes.
func (s Store) ScheduleCleanup(ctx context.Context, cron chrono.CronAPI) error {
	return cron.Cron("@every 5m", func() {
		s.Cleanup(ctx)
	})
}
