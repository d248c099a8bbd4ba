package credentials

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"tweetexport-backend/internal/components/assert"
	"tweetexport-backend/internal/components/chrono"
	"tweetexport-backend/internal/components/telemetry"
	"tweetexport-backend/internal/db"
)

const (
	report_db_query   = "db.query"
	report_sql_decode = "sql-store.decode"
	report_sql_purge  = "sql-store.purge"
)

type SQLStoreOptions struct {
	TTL time.Duration
	// AllowPlaintext permits persisting identifier/secret credentials, it should
	// only be enabled for the re-auth-per-request mode.
	AllowPlaintext bool
}

// SQLStore keeps credentials in the session_credential table so sessions
// survive restarts.
type SQLStore struct {
	qry     *db.Queries
	makeTx  db.MakeTx
	time    chrono.TimeAPI
	tel     telemetry.API
	options SQLStoreOptions
}

func NewSQLStore(database *sql.DB, time chrono.TimeAPI, tel telemetry.API, options SQLStoreOptions) SQLStore {
	assert.NotNil(database, "database")
	assert.NotNil(time, "time")
	assert.NotNil(tel, "tel")

	return SQLStore{
		qry:     db.New(database),
		makeTx:  db.NewMakeTx(database),
		time:    time,
		tel:     telemetry.NewScopedAPI("credentials", tel),
		options: options,
	}
}

type record struct {
	Token      Token  `json:"token,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Secret     string `json:"secret,omitempty"`
}

func (s SQLStore) Save(ctx context.Context, sessionId string, credential Credential) error {
	if credential.Kind == KindPassword && !s.options.AllowPlaintext {
		return ErrPlaintextRefused
	}

	payload, err := json.Marshal(record{
		Token:      credential.Token,
		Identifier: credential.Identifier,
		Secret:     credential.Secret,
	})
	if err != nil {
		return err
	}

	err = s.qry.SetSessionCredential(ctx, db.SetSessionCredentialParams{
		SessionID: sessionId,
		Kind:      int64(credential.Kind),
		Payload:   string(payload),
		ExpiresAt: s.time.Now().Add(s.options.TTL).Unix(),
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "SetSessionCredential")
		return err
	}
	return nil
}

func (s SQLStore) Load(ctx context.Context, sessionId string) (Credential, bool, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return Credential{}, false, err
	}
	defer discard()

	row, err := tx.GetSessionCredential(ctx, sessionId)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, false, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetSessionCredential")
		return Credential{}, false, err
	}

	if row.ExpiresAt < s.time.Now().Unix() {
		err = tx.DeleteSessionCredential(ctx, sessionId)
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "DeleteSessionCredential")
			return Credential{}, false, err
		}
		return Credential{}, false, commit()
	}

	var stored record
	err = json.Unmarshal([]byte(row.Payload), &stored)
	if err != nil {
		// an unreadable row is treated like a missing one, the user just logs in again
		s.tel.ReportWarning(report_sql_decode, err)
		return Credential{}, false, nil
	}

	credential := Credential{
		Kind:       Kind(row.Kind),
		Token:      stored.Token,
		Identifier: stored.Identifier,
		Secret:     stored.Secret,
	}
	return credential, credential.Valid(), commit()
}

func (s SQLStore) Clear(ctx context.Context, sessionId string) error {
	err := s.qry.DeleteSessionCredential(ctx, sessionId)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "DeleteSessionCredential")
		return err
	}
	return nil
}

// Purge deletes every expired credential, it is meant to be run on a cron job.
//
// note: cron job point
func (s SQLStore) Purge(ctx context.Context) error {
	deleted, err := s.qry.DeleteSessionCredentialsBefore(ctx, s.time.Now().Unix())
	if err != nil {
		s.tel.ReportBroken(report_sql_purge, err)
		return err
	}
	s.tel.ReportCount(report_sql_purge, deleted)
	return nil
}
