package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

const setSessionCredential = `-- name: SetSessionCredential :exec
insert into session_credential(session_id, kind, payload, expires_at)
values (?, ?, ?, ?)
on conflict (session_id) do update set
    kind = excluded.kind,
    payload = excluded.payload,
    expires_at = excluded.expires_at
`

type SetSessionCredentialParams struct {
	SessionID string
	Kind      int64
	Payload   string
	ExpiresAt int64
}

func (q *Queries) SetSessionCredential(ctx context.Context, arg SetSessionCredentialParams) error {
	_, err := q.db.ExecContext(ctx, setSessionCredential,
		arg.SessionID,
		arg.Kind,
		arg.Payload,
		arg.ExpiresAt,
	)
	return err
}

const getSessionCredential = `-- name: GetSessionCredential :one
select session_id, kind, payload, expires_at from session_credential
where session_id = ?
`

func (q *Queries) GetSessionCredential(ctx context.Context, sessionID string) (SessionCredential, error) {
	row := q.db.QueryRowContext(ctx, getSessionCredential, sessionID)
	var i SessionCredential
	err := row.Scan(
		&i.SessionID,
		&i.Kind,
		&i.Payload,
		&i.ExpiresAt,
	)
	return i, err
}

const deleteSessionCredential = `-- name: DeleteSessionCredential :exec
delete from session_credential
where session_id = ?
`

func (q *Queries) DeleteSessionCredential(ctx context.Context, sessionID string) error {
	_, err := q.db.ExecContext(ctx, deleteSessionCredential, sessionID)
	return err
}

const deleteSessionCredentialsBefore = `-- name: DeleteSessionCredentialsBefore :execrows
delete from session_credential
where expires_at < ?
`

func (q *Queries) DeleteSessionCredentialsBefore(ctx context.Context, expiresAt int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteSessionCredentialsBefore, expiresAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
