package db

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects where the database lives. A non-empty Url (libsql://, https://)
// is opened with the libsql client, otherwise File is opened with the local sqlite
// driver, where an empty File means an in-memory database.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the database and applies schema.
func (config Config) OpenDB(schema string) (*sql.DB, error) {
	var database *sql.DB
	var err error

	switch {
	case config.Url != "":
		values := url.Values{}
		if config.AuthToken != "" {
			values.Add("authToken", config.AuthToken)
		}
		database, err = sql.Open("libsql", config.Url+"?"+values.Encode())
	case config.File == "" || config.File == ":memory:":
		database, err = sql.Open("sqlite", ":memory:")
		if err == nil {
			// every pooled connection would otherwise get its own empty database
			database.SetMaxOpenConns(1)
		}
	default:
		database, err = sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", config.File))
	}
	if err != nil {
		return nil, err
	}

	_, err = database.Exec(schema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return database, nil
}
