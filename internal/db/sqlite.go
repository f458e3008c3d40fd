package db

import (
	"database/sql"

	_ "github.com/glebarez/go-sqlite"
	"github.com/pkg/errors"
)

// OpenSQLite opens (or creates) a SQLite database file and the sessions
// table. Timestamps are stored as unix seconds. ":memory:" is accepted for tests.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	createSessionsTable := `CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		access_token TEXT NOT NULL,
		id_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		token_expires_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		created_at BIGINT NOT NULL
	);`

	createExpiryIndex := `CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at);`

	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create sessions table")
	}
	if _, err := db.Exec(createExpiryIndex); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create sessions index")
	}

	return db, nil
}
