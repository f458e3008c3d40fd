package db

import (
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// OpenMySQL connects to MySQL and creates the sessions table if needed.
func OpenMySQL(user, password, host, dbName string) (*sql.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = dbName
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "mysql ping")
	}

	createSessionsTable := `CREATE TABLE IF NOT EXISTS sessions (
		id VARCHAR(64) PRIMARY KEY,
		username VARCHAR(255) NOT NULL,
		access_token TEXT NOT NULL,
		id_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		token_expires_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		INDEX idx_sessions_expires_at (expires_at)
	) ENGINE=InnoDB;`

	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create sessions table")
	}

	return db, nil
}
