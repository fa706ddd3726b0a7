package db

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var ErrUnsupportedDriver = errors.New("unsupported database driver")

type pool struct {
	maxOpen  int
	maxIdle  int
	lifetime time.Duration
}

// The sqlite store has a single writer so the queue never sees SQLITE_BUSY.
var pools = map[string]pool{
	"sqlite": {maxOpen: 1, maxIdle: 1},
	"pgx":    {maxOpen: 25, maxIdle: 5, lifetime: 5 * time.Minute},
}

var sqlitePragmas = map[string]string{
	"busy_timeout": "busy_timeout(5000)",
	"foreign_keys": "foreign_keys(1)",
	"journal_mode": "journal_mode(WAL)",
}

// Init opens the local store that backs the participation cache and the
// offline submission queue.
func Init(driver, connection string) (*sqlx.DB, error) {
	p, ok := pools[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	if driver == "sqlite" {
		file, _, _ := strings.Cut(connection, "?")
		if file != ":memory:" && !strings.HasPrefix(file, "file:") {
			if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		connection = sqliteDSN(connection)
	}

	db, err := sqlx.Connect(driver, connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.lifetime)

	slog.Info("database connected", "driver", driver, "max_open", p.maxOpen)
	return db, nil
}

// sqliteDSN adds the pragmas every connection needs unless the caller
// already set them. Pragmas go on the DSN so pooled reconnects keep them.
func sqliteDSN(connection string) string {
	file, query, _ := strings.Cut(connection, "?")
	values, err := url.ParseQuery(query)
	if err != nil {
		return connection
	}

	set := map[string]bool{}
	for _, p := range values["_pragma"] {
		name, _, _ := strings.Cut(p, "(")
		set[strings.ToLower(strings.TrimSpace(name))] = true
	}
	for _, name := range []string{"busy_timeout", "foreign_keys", "journal_mode"} {
		if !set[name] {
			values.Add("_pragma", sqlitePragmas[name])
		}
	}
	return file + "?" + values.Encode()
}

func Close(db *sqlx.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
