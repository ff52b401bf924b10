package scans

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const scanSchema = `
CREATE TABLE IF NOT EXISTS scan_events (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	id      TEXT    NOT NULL UNIQUE,
	payload BLOB    NOT NULL
);
`

// SQLiteConfig configures the on-device scan store
type SQLiteConfig struct {
	// Path is the database file. Created if it does not exist.
	Path string

	// PoolSize is the number of connections. Defaults to 2.
	PoolSize int

	// SynchronousOff trades crash durability for write speed. Only for tests
	// and throwaway devices.
	SynchronousOff bool
}

// SQLiteStore keeps queued scans in a local SQLite database in WAL mode.
// A completed Insert is on disk before it returns.
type SQLiteStore struct {
	pool *sqlitex.Pool
}

// OpenSQLiteStore opens (or creates) the scan database at cfg.Path
func OpenSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("scans: store path is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}

	synchronous := "PRAGMA synchronous = FULL"
	if cfg.SynchronousOff {
		synchronous = "PRAGMA synchronous = OFF"
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		synchronous,
		"PRAGMA busy_timeout = 5000",
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			for _, pragma := range pragmas {
				if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
					return fmt.Errorf("executing %q: %w", pragma, err)
				}
			}
			return sqlitex.ExecuteScript(conn, scanSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening scan store %s: %w", cfg.Path, err)
	}
	return &SQLiteStore{pool: pool}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, ev ScanEvent) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	return sqlitex.Execute(conn,
		`INSERT OR IGNORE INTO scan_events (id, payload) VALUES (?, ?)`,
		&sqlitex.ExecOptions{Args: []any{ev.ID.String(), payload}},
	)
}

func (s *SQLiteStore) Delete(ctx context.Context, ids []uuid.UUID) (err error) {
	if len(ids) == 0 {
		return nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer endTransaction(&err)

	for _, id := range ids {
		if err = sqlitex.Execute(conn,
			`DELETE FROM scan_events WHERE id = ?`,
			&sqlitex.ExecOptions{Args: []any{id.String()}},
		); err != nil {
			return fmt.Errorf("delete scan %s: %w", id, err)
		}
	}
	return nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	return sqlitex.ExecuteTransient(conn, `DELETE FROM scan_events`, nil)
}

func (s *SQLiteStore) List(ctx context.Context) ([]ScanEvent, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var events []ScanEvent
	err = sqlitex.Execute(conn,
		`SELECT payload FROM scan_events ORDER BY seq`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				payload := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, payload)
				ev, err := decodeEvent(payload)
				if err != nil {
					return err
				}
				events = append(events, ev)
				return nil
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Close closes every connection. Queued scans stay on disk.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}
