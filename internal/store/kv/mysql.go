package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQL stores keys as rows of a single table.
type MySQL struct {
	db *sql.DB
}

// OpenMySQL connects with dsn and makes sure the kv_store table exists.
func OpenMySQL(ctx context.Context, dsn string) (*MySQL, error) {
	if dsn == "" {
		return nil, errors.New("mysql store: empty dsn")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &MySQL{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQL) migrate(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS kv_store (
  k VARCHAR(191) NOT NULL PRIMARY KEY,
  v LONGTEXT NOT NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *MySQL) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv_store WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select: %w", err)
	}
	return v, true, nil
}

func (s *MySQL) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_store (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)`,
		key, value)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// CompareAndSwap locks the row for the duration of a transaction. A missing
// row is inserted only when old is empty; a concurrent insert of the same key
// surfaces as a failed swap through the primary key.
func (s *MySQL) CompareAndSwap(ctx context.Context, key, old, new string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var cur string
	err = tx.QueryRowContext(ctx, `SELECT v FROM kv_store WHERE k = ? FOR UPDATE`, key).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if old != "" {
			return false, nil
		}
		res, err := tx.ExecContext(ctx, `INSERT IGNORE INTO kv_store (k, v) VALUES (?, ?)`, key, new)
		if err != nil {
			return false, fmt.Errorf("insert: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return false, nil
		}
	case err != nil:
		return false, fmt.Errorf("select: %w", err)
	default:
		if cur != old {
			return false, nil
		}
		if _, err := tx.ExecContext(ctx, `UPDATE kv_store SET v = ? WHERE k = ?`, new, key); err != nil {
			return false, fmt.Errorf("update: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (s *MySQL) Close() error { return s.db.Close() }
