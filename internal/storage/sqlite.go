//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"postbot/internal/poster"
	logx "postbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendHistory(ctx context.Context, e HistoryEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	accounts, err := json.Marshal(e.Accounts)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history(at, text, accounts) VALUES(?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.Text, string(accounts),
	); err != nil {
		return err
	}
	// FIFO cap: evict the oldest rows beyond the retention limit.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`,
		HistoryMaxEntries,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) ReadHistory(ctx context.Context) ([]HistoryEntry, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT at, text, accounts FROM history ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var at, text, accounts string
		if err := rows.Scan(&at, &text, &accounts); err != nil {
			return nil, err
		}
		e := HistoryEntry{Text: text}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t
		}
		var results []poster.Result
		if err := json.Unmarshal([]byte(accounts), &results); err != nil {
			s.log.Warn("skipping undecodable history row", logx.Err(err))
			continue
		}
		e.Accounts = results
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) EnqueueFailed(ctx context.Context, p FailedPost) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if p.At.IsZero() {
		p.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO failed_posts(at, account_number, text) VALUES(?,?,?)`,
		p.At.Format(time.RFC3339Nano), p.AccountNumber, p.Text,
	)
	return err
}

func (s *sqliteStore) ListFailed(ctx context.Context) ([]FailedPost, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx, `SELECT at, account_number, text FROM failed_posts ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FailedPost
	for rows.Next() {
		var at, text string
		var account int
		if err := rows.Scan(&at, &account, &text); err != nil {
			return nil, err
		}
		p := FailedPost{AccountNumber: account, Text: text}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			p.At = t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) RemoveFailed(ctx context.Context, accountNumber int, text string) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM failed_posts WHERE account_number = ? AND text = ?`,
		accountNumber, text,
	)
	return err
}
