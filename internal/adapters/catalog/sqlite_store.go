package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/core"
)

// SQLiteStore keeps the catalog snapshot in a SQLite database. Save
// replaces the whole snapshot inside a transaction so readers never see a
// partially-written catalog.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed initializes) the database.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS newsgroups (
			name TEXT PRIMARY KEY,
			high INTEGER NOT NULL,
			low  INTEGER NOT NULL,
			flag TEXT NOT NULL,
			pos  INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS catalog_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Load reads the snapshot; an uninitialized or unreadable database is a
// cache miss.
func (st *SQLiteStore) Load(ctx context.Context) (*core.Snapshot, error) {
	var fetchedAt string
	err := st.db.QueryRowContext(ctx,
		`SELECT value FROM catalog_meta WHERE key = 'fetched_at'`).Scan(&fetchedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			st.logger.Warn("Catalog metadata unreadable, treating as missing", zap.Error(err))
		}
		return &core.Snapshot{}, nil
	}
	sec, err := strconv.ParseInt(fetchedAt, 10, 64)
	if err != nil {
		st.logger.Warn("Catalog metadata corrupt, treating as missing", zap.Error(err))
		return &core.Snapshot{}, nil
	}

	rows, err := st.db.QueryContext(ctx,
		`SELECT name, high, low, flag FROM newsgroups ORDER BY pos`)
	if err != nil {
		st.logger.Warn("Catalog rows unreadable, treating as missing", zap.Error(err))
		return &core.Snapshot{}, nil
	}
	defer rows.Close()

	snap := &core.Snapshot{FetchedAt: time.Unix(sec, 0).UTC()}
	for rows.Next() {
		var g core.NewsgroupEntry
		if err := rows.Scan(&g.Name, &g.High, &g.Low, &g.Flag); err != nil {
			st.logger.Warn("Catalog row corrupt, treating as missing", zap.Error(err))
			return &core.Snapshot{}, nil
		}
		snap.Groups = append(snap.Groups, g)
	}
	if err := rows.Err(); err != nil {
		st.logger.Warn("Catalog scan failed, treating as missing", zap.Error(err))
		return &core.Snapshot{}, nil
	}
	return snap, nil
}

// Save replaces the stored snapshot transactionally.
func (st *SQLiteStore) Save(ctx context.Context, snap *core.Snapshot) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM newsgroups`); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO newsgroups (name, high, low, flag, pos) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, g := range snap.Groups {
		if _, err := stmt.ExecContext(ctx, g.Name, g.High, g.Low, g.Flag, i); err != nil {
			return fmt.Errorf("failed to insert group %s: %w", g.Name, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO catalog_meta (key, value) VALUES ('fetched_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.FormatInt(snap.FetchedAt.Unix(), 10))
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	return tx.Commit()
}

// Close releases the database handle.
func (st *SQLiteStore) Close() error {
	return st.db.Close()
}
