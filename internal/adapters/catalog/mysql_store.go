package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/core"
)

// MySQLStore keeps the catalog snapshot in MySQL, for deployments that
// share one catalog cache across hosts.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects and ensures the schema exists.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS newsgroups (
			name VARCHAR(512) PRIMARY KEY,
			high BIGINT NOT NULL,
			low  BIGINT NOT NULL,
			flag VARCHAR(16) NOT NULL,
			pos  INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_meta (
			meta_key   VARCHAR(64) PRIMARY KEY,
			meta_value VARCHAR(255) NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// Load reads the snapshot; an uninitialized table set is a cache miss.
func (st *MySQLStore) Load(ctx context.Context) (*core.Snapshot, error) {
	var fetchedAt string
	err := st.db.QueryRowContext(ctx,
		`SELECT meta_value FROM catalog_meta WHERE meta_key = 'fetched_at'`).Scan(&fetchedAt)
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
func (st *MySQLStore) Save(ctx context.Context, snap *core.Snapshot) error {
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
		INSERT INTO catalog_meta (meta_key, meta_value) VALUES ('fetched_at', ?)
		ON DUPLICATE KEY UPDATE meta_value = VALUES(meta_value)
	`, strconv.FormatInt(snap.FetchedAt.Unix(), 10))
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	return tx.Commit()
}

// Close releases the connection pool.
func (st *MySQLStore) Close() error {
	return st.db.Close()
}
