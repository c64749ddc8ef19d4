package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLGateway persists each collection as a JSON blob in a single
// state(bucket, payload) table. It speaks plain database/sql, so any
// registered driver works; the server wires it to MySQL or SQLite.
type SQLGateway struct {
	db        *sql.DB
	namespace string
}

// NewSQLGateway creates the state table if it does not exist yet.
func NewSQLGateway(db *sql.DB, namespace string) (*SQLGateway, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket VARCHAR(191) PRIMARY KEY,
		payload BLOB NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &SQLGateway{db: db, namespace: namespace}, nil
}

func (g *SQLGateway) Get(ctx context.Context, key string, out any) (bool, error) {
	var raw []byte
	err := g.db.QueryRowContext(ctx,
		`SELECT payload FROM state WHERE bucket = ?`, g.namespace+key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (g *SQLGateway) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	// Delete-then-insert instead of a dialect-specific upsert so the
	// same statements work on MySQL and SQLite. An update-based variant
	// cannot branch on RowsAffected: MySQL counts changed rows, not
	// matched rows, so rewriting an identical payload looks like a miss.
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	bucket := g.namespace + key
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM state WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO state (bucket, payload) VALUES (?, ?)`, bucket, raw); err != nil {
		return fmt.Errorf("insert %s: %w", key, err)
	}
	return tx.Commit()
}
