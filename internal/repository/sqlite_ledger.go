package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fsanano/answer-book/internal/model"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (user_id TEXT PRIMARY KEY, credits INTEGER DEFAULT 0)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id   TEXT PRIMARY KEY,
		user_id    TEXT,
		amount     REAL,
		status     TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SQLiteLedger keeps the ledger in a single local database file.
type SQLiteLedger struct {
	db *sql.DB
}

func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db}
}

// OpenSQLiteLedger opens (or creates) the database file at path.
func OpenSQLiteLedger(ctx context.Context, path string) (*SQLiteLedger, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	// one writer at a time; sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping ledger %s: %w", path, err)
	}
	return &SQLiteLedger{db: db}, nil
}

func (r *SQLiteLedger) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteLedger) GetOrInitBalance(ctx context.Context, userID string) (int, error) {
	var credits int
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (user_id, credits) VALUES (?, 0)
		ON CONFLICT (user_id) DO UPDATE SET credits = credits
		RETURNING credits
	`, userID).Scan(&credits)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return credits, nil
}

func (r *SQLiteLedger) AdjustBalance(ctx context.Context, userID string, delta int) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET credits = credits + ? WHERE user_id = ?", delta, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	return nil
}

func (r *SQLiteLedger) RecordOrder(ctx context.Context, order model.Order) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO orders (order_id, user_id, amount, status) VALUES (?, ?, ?, ?)",
		order.ID, order.UserID, order.Amount, order.Status)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("failed to create order %s: %w", order.ID, ErrOrderExists)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *SQLiteLedger) Close() error {
	return r.db.Close()
}

func isConstraintViolation(err error) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	// extended codes carry the primary code in the low byte
	return liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
