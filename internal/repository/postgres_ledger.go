package repository

import (
	"context"
	"errors"
	"fmt"

	"fsanano/answer-book/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		credits INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id   TEXT PRIMARY KEY,
		user_id    TEXT,
		amount     DOUBLE PRECISION,
		status     TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

type PostgresLedger struct {
	db *pgxpool.Pool
}

func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// RunAtomic executes fn within a transaction carried on the context.
func (r *PostgresLedger) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// no-op after a successful commit
	defer tx.Rollback(ctx)

	ctx = context.WithValue(ctx, txKey{}, tx)

	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type txKey struct{}

func (r *PostgresLedger) getExecutor(ctx context.Context) PgxExecutor {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.db
}

// PgxExecutor is an interface that matches both *pgxpool.Pool and pgx.Tx
type PgxExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PostgresLedger) EnsureSchema(ctx context.Context) error {
	return r.RunAtomic(ctx, func(ctx context.Context) error {
		for _, stmt := range postgresSchema {
			if _, err := r.getExecutor(ctx).Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresLedger) GetOrInitBalance(ctx context.Context, userID string) (int, error) {
	var credits int
	err := r.getExecutor(ctx).QueryRow(ctx, `
		INSERT INTO users (user_id, credits) VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET credits = users.credits
		RETURNING credits
	`, userID).Scan(&credits)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return credits, nil
}

func (r *PostgresLedger) AdjustBalance(ctx context.Context, userID string, delta int) error {
	_, err := r.getExecutor(ctx).Exec(ctx, "UPDATE users SET credits = credits + $1 WHERE user_id = $2", delta, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	return nil
}

func (r *PostgresLedger) RecordOrder(ctx context.Context, order model.Order) error {
	_, err := r.getExecutor(ctx).Exec(ctx,
		"INSERT INTO orders (order_id, user_id, amount, status) VALUES ($1, $2, $3, $4)",
		order.ID, order.UserID, order.Amount, order.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("failed to create order %s: %w", order.ID, ErrOrderExists)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *PostgresLedger) Close() error {
	r.db.Close()
	return nil
}
