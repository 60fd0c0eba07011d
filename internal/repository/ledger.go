package repository

import (
	"context"
	"errors"

	"fsanano/answer-book/internal/model"
)

// ErrOrderExists is returned by RecordOrder when the order id is already taken.
var ErrOrderExists = errors.New("order already exists")

// Ledger persists user credit balances and the append-only order log.
//
// Every call is a separate round-trip; callers composing reads and writes get no
// atomicity across calls.
type Ledger interface {
	// EnsureSchema creates the users and orders tables if they are missing.
	EnsureSchema(ctx context.Context) error
	// GetOrInitBalance returns the stored balance, inserting a zero balance first if
	// the user has no record. An existing balance is never reset.
	GetOrInitBalance(ctx context.Context, userID string) (int, error)
	// AdjustBalance adds delta to the stored balance. A missing user is a silent no-op.
	AdjustBalance(ctx context.Context, userID string, delta int) error
	// RecordOrder appends an order row.
	RecordOrder(ctx context.Context, order model.Order) error
	Close() error
}
