package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"fsanano/answer-book/internal/model"
	"fsanano/answer-book/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(context.Background()))

	ledger := repository.NewPostgresLedger(pool)
	require.NoError(t, ledger.EnsureSchema(context.Background()))

	// Clean state
	_, err = pool.Exec(context.Background(), "TRUNCATE TABLE orders, users")
	require.NoError(t, err)

	return pool
}

func TestPostgresLedger_Integration(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	ledger := repository.NewPostgresLedger(pool)

	// Idempotent on a populated database
	require.NoError(t, ledger.EnsureSchema(ctx))

	credits, err := ledger.GetOrInitBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, credits)

	require.NoError(t, ledger.AdjustBalance(ctx, "alice", 30))
	require.NoError(t, ledger.AdjustBalance(ctx, "alice", -1))
	require.NoError(t, ledger.AdjustBalance(ctx, "nobody", 10))

	credits, err = ledger.GetOrInitBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 29, credits)

	credits, err = ledger.GetOrInitBalance(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, credits)

	order := model.Order{ID: "TRUST-654321", UserID: "alice", Amount: 20, Status: model.OrderStatusTrustPaid}
	require.NoError(t, ledger.RecordOrder(ctx, order))
	err = ledger.RecordOrder(ctx, order)
	assert.True(t, errors.Is(err, repository.ErrOrderExists))

	var status string
	require.NoError(t, pool.QueryRow(ctx, "SELECT status FROM orders WHERE order_id = $1", order.ID).Scan(&status))
	assert.Equal(t, model.OrderStatusTrustPaid, status)
}
