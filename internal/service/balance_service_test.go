package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"fsanano/answer-book/internal/model"
	"fsanano/answer-book/internal/repository"
	"fsanano/answer-book/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newLedger(t *testing.T) *repository.SQLiteLedger {
	t.Helper()
	ledger, err := repository.OpenSQLiteLedger(context.Background(), filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	require.NoError(t, ledger.EnsureSchema(context.Background()))
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func seed(t *testing.T, ledger repository.Ledger, userID string, credits int) {
	t.Helper()
	_, err := ledger.GetOrInitBalance(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, ledger.AdjustBalance(context.Background(), userID, credits))
}

func TestReadBalance_InitializesOnce(t *testing.T) {
	svc := service.NewBalanceService(newLedger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		credits, err := svc.ReadBalance(ctx, "new-user")
		require.NoError(t, err)
		assert.Equal(t, 0, credits)
	}
}

func TestSpendOneCredit(t *testing.T) {
	ledger := newLedger(t)
	svc := service.NewBalanceService(ledger)
	ctx := context.Background()
	seed(t, ledger, "alice", 2)

	ok, before, err := svc.SpendOneCredit(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, before, "returns the balance read before the debit")

	after, err := svc.ReadBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, after)
}

func TestSpendOneCredit_EmptyBalance(t *testing.T) {
	ledger := newLedger(t)
	svc := service.NewBalanceService(ledger)
	ctx := context.Background()

	ok, balance, err := svc.SpendOneCredit(ctx, "broke")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, balance)

	// Already negative balances are reported unchanged
	seed(t, ledger, "overdrawn", -1)
	ok, balance, err = svc.SpendOneCredit(ctx, "overdrawn")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, -1, balance)

	credits, err := svc.ReadBalance(ctx, "overdrawn")
	require.NoError(t, err)
	assert.Equal(t, -1, credits)
}

func TestPointsFor(t *testing.T) {
	cases := []struct {
		amount float64
		points int
	}{
		{-5, 10},
		{0, 10},
		{10, 10},
		{14.99, 10},
		{15, 30},
		{20, 30},
		{1000, 30},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.points, service.PointsFor(tc.amount), "amount %.2f", tc.amount)
	}
}

func TestGrantCredits(t *testing.T) {
	svc := service.NewBalanceService(newLedger(t))
	ctx := context.Background()

	points, err := svc.GrantCredits(ctx, "bob", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, points)

	points, err = svc.GrantCredits(ctx, "bob", 15)
	require.NoError(t, err)
	assert.Equal(t, 30, points)

	credits, err := svc.ReadBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 40, credits)
}

func TestTrustPay(t *testing.T) {
	ledger := newLedger(t)
	svc := service.NewBalanceService(ledger).WithOrderIDs(func() string { return "TRUST-424242" })
	ctx := context.Background()

	res, err := svc.TrustPay(ctx, "carol", 20)
	require.NoError(t, err)
	assert.Equal(t, service.PayResult{OrderID: "TRUST-424242", PointsGranted: 30, NewBalance: 30}, res)

	// Same id again collides on the primary key and grants nothing
	_, err = svc.TrustPay(ctx, "carol", 20)
	assert.True(t, errors.Is(err, repository.ErrOrderExists))

	credits, err := svc.ReadBalance(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, 30, credits)
}

func TestNewTrustOrderID(t *testing.T) {
	pattern := regexp.MustCompile(`^TRUST-[1-9][0-9]{5}$`)
	for i := 0; i < 1000; i++ {
		assert.Regexp(t, pattern, service.NewTrustOrderID())
	}
}

// barrierLedger holds every balance read until `parties` reads have happened.
type barrierLedger struct {
	repository.Ledger
	wg sync.WaitGroup
}

func newBarrierLedger(inner repository.Ledger, parties int) *barrierLedger {
	b := &barrierLedger{Ledger: inner}
	b.wg.Add(parties)
	return b
}

func (b *barrierLedger) GetOrInitBalance(ctx context.Context, userID string) (int, error) {
	credits, err := b.Ledger.GetOrInitBalance(ctx, userID)
	b.wg.Done()
	b.wg.Wait()
	return credits, err
}

// Two spends that both read before either debits are both authorized. The check and the
// debit are not atomic, so the balance goes negative.
func TestSpendOneCredit_ConcurrentOverdraw(t *testing.T) {
	ledger := newLedger(t)
	seed(t, ledger, "racer", 1)

	svc := service.NewBalanceService(newBarrierLedger(ledger, 2))

	var authorized [2]bool
	g, ctx := errgroup.WithContext(context.Background())
	for i := range authorized {
		g.Go(func() error {
			ok, _, err := svc.SpendOneCredit(ctx, "racer")
			authorized[i] = ok
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, [2]bool{true, true}, authorized)

	credits, err := ledger.GetOrInitBalance(context.Background(), "racer")
	require.NoError(t, err)
	assert.Equal(t, -1, credits)
}

func TestTrustPay_RecordsOrder(t *testing.T) {
	recorder := &orderRecorder{Ledger: newLedger(t)}
	svc := service.NewBalanceService(recorder)

	_, err := svc.TrustPay(context.Background(), "dave", -3)
	require.NoError(t, err)

	require.Len(t, recorder.orders, 1)
	order := recorder.orders[0]
	assert.Equal(t, "dave", order.UserID)
	assert.Equal(t, -3.0, order.Amount)
	assert.Equal(t, model.OrderStatusTrustPaid, order.Status)
	assert.Regexp(t, `^TRUST-\d{6}$`, order.ID)
}

type orderRecorder struct {
	repository.Ledger
	orders []model.Order
}

func (r *orderRecorder) RecordOrder(ctx context.Context, order model.Order) error {
	r.orders = append(r.orders, order)
	return r.Ledger.RecordOrder(ctx, order)
}
