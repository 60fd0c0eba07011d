package service

import (
	"context"
	"fmt"
	"math/rand/v2"

	"fsanano/answer-book/internal/metrics"
	"fsanano/answer-book/internal/model"
	"fsanano/answer-book/internal/repository"
)

const (
	smallTopUpPoints = 10
	largeTopUpPoints = 30
	// Payments at or above this amount earn the large top-up.
	largeTopUpThreshold = 15.0
)

type PayResult struct {
	OrderID       string
	PointsGranted int
	NewBalance    int
}

type BalanceService struct {
	ledger     repository.Ledger
	newOrderID func() string
}

func NewBalanceService(ledger repository.Ledger) *BalanceService {
	return &BalanceService{ledger: ledger, newOrderID: NewTrustOrderID}
}

// WithOrderIDs replaces the order id generator.
func (s *BalanceService) WithOrderIDs(gen func() string) *BalanceService {
	s.newOrderID = gen
	return s
}

// NewTrustOrderID returns "TRUST-" followed by a random six digit number. Uniqueness is
// left to the ledger's primary key.
func NewTrustOrderID() string {
	return fmt.Sprintf("TRUST-%d", 100000+rand.IntN(900000))
}

// PointsFor maps a payment amount to the credits it buys.
func PointsFor(amountPaid float64) int {
	if amountPaid < largeTopUpThreshold {
		return smallTopUpPoints
	}
	return largeTopUpPoints
}

func (s *BalanceService) ReadBalance(ctx context.Context, userID string) (int, error) {
	return s.ledger.GetOrInitBalance(ctx, userID)
}

// SpendOneCredit debits one credit when the balance is positive. The returned balance is
// the one read before the debit. Reading and debiting are separate ledger calls, so
// concurrent spends for the same user can overdraw the balance.
func (s *BalanceService) SpendOneCredit(ctx context.Context, userID string) (bool, int, error) {
	balance, err := s.ledger.GetOrInitBalance(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	if balance <= 0 {
		return false, balance, nil
	}

	if err := s.ledger.AdjustBalance(ctx, userID, -1); err != nil {
		return false, balance, err
	}
	metrics.CreditSpent()
	return true, balance, nil
}

func (s *BalanceService) GrantCredits(ctx context.Context, userID string, amountPaid float64) (int, error) {
	points := PointsFor(amountPaid)
	// AdjustBalance ignores unknown users
	if _, err := s.ledger.GetOrInitBalance(ctx, userID); err != nil {
		return 0, err
	}
	if err := s.ledger.AdjustBalance(ctx, userID, points); err != nil {
		return 0, err
	}
	metrics.CreditsGranted(points)
	return points, nil
}

// TrustPay records an unverified payment order and grants the matching credits.
func (s *BalanceService) TrustPay(ctx context.Context, userID string, amount float64) (PayResult, error) {
	order := model.Order{
		ID:     s.newOrderID(),
		UserID: userID,
		Amount: amount,
		Status: model.OrderStatusTrustPaid,
	}
	if err := s.ledger.RecordOrder(ctx, order); err != nil {
		return PayResult{}, err
	}
	metrics.OrderRecorded()

	points, err := s.GrantCredits(ctx, userID, amount)
	if err != nil {
		return PayResult{OrderID: order.ID}, err
	}

	balance, err := s.ReadBalance(ctx, userID)
	if err != nil {
		return PayResult{OrderID: order.ID, PointsGranted: points}, err
	}

	return PayResult{OrderID: order.ID, PointsGranted: points, NewBalance: balance}, nil
}
