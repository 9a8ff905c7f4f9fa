// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package loyalty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/database"
	"github.com/buffrhost/buffrhost/internal/models"
)

func newTestService(t *testing.T) (*Service, *database.DB) {
	t.Helper()
	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewService(db, config.LoyaltyConfig{RedemptionExpiry: 24 * time.Hour}), db
}

func createCustomer(t *testing.T, db *database.DB, points int, spent float64) *models.Customer {
	t.Helper()
	c := &models.Customer{
		ID:            uuid.NewString(),
		PropertyID:    "p1",
		Name:          "Test Guest",
		Email:         "guest@example.com",
		LoyaltyPoints: points,
		TotalSpent:    spent,
	}
	if err := db.CreateCustomer(context.Background(), c); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

func TestGetAccountStatusComputesTierFresh(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, db, 900, 0)

	status, err := svc.GetAccountStatus(ctx, c.ID)
	if err != nil {
		t.Fatalf("get account status: %v", err)
	}
	if status.Tier != models.TierSilver {
		t.Errorf("tier = %q, want silver", status.Tier)
	}

	// Crossing a threshold changes the derived tier without any separate
	// tier write.
	if err := db.AddPoints(ctx, c.ID, 100, 0); err != nil {
		t.Fatalf("add points: %v", err)
	}
	status, err = svc.GetAccountStatus(ctx, c.ID)
	if err != nil {
		t.Fatalf("get account status: %v", err)
	}
	if status.Tier != models.TierGold {
		t.Errorf("tier after accrual = %q, want gold", status.Tier)
	}
	if status.Benefits.PointsMultiplier != 1.5 {
		t.Errorf("benefits multiplier = %v, want 1.5", status.Benefits.PointsMultiplier)
	}
}

func TestEarnPointsAppliesTierMultiplier(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// Gold customer: 100 base points credit 150.
	c := createCustomer(t, db, 1000, 0)
	credited, err := svc.EarnPoints(ctx, c.ID, 100, 250)
	if err != nil {
		t.Fatalf("earn points: %v", err)
	}
	if credited != 150 {
		t.Errorf("credited = %d, want 150", credited)
	}

	after, err := db.GetCustomer(ctx, c.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if after.LoyaltyPoints != 1150 {
		t.Errorf("balance = %d, want 1150", after.LoyaltyPoints)
	}
	if after.TotalSpent != 250 {
		t.Errorf("total spent = %v, want 250", after.TotalSpent)
	}
}

func TestCrossBusinessRedemptionGoldScenario(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// 1000 points puts the customer at gold (1.5x, 10%).
	c := createCustomer(t, db, 1000, 0)

	result, err := svc.CreateCrossBusinessRedemption(ctx, RedemptionRequest{
		CustomerID:    c.ID,
		PropertyID:    "p1",
		SourceService: models.DomainRestaurant,
		TargetService: models.DomainHotel,
		Points:        500,
	})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if result.Redemption.PointsRedeemed != 500 {
		t.Errorf("points redeemed = %d, want 500", result.Redemption.PointsRedeemed)
	}
	if result.RemainingPoints != 500 {
		t.Errorf("remaining = %d, want 500", result.RemainingPoints)
	}
	if result.Redemption.TierAtRedemption != models.TierGold {
		t.Errorf("tier snapshot = %q, want gold", result.Redemption.TierAtRedemption)
	}
	if result.Redemption.BenefitsApplied.PointsMultiplier != 1.5 {
		t.Errorf("multiplier = %v, want 1.5", result.Redemption.BenefitsApplied.PointsMultiplier)
	}
	if result.Redemption.BenefitsApplied.DiscountPercentage != 10 {
		t.Errorf("discount = %v, want 10", result.Redemption.BenefitsApplied.DiscountPercentage)
	}
	// Benefit value scales with the multiplier; the debit does not.
	if result.BenefitValue != 750 {
		t.Errorf("benefit value = %v, want 750", result.BenefitValue)
	}

	// Over-redeeming the same account fails with no balance change.
	_, err = svc.CreateCrossBusinessRedemption(ctx, RedemptionRequest{
		CustomerID:    c.ID,
		PropertyID:    "p1",
		SourceService: models.DomainRestaurant,
		TargetService: models.DomainHotel,
		Points:        1500,
	})
	if !errors.Is(err, database.ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
	after, err := db.GetCustomer(ctx, c.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if after.LoyaltyPoints != 500 {
		t.Errorf("balance after failed redemption = %d, want 500", after.LoyaltyPoints)
	}
}

// racingStore simulates a balance read going stale between the customer
// lookup and the debit: GetCustomer reports the original balance, while
// RedeemPoints applies a concurrent debit first and returns what the
// ledger actually holds afterwards.
type racingStore struct {
	balance         int
	concurrentDebit int
}

func (s *racingStore) GetCustomer(context.Context, string) (*models.Customer, error) {
	return &models.Customer{ID: "c1", PropertyID: "p1", LoyaltyPoints: s.balance}, nil
}

func (s *racingStore) AddPoints(context.Context, string, int, float64) error { return nil }

func (s *racingStore) RedeemPoints(_ context.Context, r *models.CrossBusinessRedemption) (int, error) {
	s.balance -= s.concurrentDebit
	s.concurrentDebit = 0
	if s.balance < r.PointsRedeemed {
		return 0, database.ErrInsufficientPoints
	}
	s.balance -= r.PointsRedeemed
	return s.balance, nil
}

func (s *racingStore) ListRedemptions(context.Context, string, int) ([]models.CrossBusinessRedemption, error) {
	return nil, nil
}

func TestRemainingPointsComeFromDebit(t *testing.T) {
	store := &racingStore{balance: 1000, concurrentDebit: 200}
	svc := NewService(store, config.LoyaltyConfig{RedemptionExpiry: 24 * time.Hour})

	result, err := svc.CreateCrossBusinessRedemption(context.Background(), RedemptionRequest{
		CustomerID:    "c1",
		PropertyID:    "p1",
		SourceService: models.DomainRestaurant,
		TargetService: models.DomainHotel,
		Points:        500,
	})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	// 1000 at read time, minus the 200 that landed concurrently, minus
	// this 500: the reported remainder must be the ledger's 300, not the
	// stale 500.
	if result.RemainingPoints != 300 {
		t.Errorf("remaining = %d, want 300", result.RemainingPoints)
	}
}

func TestRedemptionSnapshotSurvivesTierChange(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, db, 1000, 0)

	result, err := svc.CreateCrossBusinessRedemption(ctx, RedemptionRequest{
		CustomerID:    c.ID,
		PropertyID:    "p1",
		SourceService: models.DomainRestaurant,
		TargetService: models.DomainSpa,
		Points:        800,
	})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	// The customer drops to bronze territory afterwards; the stored
	// record must still carry the gold snapshot.
	stored, err := db.GetRedemption(ctx, result.Redemption.ID)
	if err != nil {
		t.Fatalf("get redemption: %v", err)
	}
	if stored.TierAtRedemption != models.TierGold {
		t.Errorf("stored tier = %q, want gold", stored.TierAtRedemption)
	}
	if stored.BenefitsApplied.PointsMultiplier != 1.5 {
		t.Errorf("stored multiplier = %v, want 1.5", stored.BenefitsApplied.PointsMultiplier)
	}
}

func TestRedemptionValidation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	c := createCustomer(t, db, 1000, 0)

	base := RedemptionRequest{
		CustomerID:    c.ID,
		PropertyID:    "p1",
		SourceService: models.DomainRestaurant,
		TargetService: models.DomainHotel,
		Points:        100,
	}

	zero := base
	zero.Points = 0
	if _, err := svc.CreateCrossBusinessRedemption(ctx, zero); !errors.Is(err, ErrInvalidPoints) {
		t.Errorf("zero points: expected ErrInvalidPoints, got %v", err)
	}

	negative := base
	negative.Points = -10
	if _, err := svc.CreateCrossBusinessRedemption(ctx, negative); !errors.Is(err, ErrInvalidPoints) {
		t.Errorf("negative points: expected ErrInvalidPoints, got %v", err)
	}

	same := base
	same.TargetService = same.SourceService
	if _, err := svc.CreateCrossBusinessRedemption(ctx, same); !errors.Is(err, ErrSameServiceDomain) {
		t.Errorf("same domain: expected ErrSameServiceDomain, got %v", err)
	}

	unknown := base
	unknown.TargetService = "casino"
	if _, err := svc.CreateCrossBusinessRedemption(ctx, unknown); !errors.Is(err, ErrInvalidServiceName) {
		t.Errorf("unknown domain: expected ErrInvalidServiceName, got %v", err)
	}

	missing := base
	missing.CustomerID = uuid.NewString()
	if _, err := svc.CreateCrossBusinessRedemption(ctx, missing); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("missing customer: expected ErrNotFound, got %v", err)
	}
}

func TestGetCrossBusinessOffers(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	rich := createCustomer(t, db, 600, 0)
	offers, err := svc.GetCrossBusinessOffers(ctx, rich.ID, models.DomainRestaurant)
	if err != nil {
		t.Fatalf("get offers: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("expected 2 affordable restaurant offers, got %v", offers)
	}
	for _, o := range offers {
		if o.SourceService != models.DomainRestaurant {
			t.Errorf("offer %q has source %q, want restaurant", o.Code, o.SourceService)
		}
		if len(o.Code) < len("LOYALTY_CROSS_") || o.Code[:len("LOYALTY_CROSS_")] != "LOYALTY_CROSS_" {
			t.Errorf("offer code %q missing LOYALTY_CROSS_ prefix", o.Code)
		}
	}

	// A poorer customer only sees what they can afford.
	poor := createCustomer(t, db, 350, 0)
	offers, err = svc.GetCrossBusinessOffers(ctx, poor.ID, models.DomainRestaurant)
	if err != nil {
		t.Fatalf("get offers: %v", err)
	}
	if len(offers) != 1 || offers[0].PointsRequired != 300 {
		t.Errorf("expected only the 300-point offer, got %v", offers)
	}
}
