// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package loyalty

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/database"
	"github.com/buffrhost/buffrhost/internal/logging"
	"github.com/buffrhost/buffrhost/internal/metrics"
	"github.com/buffrhost/buffrhost/internal/models"
)

// Validation errors returned before any ledger mutation is attempted.
var (
	ErrInvalidPoints      = errors.New("points must be positive")
	ErrSameServiceDomain  = errors.New("source and target service must differ")
	ErrInvalidServiceName = errors.New("unknown service domain")
)

// Store is the persistence surface the loyalty service needs.
// *database.DB satisfies it.
type Store interface {
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)
	AddPoints(ctx context.Context, customerID string, points int, spent float64) error
	RedeemPoints(ctx context.Context, r *models.CrossBusinessRedemption) (remaining int, err error)
	ListRedemptions(ctx context.Context, customerID string, limit int) ([]models.CrossBusinessRedemption, error)
}

// Service implements the loyalty ledger and cross-business redemptions.
type Service struct {
	store  Store
	cfg    config.LoyaltyConfig
	logger zerolog.Logger

	now func() time.Time
}

// NewService creates a loyalty service over the given store.
func NewService(store Store, cfg config.LoyaltyConfig) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logging.With().Str("component", "loyalty").Logger(),
		now:    time.Now,
	}
}

// AccountStatus is a customer's current standing: balance, derived tier,
// and the benefits that tier grants right now.
type AccountStatus struct {
	Customer *models.Customer    `json:"customer"`
	Tier     models.Tier         `json:"tier"`
	Benefits models.TierBenefits `json:"benefits"`
}

// GetAccountStatus returns the live account view. Tier and benefits are
// computed fresh, never read from storage.
func (s *Service) GetAccountStatus(ctx context.Context, customerID string) (*AccountStatus, error) {
	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	tier := CalculateTier(customer)
	return &AccountStatus{
		Customer: customer,
		Tier:     tier,
		Benefits: TierBenefitsFor(tier),
	}, nil
}

// EarnPoints credits points for spending, applying the customer's current
// tier multiplier to the base points. Returns the points actually credited.
func (s *Service) EarnPoints(ctx context.Context, customerID string, basePoints int, spent float64) (int, error) {
	if basePoints <= 0 {
		return 0, ErrInvalidPoints
	}

	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}

	benefits := TierBenefitsFor(CalculateTier(customer))
	credited := int(math.Round(float64(basePoints) * benefits.PointsMultiplier))

	if err := s.store.AddPoints(ctx, customerID, credited, spent); err != nil {
		return 0, err
	}

	s.logger.Info().
		Str("customer_id", customerID).
		Int("base_points", basePoints).
		Int("credited", credited).
		Str("tier", string(benefits.Tier)).
		Msg("Points credited")
	return credited, nil
}

// RedemptionRequest asks to move points from one service domain to another.
type RedemptionRequest struct {
	CustomerID    string               `json:"customer_id"`
	PropertyID    string               `json:"property_id"`
	SourceService models.ServiceDomain `json:"source_service"`
	TargetService models.ServiceDomain `json:"target_service"`
	Points        int                  `json:"points"`
}

// RedemptionResult is the committed redemption plus the balance after it.
type RedemptionResult struct {
	Redemption      *models.CrossBusinessRedemption `json:"redemption"`
	RemainingPoints int                             `json:"remaining_points"`
	BenefitValue    float64                         `json:"benefit_value"`
}

// CreateCrossBusinessRedemption validates and commits a cross-business
// point transfer.
//
// The point debit is the literal requested amount; the tier multiplier
// scales the benefit granted at the target service, not the debit. The
// redemption record snapshots tier and benefits at commit time.
func (s *Service) CreateCrossBusinessRedemption(ctx context.Context, req RedemptionRequest) (*RedemptionResult, error) {
	if req.Points <= 0 {
		return nil, ErrInvalidPoints
	}
	if !req.SourceService.Valid() || !req.TargetService.Valid() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidServiceName, req.SourceService, req.TargetService)
	}
	if req.SourceService == req.TargetService {
		return nil, ErrSameServiceDomain
	}

	customer, err := s.store.GetCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	tier := CalculateTier(customer)
	benefits := TierBenefitsFor(tier)
	now := s.now().UTC()

	redemption := &models.CrossBusinessRedemption{
		ID:               uuid.NewString(),
		CustomerID:       req.CustomerID,
		PropertyID:       req.PropertyID,
		SourceService:    req.SourceService,
		TargetService:    req.TargetService,
		PointsRedeemed:   req.Points,
		TierAtRedemption: tier,
		BenefitsApplied:  benefits,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.cfg.RedemptionExpiry),
	}

	remaining, err := s.store.RedeemPoints(ctx, redemption)
	if err != nil {
		outcome := "error"
		if errors.Is(err, database.ErrInsufficientPoints) {
			outcome = "insufficient_points"
		}
		metrics.RecordRedemption(string(req.SourceService), string(req.TargetService), outcome, 0)
		return nil, err
	}

	metrics.RecordRedemption(string(req.SourceService), string(req.TargetService), "success", req.Points)
	s.logger.Info().
		Str("customer_id", req.CustomerID).
		Str("redemption_id", redemption.ID).
		Str("source", string(req.SourceService)).
		Str("target", string(req.TargetService)).
		Int("points", req.Points).
		Str("tier", string(tier)).
		Msg("Cross-business redemption committed")

	// The remaining balance comes from the debit itself, so concurrent
	// redemptions on the same account cannot skew it.
	return &RedemptionResult{
		Redemption:      redemption,
		RemainingPoints: remaining,
		BenefitValue:    float64(req.Points) * benefits.PointsMultiplier,
	}, nil
}

// ListRedemptions returns a customer's redemption history.
func (s *Service) ListRedemptions(ctx context.Context, customerID string, limit int) ([]models.CrossBusinessRedemption, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListRedemptions(ctx, customerID, limit)
}

// GetCrossBusinessOffers lists the offers a customer can afford from a
// given source service, one per reachable target domain. Offer codes
// carry the LOYALTY_CROSS_ prefix the scanning side keys on.
func (s *Service) GetCrossBusinessOffers(ctx context.Context, customerID string, source models.ServiceDomain) ([]models.CrossBusinessOffer, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidServiceName, source)
	}

	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var offers []models.CrossBusinessOffer
	for _, offer := range offerCatalog {
		if offer.SourceService != source {
			continue
		}
		if customer.LoyaltyPoints < offer.PointsRequired {
			continue
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// offerCatalog is the static cross-business offer table. Each target
// domain advertises what points from another domain buy there.
var offerCatalog = []models.CrossBusinessOffer{
	{
		Code:           "LOYALTY_CROSS_RESTAURANT_HOTEL",
		Title:          "Dine & Stay",
		Description:    "Redeem restaurant points for a room upgrade",
		SourceService:  models.DomainRestaurant,
		TargetService:  models.DomainHotel,
		PointsRequired: 500,
	},
	{
		Code:           "LOYALTY_CROSS_RESTAURANT_SPA",
		Title:          "Dinner to Spa",
		Description:    "Redeem restaurant points for a spa treatment",
		SourceService:  models.DomainRestaurant,
		TargetService:  models.DomainSpa,
		PointsRequired: 300,
	},
	{
		Code:           "LOYALTY_CROSS_HOTEL_RESTAURANT",
		Title:          "Stay & Dine",
		Description:    "Redeem hotel points for a dinner voucher",
		SourceService:  models.DomainHotel,
		TargetService:  models.DomainRestaurant,
		PointsRequired: 250,
	},
	{
		Code:           "LOYALTY_CROSS_HOTEL_SHUTTLE",
		Title:          "Free Transfer",
		Description:    "Redeem hotel points for an airport shuttle",
		SourceService:  models.DomainHotel,
		TargetService:  models.DomainShuttle,
		PointsRequired: 150,
	},
	{
		Code:           "LOYALTY_CROSS_SPA_RECREATION",
		Title:          "Wellness Adventure",
		Description:    "Redeem spa points for a guided tour",
		SourceService:  models.DomainSpa,
		TargetService:  models.DomainRecreation,
		PointsRequired: 400,
	},
	{
		Code:           "LOYALTY_CROSS_CONFERENCE_RESTAURANT",
		Title:          "Meeting Break",
		Description:    "Redeem conference points for catering credit",
		SourceService:  models.DomainConference,
		TargetService:  models.DomainRestaurant,
		PointsRequired: 200,
	},
}
