// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package qr

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/loyalty"
	"github.com/buffrhost/buffrhost/internal/models"
)

type fakeLoyalty struct {
	status      *loyalty.AccountStatus
	statusErr   error
	redeemErr   error
	redemptions []loyalty.RedemptionRequest
}

func (f *fakeLoyalty) GetAccountStatus(context.Context, string) (*loyalty.AccountStatus, error) {
	return f.status, f.statusErr
}

func (f *fakeLoyalty) CreateCrossBusinessRedemption(_ context.Context, req loyalty.RedemptionRequest) (*loyalty.RedemptionResult, error) {
	f.redemptions = append(f.redemptions, req)
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return &loyalty.RedemptionResult{
		Redemption: &models.CrossBusinessRedemption{
			CustomerID:     req.CustomerID,
			SourceService:  req.SourceService,
			TargetService:  req.TargetService,
			PointsRedeemed: req.Points,
		},
		RemainingPoints: 500,
		BenefitValue:    float64(req.Points) * 1.5,
	}, nil
}

func goldStatus() *loyalty.AccountStatus {
	return &loyalty.AccountStatus{
		Customer: &models.Customer{ID: "cust-1", LoyaltyPoints: 1000},
		Tier:     models.TierGold,
		Benefits: loyalty.TierBenefitsFor(models.TierGold),
	}
}

func newTestService(t *testing.T, ly LoyaltyService, now time.Time) *Service {
	t.Helper()
	cfg := config.DefaultConfig().QR
	cfg.BaseURL = "https://host.example"
	svc, err := NewService(cfg, testSecret, NewMemoryReplayTracker(), ly)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.now = func() time.Time { return now }
	svc.signer.now = func() time.Time { return now }
	return svc
}

func TestGenerateAndScanEnrollment(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &fakeLoyalty{status: goldStatus()}, now)

	code, err := svc.GenerateLoyaltyEnrollmentQR(context.Background(), "cust-1", "prop-1")
	if err != nil {
		t.Fatalf("GenerateLoyaltyEnrollmentQR: %v", err)
	}
	if !strings.HasPrefix(code.QRCode, "data:image/png;base64,") {
		t.Errorf("qr_code is not a png data URI")
	}
	if want := now.Add(7 * 24 * time.Hour); !code.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", code.ExpiresAt, want)
	}

	result, err := svc.Scan(context.Background(), code.Payload, "")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Type != TypeLoyaltyEnrollment || result.Enrollment == nil {
		t.Fatalf("scan result = %+v, want enrollment", result)
	}
	if result.Enrollment.CustomerID != "cust-1" || result.Enrollment.PropertyID != "prop-1" {
		t.Errorf("enrollment = %+v", result.Enrollment)
	}

	// The embedded URL carries a token that verifies back to the same
	// customer and property.
	u := result.Enrollment.EnrollURL
	idx := strings.Index(u, "token=")
	if idx < 0 {
		t.Fatalf("enroll URL has no token: %s", u)
	}
	customerID, propertyID, err := svc.VerifyEnrollmentToken(u[idx+len("token="):])
	if err != nil {
		t.Fatalf("VerifyEnrollmentToken: %v", err)
	}
	if customerID != "cust-1" || propertyID != "prop-1" {
		t.Errorf("token claims = %s/%s", customerID, propertyID)
	}
}

func TestGenerateRedemptionEmbedsTierAndPoints(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &fakeLoyalty{status: goldStatus()}, now)

	code, err := svc.GenerateCrossBusinessRedemptionQR(context.Background(), "cust-1", "prop-1",
		models.DomainRestaurant, models.DomainSpa, 500)
	if err != nil {
		t.Fatalf("GenerateCrossBusinessRedemptionQR: %v", err)
	}

	if code.RedemptionID == "" {
		t.Error("redemption_id is empty")
	}
	if code.CustomerTier != models.TierGold {
		t.Errorf("customer_tier = %s, want gold", code.CustomerTier)
	}
	if code.Points != 500 {
		t.Errorf("points = %d, want 500", code.Points)
	}
	if want := now.Add(24 * time.Hour); !code.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", code.ExpiresAt, want)
	}

	// Generation alone must not debit anything.
	envelope, err := svc.signer.Verify(code.Payload)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	data, err := decodeData[RedemptionData](envelope)
	if err != nil {
		t.Fatalf("decodeData: %v", err)
	}
	if data.CustomerTier != models.TierGold || data.Points != 500 {
		t.Errorf("embedded data = %+v", data)
	}
}

func TestGenerateRedemptionValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &fakeLoyalty{status: goldStatus()}, now)
	ctx := context.Background()

	tests := []struct {
		name    string
		source  models.ServiceDomain
		target  models.ServiceDomain
		points  int
		wantErr error
	}{
		{"zero points", models.DomainRestaurant, models.DomainSpa, 0, loyalty.ErrInvalidPoints},
		{"negative points", models.DomainRestaurant, models.DomainSpa, -5, loyalty.ErrInvalidPoints},
		{"bad source", models.ServiceDomain("casino"), models.DomainSpa, 100, loyalty.ErrInvalidServiceName},
		{"same domain", models.DomainSpa, models.DomainSpa, 100, loyalty.ErrSameServiceDomain},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GenerateCrossBusinessRedemptionQR(ctx, "cust-1", "prop-1", tc.source, tc.target, tc.points)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestScanRedemptionCommitsLedger(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ly := &fakeLoyalty{status: goldStatus()}
	svc := newTestService(t, ly, now)
	ctx := context.Background()

	code, err := svc.GenerateCrossBusinessRedemptionQR(ctx, "cust-1", "prop-1",
		models.DomainRestaurant, models.DomainSpa, 500)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(ly.redemptions) != 0 {
		t.Fatalf("generation touched the ledger: %d calls", len(ly.redemptions))
	}

	result, err := svc.Scan(ctx, code.Payload, "")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Type != TypeCrossBusinessRedemption || result.Redemption == nil {
		t.Fatalf("scan result = %+v, want redemption", result)
	}
	if result.Redemption.RemainingPoints != 500 {
		t.Errorf("remaining = %d, want 500", result.Redemption.RemainingPoints)
	}
	if len(ly.redemptions) != 1 {
		t.Fatalf("redemption calls = %d, want 1", len(ly.redemptions))
	}
	req := ly.redemptions[0]
	if req.CustomerID != "cust-1" || req.Points != 500 || req.SourceService != models.DomainRestaurant {
		t.Errorf("redemption request = %+v", req)
	}
}

func TestScanRedemptionBindsScanningProperty(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ly := &fakeLoyalty{status: goldStatus()}
	svc := newTestService(t, ly, now)
	ctx := context.Background()

	code, err := svc.GenerateCrossBusinessRedemptionQR(ctx, "cust-1", "prop-1",
		models.DomainRestaurant, models.DomainSpa, 500)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// The spa that scans the code is a different property than the
	// restaurant that issued it. The redemption lands where it is spent.
	if _, err := svc.Scan(ctx, code.Payload, "prop-spa"); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(ly.redemptions) != 1 {
		t.Fatalf("redemption calls = %d, want 1", len(ly.redemptions))
	}
	if ly.redemptions[0].PropertyID != "prop-spa" {
		t.Errorf("redemption property = %q, want prop-spa", ly.redemptions[0].PropertyID)
	}

	// Without a scanning property the issuing property stands.
	code2, err := svc.GenerateCrossBusinessRedemptionQR(ctx, "cust-1", "prop-1",
		models.DomainRestaurant, models.DomainSpa, 500)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Scan(ctx, code2.Payload, ""); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if ly.redemptions[1].PropertyID != "prop-1" {
		t.Errorf("fallback property = %q, want prop-1", ly.redemptions[1].PropertyID)
	}
}

func TestScanRedemptionIsSingleUse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ly := &fakeLoyalty{status: goldStatus()}
	svc := newTestService(t, ly, now)
	ctx := context.Background()

	code, err := svc.GenerateCrossBusinessRedemptionQR(ctx, "cust-1", "prop-1",
		models.DomainRestaurant, models.DomainSpa, 500)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := svc.Scan(ctx, code.Payload, ""); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if _, err := svc.Scan(ctx, code.Payload, ""); !errors.Is(err, ErrNonceAlreadyUsed) {
		t.Errorf("second scan = %v, want ErrNonceAlreadyUsed", err)
	}
	if len(ly.redemptions) != 1 {
		t.Errorf("ledger calls = %d, want 1", len(ly.redemptions))
	}
}

func TestScanNonceBurnsEvenWhenLedgerFails(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ly := &fakeLoyalty{status: goldStatus()}
	svc := newTestService(t, ly, now)
	ctx := context.Background()

	code, err := svc.GenerateCrossBusinessRedemptionQR(ctx, "cust-1", "prop-1",
		models.DomainRestaurant, models.DomainSpa, 500)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	ly.redeemErr = errors.New("backend down")
	if _, err := svc.Scan(ctx, code.Payload, ""); err == nil {
		t.Fatal("scan succeeded despite ledger failure")
	}
	ly.redeemErr = nil
	if _, err := svc.Scan(ctx, code.Payload, ""); !errors.Is(err, ErrNonceAlreadyUsed) {
		t.Errorf("retry scan = %v, want ErrNonceAlreadyUsed", err)
	}
}

func TestScanMenuIsReusable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &fakeLoyalty{status: goldStatus()}, now)
	ctx := context.Background()

	code, err := svc.GenerateMenuQR(ctx, "prop-1", "")
	if err != nil {
		t.Fatalf("GenerateMenuQR: %v", err)
	}

	for i := 0; i < 3; i++ {
		result, err := svc.Scan(ctx, code.Payload, "")
		if err != nil {
			t.Fatalf("scan %d: %v", i+1, err)
		}
		if result.Menu == nil || result.Menu.PropertyID != "prop-1" {
			t.Fatalf("scan %d result = %+v", i+1, result)
		}
		if result.Menu.MenuURL != "https://host.example/menu/prop-1" {
			t.Errorf("menu_url = %s", result.Menu.MenuURL)
		}
	}
}

func TestScanRejectsGarbage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &fakeLoyalty{status: goldStatus()}, now)

	if _, err := svc.Scan(context.Background(), "not a payload", ""); !errors.Is(err, ErrMalformed) {
		t.Errorf("Scan(garbage) = %v, want ErrMalformed", err)
	}
}

func TestVerifyEnrollmentTokenRejectsForgery(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &fakeLoyalty{status: goldStatus()}, now)

	other, err := NewService(svc.cfg, "a-completely-different-master-secret!", NewMemoryReplayTracker(), &fakeLoyalty{status: goldStatus()})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	other.now = svc.now

	url, err := other.enrollmentURL("cust-1", "prop-1")
	if err != nil {
		t.Fatalf("enrollmentURL: %v", err)
	}
	token := url[strings.Index(url, "token=")+len("token="):]
	if _, _, err := svc.VerifyEnrollmentToken(token); err == nil {
		t.Error("token from another key verified")
	}
}
