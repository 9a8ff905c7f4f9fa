// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package qr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/logging"
	"github.com/buffrhost/buffrhost/internal/loyalty"
	"github.com/buffrhost/buffrhost/internal/metrics"
	"github.com/buffrhost/buffrhost/internal/models"
)

// LoyaltyService is the slice of the loyalty package the QR service
// needs. *loyalty.Service satisfies it.
type LoyaltyService interface {
	GetAccountStatus(ctx context.Context, customerID string) (*loyalty.AccountStatus, error)
	CreateCrossBusinessRedemption(ctx context.Context, req loyalty.RedemptionRequest) (*loyalty.RedemptionResult, error)
}

// Service generates signed QR codes and processes scans.
type Service struct {
	cfg     config.QRConfig
	signer  *Signer
	replay  ReplayTracker
	loyalty LoyaltyService
	jwtKey  []byte
	logger  zerolog.Logger

	now func() time.Time
}

// NewService wires the QR service. The JWT key for enrollment URLs is
// derived from the same master secret as the payload signing keys.
func NewService(cfg config.QRConfig, masterSecret string, replay ReplayTracker, loyaltySvc LoyaltyService) (*Service, error) {
	signer, err := NewSigner(masterSecret)
	if err != nil {
		return nil, err
	}
	jwtKey, err := deriveKey([]byte(masterSecret), []byte("buffrhost-enroll-jwt"), 32)
	if err != nil {
		return nil, fmt.Errorf("derive jwt key: %w", err)
	}

	return &Service{
		cfg:     cfg,
		signer:  signer,
		replay:  replay,
		loyalty: loyaltySvc,
		jwtKey:  jwtKey,
		logger:  logging.With().Str("component", "qr").Logger(),
		now:     time.Now,
	}, nil
}

// GeneratedCode is the result of any QR generation call.
type GeneratedCode struct {
	// QRCode is a base64 PNG data URI.
	QRCode string `json:"qr_code"`
	// Payload is the signed envelope string the image encodes.
	Payload   string      `json:"payload"`
	Type      PayloadType `json:"type"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RedemptionCode extends GeneratedCode with the pre-staged redemption
// identity and the tier captured at generation time.
type RedemptionCode struct {
	GeneratedCode
	RedemptionID string      `json:"redemption_id"`
	CustomerTier models.Tier `json:"customer_tier"`
	Points       int         `json:"points"`
}

// GenerateLoyaltyEnrollmentQR creates a 7-day enrollment code carrying a
// signed URL token.
func (s *Service) GenerateLoyaltyEnrollmentQR(ctx context.Context, customerID, propertyID string) (*GeneratedCode, error) {
	enrollURL, err := s.enrollmentURL(customerID, propertyID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(&EnrollmentData{
		CustomerID: customerID,
		PropertyID: propertyID,
		EnrollURL:  enrollURL,
	})
	if err != nil {
		return nil, fmt.Errorf("encode enrollment data: %w", err)
	}

	return s.generate(TypeLoyaltyEnrollment, data, s.cfg.EnrollmentTTL)
}

// GenerateCrossBusinessRedemptionQR creates a 24-hour redemption code.
// The ledger is untouched until the code is scanned; tier and points are
// embedded so the redeeming side can preview the benefit.
func (s *Service) GenerateCrossBusinessRedemptionQR(ctx context.Context, customerID, propertyID string, source, target models.ServiceDomain, points int) (*RedemptionCode, error) {
	if points <= 0 {
		return nil, loyalty.ErrInvalidPoints
	}
	if !source.Valid() || !target.Valid() {
		return nil, fmt.Errorf("%w: %s -> %s", loyalty.ErrInvalidServiceName, source, target)
	}
	if source == target {
		return nil, loyalty.ErrSameServiceDomain
	}

	status, err := s.loyalty.GetAccountStatus(ctx, customerID)
	if err != nil {
		return nil, err
	}

	redemptionID := uuid.NewString()
	data, err := json.Marshal(&RedemptionData{
		RedemptionID:  redemptionID,
		CustomerID:    customerID,
		PropertyID:    propertyID,
		SourceService: source,
		TargetService: target,
		Points:        points,
		CustomerTier:  status.Tier,
	})
	if err != nil {
		return nil, fmt.Errorf("encode redemption data: %w", err)
	}

	code, err := s.generate(TypeCrossBusinessRedemption, data, s.cfg.RedemptionTTL)
	if err != nil {
		return nil, err
	}
	return &RedemptionCode{
		GeneratedCode: *code,
		RedemptionID:  redemptionID,
		CustomerTier:  status.Tier,
		Points:        points,
	}, nil
}

// GenerateMenuQR creates a loyalty-aware menu code. customerID is
// optional; anonymous menu codes still work.
func (s *Service) GenerateMenuQR(ctx context.Context, propertyID, customerID string) (*GeneratedCode, error) {
	menuURL := fmt.Sprintf("%s/menu/%s", s.cfg.BaseURL, url.PathEscape(propertyID))
	data, err := json.Marshal(&MenuData{
		PropertyID: propertyID,
		MenuURL:    menuURL,
		CustomerID: customerID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode menu data: %w", err)
	}

	return s.generate(TypeMenuWithLoyalty, data, s.cfg.MenuTTL)
}

func (s *Service) generate(t PayloadType, data json.RawMessage, ttl time.Duration) (*GeneratedCode, error) {
	now := s.now().UTC()
	envelope := &Envelope{
		Type:      t,
		Data:      data,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Nonce:     uuid.NewString(),
	}

	payload, err := s.signer.Sign(envelope)
	if err != nil {
		return nil, err
	}
	image, err := EncodeImage(payload, s.cfg.ImageSize)
	if err != nil {
		return nil, err
	}

	metrics.QRGeneratedTotal.WithLabelValues(string(t)).Inc()
	return &GeneratedCode{
		QRCode:    image,
		Payload:   payload,
		Type:      t,
		ExpiresAt: envelope.ExpiresAt,
	}, nil
}

// ScanResult is the outcome of a successful scan. Exactly one of the
// typed fields is set, matching Type.
type ScanResult struct {
	Type       PayloadType               `json:"type"`
	Enrollment *EnrollmentData           `json:"enrollment,omitempty"`
	Redemption *loyalty.RedemptionResult `json:"redemption,omitempty"`
	Menu       *MenuData                 `json:"menu,omitempty"`
}

// Scan verifies and executes a scanned payload. scannedProperty is the
// property where the scan happens; a redemption is recorded against it,
// falling back to the property embedded at generation time when the
// scanner does not identify itself.
//
// Enrollment and redemption codes are single-use: the nonce is burned
// before any side effect runs, so a second scan fails even if the first
// one's side effect failed afterwards. Menu codes stay reusable; a code
// printed on a table must survive many scans.
func (s *Service) Scan(ctx context.Context, payload, scannedProperty string) (*ScanResult, error) {
	envelope, err := s.signer.Verify(payload)
	if err != nil {
		metrics.RecordQRScan("unknown", scanOutcome(err))
		return nil, err
	}

	if envelope.Type != TypeMenuWithLoyalty {
		ttl := time.Until(envelope.ExpiresAt)
		if err := s.replay.CheckAndStore(ctx, envelope.Nonce, envelope.Type, ttl); err != nil {
			return nil, err
		}
	}

	switch envelope.Type {
	case TypeLoyaltyEnrollment:
		data, err := decodeData[EnrollmentData](envelope)
		if err != nil {
			metrics.RecordQRScan(string(envelope.Type), "malformed")
			return nil, err
		}
		metrics.RecordQRScan(string(envelope.Type), "ok")
		return &ScanResult{Type: envelope.Type, Enrollment: data}, nil

	case TypeCrossBusinessRedemption:
		data, err := decodeData[RedemptionData](envelope)
		if err != nil {
			metrics.RecordQRScan(string(envelope.Type), "malformed")
			return nil, err
		}
		propertyID := data.PropertyID
		if scannedProperty != "" {
			propertyID = scannedProperty
		}
		result, err := s.loyalty.CreateCrossBusinessRedemption(ctx, loyalty.RedemptionRequest{
			CustomerID:    data.CustomerID,
			PropertyID:    propertyID,
			SourceService: data.SourceService,
			TargetService: data.TargetService,
			Points:        data.Points,
		})
		if err != nil {
			metrics.RecordQRScan(string(envelope.Type), "error")
			return nil, err
		}
		metrics.RecordQRScan(string(envelope.Type), "ok")
		s.logger.Info().
			Str("redemption_id", data.RedemptionID).
			Str("customer_id", data.CustomerID).
			Str("property_id", propertyID).
			Msg("Redemption QR scanned and committed")
		return &ScanResult{Type: envelope.Type, Redemption: result}, nil

	case TypeMenuWithLoyalty:
		data, err := decodeData[MenuData](envelope)
		if err != nil {
			metrics.RecordQRScan(string(envelope.Type), "malformed")
			return nil, err
		}
		metrics.RecordQRScan(string(envelope.Type), "ok")
		return &ScanResult{Type: envelope.Type, Menu: data}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, envelope.Type)
	}
}

// SweepReplayStore removes expired nonces. Run periodically.
func (s *Service) SweepReplayStore(ctx context.Context) (int, error) {
	return s.replay.CleanupExpired(ctx)
}

// enrollmentURL builds the signed link an enrollment QR opens.
func (s *Service) enrollmentURL(customerID, propertyID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      customerID,
		"property": propertyID,
		"purpose":  "loyalty_enrollment",
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.EnrollmentTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign enrollment token: %w", err)
	}
	return fmt.Sprintf("%s/loyalty/enroll?token=%s", s.cfg.BaseURL, url.QueryEscape(token)), nil
}

// VerifyEnrollmentToken validates an enrollment URL token and returns
// the customer and property it binds.
func (s *Service) VerifyEnrollmentToken(tokenString string) (customerID, propertyID string, err error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", "", fmt.Errorf("parse enrollment token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidSignature
	}
	if purpose, _ := claims["purpose"].(string); purpose != "loyalty_enrollment" {
		return "", "", fmt.Errorf("%w: wrong token purpose", ErrMalformed)
	}

	customerID, _ = claims["sub"].(string)
	propertyID, _ = claims["property"].(string)
	if customerID == "" || propertyID == "" {
		return "", "", fmt.Errorf("%w: missing claims", ErrMalformed)
	}
	return customerID, propertyID, nil
}

func scanOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "malformed"
	}
}
