// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/database"
	"github.com/buffrhost/buffrhost/internal/events"
	"github.com/buffrhost/buffrhost/internal/loyalty"
	"github.com/buffrhost/buffrhost/internal/models"
	"github.com/buffrhost/buffrhost/internal/qr"
	"github.com/buffrhost/buffrhost/internal/recommend"
)

const testSigningSecret = "api-test-secret-with-enough-entropy!"

type testServer struct {
	router http.Handler
	db     *database.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Security.SigningSecret = testSigningSecret
	cfg.Security.RateLimitDisabled = true

	db, err := database.NewInMemory()
	if err != nil {
		t.Fatalf("open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	engine := recommend.NewEngine(db, cfg.Recommend)
	scorer := recommend.NewContentScorer(cfg.Recommend)
	loyaltySvc := loyalty.NewService(db, cfg.Loyalty)

	qrSvc, err := qr.NewService(cfg.QR, cfg.Security.SigningSecret, qr.NewMemoryReplayTracker(), loyaltySvc)
	if err != nil {
		t.Fatalf("create qr service: %v", err)
	}

	bus := events.NewBus(cfg.Events)
	t.Cleanup(func() { _ = bus.Close() })

	handler := NewHandler(cfg, db, engine, scorer, loyaltySvc, qrSvc, bus)
	return &testServer{router: NewRouter(handler), db: db}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return &resp
}

func seedCustomer(t *testing.T, db *database.DB, id string, points int) {
	t.Helper()
	err := db.CreateCustomer(context.Background(), &models.Customer{
		ID:            id,
		PropertyID:    "prop-1",
		Name:          "Guest",
		LoyaltyPoints: points,
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

func TestRecordPreferenceAndRecommend(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/preferences", PreferenceRequest{
		UserID:   "u1",
		ItemID:   "menu-1",
		ItemType: "menu_item",
		Action:   "like",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("preference status = %d, body %s", rec.Code, rec.Body.String())
	}

	// A lone user has no neighbours, so the list falls back to
	// popularity and still includes the liked item.
	rec = ts.do(t, http.MethodGet, "/api/v1/recommendations/u2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recommendations status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Fatalf("recommendations failed: %+v", resp.Error)
	}
	data := resp.Data.(map[string]interface{})
	if data["source"] != "popularity" {
		t.Errorf("source = %v, want popularity", data["source"])
	}
}

func TestRecommendationsItemTypeFilter(t *testing.T) {
	ts := newTestServer(t)

	for _, p := range []PreferenceRequest{
		{UserID: "u1", ItemID: "menu-1", ItemType: "menu_item", Action: "like"},
		{UserID: "u2", ItemID: "room-1", ItemType: "room", Action: "book"},
	} {
		if rec := ts.do(t, http.MethodPost, "/api/v1/preferences", p); rec.Code != http.StatusCreated {
			t.Fatalf("preference status = %d, body %s", rec.Code, rec.Body.String())
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/recommendations/u3?item_type=room", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recommendations status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	recs := resp.Data.(map[string]interface{})["recommendations"].([]interface{})
	for _, raw := range recs {
		entry := raw.(map[string]interface{})
		if entry["item"].(map[string]interface{})["item_type"] != "room" {
			t.Errorf("filtered list leaked entry %v", entry)
		}
		if entry["recommendation_type"] != "popular" {
			t.Errorf("recommendation_type = %v, want popular", entry["recommendation_type"])
		}
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/recommendations/u3?item_type=casino", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad item_type status = %d, want 400", rec.Code)
	}
}

func TestRecordPreferenceValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body PreferenceRequest
	}{
		{"bad item type", PreferenceRequest{UserID: "u1", ItemID: "x", ItemType: "casino", Action: "like"}},
		{"bad action", PreferenceRequest{UserID: "u1", ItemID: "x", ItemType: "room", Action: "sniff"}},
		{"missing user", PreferenceRequest{ItemID: "x", ItemType: "room", Action: "like"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/preferences", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			resp := decodeResponse(t, rec)
			if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
				t.Errorf("error = %+v, want %s", resp.Error, ErrCodeValidationFailed)
			}
		})
	}
}

func TestMalformedJSONBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/preferences", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFavoriteToggleRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	body := FavoriteToggleRequest{UserID: "u1", PropertyID: "prop-1", ItemID: "room-1", ItemType: "room"}

	rec := ts.do(t, http.MethodPost, "/api/v1/favorites", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if favorited := resp.Data.(map[string]interface{})["favorited"]; favorited != true {
		t.Errorf("first toggle favorited = %v, want true", favorited)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/favorites/u1", nil)
	resp = decodeResponse(t, rec)
	if resp.Meta.Pagination.Count != 1 {
		t.Errorf("favorites count = %d, want 1", resp.Meta.Pagination.Count)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/favorites", body)
	resp = decodeResponse(t, rec)
	if favorited := resp.Data.(map[string]interface{})["favorited"]; favorited != false {
		t.Errorf("second toggle favorited = %v, want false", favorited)
	}
}

func TestFavoriteToggleRecordsPreferenceSignals(t *testing.T) {
	ts := newTestServer(t)

	body := FavoriteToggleRequest{UserID: "u1", PropertyID: "prop-1", ItemID: "room-1", ItemType: "room"}

	// Favoriting feeds the recommendation engine a like.
	rec := ts.do(t, http.MethodPost, "/api/v1/favorites", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %s", rec.Code, rec.Body.String())
	}
	prefs, err := ts.db.GetUserPreferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if len(prefs) != 1 || prefs[0].Action != models.ActionLike || prefs[0].Item.ID != "room-1" {
		t.Fatalf("preferences after favorite = %+v, want one like for room-1", prefs)
	}

	// Unfavoriting records the reversal as its own signal.
	rec = ts.do(t, http.MethodPost, "/api/v1/favorites", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, body %s", rec.Code, rec.Body.String())
	}
	prefs, err = ts.db.GetUserPreferences(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	actions := map[models.PreferenceAction]bool{}
	for _, p := range prefs {
		actions[p.Action] = true
	}
	if !actions[models.ActionLike] || !actions[models.ActionUnlike] {
		t.Errorf("preferences after unfavorite = %+v, want both like and unlike rows", prefs)
	}
}

func TestBehaviorRecording(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/behavior", BehaviorRequest{
		UserID:     "u1",
		SessionID:  "s1",
		PagePath:   "/menu/prop-1",
		ActionType: "page_view",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("behavior status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestLoyaltyAccountLifecycle(t *testing.T) {
	ts := newTestServer(t)
	seedCustomer(t, ts.db, "cust-1", 1000)

	rec := ts.do(t, http.MethodGet, "/api/v1/loyalty/cust-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("account status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if tier := resp.Data.(map[string]interface{})["tier"]; tier != "gold" {
		t.Errorf("tier = %v, want gold", tier)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/loyalty/nobody", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown customer status = %d, want 404", rec.Code)
	}

	// Gold earns at 1.5x.
	rec = ts.do(t, http.MethodPost, "/api/v1/loyalty/cust-1/earn", EarnRequest{BasePoints: 100, Spent: 50})
	if rec.Code != http.StatusOK {
		t.Fatalf("earn status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp = decodeResponse(t, rec)
	if credited := resp.Data.(map[string]interface{})["credited_points"]; credited != float64(150) {
		t.Errorf("credited_points = %v, want 150", credited)
	}
}

func TestRedemptionEndpoint(t *testing.T) {
	ts := newTestServer(t)
	seedCustomer(t, ts.db, "cust-1", 1000)

	body := RedeemRequest{
		CustomerID:    "cust-1",
		PropertyID:    "prop-1",
		SourceService: "restaurant",
		TargetService: "spa",
		Points:        400,
	}
	rec := ts.do(t, http.MethodPost, "/api/v1/loyalty/redemptions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("redeem status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if remaining := resp.Data.(map[string]interface{})["remaining_points"]; remaining != float64(600) {
		t.Errorf("remaining_points = %v, want 600", remaining)
	}

	// Balance is 600 now; 700 more must conflict.
	body.Points = 700
	rec = ts.do(t, http.MethodPost, "/api/v1/loyalty/redemptions", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("overdraw status = %d, want 409", rec.Code)
	}
	resp = decodeResponse(t, rec)
	if resp.Error.Code != ErrCodeInsufficientPoints {
		t.Errorf("error code = %s, want %s", resp.Error.Code, ErrCodeInsufficientPoints)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/loyalty/cust-1/redemptions", nil)
	resp = decodeResponse(t, rec)
	if resp.Meta.Pagination.Count != 1 {
		t.Errorf("redemption history count = %d, want 1", resp.Meta.Pagination.Count)
	}

	body.SourceService = "spa"
	body.TargetService = "spa"
	body.Points = 10
	rec = ts.do(t, http.MethodPost, "/api/v1/loyalty/redemptions", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("same-domain status = %d, want 400", rec.Code)
	}
}

func TestOffersEndpoint(t *testing.T) {
	ts := newTestServer(t)
	seedCustomer(t, ts.db, "cust-1", 600)

	rec := ts.do(t, http.MethodGet, "/api/v1/loyalty/cust-1/offers?source=restaurant", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("offers status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Meta.Pagination.Count == 0 {
		t.Error("expected affordable offers for 600 points")
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/loyalty/cust-1/offers?source=casino", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad source status = %d, want 400", rec.Code)
	}
}

func TestQRGenerateAndScanOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	seedCustomer(t, ts.db, "cust-1", 1000)

	rec := ts.do(t, http.MethodPost, "/api/v1/qr/redemption", RedemptionQRRequest{
		CustomerID:    "cust-1",
		PropertyID:    "prop-1",
		SourceService: "restaurant",
		TargetService: "spa",
		Points:        500,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if data["customer_tier"] != "gold" {
		t.Errorf("customer_tier = %v, want gold", data["customer_tier"])
	}
	payload, _ := data["payload"].(string)
	if payload == "" {
		t.Fatal("generated code has no payload")
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/qr/scan", ScanRequest{Payload: payload})
	if rec.Code != http.StatusOK {
		t.Fatalf("scan status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp = decodeResponse(t, rec)
	redemption := resp.Data.(map[string]interface{})["redemption"].(map[string]interface{})
	if remaining := redemption["remaining_points"]; remaining != float64(500) {
		t.Errorf("remaining_points = %v, want 500", remaining)
	}

	// A redemption code is single-use.
	rec = ts.do(t, http.MethodPost, "/api/v1/qr/scan", ScanRequest{Payload: payload})
	if rec.Code != http.StatusConflict {
		t.Errorf("replay status = %d, want 409", rec.Code)
	}
}

func TestQRScanRejectsGarbage(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/qr/scan", ScanRequest{Payload: "garbage"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("scan status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error.Code != ErrCodeQRRejected {
		t.Errorf("error code = %s, want %s", resp.Error.Code, ErrCodeQRRejected)
	}
}

func TestMenuRankingFiltersAllergens(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	items := []*models.MenuItem{
		{ID: "m1", PropertyID: "prop-9", Name: "Peanut Satay", Price: 12, Allergens: []string{"peanuts"}, Popularity: 0.9, Available: true},
		{ID: "m2", PropertyID: "prop-9", Name: "Garden Salad", Price: 10, DietaryTags: []string{"vegan"}, Popularity: 0.5, Available: true},
	}
	for _, item := range items {
		if err := ts.db.UpsertMenuItem(ctx, item); err != nil {
			t.Fatalf("seed menu item: %v", err)
		}
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/menu/prop-9/rank", RankedMenuRequest{
		DietaryPreferences: []string{"vegan"},
		Allergies:          []string{"peanuts"},
		AverageSpending:    10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("rank status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	ranked := resp.Data.([]interface{})
	if len(ranked) != 1 {
		t.Fatalf("ranked count = %d, want 1 (allergen item dropped)", len(ranked))
	}
	first := ranked[0].(map[string]interface{})["item"].(map[string]interface{})
	if first["id"] != "m2" {
		t.Errorf("top item = %v, want m2", first["id"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/health", "/api/v1/health/live", "/api/v1/health/ready"} {
		rec := ts.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "api_active_requests") {
		t.Error("metrics output missing api series")
	}
}
