// Package api_test exercises the router over httptest without a database:
// route wiring, request validation, the auth middleware, rate limiting,
// the response envelope, and CORS.
package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campusmess/mealmarket/internal/api"
	"github.com/campusmess/mealmarket/internal/config"
	"github.com/campusmess/mealmarket/internal/service"
)

func testCfg() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:  "development",
			Port: "8080",
		},
		JWT: config.JWTConfig{
			AccessSecret:  "test-access-secret-abcdefghijklmnop",
			RefreshSecret: "test-refresh-secret-abcdefghijklmnop",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
		},
	}
}

// buildTestRouter wires a real AuthService (token verification needs only
// the secrets, not the database) and leaves the data-backed services nil.
// Routes that reach a nil service panic into gin.Recovery and come back as
// 500, which is fine: these tests stop at the middleware layer.
func buildTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testCfg()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := service.NewAuthService(nil, nil, cfg.JWT, logger)

	return api.SetupRouter(api.RouterDeps{
		AuthSvc: authSvc,
		Hub:     nil,
		Cfg:     cfg,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v (body %q)", err, rr.Body.String())
	}
	return m
}

func TestHealthEndpoint(t *testing.T) {
	h := buildTestRouter(t)
	if rr := do(t, h, http.MethodGet, "/health", "", nil); rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

func TestAuthValidation_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	cases := []struct {
		name, path, payload string
	}{
		{"register empty body", "/api/auth/register", `{}`},
		{"register bad email", "/api/auth/register", `{"name":"Asha","email":"notanemail","password":"password123"}`},
		{"register short password", "/api/auth/register", `{"name":"Asha","email":"asha@campus.edu","password":"short"}`},
		{"login empty body", "/api/auth/login", `{}`},
		{"refresh empty body", "/api/auth/refresh", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tc.path, tc.payload, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("POST %s = %d, want 400", tc.path, rr.Code)
			}
			body := decodeBody(t, rr)
			if body["success"] != false {
				t.Errorf("envelope.success = %v, want false", body["success"])
			}
			if body["code"] == nil {
				t.Errorf("error envelope missing code: %v", body)
			}
		})
	}
}

// Every route behind the auth middleware must reject a bare request.
func TestProtectedRoutes_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	const listing = "11111111-1111-1111-1111-111111111111"
	routes := []struct {
		method, path, payload string
	}{
		{http.MethodGet, "/api/me", ""},
		{http.MethodGet, "/api/me/settings", ""},
		{http.MethodPost, "/api/listings", `{"mess":"North Mess","meal_time":"lunch","date":"2025-03-11","pricing_mode":"fixed_decay","target_price":"100.00","price_drop_amount":"10.00","drop_interval_sec":600}`},
		{http.MethodGet, "/api/listings/my", ""},
		{http.MethodGet, "/api/listings/purchases", ""},
		{http.MethodGet, "/api/listings/bidding", ""},
		{http.MethodDelete, "/api/listings/" + listing, ""},
		{http.MethodPost, "/api/listings/" + listing + "/bids", `{"amount":"85.00"}`},
		{http.MethodDelete, "/api/listings/" + listing + "/bids", ""},
		{http.MethodPost, "/api/ratings", `{"listing_id":"` + listing + `","stars":5}`},
		{http.MethodPost, "/api/reports", ""},
		{http.MethodGet, "/api/payments", ""},
		{http.MethodGet, "/api/notifications", ""},
		{http.MethodPost, "/api/notifications/read-all", ""},
	}
	for _, rt := range routes {
		rr := do(t, h, rt.method, rt.path, rt.payload, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", rt.method, rt.path, rr.Code)
		}
	}
}

func TestBadTokens_Return401(t *testing.T) {
	h := buildTestRouter(t)
	// Structurally valid JWT with a bogus signature.
	forged := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9" +
		".eyJzdWIiOiIxMjM0NTY3ODkwIiwicm9sZSI6InVzZXIiLCJ0eXBlIjoiYWNjZXNzIn0" +
		".BADSIG"
	for name, token := range map[string]string{
		"garbage": "not.a.valid.jwt",
		"forged":  forged,
	} {
		t.Run(name, func(t *testing.T) {
			rr := do(t, h, http.MethodGet, "/api/me", "", map[string]string{
				"Authorization": "Bearer " + token,
			})
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("GET /api/me with %s token = %d, want 401", name, rr.Code)
			}
		})
	}
}

func TestBrowseRoutes_ArePublic(t *testing.T) {
	h := buildTestRouter(t)
	// Anything but a 401 proves the route skips the auth middleware. The
	// nil services make a 500 the likely success-path answer here.
	for _, path := range []string{
		"/api/listings",
		"/api/listings/11111111-1111-1111-1111-111111111111",
		"/api/listings/11111111-1111-1111-1111-111111111111/bids",
		"/api/users/11111111-1111-1111-1111-111111111111",
	} {
		if rr := do(t, h, http.MethodGet, path, "", nil); rr.Code == http.StatusUnauthorized {
			t.Errorf("GET %s should not require auth", path)
		}
	}
}

func TestReportReasons_IsPublicAndStatic(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/reports/reasons", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/reports/reasons = %d, want 200", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != true {
		t.Errorf("envelope.success = %v, want true", body["success"])
	}
	reasons, ok := body["data"].([]interface{})
	if !ok || len(reasons) == 0 {
		t.Errorf("expected a non-empty reason list, got %v", body["data"])
	}
}

func TestErrorEnvelope_Shape(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodPost, "/api/auth/register", `{}`, nil)
	body := decodeBody(t, rr)

	for _, field := range []string{"success", "error", "code"} {
		if _, ok := body[field]; !ok {
			t.Errorf("error envelope missing %q: %v", field, body)
		}
	}
}

func TestAuthRateLimit_BurstGets429(t *testing.T) {
	h := buildTestRouter(t)
	// The auth group allows a short burst per IP. Hammering login well past
	// the burst capacity must produce at least one 429.
	sawLimited := false
	for i := 0; i < 60; i++ {
		if rr := do(t, h, http.MethodPost, "/api/auth/login", `{}`, nil); rr.Code == http.StatusTooManyRequests {
			sawLimited = true
			break
		}
	}
	if !sawLimited {
		t.Error("60 rapid login attempts never hit the rate limit")
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent && rr.Code != http.StatusOK {
		t.Errorf("OPTIONS /api/auth/login = %d, want 204 or 200", rr.Code)
	}
	if allow := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(allow, "POST") {
		t.Errorf("Allow-Methods missing POST, got %q", allow)
	}
}

func TestCORS_DevAllowsAnyOrigin(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("dev CORS origin = %q, want *", origin)
	}
}
