package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAuthFlow_RegisterLoginProfileRefresh(t *testing.T) {
	app := setupApp(t)

	access, refresh, userID := app.registerUser(t, "auth@test.com", "password123")
	if access == "" || refresh == "" || userID == "" {
		t.Fatalf("incomplete registration response: access=%q refresh=%q id=%q", access, refresh, userID)
	}

	loginAccess, loginRefresh := app.loginUser(t, "Auth@Test.com", "password123")

	rec := app.request(http.MethodGet, "/api/v1/profile", "", loginAccess)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := parseJSON(t, rec)["user"].(map[string]interface{})
	if user["id"] != userID || user["email"] != "auth@test.com" {
		t.Errorf("unexpected profile %v", user)
	}
	if user["alerts_enabled"] != true {
		t.Errorf("expected alerts enabled by default, got %v", user["alerts_enabled"])
	}
	if user["last_login_at"] == nil {
		t.Error("expected last_login_at after login")
	}

	rec = app.request(http.MethodPost, "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, loginRefresh), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rotated := parseJSON(t, rec)["access_token"].(string)

	if rec = app.request(http.MethodGet, "/api/v1/profile", "", rotated); rec.Code != http.StatusOK {
		t.Fatalf("profile with refreshed token: expected 200, got %d", rec.Code)
	}

	// A refresh token from before the latest login no longer matches the stored hash.
	rec = app.request(http.MethodPost, "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, refresh), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("stale refresh token: expected 401, got %d", rec.Code)
	}
}

func TestAuthFlow_RegisterRejected(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "dup@test.com", "password123")

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"duplicate email, other case", `{"email":"DUP@test.com","password":"password123"}`, http.StatusConflict, "DUPLICATE_EMAIL"},
		{"short password", `{"email":"short@test.com","password":"abc"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad email", `{"email":"nope","password":"password123"}`, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(http.MethodPost, "/api/v1/auth/register", tt.body, "")
			if rec.Code != tt.status || errorCode(t, rec) != tt.code {
				t.Errorf("expected %d %s, got %d: %s", tt.status, tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthFlow_LockoutAfterFailedLogins(t *testing.T) {
	app := setupApp(t)
	app.registerUser(t, "lockout@test.com", "password123")

	wrong := `{"email":"lockout@test.com","password":"wrong-password"}`
	for i := 1; i <= 5; i++ {
		rec := app.request(http.MethodPost, "/api/v1/auth/login", wrong, "")
		if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "INVALID_CREDENTIALS" {
			t.Fatalf("attempt %d: expected INVALID_CREDENTIALS, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	for _, body := range []string{wrong, `{"email":"lockout@test.com","password":"password123"}`} {
		rec := app.request(http.MethodPost, "/api/v1/auth/login", body, "")
		if rec.Code != http.StatusLocked || errorCode(t, rec) != "ACCOUNT_LOCKED" {
			t.Fatalf("expected ACCOUNT_LOCKED, got %d: %s", rec.Code, rec.Body.String())
		}
	}
}

func TestAuthFlow_TokenChecks(t *testing.T) {
	app := setupApp(t)
	access, refresh, _ := app.registerUser(t, "tokens@test.com", "password123")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
	}{
		{"profile without token", http.MethodGet, "/api/v1/profile", "", ""},
		{"profile with garbage token", http.MethodGet, "/api/v1/profile", "", "invalid-token"},
		{"profile with refresh token", http.MethodGet, "/api/v1/profile", "", refresh},
		{"refresh with access token", http.MethodPost, "/api/v1/auth/refresh", fmt.Sprintf(`{"refresh_token":%q}`, access), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(tt.method, tt.path, tt.body, tt.token)
			if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "UNAUTHORIZED" {
				t.Errorf("expected 401 UNAUTHORIZED, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthFlow_DisableAlerts(t *testing.T) {
	app := setupApp(t)
	access, _, _ := app.registerUser(t, "quiet@test.com", "password123")

	rec := app.request(http.MethodPut, "/api/v1/profile/alerts", `{"enabled":false}`, access)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if user := parseJSON(t, rec)["user"].(map[string]interface{}); user["alerts_enabled"] != false {
		t.Errorf("expected alerts disabled, got %v", user["alerts_enabled"])
	}

	rec = app.request(http.MethodPut, "/api/v1/profile/alerts", `{}`, access)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without enabled, got %d", rec.Code)
	}
}
