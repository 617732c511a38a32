package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type stubSessionTokenManager struct {
	lastRevoked    string
	lastRotateUser uuid.UUID
	lastRotateOld  string
	lastRotateBody string
	rotateRespID   string
	rotateRespTok  string
	rotateErr      error
	revokeErr      error
}

func (s *stubSessionTokenManager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	s.lastRotateUser = userID
	s.lastRotateOld = oldAccessID
	s.lastRotateBody = provided
	return s.rotateRespID, s.rotateRespTok, s.rotateErr
}

func (s *stubSessionTokenManager) Revoke(ctx context.Context, accessID string) error {
	s.lastRevoked = accessID
	return s.revokeErr
}

type stubCountRefresher struct {
	count    int
	err      error
	lastUser uuid.UUID
}

func (s *stubCountRefresher) Refresh(ctx context.Context, userID uuid.UUID) (int, error) {
	s.lastUser = userID
	return s.count, s.err
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Email:  "shopper@example.com",
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	return token, accessID
}

func refreshRequestFor(t *testing.T, token, refresh string) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]string{"refresh_token": refresh})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthLogout(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{}
	handler := AuthLogout(manager, cfg, nil)

	token, jti := mintTestToken(t, cfg, uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if manager.lastRevoked != jti {
		t.Fatalf("expected revoked %s got %s", jti, manager.lastRevoked)
	}
}

func TestAuthLogoutRequiresBearer(t *testing.T) {
	manager := &stubSessionTokenManager{}
	handler := AuthLogout(manager, testJWTConfig(), nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if manager.lastRevoked != "" {
		t.Fatalf("expected no revoke, got %s", manager.lastRevoked)
	}
}

func TestAuthRefresh(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{
		rotateRespID:  "new-jti",
		rotateRespTok: "new-refresh",
	}
	counts := &stubCountRefresher{count: 3}
	handler := AuthRefresh(manager, counts, cfg, nil)

	userID := uuid.New()
	token, jti := mintTestToken(t, cfg, userID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, refreshRequestFor(t, token, "old-refresh"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if manager.lastRotateOld != jti || manager.lastRotateBody != "old-refresh" || manager.lastRotateUser != userID {
		t.Fatalf("unexpected rotate args: %s %s %s", manager.lastRotateUser, manager.lastRotateOld, manager.lastRotateBody)
	}
	if counts.lastUser != userID {
		t.Fatalf("expected cart count refresh for %s got %s", userID, counts.lastUser)
	}

	var resp struct {
		Data refreshResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.RefreshToken != "new-refresh" {
		t.Fatalf("expected new refresh token got %s", resp.Data.RefreshToken)
	}
	if resp.Data.CartCount == nil || *resp.Data.CartCount != 3 {
		t.Fatalf("expected cart count 3 got %v", resp.Data.CartCount)
	}
	if rec.Header().Get(AccessTokenHeader) != resp.Data.AccessToken {
		t.Fatalf("expected access token header to match body")
	}

	claims, err := auth.ParseAccessToken(cfg, resp.Data.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.ID != "new-jti" || claims.UserID != userID {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthRefreshInvalidToken(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{rotateErr: session.ErrInvalidRefreshToken}
	handler := AuthRefresh(manager, nil, cfg, nil)

	token, _ := mintTestToken(t, cfg, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, refreshRequestFor(t, token, "stale"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthRefreshStoreFailureIsDependency(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{rotateErr: errors.New("redis down")}
	handler := AuthRefresh(manager, nil, cfg, nil)

	token, _ := mintTestToken(t, cfg, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, refreshRequestFor(t, token, "refresh"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestAuthRefreshSurvivesCartCountFailure(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{rotateRespID: "new-jti", rotateRespTok: "new-refresh"}
	handler := AuthRefresh(manager, &stubCountRefresher{err: errors.New("redis down")}, cfg, nil)

	token, _ := mintTestToken(t, cfg, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, refreshRequestFor(t, token, "refresh"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var resp struct {
		Data refreshResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.CartCount != nil {
		t.Fatalf("expected cart count omitted, got %d", *resp.Data.CartCount)
	}
}
