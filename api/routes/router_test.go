package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"

	pkgAuth "github.com/soukly/soukly-backend/pkg/auth"
	"github.com/soukly/soukly-backend/pkg/config"
	"github.com/soukly/soukly-backend/pkg/db/models"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/redis"

	"github.com/soukly/soukly-backend/internal/wallets"
)

type memoryStore struct {
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Ping(ctx context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", nil)
}

func (m *memoryStore) Set(ctx context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	m.data[key] = value.(string)
	return goredis.NewStatusResult("OK", nil)
}

func (m *memoryStore) Get(ctx context.Context, key string) *goredis.StringCmd {
	if v, ok := m.data[key]; ok {
		return goredis.NewStringResult(v, nil)
	}
	return goredis.NewStringResult("", goredis.Nil)
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, _ time.Duration) *goredis.BoolCmd {
	if _, ok := m.data[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	m.data[key] = value.(string)
	return goredis.NewBoolResult(true, nil)
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	var removed int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			removed++
		}
	}
	return goredis.NewIntResult(removed, nil)
}

type routerWallets struct {
	wallets.Service
}

func (routerWallets) GetWallet(ctx context.Context, sellerID uuid.UUID) (*models.Wallet, error) {
	return &models.Wallet{SellerID: sellerID, PendingCents: 100, BalanceCents: 50}, nil
}

func (routerWallets) ListEntries(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.WalletEntry, error) {
	return nil, nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "soukly-test", ExpirationMinutes: 30},
	}
	return NewRouter(Params{
		Config:  cfg,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Redis:   redis.NewWithStore(newMemoryStore()),
		Wallets: routerWallets{},
	})
}

func mintToken(t *testing.T, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(
		config.JWTConfig{Secret: "router-secret", Issuer: "soukly-test", ExpirationMinutes: 30},
		time.Now(),
		pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: role},
	)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthLive(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	testRouter(t).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterRejectsAnonymousAPI(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	resp := httptest.NewRecorder()
	testRouter(t).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterWalletWithToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.ActorRoleSeller))
	resp := httptest.NewRecorder()
	testRouter(t).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRouterAdminGroupForbidsSellers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/disputes", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.ActorRoleSeller))
	resp := httptest.NewRecorder()
	testRouter(t).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
