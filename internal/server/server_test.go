package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ecorewards/internal/auth"
	"ecorewards/internal/catalog"
	"ecorewards/internal/chain"
	"ecorewards/internal/chat"
	"ecorewards/internal/config"
	"ecorewards/internal/handlers"
	"ecorewards/internal/idgen"
	"ecorewards/internal/ledger"
	"ecorewards/internal/memstore"
	"ecorewards/internal/middleware"
	"ecorewards/internal/models"
	"ecorewards/internal/orders"
)

type testApp struct {
	engine *gin.Engine
	users  *memstore.Users
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	cfg := &config.Config{
		Debug:         true,
		CORSOrigin:    "http://localhost:3000",
		JWTSecret:     "test-secret",
		AdminTokenTTL: time.Hour,
		SessionTTL:    24 * time.Hour,
		Chat:          config.Chat{BaseURL: "http://127.0.0.1:1/", Model: "m"},
	}

	users := memstore.NewUsers()
	products := memstore.NewProducts()
	cat := catalog.NewService(products, log)
	_, err := cat.Seed(context.Background())
	require.NoError(t, err)

	mirror := chain.NewMirror(nil, chain.Disabled{}, chain.MirrorOptions{}, log)
	authSvc := auth.NewService(users, memstore.NewSessions(), auth.Options{
		SessionTTL:    cfg.SessionTTL,
		SignupBonus:   500,
		JWTSecret:     cfg.JWTSecret,
		AdminTokenTTL: cfg.AdminTokenTTL,
		BcryptCost:    bcrypt.MinCost,
	}, log)
	ledgerSvc := ledger.NewService(users, mirror, log)
	refs, err := idgen.NewGenerator(1, "test")
	require.NoError(t, err)
	orderSvc := orders.NewService(memstore.NewOrders(), ledgerSvc, cat, mirror, refs, orders.Options{DeliverySurcharge: 50}, log)

	h := &Handlers{
		Auth:     handlers.NewAuth(authSvc, cfg, log),
		User:     handlers.NewUser(ledgerSvc, authSvc, mirror, log),
		Products: handlers.NewProducts(cat, log),
		Orders:   handlers.NewOrders(orderSvc, log),
		Chat:     handlers.NewChat(chat.NewAssistant(cfg.Chat, log), log),
		Admin:    handlers.NewAdmin(authSvc, ledgerSvc, orderSvc, log),
	}
	engine := NewEngine(cfg, h, NewGuards(cfg, authSvc, log), log)
	return &testApp{engine: engine, users: users}
}

type call struct {
	method string
	path   string
	body   any
	cookie string
	bearer string
	header map[string]string
}

func (a *testApp) do(t *testing.T, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: c.cookie})
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func sessionCookie(w *httptest.ResponseRecorder) string {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c.Value
		}
	}
	return ""
}

func (a *testApp) register(t *testing.T, email string) (string, map[string]any) {
	t.Helper()
	w, body := a.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"name": "Ada", "email": email, "password": "correct-horse",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := sessionCookie(w)
	require.NotEmpty(t, token)
	return token, body
}

func (a *testApp) productIDs(t *testing.T) map[string]string {
	t.Helper()
	w, body := a.do(t, call{method: http.MethodGet, path: "/api/products"})
	require.Equal(t, http.StatusOK, w.Code)
	list := body["products"].([]any)
	require.Len(t, list, 8)
	ids := make(map[string]string)
	for _, raw := range list {
		p := raw.(map[string]any)
		ids[p["slug"].(string)] = p["id"].(string)
	}
	return ids
}

func TestCheckoutFlow(t *testing.T) {
	app := newTestApp(t)
	token, reg := app.register(t, "ada@example.com")
	assert.Equal(t, float64(500), reg["points"])
	assert.Equal(t, "Bronze", reg["tier"])
	ids := app.productIDs(t)

	w, body := app.do(t, call{method: http.MethodPost, path: "/api/orders", cookie: token, body: map[string]any{
		"items": []map[string]any{
			{"productId": ids["recycled-notebook"], "quantity": 1, "price": 1},
			{"productId": ids["recycled-tote-bag"], "quantity": 1},
		},
		"deliveryMethod": "pickup",
		"totalPoints":    1,
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := body["order"].(map[string]any)
	assert.Equal(t, float64(500), order["totalPoints"])
	assert.Equal(t, "Processing", order["status"])
	orderID := order["id"].(string)

	w, body = app.do(t, call{method: http.MethodGet, path: "/api/user/balance", cookie: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["points"])

	w, body = app.do(t, call{method: http.MethodPost, path: "/api/orders", cookie: token, body: map[string]any{
		"items":          []map[string]any{{"productId": ids["bamboo-toothbrush"], "quantity": 1}},
		"deliveryMethod": "pickup",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_POINTS", body["code"])

	w, body = app.do(t, call{method: http.MethodGet, path: "/api/orders", cookie: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["orders"], 1)

	w, _ = app.do(t, call{method: http.MethodGet, path: "/api/orders/" + orderID, cookie: token})
	assert.Equal(t, http.StatusOK, w.Code)

	other, _ := app.register(t, "eve@example.com")
	w, body = app.do(t, call{method: http.MethodGet, path: "/api/orders/" + orderID, bearer: other})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])

	w, body = app.do(t, call{method: http.MethodGet, path: "/api/user/activities", cookie: token})
	require.Equal(t, http.StatusOK, w.Code)
	acts := body["activities"].([]any)
	require.Len(t, acts, 2)
	assert.Equal(t, float64(-500), acts[0].(map[string]any)["delta"])
}

func TestIdempotencyKeyHeader(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.register(t, "retry@example.com")
	ids := app.productIDs(t)

	req := call{method: http.MethodPost, path: "/api/orders", cookie: token,
		header: map[string]string{"Idempotency-Key": "k-1"},
		body: map[string]any{
			"items":          []map[string]any{{"productId": ids["bamboo-toothbrush"], "quantity": 1}},
			"deliveryMethod": "pickup",
		}}
	w1, b1 := app.do(t, req)
	require.Equal(t, http.StatusCreated, w1.Code)
	w2, b2 := app.do(t, req)
	require.Equal(t, http.StatusCreated, w2.Code)
	assert.Equal(t, b1["order"].(map[string]any)["id"], b2["order"].(map[string]any)["id"])

	_, body := app.do(t, call{method: http.MethodGet, path: "/api/user/balance", cookie: token})
	assert.Equal(t, float64(350), body["points"])
}

func TestValidationStatuses(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.register(t, "v@example.com")
	ids := app.productIDs(t)

	w, body := app.do(t, call{method: http.MethodPost, path: "/api/orders", cookie: token, body: map[string]any{
		"items": []any{}, "deliveryMethod": "pickup",
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CART", body["code"])

	w, body = app.do(t, call{method: http.MethodPost, path: "/api/orders", cookie: token, body: map[string]any{
		"items":          []map[string]any{{"productId": ids["bamboo-toothbrush"], "quantity": 1}},
		"deliveryMethod": "delivery",
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ADDRESS", body["code"])

	w, _ = app.do(t, call{method: http.MethodPost, path: "/api/orders", body: map[string]any{}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = app.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"email": "v@example.com", "password": "wrong-password",
	}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])

	w, body = app.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"name": "Dup", "email": "v@example.com", "password": "correct-horse",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", body["code"])
}

func TestLogoutEndsSession(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.register(t, "out@example.com")

	w, body := app.do(t, call{method: http.MethodGet, path: "/api/auth/me", cookie: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "out@example.com", body["user"].(map[string]any)["email"])

	w, _ = app.do(t, call{method: http.MethodPost, path: "/api/auth/logout", cookie: token})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(t, call{method: http.MethodGet, path: "/api/auth/me", cookie: token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWalletEndpoints(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.register(t, "w@example.com")

	w, _ := app.do(t, call{method: http.MethodGet, path: "/api/user/wallet/balance", cookie: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = app.do(t, call{method: http.MethodPost, path: "/api/user/wallet", cookie: token,
		body: map[string]string{"walletAddress": "0xnope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := app.do(t, call{method: http.MethodPost, path: "/api/user/wallet", cookie: token,
		body: map[string]string{"walletAddress": "0x52908400098527886e0f7030069857d2e4169ee7"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", body["user"].(map[string]any)["walletAddress"])

	w, body = app.do(t, call{method: http.MethodGet, path: "/api/user/wallet/balance", cookie: token})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "EXTERNAL_LEDGER_UNAVAILABLE", body["code"])
}

func TestAdminEndpoints(t *testing.T) {
	app := newTestApp(t)
	shopper, reg := app.register(t, "shopper@example.com")
	userID := reg["userId"].(string)
	app.register(t, "admin@example.com")
	require.NoError(t, app.users.SetRole(context.Background(), "admin@example.com", models.RoleAdmin))

	w, _ := app.do(t, call{method: http.MethodPost, path: "/admin/login", body: map[string]string{
		"email": "shopper@example.com", "password": "correct-horse",
	}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := app.do(t, call{method: http.MethodPost, path: "/admin/login", body: map[string]string{
		"email": "admin@example.com", "password": "correct-horse",
	}})
	require.Equal(t, http.StatusOK, w.Code)
	adminToken := body["token"].(string)

	w, _ = app.do(t, call{method: http.MethodPost, path: "/admin/api/users/" + userID + "/credit", bearer: shopper,
		body: map[string]any{"amount": 100}})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "session tokens are not admin tokens")

	w, body = app.do(t, call{method: http.MethodPost, path: "/admin/api/users/" + userID + "/credit", bearer: adminToken,
		body: map[string]any{"amount": 600, "description": "Recycled laptop"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(1100), user["points"])
	assert.Equal(t, "Silver", user["tier"])

	ids := app.productIDs(t)
	w, body = app.do(t, call{method: http.MethodPost, path: "/api/orders", cookie: shopper, body: map[string]any{
		"items":          []map[string]any{{"productId": ids["solar-power-bank"], "quantity": 1}},
		"deliveryMethod": "delivery",
		"deliveryAddress": map[string]string{
			"firstName": "Ada", "lastName": "L", "address": "1 Green St", "city": "Leeds",
			"state": "WY", "zip": "LS1", "phone": "555",
		},
	}})
	require.Equal(t, http.StatusConflict, w.Code, "1200 + 50 exceeds 1100")

	w, body = app.do(t, call{method: http.MethodPost, path: "/api/orders", cookie: shopper, body: map[string]any{
		"items":          []map[string]any{{"productId": ids["led-desk-lamp"], "quantity": 1}},
		"deliveryMethod": "pickup",
	}})
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := body["order"].(map[string]any)["id"].(string)

	w, body = app.do(t, call{method: http.MethodPut, path: "/admin/api/orders/" + orderID + "/status", bearer: adminToken,
		body: map[string]string{"status": "Shipped"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Shipped", body["order"].(map[string]any)["status"])

	w, _ = app.do(t, call{method: http.MethodPut, path: "/admin/api/orders/" + orderID + "/status", bearer: adminToken,
		body: map[string]string{"status": "Processing"}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestChatWithoutUpstream(t *testing.T) {
	app := newTestApp(t)
	w, body := app.do(t, call{method: http.MethodPost, path: "/api/chat", body: map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "How do I recycle a TV?"}},
	}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "EXTERNAL_UNAVAILABLE", body["code"])

	w, _ = app.do(t, call{method: http.MethodPost, path: "/api/chat", body: map[string]any{"messages": []any{}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
