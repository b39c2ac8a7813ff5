package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"ecorewards/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver struct {
	users map[string]*models.User
	err   error
}

func (r stubResolver) ResolveSession(_ context.Context, token string) (*models.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.users[token], nil
}

func sessionEngine(resolver SessionResolver) *gin.Engine {
	r := gin.New()
	r.GET("/me", SessionAuth(resolver, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": CurrentUser(c).Name, "token": CurrentToken(c)})
	})
	return r
}

func TestSessionAuth(t *testing.T) {
	resolver := stubResolver{users: map[string]*models.User{"good": {Name: "Ada"}}}
	r := sessionEngine(resolver)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ada"`)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAuthStorageFailure(t *testing.T) {
	r := sessionEngine(stubResolver{err: errors.New("mongo down")})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer any")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func signed(t *testing.T, secret, role string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "abc", "role": role, "exp": exp.Unix(),
	}).SignedString([]byte(secret))
	assert.NoError(t, err)
	return tok
}

func TestAdminAuth(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AdminAuth("s3cret"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("adminId"))
	})

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := call(signed(t, "s3cret", "admin", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", w.Body.String())

	assert.Equal(t, http.StatusForbidden, call(signed(t, "s3cret", "user", time.Now().Add(time.Hour))).Code)
	assert.Equal(t, http.StatusUnauthorized, call(signed(t, "other", "admin", time.Now().Add(time.Hour))).Code)
	assert.Equal(t, http.StatusUnauthorized, call(signed(t, "s3cret", "admin", time.Now().Add(-time.Hour))).Code)
	assert.Equal(t, http.StatusUnauthorized, call("").Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://localhost:3000"))
	r.POST("/api/orders", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/orders", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}
