package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ecorewards/internal/apperr"
	"ecorewards/internal/models"
)

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type AdminToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminLogin issues a short-lived HS256 token for users holding the admin
// role. Anyone else gets InvalidCredentials.
func (s *Service) AdminLogin(ctx context.Context, creds Credentials) (*AdminToken, error) {
	if s.opts.JWTSecret == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated, "admin login disabled")
	}
	user, err := s.authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAdmin {
		return nil, apperr.ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.opts.AdminTokenTTL)
	claims := jwt.MapClaims{
		"sub":   user.ID.Hex(),
		"role":  string(models.RoleAdmin),
		"email": user.Email,
		"exp":   expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return nil, err
	}
	return &AdminToken{Token: signed, ExpiresAt: expiresAt}, nil
}
