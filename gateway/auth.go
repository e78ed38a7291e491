package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "sqsgateway"

// GenerateToken signs an HS256 token accepted by a gateway configured with secret.
func GenerateToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// authorize guards mutating routes. Without a configured secret it is a no-op.
func (g *Gateway) authorize(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.authSecret == nil {
			next(w, r)
			return
		}
		if err := g.checkToken(r); err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r)
	})
}

func (g *Gateway) checkToken(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("%w: missing Authorization header", errUnauthorized)
	}
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return fmt.Errorf("%w: expected a Bearer token", errUnauthorized)
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return g.authSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: invalid token", errUnauthorized)
	}
	return nil
}
