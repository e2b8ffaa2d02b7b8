package connection

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtSigner mints HS256 bearer tokens
type jwtSigner struct {
	secretKey string
	subject   string
	tokenTTL  time.Duration
}

func newJWTSigner(secretKey, subject string, tokenTTL time.Duration) *jwtSigner {
	if tokenTTL <= 0 {
		tokenTTL = time.Minute
	}
	return &jwtSigner{secretKey: secretKey, subject: subject, tokenTTL: tokenTTL}
}

func (s *jwtSigner) sign(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   s.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}
