package middleware

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTValidator validates HS256-signed tokens against a shared secret.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a new JWTValidator
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

var _ TokenValidator = (*JWTValidator)(nil)

// ValidateToken parses and verifies tokenString and returns its claims.
// Expiration is enforced by the parser.
func (v *JWTValidator) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	claims := &Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Sub = sub
	}
	if iss, err := mapClaims.GetIssuer(); err == nil {
		claims.Iss = iss
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.Exp = exp.Unix()
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.Iat = iat.Unix()
	}

	return claims, nil
}
