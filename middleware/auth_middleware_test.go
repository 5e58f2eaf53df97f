package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubValidator struct {
	claims *Claims
	err    error
}

func (s *stubValidator) ValidateToken(context.Context, string) (*Claims, error) {
	return s.claims, s.err
}

func performAuthed(t *testing.T, validator TokenValidator, authHeader string) (*httptest.ResponseRecorder, *Claims) {
	t.Helper()

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	mw := NewAuthMiddleware(validator, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	mw.RequireAuth(next).ServeHTTP(rec, req)

	return rec, seen
}

func TestRequireAuthValidToken(t *testing.T) {
	validator := &stubValidator{claims: &Claims{Sub: "user-1"}}

	rec, claims := performAuthed(t, validator, "Bearer some-token")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.Sub)
}

func TestRequireAuthMissingToken(t *testing.T) {
	validator := &stubValidator{claims: &Claims{Sub: "user-1"}}

	rec, _ := performAuthed(t, validator, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	validator := &stubValidator{claims: &Claims{Sub: "user-1"}}

	rec, _ := performAuthed(t, validator, "Basic dXNlcjpwYXNz")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthInvalidToken(t *testing.T) {
	validator := &stubValidator{err: errors.New("signature mismatch")}

	rec, _ := performAuthed(t, validator, "Bearer bad-token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTValidatorValidToken(t *testing.T) {
	validator := NewJWTValidator("test-secret")

	now := time.Now()
	signed := signToken(t, "test-secret", jwt.MapClaims{
		"sub": "student-42",
		"iss": "saclay-assistant",
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	})

	claims, err := validator.ValidateToken(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "student-42", claims.Sub)
	assert.Equal(t, "saclay-assistant", claims.Iss)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.Exp)
}

func TestJWTValidatorWrongSecret(t *testing.T) {
	validator := NewJWTValidator("test-secret")

	signed := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "student-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := validator.ValidateToken(context.Background(), signed)
	require.Error(t, err)
}

func TestJWTValidatorExpiredToken(t *testing.T) {
	validator := NewJWTValidator("test-secret")

	signed := signToken(t, "test-secret", jwt.MapClaims{
		"sub": "student-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := validator.ValidateToken(context.Background(), signed)
	require.Error(t, err)
}

func TestJWTValidatorRejectsUnsignedAlg(t *testing.T) {
	validator := NewJWTValidator("test-secret")

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "student-42",
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = validator.ValidateToken(context.Background(), signed)
	require.Error(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{name: "bearer token", header: "Bearer abc123", expected: "abc123"},
		{name: "lowercase scheme", header: "bearer abc123", expected: "abc123"},
		{name: "missing header", header: "", expected: ""},
		{name: "wrong scheme", header: "Basic abc123", expected: ""},
		{name: "no token", header: "Bearer", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.expected, extractBearerToken(req))
		})
	}
}
