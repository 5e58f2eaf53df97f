package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/saclay-assistant/backend/services"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "validation error maps to 400",
			err:            services.ErrEmptyQuestion,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name:           "unauthorized error maps to 401",
			err:            services.ErrInvalidToken,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:           "not found error maps to 404",
			err:            services.NewDomainError(services.ErrorTypeNotFound, "no such document", nil),
			expectedStatus: http.StatusNotFound,
			expectedError:  "not_found",
		},
		{
			name:           "external provider error maps to 502",
			err:            services.WrapExternal("embedding failed", errors.New("timeout")),
			expectedStatus: http.StatusBadGateway,
			expectedError:  "bad_gateway",
		},
		{
			name:           "internal error maps to 500",
			err:            services.WrapInternal("database error", errors.New("connection refused")),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
		{
			name:           "unknown error maps to 500",
			err:            errors.New("something odd"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleServiceError(rec, tt.err, zap.NewNop())

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedError)
		})
	}
}

func TestHandleServiceErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleServiceError(rec, nil, zap.NewNop())

	// Nothing written.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
