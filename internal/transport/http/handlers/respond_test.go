package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticehq/lattice/internal/domain"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func recordDomainError(t *testing.T, err error) (int, errorBody) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	rec := httptest.NewRecorder()
	respondDomainError(rec, log, "test op", err)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRespondDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"already actioned", domain.ErrAlreadyActioned, http.StatusConflict, "ALREADY_ACTIONED"},
		{"conflict", domain.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"upstream timeout", domain.ErrUpstreamTimeout, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := recordDomainError(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

// Denied and nonexistent must read identically so callers cannot probe
// for a resource's existence.
func TestForbiddenAndNotFoundShareMessage(t *testing.T) {
	_, forbidden := recordDomainError(t, domain.ErrForbidden)
	_, notFound := recordDomainError(t, domain.ErrNotFound)

	assert.Equal(t, forbidden.Error.Message, notFound.Error.Message)
}

// Unknown errors must not leak their text to the client.
func TestInternalErrorHidesDetail(t *testing.T) {
	_, body := recordDomainError(t, io.ErrUnexpectedEOF)
	assert.NotContains(t, body.Error.Message, io.ErrUnexpectedEOF.Error())
}
