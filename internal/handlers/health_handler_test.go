// File: internal/handlers/health_handler_test.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksamadi/omnichat/internal/services"
)

type stubChecker struct {
	err error
}

func (s stubChecker) HealthCheck(ctx context.Context) error { return s.err }

func healthResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthReportsOKWhenAllComponentsHealthy(t *testing.T) {
	h := NewHealthHandler(&services.NoOpLogger{})
	h.Register("mail_bridge", stubChecker{})
	h.Register("pinecone", stubChecker{})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := healthResponse(t, rec)
	assert.Equal(t, "ok", body["status"])
	components := body["components"].(map[string]any)
	assert.Equal(t, "ok", components["mail_bridge"])
	assert.Equal(t, "ok", components["pinecone"])
}

func TestHealthReportsDegradedComponent(t *testing.T) {
	h := NewHealthHandler(&services.NoOpLogger{})
	h.Register("mail_bridge", stubChecker{})
	h.Register("pinecone", stubChecker{err: errors.New("index unreachable")})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := healthResponse(t, rec)
	assert.Equal(t, "degraded", body["status"])
	components := body["components"].(map[string]any)
	assert.Equal(t, "ok", components["mail_bridge"])
	assert.Equal(t, "index unreachable", components["pinecone"])
}

func TestHealthSkipsNilCheckers(t *testing.T) {
	h := NewHealthHandler(&services.NoOpLogger{})
	h.Register("mail_bridge", nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := healthResponse(t, rec)
	assert.Empty(t, body["components"])
}
