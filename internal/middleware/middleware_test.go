// File: internal/middleware/middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordLogger) append(dst *[]string, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, msg)
}

func (l *recordLogger) Info(msg string, keysAndValues ...interface{})  { l.append(&l.infos, msg) }
func (l *recordLogger) Error(msg string, keysAndValues ...interface{}) { l.append(&l.errors, msg) }
func (l *recordLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (l *recordLogger) Warn(msg string, keysAndValues ...interface{})  {}

func TestRecoverPanicConvertsPanicToServerError(t *testing.T) {
	logger := &recordLogger{}
	handler := RecoverPanic(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, logger.errors, 1)
}

func TestLoggingMiddlewarePreservesFlusher(t *testing.T) {
	// SSE handlers assert http.Flusher on the writer they receive, so
	// the status-recording wrapper must forward it.
	logger := &recordLogger{}
	var sawFlusher bool
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawFlusher = w.(http.Flusher)
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.True(t, sawFlusher)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, logger.infos, 1)
}
