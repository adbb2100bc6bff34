// File: internal/services/tools/mail_test.go
package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBridgeProvider(t *testing.T, handler http.HandlerFunc) *BridgeMailProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	provider, err := NewBridgeMailProvider(&MailConfig{
		BridgeURL:  srv.URL,
		AccessKey:  "test-key",
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return provider
}

func TestMailReadRetriesTransientBridgeFailure(t *testing.T) {
	var calls atomic.Int32
	provider := newBridgeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"result":"1 new message"}`))
	})

	out, err := provider.Execute(context.Background(), MailRead, "user@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "1 new message", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMailGivesUpAfterConfiguredAttempts(t *testing.T) {
	var calls atomic.Int32
	provider := newBridgeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := provider.Execute(context.Background(), MailRead, "user@example.com", "")
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, ErrTypeProvider, toolErr.Type)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMailWriteRejectsEmptyContentWithoutCallingBridge(t *testing.T) {
	var calls atomic.Int32
	provider := newBridgeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := provider.Execute(context.Background(), MailWrite, "user@example.com", "")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, ErrTypeParse, toolErr.Type)
	assert.Zero(t, calls.Load())
}
