// File: internal/handlers/helpers_test.go
package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriterSetsStreamingHeaders(t *testing.T) {
	rec := httptest.NewRecorder()

	_, err := newSSEWriter(rec)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

func TestSSEWriterContentEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := newSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.sendContent("hello"))
	assert.Equal(t, "data: {\"content\":\"hello\"}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestSSEWriterDoneEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := newSSEWriter(rec)
	require.NoError(t, err)

	sse.sendDone(42)
	assert.Equal(t, "data: {\"flag\":\"DONE\",\"id\":42}\n\n", rec.Body.String())
}

func TestSSEWriterErrorEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := newSSEWriter(rec)
	require.NoError(t, err)

	sse.sendError("upstream failed")
	assert.Equal(t, "data: {\"error\":\"upstream failed\"}\n\n", rec.Body.String())
}

func TestSSEWriterRawTerminator(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := newSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, sse.sendRaw("[DONE]"))
	assert.Equal(t, "data: [DONE]\n\n", rec.Body.String())
}
