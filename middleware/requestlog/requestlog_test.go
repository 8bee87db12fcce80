package requestlog

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger() (*logrus.Logger, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return l, hook
}

func fixedID() string { return "trace-1" }

func TestMiddleware_SetsTraceIDEverywhere(t *testing.T) {
	l, hook := newLogger()

	var seenCtx, seenHeader string
	h := Middleware(Options{Log: l, NewID: fixedID})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtx = TraceID(r.Context())
		seenHeader = r.Header.Get(HeaderTraceID)
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/5", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "trace-1", w.Header().Get(HeaderTraceID))
	assert.Equal(t, "trace-1", seenCtx)
	assert.Equal(t, "trace-1", seenHeader)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "request received", entries[0].Message)
	assert.Equal(t, "unknown", entries[0].Data["user_agent"])
	assert.Equal(t, "request completed", entries[1].Message)
	assert.Equal(t, http.StatusCreated, entries[1].Data["status"])
	assert.Equal(t, "trace-1", entries[1].Data["trace_id"])
	assert.Equal(t, "/5", entries[1].Data["path"])
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	l, hook := newLogger()

	h := Middleware(Options{Log: l, NewID: fixedID})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "trace-1", w.Header().Get(HeaderTraceID))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, "trace-1", body["traceId"])

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "request failed", last.Message)
}

func TestMiddleware_GeneratesUUIDByDefault(t *testing.T) {
	l, _ := newLogger()
	h := Middleware(Options{Log: l})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))

	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "http://example/", nil))
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "http://example/", nil))

	id1, id2 := w1.Header().Get(HeaderTraceID), w2.Header().Get(HeaderTraceID)
	assert.Len(t, id1, 36)
	assert.NotEqual(t, id1, id2)
}

func TestLogger_AddsTraceField(t *testing.T) {
	l, hook := newLogger()
	h := Middleware(Options{Log: l, NewID: fixedID})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Logger(r.Context(), l).Info("inside")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example/", nil))

	var inside *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "inside" {
			inside = e
		}
	}
	require.NotNil(t, inside)
	assert.Equal(t, "trace-1", inside.Data["trace_id"])
}
