package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func echo(captured *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		*captured = string(data)
		w.WriteHeader(http.StatusOK)
	})
}

func TestBodyLimitAllowsWithinLimit(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 10, RequireJSON: true}.Middleware(echo(&captured))

	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, `{"a":1}`, captured)
}

func TestBodyLimitRejectsOversized(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 5}.Middleware(echo(&captured))

	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader("excessive"))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")
	require.Contains(t, rr.Body.String(), `"maxBytes":5`)
	require.Empty(t, captured)
}

func TestBodyLimitRejectsContentLength(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 5}.Middleware(echo(&captured))

	req := httptest.NewRequest(http.MethodPut, "/sales/s1", strings.NewReader("content"))
	req.ContentLength = 100
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBodyLimitRequiresJSON(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 100, RequireJSON: true}.Middleware(echo(&captured))

	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader("amount=10"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestBodyLimitIgnoresReads(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 1, RequireJSON: true}.Middleware(echo(&captured))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/lookup/products?q=teh", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
