package sandbox

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, token string) http.Handler {
	t.Helper()
	return NewHandler(newTestService(t), token, zap.NewNop()).Router()
}

func do(t *testing.T, h http.Handler, method, target, body, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHandler_Auth(t *testing.T) {
	h := newTestRouter(t, "secret")

	rec, body := do(t, h, http.MethodGet, "/api/account", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", body["error"])

	rec, _ = do(t, h, http.MethodGet, "/api/account", "", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Quotes(t *testing.T) {
	h := newTestRouter(t, "")

	rec, body := do(t, h, http.MethodGet, "/api/quotes?symbols=x,%20y,zzz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	quotes := body["quotes"].(map[string]interface{})
	assert.Len(t, quotes, 2)
	assert.Contains(t, quotes, "X")
	assert.Contains(t, quotes, "Y")

	rec, _ = do(t, h, http.MethodGet, "/api/quotes", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_TradeFlow(t *testing.T) {
	h := newTestRouter(t, "")

	rec, body := do(t, h, http.MethodPost, "/api/trades", `{"symbol":"x","side":"buy","quantity":100}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	record := body["record"].(map[string]interface{})
	assert.Equal(t, "BUY", record["side"])

	rec, body = do(t, h, http.MethodGet, "/api/account", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	positions := body["positions"].([]interface{})
	require.Len(t, positions, 1)
	assert.Equal(t, "X", positions[0].(map[string]interface{})["symbol"])

	rec, body = do(t, h, http.MethodGet, "/api/records?limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["records"], 1)
}

func TestHandler_TradeErrors(t *testing.T) {
	h := newTestRouter(t, "")

	tests := []struct {
		body string
		code int
	}{
		{`not json`, http.StatusBadRequest},
		{`{"symbol":"X","side":"buy","quantity":0}`, http.StatusBadRequest},
		{`{"symbol":"NOPE","side":"buy","quantity":1}`, http.StatusNotFound},
		{`{"symbol":"Y","side":"buy","quantity":100000}`, http.StatusUnprocessableEntity},
		{`{"symbol":"X","side":"sell","quantity":1}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		rec, body := do(t, h, http.MethodPost, "/api/trades", tt.body, "")
		assert.Equal(t, tt.code, rec.Code, tt.body)
		assert.NotEmpty(t, body["error"], tt.body)
	}
}
