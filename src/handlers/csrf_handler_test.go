package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCSRFToken(t *testing.T) {
	setupHandlerTest(t)

	rec := httptest.NewRecorder()
	GetCSRFToken(rec, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	token := body["csrfToken"]
	require.NotEmpty(t, token)
	assert.Equal(t, token, rec.Header().Get("X-CSRF-Token"))

	var cookieToken string
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookieToken = c.Value
		}
	}
	assert.Equal(t, token, cookieToken, "cookie and body must carry the same token")
}

func TestCSRFMiddleware(t *testing.T) {
	setupHandlerTest(t)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	protected := CSRFMiddleware(ok)

	t.Run("GET passes without token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/records", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("POST without token rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/records", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("POST with matching tokens passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/records", nil)
		req.Header.Set("X-CSRF-Token", "token-value")
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-value"})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("POST with mismatched tokens rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/records", nil)
		req.Header.Set("X-CSRF-Token", "token-value")
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "other-value"})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
