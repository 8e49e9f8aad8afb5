package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/utils"
)

const csrfCookieName = "_homescout_csrf"

// GetCSRFToken issues a fresh token via the double-submit cookie
// pattern: the same value goes out in a cookie and in the body, and
// mutating requests must echo it back in the X-CSRF-Token header.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := generateRandomToken()
	if err != nil {
		logger.L.Error("Failed to generate CSRF token", "error", err)
		utils.SendJSONError(w, "Failed to generate CSRF token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
		Secure:   false, // behind TLS termination in production
		MaxAge:   3600,
	})

	w.Header().Set("X-CSRF-Token", token)
	utils.SendJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// CSRFMiddleware rejects mutating requests whose header token does not
// match the cookie token. Safe methods pass through.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get("X-CSRF-Token")
		cookie, err := r.Cookie(csrfCookieName)
		if headerToken == "" || err != nil ||
			subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) != 1 {
			logger.L.Warn("CSRF validation failed", "method", r.Method, "path", r.URL.Path)
			utils.SendJSONError(w, "CSRF token validation failed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
