package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/username/homescout/backend/src/config"
	"github.com/username/homescout/backend/src/database"
	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
	"github.com/username/homescout/backend/src/security"
	"github.com/username/homescout/backend/src/utils"
)

type OAuthHandler struct {
	authService *security.AuthService
	oauthConfig *oauth2.Config
}

func NewOAuthHandler(authService *security.AuthService) *OAuthHandler {
	return &OAuthHandler{
		authService: authService,
		oauthConfig: &oauth2.Config{
			ClientID:     config.Cfg.GoogleClientID,
			ClientSecret: config.Cfg.GoogleClientSecret,
			RedirectURL:  config.Cfg.GoogleRedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

const oauthStateCookieName = "oauth_state"

func (h *OAuthHandler) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		utils.SendJSONError(w, "Failed to initiate login", http.StatusInternalServerError)
		return
	}
	state := base64.URLEncoding.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	url := h.oauthConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *OAuthHandler) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || r.URL.Query().Get("state") != stateCookie.Value {
		logger.L.Warn("OAuth callback with bad state")
		utils.SendJSONError(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		utils.SendJSONError(w, "Authorization code missing", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		logger.L.Error("OAuth code exchange failed", "error", err)
		utils.SendJSONError(w, "Failed to exchange authorization code", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(r.Context(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		logger.L.Error("Fetching Google user info failed", "error", err)
		utils.SendJSONError(w, "Failed to fetch user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		utils.SendJSONError(w, "Failed to read user info", http.StatusInternalServerError)
		return
	}
	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil || info.Email == "" {
		logger.L.Error("Parsing Google user info failed", "error", err)
		utils.SendJSONError(w, "Failed to parse user info", http.StatusInternalServerError)
		return
	}

	user, err := model.GetUserByEmail(database.DB, info.Email)
	if err != nil {
		// First Google sign-in creates a local account with no usable
		// password.
		placeholder, err := security.GenerateOpaqueToken()
		if err != nil {
			utils.SendJSONError(w, "Failed to create user", http.StatusInternalServerError)
			return
		}
		hashed, err := h.authService.HashPassword(placeholder)
		if err != nil {
			utils.SendJSONError(w, "Failed to create user", http.StatusInternalServerError)
			return
		}
		user = &model.User{
			Username:        info.Email,
			Email:           info.Email,
			Password:        hashed,
			AuthProvider:    "google",
			IsEmailVerified: info.VerifiedEmail,
		}
		if err := user.CreateUser(database.DB); err != nil {
			logger.L.Error("Failed to create OAuth user", "email", info.Email, "error", err)
			utils.SendJSONError(w, "Failed to create user", http.StatusInternalServerError)
			return
		}
		logger.L.Info("Created user from Google sign-in", "userID", user.ID)
	}

	accessToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", user.ID))
	if err != nil {
		utils.SendJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	// Expire the state cookie.
	http.SetCookie(w, &http.Cookie{
		Name:    oauthStateCookieName,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
	})

	redirectURL := fmt.Sprintf("%s/auth/callback?token=%s", config.Cfg.FrontendBaseURL, accessToken)
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}
