package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/username/homescout/backend/src/config"
	"github.com/username/homescout/backend/src/database"
	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
	"github.com/username/homescout/backend/src/security"
	"github.com/username/homescout/backend/src/services"
	"github.com/username/homescout/backend/src/utils"
)

type UserHandler struct {
	authService  *security.AuthService
	emailService services.EmailService
}

func NewUserHandler(authService *security.AuthService, emailService services.EmailService) *UserHandler {
	return &UserHandler{
		authService:  authService,
		emailService: emailService,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.SendJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	if _, err := model.GetUserByUsername(database.DB, req.Username); err == nil {
		utils.SendJSONError(w, "Username already taken", http.StatusConflict)
		return
	}
	if _, err := model.GetUserByEmail(database.DB, req.Email); err == nil {
		utils.SendJSONError(w, "Email already registered", http.StatusConflict)
		return
	}

	hashedPassword, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.L.Error("Failed to hash password during registration", "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		Password:     hashedPassword,
		AuthProvider: "local",
	}
	if err := user.CreateUser(database.DB); err != nil {
		logger.L.Error("Failed to create user", "username", req.Username, "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	token, err := security.GenerateOpaqueToken()
	if err != nil {
		logger.L.Error("Failed to generate verification token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}
	expiresAt := time.Now().Add(config.Cfg.VerificationTokenExpiry)
	if err := user.SetVerificationToken(database.DB, token, expiresAt); err != nil {
		logger.L.Error("Failed to store verification token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	go func() {
		if err := h.emailService.SendVerificationEmail(user.Email, user.Username, token); err != nil {
			logger.L.Error("Failed to send verification email", "userID", user.ID, "error", err)
		}
	}()

	logger.L.Info("User registered", "userID", user.ID, "username", user.Username)
	utils.SendJSON(w, http.StatusCreated, map[string]string{
		"message": "Registration successful. Please check your email to verify your account.",
	})
}

func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByUsername(database.DB, credentials.Username)
	if err != nil {
		logger.L.Debug("Login user lookup failed", "username", credentials.Username, "error", err)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err := h.authService.CompareHashAndPassword(user.Password, credentials.Password); err != nil {
		logger.L.Debug("Login password check failed", "username", credentials.Username)
		utils.SendJSONError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if !user.IsEmailVerified {
		utils.SendJSONError(w, "Email not verified. Please check your inbox.", http.StatusForbidden)
		return
	}

	accessToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", user.ID))
	if err != nil {
		logger.L.Error("Failed to generate access token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		logger.L.Error("Failed to generate refresh token", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to generate refresh token", http.StatusInternalServerError)
		return
	}

	session := &model.Session{
		UserID:       user.ID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		logger.L.Error("Failed to create session", "userID", user.ID, "error", err)
		utils.SendJSONError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	logger.L.Info("User logged in", "userID", user.ID)
	utils.SendJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

func (h *UserHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		utils.SendJSONError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	session, err := model.GetSessionByRefreshToken(database.DB, req.RefreshToken)
	if err != nil {
		logger.L.Warn("Refresh token lookup failed", "error", err)
		utils.SendJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	if session.IsBlocked || time.Now().After(session.ExpiresAt) {
		utils.SendJSONError(w, "Session expired", http.StatusUnauthorized)
		return
	}

	newAccessToken, err := h.authService.GenerateToken(fmt.Sprintf("%d", session.UserID))
	if err != nil {
		utils.SendJSONError(w, "Failed to generate new access token", http.StatusInternalServerError)
		return
	}
	newRefreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		utils.SendJSONError(w, "Failed to generate new refresh token", http.StatusInternalServerError)
		return
	}

	// Rotate: the old session row is replaced rather than extended.
	if err := model.DeleteSessionByToken(database.DB, session.Token); err != nil {
		logger.L.Warn("Failed to delete rotated session", "sessionID", session.ID, "error", err)
	}
	newSession := &model.Session{
		UserID:       session.UserID,
		Token:        newAccessToken,
		RefreshToken: newRefreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(config.Cfg.RefreshTokenExpiry),
	}
	if err := model.CreateSession(database.DB, newSession); err != nil {
		logger.L.Error("Failed to create rotated session", "userID", session.UserID, "error", err)
		utils.SendJSONError(w, "Failed to refresh session", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, http.StatusOK, map[string]string{
		"access_token":  newAccessToken,
		"refresh_token": newRefreshToken,
	})
}

func (h *UserHandler) LogoutUserHandler(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := ""
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		tokenString = authHeader[7:]
	}
	if tokenString != "" {
		if err := model.DeleteSessionByToken(database.DB, tokenString); err != nil {
			logger.L.Warn("Failed to delete session on logout", "error", err)
		}
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *UserHandler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		utils.SendJSONError(w, "Verification token is required", http.StatusBadRequest)
		return
	}
	if err := model.VerifyEmailByToken(database.DB, token); err != nil {
		logger.L.Warn("Email verification failed", "error", err)
		utils.SendJSONError(w, "Invalid or expired verification token", http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Email verified. You can now log in."})
}

func (h *UserHandler) RequestPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.SendJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	// Always answer the same way so the endpoint can't be used to
	// probe which emails exist.
	respond := func() {
		utils.SendJSON(w, http.StatusOK, map[string]string{
			"message": "If that email is registered, a password reset link has been sent.",
		})
	}

	user, err := model.GetUserByEmail(database.DB, req.Email)
	if err != nil {
		respond()
		return
	}

	token, err := security.GenerateOpaqueToken()
	if err != nil {
		logger.L.Error("Failed to generate password reset token", "userID", user.ID, "error", err)
		respond()
		return
	}
	expiresAt := time.Now().Add(config.Cfg.PasswordResetTokenExpiry)
	if err := user.SetPasswordResetToken(database.DB, token, expiresAt); err != nil {
		logger.L.Error("Failed to store password reset token", "userID", user.ID, "error", err)
		respond()
		return
	}

	go func() {
		if err := h.emailService.SendPasswordResetEmail(user.Email, user.Username, token); err != nil {
			logger.L.Error("Failed to send password reset email", "userID", user.ID, "error", err)
		}
	}()
	respond()
}

func (h *UserHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.SendJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	hashedPassword, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		logger.L.Error("Failed to hash new password", "error", err)
		utils.SendJSONError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}
	if err := model.ResetPasswordByToken(database.DB, req.Token, hashedPassword); err != nil {
		logger.L.Warn("Password reset failed", "error", err)
		utils.SendJSONError(w, "Invalid or expired reset token", http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Password reset. You can now log in."})
}

func (h *UserHandler) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		utils.SendJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}
