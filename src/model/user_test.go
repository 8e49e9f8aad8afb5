package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/homescout/backend/src/database"
)

func TestUserCreateAndLookup(t *testing.T) {
	newTestDB(t)

	u := &User{Username: "soyeon", Email: "soyeon@example.com", Password: "hashed"}
	require.NoError(t, u.CreateUser(database.DB))
	require.NotZero(t, u.ID)
	assert.Equal(t, "local", u.AuthProvider)

	byName, err := GetUserByUsername(database.DB, "soyeon")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := GetUserByEmail(database.DB, "soyeon@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = GetUserByUsername(database.DB, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEmailVerificationFlow(t *testing.T) {
	newTestDB(t)

	u := &User{Username: "soyeon", Email: "soyeon@example.com", Password: "hashed"}
	require.NoError(t, u.CreateUser(database.DB))
	require.NoError(t, u.SetVerificationToken(database.DB, "tok-123", time.Now().Add(time.Hour)))

	assert.ErrorIs(t, VerifyEmailByToken(database.DB, "wrong-token"), ErrUserNotFound)
	require.NoError(t, VerifyEmailByToken(database.DB, "tok-123"))

	// Token is single-use.
	assert.ErrorIs(t, VerifyEmailByToken(database.DB, "tok-123"), ErrUserNotFound)

	verified, err := GetUserByID(database.DB, u.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsEmailVerified)
}

func TestEmailVerification_ExpiredToken(t *testing.T) {
	newTestDB(t)

	u := &User{Username: "soyeon", Email: "soyeon@example.com", Password: "hashed"}
	require.NoError(t, u.CreateUser(database.DB))
	require.NoError(t, u.SetVerificationToken(database.DB, "tok-123", time.Now().Add(-time.Minute)))

	assert.ErrorIs(t, VerifyEmailByToken(database.DB, "tok-123"), ErrUserNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	newTestDB(t)

	u := &User{Username: "soyeon", Email: "soyeon@example.com", Password: "old-hash"}
	require.NoError(t, u.CreateUser(database.DB))
	require.NoError(t, u.SetPasswordResetToken(database.DB, "reset-1", time.Now().Add(time.Hour)))

	require.NoError(t, ResetPasswordByToken(database.DB, "reset-1", "new-hash"))

	updated, err := GetUserByID(database.DB, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", updated.Password)

	assert.ErrorIs(t, ResetPasswordByToken(database.DB, "reset-1", "again"), ErrUserNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	newTestDB(t)

	session := &Session{
		UserID:       1,
		Token:        "access-token",
		RefreshToken: "refresh-token",
		UserAgent:    "test",
		ClientIP:     "127.0.0.1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, CreateSession(database.DB, session))

	got, err := GetSessionByToken(database.DB, "access-token")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.UserID)

	byRefresh, err := GetSessionByRefreshToken(database.DB, "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byRefresh.ID)

	require.NoError(t, DeleteSessionByToken(database.DB, "access-token"))
	_, err = GetSessionByToken(database.DB, "access-token")
	assert.Error(t, err)

	// Deleting twice stays quiet.
	assert.NoError(t, DeleteSessionByToken(database.DB, "access-token"))
}

func TestSessionExpiryAndBlocking(t *testing.T) {
	newTestDB(t)

	expired := &Session{UserID: 1, Token: "expired", RefreshToken: "r1", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, CreateSession(database.DB, expired))
	_, err := GetSessionByToken(database.DB, "expired")
	assert.Error(t, err)
}
