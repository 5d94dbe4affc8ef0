package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bibliotheque/internal/config"
	"github.com/mrlokans/bibliotheque/internal/entities"
)

func TestResetTokens_IssueAndParse(t *testing.T) {
	tokens := NewResetTokens([]byte("secret"), 0)
	assert.Equal(t, time.Hour, tokens.TTL())

	user := &entities.User{ID: 7, PasswordHash: "hash"}
	token, err := tokens.Issue(user)
	require.NoError(t, err)

	claims, id, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
	assert.Equal(t, passwordFingerprint("hash"), claims.Fingerprint)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestResetTokens_Expired(t *testing.T) {
	tokens := NewResetTokens([]byte("secret"), time.Hour)
	issuedAt := time.Now()
	tokens.now = func() time.Time { return issuedAt }

	token, err := tokens.Issue(&entities.User{ID: 1, PasswordHash: "hash"})
	require.NoError(t, err)

	tokens.now = func() time.Time { return issuedAt.Add(61 * time.Minute) }
	_, _, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestResetTokens_Rejects(t *testing.T) {
	tokens := NewResetTokens([]byte("secret"), time.Hour)
	user := &entities.User{ID: 1, PasswordHash: "hash"}

	otherKey, err := NewResetTokens([]byte("other"), time.Hour).Issue(user)
	require.NoError(t, err)

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ResetClaims{
		Type: "session",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ResetClaims{
		Type:             resetTokenType,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":    "not-a-jwt",
		"other key":  otherKey,
		"wrong type": wrongType,
		"no expiry":  noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := tokens.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestService_ResetPassword_SingleUse(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeLocal)
	tokens := NewResetTokens([]byte("secret"), time.Hour)
	user := mustCreate(t, svc, "reader@example.com", entities.UserRoleUser)

	token, err := tokens.Issue(user)
	require.NoError(t, err)
	require.NoError(t, svc.CheckResetToken(tokens, token))

	_, err = svc.ResetPassword(tokens, token, "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	require.NoError(t, svc.CheckResetToken(tokens, token), "a rejected password does not consume the link")

	updated, err := svc.ResetPassword(tokens, token, "brandnewpass1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, updated.ID)

	_, err = svc.Authenticate("reader@example.com", "brandnewpass1")
	assert.NoError(t, err)

	_, err = svc.ResetPassword(tokens, token, "anotherpass12")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, svc.CheckResetToken(tokens, token), ErrInvalidToken)
}

func TestService_ResetPassword_DeletedUser(t *testing.T) {
	svc, db := setupTestService(t, config.AuthModeLocal)
	tokens := NewResetTokens([]byte("secret"), time.Hour)
	user := mustCreate(t, svc, "gone@example.com", entities.UserRoleUser)

	token, err := tokens.Issue(user)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&entities.User{}, user.ID).Error)

	_, err = svc.ResetPassword(tokens, token, "brandnewpass1")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
