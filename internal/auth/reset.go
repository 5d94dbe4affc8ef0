package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mrlokans/bibliotheque/internal/entities"
)

const resetTokenType = "password_reset"

// ResetClaims are carried by a password reset link. Fingerprint is derived
// from the password hash at issue time, so the link dies as soon as the
// password changes.
type ResetClaims struct {
	Type        string `json:"type"`
	Fingerprint string `json:"pwf"`
	jwt.RegisteredClaims
}

// ResetTokens issues and checks password reset links.
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResetTokens(secret []byte, ttl time.Duration) *ResetTokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResetTokens{secret: secret, ttl: ttl, now: time.Now}
}

// TTL is how long an issued link stays valid.
func (t *ResetTokens) TTL() time.Duration {
	return t.ttl
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

// Issue signs a reset token for user.
func (t *ResetTokens) Issue(user *entities.User) (string, error) {
	now := t.now()
	claims := ResetClaims{
		Type:        resetTokenType,
		Fingerprint: passwordFingerprint(user.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse checks the signature and expiry of a reset token and returns its
// claims. The caller still has to compare the fingerprint.
func (t *ResetTokens) Parse(token string) (*ResetClaims, uint, error) {
	claims := &ResetClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, 0, ErrTokenExpired
		}
		return nil, 0, ErrInvalidToken
	}
	if claims.Type != resetTokenType {
		return nil, 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, 0, ErrInvalidToken
	}
	return claims, uint(id), nil
}

// ResetPassword sets a new password through a reset link. A link can be
// used once: the new hash no longer matches its fingerprint.
func (s *Service) ResetPassword(tokens *ResetTokens, token, newPassword string) (*entities.User, error) {
	claims, userID, err := tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if claims.Fingerprint != passwordFingerprint(user.PasswordHash) {
		return nil, ErrInvalidToken
	}
	if err := s.SetPassword(user, newPassword); err != nil {
		return nil, err
	}
	return user, nil
}

// CheckResetToken reports whether token can still be used, without
// consuming it. Used to render the reset form.
func (s *Service) CheckResetToken(tokens *ResetTokens, token string) error {
	claims, userID, err := tokens.Parse(token)
	if err != nil {
		return err
	}
	user, err := s.GetUserByID(userID)
	if err != nil {
		return ErrInvalidToken
	}
	if claims.Fingerprint != passwordFingerprint(user.PasswordHash) {
		return ErrInvalidToken
	}
	return nil
}
