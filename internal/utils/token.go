package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NewSessionToken returns 32 random bytes hex-encoded. The value is opaque;
// all meaning lives server-side in the session store.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// classTokenAlphabet deliberately omits lookalikes (0/O, 1/I/L) because class
// access tokens are read off a whiteboard by young children.
const classTokenAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewClassAccessToken returns a 12-character shared secret for student
// self-enrollment.
func NewClassAccessToken() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, v := range b {
		sb.WriteByte(classTokenAlphabet[int(v)%len(classTokenAlphabet)])
	}
	return sb.String(), nil
}

var ErrInvalidResetToken = errors.New("invalid reset token")

// NewResetToken issues a signed, expiring password-reset token for a user.
// Unlike sessions these are stateless on purpose: they travel by email and
// must stay verifiable without server-side bookkeeping.
func NewResetToken(secret string, userID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   userID,
		"scope": "password-reset",
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseResetToken validates a reset token and returns the user it was issued
// for. Any parse, signature, expiry or scope failure yields
// ErrInvalidResetToken.
func ParseResetToken(secret, raw string) (uint64, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidResetToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, ErrInvalidResetToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidResetToken
	}
	if scope, _ := claims["scope"].(string); scope != "password-reset" {
		return 0, ErrInvalidResetToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, ErrInvalidResetToken
	}
	return uint64(sub), nil
}
