// Package auth mints and verifies the bearer tokens presented at socket
// upgrade and hashes account passwords. Tokens are issued by the
// /auth/login HTTP endpoint against the stored bcrypt hash.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Tokens mints and verifies HMAC-SHA256 bearer tokens of the form
// base64url(player_id.expiry_unix.signature).
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Mint issues a token for the player, valid for the configured TTL.
func (t *Tokens) Mint(playerID int64) string {
	exp := t.now().Add(t.ttl).Unix()
	body := fmt.Sprintf("%d.%d", playerID, exp)
	sig := t.sign(body)
	return base64.RawURLEncoding.EncodeToString([]byte(body + "." + sig))
}

// Verify checks signature and expiry and returns the player ID.
func (t *Tokens) Verify(token string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	parts := strings.Split(string(raw), ".")
	if len(parts) != 3 {
		return 0, ErrTokenInvalid
	}
	body := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(t.sign(body)), []byte(parts[2])) {
		return 0, ErrTokenInvalid
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	if t.now().Unix() > exp {
		return 0, ErrTokenExpired
	}
	playerID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || playerID <= 0 {
		return 0, ErrTokenInvalid
	}
	return playerID, nil
}

func (t *Tokens) sign(body string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// HashPassword produces a bcrypt hash for storage in the players table.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
