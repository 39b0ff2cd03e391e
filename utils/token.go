package utils

import (
	"errors"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

var ErrTokenRevoked = errors.New("token has been revoked")

// revoked maps a logged-out token to its expiry; past that it fails ParseToken anyway.
var revoked = xsync.NewMap[string, time.Time]()

// RevokeToken rejects tokenString until expiresAt.
func RevokeToken(tokenString string, expiresAt time.Time) {
	revoked.Store(tokenString, expiresAt)
}

func IsTokenRevoked(tokenString string) bool {
	expiry, ok := revoked.Load(tokenString)
	if !ok {
		return false
	}
	if time.Now().Before(expiry) {
		return true
	}
	revoked.Delete(tokenString)
	return false
}

// PurgeRevokedTokens forgets revoked tokens that have expired and reports how many remain.
func PurgeRevokedTokens() int {
	now := time.Now()
	revoked.Range(func(token string, expiry time.Time) bool {
		if now.After(expiry) {
			revoked.Delete(token)
		}
		return true
	})
	return revoked.Size()
}

// ValidateToken parses tokenString and rejects revoked tokens.
func ValidateToken(tokenString string) (*CustomClaims, error) {
	if IsTokenRevoked(tokenString) {
		return nil, ErrTokenRevoked
	}
	return ParseToken(tokenString)
}
