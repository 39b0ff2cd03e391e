package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "cleanshift"

var (
	jwtSecret = []byte("cleanshift-dev-secret")
	tokenTTL  = 24 * time.Hour
	jwtMu     sync.RWMutex
)

// ConfigureJWT sets the signing secret and token lifetime. Empty values keep the
// development defaults.
func ConfigureJWT(secret string, ttl time.Duration) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	if secret != "" {
		jwtSecret = []byte(secret)
	}
	if ttl > 0 {
		tokenTTL = ttl
	}
}

type CustomClaims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(userID uint, role string) (string, error) {
	jwtMu.RLock()
	secret, ttl := jwtSecret, tokenTTL
	jwtMu.RUnlock()

	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		ErrorLogger.Printf("Error generating token: %v", err)
		return "", err
	}
	return tokenString, nil
}

func ParseToken(tokenString string) (*CustomClaims, error) {
	jwtMu.RLock()
	secret := jwtSecret
	jwtMu.RUnlock()

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
