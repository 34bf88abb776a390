package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"goblog/config"
)

const (
	// TokenTypeAccess marks short lived tokens accepted by the API middleware.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks tokens accepted only by the refresh endpoint.
	TokenTypeRefresh = "refresh"
)

// Claims defines JWT claims used in the application.
type Claims struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateToken issues a JWT of the given type for the specified user identity.
func GenerateToken(userID uint, username, tokenType string, duration time.Duration) (string, error) {
	cfg := config.Get()

	claims := Claims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// GenerateTokenPair issues an access and a refresh token with configured lifetimes.
func GenerateTokenPair(userID uint, username string) (access string, refresh string, err error) {
	cfg := config.Get()
	access, err = GenerateToken(userID, username, TokenTypeAccess, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	if err != nil {
		return "", "", err
	}
	refresh, err = GenerateToken(userID, username, TokenTypeRefresh, time.Duration(cfg.RefreshTokenHours)*time.Hour)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ParseToken validates a JWT and returns its claims.
func ParseToken(tokenStr string) (*Claims, error) {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
