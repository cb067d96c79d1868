package services

import (
	"fmt"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

type authService struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthService creates the token service used by both the HTTP API and the
// broadcaster.
func NewAuthService(jwtSecret string, tokenTTL time.Duration) ports.AuthService {
	return &authService{
		secret:   []byte(jwtSecret),
		tokenTTL: tokenTTL,
	}
}

func (s *authService) GenerateToken(userID domain.UserID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) ValidateToken(tokenString string) (domain.UserID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return domain.UserID(claims.Subject), nil
}
