package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/chordsheet-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "chordsheet-api"

	AccessTokenDuration  = 1 * time.Hour
	RefreshTokenDuration = 7 * 24 * time.Hour
)

// Token kinds. A refresh token is rejected where an access token is needed.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

var ErrWrongTokenKind = errors.New("wrong token kind")

type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// IssueToken signs a token of kind for user.
func IssueToken(secret string, user *models.User, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// IssueTokenPair returns a fresh access and refresh token.
func IssueTokenPair(secret string, user *models.User) (access, refresh string, err error) {
	access, err = IssueToken(secret, user, TokenAccess, AccessTokenDuration)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err = IssueToken(secret, user, TokenRefresh, RefreshTokenDuration)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return access, refresh, nil
}

// ParseToken validates tokenString and checks its kind.
func ParseToken(secret, tokenString, kind string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return claims, nil
}
