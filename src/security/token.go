package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portfoliotracker/src/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify the session a bearer token was issued for.
type Claims struct {
	SessionID int64 `json:"session_id,string"`
	UserID    int64 `json:"user_id,string"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// NewTokenManagerFromEnv builds a manager from JWT_SECRET_KEY and TOKEN_TTL.
func NewTokenManagerFromEnv() *TokenManager {
	config := GetConfig()
	return NewTokenManager(config.JWTSecretKey, config.TokenTTL)
}

// TTL is how long sessions created for new tokens should live.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token that expires with the session.
func (m *TokenManager) Issue(session model.UserSession) (string, error) {
	claims := Claims{
		SessionID: session.SessionID,
		UserID:    session.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(session.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Parse verifies the signature and expiry of a token.
func (m *TokenManager) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
