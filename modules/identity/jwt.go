package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is malformed or badly signed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	TokenTypeConfirm = "confirm"
)

// PlaceholderSecret is the development signing key. The identity module refuses
// to start while it is in use outside of development mode.
const PlaceholderSecret = "your-secret-key-change-in-production"

// JWTConfig holds token signing configuration.
type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	ConfirmTokenDuration time.Duration
	Issuer               string
}

// DefaultJWTConfig returns the default token configuration. The refresh
// lifetime matches the 30 day "remember me" cookie.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            PlaceholderSecret,
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 30 * 24 * time.Hour,
		ConfirmTokenDuration: 24 * time.Hour,
		Issuer:               "task-tracker",
	}
}

// TokenClaims are the claims of every token issued by the identity module.
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager signs and parses tokens.
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager creates a new JWTManager with the given configuration.
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{config: config}
}

// GenerateAccessToken issues an access token bound to a session.
func (m *JWTManager) GenerateAccessToken(userID, email, sessionID string) (string, error) {
	return m.generateToken(userID, email, sessionID, "", TokenTypeAccess, m.config.AccessTokenDuration)
}

// GenerateRefreshToken issues a refresh token bound to a session. tokenID
// becomes the jti claim and is what the session records as current.
func (m *JWTManager) GenerateRefreshToken(userID, email, sessionID, tokenID string) (string, error) {
	return m.generateToken(userID, email, sessionID, tokenID, TokenTypeRefresh, m.config.RefreshTokenDuration)
}

// GenerateConfirmToken issues an email confirmation token. It is not bound
// to a session.
func (m *JWTManager) GenerateConfirmToken(userID, email string) (string, error) {
	return m.generateToken(userID, email, "", "", TokenTypeConfirm, m.config.ConfirmTokenDuration)
}

func (m *JWTManager) generateToken(userID, email, sessionID, tokenID, tokenType string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    m.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Parse verifies the signature and registered claims of a token of the
// expected type.
func (m *JWTManager) Parse(tokenString, tokenType string) (*TokenClaims, error) {
	return m.parse(jwt.NewParser(jwt.WithIssuer(m.config.Issuer)), tokenString, tokenType)
}

// ParseIgnoringExpiry verifies only the signature and token type. Sign-out
// uses it so that a stale access token can still end its session.
func (m *JWTManager) ParseIgnoringExpiry(tokenString, tokenType string) (*TokenClaims, error) {
	return m.parse(jwt.NewParser(jwt.WithoutClaimsValidation()), tokenString, tokenType)
}

func (m *JWTManager) parse(parser *jwt.Parser, tokenString, tokenType string) (*TokenClaims, error) {
	token, err := parser.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccessTokenDuration returns the access token lifetime in seconds.
func (m *JWTManager) AccessTokenDuration() int64 {
	return int64(m.config.AccessTokenDuration.Seconds())
}

// RefreshTokenDuration returns the refresh token lifetime.
func (m *JWTManager) RefreshTokenDuration() time.Duration {
	return m.config.RefreshTokenDuration
}
