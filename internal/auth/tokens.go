// Package auth issues and verifies the bearer tokens of the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"farmcast/internal/cache"
	"farmcast/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer   = "farmcast-api"
	Audience = "farmcast-client"

	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongType    = errors.New("unexpected token type")
)

// Claims are the verified contents of a token.
type Claims struct {
	UserID    uint
	JTI       string
	Type      string
	ExpiresAt time.Time
}

// Pair is what a successful login returns.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenManager signs access and refresh tokens with separate secrets.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager builds a TokenManager from configuration.
func NewTokenManager(cfg *config.Config) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.JWTRefreshSecret),
		accessTTL:     cfg.AccessTokenTTL(),
		refreshTTL:    cfg.RefreshTokenTTL(),
		now:           time.Now,
	}
}

// Issue signs a new access/refresh pair for userID.
func (m *TokenManager) Issue(userID uint) (*Pair, error) {
	access, err := m.sign(userID, TypeAccess, m.accessSecret, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(userID, TypeRefresh, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

func (m *TokenManager) sign(userID uint, typ string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := m.now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"typ": typ,
		"iss": Issuer,
		"aud": Audience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}

// ParseAccess verifies an access token.
func (m *TokenManager) ParseAccess(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TypeAccess, m.accessSecret)
}

// ParseRefresh verifies a refresh token.
func (m *TokenManager) ParseRefresh(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TypeRefresh, m.refreshSecret)
}

func (m *TokenManager) parse(tokenString, typ string, secret []byte) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if t, _ := claims["typ"].(string); t != typ {
		return nil, ErrWrongType
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	out := &Claims{UserID: uint(userID), Type: typ}
	out.JTI, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// Revoke blacklists the token's JTI until it would have expired anyway.
func (m *TokenManager) Revoke(ctx context.Context, c *Claims) error {
	rdb := cache.GetClient()
	if rdb == nil || c == nil || c.JTI == "" {
		return nil
	}
	ttl := c.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, cache.BlacklistKey(c.JTI), "1", ttl).Err()
}

// IsRevoked reports whether the JTI was blacklisted. Redis failures are
// treated as not revoked so that a cache outage does not lock users out.
func (m *TokenManager) IsRevoked(ctx context.Context, jti string) bool {
	rdb := cache.GetClient()
	if rdb == nil || jti == "" {
		return false
	}
	n, err := rdb.Exists(ctx, cache.BlacklistKey(jti)).Result()
	return err == nil && n > 0
}
