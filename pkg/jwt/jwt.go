package jwt

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
	ErrWrongType    = errors.New("unexpected token type")
)

// Token types.
const (
	// TypeIdentity tokens are minted by the OAuth login flow and carry the
	// verified email and display name. They are exchanged for an access token.
	TypeIdentity = "identity"
	// TypeAccess tokens are issued by this service and carry the user id.
	TypeAccess = "access"
)

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type"`
}

// Manager signs and validates HS256 tokens with a shared secret.
type Manager struct {
	secret         []byte
	accessDuration time.Duration
	issuer         string

	// userID -> revocation expiry
	revoked map[string]time.Time
	mu      sync.RWMutex
}

// NewManager creates a new JWT manager.
func NewManager(secret string, accessDuration time.Duration, issuer string) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Manager{
		secret:         []byte(secret),
		accessDuration: accessDuration,
		issuer:         issuer,
		revoked:        make(map[string]time.Time),
	}, nil
}

// GenerateAccessToken issues an access token for a stored user.
func (m *Manager) GenerateAccessToken(userID, email, role string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.accessDuration)

	token, err := m.sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   TypeAccess,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// GenerateIdentityToken mints the token the OAuth login flow hands to
// clients after verifying an email address.
func (m *Manager) GenerateIdentityToken(email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	return m.sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Name:  name,
		Type:  TypeIdentity,
	})
}

// ValidateToken parses a token and checks its signature, expiry, type and
// revocation state.
func (m *Manager) ValidateToken(tokenString, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != wantType {
		return nil, ErrWrongType
	}
	if claims.UserID != "" && m.IsRevoked(claims.UserID) {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// RevokeUserTokens rejects every outstanding access token of a user until
// the longest one would have expired anyway.
func (m *Manager) RevokeUserTokens(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[userID] = time.Now().Add(m.accessDuration)
}

// IsRevoked checks if user's tokens are revoked.
func (m *Manager) IsRevoked(userID string) bool {
	m.mu.RLock()
	expiry, exists := m.revoked[userID]
	m.mu.RUnlock()
	if !exists {
		return false
	}
	if time.Now().After(expiry) {
		m.mu.Lock()
		delete(m.revoked, userID)
		m.mu.Unlock()
		return false
	}
	return true
}

func (m *Manager) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
