package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ManikLakhanpal/Tube-Pay/pkg/jwt"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/response"
)

const (
	UserIDKey     = "user_id"
	EmailKey      = "email"
	NameKey       = "name"
	RoleKey       = "role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(token, wantType string) (*jwt.Claims, error)
}

// AuthMiddleware validates bearer JWTs locally.
type AuthMiddleware struct {
	tokens TokenValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth accepts access tokens issued by this service.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return m.require(jwt.TypeAccess)
}

// RequireIdentity accepts identity tokens minted by the OAuth login flow.
func (m *AuthMiddleware) RequireIdentity() gin.HandlerFunc {
	return m.require(jwt.TypeIdentity)
}

func (m *AuthMiddleware) require(tokenType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			return
		}

		claims, err := m.tokens.ValidateToken(strings.TrimPrefix(authHeader, BearerPrefix), tokenType)
		if err != nil {
			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				response.Unauthorized(c, "token has expired")
			case errors.Is(err, jwt.ErrRevokedToken):
				response.Unauthorized(c, "token has been revoked")
			default:
				response.Unauthorized(c, "invalid token")
			}
			return
		}

		actor := map[string]string{log.FieldEmail: claims.Email}
		if claims.UserID != "" {
			c.Set(UserIDKey, claims.UserID)
			actor[log.FieldUserID] = claims.UserID
		}
		c.Request = c.Request.WithContext(log.WithFields(c.Request.Context(), actor))
		c.Set(EmailKey, claims.Email)
		c.Set(NameKey, claims.Name)
		c.Set(RoleKey, claims.Role)

		c.Next()
	}
}

// GetUserID extracts user ID from Gin context.
func GetUserID(c *gin.Context) string {
	return getString(c, UserIDKey)
}

// GetEmail extracts email from Gin context.
func GetEmail(c *gin.Context) string {
	return getString(c, EmailKey)
}

// GetName extracts the display name from Gin context.
func GetName(c *gin.Context) string {
	return getString(c, NameKey)
}

// GetRole extracts the role from Gin context.
func GetRole(c *gin.Context) string {
	return getString(c, RoleKey)
}

func getString(c *gin.Context, key string) string {
	if v, exists := c.Get(key); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
