package middleware

import (
	"strings"

	"github.com/dimitrije/boltstax-api/internal/models"
	"github.com/dimitrije/boltstax-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	CompanyIDKey = "company_id"
	RoleKey      = "role"
)

// TokenValidator is the part of services.JWTService the middleware needs.
type TokenValidator interface {
	ValidateAccessToken(token string) (*services.Claims, error)
}

func Auth(jwtService TokenValidator) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Unauthorized("missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Unauthorized("invalid authorization header format")
			return
		}

		claims, err := jwtService.ValidateAccessToken(parts[1])
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(CompanyIDKey, claims.CompanyID)
		c.Set(RoleKey, claims.Role)

		c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() drift.HandlerFunc {
	return func(c *drift.Context) {
		if GetRole(c) != models.UserRoleAdmin {
			c.Forbidden("admin role required")
			return
		}
		c.Next()
	}
}

func GetUserID(c *drift.Context) uuid.UUID {
	return getUUID(c, UserIDKey)
}

func GetCompanyID(c *drift.Context) uuid.UUID {
	return getUUID(c, CompanyIDKey)
}

func GetUserEmail(c *drift.Context) string {
	return getString(c, UserEmailKey)
}

func GetRole(c *drift.Context) string {
	return getString(c, RoleKey)
}

func getUUID(c *drift.Context, key string) uuid.UUID {
	if id, ok := c.Get(key); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

func getString(c *drift.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
