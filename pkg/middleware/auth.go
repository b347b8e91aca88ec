package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bobbridge/portal/common/errors"
	"github.com/bobbridge/portal/common/models"
	"github.com/bobbridge/portal/pkg/httputil"
)

// TokenClaims represents the JWT claims structure
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID    uuid.UUID       `json:"uid"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	ClientID  *uuid.UUID      `json:"cid,omitempty"` // tenant, empty for admins
	TokenType string          `json:"type"`          // "access" or "refresh"
}

// AuthConfig holds configuration for the auth middleware
type AuthConfig struct {
	JWTSecret string
	SkipPaths []string
}

// Auth creates a JWT authentication middleware
func Auth(config AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		for _, skipPath := range config.SkipPaths {
			if strings.HasPrefix(path, skipPath) {
				return c.Next()
			}
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return httputil.Unauthorized(c, "missing authorization header")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return httputil.Unauthorized(c, "invalid authorization header format")
		}

		claims, err := validateToken(parts[1], config.JWTSecret)
		if err != nil {
			return httputil.Error(c, err)
		}

		if claims.TokenType != "access" {
			return httputil.Unauthorized(c, "invalid token type")
		}

		c.Locals("userID", claims.UserID)
		c.Locals("email", claims.Email)
		c.Locals("role", claims.Role)
		if claims.ClientID != nil {
			c.Locals("clientID", *claims.ClientID)
		}
		c.Locals("claims", claims)

		return c.Next()
	}
}

// RequireAdmin rejects requests from non-admin callers. Must run after Auth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(models.UserRole)
		if role != models.RoleAdmin {
			return httputil.Forbidden(c, "admin role required")
		}
		return c.Next()
	}
}

// validateToken parses and validates a JWT token
func validateToken(tokenString, secret string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrInvalidToken
		}
		return []byte(secret), nil
	})

	if err != nil {
		if err == jwt.ErrTokenExpired {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.ErrInvalidToken
	}

	return claims, nil
}

// GenerateAccessToken generates a new access token
func GenerateAccessToken(user *models.User, secret string, expiry time.Duration) (string, time.Time, error) {
	return generateToken(user, secret, expiry, "access")
}

// GenerateRefreshToken generates a new refresh token
func GenerateRefreshToken(user *models.User, secret string, expiry time.Duration) (string, time.Time, error) {
	return generateToken(user, secret, expiry, "refresh")
}

func generateToken(user *models.User, secret string, expiry time.Duration, tokenType string) (string, time.Time, error) {
	expiresAt := time.Now().Add(expiry)

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "bobbridge",
			Subject:   user.ID.String(),
		},
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		ClientID:  user.ClientID,
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// GetUserID extracts the user ID from the Fiber context
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals("userID").(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.ErrUnauthorized
	}
	return userID, nil
}

// GetRole extracts the caller's role from the Fiber context
func GetRole(c *fiber.Ctx) models.UserRole {
	role, _ := c.Locals("role").(models.UserRole)
	return role
}

// GetClientID extracts the caller's tenant from the Fiber context. The
// second return is false for admins, who have no tenant.
func GetClientID(c *fiber.Ctx) (uuid.UUID, bool) {
	clientID, ok := c.Locals("clientID").(uuid.UUID)
	return clientID, ok
}

// GetEmail extracts the email from the Fiber context
func GetEmail(c *fiber.Ctx) string {
	email, _ := c.Locals("email").(string)
	return email
}

// GetClaims extracts the full claims from the Fiber context
func GetClaims(c *fiber.Ctx) *TokenClaims {
	claims, _ := c.Locals("claims").(*TokenClaims)
	return claims
}
