// Package middleware provides authentication, logging, metrics, and rate
// limiting middleware for the HTTP surface.
package middleware

import (
	"errors"
	"strings"

	"witwaves/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDLocal is the fiber locals key holding the authenticated user id.
const UserIDLocal = "userID"

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

var errNoBearer = errors.New("no bearer token")

// AuthRequired is a middleware that enforces authentication for protected routes.
// Tokens are issued by the external auth service; the subject claim is the user id.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	subject, err := subjectFromHeader(authHeader)
	if err != nil {
		msg := "Invalid or expired token"
		if errors.Is(err, errNoBearer) {
			msg = "Invalid authorization header format"
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": msg,
		})
	}

	c.Locals(UserIDLocal, subject)
	return c.Next()
}

// WebSocketAuthRequired authenticates a websocket upgrade. Browsers cannot
// set headers on the handshake, so the token may come from the "token" query
// parameter; the Authorization header is accepted as well.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	var (
		subject string
		err     error
	)
	if token := c.Query("token"); token != "" {
		subject, err = parseSubject(token)
	} else if authHeader := c.Get("Authorization"); authHeader != "" {
		subject, err = subjectFromHeader(authHeader)
	} else {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Token required",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	c.Locals(UserIDLocal, subject)
	return c.Next()
}

// OptionalAuth stores the user id when a valid token is present and never rejects.
func OptionalAuth(c *fiber.Ctx) error {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		if subject, err := subjectFromHeader(authHeader); err == nil {
			c.Locals(UserIDLocal, subject)
		}
	}
	return c.Next()
}

// UserID returns the authenticated user id stored by AuthRequired.
func UserID(c *fiber.Ctx) (string, bool) {
	uid, ok := c.Locals(UserIDLocal).(string)
	return uid, ok && uid != ""
}

func subjectFromHeader(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errNoBearer
	}
	return parseSubject(parts[1])
}

func parseSubject(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg != nil && cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if cfg == nil {
			return nil, errors.New("auth middleware not initialized")
		}
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return "", errors.New("invalid token subject")
	}
	return subject, nil
}
