package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/domain"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds JWT middleware configuration.
type JWTConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Token types carried in the "typ" claim. Access and refresh tokens are not
// interchangeable: only access tokens pass the middleware, only refresh
// tokens are accepted at the refresh endpoint.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload carried by both access and refresh tokens.
type Claims struct {
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTMiddleware creates a Fiber middleware that validates bearer tokens and
// injects a UserContext into the request context.
func JWTMiddleware(cfg JWTConfig) fiber.Handler {
	return func(c fiber.Ctx) error {
		var token string

		authHeader := c.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				token = parts[1]
			}
		}

		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization",
				"code":  "unauthorized",
			})
		}

		claims, err := ParseToken(token, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
				"code":  "unauthorized",
			})
		}
		if claims.TokenType != TokenTypeAccess {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "not an access token",
				"code":  "unauthorized",
			})
		}

		c.Locals("user", &domain.UserContext{
			UserID: claims.Subject,
			Email:  claims.Email,
		})

		return c.Next()
	}
}

// GetUserContext extracts the UserContext from Fiber locals.
func GetUserContext(c fiber.Ctx) *domain.UserContext {
	u, ok := c.Locals("user").(*domain.UserContext)
	if !ok {
		return nil
	}
	return u
}

// GenerateToken creates a signed HS256 access token for the given user with
// the given lifetime.
func GenerateToken(user *domain.User, cfg JWTConfig, ttl time.Duration) (string, error) {
	return signToken(user, cfg, ttl, TokenTypeAccess)
}

func signToken(user *domain.User, cfg JWTConfig, ttl time.Duration, tokenType string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:     user.Email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GenerateTokenPair issues an access/refresh token pair.
func GenerateTokenPair(user *domain.User, cfg JWTConfig) (*domain.TokenPair, error) {
	access, err := signToken(user, cfg, cfg.AccessTTL, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := signToken(user, cfg, cfg.RefreshTTL, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// ParseToken validates the signature, expiry and issuer of a token.
func ParseToken(tokenStr string, cfg JWTConfig) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, port.ErrTokenExpired
		}
		return nil, port.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, port.ErrTokenInvalid
	}
	return claims, nil
}
