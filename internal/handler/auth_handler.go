package handler

import (
	"fmt"
	"strings"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/middleware"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/service"
	"github.com/gofiber/fiber/v3"
)

// AuthHandler handles registration, login, and token refresh.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register sets up the public auth routes.
func (h *AuthHandler) Register(app *fiber.App) {
	auth := app.Group("/api/v1/auth")
	auth.Post("/register", h.SignUp)
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)
}

// RegisterProtected sets up auth routes that require a valid access token.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	auth := router.Group("/auth")
	auth.Get("/me", h.Me)
	auth.Post("/logout", h.Logout)
}

// SignUp creates a new account and returns a token pair.
func (h *AuthHandler) SignUp(c fiber.Ctx) error {
	var body struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "code": "bad_request"})
	}

	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.Email == "" || len(body.Password) < 8 {
		return fail(c, fmt.Errorf("%w: email and a password of at least 8 characters are required", port.ErrValidation))
	}

	pair, err := h.authService.Register(c.Context(), body.Email, body.Password, body.FirstName, body.LastName)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pair)
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "code": "bad_request"})
	}

	pair, err := h.authService.Login(c.Context(), strings.TrimSpace(strings.ToLower(body.Email)), body.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(pair)
}

// Refresh exchanges a refresh token for a fresh token pair.
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "code": "bad_request"})
	}

	pair, err := h.authService.Refresh(c.Context(), body.RefreshToken)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(pair)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	user, err := h.authService.CurrentUser(c.Context(), uc.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

// Logout acknowledges the logout. Tokens are stateless, so the client simply
// discards them; the endpoint exists so the frontend has a single call site.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "logged out"})
}
