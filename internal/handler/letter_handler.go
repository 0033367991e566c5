package handler

import (
	"fmt"
	"strings"

	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/middleware"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/port"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/service"
	"github.com/gofiber/fiber/v3"
)

// LetterHandler handles cover letter generation endpoints.
type LetterHandler struct {
	letterService *service.LetterService
}

// NewLetterHandler creates a new letter handler.
func NewLetterHandler(letterService *service.LetterService) *LetterHandler {
	return &LetterHandler{letterService: letterService}
}

// Register sets up letter routes on the authenticated group.
func (h *LetterHandler) Register(router fiber.Router) {
	letters := router.Group("/letters")
	letters.Post("/text", h.GenerateFromText)
	letters.Post("/url", h.GenerateFromURL)
	letters.Get("/", h.List)
}

// GenerateFromText generates a letter from a pasted job title and description.
func (h *LetterHandler) GenerateFromText(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body struct {
		JobTitle       string `json:"job_title"`
		JobDescription string `json:"job_description"`
		SourceID       string `json:"source_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "code": "bad_request"})
	}

	if strings.TrimSpace(body.JobTitle) == "" || strings.TrimSpace(body.JobDescription) == "" || body.SourceID == "" {
		return fail(c, fmt.Errorf("%w: job_title, job_description and source_id are required", port.ErrValidation))
	}

	letter, err := h.letterService.GenerateFromText(c.Context(), uc.UserID, body.JobTitle, body.JobDescription, body.SourceID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(letter)
}

// GenerateFromURL extracts requirements from a job posting URL, then generates.
func (h *LetterHandler) GenerateFromURL(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var body struct {
		JobURL   string `json:"job_url"`
		SourceID string `json:"source_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body", "code": "bad_request"})
	}

	if !strings.HasPrefix(body.JobURL, "http://") && !strings.HasPrefix(body.JobURL, "https://") {
		return fail(c, fmt.Errorf("%w: job_url must be an http(s) URL", port.ErrValidation))
	}
	if body.SourceID == "" {
		return fail(c, fmt.Errorf("%w: source_id is required", port.ErrValidation))
	}

	letter, err := h.letterService.GenerateFromURL(c.Context(), uc.UserID, body.JobURL, body.SourceID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(letter)
}

// List returns the user's previously generated letters.
func (h *LetterHandler) List(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	letters, err := h.letterService.ListLetters(c.Context(), uc.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"letters": letters})
}
