package handler

import (
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/middleware"
	"github.com/Preon1/rag-ehanced-cover-letter-generator/internal/service"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// CVHandler handles résumé upload and management endpoints.
type CVHandler struct {
	cvService *service.CVService
}

// NewCVHandler creates a new CV handler.
func NewCVHandler(cvService *service.CVService) *CVHandler {
	return &CVHandler{cvService: cvService}
}

// Register sets up CV routes on the authenticated group.
func (h *CVHandler) Register(router fiber.Router) {
	cv := router.Group("/cv")
	cv.Post("/upload", h.Upload)
	cv.Get("/", h.List)
	cv.Get("/options", h.Options)
	cv.Delete("/:id", h.Delete)
}

// Upload accepts a multipart PDF and streams it straight into the ingestion
// pipeline. Validation happens before any file content is read so oversized
// or mistyped uploads fail fast.
func (h *CVHandler) Upload(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file field is required", "code": "bad_request"})
	}

	if err := service.ValidateUpload(fileHeader.Filename, fileHeader.Size); err != nil {
		return fail(c, err)
	}

	sourceTag := c.FormValue("source_id")
	if sourceTag == "" {
		sourceTag = uuid.NewString()
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot read uploaded file", "code": "bad_request"})
	}
	defer src.Close()

	cv, err := h.cvService.IngestCV(c.Context(), uc.UserID, sourceTag, fileHeader.Filename, src, fileHeader.Size)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(cv)
}

// List returns the user's uploaded CVs.
func (h *CVHandler) List(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	cvs, err := h.cvService.ListCVs(c.Context(), uc.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"cvs": cvs})
}

// Options returns a compact id/label list for populating selectors.
func (h *CVHandler) Options(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	options, err := h.cvService.ListOptions(c.Context(), uc.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"options": options})
}

// Delete removes a CV's vectors and metadata.
func (h *CVHandler) Delete(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	if err := h.cvService.DeleteCV(c.Context(), uc.UserID, c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "cv deleted"})
}
