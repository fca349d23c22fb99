package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenttrace/agenttrace/api/internal/domain"
	"github.com/agenttrace/agenttrace/api/internal/middleware"
	apperrors "github.com/agenttrace/agenttrace/api/internal/pkg/errors"
	"github.com/agenttrace/agenttrace/api/internal/service"
)

// MediaHandler handles media upload/download endpoints
type MediaHandler struct {
	mediaService *service.MediaService
	logger       *zap.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(mediaService *service.MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		logger:       logger,
	}
}

// RequestUploadURL handles POST /v1/media
func (h *MediaHandler) RequestUploadURL(c *fiber.Ctx) error {
	projectID, ok := middleware.GetProjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "Unauthorized",
			"message": "Project ID not found",
		})
	}

	var input domain.UploadURLInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}

	result, err := h.mediaService.RequestUploadURL(c.Context(), projectID, &input)
	if err != nil {
		return h.handleError(c, err, "failed to request upload url")
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetMedia handles GET /v1/media/:mediaId
func (h *MediaHandler) GetMedia(c *fiber.Ctx) error {
	projectID, ok := middleware.GetProjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "Unauthorized",
			"message": "Project ID not found",
		})
	}

	mediaID, err := uuid.Parse(c.Params("mediaId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid media ID",
		})
	}

	downloadURL, err := h.mediaService.GetDownloadURL(c.Context(), projectID, mediaID)
	if err != nil {
		return h.handleError(c, err, "failed to get media")
	}

	return c.JSON(fiber.Map{"downloadUrl": downloadURL})
}

// ReportUpload handles PATCH /v1/media/:mediaId
func (h *MediaHandler) ReportUpload(c *fiber.Ctx) error {
	projectID, ok := middleware.GetProjectID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "Unauthorized",
			"message": "Project ID not found",
		})
	}

	mediaID, err := uuid.Parse(c.Params("mediaId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid media ID",
		})
	}

	var input domain.UploadReportInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}

	if err := h.mediaService.ReportUpload(c.Context(), projectID, mediaID, &input); err != nil {
		return h.handleError(c, err, "failed to report upload")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MediaHandler) handleError(c *fiber.Ctx, err error, logMsg string) error {
	if apperrors.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "Media not found",
		})
	}
	if apperrors.IsValidation(err) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	}
	h.logger.Error(logMsg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "Internal Server Error",
		"message": logMsg,
	})
}

// RegisterRoutes registers media routes
func (h *MediaHandler) RegisterRoutes(app *fiber.App, authMiddleware *middleware.AuthMiddleware) {
	v1 := app.Group("/v1", authMiddleware.RequireAPIKey())

	v1.Post("/media", h.RequestUploadURL)
	v1.Get("/media/:mediaId", h.GetMedia)
	v1.Patch("/media/:mediaId", h.ReportUpload)
}
