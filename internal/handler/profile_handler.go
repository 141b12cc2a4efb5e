package handler

import (
	"errors"
	"log"

	"github.com/JulienRioux/slabbers/internal/middleware"
	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProfileHandler struct {
	profileSvc *service.ProfileService
}

func NewProfileHandler(profileSvc *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// GET /api/v1/users/:id
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	p, err := h.profileSvc.GetProfile(c.Context(), c.Params("id"))
	if err != nil {
		return profileError(c, err)
	}
	return c.JSON(p.Owner())
}

// PUT /api/v1/profile
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	p, err := h.profileSvc.UpdateProfile(c.Context(), middleware.UserID(c), &req)
	if err != nil {
		return profileError(c, err)
	}
	return c.JSON(p)
}

// POST /api/v1/profile/avatar (multipart/form-data, field "avatar")
func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "missing `avatar` file field"})
	}
	up, err := readUpload(fh)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "could not read avatar"})
	}

	avatarURL, err := h.profileSvc.UploadAvatar(c.Context(), middleware.UserID(c), up)
	if err != nil {
		return profileError(c, err)
	}
	return c.JSON(fiber.Map{"avatar_url": avatarURL})
}

func profileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "profile not found"})
	case errors.Is(err, service.ErrUsernameTaken):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidProfile), errors.Is(err, service.ErrNotAnImage):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrStorageUnavailable):
		return c.Status(503).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("[PROFILE ERROR] %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}
}
