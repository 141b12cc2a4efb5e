package handler

import (
	"encoding/base64"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/JulienRioux/slabbers/internal/ebay"
	"github.com/JulienRioux/slabbers/internal/roboflow"
	"github.com/JulienRioux/slabbers/internal/service"
	"github.com/JulienRioux/slabbers/internal/vision"

	"github.com/gofiber/fiber/v2"
)

type IdentifyHandler struct {
	identifySvc *service.IdentifyService
	cropSvc     *service.CropService
}

func NewIdentifyHandler(identifySvc *service.IdentifyService, cropSvc *service.CropService) *IdentifyHandler {
	return &IdentifyHandler{identifySvc: identifySvc, cropSvc: cropSvc}
}

// POST /api/v1/cards/identify (multipart/form-data, fields "images" and "country")
func (h *IdentifyHandler) Identify(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "send a multipart/form-data request"})
	}

	uploads, err := readUploads(form.File["images"], vision.MaxImages)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "could not read uploaded images"})
	}
	images := make([]vision.Image, len(uploads))
	for i, up := range uploads {
		images[i] = vision.Image{ContentType: up.ContentType, Data: up.Data}
	}

	country := strings.ToUpper(strings.TrimSpace(firstValue(form.Value, "country")))
	if country == "" {
		country = ebay.DefaultCountry
	}

	result, err := h.identifySvc.Identify(c.Context(), images, country)
	if err != nil {
		return identifyError(c, err)
	}
	return c.JSON(result)
}

// POST /api/v1/cards/crop (multipart/form-data, field "image")
//
// Responds with the cropped JPEG and its box in x-bbox-* headers, or with
// JSON when format=json.
func (h *IdentifyHandler) Crop(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "missing `image` file field in form-data"})
	}
	up, err := readUpload(fh)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "could not read image"})
	}

	res, err := h.cropSvc.Crop(c.Context(), up.Data)
	if err != nil {
		return cropError(c, err)
	}

	if c.Query("format") == "json" {
		return c.JSON(fiber.Map{
			"bbox":          res.BBox,
			"croppedBase64": base64.StdEncoding.EncodeToString(res.JPEG),
		})
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set("x-bbox-x", strconv.Itoa(res.BBox.X))
	c.Set("x-bbox-y", strconv.Itoa(res.BBox.Y))
	c.Set("x-bbox-w", strconv.Itoa(res.BBox.Width))
	c.Set("x-bbox-h", strconv.Itoa(res.BBox.Height))
	return c.Send(res.JPEG)
}

func identifyError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNoImages), errors.Is(err, vision.ErrNoImages):
		return c.Status(400).JSON(fiber.Map{"error": "at least one image is required"})
	case errors.Is(err, service.ErrVisionUnavailable):
		return c.Status(503).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("[IDENTIFY ERROR] %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "identification failed"})
	}
}

func cropError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidImage):
		return c.Status(400).JSON(fiber.Map{"error": service.ErrInvalidImage.Error()})
	case errors.Is(err, roboflow.ErrNoDetection), errors.Is(err, roboflow.ErrBoxTooSmall):
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrDetectorUnavailable):
		return c.Status(503).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("[CROP ERROR] %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "card detection failed"})
	}
}
