package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/url"

	"github.com/JulienRioux/slabbers/internal/cardquery"
	"github.com/JulienRioux/slabbers/internal/middleware"
	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CardHandler struct {
	cardSvc *service.CardService
}

func NewCardHandler(cardSvc *service.CardService) *CardHandler {
	return &CardHandler{cardSvc: cardSvc}
}

type pageLinks struct {
	Prev *string `json:"prev"`
	Next *string `json:"next"`
}

type pageResponse struct {
	model.CardPage
	Links pageLinks `json:"links"`
}

// GET /api/v1/cards
func (h *CardHandler) Gallery(c *fiber.Ctx) error {
	return h.listPage(c, service.PublicScope(), cardquery.SortNewest)
}

// GET /api/v1/cards/search
func (h *CardHandler) Search(c *fiber.Ctx) error {
	scope := service.PublicScope()
	if owner := c.Query("userId"); owner != "" {
		scope = service.UserScope(owner)
	}
	return h.listPage(c, scope, cardquery.SortPriceDesc)
}

// GET /api/v1/users/:id/cards
func (h *CardHandler) UserCards(c *fiber.Ctx) error {
	return h.listPage(c, service.UserScope(c.Params("id")), cardquery.SortNewest)
}

func (h *CardHandler) listPage(c *fiber.Ctx, scope service.Scope, defaultSort cardquery.Sort) error {
	raw, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		raw = url.Values{}
	}
	filter, page := cardquery.Normalize(raw, defaultSort)

	result := h.cardSvc.ListPage(c.Context(), scope, middleware.UserID(c), filter, page)

	canonical := cardquery.Encode(filter, page, defaultSort)
	resp := pageResponse{CardPage: result}
	if result.HasPrev {
		resp.Links.Prev = pageLink(canonical, defaultSort, result.Page-1)
	}
	if result.HasNext {
		resp.Links.Next = pageLink(canonical, defaultSort, result.Page+1)
	}
	return c.JSON(resp)
}

func pageLink(base url.Values, defaultSort cardquery.Sort, page int) *string {
	link := "?" + cardquery.Build(base, defaultSort, cardquery.SetPage(page)).Encode()
	return &link
}

// GET /api/v1/cards/:id
func (h *CardHandler) Get(c *fiber.Ctx) error {
	card, err := h.cardSvc.GetCard(c.Context(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return cardError(c, err)
	}
	return c.JSON(card)
}

// POST /api/v1/cards (multipart/form-data)
func (h *CardHandler) Create(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "send a multipart/form-data request"})
	}
	v := form.Value

	manufacturer := firstValue(v, "manufacturer")
	if manufacturer == "" {
		manufacturer = firstValue(v, "brand")
	}
	req := &model.CreateCardRequest{
		IsPrivate:      formBool(firstValue(v, "is_private")),
		Title:          firstValue(v, "title"),
		Player:         firstValue(v, "player"),
		Manufacturer:   manufacturer,
		SetName:        optionalString(firstValue(v, "set_name")),
		CardNumber:     optionalString(firstValue(v, "card_number")),
		IsGraded:       formBool(firstValue(v, "is_graded")),
		GradingCompany: optionalString(firstValue(v, "grading_company")),
		Grade:          optionalString(firstValue(v, "grade")),
		Rookie:         formBool(firstValue(v, "rookie")),
		Autograph:      formBool(firstValue(v, "autograph")),
		SerialNumbered: formBool(firstValue(v, "serial_numbered")),
		PrintRun:       parseOptionalInt(firstValue(v, "print_run")),
		ForSale:        formBool(firstValue(v, "for_sale")),
		PriceCents:     parseOptionalInt64(firstValue(v, "price_cents")),
		Currency:       firstValue(v, "currency"),
	}
	if year := parseOptionalInt(firstValue(v, "year")); year != nil {
		req.Year = *year
	}

	uploads, err := readUploads(form.File["images"], service.MaxCardImages)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "could not read uploaded images"})
	}

	id, err := h.cardSvc.CreateCard(c.Context(), userID, req, uploads)
	if err != nil {
		return cardError(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": id})
}

// PATCH /api/v1/cards/:id
func (h *CardHandler) Update(c *fiber.Ctx) error {
	var body map[string]any
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON body"})
	}

	req := &model.UpdateCardRequest{
		Title:                   toRequiredString(body["title"]),
		Year:                    toOptionalInt(body["year"]),
		Player:                  toRequiredString(body["player"]),
		Manufacturer:            toRequiredString(body["manufacturer"]),
		Team:                    toOptionalString(body["team"]),
		League:                  toOptionalString(body["league"]),
		IsSport:                 toBoolean(body["is_sport"]),
		Sport:                   toOptionalString(body["sport"]),
		Condition:               toOptionalString(body["condition"]),
		ConditionDetail:         toOptionalString(body["condition_detail"]),
		CountryOfOrigin:         toOptionalString(body["country_of_origin"]),
		OriginalLicensedReprint: toOptionalString(body["original_licensed_reprint"]),
		ParallelVariety:         toOptionalString(body["parallel_variety"]),
		Features:                toOptionalString(body["features"]),
		Season:                  toOptionalString(body["season"]),
		YearManufactured:        toOptionalInt(body["year_manufactured"]),
		IsPrivate:               toBoolean(body["is_private"]),
		SetName:                 toOptionalString(body["set_name"]),
		CardNumber:              toOptionalString(body["card_number"]),
		IsGraded:                toBoolean(body["is_graded"]),
		GradingCompany:          toOptionalString(body["grading_company"]),
		Grade:                   toOptionalString(body["grade"]),
		Rookie:                  toBoolean(body["rookie"]),
		Autograph:               toBoolean(body["autograph"]),
		SerialNumbered:          toBoolean(body["serial_numbered"]),
		PrintRun:                toOptionalInt(body["print_run"]),
		ForSale:                 toBoolean(body["for_sale"]),
		PriceCents:              toOptionalInt64(body["price_cents"]),
		Currency:                toRequiredString(body["currency"]),
		Notes:                   toOptionalString(body["notes"]),
	}

	if err := h.cardSvc.UpdateCard(c.Context(), c.Params("id"), middleware.UserID(c), req); err != nil {
		return cardError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// DELETE /api/v1/cards/:id
func (h *CardHandler) Delete(c *fiber.Ctx) error {
	if err := h.cardSvc.DeleteCard(c.Context(), c.Params("id"), middleware.UserID(c)); err != nil {
		return cardError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func cardError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrCardNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, service.ErrNotCardOwner):
		return c.Status(403).JSON(fiber.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrNoImages),
		errors.Is(err, service.ErrPriceRequired),
		errors.Is(err, service.ErrSportRequired),
		errors.Is(err, service.ErrInvalidGrade):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrStorageUnavailable):
		return c.Status(503).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("[CARDS ERROR] %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal server error"})
	}
}
