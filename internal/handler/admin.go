package handler

import (
	"log"

	"github.com/JulienRioux/slabbers/internal/service"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	cardSvc *service.CardService
	wsHub   *service.WSHub
}

func NewAdminHandler(cardSvc *service.CardService, wsHub *service.WSHub) *AdminHandler {
	return &AdminHandler{cardSvc: cardSvc, wsHub: wsHub}
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.cardSvc.Stats(c.Context())
	if err != nil {
		log.Printf("[ADMIN] stats error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to load stats"})
	}

	return c.JSON(fiber.Map{
		"cards_total":    stats.Total,
		"cards_public":   stats.Public,
		"cards_for_sale": stats.ForSale,
		"profiles_total": stats.Profiles,
		"ws_subscribers": h.wsHub.SubscriberCount(),
	})
}
