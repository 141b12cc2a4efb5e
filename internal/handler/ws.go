package handler

import (
	"encoding/json"
	"time"

	"github.com/JulienRioux/slabbers/internal/middleware"
	"github.com/JulienRioux/slabbers/internal/model"
	"github.com/JulienRioux/slabbers/internal/service"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const wsReadTimeout = 60 * time.Second

type WSHandler struct {
	hub *service.WSHub
}

func NewWSHandler(hub *service.WSHub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Upgrade accepts anonymous subscribers; a valid bearer token only tags the
// connection with the viewer id.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("viewer_id", middleware.UserID(c))
		return websocket.New(h.handleConnection)(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *WSHandler) handleConnection(c *websocket.Conn) {
	viewerID, _ := c.Locals("viewer_id").(string)

	client := &service.WSClient{
		Conn:     c,
		ViewerID: viewerID,
		Send:     make(chan []byte, 64),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	// Writer goroutine
	go func() {
		defer c.Close()
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// The feed is read-only: inbound frames only keep the connection alive.
	_ = c.SetReadDeadline(time.Now().Add(wsReadTimeout))
	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		_ = c.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var event model.WSEvent
		if err := json.Unmarshal(msg, &event); err != nil || event.Type != "ping" {
			continue
		}
		pong, _ := json.Marshal(model.WSEvent{Type: "pong"})
		select {
		case client.Send <- pong:
		default:
		}
	}
}
