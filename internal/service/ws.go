package service

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/JulienRioux/slabbers/internal/model"

	"github.com/gofiber/contrib/websocket"
)

// WSClient is one live-feed subscriber. Viewers may be anonymous.
type WSClient struct {
	Conn     *websocket.Conn
	ViewerID string
	Send     chan []byte
}

// WSHub fans marketplace events out to every connected subscriber.
type WSHub struct {
	clients    map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan []byte
	mu         sync.RWMutex
	done       chan struct{}
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] subscriber connected (total: %d)", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] subscriber disconnected (total: %d)", n)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.done:
			return
		}
	}
}

func (h *WSHub) Shutdown() {
	close(h.done)
}

func (h *WSHub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *WSHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues event for every subscriber. Events are dropped when the
// queue is full.
func (h *WSHub) Broadcast(event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Printf("[WS] broadcast queue full, dropping %s", event.Type)
	}
}

func (h *WSHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHub) CardListed(card *model.CardSummary) {
	h.publish(model.WSCardListed, cardEvent(&card.Card))
}

func (h *WSHub) CardRemoved(card *model.Card) {
	h.publish(model.WSCardRemoved, cardEvent(card))
}

func (h *WSHub) publish(eventType string, payload model.WSCardEvent) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.Broadcast(&model.WSEvent{Type: eventType, Data: data})
}

func cardEvent(c *model.Card) model.WSCardEvent {
	ev := model.WSCardEvent{
		CardID:     c.ID,
		Title:      c.Title,
		OwnerID:    c.UserID,
		ForSale:    c.ForSale,
		PriceCents: c.PriceCents,
		Currency:   c.Currency,
	}
	if len(c.ImageURLs) > 0 {
		ev.ImageURL = c.ImageURLs[0]
	}
	return ev
}
