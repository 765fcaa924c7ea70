package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Mobile clients connect from app schemes, not origins
	},
}

// Client represents a connected WebSocket client
type Client struct {
	ID       uint
	UserType string
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
}

// Hub maintains the set of active clients. Every negotiation event the
// engine emits is fanned out here to the rider and drivers involved.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %d connected", client.ID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mutex.Unlock()
			log.Printf("Client %d disconnected", client.ID)
		}
	}
}

// SendToUser sends a message to every connection of one user
func (h *Hub) SendToUser(userID uint, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.ID == userID {
			select {
			case client.Send <- message:
			default:
				log.Printf("Warning: dropping message for client %d (channel full)", client.ID)
			}
		}
	}
}

// ConnectedClients returns the number of connected clients
func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Event is the envelope every WebSocket message uses
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Event type names
const (
	EventDispatchRequest  = "ride_request"
	EventNewOffer         = "driver_offer"
	EventOfferUpdated     = "driver_offer_updated"
	EventCounterOffer     = "counter_offer"
	EventCounterResolved  = "counter_resolved"
	EventRideConfirmed    = "ride_confirmed"
	EventRideCancelled    = "ride_cancelled"
	EventSharedRideJoin   = "shared_ride_join"
	EventSharedRideUpdate = "shared_ride_update"
)

// Emit marshals an event and sends it to one user. Marshal failures are
// logged and dropped; realtime delivery is best-effort, the row store stays
// the source of truth.
func (h *Hub) Emit(userID uint, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("Error marshaling %s event: %v", eventType, err)
		return
	}
	h.SendToUser(userID, payload)
}

// HandleWebSocket upgrades the connection and registers the client
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, userType string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:       userID,
		UserType: userType,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      hub,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so close frames are noticed. Clients do not
// drive negotiation over the socket; all mutations go through HTTP.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
