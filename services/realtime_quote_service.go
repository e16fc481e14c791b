package services

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket service configuration
const (
	MaxWebSocketClients   = 100
	WebSocketWriteTimeout = 10 * time.Second
	WebSocketPongTimeout  = 60 * time.Second
	WebSocketPingInterval = 30 * time.Second
)

// WebSocketMessage represents a message to broadcast
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time string      `json:"time"`
}

// clientCommand represents an inbound client message
type clientCommand struct {
	Action  string   `json:"action"` // subscribe, unsubscribe
	Symbols []string `json:"symbols"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn       *websocket.Conn
	send       chan []byte
	subscribed map[string]bool
	mu         sync.RWMutex
}

// subscribedTo reports whether the client wants updates for a symbol.
// Clients with no subscriptions receive everything.
func (c *WSClient) subscribedTo(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.subscribed) == 0 {
		return true
	}
	return c.subscribed[symbol]
}

// RealtimeQuoteService streams quote updates to WebSocket clients
type RealtimeQuoteService struct {
	clients    map[*WSClient]bool
	broadcast  chan WebSocketMessage
	register   chan *WSClient
	unregister chan *WSClient
	shutdown   chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// Global realtime service
var GlobalRealtimeService *RealtimeQuoteService

// InitRealtimeQuoteService initializes the realtime quote service
func InitRealtimeQuoteService() error {
	GlobalRealtimeService = &RealtimeQuoteService{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WebSocketMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	go GlobalRealtimeService.run()

	log.Println("Realtime Quote Service initialized")
	return nil
}

// Shutdown gracefully shuts down the service
func (s *RealtimeQuoteService) Shutdown() {
	close(s.shutdown)

	s.mu.Lock()
	for client := range s.clients {
		close(client.send)
		client.conn.Close()
	}
	s.clients = make(map[*WSClient]bool)
	s.mu.Unlock()

	log.Println("Realtime Quote Service shutdown complete")
}

// run starts the WebSocket hub
func (s *RealtimeQuoteService) run() {
	for {
		select {
		case <-s.shutdown:
			return

		case client := <-s.register:
			s.mu.Lock()
			if len(s.clients) >= MaxWebSocketClients {
				s.mu.Unlock()
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server at capacity"))
				client.conn.Close()
				log.Printf("WebSocket client rejected: max clients reached (%d)", MaxWebSocketClients)
				continue
			}
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			log.Printf("WebSocket client connected. Total clients: %d", clientCount)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			log.Printf("WebSocket client disconnected. Total clients: %d", clientCount)

		case message := <-s.broadcast:
			s.deliver(message)
		}
	}
}

// deliver sends a message to all clients subscribed to its symbols
func (s *RealtimeQuoteService) deliver(message WebSocketMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadClients := make([]*WSClient, 0)
	for client := range s.clients {
		payload, err := s.filterForClient(client, message)
		if err != nil {
			log.Printf("Error marshaling broadcast message: %v", err)
			return
		}
		if payload == nil {
			continue
		}

		select {
		case client.send <- payload:
		default:
			// Client buffer full, mark for removal
			deadClients = append(deadClients, client)
		}
	}

	for _, client := range deadClients {
		delete(s.clients, client)
		close(client.send)
	}
}

// filterForClient narrows a quote broadcast to the client's subscriptions.
// Returns nil when nothing matches.
func (s *RealtimeQuoteService) filterForClient(client *WSClient, message WebSocketMessage) ([]byte, error) {
	quotes, ok := message.Data.([]AssetQuoteSnapshot)
	if !ok {
		return json.Marshal(message)
	}

	filtered := make([]AssetQuoteSnapshot, 0, len(quotes))
	for _, quote := range quotes {
		if client.subscribedTo(quote.Symbol) {
			filtered = append(filtered, quote)
		}
	}

	if len(filtered) == 0 {
		return nil, nil
	}

	return json.Marshal(WebSocketMessage{
		Type: message.Type,
		Data: filtered,
		Time: message.Time,
	})
}

// BroadcastQuotes pushes fresh quotes to all connected clients
func (s *RealtimeQuoteService) BroadcastQuotes(quotes []AssetQuoteSnapshot) {
	if len(quotes) == 0 {
		return
	}

	message := WebSocketMessage{
		Type: "quotes",
		Data: quotes,
		Time: time.Now().UTC().Format(time.RFC3339),
	}

	select {
	case s.broadcast <- message:
	default:
		log.Println("Broadcast channel full, dropping quote update")
	}
}

// ClientCount returns the number of connected clients
func (s *RealtimeQuoteService) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleWebSocket handles WebSocket connections
func (s *RealtimeQuoteService) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	atCapacity := len(s.clients) >= MaxWebSocketClients
	s.mu.RUnlock()

	if atCapacity {
		http.Error(w, "Server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &WSClient{
		conn:       conn,
		send:       make(chan []byte, 256),
		subscribed: make(map[string]bool),
	}

	s.register <- client

	go client.writePump()
	go client.readPump(s)
}

// writePump writes messages to the WebSocket connection
func (c *WSClient) writePump() {
	ticker := time.NewTicker(WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads subscription commands from the WebSocket connection
func (c *WSClient) readPump(s *RealtimeQuoteService) {
	defer func() {
		s.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(WebSocketPongTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}

		c.mu.Lock()
		switch cmd.Action {
		case "subscribe":
			for _, symbol := range cmd.Symbols {
				c.subscribed[strings.ToUpper(strings.TrimSpace(symbol))] = true
			}
		case "unsubscribe":
			for _, symbol := range cmd.Symbols {
				delete(c.subscribed, strings.ToUpper(strings.TrimSpace(symbol)))
			}
		}
		c.mu.Unlock()
	}
}
