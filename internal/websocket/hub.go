package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"videostack-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser verifies an access token. Implemented by *middleware.JWTAuth.
type TokenParser interface {
	ParseAccessToken(tokenStr string) (uuid.UUID, string, error)
}

// Hub fans generation status events from redis out to each user's open sockets.
// One subscription runs per user while at least one socket is open.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	tokens      TokenParser
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client, tokens TokenParser) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		redisClient: redisClient,
		tokens:      tokens,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on a websocket handshake, so the token rides in the query.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, _, err := h.tokens.ParseAccessToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(userID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], conn)

	if len(h.connections[userID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[userID] = cancel
		go h.subscribe(ctx, userID)
	}

	log.Printf("WebSocket connected: user %s (total: %d)", userID, len(h.connections[userID]))
}

func (h *Hub) unregisterConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[userID]
	for i, c := range conns {
		if c == conn {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
		if cancel, ok := h.cancelFuncs[userID]; ok {
			cancel()
			delete(h.cancelFuncs, userID)
		}
	}

	log.Printf("WebSocket disconnected: user %s", userID)
}

func (h *Hub) subscribe(ctx context.Context, userID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, models.GenerationUpdatesChannel(userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

// broadcast is only called from the user's single subscription goroutine,
// so each connection has at most one writer.
func (h *Hub) broadcast(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write failed: user %s: %v", userID, err)
		}
	}
}

// Shutdown stops every subscription and closes all sockets.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, cancel := range h.cancelFuncs {
		cancel()
		delete(h.cancelFuncs, userID)
	}
	for userID, conns := range h.connections {
		for _, c := range conns {
			c.Close()
		}
		delete(h.connections, userID)
	}
}
