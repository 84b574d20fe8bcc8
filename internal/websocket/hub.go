package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ar-session-core/internal/eventbus"
	"ar-session-core/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel is the redis channel instances use to share session events.
const ClusterChannel = "arsession_cluster_events"

type Hub struct {
	// Registered clients map: SessionID -> watchers of that session
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// instance tags outgoing redis messages so we skip our own echo
	instance string

	logger logger.ILogger
}

type clusterMessage struct {
	Origin          string          `json:"origin"`
	TargetSessionID string          `json:"target_session_id"`
	Message         json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		instance:   uuid.NewString(),
		logger:     log,
	}
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
					h.logger.Info("Hub", "Session has no more watchers", map[string]interface{}{"session_id": client.SessionID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Watchers returns how many local connections follow sessionID.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Send delivers an event envelope to every watcher of its session, locally
// and through redis when configured.
func (h *Hub) Send(env eventbus.Envelope) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "session_event",
		"data": env,
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal envelope", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliverLocal(env.SessionID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{
			Origin:          h.instance,
			TargetSessionID: env.SessionID,
			Message:         data,
		})
		if err := h.rdb.Publish(context.Background(), ClusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// deliverLocal never blocks; a watcher with a full buffer misses the message.
func (h *Hub) deliverLocal(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"session_id": sessionID})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
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
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instance {
				continue
			}
			h.deliverLocal(payload.TargetSessionID, payload.Message)
		}
	}
}
