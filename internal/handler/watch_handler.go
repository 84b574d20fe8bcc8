package handler

import (
	"errors"

	"ar-session-core/internal/pkg/logger"
	"ar-session-core/internal/pkg/serverutils"
	"ar-session-core/internal/service"
	internalWS "ar-session-core/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WatchHandler streams a session's events to websocket clients.
type WatchHandler struct {
	sessions service.ISessionService
	hub      *internalWS.Hub
	logger   logger.ILogger
}

func NewWatchHandler(sessions service.ISessionService, hub *internalWS.Hub, log logger.ILogger) *WatchHandler {
	return &WatchHandler{
		sessions: sessions,
		hub:      hub,
		logger:   log,
	}
}

// ServeWs upgrades GET /sessions/:id/ws for an existing session.
func (h *WatchHandler) ServeWs(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if _, err := h.sessions.Get(c.UserContext(), sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("WatchHandler", "Watcher connected", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID)
			h.logger.Info("WatchHandler", "Watcher disconnected", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *WatchHandler) RegisterRoutes(router fiber.Router, middleware ...fiber.Handler) {
	sessions := router.Group("/sessions", middleware...)
	sessions.Get("/:id/ws", h.ServeWs)
}
