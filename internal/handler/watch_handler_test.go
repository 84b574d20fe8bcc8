package handler

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"ar-session-core/internal/config"
	"ar-session-core/internal/dto"
	"ar-session-core/internal/pkg/logger"
	"ar-session-core/internal/repository/memory"
	"ar-session-core/internal/service"
	internalWS "ar-session-core/internal/websocket"
	"ar-session-core/pkg/events"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWsChecksSessionAndUpgrade(t *testing.T) {
	repo := memory.NewSessionRepository(time.Minute, time.Minute)
	svc, err := service.NewSessionService(config.SessionConfig{LooperBuffer: 4, CallTimeout: time.Second},
		repo, events.NopPublisher{}, logger.NewNopLogger(), logger.NewNopLogger())
	require.NoError(t, err)
	defer svc.Close()

	created, err := svc.Create(context.Background(), dto.CreateSessionRequest{})
	require.NoError(t, err)

	app := fiber.New()
	NewWatchHandler(svc, internalWS.NewHub(nil, logger.NewNopLogger()), logger.NewNopLogger()).
		RegisterRoutes(app.Group("/api"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/sessions/missing/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/sessions/"+created.Session.ID+"/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
