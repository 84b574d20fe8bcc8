package controller

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"ar-session-core/internal/config"
	"ar-session-core/internal/dto"
	"ar-session-core/internal/pkg/logger"
	"ar-session-core/internal/pkg/serverutils"
	"ar-session-core/internal/repository/memory"
	"ar-session-core/internal/service"
	"ar-session-core/pkg/events"
	"ar-session-core/pkg/session"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool                `json:"success"`
	Data    dto.SessionResponse `json:"data"`
}

func newTestApp(t *testing.T, granted ...string) *fiber.App {
	t.Helper()
	repo := memory.NewSessionRepository(time.Minute, time.Minute)
	svc, err := service.NewSessionService(config.SessionConfig{
		GrantedCapabilities: granted,
		LooperBuffer:        8,
		CallTimeout:         time.Second,
	}, repo, events.NopPublisher{}, logger.NewNopLogger(), logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewSessionController(svc).RegisterRoutes(app.Group("/api"))
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode < 300 && resp.StatusCode != fiber.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)

	code, created := do(t, app, "POST", "/api/sessions", nil)
	require.Equal(t, fiber.StatusCreated, code)
	id := created.Data.Session.ID

	code, _ = do(t, app, "POST", "/api/sessions/"+id+"/jobs", map[string]interface{}{"id": "j1", "kind": "place"})
	assert.Equal(t, fiber.StatusAccepted, code)

	code, res := do(t, app, "POST", "/api/sessions/"+id+"/surface", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, session.StateAwaitingPermissions, res.Data.Session.State)
	assert.Equal(t, []string{"j1"}, res.Data.Surface.Jobs)
	require.NotNil(t, res.Data.PendingRequest)

	code, res = do(t, app, "POST", "/api/sessions/"+id+"/permissions", map[string]interface{}{"granted": []bool{true}})
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, session.StateRunning, res.Data.Session.State)

	code, _ = do(t, app, "POST", "/api/sessions/"+id+"/permissions", map[string]interface{}{"granted": []bool{true}})
	assert.Equal(t, fiber.StatusConflict, code)

	code, res = do(t, app, "POST", "/api/sessions/"+id+"/pause", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, session.StatePaused, res.Data.Session.State)

	code, _ = do(t, app, "DELETE", "/api/sessions/"+id, nil)
	assert.Equal(t, fiber.StatusNoContent, code)

	code, _ = do(t, app, "GET", "/api/sessions/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestRequestValidation(t *testing.T) {
	app := newTestApp(t, "camera", "fine_location")

	code, created := do(t, app, "POST", "/api/sessions", map[string]interface{}{"uses_location": true})
	require.Equal(t, fiber.StatusCreated, code)
	id := created.Data.Session.ID
	assert.Equal(t, "gps", created.Data.Session.Mode)

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"fix latitude out of range", "/fixes", map[string]interface{}{"lat": 91.0, "lon": 0.0}},
		{"fix missing longitude", "/fixes", map[string]interface{}{"lat": 10.0}},
		{"job without kind", "/jobs", map[string]interface{}{"id": "x"}},
		{"empty permission answer", "/permissions", map[string]interface{}{"granted": []bool{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := do(t, app, "POST", "/api/sessions/"+id+tt.path, tt.body)
			assert.Equal(t, fiber.StatusBadRequest, code)
		})
	}
}

func TestPushFixOverHTTP(t *testing.T) {
	app := newTestApp(t, "camera", "fine_location")

	_, created := do(t, app, "POST", "/api/sessions", map[string]interface{}{"uses_location": true})
	id := created.Data.Session.ID

	_, res := do(t, app, "POST", "/api/sessions/"+id+"/surface", nil)
	assert.Equal(t, session.StateReady, res.Data.Session.State)

	code, _ := do(t, app, "POST", "/api/sessions/"+id+"/fixes", map[string]interface{}{"lat": 0.0, "lon": 0.0, "altitude_m": 3.0})
	require.Equal(t, fiber.StatusOK, code)

	_, res = do(t, app, "GET", "/api/sessions/"+id, nil)
	assert.Equal(t, session.StateRunning, res.Data.Session.State)
	require.NotNil(t, res.Data.Session.Reference)
	assert.Equal(t, 3.0, res.Data.Session.Reference.Altitude)
}
