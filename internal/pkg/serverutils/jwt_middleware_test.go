package serverutils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(JwtMiddleware("secret"))
	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals("subject").(string))
	})
	return app
}

func TestJwtMiddleware(t *testing.T) {
	app := newApp()

	tests := []struct {
		name string
		auth string
		want int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, "other"), fiber.StatusUnauthorized},
		{"valid", "Bearer " + sign(t, "secret"), fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestJwtMiddlewareAcceptsQueryToken(t *testing.T) {
	app := newApp()
	req := httptest.NewRequest("GET", "/?token="+sign(t, "secret"), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
