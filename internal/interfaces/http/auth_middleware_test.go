package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/JoseeGarciaa/kryotecsense-sub001/internal/interfaces/http"
	pkgjwt "github.com/JoseeGarciaa/kryotecsense-sub001/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "kryotecsense-test"
	testTTL       = time.Hour
)

// timerDeleteApp replica la política de DELETE /api/timers/:id.
func timerDeleteApp() *fiber.App {
	app := fiber.New()
	app.Delete("/timers/:id",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(apphttp.RoleAdmin, apphttp.RoleSupervisor),
		func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusNoContent)
		},
	)
	return app
}

func signed(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testCompanyID, role, testIssuer, ttl)
	require.NoError(t, err)
	return tok
}

func TestRequireRole_EliminarTemporizador(t *testing.T) {
	cases := []struct {
		name   string
		auth   string
		status int
		code   string
	}{
		{"admin", "Bearer " + signed(t, "admin", testTTL), http.StatusNoContent, ""},
		{"supervisor", "Bearer " + signed(t, "supervisor", testTTL), http.StatusNoContent, ""},
		{"operador", "Bearer " + signed(t, "operador", testTTL), http.StatusForbidden, "FORBIDDEN"},
		{"sin rol", "Bearer " + signed(t, "", testTTL), http.StatusUnauthorized, "MISSING_ROLE"},
		{"sin token", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"expirado", "Bearer " + signed(t, "admin", -time.Minute), http.StatusUnauthorized, "INVALID_TOKEN"},
	}
	app := timerDeleteApp()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/timers/t-1", nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.code != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Contains(t, string(body), tc.code)
			}
		})
	}
}

func TestAuthMiddleware_ExtractaClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":    apphttp.GetUserID(c),
			"company_id": apphttp.GetCompanyID(c),
			"role":       apphttp.GetRole(c),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, "supervisor", testTTL))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, testCompanyID, body["company_id"])
	assert.Equal(t, "supervisor", body["role"])
}

// El upgrade de WebSocket no lleva headers: el token viaja en la query.
func TestAuthMiddleware_TokenEnQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/ws", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.SendString(apphttp.GetCompanyID(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws?token="+signed(t, "operador", testTTL), nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, testCompanyID, string(body))
}

func TestAuthMiddleware_HeaderMalformadoNoCaeALaQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/ws", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+signed(t, "operador", testTTL), nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INVALID_TOKEN")
}
