package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"usersvc/internal/handlers"
	"usersvc/internal/models"
	"usersvc/internal/repositories"
	"usersvc/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

// setupApp sets up a Fiber app backed by a private in-memory SQLite database.
func setupApp(t *testing.T) (*fiber.App, *services.TokenService, *repositories.GORMUserRepository) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repositories.OpenGORM("sqlite", dsn)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userRepo := repositories.NewGORMUserRepository(db)
	tokens := services.NewTokenService(testJWTSecret, time.Hour)
	authService := services.NewAuthService(userRepo, tokens, logger, services.WithBcryptCost(bcrypt.MinCost))

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.NewHealthHandler(userRepo).RegisterRoutes(app)
	handlers.NewUserHandler(authService, logger).RegisterRoutes(app.Group("/api/v1"))

	return app, tokens, userRepo
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, headers ...string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func TestUserRegisterAndLogin(t *testing.T) {
	app, tokens, _ := setupApp(t)

	// Register
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/users/register", map[string]string{
		"email":    "a@x.com",
		"name":     "A",
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "User is registered successfully", body["message"])
	registerToken, _ := body["token"].(string)
	require.NotEmpty(t, registerToken)

	claims, err := tokens.Verify(registerToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "A", claims.Name)

	// Duplicate registration
	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/users/register", map[string]string{
		"email":    "a@x.com",
		"name":     "Other",
		"password": "other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["error"])

	// Wrong password
	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "a@x.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Incorrect password.", body["message"])
	assert.Equal(t, "invalid_credential", body["error"])

	// Unknown email
	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "nobody@x.com",
		"password": "secret",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["error"])

	// Correct login
	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "a@x.com",
		"password": "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User is login successfully", body["message"])
	loginToken, _ := body["token"].(string)
	loginClaims, err := tokens.Verify(loginToken)
	require.NoError(t, err)
	assert.Equal(t, claims.Subject, loginClaims.Subject)
}

func TestUserRegister_Validation(t *testing.T) {
	app, _, _ := setupApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/users/register", map[string]string{
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])
	fields, ok := body["errors"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Name")
	assert.Contains(t, fields, "Password")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	raw, err := app.Test(req, -1)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestUserRegister_PasswordTooLong(t *testing.T) {
	app, _, _ := setupApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/users/register", map[string]string{
		"email":    "long@example.com",
		"name":     "Long",
		"password": strings.Repeat("p", services.MaxPasswordBytes+1),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Validation failed", body["message"])
	fields, ok := body["errors"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Field 'Password' failed on the 'max' tag", fields["Password"])

	// 40 runes pass the tag but encode to 120 bytes.
	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/users/register", map[string]string{
		"email":    "euro@example.com",
		"name":     "Euro",
		"password": strings.Repeat("€", 40),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, services.MessagePasswordTooLong, body["message"])
	assert.Equal(t, "invalid_input", body["error"])
}

func TestUserGetByID(t *testing.T) {
	app, _, userRepo := setupApp(t)

	user := &models.User{Email: "b@x.com", Name: "B", PasswordHash: "$2a$04$irrelevant"}
	require.NoError(t, userRepo.Create(context.Background(), user))

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/users/"+user.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"id": user.ID, "email": "b@x.com", "name": "B"}, body)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/users/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", body["error"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/users/"+models.NewID(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "User not found.", body["message"])
}

func TestUserMe(t *testing.T) {
	app, _, _ := setupApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/users/register", map[string]string{
		"email":    "me@x.com",
		"name":     "Me",
		"password": "secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := body["token"].(string)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/users/me", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "me@x.com", body["email"])
	assert.Equal(t, "Me", body["name"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "passwordHash")
}

func TestHealth(t *testing.T) {
	app, _, _ := setupApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth_StoreDown(t *testing.T) {
	app := fiber.New()
	handlers.NewHealthHandler(downStore{}).RegisterRoutes(app)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, handlers.StatusFor("conflict"))
	assert.Equal(t, http.StatusNotFound, handlers.StatusFor("not_found"))
	assert.Equal(t, http.StatusUnauthorized, handlers.StatusFor("invalid_credential"))
	assert.Equal(t, http.StatusBadRequest, handlers.StatusFor("invalid_input"))
	assert.Equal(t, http.StatusInternalServerError, handlers.StatusFor("internal"))
}
