package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"userbook/internal/handlers"
	"userbook/internal/models"
	"userbook/internal/repositories"
	"userbook/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRepository behaves like a store whose server went away.
type unreachableRepository struct {
	*repositories.MockUserRepository
}

func (unreachableRepository) FindAll(context.Context) ([]models.User, error) {
	return nil, fmt.Errorf("failed to get all users: %w", repositories.ErrConnection)
}

func (unreachableRepository) Ping(context.Context) error {
	return repositories.ErrConnection
}

// setupApp sets up a Fiber app for testing on top of repo.
func setupApp(repo repositories.UserRepository) *fiber.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := services.NewUserService(repo, services.WithLogger(logger))
	handler := handlers.NewUserHandler(service, logger)

	app := fiber.New()
	app.Get("/health", handler.HandleHealth)
	handler.RegisterRoutes(app.Group("/api/v1"))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func listUsers(t *testing.T, app *fiber.App, target string) []map[string]any {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var users []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	return users
}

func TestUserLifecycle(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	app := setupApp(repo)

	// Create
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Ana", "email": "ana@x.com", "password": "pw1",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	// Read
	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/users/"+id, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, id, body["id"])
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, "ana@x.com", body["email"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "Password")

	// The store keeps the password as given
	stored, ok, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.Credential("pw1"), stored.Password)

	// Update
	resp, body = doJSON(t, app, http.MethodPut, "/api/v1/users/"+id, map[string]string{
		"name": "Ana Silva", "email": "ana@x.com", "password": "pw2",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["affected"])

	users := listUsers(t, app, "/api/v1/users?email=ana@x.com")
	require.Len(t, users, 1)
	assert.Equal(t, id, users[0]["id"])
	assert.Equal(t, "Ana Silva", users[0]["name"])

	stored, _, err = repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.Credential("pw2"), stored.Password)

	// Delete needs confirmation
	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/users/"+id, nil)
	assert.Equal(t, fiber.StatusPreconditionRequired, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodDelete, "/api/v1/users/"+id+"?confirm=true", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["affected"])

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/users/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Deleting again is a reported no-op
	resp, body = doJSON(t, app, http.MethodDelete, "/api/v1/users/"+id+"?confirm=true", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["affected"])
}

func TestCreateUser_Validation(t *testing.T) {
	app := setupApp(repositories.NewMockUserRepository())

	tests := []struct {
		name    string
		payload map[string]string
		field   string
	}{
		{"missing name", map[string]string{"email": "a@x.com", "password": "pw"}, "Name"},
		{"blank email", map[string]string{"name": "Ana", "email": "   ", "password": "pw"}, "Email"},
		{"empty password", map[string]string{"name": "Ana", "email": "a@x.com", "password": ""}, "Password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/api/v1/users", tt.payload)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Validation failed", body["message"])
			errs, _ := body["errors"].(map[string]any)
			assert.Contains(t, errs, tt.field)
		})
	}

	users := listUsers(t, app, "/api/v1/users")
	assert.Empty(t, users)
}

func TestCreateUser_BadBody(t *testing.T) {
	app := setupApp(repositories.NewMockUserRepository())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetUser_InvalidAndMissingID(t *testing.T) {
	app := setupApp(repositories.NewMockUserRepository())

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/users/not-an-id", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid user id")

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/users/"+uuid.New().String(), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/users/not-an-id?confirm=true", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPut, "/api/v1/users/"+uuid.New().String(), map[string]string{
		"name": "Ghost", "email": "ghost@x.com", "password": "pw",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateUser_ChangedEmailMatchesNothing(t *testing.T) {
	app := setupApp(repositories.NewMockUserRepository())

	_, body := doJSON(t, app, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Ana", "email": "ana@x.com", "password": "pw1",
	})
	id := body["id"].(string)

	resp, body := doJSON(t, app, http.MethodPut, "/api/v1/users/"+id, map[string]string{
		"name": "Ana", "email": "ana.silva@x.com", "password": "pw1",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["affected"])

	_, body = doJSON(t, app, http.MethodGet, "/api/v1/users/"+id, nil)
	assert.Equal(t, "ana@x.com", body["email"])
}

func TestUpdateUser_ChangedEmailMatchesAnotherUser(t *testing.T) {
	repo := repositories.NewMockUserRepository()
	app := setupApp(repo)
	ctx := context.Background()

	_, body := doJSON(t, app, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Ana", "email": "ana@x.com", "password": "pw1",
	})
	anaID := body["id"].(string)
	_, body = doJSON(t, app, http.MethodPost, "/api/v1/users", map[string]string{
		"name": "Bia", "email": "bia@x.com", "password": "pw2",
	})
	biaID := body["id"].(string)

	resp, body := doJSON(t, app, http.MethodPut, "/api/v1/users/"+anaID, map[string]string{
		"name": "Ana2", "email": "bia@x.com", "password": "x",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["affected"])
	assert.Equal(t, "bia@x.com", body["matched_email"])
	assert.NotContains(t, body, "user")

	// The record in the URL is untouched; the one owning the email changed
	ana, ok, err := repo.FindByID(ctx, anaID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.User{ID: anaID, Name: "Ana", Email: "ana@x.com", Password: "pw1"}, ana)

	bia, ok, err := repo.FindByID(ctx, biaID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.User{ID: biaID, Name: "Ana2", Email: "bia@x.com", Password: "x"}, bia)
}

func TestListUsers_Filters(t *testing.T) {
	app := setupApp(repositories.NewMockUserRepository())

	for _, u := range []map[string]string{
		{"name": "Ana", "email": "ana@x.com", "password": "pw1"},
		{"name": "Bia", "email": "bia@x.com", "password": "pw2"},
		{"name": "Ana", "email": "ana2@x.com", "password": "pw3"},
	} {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/users", u)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	assert.Len(t, listUsers(t, app, "/api/v1/users"), 3)
	assert.Len(t, listUsers(t, app, "/api/v1/users?name=Ana"), 2)
	assert.Len(t, listUsers(t, app, "/api/v1/users?email=bia@x.com"), 1)
	assert.Empty(t, listUsers(t, app, "/api/v1/users?name=Nobody"))
}

func TestStoreUnavailable(t *testing.T) {
	app := setupApp(unreachableRepository{repositories.NewMockUserRepository()})

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "Could not retrieve users", body["message"])

	resp, body = doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "unavailable", body["status"])
}

func TestHealth(t *testing.T) {
	app := setupApp(repositories.NewMockUserRepository())

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}
