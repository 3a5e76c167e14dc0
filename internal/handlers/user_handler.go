package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"userbook/internal/middleware"
	"userbook/internal/models"
	"userbook/internal/repositories"
	"userbook/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/gofiber/fiber/v2"
)

// UserRequest is the form submitted to create or edit a user.
type UserRequest struct {
	Name     string `json:"name" form:"name" validate:"required,notblank"`
	Email    string `json:"email" form:"email" validate:"required,notblank"`
	Password string `json:"password" form:"password" validate:"required,notblank"`
}

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService, logger *slog.Logger) *UserHandler {
	v := validator.New()
	// notblank also rejects whitespace-only input
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return &UserHandler{
		service:  service,
		validate: v,
		logger:   logger,
	}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleListUsers)
	userRoutes.Get("/:id", h.HandleGetUser)
	userRoutes.Post("/", h.HandleCreateUser)
	userRoutes.Put("/:id", h.HandleUpdateUser)
	userRoutes.Delete("/:id", middleware.RequireConfirmation(), h.HandleDeleteUser)
}

// HandleListUsers lists every user, or filters by the name or email query
// parameter when one is given.
func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var (
		users []models.User
		err   error
	)
	switch {
	case c.Query("name") != "":
		users, err = h.service.FindUsersByName(ctx, c.Query("name"))
	case c.Query("email") != "":
		users, err = h.service.FindUsersByEmail(ctx, c.Query("email"))
	default:
		users, err = h.service.ListUsers(ctx)
	}
	if err != nil {
		return h.storeError(c, "Could not retrieve users", err)
	}
	return c.JSON(users)
}

// HandleGetUser retrieves a single user by its ID.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	userID := c.Params("id")
	user, ok, err := h.service.GetUser(c.UserContext(), userID)
	if err != nil {
		return h.storeError(c, "Could not retrieve user", err)
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("User with ID %s not found", userID),
		})
	}
	return c.JSON(user)
}

// HandleCreateUser creates a new user from the submitted form.
func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	req, ok, err := h.parseRequest(c)
	if !ok {
		return err
	}

	id, err := h.service.CreateUser(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return h.storeError(c, "Could not create user", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"id":      id,
	})
}

// HandleUpdateUser loads the user being edited and applies the submitted
// form to it. The stored record is matched by the submitted email, so
// "affected" is zero when that email matches no record, and the record
// overwritten may differ from the one in the URL. The response therefore
// reports only the matched email, never a record.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	userID := c.Params("id")
	ctx := c.UserContext()

	user, ok, err := h.service.GetUser(ctx, userID)
	if err != nil {
		return h.storeError(c, "Could not retrieve user", err)
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": fmt.Sprintf("User with ID %s not found", userID),
		})
	}

	req, valid, err := h.parseRequest(c)
	if !valid {
		return err
	}

	affected, err := h.service.UpdateUser(ctx, &user, req.Name, req.Email, req.Password)
	if err != nil {
		return h.storeError(c, "Could not update user", err)
	}
	return c.JSON(fiber.Map{
		"message":       fmt.Sprintf("Update applied to the user with email %s", req.Email),
		"matched_email": req.Email,
		"affected":      affected,
	})
}

// HandleDeleteUser deletes a user by its ID.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	userID := c.Params("id")
	affected, err := h.service.DeleteUser(c.UserContext(), userID)
	if err != nil {
		return h.storeError(c, "Could not delete user", err)
	}
	return c.JSON(fiber.Map{
		"message":  fmt.Sprintf("User %s delete applied", userID),
		"affected": affected,
	})
}

// HandleHealth reports whether the user store is reachable.
func (h *UserHandler) HandleHealth(c *fiber.Ctx) error {
	if err := h.service.Ping(c.UserContext()); err != nil {
		h.logger.ErrorContext(c.UserContext(), "health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}

// parseRequest binds and validates the user form. When ok is false the
// error response has already been written and err is the write result.
func (h *UserHandler) parseRequest(c *fiber.Ctx) (req UserRequest, ok bool, err error) {
	if err := c.BodyParser(&req); err != nil {
		h.logger.WarnContext(c.UserContext(), "invalid user request body", "error", err)
		return req, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return req, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Validation failed",
				"error":   err.Error(),
			})
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return req, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return req, true, nil
}

// storeError maps repository failures onto HTTP statuses.
func (h *UserHandler) storeError(c *fiber.Ctx, message string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrInvalidID):
		status = fiber.StatusBadRequest
	case errors.Is(err, repositories.ErrConnection):
		status = fiber.StatusServiceUnavailable
	}
	if status >= fiber.StatusInternalServerError {
		h.logger.ErrorContext(c.UserContext(), message, "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}
