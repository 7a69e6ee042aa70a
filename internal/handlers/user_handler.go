package handlers

import (
	"fmt"
	"log/slog"

	"usersvc/internal/apperrors"
	"usersvc/internal/middleware"
	"usersvc/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// UserHandler handles HTTP requests for user accounts.
type UserHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(authService *services.AuthService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		authService: authService,
		validate:    validator.New(),
		logger:      logger,
	}
}

// RegisterRoutes registers the user routes with the Fiber router.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Post("/register", h.HandleRegister)
	userRoutes.Post("/login", h.HandleLogin)
	userRoutes.Get("/me", middleware.AuthRequired(h.authService, h.logger), h.HandleMe)
	userRoutes.Get("/:id", h.HandleGetByID)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates an account and returns a session token.
func (h *UserHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	result, err := h.authService.Register(c.UserContext(), req.Email, req.Name, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleLogin checks credentials and returns a session token.
func (h *UserHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleGetByID returns the public view of a user.
func (h *UserHandler) HandleGetByID(c *fiber.Ctx) error {
	user, err := h.authService.FindByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.View())
}

// HandleMe returns the user identified by the bearer token.
func (h *UserHandler) HandleMe(c *fiber.Ctx) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return respondError(c, apperrors.ErrInvalidCredential)
	}
	user, err := h.authService.FindByID(c.UserContext(), claims.Subject)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user.View())
}

// bind parses and validates the request body into dst. When it reports
// false the 400 response has already been written.
func (h *UserHandler) bind(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		h.logger.WarnContext(c.UserContext(), "invalid request body", "path", c.Path(), "error", err)
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   string(apperrors.KindInvalidInput),
		})
	}

	if err := h.validate.Struct(dst); err != nil {
		errorMessages := make(map[string]string)
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range validationErrors {
				errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
			}
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   string(apperrors.KindInvalidInput),
			"errors":  errorMessages,
		})
	}
	return true, nil
}
