package middleware

import (
	"log/slog"
	"strings"

	"usersvc/internal/apperrors"
	"usersvc/internal/metrics"
	"usersvc/internal/services"

	"github.com/gofiber/fiber/v2"
)

const claimsKey = "claims"

// Rejection reasons reported in logs and metrics.
const (
	ReasonMissingHeader   = "missing_header"
	ReasonMalformedHeader = "malformed_header"
	ReasonInvalidToken    = "invalid_token"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	VerifyToken(token string) (*services.Claims, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// Rejections are logged at WARN and counted by reason.
func AuthRequired(verifier TokenVerifier, logger *slog.Logger) fiber.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth_middleware")

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return reject(c, logger, ReasonMissingHeader, "Authorization header is required", nil)
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return reject(c, logger, ReasonMalformedHeader, "Authorization header format must be 'Bearer <token>'", nil)
		}

		claims, err := verifier.VerifyToken(parts[1])
		if err != nil {
			return reject(c, logger, ReasonInvalidToken, apperrors.Message(err), err)
		}

		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthRequired.
func ClaimsFrom(c *fiber.Ctx) (*services.Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*services.Claims)
	return claims, ok && claims != nil
}

func reject(c *fiber.Ctx, logger *slog.Logger, reason, message string, err error) error {
	metrics.TokenRejections.WithLabelValues(reason).Inc()

	args := []any{"reason", reason, "method", c.Method(), "path", c.Path(), "ip", c.IP()}
	if err != nil {
		args = append(args, "error", err)
	}
	logger.WarnContext(c.UserContext(), "token rejected", args...)

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": message,
		"error":   string(apperrors.KindInvalidCredential),
	})
}
