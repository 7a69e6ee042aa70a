package repositories

import (
	"context"
	"errors"

	"usersvc/internal/models"
)

var (
	// ErrUserNotFound is returned when no record matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the store rejects an insert because
	// another record already holds the email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserRepository defines the interface for user data access.
// Implementations must enforce email uniqueness atomically at write time.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Ping(ctx context.Context) error
}
