package services

import (
	"context"
	"errors"
	"log/slog"

	"usersvc/internal/apperrors"
	"usersvc/internal/metrics"
	"usersvc/internal/models"
	"usersvc/internal/repositories"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for new password hashes.
const DefaultBcryptCost = 10

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Event types published after successful account operations.
const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
)

// Messages returned alongside issued tokens.
const (
	MessageRegistered = "User is registered successfully"
	MessageLoggedIn   = "User is login successfully"

	MessagePasswordTooLong = "Password must be at most 72 bytes."
)

// UserEventPublisher delivers account events to interested consumers.
type UserEventPublisher interface {
	PublishUserEvent(eventType string, payload map[string]interface{}) error
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// AuthService handles registration, login and user lookup.
type AuthService struct {
	userRepo   repositories.UserRepository
	tokens     *TokenService
	logger     *slog.Logger
	events     UserEventPublisher
	bcryptCost int
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithEventPublisher sets the publisher notified after register and login.
func WithEventPublisher(p UserEventPublisher) Option {
	return func(s *AuthService) {
		s.events = p
	}
}

// WithBcryptCost overrides DefaultBcryptCost.
func WithBcryptCost(cost int) Option {
	return func(s *AuthService) {
		s.bcryptCost = cost
	}
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, tokens *TokenService, logger *slog.Logger, opts ...Option) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		logger:     logger.With("component", "auth"),
		bcryptCost: DefaultBcryptCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account for email and returns a session token for it.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (result *AuthResult, err error) {
	defer func() { s.observe(ctx, "register", err, "email", email) }()

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("email", email).
			Wrap(apperrors.New(apperrors.KindConflict, "Account already exist with this email"))
	}
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("operation", "check existing email").
			Wrap(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("email", email).
			Wrap(apperrors.New(apperrors.KindInvalidInput, MessagePasswordTooLong))
	}
	if err != nil {
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			// Lost a race with a concurrent registration for the same email.
			return nil, oops.Code("USER_REGISTER_FAILED").
				With("email", email).
				Wrap(apperrors.New(apperrors.KindConflict, "Account already exist with this email"))
		}
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("operation", "persist user").
			Wrap(err)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	s.publish(ctx, EventUserRegistered, user)

	return &AuthResult{Message: MessageRegistered, Token: token}, nil
}

// Login checks the password for email and returns a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (result *AuthResult, err error) {
	defer func() { s.observe(ctx, "login", err, "email", email) }()

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, oops.Code("USER_LOGIN_FAILED").
				With("email", email).
				Wrap(apperrors.New(apperrors.KindNotFound, "Invalid email."))
		}
		return nil, oops.Code("USER_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, oops.Code("USER_LOGIN_FAILED").
				With("user_id", user.ID).
				Wrap(apperrors.New(apperrors.KindInvalidCredential, "Incorrect password."))
		}
		return nil, oops.Code("USER_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID).
			Wrap(err)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	s.publish(ctx, EventUserLoggedIn, user)

	return &AuthResult{Message: MessageLoggedIn, Token: token}, nil
}

// FindByID returns the user with the given id.
func (s *AuthService) FindByID(ctx context.Context, id string) (user *models.User, err error) {
	defer func() { s.observe(ctx, "find_by_id", err, "id", id) }()

	if !models.IsValidID(id) {
		return nil, oops.Code("USER_LOOKUP_FAILED").
			With("id", id).
			Wrap(apperrors.New(apperrors.KindInvalidInput, "Invalid ID format. Id should be a valid mongodb ObjectId."))
	}

	user, err = s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, oops.Code("USER_LOOKUP_FAILED").
				With("id", id).
				Wrap(apperrors.New(apperrors.KindNotFound, "User not found."))
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	return user, nil
}

// VerifyToken validates a session token issued by this service.
func (s *AuthService) VerifyToken(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

func (s *AuthService) issue(user *models.User) (string, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", err
	}
	metrics.TokensIssued.Inc()
	return token, nil
}

// observe records the outcome of op and logs failures. Client-caused
// failures are logged at warn so they do not drown real faults.
func (s *AuthService) observe(ctx context.Context, op string, err error, args ...any) {
	if err == nil {
		metrics.AuthOperations.WithLabelValues(op, metrics.OutcomeSuccess).Inc()
		return
	}

	kind := apperrors.KindOf(err)
	metrics.AuthOperations.WithLabelValues(op, string(kind)).Inc()

	args = append(args, "operation", op, "kind", string(kind), "error", err)
	if apperrors.Expected(err) {
		s.logger.WarnContext(ctx, op+" failed", args...)
		return
	}
	s.logger.ErrorContext(ctx, op+" failed", args...)
}

// publish emits an account event. Delivery failures are logged and never
// fail the request.
func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
		"name":    user.Name,
	}
	if err := s.events.PublishUserEvent(eventType, payload); err != nil {
		metrics.EventPublishFailures.WithLabelValues(eventType).Inc()
		s.logger.WarnContext(ctx, "failed to publish user event", "event", eventType, "user_id", user.ID, "error", err)
	}
}
