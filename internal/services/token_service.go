package services

import (
	"errors"
	"fmt"
	"time"

	"usersvc/internal/apperrors"
	"usersvc/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// ErrInvalidToken is returned by Verify for tokens that are malformed,
// badly signed or expired.
var ErrInvalidToken = apperrors.New(apperrors.KindInvalidCredential, "Invalid or expired token")

// Claims are the identity facts carried by a session token. The user id is
// the registered subject claim.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies stateless HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService for the shared secret. Tokens expire
// ttl after issuance.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the lifetime given to issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed token for user.
func (s *TokenService) Issue(user *models.User) (string, error) {
	if len(s.secret) == 0 {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("user_id", user.ID).
			Wrap(apperrors.New(apperrors.KindInternal, "signing secret is not configured"))
	}
	if s.ttl <= 0 {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("ttl", s.ttl.String()).
			Wrap(apperrors.New(apperrors.KindInternal, "token lifetime must be positive"))
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("user_id", user.ID).
			Wrap(fmt.Errorf("failed to generate token: %w", err))
	}
	return signed, nil
}

// Verify parses tokenString, checks its signature against the shared secret
// and rejects expired tokens.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		reason := "malformed"
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			reason = "expired"
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			reason = "signature"
		}
		return nil, oops.Code("TOKEN_INVALID").With("reason", reason).Wrap(ErrInvalidToken)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, oops.Code("TOKEN_INVALID").With("reason", "claims").Wrap(ErrInvalidToken)
	}
	return claims, nil
}
