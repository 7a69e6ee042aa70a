package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"usersvc/internal/apperrors"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{"conflict sentinel", apperrors.ErrConflict, apperrors.KindConflict},
		{"custom not found", apperrors.New(apperrors.KindNotFound, "User not found."), apperrors.KindNotFound},
		{"fmt wrapped", fmt.Errorf("lookup: %w", apperrors.ErrInvalidInput), apperrors.KindInvalidInput},
		{"oops wrapped", oops.Code("USER_LOGIN_FAILED").With("email", "a@x.com").Wrap(apperrors.New(apperrors.KindInvalidCredential, "Incorrect password.")), apperrors.KindInvalidCredential},
		{"plain error", errors.New("connection reset"), apperrors.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.KindOf(tt.err))
		})
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := oops.Code("USER_REGISTER_FAILED").Wrap(apperrors.New(apperrors.KindConflict, "Account already exist with this email"))

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMessage(t *testing.T) {
	err := oops.With("id", "abc").Wrap(apperrors.New(apperrors.KindNotFound, "User not found."))
	assert.Equal(t, "User not found.", apperrors.Message(err))

	assert.Equal(t, "Internal server error", apperrors.Message(errors.New("dial tcp: refused")))
	assert.Equal(t, "Internal server error", apperrors.Message(apperrors.New(apperrors.KindInternal, "secret misconfigured")))
}

func TestExpected(t *testing.T) {
	assert.True(t, apperrors.Expected(apperrors.ErrInvalidCredential))
	assert.False(t, apperrors.Expected(apperrors.ErrInternal))
	assert.False(t, apperrors.Expected(errors.New("boom")))
	assert.False(t, apperrors.Expected(nil))
}
