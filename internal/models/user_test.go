package models_test

import (
	"encoding/json"
	"testing"

	"usersvc/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidID(t *testing.T) {
	assert.True(t, models.IsValidID(models.NewID()))
	assert.True(t, models.IsValidID("507f1f77bcf86cd799439011"))
	assert.False(t, models.IsValidID(""))
	assert.False(t, models.IsValidID("not-an-id"))
	assert.False(t, models.IsValidID("507f1f77bcf86cd79943901"))  // 23 chars
	assert.False(t, models.IsValidID("507f1f77bcf86cd79943901z")) // non-hex
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := models.NewID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestUser_NeverSerializesHash(t *testing.T) {
	u := &models.User{
		ID:           "507f1f77bcf86cd799439011",
		Email:        "a@x.com",
		Name:         "A",
		PasswordHash: "$2a$10$secrethash",
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secrethash")

	raw, err = json.Marshal(u.View())
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"507f1f77bcf86cd799439011","email":"a@x.com","name":"A"}`, string(raw))
}
