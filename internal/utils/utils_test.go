package utils_test

import (
	"testing"
	"time"

	"gen-gallery/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := utils.NewJWTManager("secret", "HS256", time.Hour)

	token, err := manager.GenerateToken(7, "alice", true)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestJWTManager_RejectsForeignAndExpiredTokens(t *testing.T) {
	manager := utils.NewJWTManager("secret", "HS256", time.Hour)
	other := utils.NewJWTManager("other", "HS256", time.Hour)

	token, err := other.GenerateToken(1, "bob", false)
	require.NoError(t, err)
	_, err = manager.ValidateToken(token)
	assert.Error(t, err)

	expired := utils.NewJWTManager("secret", "HS256", -time.Minute)
	token, err = expired.GenerateToken(1, "bob", false)
	require.NoError(t, err)
	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := utils.HashPassword("hunter22")
	require.NoError(t, err)
	assert.NoError(t, utils.CheckPassword("hunter22", hash))
	assert.Error(t, utils.CheckPassword("wrong", hash))
}

func TestValidateStruct(t *testing.T) {
	type form struct {
		Username string `json:"username" validate:"required,username"`
	}

	assert.NoError(t, utils.ValidateStruct(form{Username: "alice_01"}))

	err := utils.ValidateStruct(form{Username: "a!"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username只能包含字母")

	err = utils.ValidateStruct(form{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username是必填字段")
}
