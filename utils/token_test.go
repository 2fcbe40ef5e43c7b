package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setKeys(t *testing.T) {
	t.Setenv(AccessKey, "access-secret")
	t.Setenv(RefreshKey, "refresh-secret")
	t.Setenv("JWT_ACCESS_EXPIRE", "5")
	t.Setenv("JWT_REFRESH_EXPIRE", "60")
}

func TestGenerateAndCheckTokens(t *testing.T) {
	setKeys(t)

	tokens, err := GenerateTokens("42", false)
	require.NoError(t, err)

	meta, err := CheckAndExtractTokenMetadata(tokens.Access, AccessKey)
	require.NoError(t, err)
	assert.Equal(t, "42", meta.Id)
	assert.False(t, meta.Otp)
	assert.Greater(t, meta.Exp, time.Now().Unix())

	id, err := meta.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	// access and refresh are signed with different keys
	_, err = CheckAndExtractTokenMetadata(tokens.Access, RefreshKey)
	assert.Error(t, err)
	_, err = CheckAndExtractTokenMetadata(tokens.Refresh, RefreshKey)
	assert.NoError(t, err)
}

func TestCheckRejectsOtherAlgorithms(t *testing.T) {
	setKeys(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "1",
		"otp": false,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = CheckAndExtractTokenMetadata(signed, AccessKey)
	assert.Error(t, err)
}

func TestCheckRejectsExpired(t *testing.T) {
	setKeys(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"id":  "1",
		"otp": false,
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = CheckAndExtractTokenMetadata(signed, AccessKey)
	assert.Error(t, err)
}

func TestUserIDInvalid(t *testing.T) {
	for _, id := range []string{"", "0", "abc", "-1"} {
		_, err := (&TokenMetadata{Id: id}).UserID()
		assert.ErrorIs(t, err, ErrInvalidToken, id)
	}
}

func TestClaimsUserID(t *testing.T) {
	id, err := ClaimsUserID(&jwt.Token{Claims: jwt.MapClaims{"id": "9", "otp": false}})
	require.NoError(t, err)
	assert.EqualValues(t, 9, id)

	_, err = ClaimsUserID(&jwt.Token{Claims: jwt.MapClaims{"id": 9}})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
