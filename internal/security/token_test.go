package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomlift/api/internal/models"
)

const testSecret = "unit-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, "user-1", string(models.UserRoleUser), time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, string(models.UserRoleUser), claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, "user-1", string(models.UserRoleUser), time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "different-secret")
	require.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken(testSecret, "user-1", string(models.UserRoleUser), -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, testSecret)
	require.Error(t, err)
}

func TestParseAccessTokenGarbage(t *testing.T) {
	_, err := ParseAccessToken("not-a-jwt", testSecret)
	require.Error(t, err)
}
