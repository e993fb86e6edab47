package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", 42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", 42, "alice")
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("secret", "not-a-token")
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	assert.Empty(t, BearerToken(c))

	c.Request.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, BearerToken(c))

	c.Request.Header.Set("Authorization", "Bearer my-token")
	assert.Equal(t, "my-token", BearerToken(c))
}
