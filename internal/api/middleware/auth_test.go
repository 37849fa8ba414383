package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestKeyPair returns a signing key and its PEM-encoded public key
func generateTestKeyPair(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return key, string(pemBytes)
}

func signTestJWT(t *testing.T, key *rsa.PrivateKey, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestAuthConfigEnabled(t *testing.T) {
	assert.False(t, AuthConfig{}.Enabled())
	assert.True(t, AuthConfig{APIKeys: []string{"key"}}.Enabled())
	assert.True(t, AuthConfig{JWTPublicKey: "pem"}.Enabled())
}

func TestAuthenticateAPIKey(t *testing.T) {
	cfg := AuthConfig{APIKeys: []string{"secret-1", "secret-2"}}

	tests := []struct {
		name        string
		header      string
		wantSuccess bool
	}{
		{
			name:        "valid key",
			header:      "ApiKey secret-1",
			wantSuccess: true,
		},
		{
			name:        "second configured key",
			header:      "apikey secret-2",
			wantSuccess: true,
		},
		{
			name:        "unknown key",
			header:      "ApiKey wrong",
			wantSuccess: false,
		},
		{
			name:        "missing header",
			header:      "",
			wantSuccess: false,
		},
		{
			name:        "malformed header",
			header:      "secret-1",
			wantSuccess: false,
		},
		{
			name:        "unsupported scheme",
			header:      "Basic secret-1",
			wantSuccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Authenticate(tt.header, cfg)
			assert.Equal(t, tt.wantSuccess, result.Success)
			if tt.wantSuccess {
				assert.Equal(t, "apikey", result.AuthType)
				assert.NoError(t, result.Error)
			} else {
				assert.Error(t, result.Error)
			}
		})
	}
}

func TestAuthenticateJWT(t *testing.T) {
	key, publicPEM := generateTestKeyPair(t)
	cfg := AuthConfig{JWTPublicKey: publicPEM}

	t.Run("valid token", func(t *testing.T) {
		token := signTestJWT(t, key, "player-service", time.Now().Add(time.Hour))
		result := Authenticate("Bearer "+token, cfg)
		require.True(t, result.Success)
		assert.Equal(t, "jwt", result.AuthType)
		assert.Equal(t, "player-service", result.AuthSubject)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signTestJWT(t, key, "player-service", time.Now().Add(-time.Hour))
		result := Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
		assert.Error(t, result.Error)
	})

	t.Run("token signed by another key", func(t *testing.T) {
		otherKey, _ := generateTestKeyPair(t)
		token := signTestJWT(t, otherKey, "intruder", time.Now().Add(time.Hour))
		result := Authenticate("Bearer "+token, cfg)
		assert.False(t, result.Success)
	})

	t.Run("bearer without configured public key", func(t *testing.T) {
		token := signTestJWT(t, key, "player-service", time.Now().Add(time.Hour))
		result := Authenticate("Bearer "+token, AuthConfig{APIKeys: []string{"k"}})
		assert.False(t, result.Success)
	})
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(cfg AuthConfig) *gin.Engine {
		router := gin.New()
		router.POST("/protected", Auth(cfg), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"auth_type": c.GetString(AuthTypeKey)})
		})
		return router
	}

	t.Run("disabled auth passes everything through", func(t *testing.T) {
		router := newRouter(AuthConfig{})
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("valid api key", func(t *testing.T) {
		router := newRouter(AuthConfig{APIKeys: []string{"secret"}})
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("Authorization", "ApiKey secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "apikey")
	})

	t.Run("rejected request gets the error envelope", func(t *testing.T) {
		router := newRouter(AuthConfig{APIKeys: []string{"secret"}})
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("Authorization", "ApiKey wrong")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"error_code":"unauthorized"`)
	})
}
