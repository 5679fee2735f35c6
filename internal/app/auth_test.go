package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-service/internal/config"
)

const testJWTSecret = "test-hmac-secret"

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Auth.StaticTokens = "tok-one, tok-two"

	r := gin.New()
	r.Use(AuthMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(subjectKey)})
	})
	return r
}

func signedToken(t *testing.T, secret, subject string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func doAuthRequest(t *testing.T, router *gin.Engine, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareStaticToken(t *testing.T) {
	router := newAuthRouter()

	w := doAuthRequest(t, router, "Bearer tok-two")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doAuthRequest(t, router, "Bearer tok-unknown")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareJWT(t *testing.T) {
	router := newAuthRouter()

	w := doAuthRequest(t, router, "Bearer "+signedToken(t, testJWTSecret, "user-42", time.Hour))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-42")
}

func TestAuthMiddlewareRejectsBadJWT(t *testing.T) {
	router := newAuthRouter()

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signedToken(t, "other-secret", "user-42", time.Hour)},
		{"expired", signedToken(t, testJWTSecret, "user-42", -time.Hour)},
		{"garbage", "not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doAuthRequest(t, router, "Bearer "+tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	router := newAuthRouter()

	for _, header := range []string{"", "Bearer", "Basic dXNlcg==", "Bearer a b"} {
		w := doAuthRequest(t, router, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}
