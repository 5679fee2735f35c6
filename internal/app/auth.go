package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"booking-service/internal/config"
)

// subjectKey is where the middleware stores the JWT subject for handlers.
const subjectKey = "auth_subject"

// AuthMiddleware accepts either an HMAC-signed JWT or one of the configured
// static tokens in the Authorization header. When a JWT carries a subject
// claim it is exposed on the request context under "auth_subject".
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)

	staticTokens := make(map[string]struct{})
	for _, t := range strings.Split(cfg.Auth.StaticTokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			staticTokens[t] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization"})
			return
		}

		if jwtSecret != "" {
			if subject, ok := verifyHMACToken(token, jwtSecret); ok {
				if subject != "" {
					c.Set(subjectKey, subject)
				}
				c.Next()
				return
			}
		}

		if _, ok := staticTokens[token]; ok {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// verifyHMACToken validates signature, expiry and algorithm, and returns the
// subject claim. Only the HMAC family is accepted; an attacker must not be
// able to downgrade to "none" or swap in an asymmetric scheme.
func verifyHMACToken(raw, secret string) (string, bool) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}
