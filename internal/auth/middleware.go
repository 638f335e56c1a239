// Package auth provides request authentication: JWT access tokens for the
// platform's users and bcrypt-hashed service API keys for internal callers.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gigportal_backend/platform/config"
	"gigportal_backend/platform/httpkit"
	"gigportal_backend/platform/logger"
)

const accessTokenType = "access"

// JWTMiddleware authenticates requests with a Bearer access token and
// resolves the caller's identity for downstream handlers.
func JWTMiddleware(cfg config.JWTConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			httpkit.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token")
			c.Abort()
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.GetJWTAccessSecret()), nil
		})
		if err != nil || !token.Valid {
			httpkit.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
			c.Abort()
			return
		}

		if typ, _ := claims["type"].(string); typ != accessTokenType {
			httpkit.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token type")
			c.Abort()
			return
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			httpkit.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token subject")
			c.Abort()
			return
		}

		var roles []string
		if raw, ok := claims["roles"].([]interface{}); ok {
			for _, r := range raw {
				if role, ok := r.(string); ok {
					roles = append(roles, role)
				}
			}
		}

		httpkit.SetIdentity(c, httpkit.NewIdentity(userID, roles))
		c.Next()
	}
}

// ServiceKeyMiddleware authenticates internal callers (the scheduler's
// manual-retry trigger path) by comparing the X-Service-API-Key header
// against the configured bcrypt hash.
func ServiceKeyMiddleware(keyHash string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			httpkit.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "service access not configured")
			c.Abort()
			return
		}

		key := c.GetHeader("X-Service-API-Key")
		if key == "" {
			httpkit.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing service api key")
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			log.Warn("service api key rejected", "client_ip", c.ClientIP())
			httpkit.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid service api key")
			c.Abort()
			return
		}

		c.Next()
	}
}

// SignAccessToken issues an HS256 access token. Used by the composition
// root's bootstrap tooling and by tests.
func SignAccessToken(userID uuid.UUID, roles []string, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"type":  accessTokenType,
		"roles": roles,
		"exp":   time.Now().Add(ttl).Unix(),
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
