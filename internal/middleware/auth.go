// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

const (
	headerAPIKey      = "X-API-Key"
	headerAuth        = "Authorization"
	bearerPrefix      = "Bearer "
	unauthorizedError = "Unauthorized"
)

// APIKeyAuth provides API key authentication middleware.
type APIKeyAuth struct {
	apiKeys map[string]bool
}

// NewAPIKeyAuth creates a new API key authentication middleware.
// The apiKeys parameter should be a slice of valid API keys.
// If no keys are provided, all requests will be rejected.
func NewAPIKeyAuth(apiKeys []string) *APIKeyAuth {
	// Build a map for O(1) lookup
	keyMap := make(map[string]bool, len(apiKeys))
	for _, key := range apiKeys {
		if key != "" {
			keyMap[key] = true
		}
	}

	return &APIKeyAuth{
		apiKeys: keyMap,
	}
}

// Handler returns a gin middleware that validates API keys.
// It checks for API keys in the following order:
// 1. X-API-Key header
// 2. Authorization: Bearer <key> header
//
// If no valid API key is found, it aborts with 401 Unauthorized.
func (a *APIKeyAuth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := a.extractAPIKey(c.Request)

		if !a.isValidAPIKey(apiKey) {
			logger.Log.Warn("unauthorized request - invalid or missing API key",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("remoteAddr", c.Request.RemoteAddr),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": unauthorizedError,
			})
			return
		}

		c.Next()
	}
}

// extractAPIKey extracts the API key from the request headers.
// It checks X-API-Key header first, then Authorization: Bearer header.
func (a *APIKeyAuth) extractAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get(headerAPIKey); apiKey != "" {
		return apiKey
	}

	authHeader := r.Header.Get(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}

	return ""
}

// isValidAPIKey validates the provided API key using constant-time comparison
// to prevent timing attacks.
func (a *APIKeyAuth) isValidAPIKey(providedKey string) bool {
	if providedKey == "" {
		return false
	}

	if len(a.apiKeys) == 0 {
		return false
	}

	for validKey := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(validKey)) == 1 {
			return true
		}
	}

	return false
}
