package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/listmap/models"
)

// APIKeyContextKey is the gin context key holding the authenticated key.
// RateLimit buckets requests by it.
const APIKeyContextKey = "api_key"

// Auth guards the listings, geocode and markers routes with a static key
// list read from LISTMAP_API_KEYS. A key is accepted from either
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// Rejections abort with 401 and a models.ErrorResponse carrying
// UNAUTHORIZED. An empty key list leaves the routes open.
func Auth(apiKeys []string) gin.HandlerFunc {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	if len(keys) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key, ok := requestAPIKey(c.Request)
		switch {
		case !ok:
			unauthorized(c, "missing API key: send X-API-Key or Authorization: Bearer <key>")
		case !knownKey(keys, key):
			unauthorized(c, "invalid API key")
		default:
			c.Set(APIKeyContextKey, key)
			c.Next()
		}
	}
}

func knownKey(keys [][]byte, key string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
			return true
		}
	}
	return false
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Success: false,
		Error:   msg,
		Code:    models.ErrCodeUnauthorized,
	})
}

// requestAPIKey reads X-API-Key first, then a Bearer token. The scheme
// name is matched case-insensitively.
func requestAPIKey(r *http.Request) (string, bool) {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key, true
	}
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
