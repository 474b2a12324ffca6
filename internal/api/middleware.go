package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/ratelimit"
	"github.com/the-nook/nook-api/internal/service"
)

const principalKey = "principal"

// bearerToken extracts the token from the Authorization header
func bearerToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

// streamToken is bearerToken with a fallback to the token query parameter.
// Browsers cannot set headers on EventSource.
func streamToken(c *gin.Context) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	return strings.TrimSpace(c.Query("token"))
}

// authMiddleware rejects requests without a valid session token
func authMiddleware(auth service.AuthService) gin.HandlerFunc {
	return requireToken(auth, bearerToken)
}

// streamAuthMiddleware is authMiddleware for event streams, which may also
// pass the token as a query parameter
func streamAuthMiddleware(auth service.AuthService) gin.HandlerFunc {
	return requireToken(auth, streamToken)
}

func requireToken(auth service.AuthService, extract func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extract(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		p, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// optionalAuthMiddleware sets the principal when a valid token is present
// but lets anonymous requests through
func optionalAuthMiddleware(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if p, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(principalKey, p)
			}
		}
		c.Next()
	}
}

// requireAdmin rejects principals without the admin status
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !principal(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// principal returns the authenticated principal, or nil
func principal(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

// rateLimitMiddleware limits requests per route and client IP. Limiter
// failures let the request through.
func rateLimitMiddleware(limiter ratelimit.Limiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.FullPath() + ":" + c.ClientIP()
		ok, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable")
			c.Next()
			return
		}
		if !ok {
			secs := int(retryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please slow down"})
			return
		}
		c.Next()
	}
}
