package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/config"
	"github.com/the-nook/nook-api/internal/ratelimit"
	"github.com/the-nook/nook-api/internal/service"
)

// Option configures optional router collaborators
type Option func(*routerOptions)

type routerOptions struct {
	limiter ratelimit.Limiter
	health  func(ctx context.Context) error
}

// WithLimiter rate limits the unauthenticated auth endpoints
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *routerOptions) { o.limiter = l }
}

// WithHealthCheck makes /health report the result of check
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(o *routerOptions) { o.health = check }
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, opts ...Option) *gin.Engine {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg))

	// Handlers
	authHandler := NewAuthHandler(services, log)
	articleHandler := NewArticleHandler(services, cfg, log)
	bookmarkHandler := NewBookmarkHandler(services, log)
	profileHandler := NewProfileHandler(services, cfg, log)
	adminHandler := NewAdminHandler(services, log)
	exportHandler := NewExportHandler(services, log)

	requireUser := authMiddleware(services.Auth)
	requireStreamUser := streamAuthMiddleware(services.Auth)

	router.GET("/health", healthCheck(o.health))
	router.GET("/metrics", metricsHandler(services))

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			limited := authGroup.Group("")
			if o.limiter != nil {
				limited.Use(rateLimitMiddleware(o.limiter, log))
			}
			limited.POST("/signup", authHandler.SignUp)
			limited.POST("/signin", authHandler.SignIn)
			authGroup.POST("/signout", requireUser, authHandler.SignOut)
		}

		articles := v1.Group("/articles")
		{
			articles.GET("", articleHandler.ListPublic)
			articles.POST("", requireUser, articleHandler.Create)
			articles.POST("/images", requireUser, articleHandler.UploadImage)
			articles.GET("/:id", optionalAuthMiddleware(services.Auth), articleHandler.Get)
			articles.POST("/:id/publication-requests", requireUser, articleHandler.RequestPublication)
			articles.GET("/:id/bookmark", requireUser, bookmarkHandler.IsSaved)
			articles.POST("/:id/bookmark", requireUser, bookmarkHandler.Toggle)
			articles.GET("/:id/bookmark/events", requireStreamUser, bookmarkHandler.Events)
		}

		me := v1.Group("/me", requireUser)
		{
			me.GET("/articles", articleHandler.ListMine)
			me.GET("/saved", bookmarkHandler.ListSaved)
			me.GET("/profile", profileHandler.Get)
			me.PUT("/profile", profileHandler.Update)
			me.POST("/profile/avatar", profileHandler.UpdateAvatar)
		}
		v1.GET("/me/profile/events", requireStreamUser, profileHandler.Events)

		admin := v1.Group("/admin", requireUser, requireAdmin())
		{
			admin.GET("/publication-requests", adminHandler.ListPending)
			admin.POST("/publication-requests/:id/approve", adminHandler.Approve)
			admin.POST("/publication-requests/:id/deny", adminHandler.Deny)
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users/:id/ban", adminHandler.Ban)
			admin.PUT("/users/:id/status", adminHandler.SetStatus)
			admin.GET("/exports", exportHandler.StreamExport)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "nook-api",
		})
	}
}

// metricsHandler returns record counts
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		usersCount, _ := services.Export.GetCount(ctx, "users")
		articlesCount, _ := services.Export.GetCount(ctx, "articles")
		pendingCount, _ := services.Export.GetCount(ctx, "publication_requests")

		c.JSON(http.StatusOK, gin.H{
			"database": gin.H{
				"users":                usersCount,
				"articles":             articlesCount,
				"publication_requests": pendingCount,
			},
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": genericError})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware allows any origin in development or when no origins are
// configured; otherwise only the listed hosts
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	allowed := cfg.Server.AllowedOrigins
	if len(allowed) > 0 && !cfg.IsDev() {
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := originHost(origin)
			for _, a := range allowed {
				if strings.EqualFold(a, host) || strings.EqualFold(a, origin) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	return cors.New(corsConfig)
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}
