// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, compression, and rate limiting.
//
// Design goals:
//   - One top-level error boundary: route fallbacks, the rate limiter, and
//     every handler classify failures through the same classifier
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/apperr"
	"github.com/tbourn/go-blog-backend/internal/config"
	"github.com/tbourn/go-blog-backend/internal/domain"
	"github.com/tbourn/go-blog-backend/internal/http/handlers"
	"github.com/tbourn/go-blog-backend/internal/http/middleware"
	"github.com/tbourn/go-blog-backend/internal/repo"
	"github.com/tbourn/go-blog-backend/internal/services"
)

// postRepoShim adapts the repository free functions to the services.PostRepo
// interface expected by the PostService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type postRepoShim struct{}

func (postRepoShim) SavePost(ctx context.Context, db *gorm.DB, p *domain.Post, extra map[string]any) (*domain.Post, error) {
	return repo.SavePost(ctx, db, p, extra)
}

func (postRepoShim) DeletePost(ctx context.Context, db *gorm.DB, p *domain.Post) error {
	return repo.DeletePost(ctx, db, p)
}

func (postRepoShim) GetPost(ctx context.Context, db *gorm.DB, id string) (*domain.Post, error) {
	return repo.GetPost(ctx, db, id)
}

func (postRepoShim) CountPostsByTitle(ctx context.Context, db *gorm.DB, authorID, title string) (int64, error) {
	return repo.CountPostsByTitle(ctx, db, authorID, title)
}

func (postRepoShim) PostsQuery(db *gorm.DB) *gorm.DB {
	return repo.PostsQuery(db)
}

func (postRepoShim) FindPosts(ctx context.Context, q *gorm.DB, offset, limit int) ([]domain.Post, error) {
	return repo.FindPosts(ctx, q, offset, limit)
}

func (postRepoShim) CountPosts(ctx context.Context, q *gorm.DB) (int64, error) {
	return repo.CountPosts(ctx, q)
}

// commentRepoShim adapts the comment repository free functions to
// services.CommentRepo.
type commentRepoShim struct{}

func (commentRepoShim) SaveComment(ctx context.Context, db *gorm.DB, cm *domain.Comment, extra map[string]any) (*domain.Comment, error) {
	return repo.SaveComment(ctx, db, cm, extra)
}

func (commentRepoShim) DeleteComment(ctx context.Context, db *gorm.DB, cm *domain.Comment) error {
	return repo.DeleteComment(ctx, db, cm)
}

func (commentRepoShim) GetComment(ctx context.Context, db *gorm.DB, id string) (*domain.Comment, error) {
	return repo.GetComment(ctx, db, id)
}

func (commentRepoShim) CommentsQuery(db *gorm.DB, postID string) *gorm.DB {
	return repo.CommentsQuery(db, postID)
}

func (commentRepoShim) FindComments(ctx context.Context, q *gorm.DB, offset, limit int) ([]domain.Comment, error) {
	return repo.FindComments(ctx, q, offset, limit)
}

func (commentRepoShim) CountComments(ctx context.Context, q *gorm.DB) (int64, error) {
	return repo.CountComments(ctx, q)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Auth shim: resolve the caller identity
//  4. Logger + Lifecycle: structured logs, optional dispatch bracketing
//  5. Recovery: capture panics after logger
//  6. Body size limiter, gzip
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	classifier := apperr.NewClassifier(cfg.SafeDBErrors)

	// Dependency injection: services ← repo/db.
	postSvc := services.NewPostService(db, postRepoShim{})
	cmtSvc := services.NewCommentService(db, commentRepoShim{}, postRepoShim{})
	h := handlers.New(postSvc, cmtSvc, classifier)

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Caller identity (external auth collaborator shim)
	r.Use(middleware.Auth())

	// 4) Structured logging + optional lifecycle bracketing
	r.Use(middleware.Logger())
	r.Use(middleware.Lifecycle(cfg.LogRequests))

	// 5) Panic recovery to the standard 500 envelope
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP; rejections are classified
	// throttled failures.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP(), h.Abort)
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	// Fallbacks flow through the same classifier as everything else.
	r.NoRoute(func(c *gin.Context) {
		h.Abort(c, apperr.NotFound(""))
	})
	r.NoMethod(func(c *gin.Context) {
		h.Abort(c, apperr.MethodNotAllowed())
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (optional)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Posts
		api.POST("/posts", h.CreatePost())
		api.GET("/posts", h.ListPosts())
		api.GET("/posts/:id", h.GetPost())
		api.PUT("/posts/:id", h.UpdatePost())
		api.DELETE("/posts/:id", h.DeletePost())
		api.POST("/posts/:id/publish", h.PublishPost())

		// Comments (nested under posts)
		api.GET("/posts/:id/comments", h.ListComments())
		api.POST("/posts/:id/comments", h.CreateComment())
		api.GET("/comments/:id", h.GetComment())
		api.DELETE("/comments/:id", h.DeleteComment())
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
