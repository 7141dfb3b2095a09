package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mina-sebastian/free-space-sub000/internal/auth"
	"github.com/mina-sebastian/free-space-sub000/internal/auth/middleware"
	"github.com/mina-sebastian/free-space-sub000/internal/conf"
	fileservice "github.com/mina-sebastian/free-space-sub000/internal/file/service"
	folderservice "github.com/mina-sebastian/free-space-sub000/internal/folder/service"
	linkservice "github.com/mina-sebastian/free-space-sub000/internal/link/service"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	uploadservice "github.com/mina-sebastian/free-space-sub000/internal/upload/service"
	userservice "github.com/mina-sebastian/free-space-sub000/internal/user/service"
	"go.uber.org/zap"
)

// Services groups the HTTP services the server mounts
type Services struct {
	User   *userservice.UserService
	Folder *folderservice.FolderService
	File   *fileservice.FileService
	Link   *linkservice.LinkService
	Upload *uploadservice.UploadService
}

// HTTPServer is the public HTTP surface
type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

// NewHTTPServer builds the router and wraps it in an http.Server
func NewHTTPServer(
	config *conf.Config,
	jwtManager *auth.JWTManager,
	services *Services,
	log *logger.Logger,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log))
	router.Use(middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/cloud")

	// Public surface: registration/login, the tusd hook endpoint (token
	// travels in the upload metadata) and link resolution, which admits
	// anonymous visitors but still honors a presented identity.
	public := api.Group("", middleware.OptionalJWTAuth(jwtManager))
	services.User.RegisterPublicRoutes(public)
	services.Upload.RegisterPublicRoutes(public)
	services.Link.RegisterPublicRoutes(public)

	protected := api.Group("", middleware.JWTAuth(jwtManager, log))
	services.User.RegisterRoutes(protected)
	services.Folder.RegisterRoutes(protected)
	services.File.RegisterRoutes(protected)
	services.Link.RegisterRoutes(protected)
	services.Upload.RegisterRoutes(protected)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: log,
	}
}

// Start blocks serving requests until Stop is called
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// RequestIDMiddleware assigns each request an ID propagated through the
// context for log correlation
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(
			logger.WithRequestID(c.Request.Context(), requestID),
		)
		c.Next()
	}
}

// LoggerMiddleware logs one line per request
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		log.WithContext(c.Request.Context()).Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
