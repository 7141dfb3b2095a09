package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mina-sebastian/free-space-sub000/internal/auth"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"go.uber.org/zap"
)

// Context keys populated by the auth middleware
const (
	CtxUserID  = "user_id"
	CtxEmail   = "email"
	CtxIsAdmin = "is_admin"
)

// JWTAuth requires a valid access token and injects the identity into the
// gin context. Every mutating route sits behind this middleware.
func JWTAuth(jwtManager *auth.JWTManager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		var err error

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			token, err = auth.ExtractTokenFromHeader(authHeader)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
				c.Abort()
				return
			}
		} else {
			// fall back to the query parameter, used by direct download links
			token = c.Query("token")
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
				c.Abort()
				return
			}
		}

		claims, err := jwtManager.VerifyAccessToken(token)
		if err != nil {
			log.Warn("invalid access token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxIsAdmin, claims.IsAdmin)

		c.Next()
	}
}

// OptionalJWTAuth injects the identity when a valid token is present but
// never rejects the request. Used by the public link resolution routes,
// where links restricted to authenticated users check the identity later.
func OptionalJWTAuth(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		token, err := auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.Next()
			return
		}

		claims, err := jwtManager.VerifyAccessToken(token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// RequireAdmin rejects non-admin identities. Must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(CtxIsAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user ID from the gin context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(CtxUserID)
	return userID, userID != ""
}

// CORS handles cross-origin requests
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization")
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
