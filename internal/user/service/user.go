package service

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mina-sebastian/free-space-sub000/internal/auth"
	"github.com/mina-sebastian/free-space-sub000/internal/auth/middleware"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/response"
	"github.com/mina-sebastian/free-space-sub000/internal/user/biz"
	"go.uber.org/zap"
)

// UserService exposes registration, login and account lookup over HTTP
type UserService struct {
	uc     *biz.UserUseCase
	jwt    *auth.JWTManager
	logger *logger.Logger
}

// NewUserService creates the user HTTP service
func NewUserService(uc *biz.UserUseCase, jwt *auth.JWTManager, log *logger.Logger) *UserService {
	return &UserService{uc: uc, jwt: jwt, logger: log}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	User        *UserResponse `json:"user"`
}

// Register handles POST /auth/register
func (s *UserService) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := s.uc.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Created(c, s.toResponse(user))
}

// Login handles POST /auth/login
func (s *UserService) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := s.uc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.handleError(c, err)
		return
	}

	token, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		s.logger.Error("failed to issue access token", zap.Error(err))
		response.InternalError(c, "internal server error")
		return
	}

	response.Success(c, &LoginResponse{
		AccessToken: token,
		User:        s.toResponse(user),
	})
}

// Me handles GET /me
func (s *UserService) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	user, err := s.uc.Get(c.Request.Context(), userID)
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, s.toResponse(user))
}

// ListUsers handles GET /admin/users
func (s *UserService) ListUsers(c *gin.Context) {
	users, err := s.uc.List(c.Request.Context())
	if err != nil {
		s.handleError(c, err)
		return
	}

	items := make([]*UserResponse, len(users))
	for i, u := range users {
		items[i] = s.toResponse(u)
	}
	response.Success(c, gin.H{"users": items})
}

func (s *UserService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, biz.ErrEmailExists):
		response.Conflict(c, "email already registered")
	case errors.Is(err, biz.ErrInvalidCredentials):
		response.Unauthorized(c, "invalid email or password")
	default:
		s.logger.Error("user operation failed", zap.Error(err))
		response.InternalError(c, "internal server error")
	}
}

func (s *UserService) toResponse(u *biz.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// RegisterPublicRoutes mounts the unauthenticated auth routes
func (s *UserService) RegisterPublicRoutes(r *gin.RouterGroup) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", s.Register)
		authGroup.POST("/login", s.Login)
	}
}

// RegisterRoutes mounts the authenticated account routes
func (s *UserService) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", s.Me)

	admin := r.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/users", s.ListUsers)
	}
}
