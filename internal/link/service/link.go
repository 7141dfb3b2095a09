package service

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mina-sebastian/free-space-sub000/internal/auth/middleware"
	filebiz "github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/link/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/response"
	"go.uber.org/zap"
)

// LinkService exposes share links over HTTP
type LinkService struct {
	uc     *biz.LinkUseCase
	logger *logger.Logger
}

// NewLinkService creates the link HTTP service
func NewLinkService(uc *biz.LinkUseCase, log *logger.Logger) *LinkService {
	return &LinkService{uc: uc, logger: log}
}

type GenerateLinkRequest struct {
	TargetType string `json:"target_type" binding:"required,oneof=file folder"`
	TargetID   string `json:"target_id" binding:"required"`
	Permission string `json:"permission"`
	CanSee     string `json:"can_see"`
	TTLHours   int    `json:"ttl_hours"`
}

type LinkResponse struct {
	Token     string `json:"token"`
	URL       string `json:"url"`
	CanSee    string `json:"can_see"`
	Expires   string `json:"expires"`
	CreatedAt string `json:"created_at"`
}

type ResolvedFileResponse struct {
	FileID string `json:"file_id"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
}

type ResolvedFolderResponse struct {
	FolderID string `json:"folder_id"`
	Name     string `json:"name"`
}

type ResolveResponse struct {
	File    *ResolvedFileResponse     `json:"file,omitempty"`
	Folder  *ResolvedFolderResponse   `json:"folder,omitempty"`
	Folders []*ResolvedFolderResponse `json:"folders,omitempty"`
	Files   []*ResolvedFileResponse   `json:"files,omitempty"`
}

// GenerateLink handles POST /links
func (s *LinkService) GenerateLink(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req GenerateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	permission := req.Permission
	if permission == "" {
		permission = "READ"
	}

	link, err := s.uc.Generate(
		c.Request.Context(),
		userID,
		req.TargetType,
		req.TargetID,
		permission,
		req.CanSee,
		time.Duration(req.TTLHours)*time.Hour,
	)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Created(c, &LinkResponse{
		Token:     link.Token,
		URL:       s.uc.URL(link.Token),
		CanSee:    link.CanSee,
		Expires:   link.Expires.Format(time.RFC3339),
		CreatedAt: link.CreatedAt.Format(time.RFC3339),
	})
}

// ResolveLink handles GET /links/:token, public with optional identity.
// An optional ?path=a/b/c descends below a folder link.
func (s *LinkService) ResolveLink(c *gin.Context) {
	_, authenticated := middleware.GetUserID(c)

	var segments []string
	if raw := strings.Trim(c.Query("path"), "/"); raw != "" {
		segments = strings.Split(raw, "/")
	}

	result, err := s.uc.Resolve(c.Request.Context(), c.Param("token"), segments, authenticated)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, toResolveResponse(result))
}

// RevokeLink handles DELETE /links/:token
func (s *LinkService) RevokeLink(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	if err := s.uc.Revoke(c.Request.Context(), userID, c.Param("token")); err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// LinkQR handles GET /links/:token/qr with a PNG body
func (s *LinkService) LinkQR(c *gin.Context) {
	png, err := s.uc.QR(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *LinkService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrLinkNotFound):
		response.NotFound(c, "link not found")
	case errors.Is(err, biz.ErrLinkExpired):
		response.Forbidden(c, "link expired")
	case errors.Is(err, biz.ErrLinkForbidden):
		response.Forbidden(c, "link requires authentication")
	case errors.Is(err, biz.ErrTargetNotFound):
		response.NotFound(c, "link target not found")
	case errors.Is(err, biz.ErrInvalidTarget):
		response.BadRequest(c, "link target must be a file or a folder")
	default:
		s.logger.Error("link operation failed", zap.Error(err))
		response.InternalError(c, "internal server error")
	}
}

func toResolveResponse(result *biz.ResolveResult) *ResolveResponse {
	resp := &ResolveResponse{}

	if result.File != nil {
		resp.File = toResolvedFile(result.File)
		return resp
	}

	resp.Folder = toResolvedFolder(result.Folder)
	resp.Folders = make([]*ResolvedFolderResponse, len(result.Folders))
	for i, f := range result.Folders {
		resp.Folders[i] = toResolvedFolder(f)
	}
	resp.Files = make([]*ResolvedFileResponse, len(result.Files))
	for i, f := range result.Files {
		resp.Files[i] = toResolvedFile(f)
	}
	return resp
}

func toResolvedFile(f *filebiz.File) *ResolvedFileResponse {
	return &ResolvedFileResponse{
		FileID: f.FileID,
		Name:   f.Name,
		Size:   f.Size,
	}
}

func toResolvedFolder(f *folderbiz.Folder) *ResolvedFolderResponse {
	return &ResolvedFolderResponse{
		FolderID: f.FolderID,
		Name:     f.Name,
	}
}

// RegisterRoutes mounts the authenticated link routes
func (s *LinkService) RegisterRoutes(r *gin.RouterGroup) {
	links := r.Group("/links")
	{
		links.POST("", s.GenerateLink)
		links.DELETE("/:token", s.RevokeLink)
	}
}

// RegisterPublicRoutes mounts the public resolution routes; the group is
// expected to carry the optional-identity middleware
func (s *LinkService) RegisterPublicRoutes(r *gin.RouterGroup) {
	links := r.Group("/links")
	{
		links.GET("/:token", s.ResolveLink)
		links.GET("/:token/qr", s.LinkQR)
	}
}
