package service

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mina-sebastian/free-space-sub000/internal/auth/middleware"
	"github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/response"
	"go.uber.org/zap"
)

// FolderService exposes the folder tree over HTTP
type FolderService struct {
	uc     *biz.FolderUseCase
	logger *logger.Logger
}

// NewFolderService creates the folder HTTP service
func NewFolderService(uc *biz.FolderUseCase, log *logger.Logger) *FolderService {
	return &FolderService{uc: uc, logger: log}
}

type CreateFolderRequest struct {
	Name          string  `json:"name" binding:"required"`
	OuterFolderID *string `json:"outer_folder_id"`
}

type RenameFolderRequest struct {
	Name string `json:"name" binding:"required"`
}

type MoveFoldersRequest struct {
	FolderIDs     []string `json:"folder_ids" binding:"required"`
	OuterFolderID string   `json:"outer_folder_id" binding:"required"`
}

type DeleteFoldersRequest struct {
	FolderIDs []string `json:"folder_ids" binding:"required"`
}

type FolderResponse struct {
	FolderID      string  `json:"folder_id"`
	Name          string  `json:"name"`
	OuterFolderID *string `json:"outer_folder_id"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type DeleteFoldersResponse struct {
	MovedToBin     []string `json:"moved_to_bin"`
	FoldersRemoved []string `json:"folders_removed"`
	FilesRemoved   int64    `json:"files_removed"`
}

// CreateFolder handles POST /folders
func (s *FolderService) CreateFolder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	folder, err := s.uc.Create(c.Request.Context(), userID, req.Name, req.OuterFolderID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Created(c, s.toResponse(folder))
}

// GetFolder handles GET /folders/:id
func (s *FolderService) GetFolder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	folder, err := s.uc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, s.toResponse(folder))
}

// ListChildren handles GET /folders/:id/children and GET /folders/roots
func (s *FolderService) ListChildren(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var outer *string
	if id := c.Param("id"); id != "" {
		outer = &id
	}

	folders, err := s.uc.ListChildren(c.Request.Context(), userID, outer)
	if err != nil {
		s.handleError(c, err)
		return
	}

	items := make([]*FolderResponse, len(folders))
	for i, f := range folders {
		items[i] = s.toResponse(f)
	}
	response.Success(c, gin.H{"folders": items})
}

// ListRoots handles GET /folders/roots
func (s *FolderService) ListRoots(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	// Roots are created lazily; make sure they exist before listing.
	if _, _, err := s.uc.EnsureUserRoots(c.Request.Context(), userID); err != nil {
		s.handleError(c, err)
		return
	}

	folders, err := s.uc.ListChildren(c.Request.Context(), userID, nil)
	if err != nil {
		s.handleError(c, err)
		return
	}

	items := make([]*FolderResponse, len(folders))
	for i, f := range folders {
		items[i] = s.toResponse(f)
	}
	response.Success(c, gin.H{"folders": items})
}

// RenameFolder handles PUT /folders/:id/name
func (s *FolderService) RenameFolder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req RenameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.uc.Rename(c.Request.Context(), userID, c.Param("id"), req.Name); err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, nil)
}

// MoveFolders handles PUT /folders/move
func (s *FolderService) MoveFolders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req MoveFoldersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.uc.MoveBatch(c.Request.Context(), userID, req.FolderIDs, req.OuterFolderID); err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, nil)
}

// DeleteFolders handles DELETE /folders
func (s *FolderService) DeleteFolders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req DeleteFoldersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := s.uc.DeleteBatch(c.Request.Context(), userID, req.FolderIDs)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &DeleteFoldersResponse{
		MovedToBin:     emptyIfNil(result.MovedToBin),
		FoldersRemoved: emptyIfNil(result.FoldersRemoved),
		FilesRemoved:   result.FilesRemoved,
	})
}

func (s *FolderService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrFolderNotFound):
		response.NotFound(c, "folder not found")
	case errors.Is(err, biz.ErrDestinationNotFound):
		response.BadRequest(c, "destination folder not found")
	case errors.Is(err, biz.ErrMoveIntoDescendant):
		response.BadRequest(c, "cannot move a folder into its own subtree")
	case errors.Is(err, biz.ErrEmptyBatch):
		response.BadRequest(c, "batch must not be empty")
	case errors.Is(err, biz.ErrNameRequired):
		response.BadRequest(c, "folder name is required")
	case errors.Is(err, biz.ErrBinNotFound), errors.Is(err, biz.ErrFolderCycle):
		s.logger.Error("folder tree invariant violated", zap.Error(err))
		response.InternalError(c, "folder tree is in an inconsistent state")
	default:
		s.logger.Error("folder operation failed", zap.Error(err))
		response.InternalError(c, "internal server error")
	}
}

func (s *FolderService) toResponse(f *biz.Folder) *FolderResponse {
	return &FolderResponse{
		FolderID:      f.FolderID,
		Name:          f.Name,
		OuterFolderID: f.OuterFolderID,
		CreatedAt:     f.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     f.UpdatedAt.Format(time.RFC3339),
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// RegisterRoutes mounts the folder routes
func (s *FolderService) RegisterRoutes(r *gin.RouterGroup) {
	folders := r.Group("/folders")
	{
		folders.POST("", s.CreateFolder)
		folders.GET("/roots", s.ListRoots)
		folders.GET("/:id", s.GetFolder)
		folders.GET("/:id/children", s.ListChildren)
		folders.PUT("/:id/name", s.RenameFolder)
		folders.PUT("/move", s.MoveFolders)
		folders.DELETE("", s.DeleteFolders)
	}
}
