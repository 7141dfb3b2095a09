package service

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mina-sebastian/free-space-sub000/internal/auth/middleware"
	"github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/minio"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/response"
	"go.uber.org/zap"
)

const downloadURLExpiry = 15 * time.Minute

// FileService exposes file entries, tags, downloads and folder content
// listings over HTTP
type FileService struct {
	uc      *biz.FileUseCase
	folders *folderbiz.FolderUseCase
	storage *minio.Client
	logger  *logger.Logger
}

// NewFileService creates the file HTTP service
func NewFileService(
	uc *biz.FileUseCase,
	folders *folderbiz.FolderUseCase,
	storage *minio.Client,
	log *logger.Logger,
) *FileService {
	return &FileService{
		uc:      uc,
		folders: folders,
		storage: storage,
		logger:  log,
	}
}

type RenameFileRequest struct {
	Name string `json:"name" binding:"required"`
}

type MoveFilesRequest struct {
	FileIDs  []string `json:"file_ids" binding:"required"`
	FolderID string   `json:"folder_id" binding:"required"`
}

type DeleteFilesRequest struct {
	FileIDs []string `json:"file_ids" binding:"required"`
}

type SetTagsRequest struct {
	Tags []string `json:"tags"`
}

type FileResponse struct {
	FileID    string   `json:"file_id"`
	Name      string   `json:"name"`
	FolderID  string   `json:"folder_id"`
	Hash      string   `json:"hash"`
	Size      int64    `json:"size"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

type FolderItemResponse struct {
	FolderID      string  `json:"folder_id"`
	Name          string  `json:"name"`
	OuterFolderID *string `json:"outer_folder_id"`
}

type FolderContentResponse struct {
	Folder  *FolderItemResponse   `json:"folder"`
	Folders []*FolderItemResponse `json:"folders"`
	Files   []*FileResponse       `json:"files"`
}

type DeleteFilesResponse struct {
	MovedToBin []string `json:"moved_to_bin"`
	Removed    []string `json:"removed"`
}

type StorageInfoResponse struct {
	LogicalBytes  int64 `json:"logical_bytes"`
	PhysicalBytes int64 `json:"physical_bytes"`
}

// GetFile handles GET /files/:id
func (s *FileService) GetFile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	file, err := s.uc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, s.toResponse(file))
}

// RenameFile handles PUT /files/:id/name
func (s *FileService) RenameFile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req RenameFileRequest
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

// MoveFiles handles PUT /files/move
func (s *FileService) MoveFiles(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req MoveFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.uc.MoveBatch(c.Request.Context(), userID, req.FileIDs, req.FolderID); err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteFiles handles DELETE /files
func (s *FileService) DeleteFiles(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req DeleteFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := s.uc.DeleteBatch(c.Request.Context(), userID, req.FileIDs)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &DeleteFilesResponse{
		MovedToBin: emptyIfNil(result.MovedToBin),
		Removed:    emptyIfNil(result.Removed),
	})
}

// SetFileTags handles PUT /files/:id/tags
func (s *FileService) SetFileTags(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req SetTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.uc.SetFileTags(c.Request.Context(), userID, c.Param("id"), req.Tags); err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// SetHashTags handles PUT /files/:id/hash-tags. Tags applied here follow
// the content: every file sharing the hash gets them, and future
// deduplicated uploads of the same content inherit them.
func (s *FileService) SetHashTags(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req SetTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.uc.SetHashTags(c.Request.Context(), userID, c.Param("id"), req.Tags); err != nil {
		s.handleError(c, err)
		return
	}
	response.Success(c, nil)
}

// ListTags handles GET /tags
func (s *FileService) ListTags(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	tags, err := s.uc.ListTags(c.Request.Context(), userID)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	response.Success(c, gin.H{"tags": tags})
}

// ListUntagged handles GET /files/untagged
func (s *FileService) ListUntagged(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	files, err := s.uc.ListUntagged(c.Request.Context(), userID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	items := make([]*FileResponse, len(files))
	for i, f := range files {
		items[i] = s.toResponse(f)
	}
	response.Success(c, gin.H{"files": items})
}

// Download handles GET /files/:id/download with a redirect to a
// presigned object URL
func (s *FileService) Download(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	file, storagePath, err := s.uc.DownloadInfo(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}
	if file.Size < 0 {
		response.Conflict(c, "upload has not finished yet")
		return
	}

	url, err := s.storage.PresignedGet(c.Request.Context(), storagePath, file.Name, downloadURLExpiry)
	if err != nil {
		s.logger.Error("failed to presign download",
			zap.String("file_id", file.FileID),
			zap.Error(err))
		response.Error(c, http.StatusBadGateway, "storage unavailable")
		return
	}

	c.Redirect(http.StatusFound, url)
}

// FolderContent handles GET /folders/:id/content
func (s *FileService) FolderContent(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	ctx := c.Request.Context()
	folderID := c.Param("id")

	folder, err := s.folders.Get(ctx, userID, folderID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	children, err := s.folders.ListChildren(ctx, userID, &folderID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	files, err := s.uc.List(ctx, userID, folderID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, s.toContentResponse(folder, children, files))
}

// FolderContentByPath handles GET /folders/path?path=a/b/c, resolving the
// folder by name segments below the Home root
func (s *FileService) FolderContentByPath(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	ctx := c.Request.Context()

	var segments []string
	if raw := strings.Trim(c.Query("path"), "/"); raw != "" {
		segments = strings.Split(raw, "/")
	}

	folder, err := s.folders.GetByPath(ctx, userID, segments)
	if err != nil {
		s.handleError(c, err)
		return
	}

	children, err := s.folders.ListChildren(ctx, userID, &folder.FolderID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	files, err := s.uc.List(ctx, userID, folder.FolderID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, s.toContentResponse(folder, children, files))
}

// StorageInfo handles GET /storageinfo
func (s *FileService) StorageInfo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	usage, err := s.uc.StorageUsage(c.Request.Context(), userID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	response.Success(c, &StorageInfoResponse{
		LogicalBytes:  usage.LogicalBytes,
		PhysicalBytes: usage.PhysicalBytes,
	})
}

func (s *FileService) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrFileNotFound):
		response.NotFound(c, "file not found")
	case errors.Is(err, folderbiz.ErrFolderNotFound):
		response.NotFound(c, "folder not found")
	case errors.Is(err, biz.ErrDestinationNotFound):
		response.BadRequest(c, "destination folder not found")
	case errors.Is(err, biz.ErrEmptyBatch):
		response.BadRequest(c, "batch must not be empty")
	case errors.Is(err, biz.ErrNameRequired):
		response.BadRequest(c, "file name is required")
	case errors.Is(err, folderbiz.ErrBinNotFound), errors.Is(err, folderbiz.ErrFolderCycle):
		s.logger.Error("folder tree invariant violated", zap.Error(err))
		response.InternalError(c, "folder tree is in an inconsistent state")
	default:
		s.logger.Error("file operation failed", zap.Error(err))
		response.InternalError(c, "internal server error")
	}
}

func (s *FileService) toResponse(f *biz.File) *FileResponse {
	return &FileResponse{
		FileID:    f.FileID,
		Name:      f.Name,
		FolderID:  f.FolderID,
		Hash:      f.Hash,
		Size:      f.Size,
		Tags:      f.Tags,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
		UpdatedAt: f.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *FileService) toContentResponse(
	folder *folderbiz.Folder,
	children []*folderbiz.Folder,
	files []*biz.File,
) *FolderContentResponse {
	folderItems := make([]*FolderItemResponse, len(children))
	for i, child := range children {
		folderItems[i] = &FolderItemResponse{
			FolderID:      child.FolderID,
			Name:          child.Name,
			OuterFolderID: child.OuterFolderID,
		}
	}

	fileItems := make([]*FileResponse, len(files))
	for i, f := range files {
		fileItems[i] = s.toResponse(f)
	}

	return &FolderContentResponse{
		Folder: &FolderItemResponse{
			FolderID:      folder.FolderID,
			Name:          folder.Name,
			OuterFolderID: folder.OuterFolderID,
		},
		Folders: folderItems,
		Files:   fileItems,
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// RegisterRoutes mounts the file routes
func (s *FileService) RegisterRoutes(r *gin.RouterGroup) {
	files := r.Group("/files")
	{
		files.GET("/untagged", s.ListUntagged)
		files.GET("/:id", s.GetFile)
		files.GET("/:id/download", s.Download)
		files.PUT("/:id/name", s.RenameFile)
		files.PUT("/:id/tags", s.SetFileTags)
		files.PUT("/:id/hash-tags", s.SetHashTags)
		files.PUT("/move", s.MoveFiles)
		files.DELETE("", s.DeleteFiles)
	}

	folders := r.Group("/folders")
	{
		folders.GET("/path", s.FolderContentByPath)
		folders.GET("/:id/content", s.FolderContent)
	}

	r.GET("/tags", s.ListTags)
	r.GET("/storageinfo", s.StorageInfo)
}
