package service

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mina-sebastian/free-space-sub000/internal/auth"
	"github.com/mina-sebastian/free-space-sub000/internal/auth/middleware"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/response"
	"github.com/mina-sebastian/free-space-sub000/internal/upload/biz"
	"go.uber.org/zap"
)

// UploadService exposes the tusd hook endpoint and the client preprocess
// endpoint
type UploadService struct {
	uc     *biz.UploadUseCase
	jwt    *auth.JWTManager
	logger *logger.Logger
}

// NewUploadService creates the upload HTTP service
func NewUploadService(uc *biz.UploadUseCase, jwt *auth.JWTManager, log *logger.Logger) *UploadService {
	return &UploadService{uc: uc, jwt: jwt, logger: log}
}

// tusd hook wire format; field names follow the tusd hook protocol
type hookRequest struct {
	Type  string `json:"Type"`
	Event struct {
		Upload struct {
			ID       string            `json:"ID"`
			Size     int64             `json:"Size"`
			MetaData map[string]string `json:"MetaData"`
		} `json:"Upload"`
	} `json:"Event"`
}

type hookHTTPResponse struct {
	StatusCode int    `json:"StatusCode,omitempty"`
	Body       string `json:"Body,omitempty"`
}

type hookChangeFileInfo struct {
	ID string `json:"ID,omitempty"`
}

type hookResponse struct {
	RejectUpload   bool                `json:"RejectUpload,omitempty"`
	HTTPResponse   *hookHTTPResponse   `json:"HTTPResponse,omitempty"`
	ChangeFileInfo *hookChangeFileInfo `json:"ChangeFileInfo,omitempty"`
}

type PreprocessRequest struct {
	Files []struct {
		ID   string `json:"id" binding:"required"`
		Name string `json:"name" binding:"required"`
		Hash string `json:"hash" binding:"required"`
	} `json:"files" binding:"required"`
	OuterFolderID string `json:"outer_folder_id"`
}

type PreprocessResponse struct {
	AlreadyUploaded []string `json:"already_uploaded"`
	ToUpload        []string `json:"to_upload"`
}

// Hooks handles POST /hooks, the endpoint tusd calls around each upload.
// Identity comes from the access token the client placed in the upload
// metadata, not from the Authorization header: tusd forwards metadata
// verbatim.
func (s *UploadService) Hooks(c *gin.Context) {
	var req hookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed hook payload"})
		return
	}

	meta := req.Event.Upload.MetaData
	claims, err := s.jwt.VerifyAccessToken(meta["token"])
	if err != nil {
		s.logger.Warn("upload hook with invalid token", zap.String("type", req.Type))
		c.JSON(http.StatusOK, &hookResponse{
			RejectUpload: true,
			HTTPResponse: &hookHTTPResponse{StatusCode: http.StatusUnauthorized, Body: "invalid token"},
		})
		return
	}

	ctx := c.Request.Context()
	filename := meta["filename"]
	hash := meta["filehash"]
	folderID := meta["folderId"]

	switch req.Type {
	case "pre-create":
		result, err := s.uc.PreCreate(ctx, claims.UserID, filename, hash, folderID)
		if err != nil {
			s.hookError(c, err)
			return
		}
		if result.Reject {
			c.JSON(http.StatusOK, &hookResponse{
				RejectUpload: true,
				HTTPResponse: &hookHTTPResponse{StatusCode: http.StatusOK, Body: result.Message},
			})
			return
		}
		c.JSON(http.StatusOK, &hookResponse{
			ChangeFileInfo: &hookChangeFileInfo{ID: result.StorageID},
		})

	case "post-finish":
		if _, err := s.uc.PostFinish(ctx, claims.UserID, filename, hash, folderID, req.Event.Upload.Size); err != nil {
			s.hookError(c, err)
			return
		}
		c.JSON(http.StatusOK, &hookResponse{})

	default:
		// Other hook types carry no application logic here.
		c.JSON(http.StatusOK, &hookResponse{})
	}
}

// Preprocess handles POST /preprocess
func (s *UploadService) Preprocess(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "missing identity")
		return
	}

	var req PreprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	candidates := make([]biz.PreprocessFile, len(req.Files))
	for i, f := range req.Files {
		candidates[i] = biz.PreprocessFile{ID: f.ID, Name: f.Name, Hash: f.Hash}
	}

	result, err := s.uc.Preprocess(c.Request.Context(), userID, candidates, req.OuterFolderID)
	if err != nil {
		switch {
		case errors.Is(err, folderbiz.ErrFolderNotFound):
			response.NotFound(c, "folder not found")
		default:
			s.logger.Error("preprocess failed", zap.Error(err))
			response.InternalError(c, "internal server error")
		}
		return
	}

	response.Success(c, &PreprocessResponse{
		AlreadyUploaded: result.AlreadyUploaded,
		ToUpload:        result.ToUpload,
	})
}

func (s *UploadService) hookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrFilenameRequired), errors.Is(err, biz.ErrHashRequired):
		c.JSON(http.StatusOK, &hookResponse{
			RejectUpload: true,
			HTTPResponse: &hookHTTPResponse{StatusCode: http.StatusBadRequest, Body: err.Error()},
		})
	case errors.Is(err, folderbiz.ErrFolderNotFound):
		c.JSON(http.StatusOK, &hookResponse{
			RejectUpload: true,
			HTTPResponse: &hookHTTPResponse{StatusCode: http.StatusNotFound, Body: "folder not found"},
		})
	default:
		s.logger.Error("upload hook failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// RegisterPublicRoutes mounts the tusd hook endpoint; tusd authenticates
// through upload metadata
func (s *UploadService) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/hooks", s.Hooks)
}

// RegisterRoutes mounts the authenticated upload routes
func (s *UploadService) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/preprocess", s.Preprocess)
}
