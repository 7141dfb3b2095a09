// Package biz implements the upload lifecycle behind the tusd hook
// endpoints: hash reservation before the upload starts, deduplication
// against the content hash ledger, and file row creation once the blob
// has landed.
package biz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	filebiz "github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	hashbiz "github.com/mina-sebastian/free-space-sub000/internal/hash/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"go.uber.org/zap"
)

// StorageIDPrefix prefixes every storage id handed to tusd, keeping
// application blobs recognizable in the bucket
const StorageIDPrefix = "frspc-"

var (
	ErrFilenameRequired = errors.New("upload filename is required")
	ErrHashRequired     = errors.New("upload content hash is required")
)

// Ledger is the slice of the content hash ledger uploads need
type Ledger interface {
	Reserve(ctx context.Context, hash, storagePath string) (bool, *hashbiz.FileHash, error)
	Finalize(ctx context.Context, hash string, size int64) error
	Get(ctx context.Context, hash string) (*hashbiz.FileHash, error)
}

// FileCreator creates file rows referencing ledger entries
type FileCreator interface {
	Create(ctx context.Context, userID, folderID, name, hash string) (*filebiz.File, error)
}

// FolderTree is the slice of the folder manager uploads need
type FolderTree interface {
	EnsureUserRoots(ctx context.Context, userID string) (home, bin *folderbiz.Folder, err error)
	Get(ctx context.Context, userID, folderID string) (*folderbiz.Folder, error)
}

// PreCreateResult is the outcome of the pre-create hook
type PreCreateResult struct {
	Reject    bool   // upload refused because the content already exists
	Message   string // human-readable reason when rejected
	StorageID string // storage id assigned to a fresh upload
	File      *filebiz.File
}

// PreprocessFile is one client-side file candidate
type PreprocessFile struct {
	ID   string
	Name string
	Hash string
}

// PreprocessResult partitions candidates into already-stored content and
// uploads that must actually run
type PreprocessResult struct {
	AlreadyUploaded []string // client IDs satisfied by dedup
	ToUpload        []string // client IDs that need a real upload
}

// UploadUseCase drives the tusd upload lifecycle
type UploadUseCase struct {
	ledger  Ledger
	files   FileCreator
	folders FolderTree
	logger  *logger.Logger
}

// NewUploadUseCase creates the upload manager
func NewUploadUseCase(ledger Ledger, files FileCreator, folders FolderTree, log *logger.Logger) *UploadUseCase {
	return &UploadUseCase{
		ledger:  ledger,
		files:   files,
		folders: folders,
		logger:  log,
	}
}

// PreCreate runs before tusd accepts an upload. A fresh hash gets a
// reserved ledger entry and a storage id; a known hash rejects the upload
// and creates the file row immediately, pointing at the stored content.
func (uc *UploadUseCase) PreCreate(ctx context.Context, userID, filename, hash, folderID string) (*PreCreateResult, error) {
	if filename == "" {
		return nil, ErrFilenameRequired
	}
	if hash == "" {
		return nil, ErrHashRequired
	}

	storageID := StorageIDPrefix + uuid.New().String()

	created, _, err := uc.ledger.Reserve(ctx, hash, storageID)
	if err != nil {
		return nil, err
	}
	if created {
		return &PreCreateResult{StorageID: storageID}, nil
	}

	// Dedup path: the blob is already stored (or arriving); only a new
	// reference is needed.
	target, err := uc.targetFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	file, err := uc.files.Create(ctx, userID, target, filename, hash)
	if err != nil {
		return nil, err
	}

	uc.logger.WithContext(ctx).Info("upload deduplicated",
		zap.String("user_id", userID),
		zap.String("file_id", file.FileID))

	return &PreCreateResult{
		Reject:  true,
		Message: "file already exists",
		File:    file,
	}, nil
}

// PostFinish runs after tusd has persisted the blob: the ledger entry is
// finalized with the real size and the file row is created.
func (uc *UploadUseCase) PostFinish(ctx context.Context, userID, filename, hash, folderID string, size int64) (*filebiz.File, error) {
	if err := uc.ledger.Finalize(ctx, hash, size); err != nil {
		return nil, err
	}

	target, err := uc.targetFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	return uc.files.Create(ctx, userID, target, filename, hash)
}

// Preprocess partitions a client's upload candidates by hash: content the
// ledger already holds finalized gets its file row created here, the rest
// must be uploaded.
func (uc *UploadUseCase) Preprocess(ctx context.Context, userID string, candidates []PreprocessFile, folderID string) (*PreprocessResult, error) {
	target, err := uc.targetFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	result := &PreprocessResult{
		AlreadyUploaded: []string{},
		ToUpload:        []string{},
	}

	for _, candidate := range candidates {
		entry, err := uc.ledger.Get(ctx, candidate.Hash)
		if err == hashbiz.ErrHashNotFound || (err == nil && !entry.Finalized()) {
			result.ToUpload = append(result.ToUpload, candidate.ID)
			continue
		}
		if err != nil {
			return nil, err
		}

		if _, err := uc.files.Create(ctx, userID, target, candidate.Name, candidate.Hash); err != nil {
			return nil, err
		}
		result.AlreadyUploaded = append(result.AlreadyUploaded, candidate.ID)
	}

	return result, nil
}

// targetFolder resolves the requested folder, falling back to the user's
// Home root. Roots are ensured first: uploads may arrive before the user
// ever listed their tree.
func (uc *UploadUseCase) targetFolder(ctx context.Context, userID, folderID string) (string, error) {
	home, _, err := uc.folders.EnsureUserRoots(ctx, userID)
	if err != nil {
		return "", err
	}
	if folderID == "" {
		return home.FolderID, nil
	}
	if _, err := uc.folders.Get(ctx, userID, folderID); err != nil {
		return "", err
	}
	return folderID, nil
}
