package biz

import (
	"context"
	"time"

	"github.com/google/uuid"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	hashbiz "github.com/mina-sebastian/free-space-sub000/internal/hash/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/trash"
	"go.uber.org/zap"
)

// File is a named reference to a content hash, placed in a folder
type File struct {
	FileID    string
	Name      string
	UserID    string
	FolderID  string
	Hash      string
	Size      int64 // joined from the hash ledger, not stored on the row
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StorageUsage is a user's storage accounting
type StorageUsage struct {
	LogicalBytes  int64 // sum over the user's file rows
	PhysicalBytes int64 // sum over the distinct hashes the user references
}

// FileRepo is the file persistence contract
type FileRepo interface {
	Create(ctx context.Context, file *File) error
	GetByID(ctx context.Context, fileID, userID string) (*File, error)
	ListByFolder(ctx context.Context, userID, folderID string) ([]*File, error)
	ListByHash(ctx context.Context, hash string) ([]*File, error)
	Rename(ctx context.Context, fileID, userID, newName string) error
	SetFolder(ctx context.Context, fileIDs []string, userID, folderID string) error
	Delete(ctx context.Context, fileID string) error
	DeleteByFolder(ctx context.Context, folderID string) (int64, error)

	SetFileTags(ctx context.Context, fileID string, tags []string) error
	GetFileTags(ctx context.Context, fileID string) ([]string, error)
	SetHashTags(ctx context.Context, hash string, tags []string) error
	GetHashTags(ctx context.Context, hash string) ([]string, error)
	ListTags(ctx context.Context, userID string) ([]string, error)
	ListUntagged(ctx context.Context, userID string) ([]*File, error)

	StorageUsage(ctx context.Context, userID string) (*StorageUsage, error)
}

// FolderTree is the slice of the folder manager the file manager needs
// for placement and trash classification
type FolderTree interface {
	Get(ctx context.Context, userID, folderID string) (*folderbiz.Folder, error)
	HighestAncestor(ctx context.Context, userID, folderID string) (*folderbiz.Folder, error)
	Bin(ctx context.Context, userID string) (*folderbiz.Folder, error)
}

// Ledger is the slice of the content hash ledger the file manager needs
type Ledger interface {
	Get(ctx context.Context, hash string) (*hashbiz.FileHash, error)
	MarkTagged(ctx context.Context, hash string) error
	SweepOrphans(ctx context.Context) ([]string, error)
}

// LinkStore removes share links bound to purged files
type LinkStore interface {
	DeleteByFile(ctx context.Context, fileID string) error
}

// TxManager runs a function with a database transaction installed in the
// context
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DeleteResult reports what a delete batch did
type DeleteResult struct {
	MovedToBin   []string
	Removed      []string
	PurgedHashes []string
}

// FileUseCase manages file entries and their tags
type FileUseCase struct {
	repo   FileRepo
	tree   FolderTree
	ledger Ledger
	links  LinkStore
	tx     TxManager
	logger *logger.Logger
}

// NewFileUseCase creates the file entry manager
func NewFileUseCase(
	repo FileRepo,
	tree FolderTree,
	ledger Ledger,
	links LinkStore,
	tx TxManager,
	log *logger.Logger,
) *FileUseCase {
	return &FileUseCase{
		repo:   repo,
		tree:   tree,
		ledger: ledger,
		links:  links,
		tx:     tx,
		logger: log,
	}
}

// Create adds a file row referencing an existing hash entry. When the
// entry carries hash-level tags they are copied onto the new row, so a
// deduplicated upload inherits the tags of the content it shares.
func (uc *FileUseCase) Create(ctx context.Context, userID, folderID, name, hash string) (*File, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if _, err := uc.tree.Get(ctx, userID, folderID); err != nil {
		return nil, ErrDestinationNotFound
	}

	entry, err := uc.ledger.Get(ctx, hash)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	file := &File{
		FileID:    uuid.New().String(),
		Name:      name,
		UserID:    userID,
		FolderID:  folderID,
		Hash:      hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, file); err != nil {
		return nil, err
	}

	if entry.Tagged {
		tags, err := uc.repo.GetHashTags(ctx, hash)
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			if err := uc.repo.SetFileTags(ctx, file.FileID, tags); err != nil {
				return nil, err
			}
			file.Tags = tags
		}
	}

	if entry.Finalized() {
		file.Size = entry.Size
	}
	return file, nil
}

// Get returns a file owned by the user
func (uc *FileUseCase) Get(ctx context.Context, userID, fileID string) (*File, error) {
	return uc.repo.GetByID(ctx, fileID, userID)
}

// List lists the files directly inside a folder, sizes joined from the
// hash ledger
func (uc *FileUseCase) List(ctx context.Context, userID, folderID string) ([]*File, error) {
	if _, err := uc.tree.Get(ctx, userID, folderID); err != nil {
		return nil, err
	}
	return uc.repo.ListByFolder(ctx, userID, folderID)
}

// Rename changes a file's name
func (uc *FileUseCase) Rename(ctx context.Context, userID, fileID, newName string) error {
	if newName == "" {
		return ErrNameRequired
	}
	return uc.repo.Rename(ctx, fileID, userID, newName)
}

// MoveBatch reassigns the folder of every listed file in one transaction
func (uc *FileUseCase) MoveBatch(ctx context.Context, userID string, fileIDs []string, destinationID string) error {
	if len(fileIDs) == 0 {
		return ErrEmptyBatch
	}
	if _, err := uc.tree.Get(ctx, userID, destinationID); err != nil {
		return ErrDestinationNotFound
	}

	for _, id := range fileIDs {
		if _, err := uc.repo.GetByID(ctx, id, userID); err != nil {
			return err
		}
	}

	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		return uc.repo.SetFolder(ctx, fileIDs, userID, destinationID)
	})
}

// DeleteBatch classifies every file independently against its folder's
// highest ancestor: files outside the Bin subtree are reparented under
// Bin, files already inside it are removed. Row mutations run in one
// transaction; the orphan sweep runs after commit.
func (uc *FileUseCase) DeleteBatch(ctx context.Context, userID string, fileIDs []string) (*DeleteResult, error) {
	if len(fileIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	bin, err := uc.tree.Bin(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{}
	hardDeleted := false

	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, fileID := range fileIDs {
			file, err := uc.repo.GetByID(ctx, fileID, userID)
			if err != nil {
				return err
			}

			ancestor, err := uc.tree.HighestAncestor(ctx, userID, file.FolderID)
			if err != nil {
				return err
			}

			switch trash.Classify(ancestor.FolderID, bin.FolderID) {
			case trash.ActionSoftDelete:
				if err := uc.repo.SetFolder(ctx, []string{fileID}, userID, bin.FolderID); err != nil {
					return err
				}
				result.MovedToBin = append(result.MovedToBin, fileID)
			case trash.ActionHardDelete:
				if err := uc.links.DeleteByFile(ctx, fileID); err != nil {
					return err
				}
				if err := uc.repo.Delete(ctx, fileID); err != nil {
					return err
				}
				result.Removed = append(result.Removed, fileID)
				hardDeleted = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if hardDeleted {
		purged, err := uc.ledger.SweepOrphans(ctx)
		if err != nil {
			uc.logger.WithContext(ctx).Warn("orphan sweep failed after file delete", zap.Error(err))
		}
		result.PurgedHashes = purged
	}

	uc.logger.WithContext(ctx).Info("file delete batch processed",
		zap.Int("moved_to_bin", len(result.MovedToBin)),
		zap.Int("removed", len(result.Removed)),
	)
	return result, nil
}

// SetFileTags replaces the tag set of a single file
func (uc *FileUseCase) SetFileTags(ctx context.Context, userID, fileID string, tags []string) error {
	if _, err := uc.repo.GetByID(ctx, fileID, userID); err != nil {
		return err
	}
	return uc.repo.SetFileTags(ctx, fileID, tags)
}

// SetHashTags tags the content itself: the tag set is stored on the hash,
// copied onto every file row sharing it, and the ledger entry is marked
// tagged so future dedup uploads inherit the set.
func (uc *FileUseCase) SetHashTags(ctx context.Context, userID, fileID string, tags []string) error {
	file, err := uc.repo.GetByID(ctx, fileID, userID)
	if err != nil {
		return err
	}

	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.SetHashTags(ctx, file.Hash, tags); err != nil {
			return err
		}

		siblings, err := uc.repo.ListByHash(ctx, file.Hash)
		if err != nil {
			return err
		}
		for _, sibling := range siblings {
			if err := uc.repo.SetFileTags(ctx, sibling.FileID, tags); err != nil {
				return err
			}
		}

		return uc.ledger.MarkTagged(ctx, file.Hash)
	})
}

// ListTags lists every tag used by the user's files
func (uc *FileUseCase) ListTags(ctx context.Context, userID string) ([]string, error) {
	return uc.repo.ListTags(ctx, userID)
}

// ListUntagged lists the user's files that carry no tags
func (uc *FileUseCase) ListUntagged(ctx context.Context, userID string) ([]*File, error) {
	return uc.repo.ListUntagged(ctx, userID)
}

// StorageUsage returns the user's logical and deduplicated physical usage
func (uc *FileUseCase) StorageUsage(ctx context.Context, userID string) (*StorageUsage, error) {
	return uc.repo.StorageUsage(ctx, userID)
}

// DownloadInfo resolves a file to its blob storage path and size
func (uc *FileUseCase) DownloadInfo(ctx context.Context, userID, fileID string) (*File, string, error) {
	file, err := uc.repo.GetByID(ctx, fileID, userID)
	if err != nil {
		return nil, "", err
	}
	entry, err := uc.ledger.Get(ctx, file.Hash)
	if err != nil {
		return nil, "", err
	}
	file.Size = entry.Size
	return file, entry.Path, nil
}
