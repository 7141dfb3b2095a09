package biz

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/trash"
	"go.uber.org/zap"
)

// Reserved per-user root folder names. Every user owns exactly one of
// each; items whose ancestor chain ends at the Bin root are trashed.
const (
	RootHome = "Home"
	RootBin  = "Bin"
)

// Folder is a node in a user's folder tree
type Folder struct {
	FolderID      string
	Name          string
	UserID        string
	OuterFolderID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsRoot reports whether the folder has no parent
func (f *Folder) IsRoot() bool {
	return f.OuterFolderID == nil
}

// FolderRepo is the folder persistence contract
type FolderRepo interface {
	Create(ctx context.Context, folder *Folder) error
	GetByID(ctx context.Context, folderID, userID string) (*Folder, error)
	GetRoot(ctx context.Context, userID, name string) (*Folder, error)
	ListChildren(ctx context.Context, userID string, outerFolderID *string) ([]*Folder, error)
	Rename(ctx context.Context, folderID, userID, newName string) error
	SetOuterFolder(ctx context.Context, folderIDs []string, userID, outerFolderID string) error
	Delete(ctx context.Context, folderID string) error
}

// FileStore is the slice of the file manager a recursive purge needs.
// Removing rows through it is the ledger dereference step: once the
// transaction commits, hashes without referencing files become orphans.
type FileStore interface {
	DeleteByFolder(ctx context.Context, folderID string) (int64, error)
}

// LinkStore removes share links bound to purged folders and files
type LinkStore interface {
	DeleteByFolder(ctx context.Context, folderID string) error
	DeleteByFilesInFolder(ctx context.Context, folderID string) error
}

// OrphanSweeper purges content-hash ledger entries that lost their last
// reference, returning the purged hashes
type OrphanSweeper interface {
	SweepOrphans(ctx context.Context) ([]string, error)
}

// TxManager runs a function with a database transaction installed in the
// context
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DeleteResult reports what a delete batch did
type DeleteResult struct {
	MovedToBin     []string // folder IDs reparented under Bin
	FoldersRemoved []string // folder IDs purged
	FilesRemoved   int64    // file rows purged inside removed folders
	PurgedHashes   []string // ledger entries purged by the orphan sweep
}

// FolderUseCase is the folder tree manager
type FolderUseCase struct {
	repo    FolderRepo
	files   FileStore
	links   LinkStore
	sweeper OrphanSweeper
	tx      TxManager
	logger  *logger.Logger
}

// NewFolderUseCase creates the folder tree manager
func NewFolderUseCase(
	repo FolderRepo,
	files FileStore,
	links LinkStore,
	sweeper OrphanSweeper,
	tx TxManager,
	log *logger.Logger,
) *FolderUseCase {
	return &FolderUseCase{
		repo:    repo,
		files:   files,
		links:   links,
		sweeper: sweeper,
		tx:      tx,
		logger:  log,
	}
}

// Create adds a folder under the given parent, or a root when the parent
// is nil
func (uc *FolderUseCase) Create(ctx context.Context, userID, name string, outerFolderID *string) (*Folder, error) {
	if name == "" {
		return nil, ErrNameRequired
	}

	if outerFolderID != nil {
		if _, err := uc.repo.GetByID(ctx, *outerFolderID, userID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	folder := &Folder{
		FolderID:      uuid.New().String(),
		Name:          name,
		UserID:        userID,
		OuterFolderID: outerFolderID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// EnsureUserRoots creates the reserved Home and Bin roots when the user
// does not have them yet. Idempotent; called at login and by the upload
// hooks.
func (uc *FolderUseCase) EnsureUserRoots(ctx context.Context, userID string) (home, bin *Folder, err error) {
	home, err = uc.ensureRoot(ctx, userID, RootHome)
	if err != nil {
		return nil, nil, err
	}
	bin, err = uc.ensureRoot(ctx, userID, RootBin)
	if err != nil {
		return nil, nil, err
	}
	return home, bin, nil
}

func (uc *FolderUseCase) ensureRoot(ctx context.Context, userID, name string) (*Folder, error) {
	root, err := uc.repo.GetRoot(ctx, userID, name)
	if err == nil {
		return root, nil
	}
	if err != ErrFolderNotFound {
		return nil, err
	}
	return uc.Create(ctx, userID, name, nil)
}

// Get returns a folder owned by the user
func (uc *FolderUseCase) Get(ctx context.Context, userID, folderID string) (*Folder, error) {
	return uc.repo.GetByID(ctx, folderID, userID)
}

// Rename changes a folder's name
func (uc *FolderUseCase) Rename(ctx context.Context, userID, folderID, newName string) error {
	if newName == "" {
		return ErrNameRequired
	}
	return uc.repo.Rename(ctx, folderID, userID, newName)
}

// ListChildren lists the folders directly under outerFolderID; nil lists
// the user's roots
func (uc *FolderUseCase) ListChildren(ctx context.Context, userID string, outerFolderID *string) ([]*Folder, error) {
	return uc.repo.ListChildren(ctx, userID, outerFolderID)
}

// Home returns the user's Home root
func (uc *FolderUseCase) Home(ctx context.Context, userID string) (*Folder, error) {
	return uc.repo.GetRoot(ctx, userID, RootHome)
}

// Bin returns the user's Bin root
func (uc *FolderUseCase) Bin(ctx context.Context, userID string) (*Folder, error) {
	bin, err := uc.repo.GetRoot(ctx, userID, RootBin)
	if err == ErrFolderNotFound {
		return nil, ErrBinNotFound
	}
	return bin, err
}

// HighestAncestor walks the parent chain up to the root folder. The walk
// is iterative with a visited set: a cycle means the stored ancestry is
// corrupted and surfaces as ErrFolderCycle instead of looping forever.
func (uc *FolderUseCase) HighestAncestor(ctx context.Context, userID, folderID string) (*Folder, error) {
	current, err := uc.repo.GetByID(ctx, folderID, userID)
	if err != nil {
		return nil, err
	}
	return uc.highestAncestorFrom(ctx, current)
}

func (uc *FolderUseCase) highestAncestorFrom(ctx context.Context, current *Folder) (*Folder, error) {
	visited := map[string]struct{}{}

	for current.OuterFolderID != nil {
		if _, seen := visited[current.FolderID]; seen {
			uc.logger.WithContext(ctx).Error("folder ancestry cycle detected",
				zap.String("folder_id", current.FolderID))
			return nil, ErrFolderCycle
		}
		visited[current.FolderID] = struct{}{}

		parent, err := uc.repo.GetByID(ctx, *current.OuterFolderID, current.UserID)
		if err != nil {
			return nil, err
		}
		current = parent
	}

	return current, nil
}

// GetByPath resolves a folder by walking name segments down from the
// user's Home root. Sibling folders may share a name; the first match in
// name order wins.
func (uc *FolderUseCase) GetByPath(ctx context.Context, userID string, segments []string) (*Folder, error) {
	current, err := uc.Home(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, segment := range segments {
		next, err := uc.childByName(ctx, userID, current.FolderID, segment)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func (uc *FolderUseCase) childByName(ctx context.Context, userID, outerFolderID, name string) (*Folder, error) {
	children, err := uc.repo.ListChildren(ctx, userID, &outerFolderID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if child.Name == name {
			return child, nil
		}
	}
	return nil, ErrFolderNotFound
}

// MoveBatch reassigns the parent of every listed folder in one
// transaction. Moving a folder into itself or its own subtree is
// rejected: the destination's ancestor chain must not contain any moved
// folder.
func (uc *FolderUseCase) MoveBatch(ctx context.Context, userID string, folderIDs []string, destinationID string) error {
	if len(folderIDs) == 0 {
		return ErrEmptyBatch
	}
	if destinationID == "" {
		return ErrDestinationNotFound
	}

	dest, err := uc.repo.GetByID(ctx, destinationID, userID)
	if err != nil {
		if err == ErrFolderNotFound {
			return ErrDestinationNotFound
		}
		return err
	}

	moving := make(map[string]struct{}, len(folderIDs))
	for _, id := range folderIDs {
		if _, err := uc.repo.GetByID(ctx, id, userID); err != nil {
			return err
		}
		moving[id] = struct{}{}
	}

	if err := uc.checkNoCycle(ctx, dest, moving); err != nil {
		return err
	}

	return uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		return uc.repo.SetOuterFolder(ctx, folderIDs, userID, destinationID)
	})
}

// checkNoCycle rejects a move when the destination sits inside any moved
// folder's subtree (the destination itself included)
func (uc *FolderUseCase) checkNoCycle(ctx context.Context, dest *Folder, moving map[string]struct{}) error {
	visited := map[string]struct{}{}
	current := dest

	for {
		if _, ok := moving[current.FolderID]; ok {
			return ErrMoveIntoDescendant
		}
		if current.OuterFolderID == nil {
			return nil
		}
		if _, seen := visited[current.FolderID]; seen {
			return ErrFolderCycle
		}
		visited[current.FolderID] = struct{}{}

		parent, err := uc.repo.GetByID(ctx, *current.OuterFolderID, current.UserID)
		if err != nil {
			return err
		}
		current = parent
	}
}

// DeleteBatch classifies every folder independently against its own
// ancestor chain: folders outside the Bin subtree are reparented under
// Bin, folders already inside it are purged recursively. All row
// mutations run in one transaction; the orphan sweep runs after commit
// so it sees the settled reference counts.
func (uc *FolderUseCase) DeleteBatch(ctx context.Context, userID string, folderIDs []string) (*DeleteResult, error) {
	if len(folderIDs) == 0 {
		return nil, ErrEmptyBatch
	}

	bin, err := uc.Bin(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{}
	hardDeleted := false

	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, folderID := range folderIDs {
			folder, err := uc.repo.GetByID(ctx, folderID, userID)
			if err != nil {
				return err
			}

			ancestor, err := uc.highestAncestorFrom(ctx, folder)
			if err != nil {
				return err
			}

			switch trash.Classify(ancestor.FolderID, bin.FolderID) {
			case trash.ActionSoftDelete:
				if err := uc.repo.SetOuterFolder(ctx, []string{folderID}, userID, bin.FolderID); err != nil {
					return err
				}
				result.MovedToBin = append(result.MovedToBin, folderID)
			case trash.ActionHardDelete:
				if err := uc.deleteRecursive(ctx, userID, folderID, result); err != nil {
					return err
				}
				hardDeleted = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if hardDeleted {
		purged, err := uc.sweeper.SweepOrphans(ctx)
		if err != nil {
			// The logical delete is committed; orphans are picked up by
			// the next sweep.
			uc.logger.WithContext(ctx).Warn("orphan sweep failed after folder delete", zap.Error(err))
		}
		result.PurgedHashes = purged
	}

	uc.logger.WithContext(ctx).Info("folder delete batch processed",
		zap.Int("moved_to_bin", len(result.MovedToBin)),
		zap.Int("folders_removed", len(result.FoldersRemoved)),
		zap.Int64("files_removed", result.FilesRemoved),
	)
	return result, nil
}

// deleteRecursive purges a folder depth-first: child folders, then the
// folder's files and links, then the folder row itself
func (uc *FolderUseCase) deleteRecursive(ctx context.Context, userID, folderID string, result *DeleteResult) error {
	children, err := uc.repo.ListChildren(ctx, userID, &folderID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := uc.deleteRecursive(ctx, userID, child.FolderID, result); err != nil {
			return err
		}
	}

	if err := uc.links.DeleteByFilesInFolder(ctx, folderID); err != nil {
		return err
	}

	removed, err := uc.files.DeleteByFolder(ctx, folderID)
	if err != nil {
		return err
	}
	result.FilesRemoved += removed

	if err := uc.links.DeleteByFolder(ctx, folderID); err != nil {
		return err
	}

	if err := uc.repo.Delete(ctx, folderID); err != nil {
		return err
	}
	result.FoldersRemoved = append(result.FoldersRemoved, folderID)
	return nil
}
