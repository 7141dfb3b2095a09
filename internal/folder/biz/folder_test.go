package biz

import (
	"context"
	"testing"

	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFolderRepo struct {
	folders map[string]*Folder
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: map[string]*Folder{}}
}

func (r *fakeFolderRepo) add(id, name, userID string, outer *string) *Folder {
	f := &Folder{FolderID: id, Name: name, UserID: userID, OuterFolderID: outer}
	r.folders[id] = f
	return f
}

func (r *fakeFolderRepo) Create(ctx context.Context, folder *Folder) error {
	r.folders[folder.FolderID] = folder
	return nil
}

func (r *fakeFolderRepo) GetByID(ctx context.Context, folderID, userID string) (*Folder, error) {
	f, ok := r.folders[folderID]
	if !ok || f.UserID != userID {
		return nil, ErrFolderNotFound
	}
	return f, nil
}

func (r *fakeFolderRepo) GetRoot(ctx context.Context, userID, name string) (*Folder, error) {
	for _, f := range r.folders {
		if f.UserID == userID && f.Name == name && f.OuterFolderID == nil {
			return f, nil
		}
	}
	return nil, ErrFolderNotFound
}

func (r *fakeFolderRepo) ListChildren(ctx context.Context, userID string, outerFolderID *string) ([]*Folder, error) {
	var out []*Folder
	for _, f := range r.folders {
		if f.UserID != userID {
			continue
		}
		switch {
		case outerFolderID == nil && f.OuterFolderID == nil:
			out = append(out, f)
		case outerFolderID != nil && f.OuterFolderID != nil && *f.OuterFolderID == *outerFolderID:
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) Rename(ctx context.Context, folderID, userID, newName string) error {
	f, ok := r.folders[folderID]
	if !ok || f.UserID != userID {
		return ErrFolderNotFound
	}
	f.Name = newName
	return nil
}

func (r *fakeFolderRepo) SetOuterFolder(ctx context.Context, folderIDs []string, userID, outerFolderID string) error {
	for _, id := range folderIDs {
		f, ok := r.folders[id]
		if !ok || f.UserID != userID {
			return ErrFolderNotFound
		}
		outer := outerFolderID
		f.OuterFolderID = &outer
	}
	return nil
}

func (r *fakeFolderRepo) Delete(ctx context.Context, folderID string) error {
	delete(r.folders, folderID)
	return nil
}

type fakeFileStore struct {
	deletedFolders []string
	perFolder      map[string]int64
}

func (s *fakeFileStore) DeleteByFolder(ctx context.Context, folderID string) (int64, error) {
	s.deletedFolders = append(s.deletedFolders, folderID)
	return s.perFolder[folderID], nil
}

type fakeLinkStore struct {
	folderDeletes []string
	fileDeletes   []string
}

func (s *fakeLinkStore) DeleteByFolder(ctx context.Context, folderID string) error {
	s.folderDeletes = append(s.folderDeletes, folderID)
	return nil
}

func (s *fakeLinkStore) DeleteByFilesInFolder(ctx context.Context, folderID string) error {
	s.fileDeletes = append(s.fileDeletes, folderID)
	return nil
}

type fakeSweeper struct {
	calls  int
	purged []string
}

func (s *fakeSweeper) SweepOrphans(ctx context.Context) ([]string, error) {
	s.calls++
	return s.purged, nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestUseCase(repo *fakeFolderRepo) (*FolderUseCase, *fakeFileStore, *fakeLinkStore, *fakeSweeper) {
	files := &fakeFileStore{perFolder: map[string]int64{}}
	links := &fakeLinkStore{}
	sweeper := &fakeSweeper{}
	uc := NewFolderUseCase(repo, files, links, sweeper, passthroughTx{}, logger.NewNop())
	return uc, files, links, sweeper
}

func strptr(s string) *string { return &s }

func TestHighestAncestorWalksToRoot(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.add("home", RootHome, "u1", nil)
	repo.add("a", "a", "u1", strptr("home"))
	repo.add("b", "b", "u1", strptr("a"))

	uc, _, _, _ := newTestUseCase(repo)

	root, err := uc.HighestAncestor(context.Background(), "u1", "b")
	require.NoError(t, err)
	assert.Equal(t, "home", root.FolderID)
}

func TestHighestAncestorDetectsCycle(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.add("a", "a", "u1", strptr("b"))
	repo.add("b", "b", "u1", strptr("a"))

	uc, _, _, _ := newTestUseCase(repo)

	_, err := uc.HighestAncestor(context.Background(), "u1", "a")
	assert.ErrorIs(t, err, ErrFolderCycle)
}

func TestMoveBatchRejectsOwnSubtree(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.add("home", RootHome, "u1", nil)
	repo.add("parent", "parent", "u1", strptr("home"))
	repo.add("child", "child", "u1", strptr("parent"))

	uc, _, _, _ := newTestUseCase(repo)
	ctx := context.Background()

	err := uc.MoveBatch(ctx, "u1", []string{"parent"}, "child")
	assert.ErrorIs(t, err, ErrMoveIntoDescendant)

	err = uc.MoveBatch(ctx, "u1", []string{"parent"}, "parent")
	assert.ErrorIs(t, err, ErrMoveIntoDescendant)
}

func TestMoveBatchValidation(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.add("home", RootHome, "u1", nil)
	repo.add("a", "a", "u1", strptr("home"))

	uc, _, _, _ := newTestUseCase(repo)
	ctx := context.Background()

	err := uc.MoveBatch(ctx, "u1", nil, "home")
	assert.ErrorIs(t, err, ErrEmptyBatch)

	err = uc.MoveBatch(ctx, "u1", []string{"a"}, "missing")
	assert.ErrorIs(t, err, ErrDestinationNotFound)

	err = uc.MoveBatch(ctx, "u1", []string{"a"}, "home")
	require.NoError(t, err)
	moved, _ := repo.GetByID(ctx, "a", "u1")
	assert.Equal(t, "home", *moved.OuterFolderID)
}

func TestDeleteBatchSoftMovesToBin(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.add("home", RootHome, "u1", nil)
	repo.add("bin", RootBin, "u1", nil)
	repo.add("docs", "docs", "u1", strptr("home"))

	uc, _, _, sweeper := newTestUseCase(repo)

	result, err := uc.DeleteBatch(context.Background(), "u1", []string{"docs"})
	require.NoError(t, err)

	assert.Equal(t, []string{"docs"}, result.MovedToBin)
	assert.Empty(t, result.FoldersRemoved)
	assert.Equal(t, 0, sweeper.calls, "soft delete must not trigger the orphan sweep")

	docs, _ := repo.GetByID(context.Background(), "docs", "u1")
	assert.Equal(t, "bin", *docs.OuterFolderID)
}

func TestDeleteBatchHardPurgesRecursively(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.add("home", RootHome, "u1", nil)
	repo.add("bin", RootBin, "u1", nil)
	repo.add("trashed", "trashed", "u1", strptr("bin"))
	repo.add("nested", "nested", "u1", strptr("trashed"))

	uc, files, links, sweeper := newTestUseCase(repo)
	files.perFolder["trashed"] = 2
	files.perFolder["nested"] = 1
	sweeper.purged = []string{"h1"}

	result, err := uc.DeleteBatch(context.Background(), "u1", []string{"trashed"})
	require.NoError(t, err)

	assert.Empty(t, result.MovedToBin)
	assert.ElementsMatch(t, []string{"trashed", "nested"}, result.FoldersRemoved)
	assert.Equal(t, int64(3), result.FilesRemoved)
	assert.Equal(t, []string{"h1"}, result.PurgedHashes)
	assert.Equal(t, 1, sweeper.calls)

	// children purged before parents
	assert.Equal(t, []string{"nested", "trashed"}, files.deletedFolders)
	assert.ElementsMatch(t, []string{"nested", "trashed"}, links.folderDeletes)
	assert.ElementsMatch(t, []string{"nested", "trashed"}, links.fileDeletes)

	_, err = repo.GetByID(context.Background(), "trashed", "u1")
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestDeleteBatchClassifiesPerItem(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.add("home", RootHome, "u1", nil)
	repo.add("bin", RootBin, "u1", nil)
	repo.add("keepable", "keepable", "u1", strptr("home"))
	repo.add("trashed", "trashed", "u1", strptr("bin"))

	uc, _, _, _ := newTestUseCase(repo)

	result, err := uc.DeleteBatch(context.Background(), "u1", []string{"keepable", "trashed"})
	require.NoError(t, err)

	assert.Equal(t, []string{"keepable"}, result.MovedToBin)
	assert.Equal(t, []string{"trashed"}, result.FoldersRemoved)
}

func TestEnsureUserRootsIdempotent(t *testing.T) {
	repo := newFakeFolderRepo()
	uc, _, _, _ := newTestUseCase(repo)
	ctx := context.Background()

	home1, bin1, err := uc.EnsureUserRoots(ctx, "u1")
	require.NoError(t, err)
	home2, bin2, err := uc.EnsureUserRoots(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, home1.FolderID, home2.FolderID)
	assert.Equal(t, bin1.FolderID, bin2.FolderID)
	assert.Len(t, repo.folders, 2)
}

func TestGetByPathResolvesSegments(t *testing.T) {
	repo := newFakeFolderRepo()
	repo.add("home", RootHome, "u1", nil)
	repo.add("a", "docs", "u1", strptr("home"))
	repo.add("b", "reports", "u1", strptr("a"))

	uc, _, _, _ := newTestUseCase(repo)
	ctx := context.Background()

	folder, err := uc.GetByPath(ctx, "u1", []string{"docs", "reports"})
	require.NoError(t, err)
	assert.Equal(t, "b", folder.FolderID)

	folder, err = uc.GetByPath(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, "home", folder.FolderID)

	_, err = uc.GetByPath(ctx, "u1", []string{"missing"})
	assert.ErrorIs(t, err, ErrFolderNotFound)
}
