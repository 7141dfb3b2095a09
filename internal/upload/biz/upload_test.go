package biz

import (
	"context"
	"strings"
	"testing"

	filebiz "github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	hashbiz "github.com/mina-sebastian/free-space-sub000/internal/hash/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLedger struct {
	entries map[string]*hashbiz.FileHash
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]*hashbiz.FileHash{}}
}

func (l *fakeLedger) Reserve(ctx context.Context, hash, storagePath string) (bool, *hashbiz.FileHash, error) {
	if existing, ok := l.entries[hash]; ok {
		return false, existing, nil
	}
	entry := &hashbiz.FileHash{Hash: hash, Path: storagePath, Size: hashbiz.SizeReserved}
	l.entries[hash] = entry
	return true, entry, nil
}

func (l *fakeLedger) Finalize(ctx context.Context, hash string, size int64) error {
	entry, ok := l.entries[hash]
	if !ok {
		return hashbiz.ErrHashNotFound
	}
	entry.Size = size
	return nil
}

func (l *fakeLedger) Get(ctx context.Context, hash string) (*hashbiz.FileHash, error) {
	entry, ok := l.entries[hash]
	if !ok {
		return nil, hashbiz.ErrHashNotFound
	}
	return entry, nil
}

type createdFile struct {
	userID, folderID, name, hash string
}

type fakeFileCreator struct {
	created []createdFile
}

func (c *fakeFileCreator) Create(ctx context.Context, userID, folderID, name, hash string) (*filebiz.File, error) {
	c.created = append(c.created, createdFile{userID, folderID, name, hash})
	return &filebiz.File{FileID: "f-" + name, Name: name, UserID: userID, FolderID: folderID, Hash: hash}, nil
}

type fakeTree struct {
	home    *folderbiz.Folder
	bin     *folderbiz.Folder
	folders map[string]*folderbiz.Folder
}

func newFakeTree() *fakeTree {
	home := &folderbiz.Folder{FolderID: "home", Name: folderbiz.RootHome, UserID: "u1"}
	bin := &folderbiz.Folder{FolderID: "bin", Name: folderbiz.RootBin, UserID: "u1"}
	return &fakeTree{
		home: home,
		bin:  bin,
		folders: map[string]*folderbiz.Folder{
			home.FolderID: home,
			bin.FolderID:  bin,
		},
	}
}

func (t *fakeTree) EnsureUserRoots(ctx context.Context, userID string) (*folderbiz.Folder, *folderbiz.Folder, error) {
	return t.home, t.bin, nil
}

func (t *fakeTree) Get(ctx context.Context, userID, folderID string) (*folderbiz.Folder, error) {
	f, ok := t.folders[folderID]
	if !ok {
		return nil, folderbiz.ErrFolderNotFound
	}
	return f, nil
}

func newUploadFixture() (*UploadUseCase, *fakeLedger, *fakeFileCreator, *fakeTree) {
	ledger := newFakeLedger()
	files := &fakeFileCreator{}
	tree := newFakeTree()
	uc := NewUploadUseCase(ledger, files, tree, logger.NewNop())
	return uc, ledger, files, tree
}

func TestPreCreateFreshHashAssignsStorageID(t *testing.T) {
	uc, ledger, files, _ := newUploadFixture()

	result, err := uc.PreCreate(context.Background(), "u1", "photo.jpg", "h1", "")
	require.NoError(t, err)

	assert.False(t, result.Reject)
	assert.True(t, strings.HasPrefix(result.StorageID, StorageIDPrefix))
	assert.Empty(t, files.created, "no file row before the upload finishes")

	entry := ledger.entries["h1"]
	require.NotNil(t, entry)
	assert.Equal(t, result.StorageID, entry.Path)
	assert.False(t, entry.Finalized())
}

func TestPreCreateDuplicateRejectsAndCreatesRow(t *testing.T) {
	uc, _, files, _ := newUploadFixture()
	ctx := context.Background()

	_, err := uc.PreCreate(ctx, "u1", "photo.jpg", "h1", "")
	require.NoError(t, err)

	result, err := uc.PreCreate(ctx, "u1", "copy.jpg", "h1", "")
	require.NoError(t, err)

	assert.True(t, result.Reject)
	assert.Equal(t, "file already exists", result.Message)
	require.NotNil(t, result.File)
	require.Len(t, files.created, 1)
	assert.Equal(t, createdFile{"u1", "home", "copy.jpg", "h1"}, files.created[0])
}

func TestPreCreateValidatesMetadata(t *testing.T) {
	uc, _, _, _ := newUploadFixture()
	ctx := context.Background()

	_, err := uc.PreCreate(ctx, "u1", "", "h1", "")
	assert.ErrorIs(t, err, ErrFilenameRequired)

	_, err = uc.PreCreate(ctx, "u1", "a.txt", "", "")
	assert.ErrorIs(t, err, ErrHashRequired)
}

func TestPostFinishFinalizesAndCreatesRow(t *testing.T) {
	uc, ledger, files, tree := newUploadFixture()
	ctx := context.Background()

	_, err := uc.PreCreate(ctx, "u1", "doc.pdf", "h1", "")
	require.NoError(t, err)

	tree.folders["sub"] = &folderbiz.Folder{FolderID: "sub", Name: "sub", UserID: "u1"}

	file, err := uc.PostFinish(ctx, "u1", "doc.pdf", "h1", "sub", 2048)
	require.NoError(t, err)

	assert.Equal(t, int64(2048), ledger.entries["h1"].Size)
	assert.Equal(t, "sub", file.FolderID)
	require.Len(t, files.created, 1)
}

func TestPostFinishDefaultsToHome(t *testing.T) {
	uc, _, files, _ := newUploadFixture()
	ctx := context.Background()

	_, err := uc.PreCreate(ctx, "u1", "doc.pdf", "h1", "")
	require.NoError(t, err)

	_, err = uc.PostFinish(ctx, "u1", "doc.pdf", "h1", "", 10)
	require.NoError(t, err)
	assert.Equal(t, "home", files.created[0].folderID)
}

func TestPreprocessPartitionsByLedgerState(t *testing.T) {
	uc, ledger, files, _ := newUploadFixture()
	ctx := context.Background()

	// known and finalized
	ledger.entries["known"] = &hashbiz.FileHash{Hash: "known", Path: "frspc-k", Size: 100}
	// reserved but still uploading
	ledger.entries["inflight"] = &hashbiz.FileHash{Hash: "inflight", Path: "frspc-i", Size: hashbiz.SizeReserved}

	result, err := uc.Preprocess(ctx, "u1", []PreprocessFile{
		{ID: "1", Name: "a.txt", Hash: "known"},
		{ID: "2", Name: "b.txt", Hash: "inflight"},
		{ID: "3", Name: "c.txt", Hash: "new"},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, result.AlreadyUploaded)
	assert.ElementsMatch(t, []string{"2", "3"}, result.ToUpload)
	require.Len(t, files.created, 1)
	assert.Equal(t, "a.txt", files.created[0].name)
}
