package biz_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	filebiz "github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	filedata "github.com/mina-sebastian/free-space-sub000/internal/file/data"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	folderdata "github.com/mina-sebastian/free-space-sub000/internal/folder/data"
	hashbiz "github.com/mina-sebastian/free-space-sub000/internal/hash/biz"
	hashdata "github.com/mina-sebastian/free-space-sub000/internal/hash/data"
	linkdata "github.com/mina-sebastian/free-space-sub000/internal/link/data"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	userdata "github.com/mina-sebastian/free-space-sub000/internal/user/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordingBlobStore captures blob deletes issued by the orphan sweep
type recordingBlobStore struct {
	mu      sync.Mutex
	deleted []string
	fail    bool
}

func (s *recordingBlobStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("gateway unavailable")
	}
	s.deleted = append(s.deleted, path)
	return nil
}

type fixture struct {
	db      *database.DB
	blobs   *recordingBlobStore
	folders *folderbiz.FolderUseCase
	files   *filebiz.FileUseCase
	ledger  *hashbiz.LedgerUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&userdata.UserPO{},
		&folderdata.FolderPO{},
		&hashdata.FileHashPO{},
		&filedata.FilePO{},
		&filedata.TagPO{},
		&filedata.FileTagPO{},
		&filedata.FileHashTagPO{},
		&linkdata.LinkPO{},
	))

	log := logger.NewNop()
	db := database.NewFromGorm(gdb, log)

	folderRepo := folderdata.NewFolderRepo(db, log)
	fileRepo := filedata.NewFileRepo(db, log)
	ledgerRepo := hashdata.NewLedgerRepo(db, log)
	linkRepo := linkdata.NewLinkRepo(db, log)

	blobs := &recordingBlobStore{}
	ledger := hashbiz.NewLedgerUseCase(ledgerRepo, blobs, db, log)
	folders := folderbiz.NewFolderUseCase(folderRepo, fileRepo, linkRepo, ledger, db, log)
	files := filebiz.NewFileUseCase(fileRepo, folders, ledger, linkRepo, db, log)

	return &fixture{
		db:      db,
		blobs:   blobs,
		folders: folders,
		files:   files,
		ledger:  ledger,
	}
}

// seedFile reserves and finalizes a hash, then creates a file referencing it
func (f *fixture) seedFile(t *testing.T, userID, folderID, name, hash string, size int64) *filebiz.File {
	t.Helper()
	ctx := context.Background()

	created, _, err := f.ledger.Reserve(ctx, hash, "frspc-"+hash)
	require.NoError(t, err)
	if created {
		require.NoError(t, f.ledger.Finalize(ctx, hash, size))
	}

	file, err := f.files.Create(ctx, userID, folderID, name, hash)
	require.NoError(t, err)
	return file
}

func TestFileTrashLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	home, bin, err := f.folders.EnsureUserRoots(ctx, "u1")
	require.NoError(t, err)

	file := f.seedFile(t, "u1", home.FolderID, "report.pdf", "h1", 1024)
	assert.Equal(t, int64(1024), file.Size)

	// first delete: soft, reparented under Bin
	result, err := f.files.DeleteBatch(ctx, "u1", []string{file.FileID})
	require.NoError(t, err)
	assert.Equal(t, []string{file.FileID}, result.MovedToBin)
	assert.Empty(t, result.Removed)
	assert.Empty(t, f.blobs.deleted)

	moved, err := f.files.Get(ctx, "u1", file.FileID)
	require.NoError(t, err)
	assert.Equal(t, bin.FolderID, moved.FolderID)

	// second delete: hard, row purged, hash orphaned, blob gone
	result, err = f.files.DeleteBatch(ctx, "u1", []string{file.FileID})
	require.NoError(t, err)
	assert.Equal(t, []string{file.FileID}, result.Removed)
	assert.Equal(t, []string{"h1"}, result.PurgedHashes)
	assert.Equal(t, []string{"frspc-h1"}, f.blobs.deleted)

	_, err = f.files.Get(ctx, "u1", file.FileID)
	assert.ErrorIs(t, err, filebiz.ErrFileNotFound)
	_, err = f.ledger.Get(ctx, "h1")
	assert.ErrorIs(t, err, hashbiz.ErrHashNotFound)
}

func TestSharedHashSurvivesUntilLastReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "u1")
	require.NoError(t, err)

	first := f.seedFile(t, "u1", home.FolderID, "a.bin", "shared", 10)
	second := f.seedFile(t, "u1", home.FolderID, "b.bin", "shared", 10)

	// purge the first copy completely
	_, err = f.files.DeleteBatch(ctx, "u1", []string{first.FileID})
	require.NoError(t, err)
	result, err := f.files.DeleteBatch(ctx, "u1", []string{first.FileID})
	require.NoError(t, err)
	assert.Empty(t, result.PurgedHashes, "hash still referenced by the second file")
	assert.Empty(t, f.blobs.deleted)

	// purge the second copy: now the hash is orphaned
	_, err = f.files.DeleteBatch(ctx, "u1", []string{second.FileID})
	require.NoError(t, err)
	result, err = f.files.DeleteBatch(ctx, "u1", []string{second.FileID})
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, result.PurgedHashes)
	assert.Equal(t, []string{"frspc-shared"}, f.blobs.deleted)
}

func TestReservedHashNeverSwept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, _, err := f.ledger.Reserve(ctx, "inflight", "frspc-inflight")
	require.NoError(t, err)
	require.True(t, created)

	purged, err := f.ledger.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, purged)

	entry, err := f.ledger.Get(ctx, "inflight")
	require.NoError(t, err)
	assert.False(t, entry.Finalized())
}

func TestBlobDeleteFailureDoesNotFailTheSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "u1")
	require.NoError(t, err)

	file := f.seedFile(t, "u1", home.FolderID, "doc.txt", "h2", 5)
	f.blobs.fail = true

	_, err = f.files.DeleteBatch(ctx, "u1", []string{file.FileID})
	require.NoError(t, err)
	result, err := f.files.DeleteBatch(ctx, "u1", []string{file.FileID})
	require.NoError(t, err)

	// the logical purge holds even though the gateway failed
	assert.Equal(t, []string{"h2"}, result.PurgedHashes)
	_, err = f.ledger.Get(ctx, "h2")
	assert.ErrorIs(t, err, hashbiz.ErrHashNotFound)
}

func TestFolderDeleteCascadesFilesAndHashes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	home, bin, err := f.folders.EnsureUserRoots(ctx, "u1")
	require.NoError(t, err)

	sub, err := f.folders.Create(ctx, "u1", "projects", &home.FolderID)
	require.NoError(t, err)
	nested, err := f.folders.Create(ctx, "u1", "archive", &sub.FolderID)
	require.NoError(t, err)

	f.seedFile(t, "u1", sub.FolderID, "one.txt", "fh1", 1)
	f.seedFile(t, "u1", nested.FolderID, "two.txt", "fh2", 2)

	// soft delete the subtree
	result, err := f.folders.DeleteBatch(ctx, "u1", []string{sub.FolderID})
	require.NoError(t, err)
	assert.Equal(t, []string{sub.FolderID}, result.MovedToBin)

	movedSub, err := f.folders.Get(ctx, "u1", sub.FolderID)
	require.NoError(t, err)
	assert.Equal(t, bin.FolderID, *movedSub.OuterFolderID)

	// hard delete from the bin purges folders, files and hashes
	result, err = f.folders.DeleteBatch(ctx, "u1", []string{sub.FolderID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{sub.FolderID, nested.FolderID}, result.FoldersRemoved)
	assert.Equal(t, int64(2), result.FilesRemoved)
	assert.ElementsMatch(t, []string{"fh1", "fh2"}, result.PurgedHashes)
	assert.ElementsMatch(t, []string{"frspc-fh1", "frspc-fh2"}, f.blobs.deleted)
}

func TestHashTagsPropagateAcrossReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "u1")
	require.NoError(t, err)

	first := f.seedFile(t, "u1", home.FolderID, "a.jpg", "pic", 99)
	f.seedFile(t, "u1", home.FolderID, "copy.jpg", "pic", 99)

	require.NoError(t, f.files.SetHashTags(ctx, "u1", first.FileID, []string{"vacation", "2026"}))

	// both existing references carry the tags now
	untagged, err := f.files.ListUntagged(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, untagged)

	tags, err := f.files.ListTags(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vacation", "2026"}, tags)

	// a fresh dedup reference inherits them too
	third, err := f.files.Create(ctx, "u1", home.FolderID, "again.jpg", "pic")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vacation", "2026"}, third.Tags)
}

func TestStorageUsageDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "u1")
	require.NoError(t, err)

	f.seedFile(t, "u1", home.FolderID, "a.bin", "x", 100)
	f.seedFile(t, "u1", home.FolderID, "b.bin", "x", 100)
	f.seedFile(t, "u1", home.FolderID, "c.bin", "y", 50)

	usage, err := f.files.StorageUsage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), usage.LogicalBytes)
	assert.Equal(t, int64(150), usage.PhysicalBytes)
}

func TestMoveBatchValidatesDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "u1")
	require.NoError(t, err)
	file := f.seedFile(t, "u1", home.FolderID, "a.txt", "mv", 1)

	err = f.files.MoveBatch(ctx, "u1", nil, home.FolderID)
	assert.ErrorIs(t, err, filebiz.ErrEmptyBatch)

	err = f.files.MoveBatch(ctx, "u1", []string{file.FileID}, "missing")
	assert.ErrorIs(t, err, filebiz.ErrDestinationNotFound)

	sub, err := f.folders.Create(ctx, "u1", "sub", &home.FolderID)
	require.NoError(t, err)
	require.NoError(t, f.files.MoveBatch(ctx, "u1", []string{file.FileID}, sub.FolderID))

	moved, err := f.files.Get(ctx, "u1", file.FileID)
	require.NoError(t, err)
	assert.Equal(t, sub.FolderID, moved.FolderID)
}
