package biz_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	filebiz "github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	filedata "github.com/mina-sebastian/free-space-sub000/internal/file/data"
	folderbiz "github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	folderdata "github.com/mina-sebastian/free-space-sub000/internal/folder/data"
	hashbiz "github.com/mina-sebastian/free-space-sub000/internal/hash/biz"
	hashdata "github.com/mina-sebastian/free-space-sub000/internal/hash/data"
	linkbiz "github.com/mina-sebastian/free-space-sub000/internal/link/biz"
	linkdata "github.com/mina-sebastian/free-space-sub000/internal/link/data"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	pkgredis "github.com/mina-sebastian/free-space-sub000/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type nopBlobStore struct{}

func (nopBlobStore) Delete(ctx context.Context, path string) error { return nil }

type linkFixture struct {
	links   *linkbiz.LinkUseCase
	folders *folderbiz.FolderUseCase
	files   *filebiz.FileUseCase
	ledger  *hashbiz.LedgerUseCase
	redis   *miniredis.Miniredis
}

func newLinkFixture(t *testing.T) *linkFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&folderdata.FolderPO{},
		&hashdata.FileHashPO{},
		&filedata.FilePO{},
		&filedata.TagPO{},
		&filedata.FileTagPO{},
		&filedata.FileHashTagPO{},
		&linkdata.LinkPO{},
	))

	mr := miniredis.RunT(t)
	log := logger.NewNop()
	db := database.NewFromGorm(gdb, log)
	cache := pkgredis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), log)

	folderRepo := folderdata.NewFolderRepo(db, log)
	fileRepo := filedata.NewFileRepo(db, log)
	ledgerRepo := hashdata.NewLedgerRepo(db, log)
	linkRepo := linkdata.NewLinkRepo(db, log)

	ledger := hashbiz.NewLedgerUseCase(ledgerRepo, nopBlobStore{}, db, log)
	folders := folderbiz.NewFolderUseCase(folderRepo, fileRepo, linkRepo, ledger, db, log)
	files := filebiz.NewFileUseCase(fileRepo, folders, ledger, linkRepo, db, log)
	links := linkbiz.NewLinkUseCase(linkRepo, folders, files, cache, "https://cloud.example.com", 30*24*time.Hour, log)

	return &linkFixture{
		links:   links,
		folders: folders,
		files:   files,
		ledger:  ledger,
		redis:   mr,
	}
}

func (f *linkFixture) seedFile(t *testing.T, userID, folderID, name, hash string, size int64) *filebiz.File {
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

func TestGenerateAndResolveFileLink(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "owner")
	require.NoError(t, err)
	file := f.seedFile(t, "owner", home.FolderID, "shared.pdf", "h1", 500)

	link, err := f.links.Generate(ctx, "owner", linkbiz.TargetFile, file.FileID, "READ", linkbiz.CanSeeAnyone, 0)
	require.NoError(t, err)
	assert.Len(t, link.Token, 32)
	assert.Equal(t, "https://cloud.example.com/links/"+link.Token, f.links.URL(link.Token))

	result, err := f.links.Resolve(ctx, link.Token, nil, false)
	require.NoError(t, err)
	require.NotNil(t, result.File)
	assert.Equal(t, "shared.pdf", result.File.Name)
	assert.Equal(t, int64(500), result.File.Size)
}

func TestResolveFolderLinkWithSubpath(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "owner")
	require.NoError(t, err)
	docs, err := f.folders.Create(ctx, "owner", "docs", &home.FolderID)
	require.NoError(t, err)
	reports, err := f.folders.Create(ctx, "owner", "reports", &docs.FolderID)
	require.NoError(t, err)
	f.seedFile(t, "owner", reports.FolderID, "q3.pdf", "h2", 1)

	link, err := f.links.Generate(ctx, "owner", linkbiz.TargetFolder, docs.FolderID, "READ", linkbiz.CanSeeAnyone, 0)
	require.NoError(t, err)

	// no subpath: the bound folder and its content
	result, err := f.links.Resolve(ctx, link.Token, nil, false)
	require.NoError(t, err)
	require.NotNil(t, result.Folder)
	assert.Equal(t, docs.FolderID, result.Folder.FolderID)
	require.Len(t, result.Folders, 1)
	assert.Equal(t, "reports", result.Folders[0].Name)

	// folder subpath
	result, err = f.links.Resolve(ctx, link.Token, []string{"reports"}, false)
	require.NoError(t, err)
	require.NotNil(t, result.Folder)
	assert.Equal(t, reports.FolderID, result.Folder.FolderID)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "q3.pdf", result.Files[0].Name)

	// terminal file segment
	result, err = f.links.Resolve(ctx, link.Token, []string{"reports", "q3.pdf"}, false)
	require.NoError(t, err)
	require.NotNil(t, result.File)
	assert.Equal(t, "q3.pdf", result.File.Name)

	// dead end
	_, err = f.links.Resolve(ctx, link.Token, []string{"nope"}, false)
	assert.ErrorIs(t, err, linkbiz.ErrLinkNotFound)
}

func TestResolveEnforcesExpiry(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "owner")
	require.NoError(t, err)

	link, err := f.links.Generate(ctx, "owner", linkbiz.TargetFolder, home.FolderID, "READ", linkbiz.CanSeeAnyone, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = f.links.Resolve(ctx, link.Token, nil, false)
	assert.ErrorIs(t, err, linkbiz.ErrLinkExpired)
}

func TestResolveEnforcesAudience(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "owner")
	require.NoError(t, err)

	link, err := f.links.Generate(ctx, "owner", linkbiz.TargetFolder, home.FolderID, "READ", linkbiz.CanSeeAuthOnly, 0)
	require.NoError(t, err)

	_, err = f.links.Resolve(ctx, link.Token, nil, false)
	assert.ErrorIs(t, err, linkbiz.ErrLinkForbidden)

	result, err := f.links.Resolve(ctx, link.Token, nil, true)
	require.NoError(t, err)
	assert.NotNil(t, result.Folder)
}

func TestGenerateRejectsForeignTargets(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "owner")
	require.NoError(t, err)

	_, err = f.links.Generate(ctx, "intruder", linkbiz.TargetFolder, home.FolderID, "READ", linkbiz.CanSeeAnyone, 0)
	assert.ErrorIs(t, err, linkbiz.ErrTargetNotFound)

	_, err = f.links.Generate(ctx, "owner", "weird", home.FolderID, "READ", linkbiz.CanSeeAnyone, 0)
	assert.ErrorIs(t, err, linkbiz.ErrInvalidTarget)
}

func TestRevokeDropsLinkAndCache(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "owner")
	require.NoError(t, err)

	link, err := f.links.Generate(ctx, "owner", linkbiz.TargetFolder, home.FolderID, "READ", linkbiz.CanSeeAnyone, 0)
	require.NoError(t, err)

	// prime the cache
	_, err = f.links.Resolve(ctx, link.Token, nil, false)
	require.NoError(t, err)
	assert.True(t, f.redis.Exists("link:"+link.Token))

	// a stranger cannot revoke
	err = f.links.Revoke(ctx, "intruder", link.Token)
	assert.ErrorIs(t, err, linkbiz.ErrLinkNotFound)

	require.NoError(t, f.links.Revoke(ctx, "owner", link.Token))
	assert.False(t, f.redis.Exists("link:"+link.Token))

	_, err = f.links.Resolve(ctx, link.Token, nil, false)
	assert.ErrorIs(t, err, linkbiz.ErrLinkNotFound)
}

func TestQRRendersPNG(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	home, _, err := f.folders.EnsureUserRoots(ctx, "owner")
	require.NoError(t, err)

	link, err := f.links.Generate(ctx, "owner", linkbiz.TargetFolder, home.FolderID, "READ", linkbiz.CanSeeAnyone, 0)
	require.NoError(t, err)

	png, err := f.links.QR(ctx, link.Token)
	require.NoError(t, err)
	require.True(t, len(png) > 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
