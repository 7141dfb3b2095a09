package biz_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	hashbiz "github.com/mina-sebastian/free-space-sub000/internal/hash/biz"
	hashdata "github.com/mina-sebastian/free-space-sub000/internal/hash/data"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type nopBlobStore struct{}

func (nopBlobStore) Delete(ctx context.Context, path string) error { return nil }

func newLedger(t *testing.T) *hashbiz.LedgerUseCase {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&hashdata.FileHashPO{}))

	log := logger.NewNop()
	db := database.NewFromGorm(gdb, log)
	repo := hashdata.NewLedgerRepo(db, log)
	return hashbiz.NewLedgerUseCase(repo, nopBlobStore{}, db, log)
}

func TestReserveAssignsReservedSize(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	created, entry, err := ledger.Reserve(ctx, "abc", "frspc-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, hashbiz.SizeReserved, entry.Size)
	assert.False(t, entry.Finalized())
}

func TestReserveDuplicateReturnsExisting(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	_, _, err := ledger.Reserve(ctx, "abc", "frspc-1")
	require.NoError(t, err)
	require.NoError(t, ledger.Finalize(ctx, "abc", 42))

	created, existing, err := ledger.Reserve(ctx, "abc", "frspc-2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "frspc-1", existing.Path, "existing storage path wins")
	assert.Equal(t, int64(42), existing.Size)
}

func TestFinalizeUnknownHash(t *testing.T) {
	ledger := newLedger(t)

	err := ledger.Finalize(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, hashbiz.ErrHashNotFound)
}

func TestMarkTagged(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	_, _, err := ledger.Reserve(ctx, "abc", "frspc-1")
	require.NoError(t, err)
	require.NoError(t, ledger.MarkTagged(ctx, "abc"))

	entry, err := ledger.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, entry.Tagged)
}
