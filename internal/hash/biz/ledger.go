// Package biz implements the content hash ledger. Every stored blob has
// exactly one ledger entry keyed by its content hash; file rows reference
// entries, and an entry with no referencing files is an orphan eligible
// for purge together with its blob.
package biz

import (
	"context"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"go.uber.org/zap"
)

// SizeReserved marks an entry whose upload has not finished yet. Reserved
// entries are never swept: the blob may still be arriving.
const SizeReserved int64 = -1

// FileHash is a content hash ledger entry
type FileHash struct {
	Hash      string
	Path      string // storage id under the blob store
	Size      int64  // SizeReserved until the upload finishes
	Tagged    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Finalized reports whether the entry's upload has completed
func (h *FileHash) Finalized() bool {
	return h.Size >= 0
}

// LedgerRepo is the ledger persistence contract
type LedgerRepo interface {
	// Create inserts a new entry; a duplicate hash returns
	// (created=false, existing entry, nil).
	Create(ctx context.Context, entry *FileHash) (created bool, existing *FileHash, err error)
	GetByHash(ctx context.Context, hash string) (*FileHash, error)
	SetSize(ctx context.Context, hash string, size int64) error
	SetTagged(ctx context.Context, hash string, tagged bool) error
	// FindOrphans returns finalized entries with no referencing files.
	FindOrphans(ctx context.Context) ([]*FileHash, error)
	DeleteByHashes(ctx context.Context, hashes []string) error
}

// BlobStore deletes stored blobs by their storage path
type BlobStore interface {
	Delete(ctx context.Context, path string) error
}

// TxManager runs a function with a database transaction installed in the
// context
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerUseCase manages content hash entries and their blob lifecycle
type LedgerUseCase struct {
	repo   LedgerRepo
	blobs  BlobStore
	tx     TxManager
	logger *logger.Logger
}

// NewLedgerUseCase creates the content hash ledger
func NewLedgerUseCase(repo LedgerRepo, blobs BlobStore, tx TxManager, log *logger.Logger) *LedgerUseCase {
	return &LedgerUseCase{
		repo:   repo,
		blobs:  blobs,
		tx:     tx,
		logger: log,
	}
}

// Reserve registers a hash ahead of its upload. When the hash is already
// present the existing entry is returned with created=false, which drives
// the dedup path: no second blob is stored.
func (uc *LedgerUseCase) Reserve(ctx context.Context, hash, storagePath string) (bool, *FileHash, error) {
	now := time.Now()
	entry := &FileHash{
		Hash:      hash,
		Path:      storagePath,
		Size:      SizeReserved,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, existing, err := uc.repo.Create(ctx, entry)
	if err != nil {
		return false, nil, err
	}
	if !created {
		return false, existing, nil
	}
	return true, entry, nil
}

// Finalize records the blob size once the upload completes
func (uc *LedgerUseCase) Finalize(ctx context.Context, hash string, size int64) error {
	return uc.repo.SetSize(ctx, hash, size)
}

// Get returns the ledger entry for a hash
func (uc *LedgerUseCase) Get(ctx context.Context, hash string) (*FileHash, error) {
	return uc.repo.GetByHash(ctx, hash)
}

// MarkTagged flags an entry as carrying hash-level tags
func (uc *LedgerUseCase) MarkTagged(ctx context.Context, hash string) error {
	return uc.repo.SetTagged(ctx, hash, true)
}

// SweepOrphans purges every finalized entry that lost its last referencing
// file. The ledger rows go in one transaction; blob deletes run after
// commit and never fail the sweep. Returns the purged hashes.
func (uc *LedgerUseCase) SweepOrphans(ctx context.Context) ([]string, error) {
	var orphans []*FileHash

	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		found, err := uc.repo.FindOrphans(ctx)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return nil
		}

		hashes := make([]string, len(found))
		for i, o := range found {
			hashes[i] = o.Hash
		}
		if err := uc.repo.DeleteByHashes(ctx, hashes); err != nil {
			return err
		}
		orphans = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(orphans) == 0 {
		return nil, nil
	}

	purged := make([]string, 0, len(orphans))
	for _, orphan := range orphans {
		if err := uc.blobs.Delete(ctx, orphan.Path); err != nil {
			// The row is already gone; a stale blob in the store is
			// acceptable since nothing references it anymore.
			uc.logger.WithContext(ctx).Warn("blob delete failed for purged hash",
				zap.String("hash", orphan.Hash),
				zap.String("path", orphan.Path),
				zap.Error(err))
		}
		purged = append(purged, orphan.Hash)
	}

	uc.logger.WithContext(ctx).Info("orphan sweep completed",
		zap.Int("purged", len(purged)))
	return purged, nil
}
