package data

import (
	"context"
	"fmt"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/hash/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
)

// FileHashPO is the content hash ledger persistence object
type FileHashPO struct {
	Hash      string    `gorm:"column:hash;type:varchar(128);primaryKey"`
	Path      string    `gorm:"column:path;type:varchar(128);not null;uniqueIndex"`
	Size      int64     `gorm:"column:size;not null;default:-1"`
	Tagged    bool      `gorm:"column:tagged;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name
func (FileHashPO) TableName() string {
	return "file_hashes"
}

func (po *FileHashPO) toDomain() *biz.FileHash {
	return &biz.FileHash{
		Hash:      po.Hash,
		Path:      po.Path,
		Size:      po.Size,
		Tagged:    po.Tagged,
		CreatedAt: po.CreatedAt,
		UpdatedAt: po.UpdatedAt,
	}
}

type ledgerRepo struct {
	db     *database.DB
	logger *logger.Logger
}

// NewLedgerRepo creates the ledger repository
func NewLedgerRepo(db *database.DB, log *logger.Logger) biz.LedgerRepo {
	return &ledgerRepo{db: db, logger: log}
}

func (r *ledgerRepo) Create(ctx context.Context, entry *biz.FileHash) (bool, *biz.FileHash, error) {
	po := &FileHashPO{
		Hash:      entry.Hash,
		Path:      entry.Path,
		Size:      entry.Size,
		Tagged:    entry.Tagged,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}

	err := r.db.GetDBFromContext(ctx).Create(po).Error
	if err == nil {
		return true, nil, nil
	}
	if !database.IsDuplicateKeyError(err) {
		return false, nil, fmt.Errorf("failed to create hash entry: %w", err)
	}

	existing, getErr := r.GetByHash(ctx, entry.Hash)
	if getErr != nil {
		return false, nil, getErr
	}
	return false, existing, nil
}

func (r *ledgerRepo) GetByHash(ctx context.Context, hash string) (*biz.FileHash, error) {
	var po FileHashPO
	err := r.db.GetDBFromContext(ctx).Where("hash = ?", hash).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrHashNotFound
		}
		return nil, fmt.Errorf("failed to get hash entry: %w", err)
	}
	return po.toDomain(), nil
}

func (r *ledgerRepo) SetSize(ctx context.Context, hash string, size int64) error {
	result := r.db.GetDBFromContext(ctx).
		Model(&FileHashPO{}).
		Where("hash = ?", hash).
		Updates(map[string]interface{}{
			"size":       size,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to finalize hash entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrHashNotFound
	}
	return nil
}

func (r *ledgerRepo) SetTagged(ctx context.Context, hash string, tagged bool) error {
	result := r.db.GetDBFromContext(ctx).
		Model(&FileHashPO{}).
		Where("hash = ?", hash).
		Updates(map[string]interface{}{
			"tagged":     tagged,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark hash entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrHashNotFound
	}
	return nil
}

// FindOrphans selects finalized entries no file row references. Reserved
// entries (size < 0) stay: their upload may still be in flight.
func (r *ledgerRepo) FindOrphans(ctx context.Context) ([]*biz.FileHash, error) {
	var pos []FileHashPO
	err := r.db.GetDBFromContext(ctx).
		Where("size >= 0").
		Where("NOT EXISTS (SELECT 1 FROM files WHERE files.hash = file_hashes.hash)").
		Find(&pos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find orphan hash entries: %w", err)
	}

	orphans := make([]*biz.FileHash, 0, len(pos))
	for i := range pos {
		orphans = append(orphans, pos[i].toDomain())
	}
	return orphans, nil
}

func (r *ledgerRepo) DeleteByHashes(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	if err := r.db.GetDBFromContext(ctx).
		Where("hash IN ?", hashes).
		Delete(&FileHashPO{}).Error; err != nil {
		return fmt.Errorf("failed to delete hash entries: %w", err)
	}
	return nil
}
