package data

import (
	"context"
	"fmt"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"gorm.io/gorm"
)

// gormSession gives subqueries a clean statement off the ambient handle
var gormSession = gorm.Session{NewDB: true}

// FilePO is the file persistence object
type FilePO struct {
	FileID    string    `gorm:"column:file_id;type:varchar(36);primaryKey"`
	Name      string    `gorm:"column:name;type:varchar(255);not null"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;index"`
	FolderID  string    `gorm:"column:folder_id;type:varchar(36);not null;index"`
	Hash      string    `gorm:"column:hash;type:varchar(128);not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name
func (FilePO) TableName() string {
	return "files"
}

// fileRow is the list projection with the ledger size joined in
type fileRow struct {
	FilePO
	Size int64 `gorm:"column:size"`
}

func (row *fileRow) toDomain() *biz.File {
	return &biz.File{
		FileID:    row.FileID,
		Name:      row.Name,
		UserID:    row.UserID,
		FolderID:  row.FolderID,
		Hash:      row.Hash,
		Size:      row.Size,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type fileRepo struct {
	db     *database.DB
	logger *logger.Logger
}

// NewFileRepo creates the file repository
func NewFileRepo(db *database.DB, log *logger.Logger) biz.FileRepo {
	return &fileRepo{db: db, logger: log}
}

func (r *fileRepo) Create(ctx context.Context, file *biz.File) error {
	po := &FilePO{
		FileID:    file.FileID,
		Name:      file.Name,
		UserID:    file.UserID,
		FolderID:  file.FolderID,
		Hash:      file.Hash,
		CreatedAt: file.CreatedAt,
		UpdatedAt: file.UpdatedAt,
	}
	if err := r.db.GetDBFromContext(ctx).Create(po).Error; err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

const fileWithSize = "files.*, COALESCE(file_hashes.size, -1) AS size"

func (r *fileRepo) GetByID(ctx context.Context, fileID, userID string) (*biz.File, error) {
	var row fileRow
	err := r.db.GetDBFromContext(ctx).
		Table("files").
		Select(fileWithSize).
		Joins("LEFT JOIN file_hashes ON file_hashes.hash = files.hash").
		Where("files.file_id = ? AND files.user_id = ?", fileID, userID).
		First(&row).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return row.toDomain(), nil
}

func (r *fileRepo) ListByFolder(ctx context.Context, userID, folderID string) ([]*biz.File, error) {
	var rows []fileRow
	err := r.db.GetDBFromContext(ctx).
		Table("files").
		Select(fileWithSize).
		Joins("LEFT JOIN file_hashes ON file_hashes.hash = files.hash").
		Where("files.user_id = ? AND files.folder_id = ?", userID, folderID).
		Order("files.name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return toDomainList(rows), nil
}

func (r *fileRepo) ListByHash(ctx context.Context, hash string) ([]*biz.File, error) {
	var rows []fileRow
	err := r.db.GetDBFromContext(ctx).
		Table("files").
		Select(fileWithSize).
		Joins("LEFT JOIN file_hashes ON file_hashes.hash = files.hash").
		Where("files.hash = ?", hash).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list files by hash: %w", err)
	}
	return toDomainList(rows), nil
}

func (r *fileRepo) Rename(ctx context.Context, fileID, userID, newName string) error {
	result := r.db.GetDBFromContext(ctx).
		Model(&FilePO{}).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Updates(map[string]interface{}{
			"name":       newName,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to rename file: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrFileNotFound
	}
	return nil
}

func (r *fileRepo) SetFolder(ctx context.Context, fileIDs []string, userID, folderID string) error {
	result := r.db.GetDBFromContext(ctx).
		Model(&FilePO{}).
		Where("file_id IN ? AND user_id = ?", fileIDs, userID).
		Updates(map[string]interface{}{
			"folder_id":  folderID,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to move files: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrFileNotFound
	}
	return nil
}

func (r *fileRepo) Delete(ctx context.Context, fileID string) error {
	db := r.db.GetDBFromContext(ctx)
	if err := db.Where("file_id = ?", fileID).Delete(&FileTagPO{}).Error; err != nil {
		return fmt.Errorf("failed to delete file tags: %w", err)
	}
	if err := db.Where("file_id = ?", fileID).Delete(&FilePO{}).Error; err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// DeleteByFolder removes every file row inside a folder, tags included.
// Used by the recursive folder purge; runs in the purge transaction.
func (r *fileRepo) DeleteByFolder(ctx context.Context, folderID string) (int64, error) {
	db := r.db.GetDBFromContext(ctx)

	err := db.Where("file_id IN (?)",
		db.Session(&gormSession).Model(&FilePO{}).Select("file_id").Where("folder_id = ?", folderID),
	).Delete(&FileTagPO{}).Error
	if err != nil {
		return 0, fmt.Errorf("failed to delete folder file tags: %w", err)
	}

	result := db.Where("folder_id = ?", folderID).Delete(&FilePO{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete folder files: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *fileRepo) StorageUsage(ctx context.Context, userID string) (*biz.StorageUsage, error) {
	db := r.db.GetDBFromContext(ctx)
	usage := &biz.StorageUsage{}

	err := db.
		Table("files").
		Joins("JOIN file_hashes ON file_hashes.hash = files.hash").
		Where("files.user_id = ? AND file_hashes.size >= 0", userID).
		Select("COALESCE(SUM(file_hashes.size), 0)").
		Scan(&usage.LogicalBytes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute logical usage: %w", err)
	}

	err = db.
		Table("file_hashes").
		Where("size >= 0").
		Where("hash IN (?)",
			db.Session(&gormSession).Model(&FilePO{}).Distinct("hash").Where("user_id = ?", userID),
		).
		Select("COALESCE(SUM(size), 0)").
		Scan(&usage.PhysicalBytes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute physical usage: %w", err)
	}

	return usage, nil
}

func toDomainList(rows []fileRow) []*biz.File {
	files := make([]*biz.File, 0, len(rows))
	for i := range rows {
		files = append(files, rows[i].toDomain())
	}
	return files
}
