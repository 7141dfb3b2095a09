package data

import (
	"context"
	"fmt"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/folder/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
)

// FolderPO is the folder persistence object
type FolderPO struct {
	FolderID      string    `gorm:"column:folder_id;type:varchar(36);primaryKey"`
	Name          string    `gorm:"column:name;type:varchar(255);not null;index:idx_folders_parent_name,priority:3"`
	UserID        string    `gorm:"column:user_id;type:varchar(36);not null;index:idx_folders_parent_name,priority:1"`
	OuterFolderID *string   `gorm:"column:outer_folder_id;type:varchar(36);index:idx_folders_parent_name,priority:2"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name
func (FolderPO) TableName() string {
	return "folders"
}

func (po *FolderPO) toDomain() *biz.Folder {
	return &biz.Folder{
		FolderID:      po.FolderID,
		Name:          po.Name,
		UserID:        po.UserID,
		OuterFolderID: po.OuterFolderID,
		CreatedAt:     po.CreatedAt,
		UpdatedAt:     po.UpdatedAt,
	}
}

func fromDomain(f *biz.Folder) *FolderPO {
	return &FolderPO{
		FolderID:      f.FolderID,
		Name:          f.Name,
		UserID:        f.UserID,
		OuterFolderID: f.OuterFolderID,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

type folderRepo struct {
	db     *database.DB
	logger *logger.Logger
}

// NewFolderRepo creates the folder repository
func NewFolderRepo(db *database.DB, log *logger.Logger) biz.FolderRepo {
	return &folderRepo{db: db, logger: log}
}

func (r *folderRepo) Create(ctx context.Context, folder *biz.Folder) error {
	po := fromDomain(folder)
	if err := r.db.GetDBFromContext(ctx).Create(po).Error; err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

func (r *folderRepo) GetByID(ctx context.Context, folderID, userID string) (*biz.Folder, error) {
	var po FolderPO
	err := r.db.GetDBFromContext(ctx).
		Where("folder_id = ? AND user_id = ?", folderID, userID).
		First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return po.toDomain(), nil
}

func (r *folderRepo) GetRoot(ctx context.Context, userID, name string) (*biz.Folder, error) {
	var po FolderPO
	err := r.db.GetDBFromContext(ctx).
		Where("user_id = ? AND name = ? AND outer_folder_id IS NULL", userID, name).
		First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get root folder: %w", err)
	}
	return po.toDomain(), nil
}

func (r *folderRepo) ListChildren(ctx context.Context, userID string, outerFolderID *string) ([]*biz.Folder, error) {
	query := r.db.GetDBFromContext(ctx).Where("user_id = ?", userID)
	if outerFolderID == nil {
		query = query.Where("outer_folder_id IS NULL")
	} else {
		query = query.Where("outer_folder_id = ?", *outerFolderID)
	}

	var pos []FolderPO
	if err := query.Order("name ASC").Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	folders := make([]*biz.Folder, 0, len(pos))
	for i := range pos {
		folders = append(folders, pos[i].toDomain())
	}
	return folders, nil
}

func (r *folderRepo) Rename(ctx context.Context, folderID, userID, newName string) error {
	result := r.db.GetDBFromContext(ctx).
		Model(&FolderPO{}).
		Where("folder_id = ? AND user_id = ?", folderID, userID).
		Updates(map[string]interface{}{
			"name":       newName,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to rename folder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrFolderNotFound
	}
	return nil
}

func (r *folderRepo) SetOuterFolder(ctx context.Context, folderIDs []string, userID, outerFolderID string) error {
	result := r.db.GetDBFromContext(ctx).
		Model(&FolderPO{}).
		Where("folder_id IN ? AND user_id = ?", folderIDs, userID).
		Updates(map[string]interface{}{
			"outer_folder_id": outerFolderID,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to move folders: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return biz.ErrFolderNotFound
	}
	return nil
}

func (r *folderRepo) Delete(ctx context.Context, folderID string) error {
	if err := r.db.GetDBFromContext(ctx).
		Where("folder_id = ?", folderID).
		Delete(&FolderPO{}).Error; err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return nil
}
