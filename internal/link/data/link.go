package data

import (
	"context"
	"fmt"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/link/biz"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"gorm.io/gorm"
)

// LinkPO is the share link persistence object
type LinkPO struct {
	Token      string    `gorm:"column:token;type:varchar(64);primaryKey"`
	UserID     string    `gorm:"column:user_id;type:varchar(36);not null;index"`
	FileID     *string   `gorm:"column:file_id;type:varchar(36);index"`
	FolderID   *string   `gorm:"column:folder_id;type:varchar(36);index"`
	Permission string    `gorm:"column:permission;type:varchar(20);not null"`
	CanSee     string    `gorm:"column:can_see;type:varchar(20);not null"`
	Expires    time.Time `gorm:"column:expires;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

// TableName returns the table name
func (LinkPO) TableName() string {
	return "links"
}

func (po *LinkPO) toDomain() *biz.Link {
	return &biz.Link{
		Token:      po.Token,
		UserID:     po.UserID,
		FileID:     po.FileID,
		FolderID:   po.FolderID,
		Permission: po.Permission,
		CanSee:     po.CanSee,
		Expires:    po.Expires,
		CreatedAt:  po.CreatedAt,
	}
}

// Repo is the link repository. Beyond the link manager's own contract it
// carries the cascade deletes the folder and file purge paths need.
type Repo struct {
	db     *database.DB
	logger *logger.Logger
}

// NewLinkRepo creates the link repository
func NewLinkRepo(db *database.DB, log *logger.Logger) *Repo {
	return &Repo{db: db, logger: log}
}

func (r *Repo) Create(ctx context.Context, link *biz.Link) error {
	po := &LinkPO{
		Token:      link.Token,
		UserID:     link.UserID,
		FileID:     link.FileID,
		FolderID:   link.FolderID,
		Permission: link.Permission,
		CanSee:     link.CanSee,
		Expires:    link.Expires,
		CreatedAt:  link.CreatedAt,
	}
	if err := r.db.GetDBFromContext(ctx).Create(po).Error; err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

func (r *Repo) GetByToken(ctx context.Context, token string) (*biz.Link, error) {
	var po LinkPO
	err := r.db.GetDBFromContext(ctx).Where("token = ?", token).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return po.toDomain(), nil
}

func (r *Repo) Delete(ctx context.Context, token string) error {
	if err := r.db.GetDBFromContext(ctx).
		Where("token = ?", token).
		Delete(&LinkPO{}).Error; err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

// DeleteByFile removes links bound to a single file
func (r *Repo) DeleteByFile(ctx context.Context, fileID string) error {
	if err := r.db.GetDBFromContext(ctx).
		Where("file_id = ?", fileID).
		Delete(&LinkPO{}).Error; err != nil {
		return fmt.Errorf("failed to delete file links: %w", err)
	}
	return nil
}

// DeleteByFolder removes links bound to the folder itself
func (r *Repo) DeleteByFolder(ctx context.Context, folderID string) error {
	if err := r.db.GetDBFromContext(ctx).
		Where("folder_id = ?", folderID).
		Delete(&LinkPO{}).Error; err != nil {
		return fmt.Errorf("failed to delete folder links: %w", err)
	}
	return nil
}

// DeleteByFilesInFolder removes links bound to any file directly inside
// the folder. Runs before the file rows themselves are purged.
func (r *Repo) DeleteByFilesInFolder(ctx context.Context, folderID string) error {
	db := r.db.GetDBFromContext(ctx)
	err := db.Where("file_id IN (?)",
		db.Session(&gorm.Session{NewDB: true}).
			Table("files").
			Select("file_id").
			Where("folder_id = ?", folderID),
	).Delete(&LinkPO{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete folder file links: %w", err)
	}
	return nil
}
