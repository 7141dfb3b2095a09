package data

import (
	"context"
	"fmt"

	"github.com/mina-sebastian/free-space-sub000/internal/file/biz"
	"gorm.io/gorm/clause"
)

// TagPO is the tag persistence object
type TagPO struct {
	Name string `gorm:"column:name;type:varchar(100);primaryKey"`
}

// TableName returns the table name
func (TagPO) TableName() string {
	return "tags"
}

// FileTagPO joins files to tags
type FileTagPO struct {
	FileID  string `gorm:"column:file_id;type:varchar(36);primaryKey"`
	TagName string `gorm:"column:tag_name;type:varchar(100);primaryKey"`
}

// TableName returns the table name
func (FileTagPO) TableName() string {
	return "file_tags"
}

// FileHashTagPO joins content hashes to tags
type FileHashTagPO struct {
	Hash    string `gorm:"column:hash;type:varchar(128);primaryKey"`
	TagName string `gorm:"column:tag_name;type:varchar(100);primaryKey"`
}

// TableName returns the table name
func (FileHashTagPO) TableName() string {
	return "file_hash_tags"
}

// ensureTags upserts the tag names so join rows always have a parent
func (r *fileRepo) ensureTags(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	pos := make([]TagPO, len(tags))
	for i, t := range tags {
		pos[i] = TagPO{Name: t}
	}
	err := r.db.GetDBFromContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&pos).Error
	if err != nil {
		return fmt.Errorf("failed to upsert tags: %w", err)
	}
	return nil
}

// SetFileTags replaces the file's tag set
func (r *fileRepo) SetFileTags(ctx context.Context, fileID string, tags []string) error {
	if err := r.ensureTags(ctx, tags); err != nil {
		return err
	}

	db := r.db.GetDBFromContext(ctx)
	if err := db.Where("file_id = ?", fileID).Delete(&FileTagPO{}).Error; err != nil {
		return fmt.Errorf("failed to clear file tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}

	pos := make([]FileTagPO, len(tags))
	for i, t := range tags {
		pos[i] = FileTagPO{FileID: fileID, TagName: t}
	}
	if err := db.Create(&pos).Error; err != nil {
		return fmt.Errorf("failed to set file tags: %w", err)
	}
	return nil
}

// GetFileTags returns the file's tag names
func (r *fileRepo) GetFileTags(ctx context.Context, fileID string) ([]string, error) {
	var tags []string
	err := r.db.GetDBFromContext(ctx).
		Model(&FileTagPO{}).
		Where("file_id = ?", fileID).
		Order("tag_name ASC").
		Pluck("tag_name", &tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get file tags: %w", err)
	}
	return tags, nil
}

// SetHashTags replaces the hash-level tag set
func (r *fileRepo) SetHashTags(ctx context.Context, hash string, tags []string) error {
	if err := r.ensureTags(ctx, tags); err != nil {
		return err
	}

	db := r.db.GetDBFromContext(ctx)
	if err := db.Where("hash = ?", hash).Delete(&FileHashTagPO{}).Error; err != nil {
		return fmt.Errorf("failed to clear hash tags: %w", err)
	}
	if len(tags) == 0 {
		return nil
	}

	pos := make([]FileHashTagPO, len(tags))
	for i, t := range tags {
		pos[i] = FileHashTagPO{Hash: hash, TagName: t}
	}
	if err := db.Create(&pos).Error; err != nil {
		return fmt.Errorf("failed to set hash tags: %w", err)
	}
	return nil
}

// GetHashTags returns the hash-level tag names
func (r *fileRepo) GetHashTags(ctx context.Context, hash string) ([]string, error) {
	var tags []string
	err := r.db.GetDBFromContext(ctx).
		Model(&FileHashTagPO{}).
		Where("hash = ?", hash).
		Order("tag_name ASC").
		Pluck("tag_name", &tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get hash tags: %w", err)
	}
	return tags, nil
}

// ListTags returns every tag name attached to the user's files
func (r *fileRepo) ListTags(ctx context.Context, userID string) ([]string, error) {
	var tags []string
	err := r.db.GetDBFromContext(ctx).
		Model(&FileTagPO{}).
		Distinct("file_tags.tag_name").
		Joins("JOIN files ON files.file_id = file_tags.file_id").
		Where("files.user_id = ?", userID).
		Order("file_tags.tag_name ASC").
		Pluck("file_tags.tag_name", &tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// ListUntagged returns the user's files carrying no tags
func (r *fileRepo) ListUntagged(ctx context.Context, userID string) ([]*biz.File, error) {
	var rows []fileRow
	err := r.db.GetDBFromContext(ctx).
		Table("files").
		Select(fileWithSize).
		Joins("LEFT JOIN file_hashes ON file_hashes.hash = files.hash").
		Where("files.user_id = ?", userID).
		Where("NOT EXISTS (SELECT 1 FROM file_tags WHERE file_tags.file_id = files.file_id)").
		Order("files.name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list untagged files: %w", err)
	}
	return toDomainList(rows), nil
}
