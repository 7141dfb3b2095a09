package data

import (
	"context"
	"fmt"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/pkg/database"
	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/mina-sebastian/free-space-sub000/internal/user/biz"
)

// UserPO is the user persistence object
type UserPO struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey"`
	Email        string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	Name         string    `gorm:"column:name;type:varchar(255);not null"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null"`
	IsAdmin      bool      `gorm:"column:is_admin;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

// TableName returns the table name
func (UserPO) TableName() string {
	return "users"
}

func (po *UserPO) toDomain() *biz.User {
	return &biz.User{
		ID:           po.ID,
		Email:        po.Email,
		Name:         po.Name,
		PasswordHash: po.PasswordHash,
		IsAdmin:      po.IsAdmin,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}

type userRepo struct {
	db     *database.DB
	logger *logger.Logger
}

// NewUserRepo creates the user repository
func NewUserRepo(db *database.DB, log *logger.Logger) biz.UserRepo {
	return &userRepo{db: db, logger: log}
}

func (r *userRepo) Create(ctx context.Context, user *biz.User) error {
	po := &UserPO{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	err := r.db.GetDBFromContext(ctx).Create(po).Error
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return biz.ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*biz.User, error) {
	var po UserPO
	err := r.db.GetDBFromContext(ctx).Where("id = ?", id).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return po.toDomain(), nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*biz.User, error) {
	var po UserPO
	err := r.db.GetDBFromContext(ctx).Where("email = ?", email).First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return po.toDomain(), nil
}

func (r *userRepo) List(ctx context.Context) ([]*biz.User, error) {
	var pos []UserPO
	if err := r.db.GetDBFromContext(ctx).Order("created_at ASC").Find(&pos).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*biz.User, 0, len(pos))
	for i := range pos {
		users = append(users, pos[i].toDomain())
	}
	return users, nil
}
